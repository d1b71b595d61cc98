package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// GeminiProvider talks to the Gemini generateContent API.
type GeminiProvider struct {
	endpoint
}

// NewGemini creates a Gemini provider. The default model is gemini-2.0-flash.
func NewGemini(apiKey string, opts ...Option) *GeminiProvider {
	return &GeminiProvider{newEndpoint("gemini", "https://generativelanguage.googleapis.com/v1beta", "gemini-2.0-flash",
		map[string]string{"x-goog-api-key": apiKey}, opts)}
}

func (p *GeminiProvider) Chat(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error) {
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(p.modelFor(req)))

	var out geminiResponse
	if err := p.post(ctx, path, geminiBody(req), &out); err != nil {
		return nil, err
	}
	if len(out.Candidates) == 0 {
		return nil, fmt.Errorf("gemini: no candidates in response")
	}

	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return &protocol.ChatResponse{
		Content: sb.String(),
		Usage: protocol.Usage{
			PromptTokens:     out.UsageMetadata.PromptTokenCount,
			CompletionTokens: out.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}

// geminiBody maps the chat onto contents. Gemini calls the assistant "model".
func geminiBody(req protocol.ChatRequest) geminiRequest {
	system, rest := splitSystem(req.Messages)

	body := geminiRequest{Contents: make([]geminiContent, 0, len(rest))}
	for _, m := range rest {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		body.Contents = append(body.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	if system != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	gen := geminiGenerationConfig{
		MaxOutputTokens: max(req.MaxTokens, 0),
		Temperature:     temperature(req.Temperature),
	}
	if req.JSON {
		gen.ResponseMimeType = "application/json"
	}
	if gen != (geminiGenerationConfig{}) {
		body.GenerationConfig = &gen
	}
	return body
}

// Wire format.

type (
	geminiRequest struct {
		Contents          []geminiContent         `json:"contents"`
		SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
		GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
	}
	geminiContent struct {
		Role  string       `json:"role,omitempty"`
		Parts []geminiPart `json:"parts"`
	}
	geminiPart struct {
		Text string `json:"text"`
	}
	geminiGenerationConfig struct {
		MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
		Temperature      *float64 `json:"temperature,omitempty"`
		ResponseMimeType string   `json:"responseMimeType,omitempty"`
	}
	geminiResponse struct {
		Candidates    []geminiCandidate `json:"candidates"`
		UsageMetadata geminiUsage       `json:"usageMetadata"`
	}
	geminiCandidate struct {
		Content geminiContent `json:"content"`
	}
	geminiUsage struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	}
)
