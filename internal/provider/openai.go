package provider

import (
	"context"
	"fmt"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// OpenAIProvider talks to the chat completions endpoint of OpenAI or any
// host that mirrors it (OpenRouter, Groq, a local vLLM).
type OpenAIProvider struct {
	endpoint
}

// NewOpenAI creates an OpenAI-compatible provider. The default model is gpt-4o.
func NewOpenAI(apiKey string, opts ...Option) *OpenAIProvider {
	return &OpenAIProvider{newEndpoint("openai", "https://api.openai.com/v1", "gpt-4o",
		map[string]string{"Authorization": "Bearer " + apiKey}, opts)}
}

func (p *OpenAIProvider) Chat(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error) {
	var out openaiResponse
	if err := p.post(ctx, "/chat/completions", p.request(req), &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices in response")
	}
	return &protocol.ChatResponse{
		Content: out.Choices[0].Message.Content,
		Usage: protocol.Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
		},
	}, nil
}

func (p *OpenAIProvider) request(req protocol.ChatRequest) openaiRequest {
	body := openaiRequest{
		Model:       p.modelFor(req),
		Messages:    make([]openaiMessage, 0, len(req.Messages)),
		Temperature: temperature(req.Temperature),
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, openaiMessage{Role: m.Role, Content: m.Content})
	}
	if req.MaxTokens > 0 {
		n := req.MaxTokens
		body.MaxTokens = &n
	}
	if req.JSON {
		body.ResponseFormat = &openaiResponseFormat{Type: "json_object"}
	}
	return body
}

// Wire format.

type (
	openaiRequest struct {
		Model          string                `json:"model"`
		Messages       []openaiMessage       `json:"messages"`
		MaxTokens      *int                  `json:"max_tokens,omitempty"`
		Temperature    *float64              `json:"temperature,omitempty"`
		ResponseFormat *openaiResponseFormat `json:"response_format,omitempty"`
	}
	openaiResponseFormat struct {
		Type string `json:"type"`
	}
	openaiMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	openaiResponse struct {
		Choices []openaiChoice `json:"choices"`
		Usage   openaiUsage    `json:"usage"`
	}
	openaiChoice struct {
		Message openaiMessage `json:"message"`
	}
	openaiUsage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	}
)
