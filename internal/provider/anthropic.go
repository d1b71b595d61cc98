package provider

import (
	"context"
	"strings"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

const (
	anthropicAPIVersion = "2023-06-01"
	// The Messages API rejects requests without max_tokens.
	anthropicMaxTokens = 4096
	// The Messages API has no response format switch, so JSON mode is an
	// extra line in the system prompt.
	jsonOnlyInstruction = "Respond with a single JSON object and nothing else."
)

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	endpoint
}

// NewAnthropic creates an Anthropic provider. The default model is Claude Sonnet 4.
func NewAnthropic(apiKey string, opts ...Option) *AnthropicProvider {
	return &AnthropicProvider{newEndpoint("anthropic", "https://api.anthropic.com", "claude-sonnet-4-20250514",
		map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": anthropicAPIVersion,
		}, opts)}
}

func (p *AnthropicProvider) Chat(ctx context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error) {
	var out anthropicResponse
	if err := p.post(ctx, "/v1/messages", p.request(req), &out); err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return &protocol.ChatResponse{
		Content: sb.String(),
		Usage: protocol.Usage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
		},
	}, nil
}

func (p *AnthropicProvider) request(req protocol.ChatRequest) anthropicRequest {
	system, rest := splitSystem(req.Messages)
	if req.JSON {
		system = strings.TrimLeft(system+"\n\n"+jsonOnlyInstruction, "\n")
	}

	body := anthropicRequest{
		Model:       p.modelFor(req),
		System:      system,
		MaxTokens:   anthropicMaxTokens,
		Temperature: temperature(req.Temperature),
		Messages:    make([]anthropicMessage, 0, len(rest)),
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	for _, m := range rest {
		body.Messages = append(body.Messages, anthropicMessage{
			Role:    m.Role,
			Content: []anthropicBlock{{Type: "text", Text: m.Content}},
		})
	}
	return body
}

// Wire format.

type (
	anthropicRequest struct {
		Model       string             `json:"model"`
		Messages    []anthropicMessage `json:"messages"`
		System      string             `json:"system,omitempty"`
		MaxTokens   int                `json:"max_tokens"`
		Temperature *float64           `json:"temperature,omitempty"`
	}
	anthropicMessage struct {
		Role    string           `json:"role"`
		Content []anthropicBlock `json:"content"`
	}
	anthropicBlock struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	}
	anthropicResponse struct {
		Content    []anthropicBlock `json:"content"`
		Usage      anthropicUsage   `json:"usage"`
		StopReason string           `json:"stop_reason"`
	}
	anthropicUsage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	}
)
