package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// runStage sends one role's prompt and decodes the JSON reply into T.
// Undecodable replies are retried; provider errors are not.
func runStage[T any](ctx context.Context, p *Pipeline, name, instructions, projectContext, input string) (*T, error) {
	system := instructions
	if c := strings.TrimSpace(projectContext); c != "" {
		system = contextPreamble + c + "\n\n" + instructions
	}
	req := protocol.ChatRequest{
		Model: p.model,
		Messages: []protocol.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: input},
		},
		JSON: true,
	}

	var lastErr error
	for attempt := 1; attempt <= p.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pipeline: %s: context cancelled: %w", name, err)
		}

		p.logger.Debug("stage request", "stage", name, "attempt", attempt, "provider", p.provider.Name())
		resp, err := p.provider.Chat(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %s: provider error: %w", name, err)
		}

		var out T
		if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &out); err != nil {
			lastErr = err
			p.logger.Warn("stage output did not decode",
				"stage", name,
				"attempt", attempt,
				"content_len", len(resp.Content),
				"error", err,
			)
			continue
		}
		p.logger.Debug("stage done", "stage", name, "tokens", resp.Usage.TotalTokens())
		return &out, nil
	}
	return nil, fmt.Errorf("pipeline: %s: decode output: %w", name, lastErr)
}

// extractJSON strips markdown fences and any prose around the outermost
// JSON object.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}
