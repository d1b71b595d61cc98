package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

func TestGeminiChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Error("missing api key header")
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "You are QA." {
			t.Errorf("unexpected system instruction %+v", req.SystemInstruction)
		}
		if len(req.Contents) != 2 || req.Contents[1].Role != "model" {
			t.Errorf("expected assistant mapped to model, got %+v", req.Contents)
		}
		if req.GenerationConfig == nil || req.GenerationConfig.ResponseMimeType != "application/json" {
			t.Errorf("expected JSON mime type, got %+v", req.GenerationConfig)
		}

		json.NewEncoder(w).Encode(geminiResponse{
			Candidates: []geminiCandidate{{
				Content: geminiContent{Role: "model", Parts: []geminiPart{{Text: `{"scenarios":`}, {Text: `[]}`}}},
			}},
			UsageMetadata: geminiUsage{PromptTokenCount: 7, CandidatesTokenCount: 4},
		})
	}))
	defer srv.Close()

	p := NewGemini("test-key", WithBaseURL(srv.URL), WithModel("gemini-test"))
	got, err := p.Chat(context.Background(), protocol.ChatRequest{
		Messages: []protocol.ChatMessage{
			{Role: "system", Content: "You are QA."},
			{Role: "user", Content: "plan"},
			{Role: "assistant", Content: "ok"},
		},
		JSON: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Content != `{"scenarios":[]}` {
		t.Errorf("expected joined parts, got %q", got.Content)
	}
	if got.Usage.TotalTokens() != 11 {
		t.Errorf("expected 11 total tokens, got %d", got.Usage.TotalTokens())
	}
}

func TestGeminiChat_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	p := NewGemini("k", WithBaseURL(srv.URL))
	_, err := p.Chat(context.Background(), protocol.ChatRequest{
		Messages: []protocol.ChatMessage{{Role: "user", Content: "x"}},
	})
	if err == nil {
		t.Fatal("expected error for empty candidates")
	}
}
