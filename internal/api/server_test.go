package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/logbuf"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/store"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// mockStore implements store.Store in memory.
type mockStore struct {
	mu      sync.Mutex
	tickets []*protocol.Ticket
	traces  map[string]*protocol.Trace
	context protocol.ContextDocument
	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{traces: map[string]*protocol.Trace{}}
}

func (m *mockStore) SaveGenerated(t *protocol.Ticket, tr *protocol.Trace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = fmt.Sprintf("id-%d", len(m.tickets)+1)
	m.tickets = append([]*protocol.Ticket{t}, m.tickets...)
	m.traces[store.Slug(t.Summary)] = tr
	return nil
}

func (m *mockStore) ListTickets() ([]*protocol.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tickets, m.listErr
}

func (m *mockStore) DeleteTicket(summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tickets {
		if store.Slug(t.Summary) == store.Slug(summary) {
			m.tickets = append(m.tickets[:i], m.tickets[i+1:]...)
			delete(m.traces, store.Slug(summary))
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *mockStore) GetTrace(summary string) (*protocol.Trace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tr, ok := m.traces[store.Slug(summary)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return tr, nil
}

func (m *mockStore) GetContext() (protocol.ContextDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.context, nil
}

func (m *mockStore) SaveContext(doc protocol.ContextDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.context = doc
	return nil
}

// fakeGenerator returns a fixed ticket, recording the context it saw.
type fakeGenerator struct {
	mu         sync.Mutex
	summary    string
	err        error
	gotContext string
}

func (g *fakeGenerator) setSummary(s string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.summary = s
}

func (g *fakeGenerator) lastContext() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gotContext
}

func (g *fakeGenerator) Run(_ context.Context, brainDump, projectContext string) (*protocol.Trace, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gotContext = projectContext
	if g.err != nil {
		return nil, g.err
	}
	summary := g.summary
	if summary == "" {
		summary = "Add dark mode toggle"
	}
	return &protocol.Trace{
		BrainDump:   brainDump,
		UserStory:   &protocol.UserStory{Title: "Dark mode"},
		FinalTicket: &protocol.Ticket{Summary: summary, StoryPoints: 3, Labels: []string{"ui"}, Priority: protocol.PriorityMedium},
	}, nil
}

type fakeAnnouncer struct {
	got chan *protocol.Ticket
	err error
}

func (a *fakeAnnouncer) Announce(_ context.Context, t *protocol.Ticket) error {
	a.got <- t
	return a.err
}

func newTestServer(st store.Store, gen Generator, key string) *Server {
	return NewServer(st, gen, Config{Host: "127.0.0.1", Port: 0, Key: key}, nil, nil)
}

func serve(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(newMockStore(), &fakeGenerator{}, "")
	w := serve(srv, "GET", "/api/health", "")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestGenerate(t *testing.T) {
	st := newMockStore()
	st.context = protocol.ContextDocument{Content: "Go + React"}
	gen := &fakeGenerator{}
	srv := newTestServer(st, gen, "")

	w := serve(srv, "POST", "/api/generate", `{"brain_dump":"users want dark mode"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res protocol.GenerateResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Summary != "Add dark mode toggle" || res.ID == "" {
		t.Errorf("unexpected ticket %+v", res.Ticket)
	}
	if res.Trace == nil || res.Trace.BrainDump != "users want dark mode" {
		t.Errorf("expected embedded trace, got %+v", res.Trace)
	}
	if gen.lastContext() != "Go + React" {
		t.Errorf("expected context passed to pipeline, got %q", gen.gotContext)
	}
	if len(st.tickets) != 1 {
		t.Errorf("expected ticket persisted, got %d", len(st.tickets))
	}
}

func TestGenerate_BlankBrainDump(t *testing.T) {
	srv := newTestServer(newMockStore(), &fakeGenerator{}, "")
	for _, body := range []string{`{"brain_dump":"   "}`, `{}`, `not json`} {
		w := serve(srv, "POST", "/api/generate", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, w.Code)
		}
	}
}

func TestGenerate_PipelineError(t *testing.T) {
	st := newMockStore()
	srv := newTestServer(st, &fakeGenerator{err: errors.New("model unavailable")}, "")

	w := serve(srv, "POST", "/api/generate", `{"brain_dump":"x"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if !strings.Contains(body["error"], "model unavailable") {
		t.Errorf("error body = %v", body)
	}
	if len(st.tickets) != 0 {
		t.Error("nothing should be stored on failure")
	}
}

func TestGenerate_Announces(t *testing.T) {
	ann := &fakeAnnouncer{got: make(chan *protocol.Ticket, 1), err: errors.New("slack down")}
	srv := NewServer(newMockStore(), &fakeGenerator{}, Config{}, nil, ann)

	w := serve(srv, "POST", "/api/generate", `{"brain_dump":"x"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("announcement failure must not fail the request, status = %d", w.Code)
	}
	select {
	case got := <-ann.got:
		if got.Summary != "Add dark mode toggle" {
			t.Errorf("announced %q", got.Summary)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ticket was not announced")
	}
}

func TestListTickets(t *testing.T) {
	st := newMockStore()
	srv := newTestServer(st, &fakeGenerator{}, "")

	w := serve(srv, "GET", "/api/tickets", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != "[]" {
		t.Errorf("expected [] for empty list, got %s", got)
	}

	st.SaveGenerated(&protocol.Ticket{Summary: "One"}, nil)
	st.SaveGenerated(&protocol.Ticket{Summary: "Two"}, nil)
	w = serve(srv, "GET", "/api/tickets", "")
	var tickets []protocol.Ticket
	json.NewDecoder(w.Body).Decode(&tickets)
	if len(tickets) != 2 || tickets[0].Summary != "Two" {
		t.Errorf("unexpected list %+v", tickets)
	}
}

func TestListTickets_StoreError(t *testing.T) {
	st := newMockStore()
	st.listErr = errors.New("disk gone")
	srv := newTestServer(st, &fakeGenerator{}, "")

	if w := serve(srv, "GET", "/api/tickets", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
}

func TestDeleteTicket(t *testing.T) {
	st := newMockStore()
	st.SaveGenerated(&protocol.Ticket{Summary: "Fix login/logout bug"}, &protocol.Trace{})
	srv := newTestServer(st, &fakeGenerator{}, "")

	w := serve(srv, "DELETE", "/api/tickets/Fix%20login%2Flogout%20bug", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["message"] != "Ticket deleted successfully" {
		t.Errorf("body = %v", body)
	}
	if len(st.tickets) != 0 {
		t.Error("ticket not deleted")
	}

	w = serve(srv, "DELETE", "/api/tickets/Fix%20login%2Flogout%20bug", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", w.Code)
	}
}

func TestGetTrace(t *testing.T) {
	st := newMockStore()
	st.SaveGenerated(&protocol.Ticket{Summary: "Add dark mode"}, &protocol.Trace{BrainDump: "dark please"})
	srv := newTestServer(st, &fakeGenerator{}, "")

	w := serve(srv, "GET", "/api/traces/Add%20dark%20mode", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var tr protocol.Trace
	json.NewDecoder(w.Body).Decode(&tr)
	if tr.BrainDump != "dark please" {
		t.Errorf("unexpected trace %+v", tr)
	}

	if w := serve(srv, "GET", "/api/traces/unknown", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing trace status = %d", w.Code)
	}
}

func TestContext(t *testing.T) {
	st := newMockStore()
	srv := newTestServer(st, &fakeGenerator{}, "")

	w := serve(srv, "POST", "/api/context", `{"content":"We use Postgres"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d", w.Code)
	}
	w = serve(srv, "GET", "/api/context", "")
	var doc protocol.ContextDocument
	json.NewDecoder(w.Body).Decode(&doc)
	if doc.Content != "We use Postgres" {
		t.Errorf("content = %q", doc.Content)
	}

	if w := serve(srv, "POST", "/api/context", `{`); w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d", w.Code)
	}
}

func TestAuth_Required(t *testing.T) {
	srv := newTestServer(newMockStore(), &fakeGenerator{}, "secret-key")

	// No auth header
	if w := serve(srv, "GET", "/api/tickets", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}

	// Wrong key
	req := httptest.NewRequest("GET", "/api/tickets", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}

	// Correct key
	req = httptest.NewRequest("GET", "/api/tickets", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	// Health is always open
	if w := serve(srv, "GET", "/api/health", ""); w.Code != http.StatusOK {
		t.Errorf("health should not require auth, got %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	srv := newTestServer(newMockStore(), &fakeGenerator{}, "")

	w := serve(srv, "OPTIONS", "/api/tickets/x", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("expected 204 for OPTIONS, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "DELETE") {
		t.Errorf("Allow-Methods = %q", got)
	}
}

func TestStaticDir(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>Guardian</h1>"), 0o644)
	srv := NewServer(newMockStore(), &fakeGenerator{}, Config{StaticDir: dir}, nil, nil)

	w := serve(srv, "GET", "/", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Guardian") {
		t.Errorf("static index: status %d body %q", w.Code, w.Body.String())
	}
	// API routes still win over the file server.
	if w := serve(srv, "GET", "/api/health", ""); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
}

func TestGetLogs(t *testing.T) {
	buf := logbuf.New(10)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	buf.Write(protocol.LogEntry{Time: base, Level: "INFO", Message: "ticket saved"})
	buf.Write(protocol.LogEntry{Time: base.Add(time.Second), Level: "ERROR", Message: "ticket generation failed"})
	buf.Write(protocol.LogEntry{Time: base.Add(2 * time.Second), Level: "WARN", Message: "context unavailable"})

	srv := NewServer(newMockStore(), &fakeGenerator{}, Config{Logs: buf}, nil, nil)

	tests := []struct {
		path string
		want []string
	}{
		{"/api/logs", []string{"ticket saved", "ticket generation failed", "context unavailable"}},
		{"/api/logs?level=warn", []string{"ticket generation failed", "context unavailable"}},
		{"/api/logs?level=warn&limit=1", []string{"context unavailable"}},
		{"/api/logs?q=generation", []string{"ticket generation failed"}},
		{"/api/logs?since=" + base.Add(time.Second).Format(time.RFC3339), []string{"ticket generation failed", "context unavailable"}},
		{fmt.Sprintf("/api/logs?since=%d", base.Add(2*time.Second).UnixMilli()), []string{"context unavailable"}},
	}
	for _, tt := range tests {
		w := serve(srv, "GET", tt.path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", tt.path, w.Code)
		}
		var got []protocol.LogEntry
		json.NewDecoder(w.Body).Decode(&got)
		if len(got) != len(tt.want) {
			t.Errorf("%s: got %d entries, want %d", tt.path, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].Message != tt.want[i] {
				t.Errorf("%s: entry %d = %q, want %q", tt.path, i, got[i].Message, tt.want[i])
			}
		}
	}

	if w := serve(srv, "GET", "/api/logs?since=yesterday", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad since: status %d", w.Code)
	}
	if w := serve(srv, "GET", "/api/logs?limit=-1", ""); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status %d", w.Code)
	}
}

func TestGetLogs_NoBuffer(t *testing.T) {
	srv := newTestServer(newMockStore(), &fakeGenerator{}, "")
	w := serve(srv, "GET", "/api/logs", "")
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("status %d, body %q", w.Code, w.Body.String())
	}
}
