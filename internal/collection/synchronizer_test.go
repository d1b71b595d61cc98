package collection

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/notice"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// mockBackend implements Backend for testing.
type mockBackend struct {
	tickets   []protocol.Ticket
	listErr   error
	deleteErr error
	deleted   []string
	doc       protocol.ContextDocument
	fetchErr  error
	saveErr   error
	saves     int
}

func (m *mockBackend) ListTickets(context.Context) ([]protocol.Ticket, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]protocol.Ticket{}, m.tickets...), nil
}

func (m *mockBackend) DeleteTicket(_ context.Context, summary string) error {
	m.deleted = append(m.deleted, summary)
	return m.deleteErr
}

func (m *mockBackend) FetchContext(context.Context) (*protocol.ContextDocument, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	doc := m.doc
	return &doc, nil
}

func (m *mockBackend) SaveContext(_ context.Context, doc protocol.ContextDocument) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.doc = doc
	return nil
}

func tickets(summaries ...string) []protocol.Ticket {
	out := make([]protocol.Ticket, len(summaries))
	for i, s := range summaries {
		out[i] = protocol.Ticket{Summary: s, Description: "desc " + s, Labels: []string{"l"}}
	}
	return out
}

func summaries(ts []protocol.Ticket) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.Summary
	}
	return out
}

func TestRefresh_ReplacesView(t *testing.T) {
	b := &mockBackend{tickets: tickets("B", "A")}
	s := New(b)

	if s.Loaded() {
		t.Error("loaded before refresh")
	}
	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := summaries(s.Tickets()); !reflect.DeepEqual(got, []string{"B", "A"}) {
		t.Errorf("view = %v", got)
	}

	b.tickets = tickets("C")
	s.Refresh(context.Background())
	if got := summaries(s.Tickets()); !reflect.DeepEqual(got, []string{"C"}) {
		t.Errorf("view after second refresh = %v", got)
	}
}

func TestRefresh_Empty(t *testing.T) {
	s := New(&mockBackend{})
	got, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || len(got) != 0 || !s.Loaded() {
		t.Errorf("got %v loaded=%v", got, s.Loaded())
	}
}

func TestRefresh_FailureKeepsView(t *testing.T) {
	b := &mockBackend{tickets: tickets("A")}
	var rec notice.Recorder
	s := New(b, WithNotifier(&rec))
	s.Refresh(context.Background())

	b.listErr = errors.New("connection refused")
	if _, err := s.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if got := summaries(s.Tickets()); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("view = %v", got)
	}
	if rec.Failures() != 1 {
		t.Errorf("failures = %d", rec.Failures())
	}
}

func TestDelete_RemovesExactlyOne(t *testing.T) {
	for n := 1; n <= 5; n++ {
		for target := 0; target < n; target++ {
			names := make([]string, n)
			for i := range names {
				names[i] = fmt.Sprintf("ticket-%d", i)
			}
			b := &mockBackend{tickets: tickets(names...)}
			s := New(b, WithConfirmer(notice.Always))
			s.Refresh(context.Background())
			before := s.Tickets()

			if err := s.Delete(context.Background(), names[target]); err != nil {
				t.Fatalf("n=%d target=%d: %v", n, target, err)
			}

			var want []protocol.Ticket
			want = append(want, before[:target]...)
			want = append(want, before[target+1:]...)
			got := s.Tickets()
			if len(got) != len(want) || (len(want) > 0 && !reflect.DeepEqual(got, want)) {
				t.Errorf("n=%d target=%d: view = %v, want %v", n, target, summaries(got), summaries(want))
			}
		}
	}
}

func TestDelete_MatchesLikeBackend(t *testing.T) {
	b := &mockBackend{tickets: tickets("Add dark mode toggle", "Export CSV")}
	s := New(b, WithConfirmer(notice.Always))
	s.Refresh(context.Background())

	if err := s.Delete(context.Background(), "  add DARK mode toggle "); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got := summaries(s.Tickets())
	if !reflect.DeepEqual(got, []string{"Export CSV"}) {
		t.Errorf("view = %v, want [Export CSV]", got)
	}
}

func TestDelete_FailureLeavesViewUnchanged(t *testing.T) {
	b := &mockBackend{
		tickets:   tickets("Add dark mode toggle", "Export CSV"),
		deleteErr: errors.New("HTTP 500"),
	}
	var rec notice.Recorder
	s := New(b, WithConfirmer(notice.Always), WithNotifier(&rec))
	s.Refresh(context.Background())
	before := s.Tickets()

	if err := s.Delete(context.Background(), "Add dark mode toggle"); err == nil {
		t.Fatal("expected error")
	}
	if !reflect.DeepEqual(s.Tickets(), before) {
		t.Errorf("view changed: %v", summaries(s.Tickets()))
	}
	if rec.Failures() != 1 || rec.Notices()[0].Message != MsgDeleteFailed {
		t.Errorf("notices = %v", rec.Notices())
	}
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	b := &mockBackend{tickets: tickets("A")}
	var prompts []string
	s := New(b, WithConfirmer(notice.ConfirmFunc(func(_ context.Context, p string) bool {
		prompts = append(prompts, p)
		return false
	})))
	s.Refresh(context.Background())

	err := s.Delete(context.Background(), "A")
	if !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("err = %v", err)
	}
	if len(b.deleted) != 0 {
		t.Errorf("backend called: %v", b.deleted)
	}
	if len(prompts) != 1 {
		t.Errorf("prompts = %v", prompts)
	}
	if len(s.Tickets()) != 1 {
		t.Error("view changed without confirmation")
	}
}

func TestDelete_DefaultConfirmerDeclines(t *testing.T) {
	b := &mockBackend{}
	s := New(b)
	if err := s.Delete(context.Background(), "A"); !errors.Is(err, ErrNotConfirmed) {
		t.Errorf("err = %v", err)
	}
}

func TestContext_FetchAndSave(t *testing.T) {
	b := &mockBackend{doc: protocol.ContextDocument{Content: "Fintech app, Go backend"}}
	var rec notice.Recorder
	s := New(b, WithNotifier(&rec))

	if _, ok := s.Context(); ok {
		t.Error("context loaded before fetch")
	}
	doc, err := s.FetchContext(context.Background())
	if err != nil || doc.Content != "Fintech app, Go backend" {
		t.Fatalf("FetchContext = %+v, %v", doc, err)
	}

	if err := s.SaveContext(context.Background(), "Healthcare app"); err != nil {
		t.Fatal(err)
	}
	if b.doc.Content != "Healthcare app" {
		t.Errorf("backend doc = %q", b.doc.Content)
	}
	if got, ok := s.Context(); !ok || got.Content != "Healthcare app" {
		t.Errorf("local doc = %+v", got)
	}
	if n := rec.Notices(); len(n) != 1 || n[0].Kind != notice.Info {
		t.Errorf("notices = %v", n)
	}
}

func TestContext_SaveFailureKeepsLocal(t *testing.T) {
	b := &mockBackend{doc: protocol.ContextDocument{Content: "old"}}
	var rec notice.Recorder
	s := New(b, WithNotifier(&rec))
	s.FetchContext(context.Background())

	b.saveErr = errors.New("HTTP 503")
	if err := s.SaveContext(context.Background(), "new"); err == nil {
		t.Fatal("expected error")
	}
	if got, _ := s.Context(); got.Content != "old" {
		t.Errorf("local doc = %q", got.Content)
	}
	if rec.Failures() != 1 {
		t.Errorf("failures = %d", rec.Failures())
	}
}

func TestContext_FetchFailure(t *testing.T) {
	var rec notice.Recorder
	s := New(&mockBackend{fetchErr: errors.New("down")}, WithNotifier(&rec))
	if _, err := s.FetchContext(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if rec.Failures() != 1 {
		t.Errorf("failures = %d", rec.Failures())
	}
}
