package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/generate"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestGenerateModelSteps(t *testing.T) {
	m := NewGenerateModel(PlainStyles())
	if !strings.Contains(m.View(), "Refining requirements") {
		t.Fatalf("initial view: %s", m.View())
	}

	next, _ := m.Update(StateMsg{Phase: generate.Processing, Step: 3})
	view := next.View()
	if !strings.Contains(view, "✓ Estimating & security review") {
		t.Errorf("expected step 2 done:\n%s", view)
	}
	if strings.Contains(view, "✓ Writing test plan") {
		t.Errorf("step 3 should still be active:\n%s", view)
	}
}

func TestGenerateModelSuccessQuits(t *testing.T) {
	m := NewGenerateModel(PlainStyles())
	res := &protocol.GenerateResult{Ticket: protocol.Ticket{Summary: "Add dark mode", Priority: protocol.PriorityLow}}

	next, cmd := m.Update(DoneMsg{Result: res})
	if !isQuit(cmd) {
		t.Fatal("expected quit after success")
	}
	view := next.View()
	if !strings.Contains(view, "✓ Ticket ready") || !strings.Contains(view, "Add dark mode") {
		t.Errorf("view:\n%s", view)
	}
	if next.(GenerateModel).Result() != res {
		t.Error("result not kept")
	}
}

func TestGenerateModelFailureWaitsForDismiss(t *testing.T) {
	m := NewGenerateModel(PlainStyles())

	next, cmd := m.Update(DoneMsg{Err: errors.New("boom")})
	if cmd != nil {
		t.Fatal("failure should not quit before dismissal")
	}
	view := next.View()
	if !strings.Contains(view, generate.FailureMessage) || !strings.Contains(view, "boom") {
		t.Errorf("view:\n%s", view)
	}
	if strings.Contains(view, "✓") {
		t.Errorf("failure should reset the indicator:\n%s", view)
	}

	_, cmd = next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !isQuit(cmd) {
		t.Error("enter should dismiss the failure")
	}
}

func TestGenerateModelIgnoresKeysWhileProcessing(t *testing.T) {
	m := NewGenerateModel(PlainStyles())
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("enter should do nothing while processing")
	}
}

func TestGenerateModelInterrupt(t *testing.T) {
	m := NewGenerateModel(PlainStyles())
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !isQuit(cmd) {
		t.Fatal("ctrl+c should quit")
	}
	if !next.(GenerateModel).Interrupted() {
		t.Error("expected Interrupted")
	}
}
