package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/generate"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

// StateMsg carries an orchestrator snapshot into the program.
type StateMsg generate.State

// DoneMsg reports that Submit returned.
type DoneMsg struct {
	Result *protocol.GenerateResult
	Err    error
}

// GenerateModel shows the step indicator for one generation attempt, then
// the ticket on success or a failure box that stays until dismissed.
type GenerateModel struct {
	styles  Styles
	spinner spinner.Model

	state       generate.State
	result      *protocol.GenerateResult
	err         error
	done        bool
	interrupted bool
}

// NewGenerateModel creates a model in the submitted state.
func NewGenerateModel(styles Styles) GenerateModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = styles.Active
	return GenerateModel{
		styles:  styles,
		spinner: s,
		state:   generate.State{Phase: generate.Processing, Step: generate.StepSubmitted},
	}
}

func (m GenerateModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m GenerateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StateMsg:
		m.state = generate.State(msg)
		return m, nil

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		if msg.Err == nil {
			m.state = generate.State{Phase: generate.Succeeded, Step: generate.StepDone, Result: msg.Result}
			return m, tea.Quit
		}
		m.state = generate.State{Phase: generate.Failed, Step: generate.StepIdle, Err: msg.Err}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.interrupted = true
			return m, tea.Quit
		case "enter", "esc", "q", " ":
			if m.done {
				return m, tea.Quit
			}
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m GenerateModel) View() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Generating ticket"))
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Steps(m.state.Step, m.state.Phase == generate.Processing, m.spinner.View()))
	sb.WriteString("\n")

	switch {
	case m.err != nil:
		sb.WriteString("\n")
		sb.WriteString(m.styles.FailureBox(m.err))
		sb.WriteString("\n")
	case m.result != nil:
		sb.WriteString("\n")
		sb.WriteString(m.styles.Ticket(&m.result.Ticket))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Result is the generated ticket, or nil.
func (m GenerateModel) Result() *protocol.GenerateResult { return m.result }

// Err is the error Submit returned, if any.
func (m GenerateModel) Err() error { return m.err }

// Interrupted reports whether the user quit with ctrl+c.
func (m GenerateModel) Interrupted() bool { return m.interrupted }
