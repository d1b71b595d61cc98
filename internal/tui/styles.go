// Package tui renders tickets and traces for the terminal and runs the
// interactive generation view.
package tui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used by every renderer.
type Styles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Faint   lipgloss.Style
	Done    lipgloss.Style
	Active  lipgloss.Style
	Warn    lipgloss.Style
	Tag     lipgloss.Style
	Failure lipgloss.Style
	color   bool
}

// NewStyles builds styles bound to r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		Label:  r.NewStyle().Bold(true),
		Faint:  r.NewStyle().Faint(true),
		Done:   r.NewStyle().Foreground(lipgloss.Color("42")),
		Active: r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		Warn:   r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Tag:    r.NewStyle().Foreground(lipgloss.Color("111")),
		Failure: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 1),
		color: r.ColorProfile() != termenv.Ascii,
	}
}

// TerminalStyles returns colored styles for output written to w.
func TerminalStyles(w io.Writer) Styles {
	return NewStyles(lipgloss.NewRenderer(w))
}

// PlainStyles returns styles that emit no escape sequences.
func PlainStyles() Styles {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(termenv.Ascii)
	return NewStyles(r)
}
