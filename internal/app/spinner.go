package app

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FDBFF"))

type spinnerDoneMsg struct{}

type spinnerModel struct {
	spinner  spinner.Model
	message  string
	quitting bool
}

func newSpinnerModel(message string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return spinnerModel{spinner: s, message: message}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinnerDoneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		// The download keeps running; the spinner just stops drawing.
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.quitting {
		return ""
	}
	return m.spinner.View() + " " + m.message
}

// WithSpinner runs fn while drawing a spinner, for interactive terminals.
// If the spinner program cannot start, fn still runs without one.
func WithSpinner(message string, fn func() Invocation) Invocation {
	prog := tea.NewProgram(newSpinnerModel(message))

	done := make(chan Invocation, 1)
	go func() {
		inv := fn()
		done <- inv
		prog.Send(spinnerDoneMsg{})
	}()

	if _, err := prog.Run(); err != nil {
		return <-done
	}
	return <-done
}
