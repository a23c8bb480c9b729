package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the operator abandons a prompt.
var ErrCancelled = errors.New("cancelled")

// Confirm asks the user a yes/no question on stderr and returns the answer.
// Questions may span multiple lines (e.g. a rendered unit file shown before
// an overwrite). In non-interactive mode defaultDecision is returned without
// blocking.
func Confirm(question string, defaultDecision bool) (bool, error) {
	if !IsInteractive() {
		return defaultDecision, nil
	}

	m := &confirmModel{question: question}
	p := tea.NewProgram(m,
		tea.WithOutput(os.Stderr),
	)

	if _, err := p.Run(); err != nil {
		return false, fmt.Errorf("confirm prompt: %w", err)
	}

	if m.cancelled {
		return false, ErrCancelled
	}
	return m.confirmed, nil
}

// Confirmer returns a confirmation callback for components, or nil when
// running non-interactively so components fall back to their configured
// default decision.
func Confirmer(defaultDecision bool) func(string) (bool, error) {
	if !IsInteractive() {
		return nil
	}
	return func(question string) (bool, error) {
		return Confirm(question, defaultDecision)
	}
}

// Prompt asks the user for text input on stderr and returns the entered
// value. Non-interactive mode returns ErrCancelled: there is no safe default
// for free-form input.
func Prompt(label, placeholder string) (string, error) {
	if !IsInteractive() {
		return "", ErrCancelled
	}

	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	ti.PromptStyle = AccentStyle
	ti.TextStyle = lipgloss.NewStyle()

	m := &promptModel{
		label:     label,
		textInput: ti,
	}
	p := tea.NewProgram(m,
		tea.WithOutput(os.Stderr),
	)

	if _, err := p.Run(); err != nil {
		return "", fmt.Errorf("text prompt: %w", err)
	}

	if m.cancelled {
		return "", ErrCancelled
	}
	return m.textInput.Value(), nil
}

// confirmModel is a bubbletea model for yes/no confirmation.
type confirmModel struct {
	question  string
	confirmed bool
	cancelled bool
	answered  bool
}

func (m *confirmModel) Init() tea.Cmd { return nil }

func (m *confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "y", "Y":
			m.confirmed = true
			m.answered = true
			return m, tea.Quit
		case "n", "N", "enter":
			m.confirmed = false
			m.answered = true
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *confirmModel) View() string {
	if m.answered || m.cancelled {
		return ""
	}

	var sb strings.Builder
	lines := strings.Split(m.question, "\n")
	last := lines[len(lines)-1]
	for _, l := range lines[:len(lines)-1] {
		sb.WriteString(l + "\n")
	}
	sb.WriteString(AccentStyle.Render("?") + " " + last + " " + MutedStyle.Render("[y/N]") + " ")
	return sb.String()
}

// promptModel is a bubbletea model for text input.
type promptModel struct {
	label     string
	textInput textinput.Model
	cancelled bool
	submitted bool
}

func (m *promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			m.submitted = true
			return m, tea.Quit
		case "ctrl+c", "esc":
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *promptModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(AccentStyle.Render("?") + " " + m.label + "\n")
	sb.WriteString(m.textInput.View() + "\n")
	return sb.String()
}
