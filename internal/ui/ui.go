package ui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spx/internal/tasks"
)

var _ tasks.Confirmer = (*TeaConfirmer)(nil)

// ConfirmModel is a single yes/no question. Anything but an explicit yes is a no.
type ConfirmModel struct {
	prompt   string
	answered bool
	answer   bool
	aborted  bool
	help     help.Model
	keys     keyMap
}

// NewConfirmModel creates a [ConfirmModel] asking prompt.
func NewConfirmModel(prompt string) *ConfirmModel {
	return &ConfirmModel{prompt: prompt, help: help.New(), keys: newKeyMap()}
}

// Answer reports whether the user confirmed.
func (m *ConfirmModel) Answer() bool { return m.answered && m.answer }

// Aborted reports whether the user quit instead of answering.
func (m *ConfirmModel) Aborted() bool { return m.aborted }

func (m *ConfirmModel) Init() tea.Cmd {
	return nil
}

// Update handles key presses. Every recognized key ends the program.
func (m *ConfirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.yes):
			m.answered, m.answer = true, true
			return m, tea.Quit
		case key.Matches(msg, m.keys.no):
			m.answered, m.answer = true, false
			return m, tea.Quit
		case key.Matches(msg, m.keys.quit):
			m.aborted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ConfirmModel) View() string {
	switch {
	case m.aborted:
		return styles.err.Render("Aborted.") + "\n"
	case m.answered && m.answer:
		return fmt.Sprintf("%s %s\n", m.prompt, styles.warn.Render("yes"))
	case m.answered:
		return fmt.Sprintf("%s %s\n", m.prompt, styles.ok.Render("no"))
	}

	title := styles.title.Render(m.prompt)
	return fmt.Sprintf("%s\n%s\n", title, m.help.ShortHelpView(m.keys.ShortHelp()))
}

// TeaConfirmer asks each question with a short-lived bubbletea program.
type TeaConfirmer struct {
	in  io.Reader
	out io.Writer
}

// NewTeaConfirmer creates a [TeaConfirmer]. Nil streams fall back to the process terminal.
func NewTeaConfirmer(in io.Reader, out io.Writer) *TeaConfirmer {
	return &TeaConfirmer{in: in, out: out}
}

// Confirm runs the prompt until a key is pressed. Quitting answers no.
func (c *TeaConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.in != nil {
		opts = append(opts, tea.WithInput(c.in))
	}
	if c.out != nil {
		opts = append(opts, tea.WithOutput(c.out))
	}

	final, err := tea.NewProgram(NewConfirmModel(prompt), opts...).Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}

	m, ok := final.(*ConfirmModel)
	if !ok {
		return false, nil
	}
	return m.Answer(), nil
}
