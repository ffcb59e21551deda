package console

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sweeney/busylight/internal/logic"
)

// historyLines is how much scrollback the TUI keeps.
const historyLines = 12

var (
	labelStyle = lipgloss.NewStyle().Width(14).Foreground(lipgloss.Color("8"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Swatch renders a state name in the color the light shows for it.
func Swatch(state logic.State, look logic.Look) string {
	c := look.Color
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)))
	return style.Render(fmt.Sprintf("● %s", state)) + dimStyle.Render(" ("+look.Speed.String()+")")
}

var keys = struct {
	Quit   key.Binding
	Submit key.Binding
}{
	Quit:   key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d", "esc"), key.WithHelp("esc", "quit")),
	Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "run")),
}

type model struct {
	ctx     context.Context
	session *Session
	input   textinput.Model
	history []string
	quit    bool
}

func newModel(ctx context.Context, s *Session) model {
	in := textinput.New()
	in.Prompt = Prompt
	in.Placeholder = "trigger or command (tab completes)"
	in.ShowSuggestions = true
	in.Focus()

	m := model{ctx: ctx, session: s, input: in}
	m.refreshSuggestions()
	return m
}

func (m *model) refreshSuggestions() {
	m.input.SetSuggestions(m.session.Complete(""))
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, keys.Quit):
			m.quit = true
			return m, tea.Quit
		case key.Matches(k, keys.Submit):
			line := m.input.Value()
			m.input.Reset()

			reply := m.session.Execute(m.ctx, line)
			if strings.TrimSpace(line) != "" {
				m.push(dimStyle.Render(Prompt) + line)
			}
			if reply.Output != "" {
				out := reply.Output
				if reply.Err != nil {
					out = errStyle.Render(out)
				}
				m.push(strings.Split(out, "\n")...)
			}
			m.refreshSuggestions()
			if reply.Quit {
				m.quit = true
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) push(lines ...string) {
	m.history = append(m.history, lines...)
	if over := len(m.history) - historyLines; over > 0 {
		m.history = m.history[over:]
	}
}

func (m model) View() string {
	var b strings.Builder
	for _, mach := range m.session.Controller().Machines() {
		look, _ := mach.Look(mach.State())
		fmt.Fprintf(&b, "%s%s\n", labelStyle.Render(string(mach.Channel())), Swatch(mach.State(), look))
	}
	b.WriteString("\n")
	for _, l := range m.history {
		b.WriteString(l + "\n")
	}
	if m.quit {
		return b.String()
	}
	b.WriteString(m.input.View() + "\n")
	b.WriteString(dimStyle.Render(footer()) + "\n")
	return b.String()
}

func footer() string {
	var parts []string
	for _, k := range []key.Binding{keys.Submit, keys.Quit} {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(append(parts, "tab complete"), " · ")
}

// RunTUI runs the interactive terminal UI until the operator quits.
func RunTUI(ctx context.Context, s *Session, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(newModel(ctx, s),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
