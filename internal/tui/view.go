package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/petasbytes/lucius/internal/chat"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	userLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	assistantLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	toolLabel      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("178"))
	noteStyle      = lipgloss.NewStyle().Faint(true).Italic(true)
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	errStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle    = lipgloss.NewStyle().Faint(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// transcript renders all committed turns plus the in-flight pending text.
func (m Model) transcript() string {
	var b strings.Builder
	for _, t := range m.turns {
		b.WriteString(renderTurn(t))
		b.WriteString("\n\n")
	}
	if m.pending != "" {
		b.WriteString(assistantLabel.Render("assistant"))
		b.WriteString("\n")
		b.WriteString(pendingStyle.Render(m.pending))
		b.WriteString("\n")
	}
	return b.String()
}

func renderTurn(t chat.Turn) string {
	var label string
	switch t.Role {
	case chat.RoleUser:
		label = userLabel.Render("you")
	case chat.RoleToolResult:
		label = toolLabel.Render("tool")
	default:
		label = assistantLabel.Render("assistant")
	}
	out := label + "\n" + t.Text
	if t.Note != "" {
		out += "\n" + noteStyle.Render("["+t.Note+"]")
	}
	return out
}

func (m Model) statusLine() string {
	state := "ready"
	if m.busy {
		state = "thinking... (ctrl+c to stop)"
	}
	line := fmt.Sprintf("%s · %s · %s", m.providerName, m.modelName, state)
	out := statusStyle.Render(line)
	if m.warning != "" {
		out += "  " + warnStyle.Render("warning: "+m.warning)
	}
	if m.errText != "" {
		out += "  " + errStyle.Render("error: "+m.errText)
	}
	return out
}
