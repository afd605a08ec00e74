// Package tui renders the interactive chat session: a scrolling transcript,
// an input area, and a status line. It owns presentation only; all
// conversation state lives in the orchestrator and arrives as ordered
// events.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/petasbytes/lucius/internal/chat"
	"github.com/petasbytes/lucius/internal/orchestrator"
)

// eventMsg wraps one orchestrator event for the update loop.
type eventMsg orchestrator.Event

// turnDoneMsg reports the outcome of a Submit that ran in the background.
type turnDoneMsg struct{ err error }

// Model is the bubbletea model for a chat session.
type Model struct {
	orch   *orchestrator.Orchestrator
	events <-chan orchestrator.Event

	providerName string
	modelName    string

	vp    viewport.Model
	ta    textarea.Model
	ready bool

	turns   []chat.Turn
	pending string
	warning string
	busy    bool
	errText string

	width  int
	height int
}

// New builds the session model. events must be the channel the
// orchestrator's sink feeds; the model drains it for the life of the
// program.
func New(orch *orchestrator.Orchestrator, events <-chan orchestrator.Event, providerName, modelName string) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask something, or describe a task..."
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	return Model{
		orch:         orch,
		events:       events,
		providerName: providerName,
		modelName:    modelName,
		ta:           ta,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForEvent(m.events))
}

func waitForEvent(ch <-chan orchestrator.Event) tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-ch)
	}
}

func (m Model) submitCmd(text string) tea.Cmd {
	orch := m.orch
	return func() tea.Msg {
		return turnDoneMsg{err: orch.Submit(context.Background(), text)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		m.vp.SetContent(m.transcript())
		m.vp.GotoBottom()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlC:
			if m.busy {
				m.orch.Cancel()
				return m, nil
			}
			return m, tea.Quit
		case tea.KeyCtrlL:
			if !m.busy {
				if err := m.orch.ClearHistory(); err == nil {
					m.turns = nil
					m.pending = ""
					m.warning = ""
					m.errText = ""
					m.vp.SetContent(m.transcript())
				}
			}
			return m, nil
		case tea.KeyEnter:
			text := strings.TrimSpace(m.ta.Value())
			if text == "" || m.busy {
				return m, nil
			}
			m.ta.Reset()
			m.busy = true
			m.warning = ""
			m.errText = ""
			return m, m.submitCmd(text)
		}

	case eventMsg:
		m.applyEvent(orchestrator.Event(msg))
		m.vp.SetContent(m.transcript())
		m.vp.GotoBottom()
		cmds = append(cmds, waitForEvent(m.events))

	case turnDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.errText = msg.err.Error()
		}
		// The event channel may drop under backpressure; the committed
		// history is authoritative, so resync the transcript from it.
		if m.orch != nil {
			m.turns = m.orch.History()
			m.pending = ""
			if m.ready {
				m.vp.SetContent(m.transcript())
				m.vp.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	cmds = append(cmds, cmd)
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// applyEvent folds one orchestrator event into the view state. Fragments
// accumulate into a pending block that the committed turn replaces, so the
// transcript never shows the same text twice.
func (m *Model) applyEvent(ev orchestrator.Event) {
	switch ev.Kind {
	case orchestrator.EventFragment:
		m.pending += ev.Fragment
	case orchestrator.EventTurnCommitted:
		m.turns = append(m.turns, ev.Turn)
		if ev.Turn.Role != chat.RoleUser {
			m.pending = ""
		}
	case orchestrator.EventWarning:
		m.warning = ev.Message
	case orchestrator.EventTurnEnded:
		m.pending = ""
	}
}

func (m *Model) layout() {
	if m.width == 0 {
		return
	}
	inputHeight := m.ta.Height() + 1
	vpHeight := m.height - inputHeight - 2
	if vpHeight < 1 {
		vpHeight = 1
	}
	if !m.ready {
		m.vp = viewport.New(m.width, vpHeight)
		m.ready = true
	} else {
		m.vp.Width = m.width
		m.vp.Height = vpHeight
	}
	m.ta.SetWidth(m.width - 2)
}

func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("lucius"))
	b.WriteString("\n")
	b.WriteString(m.vp.View())
	b.WriteString("\n")
	b.WriteString(m.ta.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}
