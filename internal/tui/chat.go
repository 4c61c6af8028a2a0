package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio-advisor/internal/domain"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	roleUser      = "user"
	roleAssistant = "assistant"

	structuredReplyNotice = "Portfolio updated. See the Portfolio tab for the full breakdown."
)

// advisorReplyMsg carries a completed advisor turn back into the program.
type advisorReplyMsg domain.ChatResponse

type advisorErrMsg struct{ err error }

type chatMessage struct {
	Role    string
	Content string
	Time    time.Time
}

// ChatModel drives the advisor conversation screen. Turns are appended to an
// in-memory transcript; a structured reply is annotated so the user knows the
// Portfolio tab has fresh content.
type ChatModel struct {
	services Services
	messages []chatMessage
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	waiting  bool
	err      error
	width    int
	height   int
	ready    bool
}

func NewChatModel(svc Services) ChatModel {
	in := textinput.New()
	in.Placeholder = "Ask about your portfolio..."
	in.CharLimit = 500
	in.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(SpinnerColor)

	return ChatModel{services: svc, input: in, spinner: sp}
}

func (m ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles advisor replies, the enter key and spinner ticks. All other
// messages flow through to the input and the viewport.
func (m ChatModel) Update(msg tea.Msg) (ChatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case advisorReplyMsg:
		m.appendTurn(roleAssistant, m.formatReply(domain.ChatResponse(msg)))
		m.waiting = false
		m.err = nil
		return m, nil

	case advisorErrMsg:
		m.waiting = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter && !m.waiting {
			if question := strings.TrimSpace(m.input.Value()); question != "" {
				return m.submit(question)
			}
		}

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m.passthrough(msg, cmd)
		}
	}

	return m.passthrough(msg, nil)
}

// submit records the user's turn and kicks off the advisor call.
func (m ChatModel) submit(question string) (ChatModel, tea.Cmd) {
	m.appendTurn(roleUser, question)
	m.input.SetValue("")
	m.waiting = true
	return m, tea.Batch(m.askAdvisorCmd(question), m.spinner.Tick)
}

func (m ChatModel) passthrough(msg tea.Msg, extra tea.Cmd) (ChatModel, tea.Cmd) {
	cmds := []tea.Cmd{extra}
	if !m.waiting {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *ChatModel) appendTurn(role, content string) {
	m.messages = append(m.messages, chatMessage{Role: role, Content: content, Time: time.Now()})
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

func (m ChatModel) formatReply(resp domain.ChatResponse) string {
	if resp.IsJSON == 1 {
		return structuredReplyNotice + "\n\n" + resp.Response
	}
	return resp.Response
}

func (m ChatModel) View() string {
	title := HeaderStyle.Render("  Chat with Portfolio Advisor")
	if m.services.Advisor == nil {
		return lipgloss.JoinVertical(lipgloss.Left,
			"",
			title,
			"",
			SubtextStyle.Render("  Advisor not available. Set OPENAI_API_KEYS to enable."),
		)
	}

	if !m.ready {
		m.ensureViewport()
	}

	rule := SubtextStyle.Render(strings.Repeat("─", max(m.width-2, 1)))
	parts := []string{title, rule, m.viewport.View(), rule}

	switch {
	case m.waiting:
		parts = append(parts, fmt.Sprintf("  %s Thinking...", m.spinner.View()))
	case m.err != nil:
		parts = append(parts, ErrorStyle.Render(fmt.Sprintf("  Error: %v", m.err)), "  "+m.input.View())
	default:
		parts = append(parts, "  "+m.input.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// SetSize records the new dimensions; the viewport is rebuilt on the next View.
func (m *ChatModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.input.Width = w - 6
	m.ready = false
}

func (m *ChatModel) Focus() { m.input.Focus() }

func (m *ChatModel) Blur() { m.input.Blur() }

func (m ChatModel) IsWaiting() bool { return m.waiting }

func (m ChatModel) MessageCount() int { return len(m.messages) }

func (m *ChatModel) ensureViewport() {
	// Header, two rules and the input bar take up the rest of the height.
	m.viewport = viewport.New(max(m.width-2, 10), max(m.height-6, 3))
	m.viewport.SetContent(m.transcript())
	m.ready = true
}

func (m ChatModel) transcript() string {
	if len(m.messages) == 0 {
		return SubtextStyle.Render("  Start a conversation by typing a question below.")
	}

	var b strings.Builder
	for _, msg := range m.messages {
		stamp := SubtextStyle.Render(msg.Time.Format("15:04"))
		if msg.Role == roleUser {
			fmt.Fprintf(&b, "  %s  %s %s\n\n", stamp, UserMsgStyle.Render("You:"), msg.Content)
			continue
		}
		fmt.Fprintf(&b, "  %s  %s\n", stamp, AssistantMsgStyle.Render("Advisor:"))
		for _, line := range strings.Split(msg.Content, "\n") {
			b.WriteString("         " + line + "\n")
		}
		b.WriteString("\n")
	}

	if m.waiting {
		fmt.Fprintf(&b, "  %s  %s\n",
			SubtextStyle.Render(time.Now().Format("15:04")),
			SubtextStyle.Render("Advisor is thinking..."))
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m ChatModel) askAdvisorCmd(question string) tea.Cmd {
	advisor := m.services.Advisor
	userID := m.services.UserID
	return func() tea.Msg {
		if advisor == nil {
			return advisorErrMsg{err: errors.New("advisor not available")}
		}
		resp, err := advisor.Chat(context.Background(), domain.ChatRequest{
			UserID:    userID,
			SessionID: TUISessionID,
			Data:      domain.ChatData{Message: question},
		})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidRequest) {
				return advisorErrMsg{err: errors.New("no portfolio session yet, create one via POST /agent/chat with your profile")}
			}
			return advisorErrMsg{err: err}
		}
		return advisorReplyMsg(resp)
	}
}
