package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Tab identifies one of the three screens.
type Tab int

const (
	TabDashboard Tab = iota
	TabChat
	TabPortfolio
)

var tabNames = []string{"1:Market", "2:Chat", "3:Portfolio"}

// AppModel owns tab navigation and fans messages out to the screens. Data
// messages go to the screen that consumes them regardless of which tab is
// visible; keyboard input goes to the active tab only.
type AppModel struct {
	services  Services
	activeTab Tab
	dashboard DashboardModel
	chat      ChatModel
	portfolio PortfolioModel
	width     int
	height    int
	quitting  bool
}

func NewAppModel(svc Services) AppModel {
	return AppModel{
		services:  svc,
		dashboard: NewDashboardModel(svc),
		chat:      NewChatModel(svc),
		portfolio: NewPortfolioModel(svc),
	}
}

func (m AppModel) Init() tea.Cmd {
	return tea.Batch(m.dashboard.Init(), m.chat.Init(), m.portfolio.Init())
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil
	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
	}
	return m.route(msg)
}

// handleGlobalKey processes quit and tab-switching keys. While the chat input
// is focused, only keys that cannot be part of typed text count as global.
func (m AppModel) handleGlobalKey(msg tea.KeyMsg) (AppModel, tea.Cmd, bool) {
	s := msg.String()
	typing := m.activeTab == TabChat &&
		msg.Type != tea.KeyTab && msg.Type != tea.KeyShiftTab &&
		s != "ctrl+c" && !(s >= "1" && s <= "3")
	if typing {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, DefaultKeyMap.Quit):
		if m.activeTab == TabChat && s == "q" {
			return m, nil, false
		}
		m.quitting = true
		return m, tea.Quit, true
	case key.Matches(msg, DefaultKeyMap.Tab):
		m.switchTab(Tab((int(m.activeTab) + 1) % len(tabNames)))
		return m, nil, true
	case key.Matches(msg, DefaultKeyMap.ShiftTab):
		m.switchTab(Tab((int(m.activeTab) + len(tabNames) - 1) % len(tabNames)))
		return m, nil, true
	case s >= "1" && s <= "3":
		m.switchTab(Tab(int(s[0] - '1')))
		return m, nil, true
	}
	return m, nil, false
}

// route delivers a message to the screens that consume it.
func (m AppModel) route(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	add := func(cmd tea.Cmd) { cmds = append(cmds, cmd) }

	switch msg.(type) {
	case snapshotMsg, snapshotErrMsg, dashTickMsg:
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(msg)
		add(cmd)

	case advisorReplyMsg, advisorErrMsg:
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		add(cmd)
		// A structured advisor reply means the stored portfolio changed.
		m.portfolio, cmd = m.portfolio.Update(msg)
		add(cmd)

	case portfolioMsg, portfolioErrMsg:
		var cmd tea.Cmd
		m.portfolio, cmd = m.portfolio.Update(msg)
		add(cmd)

	default:
		var cmd tea.Cmd
		switch m.activeTab {
		case TabDashboard:
			m.dashboard, cmd = m.dashboard.Update(msg)
		case TabChat:
			m.chat, cmd = m.chat.Update(msg)
		case TabPortfolio:
			m.portfolio, cmd = m.portfolio.Update(msg)
		}
		add(cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m AppModel) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	var screen string
	switch m.activeTab {
	case TabDashboard:
		screen = m.dashboard.View()
	case TabChat:
		screen = m.chat.View()
	case TabPortfolio:
		screen = m.portfolio.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.tabBar(), screen)
}

func (m *AppModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	content := h - 2 // tab bar
	m.dashboard.SetSize(w, content)
	m.chat.SetSize(w, content)
	m.portfolio.SetSize(w, content)
}

// ActiveTab returns the currently active tab (for testing).
func (m AppModel) ActiveTab() Tab { return m.activeTab }

func (m *AppModel) switchTab(tab Tab) {
	switch {
	case tab == TabChat && m.activeTab != TabChat:
		m.chat.Focus()
	case tab != TabChat && m.activeTab == TabChat:
		m.chat.Blur()
	}
	m.activeTab = tab
}

func (m AppModel) tabBar() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		style := InactiveTabStyle
		if Tab(i) == m.activeTab {
			style = ActiveTabStyle
		}
		tabs[i] = style.Render(name)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
