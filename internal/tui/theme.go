package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Tab bar styles
	TabStyle       = lipgloss.NewStyle().Padding(0, 2)
	ActiveTabStyle = TabStyle.Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))
	InactiveTabStyle = TabStyle.
				Foreground(lipgloss.Color("#888888"))

	// Trend colors
	TrendUpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	TrendDownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	TrendFlatStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	// Regulatory impact colors
	ImpactPositiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	ImpactModerateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	ImpactNegativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))

	// General styles
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA"))
	SubtextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	BorderStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#555555"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	SpinnerColor = lipgloss.Color("#7D56F4")

	// Chat styles
	UserMsgStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4")).Bold(true)
	AssistantMsgStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA"))

	// Allocation bar colors
	BarFillStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
)
