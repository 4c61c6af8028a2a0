package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"portfolio-advisor/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Dashboard message types.
type snapshotMsg domain.MarketSnapshot
type snapshotErrMsg struct{ err error }
type dashTickMsg time.Time

// snapshotRefreshInterval is how often the dashboard re-fetches the market
// snapshot. The snapshot fans out to several upstream APIs, so it refreshes
// far less often than a plain price ticker would.
const snapshotRefreshInterval = 60 * time.Second

// DashboardModel is the Bubble Tea model for the market overview screen.
type DashboardModel struct {
	services Services
	snapshot domain.MarketSnapshot
	haveData bool
	loading  bool
	err      error
	width    int
	height   int
}

// NewDashboardModel creates a new dashboard model.
func NewDashboardModel(svc Services) DashboardModel {
	return DashboardModel{
		services: svc,
		loading:  true,
	}
}

// Init fires the initial snapshot fetch.
func (m DashboardModel) Init() tea.Cmd {
	return tea.Batch(
		m.fetchSnapshotCmd(),
		m.tickCmd(),
	)
}

// Update handles incoming messages.
func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snapshot = domain.MarketSnapshot(msg)
		m.haveData = true
		m.loading = false
		m.err = nil
		return m, nil

	case snapshotErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case dashTickMsg:
		return m, tea.Batch(
			m.fetchSnapshotCmd(),
			m.tickCmd(),
		)

	case tea.KeyMsg:
		if msg.String() == "R" {
			m.loading = true
			return m, m.fetchSnapshotCmd()
		}
	}

	return m, nil
}

// View renders the market overview.
func (m DashboardModel) View() string {
	if m.loading && !m.haveData {
		return SubtextStyle.Render("Loading market snapshot...")
	}
	if m.err != nil && !m.haveData {
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	var sections []string

	conditions := m.renderConditions()
	sectors := m.renderSectors()

	condWidth := m.width/3 - 2
	if condWidth < 30 {
		condWidth = 30
	}
	sectorWidth := m.width - condWidth - 4
	if sectorWidth < 40 {
		sectorWidth = 40
	}

	condBox := BorderStyle.Width(condWidth).Render(conditions)
	sectorBox := BorderStyle.Width(sectorWidth).Render(sectors)

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, condBox, sectorBox)
	sections = append(sections, topRow)

	eventsBox := BorderStyle.Width(m.width - 2).Render(m.renderRegulatoryEvents())
	sections = append(sections, eventsBox)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetSize updates the model dimensions.
func (m *DashboardModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// Snapshot returns the current snapshot (for testing).
func (m DashboardModel) Snapshot() domain.MarketSnapshot { return m.snapshot }

// HasData reports whether a snapshot has arrived (for testing).
func (m DashboardModel) HasData() bool { return m.haveData }

func (m DashboardModel) renderConditions() string {
	s := m.snapshot
	var lines []string
	lines = append(lines, HeaderStyle.Render("  Market Conditions"))

	state := s.MarketConditions.MarketState
	if state == "" {
		state = "unknown"
	}
	stateStyle := TrendFlatStyle
	switch state {
	case "bull":
		stateStyle = TrendUpStyle
	case "bear":
		stateStyle = TrendDownStyle
	}
	lines = append(lines, fmt.Sprintf("  State:      %s", stateStyle.Render(state)))
	lines = append(lines, fmt.Sprintf("  VIX:        %s", formatOptionalFloat(s.MarketConditions.VolatilityIndex, "%.2f")))
	lines = append(lines, fmt.Sprintf("  Sentiment:  %s", FormatSentiment(s.SentimentAnalysis.NewsSentimentScore)))
	lines = append(lines, "")
	lines = append(lines, HeaderStyle.Render("  Macro"))
	lines = append(lines, fmt.Sprintf("  GDP growth: %s", formatOptionalFloat(s.MacroIndicators.GDPGrowthRate, "%.2f%%")))
	lines = append(lines, fmt.Sprintf("  Inflation:  %.2f%%", s.MacroIndicators.InflationRate))
	lines = append(lines, fmt.Sprintf("  Unemploym.: %.2f%%", s.MacroIndicators.UnemploymentRate))
	lines = append(lines, fmt.Sprintf("  Interest:   %.2f%%", s.MacroIndicators.InterestRate))

	if len(s.CommodityPrices) > 0 || len(s.CurrencyExchangeRates) > 0 {
		lines = append(lines, "")
		lines = append(lines, HeaderStyle.Render("  Commodities / FX"))
		for _, name := range sortedKeys(s.CommodityPrices) {
			lines = append(lines, fmt.Sprintf("  %-10s %10.2f", name, s.CommodityPrices[name]))
		}
		for _, pair := range sortedKeys(s.CurrencyExchangeRates) {
			lines = append(lines, fmt.Sprintf("  %-10s %10.4f", pair, s.CurrencyExchangeRates[pair]))
		}
	}

	return strings.Join(lines, "\n")
}

func (m DashboardModel) renderSectors() string {
	var lines []string
	lines = append(lines, HeaderStyle.Render("  Sector Performance"))
	lines = append(lines, SubtextStyle.Render("  Sector                            Perf    Trend    Volatility"))
	lines = append(lines, SubtextStyle.Render("  "+strings.Repeat("─", 60)))

	sectors := m.snapshot.SectorData
	for _, name := range sortedSectorNames(sectors) {
		lines = append(lines, "  "+FormatSectorRow(name, sectors[name]))
	}

	if len(sectors) == 0 {
		lines = append(lines, SubtextStyle.Render("  No sector data available"))
	}

	return strings.Join(lines, "\n")
}

func (m DashboardModel) renderRegulatoryEvents() string {
	var lines []string
	lines = append(lines, HeaderStyle.Render("  Regulatory Headlines"))

	events := m.snapshot.RegulatoryEvents.Events
	count := len(events)
	if count > 10 {
		count = 10
	}
	for i := 0; i < count; i++ {
		lines = append(lines, "  "+FormatRegulatoryEvent(events[i]))
	}

	if len(events) == 0 {
		lines = append(lines, SubtextStyle.Render("  No regulatory headlines"))
	}

	return strings.Join(lines, "\n")
}

func (m DashboardModel) fetchSnapshotCmd() tea.Cmd {
	return func() tea.Msg {
		if m.services.Market == nil {
			return snapshotErrMsg{err: fmt.Errorf("market service not available")}
		}
		return snapshotMsg(m.services.Market.Snapshot(context.Background()))
	}
}

func (m DashboardModel) tickCmd() tea.Cmd {
	return tea.Tick(snapshotRefreshInterval, func(t time.Time) tea.Msg {
		return dashTickMsg(t)
	})
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedSectorNames(m map[string]domain.SectorStats) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
