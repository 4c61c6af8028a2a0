package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"portfolio-advisor/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Portfolio message types.
type portfolioMsg string
type portfolioErrMsg struct{ err error }

// PortfolioModel is the Bubble Tea model for the stored portfolio screen.
type PortfolioModel struct {
	services Services
	document string
	haveDoc  bool
	loading  bool
	err      error
	width    int
	height   int
}

// NewPortfolioModel creates a new portfolio model.
func NewPortfolioModel(svc Services) PortfolioModel {
	return PortfolioModel{
		services: svc,
		loading:  true,
	}
}

// Init fires the initial document fetch.
func (m PortfolioModel) Init() tea.Cmd {
	return m.fetchPortfolioCmd()
}

// Update handles incoming messages.
func (m PortfolioModel) Update(msg tea.Msg) (PortfolioModel, tea.Cmd) {
	switch msg := msg.(type) {
	case portfolioMsg:
		m.document = string(msg)
		m.haveDoc = true
		m.loading = false
		m.err = nil
		return m, nil

	case portfolioErrMsg:
		m.err = msg.err
		m.loading = false
		return m, nil

	case advisorReplyMsg:
		// A structured advisor reply rewrote the stored document.
		if msg.IsJSON == 1 {
			return m, m.fetchPortfolioCmd()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "R" {
			m.loading = true
			return m, m.fetchPortfolioCmd()
		}
	}

	return m, nil
}

// View renders the stored portfolio.
func (m PortfolioModel) View() string {
	if m.loading && !m.haveDoc {
		return SubtextStyle.Render("Loading portfolio...")
	}
	if m.err != nil && !m.haveDoc {
		if errors.Is(m.err, domain.ErrSessionNotFound) {
			return lipgloss.JoinVertical(lipgloss.Left,
				"",
				HeaderStyle.Render("  Portfolio"),
				"",
				SubtextStyle.Render("  No portfolio yet. Ask the advisor on the Chat tab to build one."),
			)
		}
		return ErrorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}

	content := m.renderDocument()
	return BorderStyle.Width(m.width - 2).Render(content)
}

// SetSize updates the model dimensions.
func (m *PortfolioModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// HasDocument reports whether a document has loaded (for testing).
func (m PortfolioModel) HasDocument() bool { return m.haveDoc }

// Document returns the raw stored document (for testing).
func (m PortfolioModel) Document() string { return m.document }

func (m PortfolioModel) renderDocument() string {
	var doc domain.PortfolioDocument
	if err := json.Unmarshal([]byte(m.document), &doc); err != nil {
		// Show whatever the agent stored if it does not parse.
		return HeaderStyle.Render("  Portfolio") + "\n\n" + m.document
	}

	var lines []string
	lines = append(lines, HeaderStyle.Render("  Portfolio Summary"))
	lines = append(lines, fmt.Sprintf("  Total investment:  %.2f", doc.PortfolioSummary.TotalInvestment))
	lines = append(lines, fmt.Sprintf("  Expected return:   %.2f%%", doc.PortfolioSummary.ExpectedAnnualReturn))
	lines = append(lines, fmt.Sprintf("  Risk level:        %s", doc.PortfolioSummary.RiskLevel))
	lines = append(lines, fmt.Sprintf("  Max drawdown:      %.2f%%", doc.PortfolioSummary.MaxDrawdown))

	if len(doc.Allocations) > 0 {
		lines = append(lines, "")
		lines = append(lines, HeaderStyle.Render("  Allocations"))
		for _, a := range doc.Allocations {
			label := a.Asset
			if a.Sector != "" {
				label = fmt.Sprintf("%s (%s)", a.Asset, a.Sector)
			}
			lines = append(lines, "  "+RenderAllocationBar(label, a.AllocationPercentage, 24))
		}
	}

	if len(doc.SectorAllocation) > 0 {
		lines = append(lines, "")
		lines = append(lines, HeaderStyle.Render("  Sector Split"))
		sectors := make([]string, 0, len(doc.SectorAllocation))
		for s := range doc.SectorAllocation {
			sectors = append(sectors, s)
		}
		sort.Strings(sectors)
		for _, s := range sectors {
			lines = append(lines, "  "+RenderAllocationBar(s, doc.SectorAllocation[s], 24))
		}
	}

	if doc.Strategy != "" {
		lines = append(lines, "")
		lines = append(lines, HeaderStyle.Render("  Strategy"))
		for _, l := range strings.Split(doc.Strategy, "\n") {
			lines = append(lines, "  "+l)
		}
	}

	return strings.Join(lines, "\n")
}

func (m PortfolioModel) fetchPortfolioCmd() tea.Cmd {
	userID := m.services.UserID
	return func() tea.Msg {
		if m.services.Portfolios == nil {
			return portfolioErrMsg{err: fmt.Errorf("portfolio store not available")}
		}
		doc, err := m.services.Portfolios.Read(context.Background(), userID, TUISessionID)
		if err != nil {
			return portfolioErrMsg{err: err}
		}
		return portfolioMsg(doc)
	}
}
