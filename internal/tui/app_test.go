package tui

import (
	"context"
	"testing"

	"portfolio-advisor/internal/domain"

	tea "github.com/charmbracelet/bubbletea"
)

// --- stub services ---

type stubMarketQuerier struct {
	snapshot domain.MarketSnapshot
}

func (s *stubMarketQuerier) Snapshot(ctx context.Context) domain.MarketSnapshot {
	return s.snapshot
}

type stubAdvisorQuerier struct {
	resp domain.ChatResponse
	err  error
	last domain.ChatRequest
}

func (s *stubAdvisorQuerier) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	s.last = req
	return s.resp, s.err
}

type stubPortfolioQuerier struct {
	document string
	err      error
	reads    int
}

func (s *stubPortfolioQuerier) Read(ctx context.Context, userID, sessionID string) (string, error) {
	s.reads++
	return s.document, s.err
}

func testServices() Services {
	return Services{
		Market:     &stubMarketQuerier{},
		Advisor:    &stubAdvisorQuerier{resp: domain.ChatResponse{IsJSON: 0, Response: "test reply"}},
		Portfolios: &stubPortfolioQuerier{document: `{"strategy":"hold"}`},
		UserID:     "testuser",
	}
}

func TestAppModelInitialTab(t *testing.T) {
	m := NewAppModel(testServices())
	if m.ActiveTab() != TabDashboard {
		t.Fatalf("expected TabDashboard, got %d", m.ActiveTab())
	}
}

func TestAppModelTabSwitchByNumber(t *testing.T) {
	m := NewAppModel(testServices())
	m.SetSize(120, 40)

	// Press '2' to switch to chat
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	app := updated.(AppModel)
	if app.ActiveTab() != TabChat {
		t.Fatalf("expected TabChat after pressing 2, got %d", app.ActiveTab())
	}

	// Press '3' to switch to portfolio
	updated, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'3'}})
	app = updated.(AppModel)
	if app.ActiveTab() != TabPortfolio {
		t.Fatalf("expected TabPortfolio after pressing 3, got %d", app.ActiveTab())
	}

	// Press '1' to switch back to the market view
	updated, _ = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'1'}})
	app = updated.(AppModel)
	if app.ActiveTab() != TabDashboard {
		t.Fatalf("expected TabDashboard after pressing 1, got %d", app.ActiveTab())
	}
}

func TestAppModelTabSwitchByTab(t *testing.T) {
	m := NewAppModel(testServices())
	m.SetSize(120, 40)

	// Press Tab to go to next
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	app := updated.(AppModel)
	if app.ActiveTab() != TabChat {
		t.Fatalf("expected TabChat after Tab, got %d", app.ActiveTab())
	}

	// Press Shift+Tab to go back
	updated, _ = app.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
	app = updated.(AppModel)
	if app.ActiveTab() != TabDashboard {
		t.Fatalf("expected TabDashboard after Shift+Tab, got %d", app.ActiveTab())
	}
}

func TestAppModelWindowResize(t *testing.T) {
	m := NewAppModel(testServices())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})
	app := updated.(AppModel)
	if app.width != 100 || app.height != 50 {
		t.Fatalf("expected 100x50, got %dx%d", app.width, app.height)
	}
}

func TestAppModelViewRendersWithoutPanic(t *testing.T) {
	m := NewAppModel(testServices())
	m.SetSize(120, 40)

	// Render all tabs without panicking
	for _, tab := range []Tab{TabDashboard, TabChat, TabPortfolio} {
		m.activeTab = tab
		view := m.View()
		if view == "" {
			t.Fatalf("expected non-empty view for tab %d", tab)
		}
	}
}

func TestAppModelStructuredReplyRefreshesPortfolio(t *testing.T) {
	svc := testServices()
	m := NewAppModel(svc)
	m.SetSize(120, 40)

	updated, cmd := m.Update(advisorReplyMsg(domain.ChatResponse{IsJSON: 1, Response: `{"strategy":"rebalance"}`}))
	if cmd == nil {
		t.Fatal("expected a portfolio re-fetch cmd after a structured reply")
	}
	app := updated.(AppModel)
	if app.chat.IsWaiting() {
		t.Fatal("expected chat to stop waiting after reply")
	}
}
