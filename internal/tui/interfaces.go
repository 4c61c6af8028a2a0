package tui

import (
	"context"

	"portfolio-advisor/internal/domain"
)

// MarketQuerier provides market snapshot data to the TUI.
type MarketQuerier interface {
	Snapshot(ctx context.Context) domain.MarketSnapshot
}

// AdvisorQuerier provides LLM advisor access to the TUI.
type AdvisorQuerier interface {
	Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error)
}

// PortfolioQuerier reads the stored portfolio document for a session.
type PortfolioQuerier interface {
	Read(ctx context.Context, userID, sessionID string) (string, error)
}

// TUISessionID is the fixed session identifier for terminal sessions.
// A terminal user keeps one advisor conversation, like a Telegram chat does.
const TUISessionID = "tui"

// Services bundles all service dependencies injected into the TUI.
type Services struct {
	Market     MarketQuerier
	Advisor    AdvisorQuerier
	Portfolios PortfolioQuerier
	UserID     string
}
