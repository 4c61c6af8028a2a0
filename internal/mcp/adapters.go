package mcp

import (
	"context"

	"portfolio-advisor/internal/domain"
)

// SnapshotReader exposes the aggregated market view.
type SnapshotReader interface {
	Snapshot(ctx context.Context) domain.MarketSnapshot
}

// AdvisorCaller exposes the conversational advisor.
type AdvisorCaller interface {
	Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error)
}

// PortfolioReader exposes stored portfolio documents.
type PortfolioReader interface {
	Exists(ctx context.Context, userID, sessionID string) (bool, error)
	Read(ctx context.Context, userID, sessionID string) (string, error)
}
