package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"portfolio-advisor/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *mcp.Server, market SnapshotReader, advisor AdvisorCaller, portfolios PortfolioReader) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "market_snapshot_get",
		Description: "Get the aggregated market snapshot: market state, volatility, sector stats, macro indicators, commodities, FX, news sentiment, and regulatory events",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ marketSnapshotInput) (*mcp.CallToolResult, marketSnapshotOutput, error) {
		if market == nil {
			return nil, marketSnapshotOutput{}, fmt.Errorf("market service unavailable")
		}
		return nil, marketSnapshotOutput{Snapshot: market.Snapshot(ctx)}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sector_tickers_list",
		Description: "List the tracked sectors and their constituent tickers",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ sectorTickersInput) (*mcp.CallToolResult, sectorTickersOutput, error) {
		_ = ctx
		return nil, sectorTickersOutput{Sectors: domain.SectorTickers}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "portfolio_get",
		Description: "Get the current stored portfolio document for a user session",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in portfolioGetInput) (*mcp.CallToolResult, portfolioGetOutput, error) {
		if portfolios == nil {
			return nil, portfolioGetOutput{}, fmt.Errorf("portfolio store unavailable")
		}
		userID, err := normalizeID("user_id", in.UserID)
		if err != nil {
			return nil, portfolioGetOutput{}, err
		}
		sessionID, err := normalizeID("session_id", in.SessionID)
		if err != nil {
			return nil, portfolioGetOutput{}, err
		}
		document, err := portfolios.Read(ctx, userID, sessionID)
		if err != nil {
			return nil, portfolioGetOutput{}, err
		}
		return nil, portfolioGetOutput{Portfolio: json.RawMessage(document)}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "advisor_chat",
		Description: "Send one turn to the portfolio advisor; pass profile on a session's first turn, message afterwards",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in advisorChatInput) (*mcp.CallToolResult, advisorChatOutput, error) {
		if advisor == nil {
			return nil, advisorChatOutput{}, fmt.Errorf("advisor service unavailable")
		}
		userID, err := normalizeID("user_id", in.UserID)
		if err != nil {
			return nil, advisorChatOutput{}, err
		}
		sessionID, err := normalizeID("session_id", in.SessionID)
		if err != nil {
			return nil, advisorChatOutput{}, err
		}

		resp, err := advisor.Chat(ctx, domain.ChatRequest{
			SessionID: sessionID,
			UserID:    userID,
			Data: domain.ChatData{
				Message:               in.Message,
				InitialPreferenceData: in.Profile,
			},
		})
		if err != nil {
			return nil, advisorChatOutput{}, err
		}
		return nil, advisorChatOutput{IsJSON: resp.IsJSON, Response: resp.Response}, nil
	})
}
