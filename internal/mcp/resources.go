package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"portfolio-advisor/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, market SnapshotReader, portfolios PortfolioReader) {
	server.AddResource(&mcp.Resource{
		URI:         "market://sectors",
		Name:        "sectors",
		Description: "Tracked sectors and their constituent tickers",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		_ = ctx
		return jsonResource(req.Params.URI, domain.SectorTickers)
	})

	server.AddResource(&mcp.Resource{
		URI:         "market://commodities",
		Name:        "commodities",
		Description: "Tracked commodities and their quote symbols",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		_ = ctx
		return jsonResource(req.Params.URI, domain.CommoditySymbols)
	})

	server.AddResource(&mcp.Resource{
		URI:         "market://currency-pairs",
		Name:        "currency-pairs",
		Description: "Tracked currency pairs and their quote symbols",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		_ = ctx
		return jsonResource(req.Params.URI, domain.CurrencyPairs)
	})

	server.AddResource(&mcp.Resource{
		URI:         "market://snapshot",
		Name:        "market-snapshot",
		Description: "Aggregated point-in-time market snapshot",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if market == nil {
			return nil, fmt.Errorf("market service unavailable")
		}
		return jsonResource(req.Params.URI, marketSnapshotOutput{Snapshot: market.Snapshot(ctx)})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "portfolio://{user}/{session}",
		Name:        "portfolio-by-session",
		Description: "Stored portfolio document for a user session",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if portfolios == nil {
			return nil, fmt.Errorf("portfolio store unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		if parsed.Scheme != "portfolio" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		userID, err := normalizeID("user", parsed.Host)
		if err != nil {
			return nil, err
		}
		sessionID, err := normalizeID("session", strings.Trim(strings.TrimSpace(parsed.Path), "/"))
		if err != nil {
			return nil, err
		}

		document, err := portfolios.Read(ctx, userID, sessionID)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, portfolioGetOutput{Portfolio: json.RawMessage(document)})
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
