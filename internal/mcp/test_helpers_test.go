package mcp

import (
	"context"
	"encoding/json"
	"time"

	"portfolio-advisor/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubMarketService struct {
	snapshot domain.MarketSnapshot
}

func (s *stubMarketService) Snapshot(ctx context.Context) domain.MarketSnapshot {
	_ = ctx
	return s.snapshot
}

type stubAdvisorService struct {
	resp domain.ChatResponse
	err  error

	lastRequest domain.ChatRequest
}

func (s *stubAdvisorService) Chat(_ context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	s.lastRequest = req
	if s.err != nil {
		return domain.ChatResponse{}, s.err
	}
	return s.resp, nil
}

type stubPortfolioStore struct {
	docs map[string]string
}

func (s *stubPortfolioStore) Exists(_ context.Context, userID, sessionID string) (bool, error) {
	_, ok := s.docs[userID+"/"+sessionID]
	return ok, nil
}

func (s *stubPortfolioStore) Read(_ context.Context, userID, sessionID string) (string, error) {
	doc, ok := s.docs[userID+"/"+sessionID]
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return doc, nil
}

func testServer() (*sdkmcp.Server, *stubMarketService, *stubAdvisorService, *stubPortfolioStore) {
	vix := 18.4
	market := &stubMarketService{snapshot: domain.MarketSnapshot{
		MarketConditions: domain.MarketConditions{MarketState: "bull", VolatilityIndex: &vix},
		SectorData: map[string]domain.SectorStats{
			"Information Technology": {Performance: 7.5, Trend: "upward", Volatility: 1.2},
		},
	}}
	advisor := &stubAdvisorService{resp: domain.ChatResponse{
		IsJSON:   1,
		Response: `{"strategy": "balanced"}`,
	}}
	portfolios := &stubPortfolioStore{docs: map[string]string{
		"u1/s1": `{"strategy": "balanced", "allocations": []}`,
	}}

	srv := NewServer(nil, market, advisor, portfolios, ServerConfig{RequestTimeout: time.Second})
	return srv, market, advisor, portfolios
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}
