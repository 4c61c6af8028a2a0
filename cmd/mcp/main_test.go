package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"portfolio-advisor/internal/config"
	"portfolio-advisor/internal/domain"
	mcpserver "portfolio-advisor/internal/mcp"
	"portfolio-advisor/internal/repository"
	"portfolio-advisor/internal/service"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainMCPStdio(t *testing.T) {
	restore := stubMCPDeps(t, "stdio")
	defer restore()

	called := false
	origRunStdio := runStdioFunc
	runStdioFunc = func(ctx context.Context, server *sdkmcp.Server) error {
		called = true
		return nil
	}
	defer func() { runStdioFunc = origRunStdio }()

	main()

	if !called {
		t.Fatal("expected stdio transport to run")
	}
}

func TestMainMCPHTTP(t *testing.T) {
	restore := stubMCPDeps(t, "http")
	defer restore()

	httpStarted := false
	started := make(chan struct{})
	origStartHTTP := startHTTPServerFunc
	origNotify := setupSignalNotify
	origWait := waitForSignalFunc
	origShutdown := shutdownHTTPServerFn

	startHTTPServerFunc = func(*http.Server) error {
		httpStarted = true
		close(started)
		return http.ErrServerClosed
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) { <-started }
	shutdownHTTPServerFn = func(*http.Server, context.Context) error { return nil }

	defer func() {
		startHTTPServerFunc = origStartHTTP
		setupSignalNotify = origNotify
		waitForSignalFunc = origWait
		shutdownHTTPServerFn = origShutdown
	}()

	main()

	if !httpStarted {
		t.Fatal("expected http transport to start")
	}
}

func TestMainMCPHTTPRequiresToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		MCPHTTPEnabled: true,
		MCPHTTPBind:    "127.0.0.1",
		MCPHTTPPort:    8090,
	}
	srv := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test"}, nil)

	err := runHTTPMode(ctx, cancel, cfg, srv)
	if err == nil {
		t.Fatal("expected missing token error")
	}
	if !strings.Contains(err.Error(), "MCP_AUTH_TOKEN is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func stubMCPDeps(t *testing.T, transport string) func() {
	t.Helper()

	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewSessionRepo := newSessionRepoFunc
	origNewYahoo := newYahooProviderFunc
	origNewNewsAPI := newNewsAPIProviderFunc
	origNewGNews := newGNewsProviderFunc
	origNewRunner := newOpenAIRunnerFunc
	origNewMarket := newMarketServiceFunc
	origNewAdvisor := newAdvisorServiceFunc
	origNewMCPServer := newMCPServerFunc
	origNewMCPHandler := newMCPHandlerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			SessionDir:            t.TempDir(),
			MCPTransport:          transport,
			MCPHTTPEnabled:        true,
			MCPHTTPBind:           "127.0.0.1",
			MCPHTTPPort:           0,
			MCPAuthToken:          "test-token",
			MCPRequestTimeoutSecs: 1,
			MCPRateLimitPerMin:    60,
		}
	}
	initPostgresFunc = func(context.Context, string) {}
	initRedisFunc = func(context.Context, string) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newSessionRepoFunc = func(root string, tracer trace.Tracer) *repository.SessionRepository {
		return repository.NewSessionRepository(root, tracer)
	}
	newYahooProviderFunc = func(trace.Tracer) service.CloseProvider { return stubMCPCloseProvider{} }
	newNewsAPIProviderFunc = func(trace.Tracer, string) service.ArticleSearcher { return stubMCPArticleSearcher{} }
	newGNewsProviderFunc = func(trace.Tracer, string) service.HeadlineSearcher { return stubMCPHeadlineSearcher{} }
	newOpenAIRunnerFunc = func(trace.Tracer, string, int) service.AgentRunner { return stubMCPAgentRunner{} }
	newMarketServiceFunc = func(
		tracer trace.Tracer,
		closes service.CloseProvider,
		news service.ArticleSearcher,
		headlines service.HeadlineSearcher,
		cache *redis.Client,
	) *service.MarketService {
		return service.NewMarketService(tracer, closes, news, headlines, cache)
	}
	newMCPServerFunc = func(
		tracer trace.Tracer,
		market mcpserver.SnapshotReader,
		advisor mcpserver.AdvisorCaller,
		portfolios mcpserver.PortfolioReader,
		cfg mcpserver.ServerConfig,
	) *sdkmcp.Server {
		return sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test-mcp"}, nil)
	}
	newMCPHandlerFunc = func(server *sdkmcp.Server, cfg mcpserver.HTTPHandlerConfig) http.Handler {
		return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newSessionRepoFunc = origNewSessionRepo
		newYahooProviderFunc = origNewYahoo
		newNewsAPIProviderFunc = origNewNewsAPI
		newGNewsProviderFunc = origNewGNews
		newOpenAIRunnerFunc = origNewRunner
		newMarketServiceFunc = origNewMarket
		newAdvisorServiceFunc = origNewAdvisor
		newMCPServerFunc = origNewMCPServer
		newMCPHandlerFunc = origNewMCPHandler
	}
}

type stubMCPCloseProvider struct{}

func (stubMCPCloseProvider) DailyCloses(ctx context.Context, symbol, rng string) ([]float64, error) {
	return []float64{100, 105}, nil
}

func (stubMCPCloseProvider) ClosesBetween(ctx context.Context, symbol string, start, end time.Time) ([]float64, error) {
	return []float64{100, 105}, nil
}

type stubMCPArticleSearcher struct{}

func (stubMCPArticleSearcher) Everything(ctx context.Context, query string, pageSize int) ([]domain.NewsArticle, error) {
	return nil, nil
}

type stubMCPHeadlineSearcher struct{}

func (stubMCPHeadlineSearcher) Search(ctx context.Context, query string, max int) ([]domain.NewsArticle, error) {
	return nil, nil
}

type stubMCPAgentRunner struct{}

func (stubMCPAgentRunner) Run(ctx context.Context, apiKey, userID, sessionID, system, prompt string) (string, error) {
	return "stub reply", nil
}
