package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"portfolio-advisor/internal/bot"
	"portfolio-advisor/internal/cache"
	"portfolio-advisor/internal/config"
	"portfolio-advisor/internal/db"
	"portfolio-advisor/internal/handler"
	"portfolio-advisor/internal/job"
	"portfolio-advisor/internal/provider"
	"portfolio-advisor/internal/repository"
	"portfolio-advisor/internal/service"
	"portfolio-advisor/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "portfolio-advisor/docs"
)

// digestInterval is how often subscribed Telegram chats receive a market
// snapshot digest.
const digestInterval = time.Hour

var (
	loadEnvFunc             = godotenv.Load
	loadConfigFunc          = config.Load
	initPostgresFunc        = db.InitPostgres
	initRedisFunc           = cache.InitRedis
	initTracerFunc          = tracing.InitTracer
	newSessionRepoFunc      = repository.NewSessionRepository
	newConversationRepoFunc = repository.NewConversationRepository
	newYahooProviderFunc    = func(tracer trace.Tracer) service.CloseProvider {
		return provider.NewYahooProvider(tracer)
	}
	newNewsAPIProviderFunc = func(tracer trace.Tracer, apiKey string) service.ArticleSearcher {
		return provider.NewNewsAPIProvider(tracer, apiKey)
	}
	newGNewsProviderFunc = func(tracer trace.Tracer, apiKey string) service.HeadlineSearcher {
		return provider.NewGNewsProvider(tracer, apiKey)
	}
	newOpenAIRunnerFunc = func(tracer trace.Tracer, model string, maxHistory int) service.AgentRunner {
		return provider.NewOpenAIRunner(tracer, model, maxHistory)
	}
	newMarketServiceFunc   = service.NewMarketService
	newAdvisorServiceFunc  = service.NewAdvisorService
	startTelegramBotFunc   = bot.StartTelegramBot
	newSnapshotDigestFunc  = job.NewSnapshotDigest
	startDigestJobFunc     = func(d *job.SnapshotDigest, ctx context.Context) { go d.Start(ctx) }
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = ossignal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Portfolio Advisor API
// @version         1.0
// @description     Market data aggregation and LLM portfolio advisory service with OpenTelemetry tracing.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init Postgres and Redis
	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	// Init tracing
	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	// Session documents live on disk; the conversation audit trail is
	// optional and only kept when Postgres is configured.
	sessionRepo := newSessionRepoFunc(cfg.SessionDir, tracer)
	var auditor service.ConversationAuditor
	if db.Pool != nil {
		convRepo := newConversationRepoFunc(db.Pool, tracer)
		if err := convRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run conversation migrations: %v", err)
		}
		auditor = convRepo
	}

	// Create providers and services
	yahoo := newYahooProviderFunc(tracer)
	newsAPI := newNewsAPIProviderFunc(tracer, cfg.NewsAPIKey)
	gnews := newGNewsProviderFunc(tracer, cfg.GNewsAPIKey)
	runner := newOpenAIRunnerFunc(tracer, cfg.OpenAIModel, cfg.AdvisorMaxHistory)

	marketService := newMarketServiceFunc(tracer, yahoo, newsAPI, gnews, cache.Client)
	advisorService := newAdvisorServiceFunc(tracer, runner, sessionRepo, marketService, gnews, auditor, cfg.OpenAIAPIKeys)

	// Start Telegram bot and the digest job
	digests := startTelegramBotFunc(cfg.TelegramBotToken, advisorService, marketService, sessionRepo)
	if digests != nil {
		digestJob := newSnapshotDigestFunc(tracer, marketService, digests, digestInterval)
		startDigestJobFunc(digestJob, ctx)
	}

	// Create handlers and routes
	h := newHandlerFunc(tracer, advisorService, marketService)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("portfolio-advisor"))
	r.Use(cors.Default())

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
