package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"portfolio-advisor/internal/cache"
	"portfolio-advisor/internal/config"
	"portfolio-advisor/internal/db"
	"portfolio-advisor/internal/provider"
	"portfolio-advisor/internal/repository"
	"portfolio-advisor/internal/service"
	"portfolio-advisor/internal/tui"
	"portfolio-advisor/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

// defaultTUIUserID keys the advisor session for a local terminal user when
// TUI_USER_ID is not set.
const defaultTUIUserID = "local"

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	initTracerFunc = tracing.InitTracer
	runProgramFunc = func(model tea.Model) error {
		p := tea.NewProgram(model, tea.WithAltScreen())
		_, err := p.Run()
		return err
	}
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache.InitRedis(ctx, cfg.RedisURL)
	db.InitPostgres(ctx, cfg.DatabaseURL)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	sessionRepo := repository.NewSessionRepository(cfg.SessionDir, tracer)
	var auditor service.ConversationAuditor
	if db.Pool != nil {
		convRepo := repository.NewConversationRepository(db.Pool, tracer)
		if err := convRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run conversation migrations: %v", err)
		}
		auditor = convRepo
	}

	yahoo := provider.NewYahooProvider(tracer)
	newsAPI := provider.NewNewsAPIProvider(tracer, cfg.NewsAPIKey)
	gnews := provider.NewGNewsProvider(tracer, cfg.GNewsAPIKey)
	runner := provider.NewOpenAIRunner(tracer, cfg.OpenAIModel, cfg.AdvisorMaxHistory)

	marketService := service.NewMarketService(tracer, yahoo, newsAPI, gnews, cache.Client)
	advisorService := service.NewAdvisorService(tracer, runner, sessionRepo, marketService, gnews, auditor, cfg.OpenAIAPIKeys)

	userID := os.Getenv("TUI_USER_ID")
	if userID == "" {
		userID = defaultTUIUserID
	}

	svc := tui.Services{
		Market:     marketService,
		Advisor:    advisorService,
		Portfolios: sessionRepo,
		UserID:     userID,
	}

	if err := runProgramFunc(tui.NewAppModel(svc)); err != nil {
		fmt.Fprintf(os.Stderr, "tui failed: %v\n", err)
		os.Exit(1)
	}
}
