package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/01moynul/bookshelf-admin/internal/ai"
	"github.com/01moynul/bookshelf-admin/internal/auth"
	"github.com/01moynul/bookshelf-admin/internal/config"
	"github.com/01moynul/bookshelf-admin/internal/database"
	"github.com/01moynul/bookshelf-admin/internal/drafts"
	"github.com/01moynul/bookshelf-admin/internal/handlers"
	"github.com/01moynul/bookshelf-admin/internal/metrics"
	"github.com/01moynul/bookshelf-admin/internal/routes"
	"github.com/01moynul/bookshelf-admin/internal/session"
	"github.com/01moynul/bookshelf-admin/internal/submission"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

const sweepInterval = time.Minute

func main() {
	// 0. --- Logging ---
	logger, err := newLogger(os.Getenv("APP_ENV") == "development")
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	// 1. --- Configuration (.env, environment, YAML overlay) ---
	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("failed to load configuration: %v", err)
	}
	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. --- Draft Storage (optional) ---
	opts := session.Options{
		MaxCombinations: cfg.MaxCombinations,
		MaxImageBytes:   cfg.MaxImageBytes,
		IdleTimeout:     cfg.SessionIdle,
	}
	if cfg.DBDSN != "" {
		db, err := database.Open(cfg.DBDSN)
		if err != nil {
			sugar.Fatalf("failed to connect to draft database: %v", err)
		}
		defer db.Close()

		store := drafts.NewStore(db)
		if err := store.Migrate(ctx); err != nil {
			sugar.Fatalf("failed to prepare draft table: %v", err)
		}
		opts.Drafts = store
	} else {
		sugar.Infow("DB_DSN not set, drafts are disabled")
	}
	sessions := session.NewManager(opts)

	// 3. --- AI Attribute Suggestions (optional) ---
	app := &handlers.Handlers{
		Sessions:      sessions,
		Backend:       submission.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout),
		MaxImageBytes: cfg.MaxImageBytes,
	}
	if cfg.GeminiAPIKey != "" {
		suggester, err := ai.NewSuggester(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			sugar.Fatalf("failed to initialize AI suggester: %v", err)
		}
		defer suggester.Close()
		app.Suggester = suggester
	} else {
		sugar.Infow("GEMINI_API_KEY not set, attribute suggestions are disabled")
	}

	// 4. --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = metrics.New(registry, sessions.Len)

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		sugar.Fatalf("failed to initialize token service: %v", err)
	}

	// 5. --- Background Worker: close idle sessions ---
	go sessions.Run(ctx, sweepInterval)

	// 6. --- Router & Server ---
	router := routes.SetupRouter(app, routes.Options{
		AllowedOrigin: cfg.AllowedOrigin,
		Tokens:        tokens,
		Gatherer:      registry,
	})
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			sugar.Warnw("server shutdown", "error", err)
		}
	}()

	sugar.Infow("starting catalog API server", "port", cfg.Port, "backend", cfg.BackendBaseURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatalf("failed to start server: %v", err)
	}
	sessions.CloseAll()
	sugar.Infow("server stopped")
}

func newLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
