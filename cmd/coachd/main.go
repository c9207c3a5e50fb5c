package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/verbalize-ai/coachd/internal/anthropic"
	"github.com/verbalize-ai/coachd/internal/api"
	"github.com/verbalize-ai/coachd/internal/cache"
	"github.com/verbalize-ai/coachd/internal/coach"
	"github.com/verbalize-ai/coachd/internal/config"
	"github.com/verbalize-ai/coachd/internal/events"
	"github.com/verbalize-ai/coachd/internal/feedback"
	"github.com/verbalize-ai/coachd/internal/jobs"
	"github.com/verbalize-ai/coachd/internal/manager"
	"github.com/verbalize-ai/coachd/internal/memory"
	"github.com/verbalize-ai/coachd/internal/openai"
	"github.com/verbalize-ai/coachd/internal/processor"
	"github.com/verbalize-ai/coachd/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("coachd starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Anthropic client for feedback, talking points, and briefing notes
	if cfg.AnthropicAPIKey == "" {
		slog.Error("ANTHROPIC_API_KEY is required")
		os.Exit(1)
	}
	llm := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	slog.Info("anthropic client ready", "model", cfg.AnthropicModel)

	// OpenAI embedder for segment memory
	if cfg.OpenAIAPIKey == "" {
		slog.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	emb := openai.NewEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	slog.Info("embedder ready", "model", cfg.EmbeddingModel)

	// NATS
	nats, err := events.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
	if err != nil {
		slog.Error("failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nats.Close()
	slog.Info("NATS connected", "url", cfg.NatsURL)

	// Redis cache (optional, analyses fall back to direct queries)
	var teamCache *cache.Cache
	if cfg.RedisURL != "" {
		teamCache, err = cache.New(ctx, cfg.RedisURL, slog.Default())
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer teamCache.Close()
		slog.Info("redis cache ready")
	} else {
		slog.Warn("REDIS_URL not set, running without the analysis cache")
	}

	// Pipeline components
	generator := feedback.NewGenerator(llm, slog.Default())
	profiler := memory.NewProfiler(db, slog.Default())
	embedder := memory.NewEmbedder(db, emb, slog.Default())
	recommender := coach.NewRecommender(db, slog.Default())
	proc := processor.New(db, nats, teamCache, generator, profiler, embedder, recommender, slog.Default())

	analyzer := manager.NewAnalyzer(db, teamCache, slog.Default())
	briefs := manager.NewBriefBuilder(db, llm, slog.Default())
	briefings := coach.NewBriefingBuilder(db, llm, slog.Default())
	digests := coach.NewDigestBuilder(db, slog.Default())
	contexts := memory.NewContextBuilder(db, slog.Default())

	// Event subscriptions
	if err := nats.Subscribe(events.SubjectAttemptCompleted, proc.HandleAttemptCompleted); err != nil {
		slog.Error("failed to subscribe to attempt completed events", "error", err)
		os.Exit(1)
	}
	if err := nats.Subscribe(events.SubjectAttemptScored, proc.HandleAttemptScored); err != nil {
		slog.Error("failed to subscribe to attempt scored events", "error", err)
		os.Exit(1)
	}
	if err := nats.Subscribe(events.SubjectUserInactive, proc.HandleUserInactive); err != nil {
		slog.Error("failed to subscribe to user inactive events", "error", err)
		os.Exit(1)
	}

	// Scheduled jobs
	runner := jobs.NewRunner(db, nats, digests, analyzer, slog.Default(), cfg.InactivityDays, cfg.DigestWindowDays)
	go runner.Start(ctx)

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, api.Deps{
		Store:     db,
		Processor: proc,
		Analyzer:  analyzer,
		Briefs:    briefs,
		Briefings: briefings,
		Digests:   digests,
		Contexts:  contexts,
	}, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("coachd ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("coachd stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
