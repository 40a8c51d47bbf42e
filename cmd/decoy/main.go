package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/decoy/internal/anthropic"
	"github.com/MikeSquared-Agency/decoy/internal/api"
	"github.com/MikeSquared-Agency/decoy/internal/campaign"
	"github.com/MikeSquared-Agency/decoy/internal/config"
	"github.com/MikeSquared-Agency/decoy/internal/engagement"
	"github.com/MikeSquared-Agency/decoy/internal/hermes"
	"github.com/MikeSquared-Agency/decoy/internal/observe"
	"github.com/MikeSquared-Agency/decoy/internal/oracle"
	"github.com/MikeSquared-Agency/decoy/internal/oracle/openai"
	"github.com/MikeSquared-Agency/decoy/internal/processor"
	"github.com/MikeSquared-Agency/decoy/internal/report"
	"github.com/MikeSquared-Agency/decoy/internal/session"
	"github.com/MikeSquared-Agency/decoy/internal/slack"
	"github.com/MikeSquared-Agency/decoy/internal/store"
)

const version = "0.1.0"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("decoy exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	slog.Info("decoy starting", "port", cfg.Port, "session_backend", cfg.SessionBackend)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	shutdownMetrics, err := observe.InitProvider(ctx, "decoy", version)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownMetrics(sctx)
	}()
	metrics := observe.DefaultMetrics()

	// Oracle backends, tried in order
	var backends []oracle.Backend
	if cfg.LLMAPIKey != "" {
		b, err := openai.New(cfg.LLMAPIKey, map[oracle.Profile]string{
			oracle.Detection:  cfg.ModelDetection,
			oracle.Generation: cfg.ModelGeneration,
			oracle.Extraction: cfg.ModelExtraction,
			oracle.Decision:   cfg.ModelDecision,
		}, openai.WithBaseURL(cfg.LLMBaseURL), openai.WithTimeout(cfg.OracleTimeout))
		if err != nil {
			return fmt.Errorf("openai backend: %w", err)
		}
		backends = append(backends, b)
		slog.Info("llm backend ready", "base_url", cfg.LLMBaseURL)
	}
	if cfg.AnthropicAPIKey != "" {
		client := anthropic.NewClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		backends = append(backends, anthropic.NewBackend(client))
		slog.Info("anthropic backend ready", "model", client.Model())
	}
	if len(backends) == 0 {
		slog.Warn("no LLM configured, every turn will use fallbacks")
	}
	orc := oracle.New(backends,
		oracle.WithTimeout(cfg.OracleTimeout),
		oracle.WithMetrics(metrics),
		oracle.WithLogger(slog.Default()),
	)

	// Session store
	var st store.Store
	var notifiers []report.Notifier
	var campaigns api.Campaigns
	switch cfg.SessionBackend {
	case "redis":
		r, err := store.NewRedis(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return fmt.Errorf("redis store: %w", err)
		}
		defer r.Close()
		st = r
	case "postgres":
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres backend")
		}
		db, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres store: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		st = db
		notifiers = append(notifiers, report.Archive(db))
		campaigns = campaign.NewFinder(db, campaign.DefaultWindow, slog.Default())
	default:
		st = store.NewMemory(cfg.SessionTTL)
	}
	slog.Info("session store ready", "backend", cfg.SessionBackend)

	// NATS (optional)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer hermesClient.Close()
		notifiers = append(notifiers, hermesClient)
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Slack (optional)
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		notifiers = append(notifiers, slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, slog.Default()))
		slog.Info("slack poster ready", "channel", cfg.SlackChannel)
	}

	dispatcher := report.NewDispatcher(cfg.ReportURL, cfg.ReportTimeout, metrics, slog.Default(), notifiers...)
	proc := processor.New(orc, dispatcher, processor.Config{
		MaxTurns:        cfg.MaxTurns,
		DefaultLanguage: cfg.DefaultLanguage,
	}, metrics, slog.Default())
	sessions := session.NewManager(st, cfg.SessionBackend, metrics, slog.Default())
	svc := engagement.NewService(sessions, proc, metrics, slog.Default())

	if hermesClient != nil {
		if err := hermesClient.QueueSubscribe(hermes.SubjectInbound, hermes.QueueEngagement, svc.InboundHandler(ctx, hermesClient)); err != nil {
			return fmt.Errorf("subscribe inbound: %w", err)
		}
		if err := hermesClient.Register(version); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	srv := api.NewServer(cfg.Port, svc, api.Options{
		APIKey:           cfg.APIKey,
		OracleConfigured: orc.Configured(),
		Metrics:          metrics,
		MetricsHandler:   promhttp.Handler(),
		Campaigns:        campaigns,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	slog.Info("decoy ready", "port", cfg.Port, "oracle_configured", orc.Configured())
	err = g.Wait()
	dispatcher.Wait()
	if err != nil {
		return err
	}
	slog.Info("decoy stopped")
	return nil
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
