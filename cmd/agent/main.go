package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"a2a-chat-agent/internal/agent"
	"a2a-chat-agent/internal/api"
	"a2a-chat-agent/internal/auth"
	"a2a-chat-agent/internal/config"
	"a2a-chat-agent/internal/llm"
	"a2a-chat-agent/internal/metrics"
	"a2a-chat-agent/internal/rpc"
	"a2a-chat-agent/internal/skill"
	"a2a-chat-agent/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config/agent.yaml", "path to agent configuration file")
	envPath := flag.String("env", ".env", "path to dotenv file with provider API keys")
	flag.Parse()

	if err := config.LoadEnvFile(*envPath); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("agent stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := llm.NewClient(cfg.LLM.Model)
	if err != nil {
		return err
	}

	skills, err := skill.NewResolver(cfg.Skills, cfg.DefaultSkill)
	if err != nil {
		return err
	}

	opts := []agent.Option{agent.WithLogger(logger)}
	apiOpts := api.Options{Logger: logger}

	if cfg.DataDir != "" {
		journal, err := storage.Open(cfg.DataDir)
		if err != nil {
			return err
		}
		defer journal.Close()
		opts = append(opts, agent.WithJournal(journal))
		apiOpts.Calls = journal
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		opts = append(opts, agent.WithMetrics(m))
		apiOpts.Metrics = m
	}

	if cfg.Security.Enabled {
		v, err := auth.NewValidator(ctx, cfg.Security.JWKSURL, cfg.Security.Issuer, cfg.Security.Audience)
		if err != nil {
			return err
		}
		apiOpts.Auth = v
	}

	ag := agent.New(client, skills, opts...)
	server := api.New(cfg, rpc.New(ag, m, logger), api.BuildAgentCard(cfg, skills.Profiles()), apiOpts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting A2A agent", "host", cfg.Host, "port", cfg.Port, "model", cfg.LLM.Model, "default_skill", cfg.DefaultSkill)
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
