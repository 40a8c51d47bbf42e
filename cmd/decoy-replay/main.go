package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MikeSquared-Agency/decoy/internal/config"
	"github.com/MikeSquared-Agency/decoy/internal/replay"
	"github.com/MikeSquared-Agency/decoy/internal/slack"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}
	cfg := config.Load()

	dir := flag.String("dir", "./scenarios", "directory of .json scenarios and .jsonl transcripts")
	target := flag.String("url", fmt.Sprintf("http://localhost:%d", cfg.Port), "base URL of a running decoy")
	only := flag.String("only", "", "replay a single scenario by name")
	delay := flag.Duration("delay", time.Second, "pause between turns")
	statePath := flag.String("state", replay.DefaultStatePath, "progress file; empty keeps state in memory")
	resume := flag.Bool("resume", false, "skip scenarios completed in a previous run")
	timeout := flag.Duration("timeout", 60*time.Second, "per-request timeout")
	out := flag.String("out", "", "write results as JSON to this file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, err := replay.LoadState(*statePath)
	if err != nil {
		logger.Error("load state", "error", err)
		os.Exit(1)
	}

	var summary replay.Summarizer
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		summary = slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger)
	}

	runner := replay.NewRunner(replay.Config{
		Dir:    *dir,
		Only:   *only,
		Delay:  *delay,
		Resume: *resume,
	}, replay.NewClient(*target, cfg.APIKey, *timeout), state, summary, logger)

	results, runErr := runner.Run(ctx)

	fmt.Print(replay.FormatSummary(results) + "\n")
	if *out != "" {
		data, err := json.MarshalIndent(results, "", "  ")
		if err == nil {
			err = os.WriteFile(*out, data, 0o644)
		}
		if err != nil {
			logger.Error("write results", "path", *out, "error", err)
		}
	}

	if runErr != nil {
		logger.Error("replay failed", "error", runErr)
		os.Exit(1)
	}
}
