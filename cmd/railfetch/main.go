package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samvad-hq/samvad-rail-feed/internal/app"
	"github.com/samvad-hq/samvad-rail-feed/internal/config"
	"github.com/samvad-hq/samvad-rail-feed/internal/logger"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if !errors.Is(err, app.ErrFetchFailed) {
			fmt.Fprintf(os.Stderr, "Error: railfetch start failed: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	url := cfg.FetchURL
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		url = strings.TrimSpace(args[0])
	}
	logger.DebugObj("railfetch starting", "fetch_target", map[string]any{
		"url":           url,
		"timeout":       cfg.FetchTimeout.String(),
		"chunk_size":    cfg.FetchChunkSize,
		"output_indent": cfg.OutputIndent,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner, err := app.NewRunner(cfg, log, nil, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	return runner.Run(ctx, url)
}
