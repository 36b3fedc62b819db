// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/absmach/mcoap"
	"github.com/absmach/mcoap/examples/simple"
	"github.com/absmach/mcoap/pkg/router"
	"github.com/absmach/mcoap/pkg/server/udp"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	envPrefix   = "MCOAP_"
	defaultPort = "5683"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)

	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	logger := slog.New(logHandler)

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Warn("no .env file found, using environment variables")
	}

	cfg, err := mcoap.NewConfig(env.Options{Prefix: envPrefix})
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	rt := router.New(logger)
	simple.New(logger).Register(rt)

	server := udp.New(udp.Config{
		Address:         cfg.Address(),
		IdleTimeout:     cfg.IdleTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
		BufferSize:      cfg.BufferSize,
		WorkerPoolSize:  cfg.WorkerPoolSize,
		MaxPeers:        cfg.MaxPeers,
		GlobalRate:      cfg.GlobalRate,
		GlobalBurst:     cfg.GlobalBurst,
		SourceRate:      cfg.SourceRate,
		SourceBurst:     cfg.SourceBurst,
		Logger:          logger,
	}, rt)

	g.Go(func() error {
		return server.Listen(ctx)
	})

	// Signal handler
	g.Go(func() error {
		return StopSignalHandler(ctx, cancel, logger)
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("mcoap service terminated with error: %s", err))
	} else {
		logger.Info("mcoap service stopped")
	}
}

func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGABRT)
	select {
	case <-c:
		logger.Info("received shutdown signal")
		cancel()
		return nil
	case <-ctx.Done():
		return nil
	}
}
