// Package main runs a single allocation search over the files in
// <data>/timeseries and writes allocation.json and frontier.json to
// <data>/output (and to S3 when a bucket is configured).
package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/aristath/frontier/internal/config"
	"github.com/aristath/frontier/internal/di"
	"github.com/aristath/frontier/internal/modules/runs"
	"github.com/aristath/frontier/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})
	logger.SetGlobalLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := di.Wire(ctx, cfg, di.Options{FlatArtifacts: true}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// Workers report concurrently; log each tenth of the way once
	var lastDecile atomic.Int64
	lastDecile.Store(-1)
	container.RunService.SetProgressCallback(func(current, total int, message string) {
		decile := int64(current * 10 / total)
		for {
			last := lastDecile.Load()
			if decile <= last {
				return
			}
			if lastDecile.CompareAndSwap(last, decile) {
				log.Info().Int("current", current).Int("total", total).Msg(message)
				return
			}
		}
	})

	run, err := container.RunService.Run(ctx, runs.Request{})
	if err != nil {
		log.Error().Err(err).Msg("Search failed")
		stop()
		container.Close()
		os.Exit(1)
	}

	event := log.Info().
		Strs("assets", run.Assets).
		Int("candidates", run.Candidates).
		Float64("sharpe_ratio", run.Allocation.SharpeRatio).
		Float64("average", run.Allocation.Average).
		Float64("volatility", run.Allocation.Volatility).
		Float64("expected_returns_at_end", run.Allocation.ExpectedReturnsAtEnd)
	for id, weight := range run.Allocation.Allocations {
		event = event.Float64("weight_"+id, weight)
	}
	event.Str("output", cfg.OutputDir()).Msg("Best allocation")
}
