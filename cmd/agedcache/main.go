package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aegis-sign/agedcache/internal/config"
	"github.com/aegis-sign/agedcache/internal/scenario"
	"github.com/aegis-sign/agedcache/pkg/agedcache"
)

func main() {
	cfg := config.LoadConfigFromEnv()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		cfg.ScenarioPath = os.Args[1]
	}
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("scenario replay failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.ScenarioPath == "" {
		return errors.New("scenario path is required (argument or AGEDCACHE_SCENARIO)")
	}
	s, err := scenario.Load(cfg.ScenarioPath)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	runner := scenario.NewRunner(scenario.RunnerConfig{
		CacheName:        cfg.CacheName,
		DefaultRetention: &cfg.DefaultRetention,
		Metrics:          agedcache.NewMetrics(reg),
		Logger:           logger,
	})
	logger.Info("replaying scenario",
		"scenario", s.Name,
		"steps", len(s.Steps),
		"start", s.StartTime())
	report, err := runner.Run(ctx, s)
	if err != nil {
		return err
	}
	for _, step := range report.Steps {
		logger.Debug("step",
			"index", step.Index,
			"op", step.Op,
			"key", step.Key,
			"observed", step.Observed,
			"passed", step.Passed)
	}
	if err := logMetricTotals(logger, reg); err != nil {
		logger.Warn("failed to gather metrics", "error", err)
	}
	logger.Info("scenario finished",
		"scenario", report.Name,
		"steps", len(report.Steps),
		"failed", report.Failed,
		"clock_elapsed", report.Elapsed)
	if !report.OK() {
		return fmt.Errorf("%d of %d expectations failed", report.Failed, len(report.Steps))
	}
	return nil
}

func logMetricTotals(logger *slog.Logger, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			}
		}
		logger.Info("metric", "name", mf.GetName(), "value", total)
	}
	return nil
}
