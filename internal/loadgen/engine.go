package loadgen

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wrussell84/stampede/internal/collector"
	"github.com/wrussell84/stampede/internal/config"
	"github.com/wrussell84/stampede/internal/registry"
	"github.com/wrussell84/stampede/internal/transport"
)

// Engine wires the registry, transport, collector, and pool together
// and runs one complete load-generation session.
type Engine struct {
	cfg *config.Config
	log *slog.Logger
}

// NewEngine validates the configuration and returns a ready engine.
func NewEngine(cfg *config.Config, log *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{cfg: cfg, log: log}, nil
}

// Run ramps the pool up, holds the load for the configured duration,
// then drains and returns the aggregated report. Cancelling ctx ends
// the run early but still drains gracefully.
func (e *Engine) Run(ctx context.Context) (*collector.Report, error) {
	reg := registry.New()

	tp := transport.NewHTTP(e.cfg.Host, transport.Config{
		Timeout:             e.cfg.HTTP.Timeout.GetDuration(30 * time.Second),
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: e.cfg.HTTP.MaxIdleConnsPerHost,
		MaxConnsPerHost:     e.cfg.HTTP.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   e.cfg.HTTP.DisableKeepAlives,
		InsecureSkipVerify:  e.cfg.HTTP.InsecureSkipVerify,
	})
	defer tp.CloseIdleConnections()

	col := collector.New(e.cfg.QueueSize)

	tasks := &ProductTasks{
		Registry:  reg,
		Transport: tp,
		Collector: col,
		Log:       e.log,
	}

	pool := NewPool(tasks.Catalog, PoolConfig{
		MinWait:      time.Duration(e.cfg.MinWait),
		MaxWait:      time.Duration(e.cfg.MaxWait),
		GracefulStop: time.Duration(e.cfg.GracefulStop),
		Seed:         e.cfg.Seed,
		Logger:       e.log,
	})

	// Users run on their own context so that cancelling the outer ctx
	// first triggers a graceful drain; the hard cancel lands only after
	// the grace period, for stragglers.
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	start := time.Now()
	e.log.Info("starting run",
		"host", e.cfg.Host,
		"users", e.cfg.Users,
		"spawnRate", e.cfg.SpawnRate,
		"duration", time.Duration(e.cfg.Duration))

	rampErr := make(chan error, 1)
	go func() {
		rampErr <- pool.Start(runCtx, e.cfg.Users, e.cfg.SpawnRate)
	}()

	timer := time.NewTimer(time.Duration(e.cfg.Duration))
	defer timer.Stop()

	var err error
	select {
	case <-timer.C:
	case <-ctx.Done():
		e.log.Info("run interrupted, draining")
	case err = <-rampErr:
		if err != nil {
			e.log.Error("ramp-up failed", "error", err)
		} else {
			// Ramp finished; keep holding the load until the timer or
			// an interrupt ends the run.
			select {
			case <-timer.C:
			case <-ctx.Done():
				e.log.Info("run interrupted, draining")
			}
		}
	}

	// Stop logs any stragglers itself; the cancel force-terminates their
	// in-flight work.
	pool.Stop()
	cancel()

	col.Close()
	report := col.Snapshot()
	report.Elapsed = time.Since(start)

	e.log.Info("run complete",
		"requests", report.Total,
		"failures", report.Failures,
		"dropped", report.Dropped,
		"elapsed", report.Elapsed)

	return report, err
}
