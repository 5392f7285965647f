package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"sentinel/internal/config"
	"sentinel/internal/decision"
	"sentinel/internal/judge"
	"sentinel/internal/logger"
	"sentinel/internal/market"
	"sentinel/internal/monitor"
	"sentinel/internal/retrieval"
	httpapi "sentinel/internal/transport/http"
)

// App owns the wired decision core and the surfaces exposing it.
type App struct {
	cfg      *config.Config
	judge    *judge.Judge
	server   *httpapi.Server
	ingester *retrieval.Ingester
	monitor  *monitor.Monitor
	Summary  *StartupSummary

	closeOnce sync.Once
	cleanup   func()
}

func ProvideApp(cfg *config.Config, j *judge.Judge, srv *httpapi.Server, in *retrieval.Ingester, mon *monitor.Monitor, sum *StartupSummary) *App {
	return &App{cfg: cfg, judge: j, server: srv, ingester: in, monitor: mon, Summary: sum}
}

// NewApp builds the application without starting it. Close releases
// stores and drains pending hooks.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	a, cleanup, err := initializeApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.cleanup = cleanup
	return a, nil
}

// Run serves HTTP until ctx is done. When a knowledge directory is
// configured it is ingested first and optionally watched.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		logger.InfoBlock(a.Summary.Render())
	}
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if dir := strings.TrimSpace(a.cfg.Knowledge.Dir); dir != "" {
		n, err := a.Ingest(ctx, dir)
		if err != nil {
			logger.Warnf("knowledge ingest %s: %v", dir, err)
		} else {
			logger.Infof("knowledge: %d concepts from %s", n, dir)
		}
		if a.cfg.Knowledge.Watch {
			group.Go(func() error { return a.ingester.Watch(ctx, dir) })
		}
	}
	return group.Wait()
}

// Evaluate runs a single snapshot through the judge.
func (a *App) Evaluate(ctx context.Context, snap market.Snapshot) decision.TradeSignal {
	return a.judge.Evaluate(ctx, snap)
}

func (a *App) Ingest(ctx context.Context, dir string) (int, error) {
	return a.ingester.IngestDir(ctx, dir)
}

func (a *App) Monitor() *monitor.Monitor { return a.monitor }

func (a *App) Close() {
	if a == nil {
		return
	}
	a.closeOnce.Do(func() {
		if a.cleanup != nil {
			a.cleanup()
		}
	})
}
