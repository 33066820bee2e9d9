package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tickbot/internal/cache/redis"
	"github.com/alanyoungcy/tickbot/internal/domain"
	"github.com/alanyoungcy/tickbot/internal/executor"
	"github.com/alanyoungcy/tickbot/internal/notify"
	"github.com/alanyoungcy/tickbot/internal/server"
	"github.com/alanyoungcy/tickbot/internal/server/handler"
	"github.com/alanyoungcy/tickbot/internal/server/ws"
	"github.com/alanyoungcy/tickbot/internal/state"
	"github.com/alanyoungcy/tickbot/internal/strategy"
)

// TradeMode runs the loop against the venue with live order submission.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode")
	return a.runLoop(ctx, deps, deps.Venue, state.QuotePositions(deps.Venue))
}

// PaperMode runs the loop against live venue data while orders are filled
// by a local simulator.
func (a *App) PaperMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting paper mode")
	paper := executor.NewPaperGateway(deps.Venue, a.logger)
	positions := state.StaticPositions(paper.Positions)
	return a.runLoop(ctx, deps, paper, positions)
}

// runLoop builds the engine around gw and runs it alongside the monitoring
// services. The services are stopped once the loop returns.
func (a *App) runLoop(ctx context.Context, deps *Dependencies, gw domain.OrderGateway, positions state.PositionSource) error {
	strategies, err := buildStrategies(a.cfg.Strategy, a.cfg.Fees, deps.Venue, a.logger)
	if err != nil {
		return err
	}

	exec := executor.New(gw, a.logger)
	exec.SetRecorder(deps.Metrics)
	if deps.Journal != nil {
		exec.SetJournal(deps.Journal)
	}
	if a.cfg.Engine.LimitGuard {
		exec.SetLimitGuard(executor.NewLimitGuard(deps.Venue, a.logger))
	}

	engine := strategy.NewEngine(strategy.EngineConfig{
		PollInterval:   a.cfg.Engine.PollInterval.Duration,
		RecentLimit:    a.cfg.Engine.RecentLimit,
		HistoryCap:     a.cfg.Engine.HistoryCap,
		CleanupTimeout: a.cfg.Engine.CleanupTimeout.Duration,
	}, strategies, deps.Venue, exec, a.logger)
	engine.SetRecorder(deps.Metrics)
	engine.SetFaultLog(deps.FaultLogs)
	if deps.SignalBus != nil {
		engine.AddReportSink(redis.NewReportPublisher(deps.SignalBus, a.cfg.Redis.ReportChannel))
	}

	if a.cfg.Snapshot.Enabled {
		snap := state.NewWriter(a.cfg.Snapshot.Path, engine.History(), a.logger)
		snap.SetPositions(positions)
		if a.cfg.Snapshot.Upload && deps.BlobWriter != nil {
			snap.SetBlob(deps.BlobWriter)
		}
		engine.OnTerminate(snap.Hook())
	}
	if deps.Notifier.Enabled() {
		engine.OnTerminate(deps.Notifier.LoopStopped())
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	if a.cfg.Server.Enabled {
		hub := ws.NewHub(a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: time.Now().UTC(),
			Status:    engine.Status,
		})
		g.Go(func() error {
			return hub.Run(gctx)
		})
		if deps.SignalBus != nil {
			g.Go(func() error {
				if err := hub.Relay(gctx, deps.SignalBus, a.cfg.Redis.ReportChannel); err != nil {
					a.logger.ErrorContext(gctx, "ws relay stopped", slog.String("error", err.Error()))
				}
				return nil
			})
		} else {
			engine.AddReportSink(hub)
		}
		a.startHTTPServer(gctx, g, engine, hub, deps)
	}

	if err := deps.Notifier.Notify(ctx, notify.EventLoopStarted, "tickbot started",
		fmt.Sprintf("mode: %s\nstrategies: %d", a.cfg.Mode, len(strategies))); err != nil {
		a.logger.WarnContext(ctx, "start notification failed", slog.String("error", err.Error()))
	}

	g.Go(func() error {
		defer stop()
		return engine.Run(gctx)
	})

	return g.Wait()
}

// startHTTPServer adds the monitoring server to g. It is shut down
// gracefully when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, engine *strategy.Engine, hub *ws.Hub, deps *Dependencies) {
	srv := server.NewServer(server.Config{
		Port:   a.cfg.Server.Port,
		APIKey: a.cfg.Server.APIKey,
	}, server.Handlers{
		Health: handler.NewHealthHandler(func() strategy.State {
			return engine.Status().State
		}, a.logger),
		Status:  handler.NewStatusHandler(a.cfg.Mode, engine, a.logger),
		Metrics: deps.Metrics.Handler(),
	}, hub, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", a.cfg.Server.Port)))
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
