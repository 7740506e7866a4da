package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/oraclewatch/internal/monitor"
	"github.com/alanyoungcy/oraclewatch/internal/server"
	"github.com/alanyoungcy/oraclewatch/internal/server/handler"
	"github.com/alanyoungcy/oraclewatch/internal/server/ws"
)

// MonitorMode runs the headless evaluation loop: monitor plus the round
// publisher that forwards results to the cache, signal bus, and notifier.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Monitor.Run(ctx)
	})

	if deps.SignalBus != nil || deps.ReportCache != nil || deps.Notifier != nil {
		rounds := deps.Monitor.Subscribe(32)
		publisher := monitor.NewPublisher(deps.SignalBus, deps.ReportCache, deps.Notifier, a.logger)
		g.Go(func() error {
			return publisher.Run(ctx, rounds)
		})
	}

	return g.Wait()
}

// ServeMode runs everything MonitorMode runs plus the HTTP + WebSocket API.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Monitor.Run(ctx)
	})

	rounds := deps.Monitor.Subscribe(32)
	publisher := monitor.NewPublisher(deps.SignalBus, deps.ReportCache, deps.Notifier, a.logger)
	g.Go(func() error {
		return publisher.Run(ctx, rounds)
	})

	// WebSocket hub needs the signal bus; without Redis the /ws endpoint is
	// simply not registered.
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			Assets:    a.cfg.Oracle.Assets,
			StartedAt: time.Now().UTC(),
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
		Oracle: handler.NewOracleHandler(deps.Monitor, deps.Registry, a.logger),
	}, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
