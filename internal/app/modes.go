package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bookscope/bookscope/internal/feed"
	"github.com/bookscope/bookscope/internal/server"
	"github.com/bookscope/bookscope/internal/server/handler"
	"github.com/bookscope/bookscope/internal/server/ws"
	"github.com/bookscope/bookscope/internal/sim"
)

// ServeMode runs the full service: the live feed, the WebSocket hub, and the
// HTTP API.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	manager, err := a.startFeed(ctx, deps)
	if err != nil {
		return err
	}
	defer manager.Close()

	simulator := sim.New(a.cfg.Simulator.WarnSlippagePct, a.logger)
	startedAt := time.Now().UTC()

	statusHandler := handler.NewStatusHandler(manager, startedAt, a.logger)
	handlers := server.Handlers{
		Health:       handler.NewHealthHandler(a.logger),
		Book:         handler.NewBookHandler(manager, a.logger),
		Status:       statusHandler,
		Subscription: handler.NewSubscriptionHandler(manager, a.logger),
		Simulate:     handler.NewSimulateHandler(manager, manager, simulator, simStoreOrNil(deps), deps.SignalBus, a.logger),
		History:      handler.NewHistoryHandler(simListerOrNil(deps), a.logger),
	}

	hub := ws.NewHub(deps.SignalBus, statusHandler.Snapshot, a.logger)
	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
	}, handlers, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := hub.Run(ctx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

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

// MonitorMode runs the feed without the API server, periodically logging the
// top of book. Useful for eyeballing a venue connection.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	manager, err := a.startFeed(ctx, deps)
	if err != nil {
		return err
	}
	defer manager.Close()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			view := manager.BookView(1)
			attrs := []any{slog.String("status", string(manager.Status()))}
			if len(view.Bids) > 0 {
				attrs = append(attrs, slog.Float64("best_bid", view.Bids[0].Price))
			}
			if len(view.Asks) > 0 {
				attrs = append(attrs, slog.Float64("best_ask", view.Asks[0].Price))
			}
			if stats, ok := manager.Stats(); ok {
				attrs = append(attrs, slog.Float64("last", stats.Last))
			}
			a.logger.InfoContext(ctx, "top of book", attrs...)
		}
	}
}

// startFeed builds the feed manager and subscribes to the configured market.
func (a *App) startFeed(ctx context.Context, deps *Dependencies) (*feed.Manager, error) {
	manager := feed.NewManager(feed.Config{
		URLs:  a.cfg.VenueURLs(),
		Depth: a.cfg.Feed.Depth,
	}, deps.SignalBus, a.logger)

	if err := manager.Subscribe(ctx, a.cfg.Feed.Venue, a.cfg.Feed.Symbol); err != nil {
		manager.Close()
		return nil, err
	}
	return manager, nil
}

// simStoreOrNil converts the concrete store to the handler interface without
// producing a non-nil interface wrapping a nil pointer.
func simStoreOrNil(deps *Dependencies) handler.SimulationStore {
	if deps.SimStore == nil {
		return nil
	}
	return deps.SimStore
}

func simListerOrNil(deps *Dependencies) handler.SimulationLister {
	if deps.SimStore == nil {
		return nil
	}
	return deps.SimStore
}
