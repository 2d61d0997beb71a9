package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oi-signal-engine/src/engine"
	"oi-signal-engine/src/grpc_control"
	"oi-signal-engine/src/helpers"
	"oi-signal-engine/src/interfaces"
	"oi-signal-engine/src/publisher"
	"oi-signal-engine/src/server"
	"oi-signal-engine/src/utils"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const retentionSweep = time.Hour

// -----------------------------------------------------------------------------

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with the REST/WebSocket API and the gRPC health service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

// -----------------------------------------------------------------------------

// serve orchestrates every long-running component under one errgroup. The
// first component to fail, or a signal, shuts the rest down.
func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg.MConfig

	store, err := a.openStorage()
	if err != nil {
		return err
	}
	calendar, err := utils.NewMarketScheduler(cfg, a.log.Named("calendar"))
	if err != nil {
		return err
	}
	pub, err := publisher.NewPublisher(cfg, a.log.Named("publisher"))
	if err != nil {
		return err
	}
	if pub != nil {
		defer pub.Close()
	}

	eng := engine.NewSignalEngine(cfg, engine.Deps{
		Calendar:  calendar,
		Catalog:   store,
		Ticks:     store,
		Store:     store,
		Publisher: pub,
	}, a.log.Named("engine"))

	api := server.NewAPIServer(cfg, eng, store, a.log.Named("api"))
	eng.SetExchanger(api)
	control := grpc_control.NewControlServer(cfg, eng, a.log.Named("grpc"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return api.Start(gctx) })
	g.Go(func() error { return control.Serve(gctx) })
	g.Go(func() error {
		a.sweepRetention(gctx, store)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		eng.Stop()
		eng.Wait()
		return nil
	})

	if cfg.Engine.AutoStart {
		eng.Start(gctx)
	} else {
		a.log.Info("auto_start disabled; start the engine via POST /api/engine/start")
	}
	if !calendar.AnyMarketOpen() {
		a.log.Info("No exchange is in session; the engine idles until one opens")
	}

	err = g.Wait()
	a.log.Info("Shutdown complete")
	return err
}

// -----------------------------------------------------------------------------

// sweepRetention drops ticks older than storage.retention_days, once at
// startup and then hourly.
func (a *app) sweepRetention(ctx context.Context, store interfaces.ITickWriter) {
	days := a.cfg.Storage.RetentionDays
	if days <= 0 {
		return
	}
	ticker := time.NewTicker(retentionSweep)
	defer ticker.Stop()

	for {
		err := helpers.RetryWithBackoff(ctx, a.log, "retention sweep", 3, 2*time.Second, func(ctx context.Context) error {
			_, err := prune(ctx, store, days, a.log)
			return err
		})
		if err != nil && ctx.Err() == nil {
			a.log.Warning("Retention sweep failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
