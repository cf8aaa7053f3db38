package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yourusername/strategy-sim/internal/engine"
	"github.com/yourusername/strategy-sim/internal/scheduler"
	"github.com/yourusername/strategy-sim/internal/server"
	"github.com/yourusername/strategy-sim/internal/simulation"
	"github.com/yourusername/strategy-sim/internal/stream"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled simulations and serve status, metrics and live updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	engineClient := engine.NewClient(cfg.Engine.BaseURL, cfg.HTTPClientConfig(), appLogger)
	defer engineClient.Close()

	history := simulation.NewHistory(cfg.HistoryTTL(), cfg.History.MaxEntries)
	client := simulation.NewClient(engineClient,
		simulation.WithLogger(appLogger),
		simulation.WithConfig(cfg.ClientConfig()),
		simulation.WithHistory(history),
	)

	hub := stream.NewHub(appLogger)
	go hub.Run(ctx)
	client.OnUpdate(hub.Publish)

	sched := scheduler.NewScheduler(client, appLogger)
	for _, sc := range cfg.Schedules {
		job, err := scheduler.JobFromConfig(sc, cfg.Simulation)
		if err != nil {
			return err
		}
		if err := sched.ScheduleSimulation(job); err != nil {
			return fmt.Errorf("schedule %s: %w", sc.Name, err)
		}
	}

	srv := server.NewServer(server.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Port:        cfg.Server.Port,
		MetricsPath: cfg.Server.MetricsPath,
		Logger:      appLogger,
		Engine:      engineClient,
		Jobs:        client,
		History:     history,
		Runs:        sched,
		Stream:      hub,
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	if len(cfg.Schedules) > 0 {
		if err := sched.Start(); err != nil {
			return err
		}
		defer sched.Stop()
	}

	srv.SetReady(true)
	appLogger.WithField("schedules", len(cfg.Schedules)).Info("stratsim serving")

	<-ctx.Done()
	srv.SetReady(false)

	// Stop any job still running so the engine does not keep working for nobody
	if client.Snapshot().Status.IsActive() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ClientConfig().RequestTimeout)
		if err := client.Stop(stopCtx); err != nil {
			appLogger.WithError(err).Warn("Failed to stop active simulation on shutdown")
		}
		cancel()
	}

	return client.Close()
}
