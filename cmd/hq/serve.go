package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hitoq/hitoq/internal/api"
	"github.com/hitoq/hitoq/internal/db"
	"github.com/hitoq/hitoq/internal/digest"
	"github.com/hitoq/hitoq/internal/identity"
	"github.com/hitoq/hitoq/internal/logging"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the messaging API server",
		Long: `Migrates the database, then serves the messaging API until interrupted.

When a Slack or Discord digest channel is configured, the activity digest
is also posted on the configured cron schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")
	return cmd
}

func runServe(cmd *cobra.Command, port int) error {
	cfg, gormDB, err := connectFromConfig(cmd)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}

	resolver, err := identity.New(cfg.Auth, gormDB)
	if err != nil {
		return err
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	posters, err := digestPosters(cfg)
	if err != nil {
		return err
	}
	if len(posters) > 0 {
		sched, err := digest.NewScheduler(digest.SchedulerOpts{
			DB:       gormDB,
			Posters:  posters,
			Schedule: cfg.Digest.Schedule,
			Log:      log.With().Str("component", "digest").Logger(),
		})
		if err != nil {
			return err
		}
		go sched.Run(ctx)
	}

	return api.Start(ctx, api.StartOpts{
		Service:  newService(cfg, gormDB, log),
		Resolver: resolver,
		Log:      log,
		Port:     port,
		Mode:     cfg.Server.Mode,
		Out:      cmd.OutOrStdout(),
	})
}
