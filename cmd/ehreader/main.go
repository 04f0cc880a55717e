// cmd/ehreader/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eventhub-tools/ehreader/internal/app"
	"github.com/eventhub-tools/ehreader/internal/config"
	"github.com/eventhub-tools/ehreader/pkg/logger"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "ehreader",
		Short:         "Durable, resumable reader for a partitioned event stream",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return run(configPath)
		},
	}
	root.Flags().StringVar(&configPath, "config", "", "path to config file (optional)")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ehreader: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Sugar().Infow("starting service",
		"service.name", cfg.ServiceName,
		"service.version", cfg.ServiceVersion,
	)

	if err := app.Run(ctx, cfg, log); err != nil {
		log.Sugar().Errorw("application exited with error", "error", err)
		return err
	}

	log.Sugar().Infow("shutdown complete")
	return nil
}
