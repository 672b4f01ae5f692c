package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Run a single scrape cycle and exit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer func() { _ = app.logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := app.sched.RunOnce(ctx); err != nil {
				app.logger.Error("scrape cycle failed", zap.Error(err))
				return err
			}
			app.logger.Info("scrape cycle finished", zap.String("output", app.writer.Dir()))
			return nil
		},
	}
}
