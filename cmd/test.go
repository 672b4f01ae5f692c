package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Fetch and trial-scrape each configured venue, then exit.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp()
			if err != nil {
				return err
			}
			defer func() { _ = app.logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			venues := app.cfg.Venues
			cmd.Printf("Testing %d venues:\n\n", len(venues))

			failed := 0
			for _, v := range venues {
				count, err := app.orch.CheckVenue(ctx, v)
				if err != nil {
					failed++
					cmd.Printf("  %-40s failed: %v\n", v.Name, err)
					continue
				}
				cmd.Printf("  %-40s ok, %d events\n", v.Name, count)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d venues failed", failed, len(venues))
			}
			return nil
		},
	}
}
