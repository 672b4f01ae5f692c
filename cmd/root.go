// Package cmd wires the command-line interface for the scraper service.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mwhitten/stagehand/internal/calendar"
	"github.com/mwhitten/stagehand/internal/config"
	"github.com/mwhitten/stagehand/internal/extract"
	"github.com/mwhitten/stagehand/internal/fetch"
	"github.com/mwhitten/stagehand/internal/logging"
	"github.com/mwhitten/stagehand/internal/output"
	"github.com/mwhitten/stagehand/internal/scheduler"
	"github.com/mwhitten/stagehand/internal/scrape"
)

var (
	cfgFile string
	devLog  bool
)

// app bundles the assembled collaborators a command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	sched  *scheduler.Scheduler
	writer *output.Writer
	orch   *scrape.Orchestrator
}

// buildApp loads configuration and assembles the scraping pipeline.
func buildApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(devLog || cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	client := fetch.New(fetch.Config{
		UserAgent: cfg.Scraping.UserAgent,
		Timeout:   cfg.Scraping.Timeout(),
	})
	registry := extract.NewRegistry(client, logger)
	orchestrator := scrape.New(client, registry, scrape.Options{
		Concurrency:   cfg.Scraping.MaxConcurrentScrapes,
		RetryAttempts: cfg.Scraping.RetryAttempts,
		Delay:         cfg.Scraping.Delay(),
	}, logger)

	writer, err := output.NewWriter(cfg.Scraping.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("prepare output directory: %w", err)
	}

	sched := scheduler.New(
		scheduler.StaticVenues(cfg.VenuePointers()),
		orchestrator,
		calendar.NewBuilder(logger),
		writer,
		scheduler.Config{
			Interval:         cfg.Scheduler.Interval,
			ErrorBackoff:     cfg.Scheduler.ErrorBackoff,
			CalendarTitle:    cfg.Scraping.CalendarTitle,
			CalendarFileName: cfg.Scraping.CalendarFileName,
		},
		logger,
	)

	return &app{cfg: cfg, logger: logger, sched: sched, writer: writer, orch: orchestrator}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stagehand",
		Short: "Harvests theater event listings into calendar and JSON artifacts.",
		Long: `stagehand periodically scrapes theater-venue websites, normalizes
their listings into canonical event records, deduplicates across sources,
and writes an iCalendar feed, a JSON snapshot, and aggregate statistics
for downstream display tooling.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file (default: ./config.{yaml,json,toml})")
	cmd.PersistentFlags().BoolVar(&devLog, "dev", false, "use human-readable development logging")

	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTestCmd())
	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
