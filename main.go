package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"mapsreviews/config"
)

type options struct {
	url         string
	output      string
	maxReviews  int
	waitTime    int
	plot        bool
	plotOutput  string
	loadReviews string
	headless    bool
	archive     string
	install     bool
	logFile     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		cfg = &config.Config{AppEnv: "prod", Headless: true, WaitTime: 10 * time.Second, MaxScrolls: 30, PageTimeout: 30 * time.Second}
	}

	opts := &options{}
	cmd := &cobra.Command{
		Use:   "mapsreviews",
		Short: "Scrape Google Maps reviews",
		Long: `mapsreviews loads the reviews of a Google Maps place in a headless browser,
resolves their relative dates ("3 months ago") against the scrape time and saves
them to CSV. It can also chart the average rating and review count per month,
from a fresh scrape or from a previously saved CSV.`,
		Example: `  mapsreviews -u https://maps.app.goo.gl/aJCRiy3C5gtoBZpJ7 -o reviews.csv -m 500 -p
  mapsreviews -l reviews.csv -p --plot-output monthly_reviews.png`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return cfgErr
			}
			if opts.url == "" && opts.loadReviews == "" {
				return fmt.Errorf("either --url or --load-reviews must be specified")
			}
			if opts.maxReviews < 0 {
				return fmt.Errorf("--max-reviews must not be negative")
			}
			if opts.waitTime <= 0 {
				return fmt.Errorf("--wait-time must be positive")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, cfg, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.url, "url", "u", "", "Google Maps URL to scrape")
	flags.StringVarP(&opts.output, "output", "o", "", "Path to save CSV file")
	flags.IntVarP(&opts.maxReviews, "max-reviews", "m", 0, "Maximum number of reviews to scrape (0 for all)")
	flags.IntVarP(&opts.waitTime, "wait-time", "w", int(cfg.WaitTime/time.Second), "Time to wait between scrolls in seconds")
	flags.BoolVarP(&opts.plot, "plot", "p", false, "Generate a plot of average reviews by month")
	flags.StringVar(&opts.plotOutput, "plot-output", "reviews_by_month.png", "Path to save the plot image")
	flags.StringVarP(&opts.loadReviews, "load-reviews", "l", "", "Load previously scraped reviews from CSV file instead of scraping")
	flags.BoolVar(&opts.headless, "headless", cfg.Headless, "Run the browser without a window")
	flags.StringVar(&opts.archive, "archive", cfg.ArchivePath, "SQLite file to archive scraped runs in")
	flags.BoolVar(&opts.install, "install", false, "Install the Chromium build used for scraping first")
	flags.StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of stdout")

	return cmd
}
