package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mapsreviews/config"
	"mapsreviews/logging"
	"mapsreviews/report"
	"mapsreviews/review"
	"mapsreviews/scraper"
	"mapsreviews/store"
)

const previewRows = 5

// scrapeReviews is swapped out in tests so the pipeline runs without a browser.
var scrapeReviews = func(config scraper.ScraperConfig, logger zerolog.Logger) (scraper.Result, error) {
	s, err := scraper.NewScraper(config, logger)
	if err != nil {
		return scraper.Result{}, err
	}
	defer func() {
		if err := s.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing browser")
		}
	}()

	return s.Scrape()
}

func run(cmd *cobra.Command, cfg *config.Config, opts *options) error {
	out := cmd.OutOrStdout()

	logOut := cmd.ErrOrStderr()
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := logging.NewLogger(cfg.AppEnv, logOut)
	log.Logger = logger

	var reviews []review.Review
	if opts.loadReviews != "" {
		logger.Info().Str("path", opts.loadReviews).Msg("loading reviews")
		loaded, err := store.LoadCSV(opts.loadReviews, logger)
		if err != nil {
			return fmt.Errorf("error loading reviews from CSV: %w", err)
		}
		logger.Info().Int("reviews", len(loaded)).Msg("loaded reviews")
		reviews = loaded
	} else {
		scraped, err := scrape(cmd.Context(), cfg, opts, logger)
		if err != nil {
			return err
		}
		reviews = scraped
	}

	if len(reviews) == 0 {
		logger.Warn().Msg("no reviews were found")
		return nil
	}

	printPreview(out, reviews)
	fmt.Fprintf(out, "Total reviews: %d\n", len(reviews))
	if opts.loadReviews == "" && opts.maxReviews > 0 && len(reviews) < opts.maxReviews {
		fmt.Fprintf(out, "Note: Requested %d reviews but could only find %d\n", opts.maxReviews, len(reviews))
	}

	if opts.plot {
		stats := review.Aggregate(reviews)
		if err := report.PlotMonthly(stats, opts.plotOutput); err != nil {
			return fmt.Errorf("error generating plot: %w", err)
		}
		logger.Info().Str("path", opts.plotOutput).Int("months", len(stats)).Msg("review plot saved")
	}

	return nil
}

func scrape(ctx context.Context, cfg *config.Config, opts *options, logger zerolog.Logger) ([]review.Review, error) {
	if opts.install {
		logger.Info().Msg("installing chromium")
		if err := scraper.Install(); err != nil {
			return nil, fmt.Errorf("error installing browser: %w", err)
		}
	}

	sc := scraper.NewConfig(opts.url, opts.maxReviews, time.Duration(opts.waitTime)*time.Second, opts.headless)
	sc.MaxScrolls = cfg.MaxScrolls
	sc.PageTimeout = cfg.PageTimeout

	result, err := scrapeReviews(sc, logger)
	if err != nil {
		return nil, fmt.Errorf("error scraping reviews: %w", err)
	}

	if len(result.Reviews) == 0 {
		return nil, nil
	}

	if opts.output != "" {
		if err := store.SaveCSV(opts.output, result.Reviews); err != nil {
			return nil, fmt.Errorf("error saving reviews: %w", err)
		}
		logger.Info().Str("path", opts.output).Msg("reviews saved")
	}

	if opts.archive != "" {
		if err := archiveRun(ctx, opts.archive, opts.url, result); err != nil {
			return nil, err
		}
	}

	return result.Reviews, nil
}

func archiveRun(ctx context.Context, path, url string, result scraper.Result) error {
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := store.OpenArchive(path)
	if err != nil {
		return fmt.Errorf("error opening archive: %w", err)
	}

	id, err := a.SaveRun(ctx, result.Location, url, result.ScrapedAt, result.Reviews)
	err = errors.Join(err, a.Close())
	if err != nil {
		return fmt.Errorf("error archiving run: %w", err)
	}

	log.Info().Int64("run", id).Str("path", path).Msg("run archived")
	return nil
}

func printPreview(w io.Writer, reviews []review.Review) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REVIEWER\tRATING\tTIME\tDATE")
	for _, r := range reviews[:min(previewRows, len(reviews))] {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Reviewer, r.Rating, r.RelativeTime, r.ResolvedDate.Format("2006-01-02"))
	}
	tw.Flush()
}
