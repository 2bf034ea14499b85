package scraper

import (
	"io"
	"os"
	"time"
)

const (
	DefaultWaitTime    = 10 * time.Second
	DefaultMaxScrolls  = 30
	DefaultPageTimeout = 30 * time.Second

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

type ScraperConfig struct {
	Headless    bool
	URL         string
	MaxReviews  int // 0 loads everything the feed offers
	WaitTime    time.Duration
	MaxScrolls  int
	PageTimeout time.Duration

	// ScreenshotPath is written when sorting by newest fails. Empty disables it.
	ScreenshotPath string
	// Progress receives the scroll progress bar. Nil disables it.
	Progress io.Writer
}

func NewConfig(url string, maxReviews int, waitTime time.Duration, headless bool) ScraperConfig {
	return ScraperConfig{
		Headless:       headless,
		URL:            url,
		MaxReviews:     maxReviews,
		WaitTime:       waitTime,
		MaxScrolls:     DefaultMaxScrolls,
		PageTimeout:    DefaultPageTimeout,
		ScreenshotPath: "sort_error.png",
		Progress:       os.Stderr,
	}
}
