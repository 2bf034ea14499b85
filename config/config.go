// Package config loads scraper defaults from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds defaults the command line flags start from.
type Config struct {
	AppEnv      string
	Headless    bool
	WaitTime    time.Duration
	MaxScrolls  int
	PageTimeout time.Duration
	ArchivePath string
}

// Load reads a .env file from the working directory when one exists, then the
// environment. Recognized variables: APP_ENV (prod), REVIEWS_HEADLESS (true),
// REVIEWS_WAIT_TIME seconds (10), REVIEWS_MAX_SCROLLS (30),
// REVIEWS_PAGE_TIMEOUT seconds (30), REVIEWS_ARCHIVE_DB (empty, disabled).
func Load() (*Config, error) {
	// a missing .env is fine
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:      env("APP_ENV", "prod"),
		ArchivePath: env("REVIEWS_ARCHIVE_DB", ""),
	}

	var err error
	if cfg.Headless, err = boolEnv("REVIEWS_HEADLESS", true); err != nil {
		return nil, err
	}
	if cfg.WaitTime, err = secondsEnv("REVIEWS_WAIT_TIME", 10); err != nil {
		return nil, err
	}
	if cfg.MaxScrolls, err = intEnv("REVIEWS_MAX_SCROLLS", 30); err != nil {
		return nil, err
	}
	if cfg.PageTimeout, err = secondsEnv("REVIEWS_PAGE_TIMEOUT", 30); err != nil {
		return nil, err
	}

	return cfg, nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func boolEnv(k string, def bool) (bool, error) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s has invalid boolean %q: %w", k, v, err)
	}
	return b, nil
}

func intEnv(k string, def int) (int, error) {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", k, v)
	}
	return n, nil
}

func secondsEnv(k string, def int) (time.Duration, error) {
	n, err := intEnv(k, def)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
