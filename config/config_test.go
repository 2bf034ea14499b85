package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "REVIEWS_HEADLESS", "REVIEWS_WAIT_TIME", "REVIEWS_MAX_SCROLLS", "REVIEWS_PAGE_TIMEOUT", "REVIEWS_ARCHIVE_DB"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.AppEnv)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 10*time.Second, cfg.WaitTime)
	assert.Equal(t, 30, cfg.MaxScrolls)
	assert.Equal(t, 30*time.Second, cfg.PageTimeout)
	assert.Empty(t, cfg.ArchivePath)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("REVIEWS_HEADLESS", "false")
	t.Setenv("REVIEWS_WAIT_TIME", "3")
	t.Setenv("REVIEWS_MAX_SCROLLS", "50")
	t.Setenv("REVIEWS_PAGE_TIMEOUT", "45")
	t.Setenv("REVIEWS_ARCHIVE_DB", "reviews.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.AppEnv)
	assert.False(t, cfg.Headless)
	assert.Equal(t, 3*time.Second, cfg.WaitTime)
	assert.Equal(t, 50, cfg.MaxScrolls)
	assert.Equal(t, 45*time.Second, cfg.PageTimeout)
	assert.Equal(t, "reviews.db", cfg.ArchivePath)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"REVIEWS_HEADLESS":    "sometimes",
		"REVIEWS_WAIT_TIME":   "ten",
		"REVIEWS_MAX_SCROLLS": "-1",
	}

	for k, v := range tests {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), k)
		})
	}
}
