package store

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupArchive opens a named shared in-memory archive unique to the test.
func setupArchive(t *testing.T) *Archive {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(ON)", url.PathEscape(t.Name()))
	a, err := openArchive(dsn)
	require.NoError(t, err)

	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestArchive_SaveAndReadRun(t *testing.T) {
	a := setupArchive(t)
	ctx := context.Background()
	want := sampleReviews()

	id, err := a.SaveRun(ctx, "Cafe Central", "https://maps.app.goo.gl/abc", scrapedAt, want)
	require.NoError(t, err)
	assert.Positive(t, id)

	got, err := a.RunReviews(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestArchive_Runs(t *testing.T) {
	a := setupArchive(t)
	ctx := context.Background()

	first, err := a.SaveRun(ctx, "Cafe Central", "u1", scrapedAt, sampleReviews())
	require.NoError(t, err)
	second, err := a.SaveRun(ctx, "Cafe Central", "u1", scrapedAt.Add(24*time.Hour), sampleReviews()[:1])
	require.NoError(t, err)
	empty, err := a.SaveRun(ctx, "Nowhere", "u2", scrapedAt.Add(-time.Hour), nil)
	require.NoError(t, err)

	runs, err := a.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	assert.Equal(t, second, runs[0].ID)
	assert.Equal(t, 1, runs[0].Reviews)
	assert.Equal(t, scrapedAt.Add(24*time.Hour), runs[0].ScrapedAt)

	assert.Equal(t, first, runs[1].ID)
	assert.Equal(t, 3, runs[1].Reviews)

	assert.Equal(t, empty, runs[2].ID)
	assert.Equal(t, "Nowhere", runs[2].Location)
	assert.Zero(t, runs[2].Reviews)
}

func TestArchive_MigrationsIdempotent(t *testing.T) {
	a := setupArchive(t)
	require.NoError(t, runMigrations(a.db))
}

func TestArchive_RunReviewsUnknownRun(t *testing.T) {
	a := setupArchive(t)

	got, err := a.RunReviews(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, got)
}
