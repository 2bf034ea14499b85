package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapsreviews/review"
	"mapsreviews/scraper"
	"mapsreviews/store"
)

var scrapedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fakeResult() scraper.Result {
	mk := func(name string, rating int, text string, y int, m time.Month, d int) review.Review {
		return review.Review{
			Location:     "Cafe Central",
			Reviewer:     name,
			Rating:       rating,
			RelativeTime: text,
			ScrapedAt:    scrapedAt,
			ResolvedDate: time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		}
	}
	return scraper.Result{
		Location:  "Cafe Central",
		ScrapedAt: scrapedAt,
		Reviews: []review.Review{
			mk("Ann", 5, "2 days ago", 2025, 2, 27),
			mk("Ben", 4, "a month ago", 2025, 1, 30),
			mk("Cid", 2, "3 months ago", 2024, 12, 1),
		},
	}
}

func stubScrape(t *testing.T, result scraper.Result, err error) *scraper.ScraperConfig {
	t.Helper()
	var got scraper.ScraperConfig
	orig := scrapeReviews
	scrapeReviews = func(config scraper.ScraperConfig, _ zerolog.Logger) (scraper.Result, error) {
		got = config
		return result, err
	}
	t.Cleanup(func() { scrapeReviews = orig })
	return &got
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRun_RequiresURLOrCSV(t *testing.T) {
	_, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--url or --load-reviews")
}

func TestRun_ScrapeSavesCSVArchiveAndPlot(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "reviews.csv")
	plotPath := filepath.Join(dir, "monthly.png")
	dbPath := filepath.Join(dir, "reviews.db")
	got := stubScrape(t, fakeResult(), nil)

	out, err := execute(t,
		"-u", "https://maps.app.goo.gl/abc",
		"-o", csvPath,
		"-m", "10",
		"-w", "3",
		"-p", "--plot-output", plotPath,
		"--archive", dbPath,
	)
	require.NoError(t, err)

	assert.Equal(t, "https://maps.app.goo.gl/abc", got.URL)
	assert.Equal(t, 10, got.MaxReviews)
	assert.Equal(t, 3*time.Second, got.WaitTime)

	assert.Contains(t, out, "Total reviews: 3")
	assert.Contains(t, out, "Note: Requested 10 reviews but could only find 3")
	assert.Contains(t, out, "Ann")

	saved, err := store.LoadCSV(csvPath, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, fakeResult().Reviews, saved)

	assert.FileExists(t, plotPath)

	a, err := store.OpenArchive(dbPath)
	require.NoError(t, err)
	defer a.Close()
	runs, err := a.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "Cafe Central", runs[0].Location)
	assert.Equal(t, 3, runs[0].Reviews)
}

func TestRun_ScrapeFailureIsFatal(t *testing.T) {
	stubScrape(t, scraper.Result{}, scraper.ErrNoReviewsTab)

	_, err := execute(t, "-u", "https://maps.app.goo.gl/abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, scraper.ErrNoReviewsTab))
}

func TestRun_NoReviewsFound(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "reviews.csv")
	stubScrape(t, scraper.Result{Location: "Empty"}, nil)

	out, err := execute(t, "-u", "https://maps.app.goo.gl/abc", "-o", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "no reviews were found")
	assert.NoFileExists(t, csvPath)
}

func TestRun_LoadReviewsAndPlot(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "reviews.csv")
	plotPath := filepath.Join(dir, "monthly.png")
	outPath := filepath.Join(dir, "ignored.csv")
	require.NoError(t, store.SaveCSV(csvPath, fakeResult().Reviews))
	stubScrape(t, scraper.Result{}, errors.New("browser must not start"))

	out, err := execute(t, "-l", csvPath, "-o", outPath, "-m", "10", "-p", "--plot-output", plotPath)
	require.NoError(t, err)

	assert.Contains(t, out, "Total reviews: 3")
	assert.NotContains(t, out, "Note: Requested")
	assert.FileExists(t, plotPath)
	assert.NoFileExists(t, outPath)
}

func TestRun_LoadReviewsMissingFile(t *testing.T) {
	_, err := execute(t, "-l", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading reviews from CSV")
}

func TestRun_LogFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "reviews.csv")
	logPath := filepath.Join(dir, "log.txt")
	require.NoError(t, store.SaveCSV(csvPath, fakeResult().Reviews))

	out, err := execute(t, "-l", csvPath, "--log-file", logPath)
	require.NoError(t, err)
	assert.NotContains(t, out, "loaded reviews")
	assert.FileExists(t, logPath)
}

func TestRun_LogsStayOffStdout(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "reviews.csv")
	require.NoError(t, store.SaveCSV(csvPath, fakeResult().Reviews))

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"-l", csvPath})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, stdout.String(), "Total reviews: 3")
	assert.NotContains(t, stdout.String(), "loaded reviews")
	assert.Contains(t, stderr.String(), "loaded reviews")
	assert.NotContains(t, stderr.String(), "Total reviews")
}

func TestPrintPreview_LimitsRows(t *testing.T) {
	var reviews []review.Review
	for i := 0; i < 8; i++ {
		reviews = append(reviews, fakeResult().Reviews[0])
	}

	var buf bytes.Buffer
	printPreview(&buf, reviews)
	// header plus five rows
	assert.Equal(t, previewRows+1, bytes.Count(buf.Bytes(), []byte("\n")))
}
