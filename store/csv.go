package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mapsreviews/review"
)

const dateLayout = "2006-01-02"

var header = []string{"location", "reviewer_name", "rating", "time_text", "resolved_date", "scraped_at"}

// SaveCSV writes reviews to path, replacing any existing file.
func SaveCSV(path string, reviews []review.Review) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}

	if err := WriteCSV(f, reviews); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func WriteCSV(w io.Writer, reviews []review.Review) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header to CSV: %w", err)
	}

	for _, r := range reviews {
		record := []string{
			r.Location,
			r.Reviewer,
			strconv.Itoa(r.Rating),
			r.RelativeTime,
			r.ResolvedDate.Format(dateLayout),
			r.ScrapedAt.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record to CSV: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func LoadCSV(path string, logger zerolog.Logger) ([]review.Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	reviews, err := ReadCSV(f, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reviews, nil
}

// ReadCSV reads reviews by column name. Besides its own layout it accepts the
// exact_time and datetime columns older exports used, and re-resolves dates
// from time_text and scraped_at when no date column is present. Rows whose
// time text cannot be resolved, or whose date falls after scraped_at, are
// logged and left out; any other malformed row is an error.
func ReadCSV(r io.Reader, logger zerolog.Logger) ([]review.Review, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	head, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := make(map[string]int, len(head))
	for i, name := range head {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	if _, ok := cols["rating"]; !ok {
		return nil, errors.New("missing rating column")
	}
	dateCol := ""
	for _, name := range []string{"resolved_date", "exact_time", "datetime"} {
		if _, ok := cols[name]; ok {
			dateCol = name
			break
		}
	}
	if dateCol == "" {
		_, hasText := cols["time_text"]
		_, hasScraped := cols["scraped_at"]
		if !hasText || !hasScraped {
			return nil, errors.New("missing date column: need resolved_date, or time_text with scraped_at")
		}
	}

	var reviews []review.Review
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		line, _ := reader.FieldPos(0)

		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(record) {
				return strings.TrimSpace(record[i])
			}
			return ""
		}

		rv := review.Review{
			Location:     get("location"),
			Reviewer:     get("reviewer_name"),
			RelativeTime: get("time_text"),
		}

		if rv.Rating, err = parseRating(get("rating")); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if s := get("scraped_at"); s != "" {
			if rv.ScrapedAt, err = parseTimestamp(s); err != nil {
				return nil, fmt.Errorf("line %d: invalid scraped_at %q: %w", line, s, err)
			}
		}

		if dateCol != "" {
			s := get(dateCol)
			if rv.ResolvedDate, err = parseTimestamp(s); err != nil {
				return nil, fmt.Errorf("line %d: invalid %s %q: %w", line, dateCol, s, err)
			}
		} else if rv.ResolvedDate, err = review.ParseRelative(rv.RelativeTime, rv.ScrapedAt); err != nil {
			if errors.Is(err, review.ErrUnparseable) {
				logger.Warn().Err(err).Int("line", line).Msg("skipping review")
				continue
			}
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		if !rv.ScrapedAt.IsZero() && rv.ResolvedDate.After(rv.ScrapedAt) {
			logger.Warn().Int("line", line).
				Time("resolved_date", rv.ResolvedDate).
				Time("scraped_at", rv.ScrapedAt).
				Msg("skipping review dated after its scrape")
			continue
		}

		reviews = append(reviews, rv)
	}

	return reviews, nil
}

func parseRating(s string) (int, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rating %q: %w", s, err)
	}
	rating := int(math.Round(v))
	if !review.ValidRating(rating) {
		return 0, fmt.Errorf("rating %q out of range", s)
	}
	return rating, nil
}

// parseTimestamp accepts dates and the timestamp layouts spreadsheet tools
// tend to write back.
func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range []string{dateLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999", "2006-01-02 15:04:05"} {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
