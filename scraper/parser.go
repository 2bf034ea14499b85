package scraper

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"mapsreviews/review"
)

var (
	errNoRating = errors.New("rating not found")
	errNoTime   = errors.New("review time not found")
)

// ParseFragment turns the outer HTML of one review node into a Review.
func ParseFragment(fragment, location string, scrapedAt time.Time) (review.Review, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return review.Review{}, fmt.Errorf("error reading review fragment: %w", err)
	}

	label, ok := doc.Find("span.kvMYJc").First().Attr("aria-label")
	if !ok {
		return review.Review{}, errNoRating
	}
	rating, err := parseRating(label)
	if err != nil {
		return review.Review{}, err
	}

	timeText := cleanText(doc.Find("span.rsqaWe").First().Text())
	if timeText == "" {
		return review.Review{}, errNoTime
	}
	resolved, err := review.ParseRelative(timeText, scrapedAt)
	if err != nil {
		return review.Review{}, err
	}

	return review.Review{
		Location:     location,
		Reviewer:     reviewerName(doc),
		Rating:       rating,
		RelativeTime: timeText,
		ScrapedAt:    scrapedAt,
		ResolvedDate: resolved,
	}, nil
}

// ParseFragments parses a batch in order. Fragments that fail are logged and
// left out.
func ParseFragments(fragments []string, location string, scrapedAt time.Time, logger zerolog.Logger) []review.Review {
	reviews := make([]review.Review, 0, len(fragments))
	for i, fragment := range fragments {
		r, err := ParseFragment(fragment, location, scrapedAt)
		if err != nil {
			logger.Warn().Err(err).Int("index", i).Msg("skipping review")
			continue
		}
		reviews = append(reviews, r)
	}
	return reviews
}

// parseRating reads the leading number of an aria-label such as "5 stars" or
// "4,0 étoiles".
func parseRating(label string) (int, error) {
	fields := strings.Fields(label)
	if len(fields) == 0 {
		return 0, errNoRating
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing rating %q: %w", label, err)
	}

	rating := int(math.Round(value))
	if !review.ValidRating(rating) {
		return 0, fmt.Errorf("rating %q out of range", label)
	}
	return rating, nil
}

func reviewerName(doc *goquery.Document) string {
	for _, selector := range []string{"div.d4r55", "span.X7jCAb"} {
		if name := cleanText(doc.Find(selector).First().Text()); name != "" {
			return name
		}
	}
	return review.UnknownReviewer
}

func cleanText(text string) string {
	// collapses newlines, tabs and repeated spaces
	return strings.Join(strings.Fields(text), " ")
}
