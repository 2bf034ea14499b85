package review

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseable is matched by every *ParseError.
var ErrUnparseable = errors.New("unparseable review time")

// ParseError reports relative time text that could not be resolved.
type ParseError struct {
	Text string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnparseable, e.Text)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrUnparseable
}

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day

	// maxLookback bounds N x unit so the subtraction cannot overflow.
	maxLookback = 100 * year
)

var (
	relativeRegex = regexp.MustCompile(`(?i)\b(\d+|an?|one)\s+(minute|hour|day|week|month|year)s?\s+ago\b`)

	units = map[string]time.Duration{
		"minute": time.Minute,
		"hour":   time.Hour,
		"day":    day,
		"week":   week,
		"month":  month,
		"year":   year,
	}
)

// ParseRelative resolves text such as "3 months ago" or "a week ago" against
// scrapedAt and returns the calendar day the review was written. Absolute
// "March 2022" text resolves to the 15th of that month.
func ParseRelative(text string, scrapedAt time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)

	if m := relativeRegex.FindStringSubmatch(text); m != nil {
		n, err := quantity(m[1])
		if err != nil {
			return time.Time{}, &ParseError{Text: text}
		}
		unit := units[strings.ToLower(m[2])]
		if n > int(maxLookback/unit) {
			return time.Time{}, &ParseError{Text: text}
		}

		var resolved time.Time
		if unit >= day {
			// whole days go through AddDate so DST shifts don't move the day
			resolved = scrapedAt.AddDate(0, 0, -n*int(unit/day))
		} else {
			resolved = scrapedAt.Add(-time.Duration(n) * unit)
		}
		if resolved.After(scrapedAt) {
			resolved = scrapedAt
		}
		return truncateDay(resolved), nil
	}

	if t, err := time.ParseInLocation("January 2006", text, scrapedAt.Location()); err == nil {
		resolved := t.AddDate(0, 0, 14)
		if resolved.After(scrapedAt) {
			resolved = scrapedAt
		}
		return truncateDay(resolved), nil
	}

	return time.Time{}, &ParseError{Text: text}
}

func quantity(s string) (int, error) {
	switch strings.ToLower(s) {
	case "a", "an", "one":
		return 1, nil
	}
	return strconv.Atoi(s)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
