package review

import (
	"slices"
	"time"
)

// MonthlyStat summarizes the reviews resolved into one calendar month.
type MonthlyStat struct {
	Month     time.Time // first day of the month, UTC
	AvgRating float64
	Count     int
}

// Aggregate groups reviews by the month of their resolved date and returns
// one stat per month present, oldest first.
func Aggregate(reviews []Review) []MonthlyStat {
	type bucket struct {
		sum   int
		count int
	}

	buckets := make(map[time.Time]*bucket)
	for _, r := range reviews {
		y, m, _ := r.ResolvedDate.Date()
		key := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)

		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.sum += r.Rating
		b.count++
	}

	stats := make([]MonthlyStat, 0, len(buckets))
	for month, b := range buckets {
		stats = append(stats, MonthlyStat{
			Month:     month,
			AvgRating: float64(b.sum) / float64(b.count),
			Count:     b.count,
		})
	}

	slices.SortFunc(stats, func(a, b MonthlyStat) int {
		return a.Month.Compare(b.Month)
	})

	return stats
}
