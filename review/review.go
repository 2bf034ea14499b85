package review

import "time"

const UnknownReviewer = "Unknown Reviewer"

// Review is one parsed Google Maps review. ResolvedDate never falls after
// ScrapedAt.
type Review struct {
	Location     string
	Reviewer     string
	Rating       int
	RelativeTime string
	ScrapedAt    time.Time
	ResolvedDate time.Time
}

// ValidRating reports whether r is a Google Maps star rating.
func ValidRating(r int) bool {
	return r >= 1 && r <= 5
}
