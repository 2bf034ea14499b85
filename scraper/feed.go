package scraper

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
)

const (
	jiggleWait    = 2 * time.Second
	extendedWait  = 5 * time.Second
	stallLimit    = 2
	reviewNodeSel = "div.jftiEf"
)

// feed is the scrollable review list of a place page.
type feed interface {
	ReviewCount() (int, error)
	ScrollHeight() (int, error)
	ScrollToBottom() error
	ScrollToTop() error
}

type scrollOptions struct {
	maxReviews int
	maxScrolls int
	wait       time.Duration
	progress   io.Writer
	sleep      func(time.Duration)
	logger     zerolog.Logger
}

// scrollFeed scrolls f until maxReviews nodes are loaded, the scroll budget
// runs out or the feed stops growing. It returns the number of review nodes
// loaded.
func scrollFeed(f feed, opts scrollOptions) (int, error) {
	bar := newProgressBar(opts)
	defer bar.Finish()

	previousHeight := 0
	stalls := 0

	for i := 0; i < opts.maxScrolls; i++ {
		before, err := f.ReviewCount()
		if err != nil {
			return 0, err
		}
		if reachedMax(before, opts.maxReviews) {
			opts.logger.Info().Int("reviews", before).Msg("reached maximum requested reviews")
			return before, nil
		}

		if stalls > 0 {
			// jiggle the page, the feed sometimes only loads after the view resets
			if err := f.ScrollToTop(); err != nil {
				return 0, err
			}
			opts.sleep(jiggleWait)
		}

		if err := f.ScrollToBottom(); err != nil {
			return 0, err
		}
		opts.sleep(opts.wait)

		height, after, err := measure(f)
		if err != nil {
			return 0, err
		}

		if height == previousHeight && after == before {
			opts.logger.Debug().Int("scroll", i+1).Msg("no new content, retrying with a longer wait")
			if err := f.ScrollToBottom(); err != nil {
				return 0, err
			}
			opts.sleep(opts.wait + extendedWait)

			if height, after, err = measure(f); err != nil {
				return 0, err
			}
		}

		if height == previousHeight && after == before {
			stalls++
			if stalls >= stallLimit {
				opts.logger.Info().Int("reviews", after).Int("attempts", stalls).Msg("no more reviews loading")
				return after, nil
			}
		} else {
			stalls = 0
		}

		previousHeight = height
		_ = bar.Add(1)
		opts.logger.Debug().Int("scroll", i+1).Int("reviews", after).Msg("scrolled review feed")

		if reachedMax(after, opts.maxReviews) {
			opts.logger.Info().Int("reviews", after).Msg("reached maximum requested reviews")
			return after, nil
		}
	}

	return f.ReviewCount()
}

func measure(f feed) (height, count int, err error) {
	if height, err = f.ScrollHeight(); err != nil {
		return 0, 0, err
	}
	if count, err = f.ReviewCount(); err != nil {
		return 0, 0, err
	}
	return height, count, nil
}

func reachedMax(count, maxReviews int) bool {
	return maxReviews > 0 && count >= maxReviews
}

func newProgressBar(opts scrollOptions) *progressbar.ProgressBar {
	w := opts.progress
	if w == nil {
		w = io.Discard
	}
	return progressbar.NewOptions(opts.maxScrolls,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("scrolling reviews"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
