package scraper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog"

	"mapsreviews/review"
)

const unknownLocation = "Unknown Location"

var (
	ErrNoReviewsTab = errors.New("reviews tab not found")

	feedSelectors = []string{
		".m6QErb.DxyBCb.kA9KIf.dS8AEf",
		".m6QErb.DxyBCb.kA9KIf",
		"div[role='feed']",
		".lXJj5c.Hk4XGb",
	}
	menuItemSelectors = []string{
		"div[role='menuitemradio']",
		"div[role='menuitem']",
		".yr2tVc,.fxNQSd",
	}
)

type Scraper struct {
	Pw      *playwright.Playwright
	Browser playwright.Browser
	Page    playwright.Page
	Config  ScraperConfig

	log   zerolog.Logger
	sleep func(time.Duration)
}

// Result is what a scrape of one place produced.
type Result struct {
	Location  string
	ScrapedAt time.Time
	Reviews   []review.Review
}

// Install downloads the Chromium build Playwright drives.
func Install() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

func NewScraper(config ScraperConfig, logger zerolog.Logger) (*Scraper, error) {
	if config.URL == "" {
		return nil, errors.New("url is required")
	}
	if config.MaxReviews < 0 {
		return nil, errors.New("max reviews must not be negative")
	}
	if config.WaitTime <= 0 {
		config.WaitTime = DefaultWaitTime
	}
	if config.MaxScrolls <= 0 {
		config.MaxScrolls = DefaultMaxScrolls
	}
	if config.PageTimeout <= 0 {
		config.PageTimeout = DefaultPageTimeout
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("error starting playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(config.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
			"--disable-extensions",
			"--disable-infobars",
			"--blink-settings=imagesEnabled=false",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("error launching browser: %w", err)
	}

	s := &Scraper{Pw: pw, Browser: browser, Config: config, log: logger, sleep: time.Sleep}

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport:  &playwright.Size{Width: 1920, Height: 1080},
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("error creating browser context: %w", err)
	}

	page, err := browserContext.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("error opening page: %w", err)
	}
	page.SetDefaultTimeout(milliseconds(config.PageTimeout))
	s.Page = page

	logger.Info().Str("url", config.URL).Msg("navigating")
	if _, err = page.Goto(config.URL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(milliseconds(config.PageTimeout)),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		s.Close()
		return nil, fmt.Errorf("error loading %s: %w", config.URL, err)
	}

	return s, nil
}

// Scrape collects the reviews of the place the page was opened on, newest
// first.
func (s *Scraper) Scrape() (Result, error) {
	location, err := s.locationName()
	if err != nil {
		return Result{}, err
	}

	if err := s.openReviews(); err != nil {
		return Result{}, err
	}

	if err := s.sortByNewest(); err != nil {
		s.log.Warn().Err(err).Msg("could not sort reviews by newest")
		s.saveScreenshot()
	}

	fragments, err := s.loadFragments()
	if err != nil {
		return Result{}, err
	}

	scrapedAt := time.Now().UTC().Truncate(time.Second)
	reviews := ParseFragments(fragments, location, scrapedAt, s.log)
	s.log.Info().Str("location", location).Int("reviews", len(reviews)).Msg("scraped reviews")

	return Result{Location: location, ScrapedAt: scrapedAt, Reviews: reviews}, nil
}

func (s *Scraper) Close() error {
	var closeBrowser func() error
	if s.Browser != nil {
		closeBrowser = func() error { return s.Browser.Close() }
	}
	return shutdown(closeBrowser, s.Pw.Stop)
}

// shutdown stops the driver even when closing the browser fails.
func shutdown(closeBrowser, stopDriver func() error) error {
	var browserErr error
	if closeBrowser != nil {
		if err := closeBrowser(); err != nil {
			browserErr = fmt.Errorf("error closing browser: %w", err)
		}
	}
	return errors.Join(browserErr, stopDriver())
}

func (s *Scraper) locationName() (string, error) {
	// the place panel
	if err := s.Page.Locator(".lMbq3e").First().WaitFor(); err != nil {
		return "", fmt.Errorf("error waiting for place panel: %w", err)
	}

	name, err := s.Page.Locator("h1.DUwDvf").First().InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(2000),
	})
	if name = cleanText(name); err != nil || name == "" {
		s.log.Warn().Msg("could not extract location name")
		return unknownLocation, nil
	}

	s.log.Info().Str("location", name).Msg("found location")
	return name, nil
}

func (s *Scraper) openReviews() error {
	tab := s.Page.Locator("button[data-tab-index='1']")
	if n, err := tab.Count(); err != nil || n == 0 {
		return ErrNoReviewsTab
	}

	if err := tab.First().Click(); err != nil {
		return fmt.Errorf("error clicking reviews tab: %w", err)
	}

	s.sleep(2 * time.Second)
	return nil
}

func (s *Scraper) sortByNewest() error {
	sortButton := s.Page.Locator("button[data-value='Sort']").First()
	if _, err := sortButton.Evaluate("el => el.click()", nil); err != nil {
		return fmt.Errorf("error clicking sort button: %w", err)
	}
	s.sleep(3 * time.Second)

	var items []playwright.Locator
	for _, selector := range menuItemSelectors {
		found, err := s.Page.Locator(selector).All()
		if err != nil {
			return fmt.Errorf("error listing sort menu: %w", err)
		}
		if len(found) > 0 {
			items = found
			break
		}
	}

	labels := make([]string, len(items))
	for i, item := range items {
		text, err := item.InnerText()
		if err != nil {
			return fmt.Errorf("error reading sort menu item: %w", err)
		}
		labels[i] = text
	}

	idx := newestOption(labels)
	if idx < 0 {
		return errors.New("newest option not found in sort menu")
	}

	if _, err := items[idx].Evaluate("el => el.click()", nil); err != nil {
		return fmt.Errorf("error clicking %q: %w", labels[idx], err)
	}
	s.sleep(3 * time.Second)

	s.log.Info().Str("option", cleanText(labels[idx])).Msg("sorted reviews")
	return nil
}

// newestOption picks the sort menu entry for newest-first ordering. Google
// Maps usually lists it second, which is the fallback when no label matches.
func newestOption(labels []string) int {
	for i, label := range labels {
		if strings.Contains(strings.ToLower(label), "newest") {
			return i
		}
	}
	if len(labels) >= 2 {
		return 1
	}
	return -1
}

func (s *Scraper) loadFragments() ([]string, error) {
	f := &pageFeed{page: s.Page}
	for _, selector := range feedSelectors {
		if n, err := s.Page.Locator(selector).Count(); err == nil && n > 0 {
			f.container = s.Page.Locator(selector).First()
			s.log.Debug().Str("selector", selector).Msg("found review feed")
			break
		}
	}
	if f.container == nil {
		s.log.Debug().Msg("review feed not found, scrolling the window")
	}

	if _, err := scrollFeed(f, scrollOptions{
		maxReviews: s.Config.MaxReviews,
		maxScrolls: s.Config.MaxScrolls,
		wait:       s.Config.WaitTime,
		progress:   s.Config.Progress,
		sleep:      s.sleep,
		logger:     s.log,
	}); err != nil {
		return nil, fmt.Errorf("error scrolling reviews: %w", err)
	}

	s.sleep(min(5*time.Second, s.Config.WaitTime/2))

	raw, err := s.Page.Locator(reviewNodeSel).EvaluateAll("els => els.map(e => e.outerHTML)")
	if err != nil {
		return nil, fmt.Errorf("error reading review nodes: %w", err)
	}

	nodes, _ := raw.([]interface{})
	fragments := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if html, ok := n.(string); ok {
			fragments = append(fragments, html)
		}
	}
	if s.Config.MaxReviews > 0 && len(fragments) > s.Config.MaxReviews {
		fragments = fragments[:s.Config.MaxReviews]
	}

	s.log.Info().Int("elements", len(fragments)).Msg("found review elements")
	return fragments, nil
}

func (s *Scraper) saveScreenshot() {
	if s.Config.ScreenshotPath == "" {
		return
	}
	if _, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path: playwright.String(s.Config.ScreenshotPath),
	}); err != nil {
		s.log.Warn().Err(err).Msg("could not save screenshot")
		return
	}
	s.log.Info().Str("path", s.Config.ScreenshotPath).Msg("saved screenshot")
}

// pageFeed scrolls the review container when one was found and the window
// in any case.
type pageFeed struct {
	page      playwright.Page
	container playwright.Locator
}

func (p *pageFeed) ReviewCount() (int, error) {
	return p.page.Locator(reviewNodeSel).Count()
}

func (p *pageFeed) ScrollHeight() (int, error) {
	v, err := p.page.Evaluate("document.body.scrollHeight")
	if err != nil {
		return 0, err
	}
	return toInt(v), nil
}

func (p *pageFeed) ScrollToBottom() error {
	if p.container != nil {
		// best effort, the window scroll below still runs
		_, _ = p.container.Evaluate("el => { el.scrollTop = el.scrollHeight }", nil)
	}
	_, err := p.page.Evaluate("window.scrollTo(0, document.body.scrollHeight)")
	return err
}

func (p *pageFeed) ScrollToTop() error {
	_, err := p.page.Evaluate("window.scrollTo(0, 0)")
	return err
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func milliseconds(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
