package gflights

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"flight-sniper/config"
	"flight-sniper/models"
	"flight-sniper/scraper"
	"flight-sniper/utils"
)

// Fetcher drives a headless Chrome against the Google Flights results page.
type Fetcher struct {
	cfg    *config.Config
	logger *utils.Logger
}

// New creates a ready-to-use Google Flights Fetcher.
func New(cfg *config.Config, logger *utils.Logger) *Fetcher {
	return &Fetcher{cfg: cfg, logger: logger.With("component", "gflights")}
}

// Open starts the browser. The returned session owns it until Close.
func (f *Fetcher) Open(ctx context.Context) (scraper.Session, error) {
	chromeBin := findChromeBinary(f.cfg.ChromeBin)
	f.logger.Info("[gflights] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("lang", "pt-BR"),
		chromedp.WindowSize(1280, 900),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)

	// Suppress chromedp log noise
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	// An empty Run launches the browser, so a missing binary fails here and not on day one.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("gflights: start browser: %w: %w", scraper.ErrSessionLost, err)
	}

	s := &session{
		browserCtx:  browserCtx,
		cancel:      func() { cancelBrowser(); cancelAlloc() },
		logger:      f.logger,
		pageTimeout: f.cfg.PageTimeout,
		renderWait:  f.cfg.RenderWait,
	}
	s.retry = &utils.RetryConfig{
		MaxAttempts: f.cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		Logger:      f.logger,
		Retryable:   func(error) bool { return s.browserCtx.Err() == nil },
	}
	return s, nil
}

type session struct {
	browserCtx  context.Context
	cancel      func()
	logger      *utils.Logger
	retry       *utils.RetryConfig
	pageTimeout time.Duration
	renderWait  time.Duration
}

// FetchCandidates loads the results page for one date in a fresh tab and
// returns its offer cards.
func (s *session) FetchCandidates(ctx context.Context, route models.Route, date time.Time) ([]models.CandidateBlock, string, error) {
	url := scraper.SearchURL(route, date)
	day := date.Format(models.DateLayout)

	var page string
	err := s.retry.Do(ctx, "load-"+route.String()+"-"+day, func() error {
		if s.browserCtx.Err() != nil {
			return scraper.ErrSessionLost
		}

		tabCtx, cancel := chromedp.NewContext(s.browserCtx)
		defer cancel()

		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, s.pageTimeout)
		defer cancelTimeout()

		stop := context.AfterFunc(ctx, cancelTimeout)
		defer stop()

		if err := chromedp.Run(tabCtx,
			chromedp.Navigate(url),
			chromedp.Sleep(s.renderWait),
			// Scroll so lazily rendered cards are in the DOM
			chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
			chromedp.Sleep(time.Second),
			chromedp.OuterHTML("html", &page, chromedp.ByQuery),
		); err != nil {
			return fmt.Errorf("chromedp results page: %w", err)
		}
		return nil
	})
	if err != nil {
		fatal := s.browserCtx.Err() != nil || errors.Is(err, scraper.ErrSessionLost)
		return nil, url, &scraper.FetchError{Route: route, Date: date, Fatal: fatal, Err: err}
	}

	blocks, err := ExtractCards(strings.NewReader(page))
	if err != nil {
		return nil, url, &scraper.FetchError{Route: route, Date: date, Err: err}
	}

	s.logger.Debug("[gflights] %s %s: %d candidate cards", route, day, len(blocks))
	return blocks, url, nil
}

// Close shuts the browser down.
func (s *session) Close() error {
	s.cancel()
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
