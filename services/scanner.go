package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flight-sniper/models"
	"flight-sniper/scraper"
	"flight-sniper/storage"
	"flight-sniper/utils"
)

// ErrInvalidRequest is returned by Run before any I/O when the request is unusable.
var ErrInvalidRequest = errors.New("invalid scan request")

// ScanRequest describes one scan: a route over Days consecutive dates from StartDate.
type ScanRequest struct {
	Route       models.Route
	StartDate   time.Time
	Days        int
	TargetPrice decimal.Decimal
}

// Validate checks route codes, the date window and the target price.
func (r ScanRequest) Validate() error {
	if _, err := models.NewRoute(r.Route.Origin, r.Route.Destination); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.Route.Origin == r.Route.Destination {
		return fmt.Errorf("%w: origin and destination are both %s", ErrInvalidRequest, r.Route.Origin)
	}
	if r.Days < 1 {
		return fmt.Errorf("%w: window must cover at least one day, got %d", ErrInvalidRequest, r.Days)
	}
	if r.TargetPrice.IsNegative() {
		return fmt.Errorf("%w: negative target price %s", ErrInvalidRequest, r.TargetPrice)
	}
	return nil
}

// Notifier receives goal-met and super-deal days. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, alert models.Alert) error
}

// Reporter observes scan progress. Day numbers are 1-based.
type Reporter interface {
	Progress(day, total int, offer models.ClassifiedOffer)
	Unreadable(day, total int, date time.Time)
}

// NopReporter ignores every event.
type NopReporter struct{}

func (NopReporter) Progress(int, int, models.ClassifiedOffer) {}
func (NopReporter) Unreadable(int, int, time.Time)            {}

// LogReporter writes progress lines to a Logger.
type LogReporter struct {
	Logger *utils.Logger
}

func (r LogReporter) Progress(day, total int, offer models.ClassifiedOffer) {
	r.Logger.Info("[%d/%d] %s %s: R$ %s %s %s [%s]",
		day, total, offer.Route, offer.Date.Format(models.DateLayout),
		offer.Price.StringFixed(2), offer.Carrier, offer.DepartureTime, offer.Status.Label())
}

func (r LogReporter) Unreadable(day, total int, date time.Time) {
	r.Logger.Warn("[%d/%d] %s: no readable price", day, total, date.Format(models.DateLayout))
}

// Scanner runs scans: one baseline snapshot, then every date of the window in order.
type Scanner struct {
	fetcher          scraper.Fetcher
	store            storage.HistoryStore
	baseline         *BaselineService
	selector         *Selector
	notifier         Notifier
	reporter         Reporter
	logger           *utils.Logger
	fetchConcurrency int
	fetchInterval    time.Duration
	now              func() time.Time
}

// ScannerOption customises a Scanner.
type ScannerOption func(*Scanner)

// WithReporter sets the progress observer. nil keeps the no-op reporter.
func WithReporter(r Reporter) ScannerOption {
	return func(s *Scanner) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithPrefetch fetches up to workers dates ahead, starting fetches at least
// interval apart. Days are still classified and persisted in date order.
func WithPrefetch(workers int, interval time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.fetchConcurrency = workers
		s.fetchInterval = interval
	}
}

// WithClock overrides the clock used to resolve a missing start date.
func WithClock(now func() time.Time) ScannerOption {
	return func(s *Scanner) { s.now = now }
}

// NewScanner wires a Scanner. notifier may be nil.
func NewScanner(fetcher scraper.Fetcher, store storage.HistoryStore, notifier Notifier, logger *utils.Logger, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		fetcher:  fetcher,
		store:    store,
		baseline: NewBaselineService(store, logger),
		selector: NewSelector(logger),
		notifier: notifier,
		reporter: NopReporter{},
		logger:   logger.With("component", "scanner"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type fetchResult struct {
	blocks []models.CandidateBlock
	link   string
	err    error
}

// Run executes one scan. The returned summary is nil only for an invalid request.
// A failed baseline read aborts the scan before any fetch. A fatal fetch error
// or cancellation ends the scan early: the summary is marked partial and the
// cause is returned alongside it.
func (s *Scanner) Run(ctx context.Context, req ScanRequest) (*models.ScanSummary, error) {
	if req.StartDate.IsZero() {
		req.StartDate = s.now().AddDate(0, 0, 1)
	}
	req.StartDate = truncateDay(req.StartDate)
	if route, err := models.NewRoute(req.Route.Origin, req.Route.Destination); err == nil {
		req.Route = route
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	scanID := uuid.NewString()
	log := s.logger.With("scan_id", scanID)

	summary := &models.ScanSummary{
		ScanID:    scanID,
		Route:     req.Route,
		StartDate: req.StartDate,
		Days:      req.Days,
		ByStatus:  make(map[models.Status]int),
	}

	log.Info("[scanner] %s: %d days from %s, target R$ %s",
		req.Route, req.Days, req.StartDate.Format(models.DateLayout), req.TargetPrice.StringFixed(2))

	baseline, err := s.baseline.Snapshot(ctx, req.Route)
	if err != nil {
		log.Error("[scanner] %s: %v", req.Route, err)
		summary.Err = err
		return summary, err
	}
	summary.Baseline = baseline

	session, err := s.fetcher.Open(ctx)
	if err != nil {
		err = fmt.Errorf("scan %s: open fetch session: %w", req.Route, err)
		log.Error("[scanner] %v", err)
		summary.Partial = true
		summary.Err = err
		return summary, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn("[scanner] closing fetch session: %v", err)
		}
	}()

	fetch, stop := s.dayFetcher(ctx, session, req)
	defer stop()

	// A day that has started runs to completion; ctx is only checked between days.
	dayCtx := context.WithoutCancel(ctx)

	for i := 0; i < req.Days; i++ {
		if err := ctx.Err(); err != nil {
			log.Warn("[scanner] %s: cancelled after %d of %d days", req.Route, i, req.Days)
			summary.Partial = true
			summary.Err = fmt.Errorf("scan %s: %w", req.Route, err)
			break
		}

		date := req.StartDate.AddDate(0, 0, i)
		summary.Attempted++

		res := fetch(i)
		if res.err != nil {
			if scraper.IsFatal(res.err) {
				log.Error("[scanner] %s: fetch session unusable, stopping: %v", req.Route, res.err)
				summary.Partial = true
				summary.Err = fmt.Errorf("scan %s: %w", req.Route, res.err)
				break
			}
			log.Warn("[scanner] %s %s: fetch failed, skipping day: %v",
				req.Route, date.Format(models.DateLayout), res.err)
			summary.Failed++
			continue
		}

		s.processDay(dayCtx, log, scanID, req, baseline, i, date, res, summary)
	}

	log.Info("[scanner] %s: %s", req.Route, summary)
	return summary, summary.Err
}

func (s *Scanner) processDay(ctx context.Context, log *utils.Logger, scanID string, req ScanRequest,
	baseline models.Baseline, i int, date time.Time, res fetchResult, summary *models.ScanSummary) {
	day := date.Format(models.DateLayout)

	offer, ok := s.selector.Select(req.Route, date, res.link, res.blocks)
	if !ok {
		summary.Unreadable++
		s.reporter.Unreadable(i+1, req.Days, date)
		log.Warn("[scanner] %s %s: none of %d candidates had a readable price", req.Route, day, len(res.blocks))
		if err := s.store.Append(ctx, models.UnreadableRecord(req.Route, date, res.link)); err != nil {
			summary.PersistFailures++
			log.Error("[scanner] %s %s: persist unreadable marker: %v", req.Route, day, err)
		}
		return
	}

	classified := ClassifyOffer(offer, req.TargetPrice, baseline)
	summary.Found++
	summary.ByStatus[classified.Status]++
	summary.Offers = append(summary.Offers, classified)
	s.reporter.Progress(i+1, req.Days, classified)

	if err := s.store.Append(ctx, models.RecordFromOffer(classified)); err != nil {
		summary.PersistFailures++
		log.Error("[scanner] %s %s: persist offer: %v", req.Route, day, err)
	}

	if !classified.Status.Notifiable() || s.notifier == nil {
		return
	}
	alert := models.Alert{
		ScanID:        scanID,
		Route:         req.Route,
		Date:          day,
		Price:         classified.Price,
		Status:        classified.Status,
		Link:          classified.SourceLink,
		Carrier:       classified.Carrier,
		DepartureTime: classified.DepartureTime,
		Target:        req.TargetPrice,
		Baseline:      baseline,
	}
	if err := s.notifier.Notify(ctx, alert); err != nil {
		summary.NotifyFailures++
		log.Warn("[scanner] %s %s: notify %s: %v", req.Route, day, classified.Status, err)
	}
}

// dayFetcher returns a function yielding the fetch result of day i, and a
// stop function that must run before the session is closed. Without prefetch
// each call fetches synchronously and is not interrupted by ctx. Prefetched
// days that have not been consumed are abandoned when ctx is cancelled.
func (s *Scanner) dayFetcher(ctx context.Context, session scraper.Session, req ScanRequest) (func(int) fetchResult, func()) {
	fetchDay := func(ctx context.Context, i int) fetchResult {
		blocks, link, err := session.FetchCandidates(ctx, req.Route, req.StartDate.AddDate(0, 0, i))
		return fetchResult{blocks: blocks, link: link, err: err}
	}

	if s.fetchConcurrency <= 1 || req.Days == 1 {
		dayCtx := context.WithoutCancel(ctx)
		return func(i int) fetchResult { return fetchDay(dayCtx, i) }, func() {}
	}

	prefetchCtx, cancel := context.WithCancel(ctx)
	results := make([]chan fetchResult, req.Days)
	for i := range results {
		results[i] = make(chan fetchResult, 1)
	}

	pool := utils.NewWorkerPool(s.fetchConcurrency, s.fetchInterval)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < req.Days; i++ {
			if err := prefetchCtx.Err(); err != nil {
				results[i] <- fetchResult{err: err}
				continue
			}
			pool.Submit(func() {
				results[i] <- fetchDay(prefetchCtx, i)
			})
		}
		pool.Wait()
	}()

	fetch := func(i int) fetchResult {
		res := <-results[i]
		if scraper.IsFatal(res.err) {
			cancel()
		}
		return res
	}
	stop := func() {
		cancel()
		<-done
	}
	return fetch, stop
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
