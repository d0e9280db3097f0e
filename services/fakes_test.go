package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"flight-sniper/models"
	"flight-sniper/scraper"
)

// memStore is an in-memory HistoryStore.
type memStore struct {
	mu        sync.Mutex
	records   []*models.HistoricalRecord
	meanErr   error
	appendErr error
	noTable   bool
}

func (m *memStore) Append(_ context.Context, rec *models.HistoricalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	rec.ID = int64(len(m.records) + 1)
	rec.CollectedAt = time.Now()
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) MeanPrice(_ context.Context, route models.Route) (decimal.Decimal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meanErr != nil {
		return decimal.Decimal{}, false, m.meanErr
	}
	if m.noTable {
		return decimal.Decimal{}, false, nil
	}
	var sum decimal.Decimal
	n := 0
	for _, r := range m.records {
		if r.Route() == route && r.Price != nil {
			sum = sum.Add(*r.Price)
			n++
		}
	}
	if n == 0 {
		return decimal.Decimal{}, false, nil
	}
	return sum.Div(decimal.NewFromInt(int64(n))), true, nil
}

func (m *memStore) ListRoute(_ context.Context, route models.Route) ([]*models.HistoricalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.HistoricalRecord
	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].Route() == route {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *memStore) ListAll(context.Context) ([]*models.HistoricalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.HistoricalRecord, 0, len(m.records))
	for i := len(m.records) - 1; i >= 0; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *memStore) DeleteRoute(_ context.Context, route models.Route) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	var n int64
	for _, r := range m.records {
		if r.Route() == route {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return n, nil
}

func (m *memStore) DeleteAll(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.records))
	m.records = nil
	return n, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) seed(route models.Route, prices ...string) {
	for _, p := range prices {
		price := decimal.RequireFromString(p)
		m.records = append(m.records, &models.HistoricalRecord{
			ID:          int64(len(m.records) + 1),
			FlightDate:  day0,
			Origin:      route.Origin,
			Destination: route.Destination,
			Price:       &price,
			Status:      models.StatusNormal,
		})
	}
}

// scriptedFetcher serves a fixed page (or error) per date.
type scriptedFetcher struct {
	mu      sync.Mutex
	pages   map[string][]models.CandidateBlock
	errs    map[string]error
	openErr error
	opens   int
	closes  int
	fetched []string
	ctxErrs []error
	onFetch func(date time.Time)
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		pages: make(map[string][]models.CandidateBlock),
		errs:  make(map[string]error),
	}
}

func (f *scriptedFetcher) page(date time.Time, blocks ...models.CandidateBlock) {
	f.pages[date.Format(models.DateLayout)] = blocks
}

func (f *scriptedFetcher) fail(date time.Time, err error) {
	f.errs[date.Format(models.DateLayout)] = err
}

func (f *scriptedFetcher) Open(context.Context) (scraper.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &scriptedSession{f: f}, nil
}

type scriptedSession struct {
	f *scriptedFetcher
}

func (s *scriptedSession) FetchCandidates(ctx context.Context, route models.Route, date time.Time) ([]models.CandidateBlock, string, error) {
	if s.f.onFetch != nil {
		s.f.onFetch(date)
	}
	key := date.Format(models.DateLayout)

	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.fetched = append(s.f.fetched, key)
	s.f.ctxErrs = append(s.f.ctxErrs, ctx.Err())
	if err := s.f.errs[key]; err != nil {
		return nil, "", err
	}
	return s.f.pages[key], scraper.SearchURL(route, date), nil
}

func (s *scriptedSession) Close() error {
	s.f.mu.Lock()
	defer s.f.mu.Unlock()
	s.f.closes++
	return nil
}

type recordingNotifier struct {
	alerts  []models.Alert
	ctxErrs []error
	err     error
}

func (n *recordingNotifier) Notify(ctx context.Context, alert models.Alert) error {
	n.alerts = append(n.alerts, alert)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return n.err
}

type recordingReporter struct {
	progress   []int
	unreadable []int
}

func (r *recordingReporter) Progress(day, total int, _ models.ClassifiedOffer) {
	r.progress = append(r.progress, day)
}

func (r *recordingReporter) Unreadable(day, total int, _ time.Time) {
	r.unreadable = append(r.unreadable, day)
}

var errBoom = errors.New("boom")
