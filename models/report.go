package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ScanSummary is the outcome of one scan across a date window.
type ScanSummary struct {
	ScanID          string            `json:"scan_id"`
	Route           Route             `json:"route"`
	StartDate       time.Time         `json:"start_date"`
	Days            int               `json:"days"`
	Attempted       int               `json:"attempted"`
	Found           int               `json:"found"`
	Unreadable      int               `json:"unreadable"`
	Failed          int               `json:"failed"`
	PersistFailures int               `json:"persist_failures"`
	NotifyFailures  int               `json:"notify_failures"`
	ByStatus        map[Status]int    `json:"by_status"`
	Baseline        Baseline          `json:"baseline"`
	Offers          []ClassifiedOffer `json:"offers"`
	Partial         bool              `json:"partial"`
	Err             error             `json:"-"`
}

// String renders the one-line outcome, keeping unreadable days visible.
func (s *ScanSummary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "found %d offers, %d unreadable days", s.Found, s.Unreadable)
	if s.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed days", s.Failed)
	}
	b.WriteString(", classified as: ")

	statuses := make([]string, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)
	if len(statuses) == 0 {
		b.WriteString("none")
	}
	for i, st := range statuses {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%d", st, s.ByStatus[Status(st)])
	}

	if s.Partial {
		fmt.Fprintf(&b, " (partial: %d of %d days attempted)", s.Attempted, s.Days)
	}
	return b.String()
}

// RouteInsight holds the dashboard figures computed over a route's history.
type RouteInsight struct {
	Route       Route            `json:"route"`
	Records     int              `json:"records"`
	Readable    int              `json:"readable"`
	LastPrice   *decimal.Decimal `json:"last_price,omitempty"`
	LastStatus  Status           `json:"last_status,omitempty"`
	Mean        *decimal.Decimal `json:"mean,omitempty"`
	Min         *decimal.Decimal `json:"min,omitempty"`
	DeltaToMean *decimal.Decimal `json:"delta_to_mean,omitempty"`
	ByStatus    map[Status]int   `json:"by_status"`
	Trend       []TrendPoint     `json:"trend"`
}

// TrendPoint is one price observation ordered by collection time.
type TrendPoint struct {
	CollectedAt time.Time       `json:"collected_at"`
	FlightDate  string          `json:"date_flight"`
	Price       decimal.Decimal `json:"price"`
}
