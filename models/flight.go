package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used in URLs, config and storage.
const DateLayout = "2006-01-02"

// Route is an ordered origin/destination pair of IATA airport codes.
type Route struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// NewRoute upper-cases both codes and checks that each is three ASCII letters.
func NewRoute(origin, destination string) (Route, error) {
	r := Route{
		Origin:      strings.ToUpper(strings.TrimSpace(origin)),
		Destination: strings.ToUpper(strings.TrimSpace(destination)),
	}
	if !isAirportCode(r.Origin) {
		return Route{}, fmt.Errorf("invalid origin code %q", origin)
	}
	if !isAirportCode(r.Destination) {
		return Route{}, fmt.Errorf("invalid destination code %q", destination)
	}
	return r, nil
}

func (r Route) String() string {
	return r.Origin + "-" + r.Destination
}

func isAirportCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// CandidateBlock is the raw text of one offer card as rendered on the results page.
type CandidateBlock string

// ParsedOffer is what the price parser extracts from a single CandidateBlock.
type ParsedOffer struct {
	Price         decimal.Decimal
	Carrier       string
	DepartureTime string
	RawBlock      CandidateBlock
}

// DailyOffer is the cheapest parsed offer for one date on one route.
type DailyOffer struct {
	Date          time.Time       `json:"date"`
	Route         Route           `json:"route"`
	Price         decimal.Decimal `json:"price"`
	Carrier       string          `json:"carrier"`
	DepartureTime string          `json:"departure_time"`
	SourceLink    string          `json:"source_link"`
}

// ClassifiedOffer is a DailyOffer with its deal status attached.
type ClassifiedOffer struct {
	DailyOffer
	Status Status `json:"status"`
}

// HistoricalRecord is one persisted row of price history.
// Price is nil for "unreadable" marker rows.
type HistoricalRecord struct {
	ID            int64            `json:"id"`
	FlightDate    time.Time        `json:"date_flight"`
	Origin        string           `json:"origin"`
	Destination   string           `json:"destination"`
	Price         *decimal.Decimal `json:"price"`
	Carrier       string           `json:"carrier"`
	DepartureTime string           `json:"departure_time"`
	Status        Status           `json:"status"`
	Link          string           `json:"link"`
	CollectedAt   time.Time        `json:"collected_at"`
}

// Route returns the record's route.
func (h *HistoricalRecord) Route() Route {
	return Route{Origin: h.Origin, Destination: h.Destination}
}

// RecordFromOffer builds the row persisted for a classified day.
func RecordFromOffer(o ClassifiedOffer) *HistoricalRecord {
	price := o.Price
	return &HistoricalRecord{
		FlightDate:    o.Date,
		Origin:        o.Route.Origin,
		Destination:   o.Route.Destination,
		Price:         &price,
		Carrier:       o.Carrier,
		DepartureTime: o.DepartureTime,
		Status:        o.Status,
		Link:          o.SourceLink,
	}
}

// UnreadableRecord builds the marker row written when no candidate parsed for a date.
func UnreadableRecord(route Route, date time.Time, link string) *HistoricalRecord {
	return &HistoricalRecord{
		FlightDate:  date,
		Origin:      route.Origin,
		Destination: route.Destination,
		Status:      StatusUnreadable,
		Link:        link,
	}
}

// Baseline is the mean historical price of a route at scan start.
// The zero value means no history.
type Baseline struct {
	Mean  decimal.Decimal `json:"mean"`
	Known bool            `json:"known"`
}

// NoHistory is the baseline of a route that has never been priced.
var NoHistory = Baseline{}

// KnownBaseline wraps a computed mean.
func KnownBaseline(mean decimal.Decimal) Baseline {
	return Baseline{Mean: mean, Known: true}
}

func (b Baseline) String() string {
	if !b.Known {
		return "no history"
	}
	return "R$ " + b.Mean.StringFixed(2)
}

// Alert is the payload handed to notifiers for a goal-met or super-deal day.
type Alert struct {
	ScanID        string          `json:"scan_id"`
	Route         Route           `json:"route"`
	Date          string          `json:"date"`
	Price         decimal.Decimal `json:"price"`
	Status        Status          `json:"status"`
	Link          string          `json:"link"`
	Carrier       string          `json:"carrier"`
	DepartureTime string          `json:"departure_time"`
	Target        decimal.Decimal `json:"target"`
	Baseline      Baseline        `json:"baseline"`
}
