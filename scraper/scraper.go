package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flight-sniper/models"
)

// ErrSessionLost means the browser session died; no further day can be fetched.
var ErrSessionLost = errors.New("fetch session lost")

// Fetcher opens one fetch session per scan.
type Fetcher interface {
	Open(ctx context.Context) (Session, error)
}

// Session returns the raw offer cards for one route and date, in page order,
// together with the link of the page they were read from.
type Session interface {
	FetchCandidates(ctx context.Context, route models.Route, date time.Time) ([]models.CandidateBlock, string, error)
	Close() error
}

// FetchError is a failed fetch of one day.
type FetchError struct {
	Route models.Route
	Date  time.Time
	Fatal bool
	Err   error
}

func (e *FetchError) Error() string {
	kind := "transient"
	if e.Fatal {
		kind = "fatal"
	}
	return fmt.Sprintf("fetch %s %s (%s): %v", e.Route, e.Date.Format(models.DateLayout), kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err ends the scan rather than just the day.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionLost) {
		return true
	}
	var fe *FetchError
	return errors.As(err, &fe) && fe.Fatal
}

// SearchURL is the results page queried for a route and date.
func SearchURL(route models.Route, date time.Time) string {
	return fmt.Sprintf("https://www.google.com/travel/flights?q=Flights%%20to%%20%s%%20from%%20%s%%20on%%20%s&hl=pt-BR&curr=BRL",
		route.Destination, route.Origin, date.Format(models.DateLayout))
}
