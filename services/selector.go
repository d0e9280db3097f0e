package services

import (
	"time"

	"flight-sniper/models"
	"flight-sniper/utils"
)

// Selector picks the cheapest parseable candidate for one date.
type Selector struct {
	logger *utils.Logger
}

// NewSelector creates a Selector with the given logger.
func NewSelector(logger *utils.Logger) *Selector {
	return &Selector{logger: logger}
}

// Select parses every block in order and keeps the first strictly cheapest one.
// ok is false when no block parsed.
func (s *Selector) Select(route models.Route, date time.Time, link string, blocks []models.CandidateBlock) (models.DailyOffer, bool) {
	var (
		best   models.ParsedOffer
		found  bool
		parsed int
	)

	for _, b := range blocks {
		offer, ok := ParsePrice(b)
		if !ok {
			continue
		}
		parsed++
		if !found || offer.Price.LessThan(best.Price) {
			best = offer
			found = true
		}
	}

	s.logger.Debug("[selector] %s %s: %d/%d candidates parsed",
		route, date.Format(models.DateLayout), parsed, len(blocks))

	if !found {
		return models.DailyOffer{}, false
	}

	return models.DailyOffer{
		Date:          date,
		Route:         route,
		Price:         best.Price,
		Carrier:       best.Carrier,
		DepartureTime: best.DepartureTime,
		SourceLink:    link,
	}, true
}
