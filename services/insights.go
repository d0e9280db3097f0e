package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"flight-sniper/models"
	"flight-sniper/utils"
)

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

// Generate summarises a route's history. Records may come in any order;
// the latest readable one (highest id) gives the last price.
func (s *InsightService) Generate(route models.Route, records []*models.HistoricalRecord) *models.RouteInsight {
	insight := &models.RouteInsight{
		Route:    route,
		ByStatus: make(map[models.Status]int),
		Trend:    []models.TrendPoint{},
	}

	var (
		readable []*models.HistoricalRecord
		total    decimal.Decimal
	)
	for _, r := range records {
		if r.Route() != route {
			continue
		}
		insight.Records++
		insight.ByStatus[r.Status]++
		if r.Price == nil {
			continue
		}
		readable = append(readable, r)
		total = total.Add(*r.Price)
	}

	insight.Readable = len(readable)
	s.logger.Debug("[insights] %s: %d records, %d readable", route, insight.Records, insight.Readable)
	if len(readable) == 0 {
		return insight
	}

	sort.Slice(readable, func(i, j int) bool {
		if !readable[i].CollectedAt.Equal(readable[j].CollectedAt) {
			return readable[i].CollectedAt.Before(readable[j].CollectedAt)
		}
		return readable[i].ID < readable[j].ID
	})

	best := *readable[0].Price
	for _, r := range readable {
		if r.Price.LessThan(best) {
			best = *r.Price
		}
		insight.Trend = append(insight.Trend, models.TrendPoint{
			CollectedAt: r.CollectedAt,
			FlightDate:  r.FlightDate.Format(models.DateLayout),
			Price:       *r.Price,
		})
	}

	last := readable[0]
	for _, r := range readable {
		if r.ID > last.ID {
			last = r
		}
	}

	mean := total.Div(decimal.NewFromInt(int64(len(readable)))).Round(2)
	lastPrice := *last.Price
	delta := lastPrice.Sub(mean)

	insight.LastPrice = &lastPrice
	insight.LastStatus = last.Status
	insight.Mean = &mean
	insight.Min = &best
	insight.DeltaToMean = &delta
	return insight
}

// Print writes the post-scan console report.
func (s *InsightService) Print(summary *models.ScanSummary, insight *models.RouteInsight) {
	w := s.out
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  ✈  FLIGHT SNIPER %s\033[0m\n", summary.Route)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Scan
	fmt.Fprintf(w, "\033[1;33m  This scan\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Scan id    : %s\n", summary.ScanID)
	fmt.Fprintf(w, "  Window     : %s + %d days\n", summary.StartDate.Format(models.DateLayout), summary.Days)
	fmt.Fprintf(w, "  Baseline   : %s\n", summary.Baseline)
	fmt.Fprintf(w, "  Outcome    : \033[1m%s\033[0m\n", summary)
	fmt.Fprintln(w)

	if len(summary.Offers) > 0 {
		for _, o := range summary.Offers {
			fmt.Fprintf(w, "  %s  %s%-12s\033[0m %-10s %s  \033[1mR$ %10s\033[0m\n",
				o.Date.Format(models.DateLayout), statusColor(o.Status), o.Status.Label(),
				truncate(o.Carrier, 10), o.DepartureTime, o.Price.StringFixed(2))
		}
		fmt.Fprintln(w)
	}

	// History
	fmt.Fprintf(w, "\033[1;33m  Route history\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if insight == nil || insight.Readable == 0 {
		fmt.Fprintf(w, "  No price history yet\n")
	} else {
		fmt.Fprintf(w, "  Records       : %d (%d readable)\n", insight.Records, insight.Readable)
		fmt.Fprintf(w, "  Last price    : \033[1;32mR$ %s\033[0m (%s)\n", insight.LastPrice.StringFixed(2), insight.LastStatus.Label())
		fmt.Fprintf(w, "  Mean price    : R$ %s\n", insight.Mean.StringFixed(2))
		fmt.Fprintf(w, "  Best price    : R$ %s\n", insight.Min.StringFixed(2))
		fmt.Fprintf(w, "  Delta to mean : %s\n", signed(*insight.DeltaToMean))
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func statusColor(s models.Status) string {
	switch s {
	case models.StatusSuperDeal:
		return "\033[1;32m"
	case models.StatusGoalMet:
		return "\033[1;36m"
	case models.StatusExpensive:
		return "\033[1;31m"
	default:
		return "\033[0m"
	}
}

func signed(v decimal.Decimal) string {
	if v.IsPositive() {
		return "+" + v.StringFixed(2)
	}
	return v.StringFixed(2)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
