package services

import (
	"bytes"
	"testing"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight-sniper/models"
	"flight-sniper/utils"
)

func historyRecord(id int64, route models.Route, price string, status models.Status, collected time.Time) *models.HistoricalRecord {
	rec := &models.HistoricalRecord{
		ID:          id,
		FlightDate:  day0.AddDate(0, 0, int(id)),
		Origin:      route.Origin,
		Destination: route.Destination,
		Status:      status,
		CollectedAt: collected,
	}
	if price != "" {
		p := decimal.RequireFromString(price)
		rec.Price = &p
	}
	return rec
}

func sampleHistory() []*models.HistoricalRecord {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	other := models.Route{Origin: "GRU", Destination: "SDU"}
	return []*models.HistoricalRecord{
		historyRecord(5, cghSdu, "520", models.StatusGoalMet, t0.Add(4*time.Hour)),
		historyRecord(4, cghSdu, "", models.StatusUnreadable, t0.Add(3*time.Hour)),
		historyRecord(3, other, "100", models.StatusSuperDeal, t0.Add(2*time.Hour)),
		historyRecord(2, cghSdu, "900", models.StatusExpensive, t0.Add(time.Hour)),
		historyRecord(1, cghSdu, "700", models.StatusNormal, t0),
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(cghSdu, sampleHistory())

	assert.Equal(t, 4, r.Records)
	assert.Equal(t, 3, r.Readable)
	assert.Equal(t, 1, r.ByStatus[models.StatusUnreadable])
	assert.Zero(t, r.ByStatus[models.StatusSuperDeal], "other routes are ignored")
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(cghSdu, sampleHistory())

	require.NotNil(t, r.Mean)
	assert.Equal(t, "706.67", r.Mean.StringFixed(2))
	assert.True(t, r.Min.Equal(d("520")))
	assert.True(t, r.LastPrice.Equal(d("520")))
	assert.Equal(t, models.StatusGoalMet, r.LastStatus)
	assert.Equal(t, "-186.67", r.DeltaToMean.StringFixed(2))
}

func TestInsightTrendIsChronological(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(cghSdu, sampleHistory())

	require.Len(t, r.Trend, 3)
	assert.Equal(t, "700", r.Trend[0].Price.String())
	assert.Equal(t, "900", r.Trend[1].Price.String())
	assert.Equal(t, "520", r.Trend[2].Price.String())
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(cghSdu, nil)

	assert.Zero(t, r.Records)
	assert.Nil(t, r.Mean)
	assert.Nil(t, r.LastPrice)
	assert.Empty(t, r.Trend)
}

func TestInsightOnlyMarkers(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	r := svc.Generate(cghSdu, []*models.HistoricalRecord{models.UnreadableRecord(cghSdu, day0, "")})

	assert.Equal(t, 1, r.Records)
	assert.Zero(t, r.Readable)
	assert.Nil(t, r.Mean)
}

func TestInsightLogsCounts(t *testing.T) {
	var logs bytes.Buffer
	svc := &InsightService{logger: utils.NewLoggerTo(&logs, zerolog.DebugLevel), out: io.Discard}

	svc.Generate(cghSdu, []*models.HistoricalRecord{models.UnreadableRecord(cghSdu, day0, "")})

	assert.Contains(t, logs.String(), "[insights] CGH-SDU: 1 records, 0 readable")
}

func TestInsightPrint(t *testing.T) {
	var buf bytes.Buffer
	svc := &InsightService{logger: utils.NewNopLogger(), out: &buf}
	summary := &models.ScanSummary{
		ScanID:    "scan-1",
		Route:     cghSdu,
		StartDate: day0,
		Days:      1,
		Found:     1,
		ByStatus:  map[models.Status]int{models.StatusSuperDeal: 1},
		Baseline:  models.KnownBaseline(d("1000")),
		Offers: []models.ClassifiedOffer{{
			DailyOffer: models.DailyOffer{Date: day0, Route: cghSdu, Price: d("450"), Carrier: "LATAM", DepartureTime: "08:15"},
			Status:     models.StatusSuperDeal,
		}},
	}

	svc.Print(summary, svc.Generate(cghSdu, sampleHistory()))

	out := buf.String()
	assert.Contains(t, out, "CGH-SDU")
	assert.Contains(t, out, "PROMO")
	assert.Contains(t, out, "R$     450.00")
	assert.Contains(t, out, "Baseline   : R$ 1000.00")
	assert.Contains(t, out, "Delta to mean : -186.67")
}
