package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight-sniper/models"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func priced(route models.Route, day string, price string, status models.Status) *models.HistoricalRecord {
	d, _ := time.Parse(models.DateLayout, day)
	p := decimal.RequireFromString(price)
	return &models.HistoricalRecord{
		FlightDate:    d,
		Origin:        route.Origin,
		Destination:   route.Destination,
		Price:         &p,
		Carrier:       "LATAM",
		DepartureTime: "08:15",
		Status:        status,
		Link:          "https://example.com/" + day,
	}
}

func TestSQLiteStore_MeanPriceEmptyIsNoHistory(t *testing.T) {
	st := newTestSQLite(t)

	_, ok, err := st.MeanPrice(context.Background(), models.Route{Origin: "CGH", Destination: "SDU"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_MissingTableIsNoHistory(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	route := models.Route{Origin: "CGH", Destination: "SDU"}
	require.NoError(t, st.db.Migrator().DropTable(&priceRow{}))

	_, ok, err := st.MeanPrice(ctx, route)
	require.NoError(t, err)
	assert.False(t, ok)

	recs, err := st.ListRoute(ctx, route)
	require.NoError(t, err)
	assert.Empty(t, recs)

	all, err := st.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestIsMissingTable(t *testing.T) {
	assert.True(t, isMissingTable(errors.New("no such table: flight_prices")))
	assert.True(t, isMissingTable(errors.New(`pq: relation "flight_prices" does not exist`)))
	assert.False(t, isMissingTable(errors.New("database is locked")))
}

func TestSQLiteStore_AppendAndMean(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	route := models.Route{Origin: "CGH", Destination: "SDU"}
	other := models.Route{Origin: "SDU", Destination: "CGH"}

	rec := priced(route, "2026-02-19", "400", models.StatusGoalMet)
	require.NoError(t, st.Append(ctx, rec))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.CollectedAt.IsZero())

	require.NoError(t, st.Append(ctx, priced(route, "2026-02-20", "600.50", models.StatusNormal)))
	require.NoError(t, st.Append(ctx, priced(other, "2026-02-20", "9999", models.StatusNormal)))
	require.NoError(t, st.Append(ctx, models.UnreadableRecord(route, rec.FlightDate, "")))

	mean, ok, err := st.MeanPrice(ctx, route)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mean.Equal(decimal.RequireFromString("500.25")), "mean = %s", mean)
}

func TestSQLiteStore_ListRouteNewestFirst(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	route := models.Route{Origin: "VCP", Destination: "CNF"}

	require.NoError(t, st.Append(ctx, priced(route, "2026-05-20", "1500", models.StatusGoalMet)))
	require.NoError(t, st.Append(ctx, models.UnreadableRecord(route, time.Date(2026, 5, 21, 0, 0, 0, 0, time.UTC), "")))

	recs, err := st.ListRoute(ctx, route)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, models.StatusUnreadable, recs[0].Status)
	assert.Nil(t, recs[0].Price)
	assert.Equal(t, "2026-05-21", recs[0].FlightDate.Format(models.DateLayout))

	require.NotNil(t, recs[1].Price)
	assert.True(t, recs[1].Price.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, "LATAM", recs[1].Carrier)
	assert.Equal(t, "08:15", recs[1].DepartureTime)
}

func TestSQLiteStore_Deletes(t *testing.T) {
	st := newTestSQLite(t)
	ctx := context.Background()
	a := models.Route{Origin: "CGH", Destination: "SDU"}
	b := models.Route{Origin: "GRU", Destination: "GIG"}

	require.NoError(t, st.Append(ctx, priced(a, "2026-02-19", "400", models.StatusGoalMet)))
	require.NoError(t, st.Append(ctx, priced(a, "2026-02-20", "450", models.StatusGoalMet)))
	require.NoError(t, st.Append(ctx, priced(b, "2026-02-20", "700", models.StatusNormal)))

	n, err := st.DeleteRoute(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := st.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	n, err = st.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := st.MeanPrice(ctx, b)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_ClosedIsUnavailable(t *testing.T) {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, st.Close())

	_, _, err = st.MeanPrice(context.Background(), models.Route{Origin: "CGH", Destination: "SDU"})
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}
