package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"flight-sniper/models"
)

// ErrStorageUnavailable wraps every failure to reach or query the history store.
// It is distinct from an empty history.
var ErrStorageUnavailable = errors.New("storage unavailable")

// HistoryStore is the interface any price-history backend must satisfy.
// Records are append-only; deletes are administrative.
type HistoryStore interface {
	// Append inserts rec and sets its ID and CollectedAt.
	Append(ctx context.Context, rec *models.HistoricalRecord) error

	// MeanPrice returns the mean of all priced records of route.
	// ok is false when the route has no priced records or the table does not exist yet.
	MeanPrice(ctx context.Context, route models.Route) (mean decimal.Decimal, ok bool, err error)

	// ListRoute returns the route's records, newest first.
	ListRoute(ctx context.Context, route models.Route) ([]*models.HistoricalRecord, error)

	// ListAll returns every record, newest first.
	ListAll(ctx context.Context) ([]*models.HistoricalRecord, error)

	DeleteRoute(ctx context.Context, route models.Route) (int64, error)
	DeleteAll(ctx context.Context) (int64, error)
	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
