package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"flight-sniper/models"
)

// undefinedTable is the Postgres SQLSTATE for a missing relation.
const undefinedTable = "42P01"

// PostgresStore persists price history to PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresStore.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return ps, nil
}

func (ps *PostgresStore) migrate(ctx context.Context) error {
	_, err := ps.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS flight_prices (
			id             BIGSERIAL PRIMARY KEY,
			date_flight    DATE          NOT NULL,
			origin         VARCHAR(3)    NOT NULL,
			destination    VARCHAR(3)    NOT NULL,
			price          NUMERIC(10,2) NULL,
			carrier        VARCHAR(64)   NOT NULL DEFAULT '',
			departure_time VARCHAR(5)    NOT NULL DEFAULT '',
			status         VARCHAR(32)   NOT NULL,
			link           TEXT          NOT NULL DEFAULT '',
			collected_at   TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_flight_prices_route       ON flight_prices(origin, destination);
		CREATE INDEX IF NOT EXISTS idx_flight_prices_date_flight ON flight_prices(date_flight);
	`)
	return err
}

func (ps *PostgresStore) Append(ctx context.Context, rec *models.HistoricalRecord) error {
	var price decimal.NullDecimal
	if rec.Price != nil {
		price = decimal.NewNullDecimal(*rec.Price)
	}

	err := ps.db.QueryRowContext(ctx, `
		INSERT INTO flight_prices (date_flight, origin, destination, price, carrier, departure_time, status, link)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, collected_at
	`,
		rec.FlightDate.Format(models.DateLayout), rec.Origin, rec.Destination, price,
		rec.Carrier, rec.DepartureTime, string(rec.Status), rec.Link,
	).Scan(&rec.ID, &rec.CollectedAt)
	if err != nil {
		return unavailable("postgres append", err)
	}
	return nil
}

func (ps *PostgresStore) MeanPrice(ctx context.Context, route models.Route) (decimal.Decimal, bool, error) {
	var mean decimal.NullDecimal
	err := ps.db.QueryRowContext(ctx, `
		SELECT AVG(price)
		FROM flight_prices
		WHERE origin = $1 AND destination = $2 AND price IS NOT NULL
	`, route.Origin, route.Destination).Scan(&mean)
	if err != nil {
		if isUndefinedTable(err) {
			return decimal.Decimal{}, false, nil
		}
		return decimal.Decimal{}, false, unavailable("postgres mean price", err)
	}
	if !mean.Valid {
		return decimal.Decimal{}, false, nil
	}
	return mean.Decimal, true, nil
}

func (ps *PostgresStore) ListRoute(ctx context.Context, route models.Route) ([]*models.HistoricalRecord, error) {
	return ps.list(ctx, `WHERE origin = $1 AND destination = $2`, route.Origin, route.Destination)
}

func (ps *PostgresStore) ListAll(ctx context.Context) ([]*models.HistoricalRecord, error) {
	return ps.list(ctx, "")
}

func (ps *PostgresStore) list(ctx context.Context, where string, args ...any) ([]*models.HistoricalRecord, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, date_flight, origin, destination, price, carrier, departure_time, status, link, collected_at
		FROM flight_prices
		`+where+`
		ORDER BY id DESC
	`, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, unavailable("postgres list", err)
	}
	defer rows.Close()

	var records []*models.HistoricalRecord
	for rows.Next() {
		var (
			rec    models.HistoricalRecord
			price  decimal.NullDecimal
			status string
		)
		if err := rows.Scan(
			&rec.ID, &rec.FlightDate, &rec.Origin, &rec.Destination, &price,
			&rec.Carrier, &rec.DepartureTime, &status, &rec.Link, &rec.CollectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		rec.Status = models.Status(status)
		if price.Valid {
			p := price.Decimal
			rec.Price = &p
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("postgres rows", err)
	}
	return records, nil
}

func (ps *PostgresStore) DeleteRoute(ctx context.Context, route models.Route) (int64, error) {
	res, err := ps.db.ExecContext(ctx,
		"DELETE FROM flight_prices WHERE origin = $1 AND destination = $2", route.Origin, route.Destination)
	if err != nil {
		return 0, unavailable("postgres delete route", err)
	}
	return res.RowsAffected()
}

func (ps *PostgresStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := ps.db.ExecContext(ctx, "DELETE FROM flight_prices")
	if err != nil {
		return 0, unavailable("postgres delete all", err)
	}
	return res.RowsAffected()
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == undefinedTable
	}
	return false
}
