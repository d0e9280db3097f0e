package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"flight-sniper/models"
)

// priceRow is the gorm mapping of the flight_prices table.
type priceRow struct {
	ID            int64               `gorm:"primaryKey;autoIncrement"`
	FlightDate    string              `gorm:"column:date_flight;type:varchar(10);not null;index"`
	Origin        string              `gorm:"type:varchar(3);not null;index:idx_flight_prices_route"`
	Destination   string              `gorm:"type:varchar(3);not null;index:idx_flight_prices_route"`
	Price         decimal.NullDecimal `gorm:"type:numeric(10,2)"`
	Carrier       string              `gorm:"type:varchar(64);not null;default:''"`
	DepartureTime string              `gorm:"type:varchar(5);not null;default:''"`
	Status        string              `gorm:"type:varchar(32);not null"`
	Link          string              `gorm:"type:text;not null;default:''"`
	CollectedAt   time.Time           `gorm:"not null"`
}

func (priceRow) TableName() string {
	return "flight_prices"
}

// SQLiteStore keeps price history in a local SQLite file through gorm.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the database at path and migrates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite: create dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	if err := db.AutoMigrate(&priceRow{}); err != nil {
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec *models.HistoricalRecord) error {
	row := toRow(rec)
	row.CollectedAt = time.Now().UTC()

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return unavailable("sqlite append", err)
	}
	rec.ID = row.ID
	rec.CollectedAt = row.CollectedAt
	return nil
}

func (s *SQLiteStore) MeanPrice(ctx context.Context, route models.Route) (decimal.Decimal, bool, error) {
	var out struct {
		Mean decimal.NullDecimal
	}
	err := s.db.WithContext(ctx).
		Model(&priceRow{}).
		Select("AVG(price) AS mean").
		Where("origin = ? AND destination = ? AND price IS NOT NULL", route.Origin, route.Destination).
		Scan(&out).Error
	if err != nil {
		if isMissingTable(err) {
			return decimal.Decimal{}, false, nil
		}
		return decimal.Decimal{}, false, unavailable("sqlite mean price", err)
	}
	if !out.Mean.Valid {
		return decimal.Decimal{}, false, nil
	}
	return out.Mean.Decimal, true, nil
}

func (s *SQLiteStore) ListRoute(ctx context.Context, route models.Route) ([]*models.HistoricalRecord, error) {
	var rows []priceRow
	err := s.db.WithContext(ctx).
		Where("origin = ? AND destination = ?", route.Origin, route.Destination).
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, unavailable("sqlite list route", err)
	}
	return fromRows(rows), nil
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]*models.HistoricalRecord, error) {
	var rows []priceRow
	if err := s.db.WithContext(ctx).Order("id DESC").Find(&rows).Error; err != nil {
		if isMissingTable(err) {
			return nil, nil
		}
		return nil, unavailable("sqlite list all", err)
	}
	return fromRows(rows), nil
}

func (s *SQLiteStore) DeleteRoute(ctx context.Context, route models.Route) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("origin = ? AND destination = ?", route.Origin, route.Destination).
		Delete(&priceRow{})
	if res.Error != nil {
		return 0, unavailable("sqlite delete route", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&priceRow{})
	if res.Error != nil {
		return 0, unavailable("sqlite delete all", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// isMissingTable reports "no such table" (SQLite) and "does not exist" (Postgres) errors.
func isMissingTable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

func toRow(rec *models.HistoricalRecord) priceRow {
	row := priceRow{
		FlightDate:    rec.FlightDate.Format(models.DateLayout),
		Origin:        rec.Origin,
		Destination:   rec.Destination,
		Carrier:       rec.Carrier,
		DepartureTime: rec.DepartureTime,
		Status:        string(rec.Status),
		Link:          rec.Link,
	}
	if rec.Price != nil {
		row.Price = decimal.NewNullDecimal(*rec.Price)
	}
	return row
}

func fromRows(rows []priceRow) []*models.HistoricalRecord {
	out := make([]*models.HistoricalRecord, 0, len(rows))
	for _, r := range rows {
		rec := &models.HistoricalRecord{
			ID:            r.ID,
			Origin:        r.Origin,
			Destination:   r.Destination,
			Carrier:       r.Carrier,
			DepartureTime: r.DepartureTime,
			Status:        models.Status(r.Status),
			Link:          r.Link,
			CollectedAt:   r.CollectedAt,
		}
		if d, err := time.Parse(models.DateLayout, r.FlightDate); err == nil {
			rec.FlightDate = d
		}
		if r.Price.Valid {
			p := r.Price.Decimal
			rec.Price = &p
		}
		out = append(out, rec)
	}
	return out
}
