package services

import (
	"context"
	"errors"
	"fmt"

	"flight-sniper/models"
	"flight-sniper/storage"
	"flight-sniper/utils"
)

// BaselineService reads the historical mean price of a route.
type BaselineService struct {
	store  storage.HistoryStore
	logger *utils.Logger
}

func NewBaselineService(store storage.HistoryStore, logger *utils.Logger) *BaselineService {
	return &BaselineService{store: store, logger: logger}
}

// Snapshot returns the route's baseline at this instant. The value is not
// refreshed by later appends; callers hold it for the whole scan.
// A route without priced history yields models.NoHistory, never a zero mean.
func (s *BaselineService) Snapshot(ctx context.Context, route models.Route) (models.Baseline, error) {
	mean, ok, err := s.store.MeanPrice(ctx, route)
	if err != nil {
		if errors.Is(err, storage.ErrStorageUnavailable) {
			return models.NoHistory, fmt.Errorf("baseline %s: %w", route, err)
		}
		return models.NoHistory, fmt.Errorf("baseline %s: %w: %w", route, storage.ErrStorageUnavailable, err)
	}
	if !ok {
		s.logger.Info("[baseline] %s: no price history yet", route)
		return models.NoHistory, nil
	}

	baseline := models.KnownBaseline(mean)
	s.logger.Info("[baseline] %s: historical mean %s", route, baseline)
	return baseline, nil
}
