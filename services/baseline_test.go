package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flight-sniper/models"
	"flight-sniper/storage"
	"flight-sniper/utils"
)

func TestSnapshotNoHistory(t *testing.T) {
	svc := NewBaselineService(&memStore{}, utils.NewNopLogger())

	b, err := svc.Snapshot(context.Background(), cghSdu)

	require.NoError(t, err)
	assert.Equal(t, models.NoHistory, b)
	assert.False(t, b.Known)
}

func TestSnapshotMissingTableIsNoHistory(t *testing.T) {
	svc := NewBaselineService(&memStore{noTable: true}, utils.NewNopLogger())

	b, err := svc.Snapshot(context.Background(), cghSdu)

	require.NoError(t, err)
	assert.False(t, b.Known)
}

func TestSnapshotMeanOfExactRoute(t *testing.T) {
	store := &memStore{}
	store.seed(cghSdu, "400", "600")
	store.seed(models.Route{Origin: "CGH", Destination: "GIG"}, "5000")
	store.seed(models.Route{Origin: "SDU", Destination: "CGH"}, "100")
	store.records = append(store.records, models.UnreadableRecord(cghSdu, day0, ""))
	svc := NewBaselineService(store, utils.NewNopLogger())

	b, err := svc.Snapshot(context.Background(), cghSdu)

	require.NoError(t, err)
	assert.True(t, b.Known)
	assert.True(t, b.Mean.Equal(d("500")), "got %s", b.Mean)
}

func TestSnapshotStorageUnavailable(t *testing.T) {
	for name, storeErr := range map[string]error{
		"raw driver error": errBoom,
		"already wrapped":  fmt.Errorf("%w: mean: %w", storage.ErrStorageUnavailable, errBoom),
	} {
		t.Run(name, func(t *testing.T) {
			svc := NewBaselineService(&memStore{meanErr: storeErr}, utils.NewNopLogger())

			b, err := svc.Snapshot(context.Background(), cghSdu)

			require.Error(t, err)
			assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
			assert.ErrorIs(t, err, errBoom)
			assert.False(t, b.Known)
		})
	}
}
