package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

func TestAnnotatorInsertAndGet(t *testing.T) {
	store := NewAnnotatorStore()
	ctx := context.Background()

	a := &models.Annotator{
		AnnotatorID:        "ann_1",
		SkillScores:        map[string]float64{"classification": 0.9},
		CulturalBackground: "western",
		Languages:          []string{"en", "de"},
		AvailabilityStatus: models.AvailabilityAvailable,
	}
	require.NoError(t, store.Insert(ctx, a))
	assert.Equal(t, int64(1), a.ID)
	assert.False(t, a.CreatedAt.IsZero())

	got, err := store.Get(ctx, "ann_1")
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.SkillScores["classification"])
	assert.Equal(t, []string{"en", "de"}, got.Languages)
}

func TestAnnotatorInsertDuplicate(t *testing.T) {
	store := NewAnnotatorStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &models.Annotator{AnnotatorID: "ann_1"}))
	err := store.Insert(ctx, &models.Annotator{AnnotatorID: "ann_1"})
	assert.True(t, errors.Is(err, storage.ErrConflict))
}

func TestAnnotatorGetMissing(t *testing.T) {
	store := NewAnnotatorStore()

	_, err := store.Get(context.Background(), "ann_missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestAnnotatorListOrdersByID(t *testing.T) {
	store := NewAnnotatorStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &models.Annotator{AnnotatorID: "ann_b"}))
	require.NoError(t, store.Insert(ctx, &models.Annotator{AnnotatorID: "ann_a"}))
	require.NoError(t, store.Insert(ctx, &models.Annotator{AnnotatorID: "ann_c"}))

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "ann_b", got[0].AnnotatorID)
	assert.Equal(t, "ann_a", got[1].AnnotatorID)
	assert.Equal(t, "ann_c", got[2].AnnotatorID)
}

func TestAnnotatorListAvailable(t *testing.T) {
	store := NewAnnotatorStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &models.Annotator{AnnotatorID: "ann_free", AvailabilityStatus: models.AvailabilityAvailable}))
	require.NoError(t, store.Insert(ctx, &models.Annotator{AnnotatorID: "ann_busy", AvailabilityStatus: models.AvailabilityBusy}))
	require.NoError(t, store.Insert(ctx, &models.Annotator{AnnotatorID: "ann_break", AvailabilityStatus: models.AvailabilityOnBreak}))

	got, err := store.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ann_free", got[0].AnnotatorID)
}

func TestAnnotatorUpdatePreservesIdentity(t *testing.T) {
	store := NewAnnotatorStore()
	ctx := context.Background()

	a := &models.Annotator{AnnotatorID: "ann_1", AvailabilityStatus: models.AvailabilityAvailable}
	require.NoError(t, store.Insert(ctx, a))
	created := a.CreatedAt

	update := &models.Annotator{AnnotatorID: "ann_1", AvailabilityStatus: models.AvailabilityBusy}
	require.NoError(t, store.Update(ctx, update))
	assert.Equal(t, a.ID, update.ID)

	got, err := store.Get(ctx, "ann_1")
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilityBusy, got.AvailabilityStatus)
	assert.Equal(t, created, got.CreatedAt)
}

func TestAnnotatorUpdateMissing(t *testing.T) {
	store := NewAnnotatorStore()

	err := store.Update(context.Background(), &models.Annotator{AnnotatorID: "ann_ghost"})
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestAnnotatorReturnsCopies(t *testing.T) {
	store := NewAnnotatorStore()
	ctx := context.Background()

	a := &models.Annotator{
		AnnotatorID: "ann_1",
		SkillScores: map[string]float64{"translation": 0.8},
		Performance: models.PerformanceHistory{RecentScores: []float64{0.9}},
	}
	require.NoError(t, store.Insert(ctx, a))

	got, err := store.Get(ctx, "ann_1")
	require.NoError(t, err)
	got.SkillScores["translation"] = 0.1
	got.Performance.RecentScores[0] = 0.1

	again, err := store.Get(ctx, "ann_1")
	require.NoError(t, err)
	assert.Equal(t, 0.8, again.SkillScores["translation"])
	assert.Equal(t, 0.9, again.Performance.RecentScores[0])
}
