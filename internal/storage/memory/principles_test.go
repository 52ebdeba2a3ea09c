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

func TestPrincipleInsertFillsIDAndTimestamps(t *testing.T) {
	store := NewPrincipleStore()
	ctx := context.Background()

	p := &models.Principle{
		Text:            "Always cite sources when stating facts",
		Category:        "honesty",
		ConfidenceScore: 0.8,
		VersionNumber:   1,
		Active:          true,
	}
	require.NoError(t, store.Insert(ctx, p))

	assert.Equal(t, int64(1), p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	second := &models.Principle{Text: "Avoid leading questions", Active: true}
	require.NoError(t, store.Insert(ctx, second))
	assert.Equal(t, int64(2), second.ID)
}

func TestPrincipleGetByText(t *testing.T) {
	store := NewPrincipleStore()
	ctx := context.Background()

	p := &models.Principle{Text: "Respect regional naming conventions", Category: "cultural_sensitivity", Active: true}
	require.NoError(t, store.Insert(ctx, p))

	got, err := store.GetByText(ctx, "Respect regional naming conventions")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "cultural_sensitivity", got.Category)

	_, err = store.GetByText(ctx, "does not exist")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPrincipleListActiveOrdersByConfidence(t *testing.T) {
	store := NewPrincipleStore()
	ctx := context.Background()

	for _, p := range []*models.Principle{
		{Text: "low", ConfidenceScore: 0.3, Active: true},
		{Text: "high", ConfidenceScore: 0.9, Active: true},
		{Text: "retired", ConfidenceScore: 0.95, Active: false},
		{Text: "mid", ConfidenceScore: 0.6, Active: true},
	} {
		require.NoError(t, store.Insert(ctx, p))
	}

	got, err := store.ListActive(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "high", got[0].Text)
	assert.Equal(t, "mid", got[1].Text)
	assert.Equal(t, "low", got[2].Text)

	limited, err := store.ListActive(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "high", limited[0].Text)
}

func TestPrincipleUpdate(t *testing.T) {
	store := NewPrincipleStore()
	ctx := context.Background()

	p := &models.Principle{Text: "original", ConfidenceScore: 0.5, VersionNumber: 1, Active: true}
	require.NoError(t, store.Insert(ctx, p))
	created := p.CreatedAt

	p.ConfidenceScore = 0.7
	p.VersionNumber = 2
	require.NoError(t, store.Update(ctx, p))

	got, err := store.GetByText(ctx, "original")
	require.NoError(t, err)
	assert.Equal(t, 0.7, got.ConfidenceScore)
	assert.Equal(t, 2, got.VersionNumber)
	assert.Equal(t, created, got.CreatedAt)
	assert.False(t, got.UpdatedAt.Before(created))
}

func TestPrincipleUpdateMissing(t *testing.T) {
	store := NewPrincipleStore()

	err := store.Update(context.Background(), &models.Principle{ID: 42, Text: "ghost"})
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPrincipleReturnsCopies(t *testing.T) {
	store := NewPrincipleStore()
	ctx := context.Background()

	p := &models.Principle{
		Text:            "isolated",
		Active:          true,
		CulturalContext: map[string]interface{}{"regions": "global"},
	}
	require.NoError(t, store.Insert(ctx, p))

	got, err := store.GetByText(ctx, "isolated")
	require.NoError(t, err)
	got.CulturalContext["regions"] = "mutated"
	got.Text = "mutated"

	again, err := store.GetByText(ctx, "isolated")
	require.NoError(t, err)
	assert.Equal(t, "global", again.CulturalContext["regions"])
}
