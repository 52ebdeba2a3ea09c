package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

// FeedbackStore keeps feedback samples in insertion order.
type FeedbackStore struct {
	mu   sync.RWMutex
	seq  int64
	rows []models.FeedbackSample
}

func NewFeedbackStore() *FeedbackStore {
	return &FeedbackStore{}
}

func (s *FeedbackStore) Insert(ctx context.Context, sample *models.FeedbackSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	sample.ID = s.seq
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now().UTC()
	}
	s.rows = append(s.rows, cloneFeedback(*sample))
	return nil
}

func (s *FeedbackStore) Get(ctx context.Context, id int64) (*models.FeedbackSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.rows {
		if row.ID == id {
			sample := cloneFeedback(row)
			return &sample, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *FeedbackStore) ListRecent(ctx context.Context, limit int) ([]models.FeedbackSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FeedbackSample, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, cloneFeedback(row))
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FeedbackStore) ListScored(ctx context.Context, limit int) ([]models.FeedbackSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FeedbackSample, 0)
	for _, row := range s.rows {
		if row.QualityScore != nil {
			out = append(out, cloneFeedback(row))
		}
	}
	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *FeedbackStore) ListScoredByAnnotator(ctx context.Context, annotatorID string) ([]models.FeedbackSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FeedbackSample, 0)
	for _, row := range s.rows {
		if row.AnnotatorID == annotatorID && row.QualityScore != nil {
			out = append(out, cloneFeedback(row))
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (s *FeedbackStore) ListSince(ctx context.Context, since time.Time) ([]models.FeedbackSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.FeedbackSample, 0)
	for _, row := range s.rows {
		if row.CreatedAt.Before(since) {
			continue
		}
		out = append(out, cloneFeedback(row))
	}
	sortOldestFirst(out)
	return out, nil
}

func sortOldestFirst(samples []models.FeedbackSample) {
	sort.Slice(samples, func(i, j int) bool {
		if !samples[i].CreatedAt.Equal(samples[j].CreatedAt) {
			return samples[i].CreatedAt.Before(samples[j].CreatedAt)
		}
		return samples[i].ID < samples[j].ID
	})
}

func sortNewestFirst(samples []models.FeedbackSample) {
	sort.Slice(samples, func(i, j int) bool {
		if !samples[i].CreatedAt.Equal(samples[j].CreatedAt) {
			return samples[i].CreatedAt.After(samples[j].CreatedAt)
		}
		return samples[i].ID > samples[j].ID
	})
}
