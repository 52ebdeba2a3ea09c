package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

// AnnotatorStore keeps annotator profiles in a map keyed by their public ID.
type AnnotatorStore struct {
	mu   sync.RWMutex
	seq  int64
	rows map[string]models.Annotator
}

func NewAnnotatorStore() *AnnotatorStore {
	return &AnnotatorStore{rows: make(map[string]models.Annotator)}
}

func (s *AnnotatorStore) Get(ctx context.Context, annotatorID string) (*models.Annotator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[annotatorID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	a := cloneAnnotator(row)
	return &a, nil
}

func (s *AnnotatorStore) List(ctx context.Context) ([]models.Annotator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Annotator, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, cloneAnnotator(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *AnnotatorStore) ListAvailable(ctx context.Context) ([]models.Annotator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Annotator, 0)
	for _, row := range s.rows {
		if row.AvailabilityStatus == models.AvailabilityAvailable {
			out = append(out, cloneAnnotator(row))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *AnnotatorStore) Insert(ctx context.Context, a *models.Annotator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[a.AnnotatorID]; ok {
		return fmt.Errorf("annotator %s already exists: %w", a.AnnotatorID, storage.ErrConflict)
	}
	s.seq++
	now := time.Now().UTC()
	a.ID = s.seq
	a.CreatedAt = now
	a.UpdatedAt = now
	s.rows[a.AnnotatorID] = cloneAnnotator(*a)
	return nil
}

func (s *AnnotatorStore) Update(ctx context.Context, a *models.Annotator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.rows[a.AnnotatorID]
	if !ok {
		return storage.ErrNotFound
	}
	a.ID = stored.ID
	a.CreatedAt = stored.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	s.rows[a.AnnotatorID] = cloneAnnotator(*a)
	return nil
}
