package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

// PrincipleStore keeps principles in a map keyed by ID.
type PrincipleStore struct {
	mu   sync.RWMutex
	seq  int64
	rows map[int64]models.Principle
}

func NewPrincipleStore() *PrincipleStore {
	return &PrincipleStore{rows: make(map[int64]models.Principle)}
}

func (s *PrincipleStore) GetByText(ctx context.Context, text string) (*models.Principle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, row := range s.rows {
		if row.Text == text {
			p := clonePrinciple(row)
			return &p, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *PrincipleStore) ListActive(ctx context.Context, limit int) ([]models.Principle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Principle, 0, len(s.rows))
	for _, row := range s.rows {
		if row.Active {
			out = append(out, clonePrinciple(row))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ConfidenceScore != out[j].ConfidenceScore {
			return out[i].ConfidenceScore > out[j].ConfidenceScore
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *PrincipleStore) Insert(ctx context.Context, p *models.Principle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	now := time.Now().UTC()
	p.ID = s.seq
	p.CreatedAt = now
	p.UpdatedAt = now
	s.rows[p.ID] = clonePrinciple(*p)
	return nil
}

func (s *PrincipleStore) Update(ctx context.Context, p *models.Principle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.rows[p.ID]
	if !ok {
		return storage.ErrNotFound
	}
	p.CreatedAt = stored.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	s.rows[p.ID] = clonePrinciple(*p)
	return nil
}
