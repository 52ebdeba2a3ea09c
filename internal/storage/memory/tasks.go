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

// TaskStore keeps tasks in a map keyed by their public task ID.
type TaskStore struct {
	mu   sync.RWMutex
	seq  int64
	rows map[string]models.Task
}

func NewTaskStore() *TaskStore {
	return &TaskStore{rows: make(map[string]models.Task)}
}

func (s *TaskStore) Create(ctx context.Context, t *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[t.TaskID]; ok {
		return fmt.Errorf("task %s already exists: %w", t.TaskID, storage.ErrConflict)
	}
	s.seq++
	t.ID = s.seq
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	s.rows[t.TaskID] = cloneTask(*t)
	return nil
}

func (s *TaskStore) Get(ctx context.Context, taskID string) (*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[taskID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	t := cloneTask(row)
	return &t, nil
}

func (s *TaskStore) TransitionStatus(ctx context.Context, taskID string, from, to models.TaskStatus, annotatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[taskID]
	if !ok {
		return storage.ErrNotFound
	}
	if row.Status != from {
		return fmt.Errorf("task %s is %s, expected %s: %w", taskID, row.Status, from, storage.ErrConflict)
	}
	row.Status = to
	if annotatorID != "" {
		row.AssignedAnnotatorID = annotatorID
	}
	s.rows[taskID] = row
	return nil
}

func (s *TaskStore) SetCompleted(ctx context.Context, taskID string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[taskID]
	if !ok {
		return storage.ErrNotFound
	}
	row.Status = models.TaskStatusCompleted
	at := completedAt
	row.CompletedAt = &at
	s.rows[taskID] = row
	return nil
}

func (s *TaskStore) ListByStatus(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Task, 0)
	for _, row := range s.rows {
		if row.Status == status {
			out = append(out, cloneTask(row))
		}
	}
	sortQueueOrder(out)
	return out, nil
}

func (s *TaskStore) ListByAnnotator(ctx context.Context, annotatorID string, statuses []models.TaskStatus) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[models.TaskStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}
	out := make([]models.Task, 0)
	for _, row := range s.rows {
		if row.AssignedAnnotatorID == annotatorID && wanted[row.Status] {
			out = append(out, cloneTask(row))
		}
	}
	sortQueueOrder(out)
	return out, nil
}

func (s *TaskStore) ListSince(ctx context.Context, since time.Time) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Task, 0)
	for _, row := range s.rows {
		if row.CreatedAt.Before(since) {
			continue
		}
		out = append(out, cloneTask(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// sortQueueOrder orders tasks by priority descending, then oldest first.
func sortQueueOrder(tasks []models.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].PriorityLevel != tasks[j].PriorityLevel {
			return tasks[i].PriorityLevel > tasks[j].PriorityLevel
		}
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
