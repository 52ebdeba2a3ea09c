// Package storage defines the persistence contracts for principles, tasks,
// annotators and feedback. The memory subpackage backs tests and
// standalone mode; the postgres subpackage backs production.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write loses a compare-and-set race or
// violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// PrincipleStore persists evolved behavioral principles.
type PrincipleStore interface {
	// GetByText looks up a principle by its exact text.
	GetByText(ctx context.Context, text string) (*models.Principle, error)
	// ListActive returns active principles ordered by confidence
	// descending. limit <= 0 means no limit.
	ListActive(ctx context.Context, limit int) ([]models.Principle, error)
	// Insert stores a new principle and fills in ID and timestamps.
	Insert(ctx context.Context, p *models.Principle) error
	// Update rewrites an existing principle by ID and bumps UpdatedAt.
	Update(ctx context.Context, p *models.Principle) error
}

// TaskStore persists annotation tasks keyed by their public task ID.
type TaskStore interface {
	Create(ctx context.Context, t *models.Task) error
	Get(ctx context.Context, taskID string) (*models.Task, error)
	// TransitionStatus moves a task from one status to another only if it
	// still holds the expected current status. annotatorID, when not
	// empty, is recorded as the assignee. Returns ErrConflict when the
	// task changed underneath the caller.
	TransitionStatus(ctx context.Context, taskID string, from, to models.TaskStatus, annotatorID string) error
	// SetCompleted marks a task completed and stamps its completion time.
	SetCompleted(ctx context.Context, taskID string, completedAt time.Time) error
	// ListByStatus returns tasks in queue order: priority descending,
	// then oldest first.
	ListByStatus(ctx context.Context, status models.TaskStatus) ([]models.Task, error)
	// ListByAnnotator returns the annotator's tasks restricted to the
	// given statuses, in queue order.
	ListByAnnotator(ctx context.Context, annotatorID string, statuses []models.TaskStatus) ([]models.Task, error)
	// ListSince returns tasks created at or after the given time, oldest
	// first.
	ListSince(ctx context.Context, since time.Time) ([]models.Task, error)
}

// AnnotatorStore persists annotator profiles keyed by their public ID.
type AnnotatorStore interface {
	Get(ctx context.Context, annotatorID string) (*models.Annotator, error)
	List(ctx context.Context) ([]models.Annotator, error)
	// ListAvailable returns annotators whose availability status is
	// "available".
	ListAvailable(ctx context.Context) ([]models.Annotator, error)
	Insert(ctx context.Context, a *models.Annotator) error
	Update(ctx context.Context, a *models.Annotator) error
}

// FeedbackStore persists human feedback samples.
type FeedbackStore interface {
	Insert(ctx context.Context, s *models.FeedbackSample) error
	// Get looks up one sample by its row ID.
	Get(ctx context.Context, id int64) (*models.FeedbackSample, error)
	// ListRecent returns the newest samples first. limit <= 0 means no
	// limit.
	ListRecent(ctx context.Context, limit int) ([]models.FeedbackSample, error)
	// ListScored returns the newest samples that carry a quality score.
	ListScored(ctx context.Context, limit int) ([]models.FeedbackSample, error)
	// ListScoredByAnnotator returns the annotator's scored samples oldest
	// first.
	ListScoredByAnnotator(ctx context.Context, annotatorID string) ([]models.FeedbackSample, error)
	// ListSince returns samples created at or after the given time, oldest
	// first.
	ListSince(ctx context.Context, since time.Time) ([]models.FeedbackSample, error)
}

// Stores bundles the four contracts for wiring.
type Stores struct {
	Principles PrincipleStore
	Tasks      TaskStore
	Annotators AnnotatorStore
	Feedback   FeedbackStore
}
