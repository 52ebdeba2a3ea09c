package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

// TaskRepository handles annotation task database operations.
type TaskRepository struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewTaskRepository(pool *pgxpool.Pool, log *logrus.Logger) *TaskRepository {
	return &TaskRepository{pool: pool, log: log}
}

func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	query := `
		INSERT INTO tasks (
			task_id, content, task_type, complexity_score,
			estimated_time, priority_level, status, assigned_annotator_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}

	err := r.pool.QueryRow(ctx, query,
		t.TaskID, t.Content, t.TaskType, t.ComplexityScore,
		t.EstimatedTime, t.PriorityLevel, t.Status, t.AssignedAnnotatorID,
	).Scan(&t.ID, &t.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("task %s already exists: %w", t.TaskID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"task_id":   t.TaskID,
		"task_type": t.TaskType,
	}).Debug("Created task")
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, taskID string) (*models.Task, error) {
	query := `
		SELECT id, task_id, content, task_type, complexity_score,
			estimated_time, priority_level, status, assigned_annotator_id,
			created_at, completed_at
		FROM tasks
		WHERE task_id = $1
	`

	t := &models.Task{}
	err := r.pool.QueryRow(ctx, query, taskID).Scan(
		&t.ID, &t.TaskID, &t.Content, &t.TaskType, &t.ComplexityScore,
		&t.EstimatedTime, &t.PriorityLevel, &t.Status, &t.AssignedAnnotatorID,
		&t.CreatedAt, &t.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", taskID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (r *TaskRepository) TransitionStatus(ctx context.Context, taskID string, from, to models.TaskStatus, annotatorID string) error {
	var tag int64
	if annotatorID != "" {
		query := `
			UPDATE tasks
			SET status = $3, assigned_annotator_id = $4
			WHERE task_id = $1 AND status = $2
		`
		result, err := r.pool.Exec(ctx, query, taskID, from, to, annotatorID)
		if err != nil {
			return fmt.Errorf("failed to transition task: %w", err)
		}
		tag = result.RowsAffected()
	} else {
		query := `
			UPDATE tasks
			SET status = $3
			WHERE task_id = $1 AND status = $2
		`
		result, err := r.pool.Exec(ctx, query, taskID, from, to)
		if err != nil {
			return fmt.Errorf("failed to transition task: %w", err)
		}
		tag = result.RowsAffected()
	}

	if tag == 0 {
		// Distinguish a missing task from one that changed underneath us.
		var current models.TaskStatus
		err := r.pool.QueryRow(ctx, `SELECT status FROM tasks WHERE task_id = $1`, taskID).Scan(&current)
		if err == pgx.ErrNoRows {
			return fmt.Errorf("task %s: %w", taskID, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to check task status: %w", err)
		}
		return fmt.Errorf("task %s is %s, expected %s: %w", taskID, current, from, storage.ErrConflict)
	}
	return nil
}

func (r *TaskRepository) SetCompleted(ctx context.Context, taskID string, completedAt time.Time) error {
	query := `
		UPDATE tasks
		SET status = $2, completed_at = $3
		WHERE task_id = $1
	`

	result, err := r.pool.Exec(ctx, query, taskID, models.TaskStatusCompleted, completedAt)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("task %s: %w", taskID, storage.ErrNotFound)
	}
	return nil
}

func (r *TaskRepository) ListByStatus(ctx context.Context, status models.TaskStatus) ([]models.Task, error) {
	query := `
		SELECT id, task_id, content, task_type, complexity_score,
			estimated_time, priority_level, status, assigned_annotator_id,
			created_at, completed_at
		FROM tasks
		WHERE status = $1
		ORDER BY priority_level DESC, created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func (r *TaskRepository) ListByAnnotator(ctx context.Context, annotatorID string, statuses []models.TaskStatus) ([]models.Task, error) {
	query := `
		SELECT id, task_id, content, task_type, complexity_score,
			estimated_time, priority_level, status, assigned_annotator_id,
			created_at, completed_at
		FROM tasks
		WHERE assigned_annotator_id = $1 AND status = ANY($2)
		ORDER BY priority_level DESC, created_at ASC, id ASC
	`

	wanted := make([]string, 0, len(statuses))
	for _, st := range statuses {
		wanted = append(wanted, string(st))
	}

	rows, err := r.pool.Query(ctx, query, annotatorID, wanted)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotator tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func (r *TaskRepository) ListSince(ctx context.Context, since time.Time) ([]models.Task, error) {
	query := `
		SELECT id, task_id, content, task_type, complexity_score,
			estimated_time, priority_level, status, assigned_annotator_id,
			created_at, completed_at
		FROM tasks
		WHERE created_at >= $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func scanTasks(rows pgx.Rows) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	for rows.Next() {
		var t models.Task
		err := rows.Scan(
			&t.ID, &t.TaskID, &t.Content, &t.TaskType, &t.ComplexityScore,
			&t.EstimatedTime, &t.PriorityLevel, &t.Status, &t.AssignedAnnotatorID,
			&t.CreatedAt, &t.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
