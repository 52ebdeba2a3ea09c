package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

// FeedbackRepository handles feedback sample database operations.
type FeedbackRepository struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewFeedbackRepository(pool *pgxpool.Pool, log *logrus.Logger) *FeedbackRepository {
	return &FeedbackRepository{pool: pool, log: log}
}

func (r *FeedbackRepository) Insert(ctx context.Context, s *models.FeedbackSample) error {
	query := `
		INSERT INTO feedback_samples (
			task_id, original_content, human_feedback, feedback_type,
			annotator_id, quality_score, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	metadataJSON, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		s.TaskID, s.OriginalContent, s.HumanFeedback, s.FeedbackType,
		s.AnnotatorID, s.QualityScore, metadataJSON,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"task_id":       s.TaskID,
		"feedback_type": s.FeedbackType,
	}).Debug("Stored feedback sample")
	return nil
}

func (r *FeedbackRepository) Get(ctx context.Context, id int64) (*models.FeedbackSample, error) {
	query := `
		SELECT id, task_id, original_content, human_feedback, feedback_type,
			annotator_id, quality_score, metadata, created_at
		FROM feedback_samples
		WHERE id = $1
	`

	var s models.FeedbackSample
	var metadataJSON []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID, &s.TaskID, &s.OriginalContent, &s.HumanFeedback, &s.FeedbackType,
		&s.AnnotatorID, &s.QualityScore, &metadataJSON, &s.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("feedback %d: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback %d: %w", id, err)
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &s.Metadata); err != nil {
			r.log.WithError(err).Warn("Failed to unmarshal feedback metadata")
		}
	}
	return &s, nil
}

func (r *FeedbackRepository) ListRecent(ctx context.Context, limit int) ([]models.FeedbackSample, error) {
	query := `
		SELECT id, task_id, original_content, human_feedback, feedback_type,
			annotator_id, quality_score, metadata, created_at
		FROM feedback_samples
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, limit)
}

func (r *FeedbackRepository) ListScored(ctx context.Context, limit int) ([]models.FeedbackSample, error) {
	query := `
		SELECT id, task_id, original_content, human_feedback, feedback_type,
			annotator_id, quality_score, metadata, created_at
		FROM feedback_samples
		WHERE quality_score IS NOT NULL
		ORDER BY created_at DESC, id DESC
	`
	return r.list(ctx, query, limit)
}

func (r *FeedbackRepository) ListScoredByAnnotator(ctx context.Context, annotatorID string) ([]models.FeedbackSample, error) {
	query := `
		SELECT id, task_id, original_content, human_feedback, feedback_type,
			annotator_id, quality_score, metadata, created_at
		FROM feedback_samples
		WHERE annotator_id = $1 AND quality_score IS NOT NULL
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, annotatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	return r.scanSamples(rows)
}

func (r *FeedbackRepository) ListSince(ctx context.Context, since time.Time) ([]models.FeedbackSample, error) {
	query := `
		SELECT id, task_id, original_content, human_feedback, feedback_type,
			annotator_id, quality_score, metadata, created_at
		FROM feedback_samples
		WHERE created_at >= $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	return r.scanSamples(rows)
}

func (r *FeedbackRepository) list(ctx context.Context, query string, limit int) ([]models.FeedbackSample, error) {
	var rows pgx.Rows
	var err error
	if limit > 0 {
		rows, err = r.pool.Query(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = r.pool.Query(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	return r.scanSamples(rows)
}

func (r *FeedbackRepository) scanSamples(rows pgx.Rows) ([]models.FeedbackSample, error) {
	samples := make([]models.FeedbackSample, 0)
	for rows.Next() {
		var s models.FeedbackSample
		var metadataJSON []byte

		err := rows.Scan(
			&s.ID, &s.TaskID, &s.OriginalContent, &s.HumanFeedback, &s.FeedbackType,
			&s.AnnotatorID, &s.QualityScore, &metadataJSON, &s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &s.Metadata); err != nil {
				r.log.WithError(err).Warn("Failed to unmarshal feedback metadata")
			}
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
