package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/models"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

// AnnotatorRepository handles annotator profile database operations.
type AnnotatorRepository struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewAnnotatorRepository(pool *pgxpool.Pool, log *logrus.Logger) *AnnotatorRepository {
	return &AnnotatorRepository{pool: pool, log: log}
}

const annotatorColumns = `id, annotator_id, skill_scores, performance_history,
	cultural_background, languages, availability_status, created_at, updated_at`

func (r *AnnotatorRepository) Get(ctx context.Context, annotatorID string) (*models.Annotator, error) {
	query := `
		SELECT ` + annotatorColumns + `
		FROM annotators
		WHERE annotator_id = $1
	`

	row := r.pool.QueryRow(ctx, query, annotatorID)
	a, err := r.scanAnnotatorRow(row)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("annotator %s: %w", annotatorID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get annotator: %w", err)
	}
	return a, nil
}

func (r *AnnotatorRepository) List(ctx context.Context) ([]models.Annotator, error) {
	query := `
		SELECT ` + annotatorColumns + `
		FROM annotators
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query annotators: %w", err)
	}
	defer rows.Close()

	return r.scanAnnotators(rows)
}

func (r *AnnotatorRepository) ListAvailable(ctx context.Context) ([]models.Annotator, error) {
	query := `
		SELECT ` + annotatorColumns + `
		FROM annotators
		WHERE availability_status = $1
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, models.AvailabilityAvailable)
	if err != nil {
		return nil, fmt.Errorf("failed to query available annotators: %w", err)
	}
	defer rows.Close()

	return r.scanAnnotators(rows)
}

func (r *AnnotatorRepository) Insert(ctx context.Context, a *models.Annotator) error {
	query := `
		INSERT INTO annotators (
			annotator_id, skill_scores, performance_history,
			cultural_background, languages, availability_status
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	skillsJSON, performanceJSON, languagesJSON, err := marshalAnnotator(a)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, query,
		a.AnnotatorID, skillsJSON, performanceJSON,
		a.CulturalBackground, languagesJSON, a.AvailabilityStatus,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("annotator %s already exists: %w", a.AnnotatorID, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to insert annotator: %w", err)
	}

	r.log.WithField("annotator_id", a.AnnotatorID).Debug("Registered annotator")
	return nil
}

func (r *AnnotatorRepository) Update(ctx context.Context, a *models.Annotator) error {
	query := `
		UPDATE annotators
		SET skill_scores = $2, performance_history = $3, cultural_background = $4,
			languages = $5, availability_status = $6, updated_at = NOW()
		WHERE annotator_id = $1
		RETURNING id, updated_at
	`

	skillsJSON, performanceJSON, languagesJSON, err := marshalAnnotator(a)
	if err != nil {
		return err
	}

	err = r.pool.QueryRow(ctx, query,
		a.AnnotatorID, skillsJSON, performanceJSON,
		a.CulturalBackground, languagesJSON, a.AvailabilityStatus,
	).Scan(&a.ID, &a.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("annotator %s: %w", a.AnnotatorID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update annotator: %w", err)
	}
	return nil
}

func marshalAnnotator(a *models.Annotator) (skills, performance, languages []byte, err error) {
	skills, err = json.Marshal(a.SkillScores)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal skill scores: %w", err)
	}
	performance, err = json.Marshal(a.Performance)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal performance history: %w", err)
	}
	languages, err = json.Marshal(a.Languages)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal languages: %w", err)
	}
	return skills, performance, languages, nil
}

func (r *AnnotatorRepository) scanAnnotatorRow(row pgx.Row) (*models.Annotator, error) {
	a := &models.Annotator{}
	var skillsJSON, performanceJSON, languagesJSON []byte

	err := row.Scan(
		&a.ID, &a.AnnotatorID, &skillsJSON, &performanceJSON,
		&a.CulturalBackground, &languagesJSON, &a.AvailabilityStatus,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(skillsJSON) > 0 {
		if err := json.Unmarshal(skillsJSON, &a.SkillScores); err != nil {
			r.log.WithError(err).Warn("Failed to unmarshal skill scores")
		}
	}
	if len(performanceJSON) > 0 {
		if err := json.Unmarshal(performanceJSON, &a.Performance); err != nil {
			r.log.WithError(err).Warn("Failed to unmarshal performance history")
		}
	}
	if len(languagesJSON) > 0 {
		if err := json.Unmarshal(languagesJSON, &a.Languages); err != nil {
			r.log.WithError(err).Warn("Failed to unmarshal languages")
		}
	}
	return a, nil
}

func (r *AnnotatorRepository) scanAnnotators(rows pgx.Rows) ([]models.Annotator, error) {
	annotators := make([]models.Annotator, 0)
	for rows.Next() {
		a, err := r.scanAnnotatorRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annotator: %w", err)
		}
		annotators = append(annotators, *a)
	}
	return annotators, rows.Err()
}
