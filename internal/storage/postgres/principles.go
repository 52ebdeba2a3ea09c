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

// PrincipleRepository handles constitutional principle database operations.
type PrincipleRepository struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewPrincipleRepository(pool *pgxpool.Pool, log *logrus.Logger) *PrincipleRepository {
	return &PrincipleRepository{pool: pool, log: log}
}

func (r *PrincipleRepository) GetByText(ctx context.Context, text string) (*models.Principle, error) {
	query := `
		SELECT id, principle_text, category, confidence_score, cultural_context,
			version_number, is_active, created_at, updated_at
		FROM constitutional_principles
		WHERE principle_text = $1
	`

	p := &models.Principle{}
	var contextJSON []byte

	err := r.pool.QueryRow(ctx, query, text).Scan(
		&p.ID, &p.Text, &p.Category, &p.ConfidenceScore, &contextJSON,
		&p.VersionNumber, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("principle not found: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get principle: %w", err)
	}

	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &p.CulturalContext); err != nil {
			r.log.WithError(err).Warn("Failed to unmarshal cultural context")
		}
	}
	return p, nil
}

func (r *PrincipleRepository) ListActive(ctx context.Context, limit int) ([]models.Principle, error) {
	query := `
		SELECT id, principle_text, category, confidence_score, cultural_context,
			version_number, is_active, created_at, updated_at
		FROM constitutional_principles
		WHERE is_active = TRUE
		ORDER BY confidence_score DESC, id ASC
	`

	var rows pgx.Rows
	var err error
	if limit > 0 {
		rows, err = r.pool.Query(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = r.pool.Query(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query principles: %w", err)
	}
	defer rows.Close()

	return r.scanPrinciples(rows)
}

func (r *PrincipleRepository) Insert(ctx context.Context, p *models.Principle) error {
	query := `
		INSERT INTO constitutional_principles (
			principle_text, category, confidence_score, cultural_context,
			version_number, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	contextJSON, err := json.Marshal(p.CulturalContext)
	if err != nil {
		return fmt.Errorf("failed to marshal cultural context: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		p.Text, p.Category, p.ConfidenceScore, contextJSON,
		p.VersionNumber, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert principle: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"principle_id": p.ID,
		"category":     p.Category,
	}).Debug("Inserted principle")
	return nil
}

func (r *PrincipleRepository) Update(ctx context.Context, p *models.Principle) error {
	query := `
		UPDATE constitutional_principles
		SET principle_text = $2, category = $3, confidence_score = $4,
			cultural_context = $5, version_number = $6, is_active = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	contextJSON, err := json.Marshal(p.CulturalContext)
	if err != nil {
		return fmt.Errorf("failed to marshal cultural context: %w", err)
	}

	err = r.pool.QueryRow(ctx, query,
		p.ID, p.Text, p.Category, p.ConfidenceScore,
		contextJSON, p.VersionNumber, p.Active,
	).Scan(&p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("principle %d: %w", p.ID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update principle: %w", err)
	}
	return nil
}

func (r *PrincipleRepository) scanPrinciples(rows pgx.Rows) ([]models.Principle, error) {
	principles := make([]models.Principle, 0)
	for rows.Next() {
		var p models.Principle
		var contextJSON []byte

		err := rows.Scan(
			&p.ID, &p.Text, &p.Category, &p.ConfidenceScore, &contextJSON,
			&p.VersionNumber, &p.Active, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan principle: %w", err)
		}
		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &p.CulturalContext); err != nil {
				r.log.WithError(err).Warn("Failed to unmarshal cultural context")
			}
		}
		principles = append(principles, p)
	}
	return principles, rows.Err()
}
