// Package postgres implements the storage contracts on PostgreSQL using
// pgxpool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/ArjavDesa912/ConstitutionalFlow/internal/config"
	"github.com/ArjavDesa912/ConstitutionalFlow/internal/storage"
)

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *logrus.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	timeout := cfg.ConnTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithField("database", cfg.Name).Info("Connected to PostgreSQL")
	return pool, nil
}

// NewStores builds the full PostgreSQL store bundle on one pool.
func NewStores(pool *pgxpool.Pool, log *logrus.Logger) *storage.Stores {
	return &storage.Stores{
		Principles: NewPrincipleRepository(pool, log),
		Tasks:      NewTaskRepository(pool, log),
		Annotators: NewAnnotatorRepository(pool, log),
		Feedback:   NewFeedbackRepository(pool, log),
	}
}

// RunMigrations executes the schema migrations in order.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, log *logrus.Logger) error {
	for _, migration := range Migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	log.Info("All migrations completed successfully")
	return nil
}

// Migrations holds the schema DDL. Statements are idempotent so the runner
// can be called on every startup.
var Migrations = []string{
	`CREATE TABLE IF NOT EXISTS constitutional_principles (
		id BIGSERIAL PRIMARY KEY,
		principle_text TEXT NOT NULL,
		category VARCHAR(100),
		confidence_score FLOAT DEFAULT 0.0,
		cultural_context JSONB,
		version_number INTEGER DEFAULT 1,
		is_active BOOLEAN DEFAULT TRUE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS feedback_samples (
		id BIGSERIAL PRIMARY KEY,
		task_id VARCHAR(255),
		original_content TEXT,
		human_feedback TEXT,
		feedback_type VARCHAR(100),
		annotator_id VARCHAR(255),
		quality_score FLOAT,
		metadata JSONB,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS annotators (
		id BIGSERIAL PRIMARY KEY,
		annotator_id VARCHAR(255) UNIQUE NOT NULL,
		skill_scores JSONB,
		performance_history JSONB,
		cultural_background VARCHAR(255),
		languages JSONB,
		availability_status VARCHAR(50) DEFAULT 'available',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id BIGSERIAL PRIMARY KEY,
		task_id VARCHAR(255) UNIQUE NOT NULL,
		content TEXT,
		task_type VARCHAR(100),
		complexity_score FLOAT DEFAULT 0.0,
		estimated_time INTEGER DEFAULT 0,
		priority_level INTEGER DEFAULT 0,
		status VARCHAR(50) DEFAULT 'pending',
		assigned_annotator_id VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		completed_at TIMESTAMP WITH TIME ZONE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_principles_active
		ON constitutional_principles (is_active, confidence_score DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_feedback_created_at
		ON feedback_samples (created_at DESC)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_status
		ON tasks (status, priority_level DESC, created_at ASC)`,

	`CREATE INDEX IF NOT EXISTS idx_tasks_assigned
		ON tasks (assigned_annotator_id)`,
}
