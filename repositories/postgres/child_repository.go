package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parentnote/backend/models"
	"github.com/parentnote/backend/repositories"
)

// ChildRepository implements the repositories.ChildRepository interface
type ChildRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewChildRepository creates a new child repository
func NewChildRepository(db *DB, logger *zap.Logger) repositories.ChildRepository {
	return &ChildRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new child profile
func (r *ChildRepository) Create(ctx context.Context, child *models.Child) error {
	query := `
		INSERT INTO children (id, parent_id, name, birth_date, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		child.ID,
		child.ParentID,
		child.Name,
		child.BirthDate,
		child.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}

	r.logger.Debug("child created", zap.String("id", child.ID.String()))
	return nil
}

// GetByID retrieves a child by ID
func (r *ChildRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Child, error) {
	query := `
		SELECT id, parent_id, name, birth_date, created_at
		FROM children
		WHERE id = $1
	`

	child := &models.Child{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&child.ID,
		&child.ParentID,
		&child.Name,
		&child.BirthDate,
		&child.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("child %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get child: %w", err)
	}

	return child, nil
}

// ListByParent retrieves all children of a parent
func (r *ChildRepository) ListByParent(ctx context.Context, parentID uuid.UUID) ([]*models.Child, error) {
	query := `
		SELECT id, parent_id, name, birth_date, created_at
		FROM children
		WHERE parent_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	children := []*models.Child{}
	for rows.Next() {
		child := &models.Child{}
		if err := rows.Scan(
			&child.ID,
			&child.ParentID,
			&child.Name,
			&child.BirthDate,
			&child.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, child)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating child rows: %w", err)
	}

	return children, nil
}
