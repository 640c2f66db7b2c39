package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parentnote/backend/models"
	"github.com/parentnote/backend/repositories"
	"github.com/parentnote/backend/services/analysis"
)

const recordColumns = `id, child_id, parent_id, behavior_text, category, context, child_age_months,
		       development_stage, interpretation, suggestions, confidence_level, source,
		       observed_at, created_at`

// RecordRepository implements the repositories.RecordRepository interface
type RecordRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRecordRepository creates a new behavior record repository
func NewRecordRepository(db *DB, logger *zap.Logger) repositories.RecordRepository {
	return &RecordRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a record with its analysis result flattened into columns
func (r *RecordRepository) Create(ctx context.Context, record *models.BehaviorRecord) error {
	suggestions, err := json.Marshal(record.Analysis.Suggestions)
	if err != nil {
		return fmt.Errorf("failed to marshal suggestions: %w", err)
	}

	query := `
		INSERT INTO behavior_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		record.ID,
		record.ChildID,
		record.ParentID,
		record.BehaviorText,
		record.Category,
		record.Context,
		record.ChildAgeMonths,
		record.Analysis.DevelopmentStage,
		record.Analysis.Interpretation,
		suggestions,
		string(record.Analysis.Confidence),
		string(record.Analysis.Source),
		record.ObservedAt,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create behavior record: %w", err)
	}

	r.logger.Debug("behavior record created",
		zap.String("id", record.ID.String()),
		zap.String("source", string(record.Analysis.Source)),
	)
	return nil
}

// GetByID retrieves a record by ID
func (r *RecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BehaviorRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM behavior_records
		WHERE id = $1
	`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("behavior record %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get behavior record: %w", err)
	}

	return record, nil
}

// ListByChild retrieves a child's records with pagination
func (r *RecordRepository) ListByChild(ctx context.Context, childID uuid.UUID, limit, offset int) ([]*models.BehaviorRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM behavior_records
		WHERE child_id = $1
		ORDER BY observed_at DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, childID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list behavior records: %w", err)
	}
	defer rows.Close()

	records := []*models.BehaviorRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan behavior record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating behavior record rows: %w", err)
	}

	return records, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.BehaviorRecord, error) {
	record := &models.BehaviorRecord{}
	var suggestions []byte
	var confidence, source string

	if err := row.Scan(
		&record.ID,
		&record.ChildID,
		&record.ParentID,
		&record.BehaviorText,
		&record.Category,
		&record.Context,
		&record.ChildAgeMonths,
		&record.Analysis.DevelopmentStage,
		&record.Analysis.Interpretation,
		&suggestions,
		&confidence,
		&source,
		&record.ObservedAt,
		&record.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(suggestions, &record.Analysis.Suggestions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suggestions: %w", err)
	}
	record.Analysis.Confidence = analysis.ConfidenceLevel(confidence)
	record.Analysis.Source = analysis.Source(source)

	return record, nil
}
