package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/parentnote/backend/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// ChildRepository handles child profile data operations
type ChildRepository interface {
	// Create creates a new child profile
	Create(ctx context.Context, child *models.Child) error

	// GetByID retrieves a child by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Child, error)

	// ListByParent retrieves all children of a parent, oldest profile first
	ListByParent(ctx context.Context, parentID uuid.UUID) ([]*models.Child, error)
}

// RecordRepository handles behavior record data operations
type RecordRepository interface {
	// Create stores a record together with its analysis
	Create(ctx context.Context, record *models.BehaviorRecord) error

	// GetByID retrieves a record by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.BehaviorRecord, error)

	// ListByChild retrieves a child's records, most recent observation first
	ListByChild(ctx context.Context, childID uuid.UUID, limit, offset int) ([]*models.BehaviorRecord, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Children ChildRepository
	Records  RecordRepository
}
