// Package records manages child profiles and behavior records. Creating a record runs
// the observation through the analysis orchestrator and stores the result it returns.
package records

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parentnote/backend/models"
	"github.com/parentnote/backend/repositories"
	"github.com/parentnote/backend/services"
	"github.com/parentnote/backend/services/analysis"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Analyzer produces an analysis for a request. *analysis.Orchestrator satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) analysis.Result
}

// CreateChildInput holds the fields of a new child profile
type CreateChildInput struct {
	Name      string
	BirthDate time.Time
}

// CreateRecordInput holds a parent's observation. A zero ObservedAt means now.
type CreateRecordInput struct {
	BehaviorText string
	Category     string
	Context      string
	ObservedAt   time.Time
}

// Service implements the child and record operations
type Service struct {
	children repositories.ChildRepository
	records  repositories.RecordRepository
	analyzer Analyzer
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a new record service
func NewService(repos *repositories.Repositories, analyzer Analyzer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		children: repos.Children,
		records:  repos.Records,
		analyzer: analyzer,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateChild creates a child profile owned by parentID
func (s *Service) CreateChild(ctx context.Context, parentID uuid.UUID, input CreateChildInput) (*models.Child, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, services.ErrInvalidInput.WithDetail("name", "name is required")
	}
	if input.BirthDate.IsZero() {
		return nil, services.ErrInvalidInput.WithDetail("birth_date", "birth date is required")
	}
	if input.BirthDate.After(s.now()) {
		return nil, services.ErrBirthDateInFuture
	}

	child := models.NewChild(parentID, name, input.BirthDate)
	if err := s.children.Create(ctx, child); err != nil {
		return nil, services.WrapInternal("failed to create child", err)
	}

	s.logger.Info("child created",
		zap.String("child_id", child.ID.String()),
		zap.String("parent_id", parentID.String()),
	)
	return child, nil
}

// ListChildren returns the parent's children
func (s *Service) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.Child, error) {
	children, err := s.children.ListByParent(ctx, parentID)
	if err != nil {
		return nil, services.WrapInternal("failed to list children", err)
	}
	return children, nil
}

// CreateRecord analyzes an observation about one of the parent's children and stores
// it. The analysis always yields a result, so only validation, ownership and storage
// errors are returned.
func (s *Service) CreateRecord(ctx context.Context, parentID, childID uuid.UUID, input CreateRecordInput) (*models.BehaviorRecord, error) {
	child, err := s.ownedChild(ctx, parentID, childID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	observedAt := input.ObservedAt
	if observedAt.IsZero() {
		observedAt = now
	}
	if observedAt.After(now) {
		return nil, services.ErrInvalidInput.WithDetail("observed_at", "observation time cannot be in the future")
	}
	if observedAt.Before(child.BirthDate) {
		return nil, services.ErrObservedTooEarly
	}

	req := analysis.Request{
		ChildAgeMonths: child.AgeInMonths(observedAt),
		BehaviorText:   strings.TrimSpace(input.BehaviorText),
		Category:       input.Category,
		Context:        strings.TrimSpace(input.Context),
	}
	if req.BehaviorText == "" {
		return nil, services.ErrInvalidInput.WithDetail("behavior_text", "behavior text is required")
	}
	if req.Category == "" {
		return nil, services.ErrInvalidInput.WithDetail("category", "category is required")
	}

	result := s.analyzer.Analyze(ctx, req)

	record := models.NewBehaviorRecord(child, req, result, observedAt)
	if err := s.records.Create(ctx, record); err != nil {
		return nil, services.WrapInternal("failed to store behavior record", err)
	}

	s.logger.Info("behavior record created",
		zap.String("record_id", record.ID.String()),
		zap.String("child_id", child.ID.String()),
		zap.String("source", string(result.Source)),
	)
	return record, nil
}

// GetRecord returns one record if it belongs to parentID
func (s *Service) GetRecord(ctx context.Context, parentID, recordID uuid.UUID) (*models.BehaviorRecord, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrRecordNotFound
		}
		return nil, services.WrapInternal("failed to get behavior record", err)
	}
	if record.ParentID != parentID {
		return nil, services.ErrForbidden
	}
	return record, nil
}

// ListRecords pages through a child's records. Out of range limits fall back to the
// defaults.
func (s *Service) ListRecords(ctx context.Context, parentID, childID uuid.UUID, limit, offset int) ([]*models.BehaviorRecord, error) {
	if _, err := s.ownedChild(ctx, parentID, childID); err != nil {
		return nil, err
	}

	limit, offset = NormalizePage(limit, offset)
	records, err := s.records.ListByChild(ctx, childID, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list behavior records", err)
	}
	return records, nil
}

// NormalizePage clamps pagination parameters
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *Service) ownedChild(ctx context.Context, parentID, childID uuid.UUID) (*models.Child, error) {
	child, err := s.children.GetByID(ctx, childID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrChildNotFound
		}
		return nil, services.WrapInternal("failed to get child", err)
	}
	if !child.OwnedBy(parentID) {
		s.logger.Warn("child access denied",
			zap.String("child_id", childID.String()),
			zap.String("parent_id", parentID.String()),
		)
		return nil, services.ErrForbidden
	}
	return child, nil
}
