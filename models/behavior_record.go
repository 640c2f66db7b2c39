package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/parentnote/backend/services/analysis"
)

// BehaviorRecord is one stored observation together with its analysis
type BehaviorRecord struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	ChildID        uuid.UUID       `json:"child_id" db:"child_id"`
	ParentID       uuid.UUID       `json:"parent_id" db:"parent_id"`
	BehaviorText   string          `json:"behavior_text" db:"behavior_text"`
	Category       string          `json:"category" db:"category"`
	Context        string          `json:"context,omitempty" db:"context"`
	ChildAgeMonths int             `json:"child_age_months" db:"child_age_months"`
	Analysis       analysis.Result `json:"analysis"`
	ObservedAt     time.Time       `json:"observed_at" db:"observed_at"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the BehaviorRecord model
func (BehaviorRecord) TableName() string {
	return "behavior_records"
}

// NewBehaviorRecord creates a record for child from the request that was analyzed
func NewBehaviorRecord(child *Child, req analysis.Request, result analysis.Result, observedAt time.Time) *BehaviorRecord {
	return &BehaviorRecord{
		ID:             uuid.New(),
		ChildID:        child.ID,
		ParentID:       child.ParentID,
		BehaviorText:   req.BehaviorText,
		Category:       req.Category,
		Context:        req.Context,
		ChildAgeMonths: req.ChildAgeMonths,
		Analysis:       result,
		ObservedAt:     observedAt.UTC(),
		CreatedAt:      time.Now().UTC(),
	}
}

// AnalysisRequest rebuilds the request the record was analyzed from
func (r *BehaviorRecord) AnalysisRequest() analysis.Request {
	return analysis.Request{
		ChildAgeMonths: r.ChildAgeMonths,
		BehaviorText:   r.BehaviorText,
		Category:       r.Category,
		Context:        r.Context,
	}
}
