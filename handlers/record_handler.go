package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parentnote/backend/models"
	"github.com/parentnote/backend/services/records"
	"github.com/parentnote/backend/utils"
)

// CreateRecordRequest is the body of POST /api/v1/children/{childID}/records
type CreateRecordRequest struct {
	BehaviorText string     `json:"behavior_text" validate:"required,notblank,max=4000"`
	Category     string     `json:"category" validate:"required,category"`
	Context      string     `json:"context" validate:"max=2000"`
	ObservedAt   *time.Time `json:"observed_at,omitempty"`
}

// RecordService defines the record operations used by the handler
type RecordService interface {
	CreateRecord(ctx context.Context, parentID, childID uuid.UUID, input records.CreateRecordInput) (*models.BehaviorRecord, error)
	GetRecord(ctx context.Context, parentID, recordID uuid.UUID) (*models.BehaviorRecord, error)
	ListRecords(ctx context.Context, parentID, childID uuid.UUID, limit, offset int) ([]*models.BehaviorRecord, error)
}

// RecordHandler handles behavior record HTTP requests
type RecordHandler struct {
	service RecordService
	logger  *zap.Logger
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(service RecordService, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreateRecord handles POST /api/v1/children/{childID}/records
func (h *RecordHandler) HandleCreateRecord(w http.ResponseWriter, r *http.Request) {
	parentID, ok := requireParent(w, r, h.logger)
	if !ok {
		return
	}
	childID, err := utils.ParseUUID(chi.URLParam(r, "childID"), "childID")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var body CreateRecordRequest
	if err := utils.DecodeJSON(r, &body); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	input := records.CreateRecordInput{
		BehaviorText: strings.TrimSpace(body.BehaviorText),
		Category:     body.Category,
		Context:      body.Context,
	}
	if body.ObservedAt != nil {
		input.ObservedAt = *body.ObservedAt
	}

	record, err := h.service.CreateRecord(r.Context(), parentID, childID, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, record)
}

// HandleListRecords handles GET /api/v1/children/{childID}/records
func (h *RecordHandler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	parentID, ok := requireParent(w, r, h.logger)
	if !ok {
		return
	}
	childID, err := utils.ParseUUID(chi.URLParam(r, "childID"), "childID")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	limit, offset := utils.ParsePagination(r, records.DefaultPageSize, records.MaxPageSize)

	list, err := h.service.ListRecords(r.Context(), parentID, childID, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteList(w, list, limit, offset)
}

// HandleGetRecord handles GET /api/v1/records/{recordID}
func (h *RecordHandler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	parentID, ok := requireParent(w, r, h.logger)
	if !ok {
		return
	}
	recordID, err := utils.ParseUUID(chi.URLParam(r, "recordID"), "recordID")
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	record, err := h.service.GetRecord(r.Context(), parentID, recordID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, record)
}
