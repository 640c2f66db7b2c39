package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/parentnote/backend/middleware"
	"github.com/parentnote/backend/models"
	"github.com/parentnote/backend/services/records"
	"github.com/parentnote/backend/utils"
)

const dateLayout = "2006-01-02"

// CreateChildRequest is the body of POST /api/v1/children
type CreateChildRequest struct {
	Name      string `json:"name" validate:"required,notblank,max=255"`
	BirthDate string `json:"birth_date" validate:"required,datetime=2006-01-02"`
}

// ChildResponse represents a child in API responses
type ChildResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	BirthDate   string    `json:"birth_date"`
	AgeInMonths int       `json:"age_months"`
	CreatedAt   string    `json:"created_at"`
}

// ChildService defines the child operations used by the handler
type ChildService interface {
	CreateChild(ctx context.Context, parentID uuid.UUID, input records.CreateChildInput) (*models.Child, error)
	ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.Child, error)
}

// ChildHandler handles child profile HTTP requests
type ChildHandler struct {
	service ChildService
	logger  *zap.Logger
	now     func() time.Time
}

// NewChildHandler creates a new ChildHandler
func NewChildHandler(service ChildService, logger *zap.Logger) *ChildHandler {
	return &ChildHandler{
		service: service,
		logger:  logger,
		now:     time.Now,
	}
}

// HandleCreateChild handles POST /api/v1/children
func (h *ChildHandler) HandleCreateChild(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parentID, ok := requireParent(w, r, h.logger)
	if !ok {
		return
	}

	var body CreateChildRequest
	if err := utils.DecodeJSON(r, &body); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	birthDate, _ := time.Parse(dateLayout, body.BirthDate)

	child, err := h.service.CreateChild(ctx, parentID, records.CreateChildInput{
		Name:      body.Name,
		BirthDate: birthDate,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, h.childToResponse(child))
}

// HandleListChildren handles GET /api/v1/children
func (h *ChildHandler) HandleListChildren(w http.ResponseWriter, r *http.Request) {
	parentID, ok := requireParent(w, r, h.logger)
	if !ok {
		return
	}

	children, err := h.service.ListChildren(r.Context(), parentID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]ChildResponse, len(children))
	for i, c := range children {
		responses[i] = h.childToResponse(c)
	}

	_ = utils.WriteOK(w, responses)
}

func (h *ChildHandler) childToResponse(c *models.Child) ChildResponse {
	return ChildResponse{
		ID:          c.ID,
		Name:        c.Name,
		BirthDate:   c.BirthDate.Format(dateLayout),
		AgeInMonths: c.AgeInMonths(h.now()),
		CreatedAt:   c.CreatedAt.Format(time.RFC3339),
	}
}

// requireParent reads the authenticated parent, writing 401 when it is missing
func requireParent(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	parentID := middleware.GetParentIDFromContext(r.Context())
	if parentID == uuid.Nil {
		logger.Error("missing parent ID in context",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return uuid.Nil, false
	}
	return parentID, true
}
