package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/parentnote/backend/middleware"
	"github.com/parentnote/backend/services/analysis"
	"github.com/parentnote/backend/utils"
)

// AnalyzeRequest is the body of POST /api/v1/analysis
type AnalyzeRequest struct {
	ChildAgeMonths *int   `json:"child_age_months" validate:"required,gte=0,lte=300"`
	BehaviorText   string `json:"behavior_text" validate:"required,notblank,max=4000"`
	Category       string `json:"category" validate:"required,category"`
	Context        string `json:"context" validate:"max=2000"`
}

// AnalysisService is the analysis surface the handler needs.
// *analysis.Orchestrator satisfies it.
type AnalysisService interface {
	Analyze(ctx context.Context, req analysis.Request) analysis.Result
	ListBackendStatus(ctx context.Context) []analysis.BackendStatus
}

// AnalysisHandler handles analysis HTTP requests
type AnalysisHandler struct {
	service       AnalysisService
	statusTimeout time.Duration
	logger        *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler
func NewAnalysisHandler(service AnalysisService, statusTimeout time.Duration, logger *zap.Logger) *AnalysisHandler {
	if statusTimeout <= 0 {
		statusTimeout = 3 * time.Second
	}
	return &AnalysisHandler{
		service:       service,
		statusTimeout: statusTimeout,
		logger:        logger,
	}
}

// HandleAnalyze handles POST /api/v1/analysis.
// The result is returned as produced, whichever backend produced it.
func (h *AnalysisHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var body AnalyzeRequest
	if err := utils.DecodeJSON(r, &body); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(body); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	req := analysis.Request{
		ChildAgeMonths: *body.ChildAgeMonths,
		BehaviorText:   strings.TrimSpace(body.BehaviorText),
		Category:       body.Category,
		Context:        strings.TrimSpace(body.Context),
	}

	result := h.service.Analyze(ctx, req)

	h.logger.Debug("analysis completed",
		zap.String("request_id", requestID),
		zap.String("source", string(result.Source)),
		zap.String("confidence", string(result.Confidence)))

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write analysis response", zap.Error(err))
	}
}

// HandleListBackends handles GET /api/v1/analysis/backends
func (h *AnalysisHandler) HandleListBackends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.statusTimeout)
	defer cancel()

	statuses := h.service.ListBackendStatus(ctx)

	if err := utils.WriteOK(w, statuses); err != nil {
		h.logger.Error("failed to write backend status response", zap.Error(err))
	}
}
