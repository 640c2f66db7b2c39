package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parentnote/backend/middleware"
	"github.com/parentnote/backend/models"
	"github.com/parentnote/backend/services"
	"github.com/parentnote/backend/services/analysis"
	"github.com/parentnote/backend/services/records"
)

// MockRecordService is a mock implementation of RecordService and ChildService
type MockRecordService struct {
	mock.Mock
}

func (m *MockRecordService) CreateChild(ctx context.Context, parentID uuid.UUID, input records.CreateChildInput) (*models.Child, error) {
	args := m.Called(ctx, parentID, input)
	if child := args.Get(0); child != nil {
		return child.(*models.Child), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecordService) ListChildren(ctx context.Context, parentID uuid.UUID) ([]*models.Child, error) {
	args := m.Called(ctx, parentID)
	if children := args.Get(0); children != nil {
		return children.([]*models.Child), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecordService) CreateRecord(ctx context.Context, parentID, childID uuid.UUID, input records.CreateRecordInput) (*models.BehaviorRecord, error) {
	args := m.Called(ctx, parentID, childID, input)
	if record := args.Get(0); record != nil {
		return record.(*models.BehaviorRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecordService) GetRecord(ctx context.Context, parentID, recordID uuid.UUID) (*models.BehaviorRecord, error) {
	args := m.Called(ctx, parentID, recordID)
	if record := args.Get(0); record != nil {
		return record.(*models.BehaviorRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRecordService) ListRecords(ctx context.Context, parentID, childID uuid.UUID, limit, offset int) ([]*models.BehaviorRecord, error) {
	args := m.Called(ctx, parentID, childID, limit, offset)
	if list := args.Get(0); list != nil {
		return list.([]*models.BehaviorRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// withRoute attaches the parent and chi URL params to a request
func withRoute(req *http.Request, parentID uuid.UUID, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if parentID != uuid.Nil {
		ctx = middleware.WithParentID(ctx, parentID)
	}
	return req.WithContext(ctx)
}

func sampleRecord(parentID, childID uuid.UUID) *models.BehaviorRecord {
	req := analysis.Request{ChildAgeMonths: 30, BehaviorText: "throws food", Category: analysis.CategoryEating}
	return &models.BehaviorRecord{
		ID:             uuid.New(),
		ChildID:        childID,
		ParentID:       parentID,
		BehaviorText:   req.BehaviorText,
		Category:       req.Category,
		ChildAgeMonths: req.ChildAgeMonths,
		Analysis:       analysis.BuildFallback(req),
		ObservedAt:     time.Date(2024, time.May, 1, 18, 0, 0, 0, time.UTC),
		CreatedAt:      time.Date(2024, time.May, 1, 18, 0, 1, 0, time.UTC),
	}
}

func TestHandleCreateRecord(t *testing.T) {
	logger := zap.NewNop()
	parentID, childID := uuid.New(), uuid.New()
	params := map[string]string{"childID": childID.String()}

	t.Run("creates record", func(t *testing.T) {
		service := new(MockRecordService)
		observed := time.Date(2024, time.May, 1, 18, 0, 0, 0, time.UTC)
		record := sampleRecord(parentID, childID)
		service.On("CreateRecord", mock.Anything, parentID, childID, records.CreateRecordInput{
			BehaviorText: "throws food",
			Category:     "eating",
			ObservedAt:   observed,
		}).Return(record, nil)

		handler := NewRecordHandler(service, logger)
		w := httptest.NewRecorder()
		req := withRoute(postJSON("/", `{"behavior_text":"throws food","category":"eating","observed_at":"2024-05-01T18:00:00Z"}`), parentID, params)

		handler.HandleCreateRecord(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		var response map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, record.ID.String(), response["data"]["id"])
		assert.Equal(t, "fallback", response["data"]["analysis"].(map[string]interface{})["source"])
		service.AssertExpectations(t)
	})

	t.Run("invalid child id", func(t *testing.T) {
		service := new(MockRecordService)
		handler := NewRecordHandler(service, logger)
		w := httptest.NewRecorder()

		handler.HandleCreateRecord(w, withRoute(postJSON("/", `{}`), parentID, map[string]string{"childID": "abc"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		service := new(MockRecordService)
		handler := NewRecordHandler(service, logger)
		w := httptest.NewRecorder()

		handler.HandleCreateRecord(w, withRoute(postJSON("/", `{}`), uuid.Nil, params))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("service errors are mapped", func(t *testing.T) {
		tests := []struct {
			err    error
			status int
		}{
			{services.ErrForbidden, http.StatusForbidden},
			{services.ErrChildNotFound, http.StatusNotFound},
			{services.ErrObservedTooEarly, http.StatusBadRequest},
			{services.WrapInternal("failed to store behavior record", assert.AnError), http.StatusInternalServerError},
		}
		for _, tt := range tests {
			service := new(MockRecordService)
			service.On("CreateRecord", mock.Anything, parentID, childID, mock.Anything).Return(nil, tt.err)
			handler := NewRecordHandler(service, logger)
			w := httptest.NewRecorder()

			handler.HandleCreateRecord(w, withRoute(postJSON("/", `{"behavior_text":"x","category":"other"}`), parentID, params))

			assert.Equal(t, tt.status, w.Code, tt.err.Error())
		}
	})
}

func TestHandleListRecords(t *testing.T) {
	parentID, childID := uuid.New(), uuid.New()
	service := new(MockRecordService)
	service.On("ListRecords", mock.Anything, parentID, childID, 5, 10).
		Return([]*models.BehaviorRecord{sampleRecord(parentID, childID)}, nil)

	handler := NewRecordHandler(service, zap.NewNop())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&offset=10", nil)

	handler.HandleListRecords(w, withRoute(req, parentID, map[string]string{"childID": childID.String()}))

	require.Equal(t, http.StatusOK, w.Code)
	var response struct {
		Data   []json.RawMessage `json:"data"`
		Limit  int               `json:"limit"`
		Offset int               `json:"offset"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Len(t, response.Data, 1)
	assert.Equal(t, 5, response.Limit)
	assert.Equal(t, 10, response.Offset)
	service.AssertExpectations(t)
}

func TestHandleGetRecord(t *testing.T) {
	parentID := uuid.New()
	record := sampleRecord(parentID, uuid.New())

	t.Run("found", func(t *testing.T) {
		service := new(MockRecordService)
		service.On("GetRecord", mock.Anything, parentID, record.ID).Return(record, nil)
		handler := NewRecordHandler(service, zap.NewNop())
		w := httptest.NewRecorder()

		handler.HandleGetRecord(w, withRoute(httptest.NewRequest(http.MethodGet, "/", nil), parentID,
			map[string]string{"recordID": record.ID.String()}))

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		service := new(MockRecordService)
		service.On("GetRecord", mock.Anything, parentID, record.ID).Return(nil, services.ErrRecordNotFound)
		handler := NewRecordHandler(service, zap.NewNop())
		w := httptest.NewRecorder()

		handler.HandleGetRecord(w, withRoute(httptest.NewRequest(http.MethodGet, "/", nil), parentID,
			map[string]string{"recordID": record.ID.String()}))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
