package handler

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"visitlog/internal/platform/middleware"
	"visitlog/internal/visit/handler/mocks"
	"visitlog/internal/visit/models"
	"visitlog/internal/visit/service"
	dErrors "visitlog/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/visit-mocks.go -package=mocks Service

const testToken = "valid-test-token"

// stubValidator accepts exactly one token; everything else is rejected.
type stubValidator struct{}

func (stubValidator) ValidateAccessToken(_ context.Context, token string) (*middleware.JWTClaims, error) {
	if token != testToken {
		return nil, errors.New("unknown token")
	}
	return &middleware.JWTClaims{UserID: "user-1", Username: "reception"}, nil
}

type VisitHandlerSuite struct {
	suite.Suite
}

func TestVisitHandlerSuite(t *testing.T) {
	suite.Run(t, new(VisitHandlerSuite))
}

func newTestRouter(t *testing.T) (chi.Router, *mocks.MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	mockService := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(mockService, logger, nil, stubValidator{})
	r := chi.NewRouter()
	h.Register(r)
	return r, mockService
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleVisit(exit *time.Time) *models.Visit {
	return &models.Visit{
		ID:          uuid.New(),
		RUT:         "12.345.678-5",
		VisitorName: "Maria Gonzalez",
		Reason:      "vendor meeting",
		EntryTime:   time.Date(2025, 6, 12, 9, 30, 0, 0, time.UTC),
		ExitTime:    exit,
	}
}

func (s *VisitHandlerSuite) TestCreateVisit() {
	router, mockService := newTestRouter(s.T())
	visit := sampleVisit(nil)
	mockService.EXPECT().Create(gomock.Any(), service.CreateParams{
		RUT:         "12.345.678-5",
		VisitorName: "Maria Gonzalez",
		Reason:      "vendor meeting",
	}).Return(visit, nil)

	w := doJSON(s.T(), router, http.MethodPost, "/api/visits", CreateVisitRequest{
		RUT:         "12.345.678-5",
		VisitorName: "Maria Gonzalez",
		Reason:      "vendor meeting",
	}, true)

	assert.Equal(s.T(), http.StatusCreated, w.Code)
	var resp VisitResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), visit.ID.String(), resp.ID)
	assert.Equal(s.T(), "Active", resp.Status)
	assert.Nil(s.T(), resp.ExitTime)
}

func (s *VisitHandlerSuite) TestCreateVisitValidationError() {
	router, mockService := newTestRouter(s.T())
	mockService.EXPECT().Create(gomock.Any(), gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeValidation, "invalid rut: check digit mismatch"))

	w := doJSON(s.T(), router, http.MethodPost, "/api/visits", CreateVisitRequest{
		RUT:         "12345678-0",
		VisitorName: "Maria Gonzalez",
		Reason:      "vendor meeting",
	}, true)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "validation_error", resp["error"])
	assert.Contains(s.T(), resp["error_description"], "check digit")
}

func (s *VisitHandlerSuite) TestCreateVisitMalformedBody() {
	router, _ := newTestRouter(s.T())

	req := httptest.NewRequest(http.MethodPost, "/api/visits", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *VisitHandlerSuite) TestRequiresAuth() {
	router, _ := newTestRouter(s.T())

	w := doJSON(s.T(), router, http.MethodGet, "/api/visits", nil, false)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/visits", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(s.T(), http.StatusUnauthorized, rec.Code)
}

func (s *VisitHandlerSuite) TestPublicRecentIsUnauthenticated() {
	router, mockService := newTestRouter(s.T())
	mockService.EXPECT().ListRecent(gomock.Any()).
		Return([]*models.Visit{sampleVisit(nil)}, nil)

	w := doJSON(s.T(), router, http.MethodGet, "/api/public/visits", nil, false)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp []VisitResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.T(), resp, 1)
	assert.Equal(s.T(), "Active", resp[0].Status)
}

func (s *VisitHandlerSuite) TestGetVisit() {
	router, mockService := newTestRouter(s.T())
	exit := time.Date(2025, 6, 12, 11, 0, 0, 0, time.UTC)
	visit := sampleVisit(&exit)
	mockService.EXPECT().Get(gomock.Any(), visit.ID).Return(visit, nil)

	w := doJSON(s.T(), router, http.MethodGet, "/api/visits/"+visit.ID.String(), nil, true)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp VisitResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "Completed", resp.Status)
	require.NotNil(s.T(), resp.ExitTime)
	assert.True(s.T(), exit.Equal(*resp.ExitTime))
}

func (s *VisitHandlerSuite) TestGetVisitBadID() {
	router, _ := newTestRouter(s.T())

	w := doJSON(s.T(), router, http.MethodGet, "/api/visits/not-a-uuid", nil, true)
	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
}

func (s *VisitHandlerSuite) TestGetVisitNotFound() {
	router, mockService := newTestRouter(s.T())
	id := uuid.New()
	mockService.EXPECT().Get(gomock.Any(), id).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "visit not found"))

	w := doJSON(s.T(), router, http.MethodGet, "/api/visits/"+id.String(), nil, true)
	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *VisitHandlerSuite) TestListVisits() {
	router, mockService := newTestRouter(s.T())
	mockService.EXPECT().List(gomock.Any(), 10, 0).
		Return([]*models.Visit{sampleVisit(nil), sampleVisit(nil)}, 12, nil)

	w := doJSON(s.T(), router, http.MethodGet, "/api/visits", nil, true)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp ListVisitsResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(s.T(), resp.Visits, 2)
	assert.Equal(s.T(), 12, resp.Total)
	assert.Equal(s.T(), 10, resp.Limit)
}

func (s *VisitHandlerSuite) TestListVisitsPagination() {
	router, mockService := newTestRouter(s.T())
	mockService.EXPECT().List(gomock.Any(), 5, 10).
		Return([]*models.Visit{sampleVisit(nil)}, 12, nil)

	w := doJSON(s.T(), router, http.MethodGet, "/api/visits?limit=5&offset=10", nil, true)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp ListVisitsResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), 5, resp.Limit)
	assert.Equal(s.T(), 10, resp.Offset)
}

func (s *VisitHandlerSuite) TestStatusListings() {
	router, mockService := newTestRouter(s.T())
	exit := time.Date(2025, 6, 12, 11, 0, 0, 0, time.UTC)
	mockService.EXPECT().ListActive(gomock.Any()).
		Return([]*models.Visit{sampleVisit(nil)}, nil)
	mockService.EXPECT().ListCompleted(gomock.Any()).
		Return([]*models.Visit{sampleVisit(&exit)}, nil)

	active := doJSON(s.T(), router, http.MethodGet, "/api/visits/active", nil, true)
	completed := doJSON(s.T(), router, http.MethodGet, "/api/visits/completed", nil, true)

	assert.Equal(s.T(), http.StatusOK, active.Code)
	assert.Equal(s.T(), http.StatusOK, completed.Code)

	var activeResp, completedResp []VisitResponse
	require.NoError(s.T(), json.Unmarshal(active.Body.Bytes(), &activeResp))
	require.NoError(s.T(), json.Unmarshal(completed.Body.Bytes(), &completedResp))
	assert.Equal(s.T(), "Active", activeResp[0].Status)
	assert.Equal(s.T(), "Completed", completedResp[0].Status)
}

func (s *VisitHandlerSuite) TestUpdateVisit() {
	router, mockService := newTestRouter(s.T())
	visit := sampleVisit(nil)
	exit := time.Date(2025, 6, 12, 12, 0, 0, 0, time.UTC)
	updated := *visit
	updated.ExitTime = &exit

	mockService.EXPECT().Update(gomock.Any(), visit.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, params service.UpdateParams) (*models.Visit, error) {
			require.NotNil(s.T(), params.ExitTime)
			assert.True(s.T(), exit.Equal(*params.ExitTime))
			return &updated, nil
		})

	w := doJSON(s.T(), router, http.MethodPut, "/api/visits/"+visit.ID.String(), UpdateVisitRequest{
		RUT:         visit.RUT,
		VisitorName: visit.VisitorName,
		Reason:      visit.Reason,
		ExitTime:    &exit,
	}, true)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp VisitResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "Completed", resp.Status)
}

func (s *VisitHandlerSuite) TestMarkDeparture() {
	router, mockService := newTestRouter(s.T())
	exit := time.Date(2025, 6, 12, 11, 0, 0, 0, time.UTC)
	visit := sampleVisit(&exit)
	mockService.EXPECT().MarkDeparture(gomock.Any(), visit.ID).Return(visit, nil)

	w := doJSON(s.T(), router, http.MethodPost, "/api/visits/"+visit.ID.String()+"/departure", nil, true)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp VisitResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "Completed", resp.Status)
}

func (s *VisitHandlerSuite) TestMarkDepartureConflict() {
	router, mockService := newTestRouter(s.T())
	id := uuid.New()
	mockService.EXPECT().MarkDeparture(gomock.Any(), id).
		Return(nil, dErrors.New(dErrors.CodeConflict, "visit already departed"))

	w := doJSON(s.T(), router, http.MethodPost, "/api/visits/"+id.String()+"/departure", nil, true)

	assert.Equal(s.T(), http.StatusConflict, w.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "conflict", resp["error"])
	assert.Equal(s.T(), "visit already departed", resp["error_description"])
}

func (s *VisitHandlerSuite) TestDeleteVisit() {
	router, mockService := newTestRouter(s.T())
	id := uuid.New()
	mockService.EXPECT().Delete(gomock.Any(), id).Return(nil)

	w := doJSON(s.T(), router, http.MethodDelete, "/api/visits/"+id.String(), nil, true)
	assert.Equal(s.T(), http.StatusNoContent, w.Code)
}

func (s *VisitHandlerSuite) TestExportCSV() {
	router, mockService := newTestRouter(s.T())
	mockService.EXPECT().ExportRows(gomock.Any()).Return([]service.ExportRow{
		{
			ID:          uuid.NewString(),
			RUT:         "12.345.678-5",
			VisitorName: "Maria Gonzalez",
			Reason:      "vendor meeting",
			EntryTime:   "2025-06-12T09:30:00Z",
			Status:      "Active",
		},
	}, nil)

	w := doJSON(s.T(), router, http.MethodGet, "/api/visits/export", nil, true)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), "text/csv", w.Header().Get("Content-Type"))

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(s.T(), err)
	require.Len(s.T(), records, 2)
	assert.Equal(s.T(), service.ExportHeader, records[0])
	assert.Equal(s.T(), "Maria Gonzalez", records[1][2])
}

func (s *VisitHandlerSuite) TestInternalErrorHidesDetail() {
	router, mockService := newTestRouter(s.T())
	mockService.EXPECT().ListActive(gomock.Any()).
		Return(nil, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "failed to list active visits"))

	w := doJSON(s.T(), router, http.MethodGet, "/api/visits/active", nil, true)

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	var resp map[string]string
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "internal_error", resp["error"])
	assert.NotContains(s.T(), w.Body.String(), "connection refused")
}
