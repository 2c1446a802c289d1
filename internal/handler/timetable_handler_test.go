package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/csit-timetable-api/internal/dto"
	internalmiddleware "github.com/noah-isme/csit-timetable-api/internal/middleware"
	"github.com/noah-isme/csit-timetable-api/internal/models"
	appErrors "github.com/noah-isme/csit-timetable-api/pkg/errors"
)

type timetableGeneratorMock struct {
	captured dto.GenerateTimetableRequest
	genErr   error
}

func (m *timetableGeneratorMock) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	m.captured = req
	if m.genErr != nil {
		return nil, m.genErr
	}
	return &dto.GenerateTimetableResponse{RunID: "run-1", Success: true}, nil
}

func (m *timetableGeneratorMock) ListRuns(ctx context.Context, query dto.RunQuery) ([]models.TimetableRun, *models.Pagination, error) {
	return []models.TimetableRun{{ID: "run-1"}}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (m *timetableGeneratorMock) Summary(ctx context.Context, runID string) (*dto.TimetableSummaryView, error) {
	if runID != "run-1" {
		return nil, appErrors.ErrNotFound
	}
	return &dto.TimetableSummaryView{RunID: runID, TotalSessions: 2}, nil
}

func (m *timetableGeneratorMock) Entries(ctx context.Context, runID string) ([]models.TimetableEntry, error) {
	return []models.TimetableEntry{{RunID: runID, SessionID: "S1"}}, nil
}

func (m *timetableGeneratorMock) ExportCSV(ctx context.Context, runID string) ([]byte, error) {
	return []byte("Session_ID\nS1\n"), nil
}

func (m *timetableGeneratorMock) ExportPDF(ctx context.Context, runID string) ([]byte, error) {
	return []byte("%PDF-1.3"), nil
}

func TestGenerateEndpointSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &timetableGeneratorMock{}
	handler := &TimetableHandler{service: mockSvc}

	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader([]byte(`{"seed":42,"matchStrategy":"exact"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, int64(42), mockSvc.captured.Seed)
	require.Equal(t, "exact", mockSvc.captured.MatchStrategy)
}

func TestGenerateEndpointBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableGeneratorMock{}}

	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader([]byte(`{"seed":`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateEndpointRequiresRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableGeneratorMock{}}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "v1", Role: models.RoleViewer})
		c.Next()
	})
	router.POST("/timetables/generate", internalmiddleware.RBAC(models.RoleAdmin, models.RoleScheduler), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestGenerateEndpointUnauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableGeneratorMock{}}
	router := gin.New()
	router.POST("/timetables/generate", internalmiddleware.RBAC(models.RoleAdmin), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/timetables/generate", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSummaryEndpointNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableGeneratorMock{}}
	router := gin.New()
	router.GET("/timetables/runs/:id/summary", handler.Summary)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/runs/missing/summary", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestExportCSVEndpointSetsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableGeneratorMock{}}
	router := gin.New()
	router.GET("/timetables/runs/:id/export/csv", handler.ExportCSV)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/runs/run-1/export/csv", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "timetable.csv")
	require.Contains(t, w.Body.String(), "Session_ID")
}

func TestListRunsEndpointParsesQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &TimetableHandler{service: &timetableGeneratorMock{}}
	router := gin.New()
	router.GET("/timetables/runs", handler.ListRuns)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/timetables/runs?status=SOLVED&page=1&pageSize=20", nil)

	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "run-1")
	require.Contains(t, w.Body.String(), "pagination")
}
