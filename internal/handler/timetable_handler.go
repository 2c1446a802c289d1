package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/csit-timetable-api/internal/dto"
	"github.com/noah-isme/csit-timetable-api/internal/models"
	"github.com/noah-isme/csit-timetable-api/internal/service"
	appErrors "github.com/noah-isme/csit-timetable-api/pkg/errors"
	"github.com/noah-isme/csit-timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	ListRuns(ctx context.Context, query dto.RunQuery) ([]models.TimetableRun, *models.Pagination, error)
	Summary(ctx context.Context, runID string) (*dto.TimetableSummaryView, error)
	Entries(ctx context.Context, runID string) ([]models.TimetableEntry, error)
	ExportCSV(ctx context.Context, runID string) ([]byte, error)
	ExportPDF(ctx context.Context, runID string) ([]byte, error)
}

// TimetableHandler exposes timetable generation endpoints.
type TimetableHandler struct {
	service timetableGenerator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate a timetable
// @Description Runs the backtracking solver over the configured dataset and persists the outcome.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation overrides"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListRuns godoc
// @Summary List generation runs
// @Tags Timetables
// @Produce json
// @Param status query string false "Filter by status" Enums(SOLVED, FAILED)
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs [get]
func (h *TimetableHandler) ListRuns(c *gin.Context) {
	query := dto.RunQuery{
		Status:   c.Query("status"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "pageSize"),
	}
	runs, pagination, err := h.service.ListRuns(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}

// Summary godoc
// @Summary Aggregated view of a solved run
// @Tags Timetables
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/runs/{id}/summary [get]
func (h *TimetableHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Entries godoc
// @Summary Scheduled entries of a run
// @Tags Timetables
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables/runs/{id}/entries [get]
func (h *TimetableHandler) Entries(c *gin.Context) {
	entries, err := h.service.Entries(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ExportCSV godoc
// @Summary Export a run's timetable as CSV
// @Tags Timetables
// @Produce text/csv
// @Param id path string true "Run ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /timetables/runs/{id}/export/csv [get]
func (h *TimetableHandler) ExportCSV(c *gin.Context) {
	payload, err := h.service.ExportCSV(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// ExportPDF godoc
// @Summary Export a run's timetable as PDF
// @Tags Timetables
// @Produce application/pdf
// @Param id path string true "Run ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /timetables/runs/{id}/export/pdf [get]
func (h *TimetableHandler) ExportPDF(c *gin.Context) {
	payload, err := h.service.ExportPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.pdf"`)
	c.Data(http.StatusOK, "application/pdf", payload)
}

func queryInt(c *gin.Context, key string) int {
	raw := c.Query(key)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
