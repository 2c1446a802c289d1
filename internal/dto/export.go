package dto

import "github.com/noah-isme/csit-timetable-api/internal/models"

// ExportRequest queues a file export for a timetable run.
type ExportRequest struct {
	RunID  string              `json:"runId" validate:"required"`
	Format models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
}

// ExportJobResponse acknowledges a queued export job.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse reports export job progress and the download URL once finished.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
