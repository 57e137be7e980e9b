package dto

import (
	"time"

	"github.com/noah-isme/academic-tracker-api/internal/models"
)

// ReportRequest captures the POST /reports payload.
type ReportRequest struct {
	Type        models.ReportType   `json:"type" validate:"required"`
	Format      models.ReportFormat `json:"format" validate:"required,oneof=csv pdf xlsx"`
	Granularity string              `json:"granularity,omitempty" validate:"omitempty,oneof=daily weekly monthly"`
	From        *time.Time          `json:"from,omitempty"`
	To          *time.Time          `json:"to,omitempty"`
}

// ReportJobResponse is returned after enqueueing a report.
type ReportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ReportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ReportStatusResponse exposes job progress metadata.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ReportType   `json:"type"`
	Status    models.ReportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
