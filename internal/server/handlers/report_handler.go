package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/service/reporting"
)

// ReportHandler handles dashboard and savings report endpoints.
type ReportHandler struct {
	svc           *reporting.Service
	spreadsheetID string
	logger        *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter. spreadsheetID is the
// export target; empty disables export.
func NewReportHandler(svc *reporting.Service, spreadsheetID string, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, spreadsheetID: spreadsheetID, logger: logger}
}

// AdminDashboard returns the campus-wide overview.
func (h *ReportHandler) AdminDashboard(c *gin.Context) {
	dash, err := h.svc.AdminDashboardData(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// EndUserDashboard returns the actor's department view.
func (h *ReportHandler) EndUserDashboard(c *gin.Context) {
	dash, err := h.svc.EndUserDashboardData(c.Request.Context(), actorFrom(c).Department)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// AuditTrail returns recent audit entries for the admin activity log.
func (h *ReportHandler) AuditTrail(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	entries, err := h.svc.AuditTrail(c.Request.Context(), limit)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type savingsSnapshotRequest struct {
	FiscalYear string `json:"fiscalYear" binding:"required"`
	Export     bool   `json:"export"`
}

// CreateSavingsSnapshot computes and stores a savings snapshot, optionally
// exporting the rows to the configured spreadsheet.
func (h *ReportHandler) CreateSavingsSnapshot(c *gin.Context) {
	var req savingsSnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	report, err := h.svc.CreateSavingsSnapshot(c.Request.Context(), req.FiscalYear, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}

	if req.Export {
		if err := h.svc.ExportSavings(c.Request.Context(), h.spreadsheetID, report); err != nil {
			fail(c, h.logger, err)
			return
		}
	}
	c.JSON(http.StatusCreated, report)
}

// SavingsReport returns a previously computed snapshot for a fiscal year.
func (h *ReportHandler) SavingsReport(c *gin.Context) {
	report, err := h.svc.SavingsReportData(c.Request.Context(), c.Param("fiscalYear"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
