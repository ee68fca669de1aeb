package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/service/archive"
)

// ArchiveHandler handles archive and restore endpoints. All of them are
// admin-only.
type ArchiveHandler struct {
	svc    *archive.Service
	logger *zap.Logger
}

// NewArchiveHandler constructs the HTTP handler adapter.
func NewArchiveHandler(svc *archive.Service, logger *zap.Logger) *ArchiveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveHandler{svc: svc, logger: logger}
}

type archiveRequest struct {
	Reason string `json:"reason"`
}

// ArchiveBudget archives a budget and everything under it.
func (h *ArchiveHandler) ArchiveBudget(c *gin.Context) {
	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.svc.ArchiveBudget(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RestoreBudget brings an archived budget and its fiscal-year cascade back.
func (h *ArchiveHandler) RestoreBudget(c *gin.Context) {
	res, err := h.svc.RestoreBudget(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ArchiveAllocation archives one allocation and its documents.
func (h *ArchiveHandler) ArchiveAllocation(c *gin.Context) {
	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.svc.ArchiveAllocation(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// RestoreAllocation brings an archived allocation back.
func (h *ArchiveHandler) RestoreAllocation(c *gin.Context) {
	if err := h.svc.RestoreAllocation(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListArchivedBudgets returns archived budgets for the archive browser.
func (h *ArchiveHandler) ListArchivedBudgets(c *gin.Context) {
	budgets, err := h.svc.ListArchivedBudgets(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"budgets": budgets})
}

// RunSweep triggers the fiscal-year sweep on demand instead of waiting for
// the nightly schedule.
func (h *ArchiveHandler) RunSweep(c *gin.Context) {
	res, err := h.svc.SweepPastFiscalYears(c.Request.Context(), time.Now().Year())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
