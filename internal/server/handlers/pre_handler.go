package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/domain/models"
	"github.com/opencampus/budgetd/internal/service/workflow"
)

// PREHandler handles PRE planning document endpoints.
type PREHandler struct {
	svc    *workflow.Service
	logger *zap.Logger
}

// NewPREHandler constructs the HTTP handler adapter.
func NewPREHandler(svc *workflow.Service, logger *zap.Logger) *PREHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PREHandler{svc: svc, logger: logger}
}

type preLineRequest struct {
	Category    models.PRECategory `json:"category" binding:"required"`
	Subcategory string             `json:"subcategory"`
	ItemName    string             `json:"itemName" binding:"required"`
	Description string             `json:"description"`
	Q1          decimal.Decimal    `json:"q1"`
	Q2          decimal.Decimal    `json:"q2"`
	Q3          decimal.Decimal    `json:"q3"`
	Q4          decimal.Decimal    `json:"q4"`
}

type createPRERequest struct {
	AllocationID    string           `json:"allocationId" binding:"required"`
	Program         string           `json:"program"`
	FundSource      string           `json:"fundSource"`
	FiscalYear      string           `json:"fiscalYear"`
	PreparedByName  string           `json:"preparedByName"`
	CertifiedByName string           `json:"certifiedByName"`
	ApprovedByName  string           `json:"approvedByName"`
	Lines           []preLineRequest `json:"lines"`
}

// Create builds a PRE draft from manually entered lines.
func (h *PREHandler) Create(c *gin.Context) {
	var req createPRERequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	in := workflow.CreatePREInput{
		AllocationID:    req.AllocationID,
		Program:         req.Program,
		FundSource:      req.FundSource,
		FiscalYear:      req.FiscalYear,
		PreparedByName:  req.PreparedByName,
		CertifiedByName: req.CertifiedByName,
		ApprovedByName:  req.ApprovedByName,
	}
	for _, line := range req.Lines {
		in.Lines = append(in.Lines, workflow.LineInput{
			Category:    line.Category,
			Subcategory: line.Subcategory,
			ItemName:    line.ItemName,
			Description: line.Description,
			Q1:          line.Q1,
			Q2:          line.Q2,
			Q3:          line.Q3,
			Q4:          line.Q4,
		})
	}

	pre, err := h.svc.CreatePRE(c.Request.Context(), in, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, pre)
}

type ingestSheetRequest struct {
	AllocationID  string `json:"allocationId" binding:"required"`
	SpreadsheetID string `json:"spreadsheetId" binding:"required"`
}

// IngestSheet builds a PRE draft by parsing a filled spreadsheet template.
func (h *PREHandler) IngestSheet(c *gin.Context) {
	var req ingestSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pre, err := h.svc.CreatePREFromSheet(c.Request.Context(), req.AllocationID, req.SpreadsheetID, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, pre)
}

// Get returns one PRE with its line items and receipts.
func (h *PREHandler) Get(c *gin.Context) {
	pre, items, receipts, err := h.svc.GetPRE(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pre": pre, "lineItems": items, "receipts": receipts})
}

// ListByAllocation returns the PREs of one allocation.
func (h *PREHandler) ListByAllocation(c *gin.Context) {
	includeArchived := c.Query("includeArchived") == "true"
	pres, err := h.svc.ListPREsByAllocation(c.Request.Context(), c.Param("id"), includeArchived)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pres": pres})
}

// ListPending returns PREs in the admin review queue.
func (h *PREHandler) ListPending(c *gin.Context) {
	pres, err := h.svc.ListPendingPREs(c.Request.Context())
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pres": pres})
}

// Submit moves a PRE draft into the review queue.
func (h *PREHandler) Submit(c *gin.Context) {
	pre, err := h.svc.SubmitPRE(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pre)
}

type partialApproveRequest struct {
	Notes string `json:"notes"`
}

// PartialApprove records the first-stage admin approval.
func (h *PREHandler) PartialApprove(c *gin.Context) {
	var req partialApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pre, err := h.svc.PartialApprovePRE(c.Request.Context(), c.Param("id"), req.Notes, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pre)
}

// MarkSignedUploaded queues a signed PRE for final verification.
func (h *PREHandler) MarkSignedUploaded(c *gin.Context) {
	pre, err := h.svc.MarkPRESignedUploaded(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pre)
}

// FinalApprove completes the PRE workflow, fixing the spending plan.
func (h *PREHandler) FinalApprove(c *gin.Context) {
	pre, err := h.svc.FinalApprovePRE(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pre)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject turns a PRE down.
func (h *PREHandler) Reject(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pre, err := h.svc.RejectPRE(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pre)
}

// QuarterBreakdown returns planned versus committed amounts per quarter for
// one PRE line item.
func (h *PREHandler) QuarterBreakdown(c *gin.Context) {
	breakdown, err := h.svc.QuarterBreakdown(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quarters": breakdown})
}
