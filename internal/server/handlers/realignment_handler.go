package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/service/realignment"
)

// RealignmentHandler handles budget realignment endpoints.
type RealignmentHandler struct {
	svc    *realignment.Service
	logger *zap.Logger
}

// NewRealignmentHandler constructs the HTTP handler adapter.
func NewRealignmentHandler(svc *realignment.Service, logger *zap.Logger) *RealignmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealignmentHandler{svc: svc, logger: logger}
}

type createRealignmentRequest struct {
	SourceLineItemID string          `json:"sourceLineItemId" binding:"required"`
	TargetLineItemID string          `json:"targetLineItemId" binding:"required"`
	Reason           string          `json:"reason"`
	Q1               decimal.Decimal `json:"q1"`
	Q2               decimal.Decimal `json:"q2"`
	Q3               decimal.Decimal `json:"q3"`
	Q4               decimal.Decimal `json:"q4"`
}

// Create files a realignment draft.
func (h *RealignmentHandler) Create(c *gin.Context) {
	var req createRealignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	re, err := h.svc.Create(c.Request.Context(), realignment.CreateInput{
		SourceLineItemID: req.SourceLineItemID,
		TargetLineItemID: req.TargetLineItemID,
		Reason:           req.Reason,
		Q1:               req.Q1,
		Q2:               req.Q2,
		Q3:               req.Q3,
		Q4:               req.Q4,
	}, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, re)
}

// Get returns one realignment.
func (h *RealignmentHandler) Get(c *gin.Context) {
	re, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, re)
}

// List returns realignments scoped to the actor unless they are an admin.
func (h *RealignmentHandler) List(c *gin.Context) {
	actor := actorFrom(c)
	requestedBy := actor.ID
	if actor.IsAdmin() {
		requestedBy = c.Query("requestedBy")
	}

	res, err := h.svc.List(c.Request.Context(), requestedBy, statusFilter(c),
		c.Query("includeArchived") == "true")
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"realignments": res})
}

// Availability returns, per quarter, how much of a line item can be moved.
func (h *RealignmentHandler) Availability(c *gin.Context) {
	avail, err := h.svc.Availability(c.Request.Context(), c.Param("id"), c.Query("exclude"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quarters": avail})
}

// Submit moves a realignment draft into the review queue.
func (h *RealignmentHandler) Submit(c *gin.Context) {
	re, err := h.svc.Submit(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, re)
}

// PartialApprove records the first-stage admin approval.
func (h *RealignmentHandler) PartialApprove(c *gin.Context) {
	re, err := h.svc.PartialApprove(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, re)
}

// MarkSignedUploaded queues a signed realignment for final verification.
func (h *RealignmentHandler) MarkSignedUploaded(c *gin.Context) {
	re, err := h.svc.MarkSignedUploaded(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, re)
}

// FinalApprove executes the transfer between line items.
func (h *RealignmentHandler) FinalApprove(c *gin.Context) {
	re, err := h.svc.FinalApprove(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, re)
}

// Reject turns a realignment down.
func (h *RealignmentHandler) Reject(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	re, err := h.svc.Reject(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, re)
}
