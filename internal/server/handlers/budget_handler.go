package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/service/budget"
)

// BudgetHandler handles fiscal-year budget and allocation endpoints.
type BudgetHandler struct {
	svc    *budget.Service
	logger *zap.Logger
}

// NewBudgetHandler constructs the HTTP handler adapter.
func NewBudgetHandler(svc *budget.Service, logger *zap.Logger) *BudgetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BudgetHandler{svc: svc, logger: logger}
}

type createBudgetRequest struct {
	Title       string          `json:"title" binding:"required"`
	FiscalYear  string          `json:"fiscalYear" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Create registers the approved budget for a fiscal year.
func (h *BudgetHandler) Create(c *gin.Context) {
	var req createBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	b, err := h.svc.CreateBudget(c.Request.Context(), budget.CreateBudgetInput{
		Title:       req.Title,
		FiscalYear:  req.FiscalYear,
		Amount:      req.Amount,
		Description: req.Description,
	}, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// Get returns one budget.
func (h *BudgetHandler) Get(c *gin.Context) {
	b, err := h.svc.GetBudget(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// List returns budgets, optionally including archived ones.
func (h *BudgetHandler) List(c *gin.Context) {
	includeArchived := c.Query("includeArchived") == "true"
	budgets, err := h.svc.ListBudgets(c.Request.Context(), includeArchived)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"budgets": budgets})
}

type updateBudgetRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Update changes a budget's title or description. Amounts only move through
// supplemental and reversion endpoints.
func (h *BudgetHandler) Update(c *gin.Context) {
	var req updateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	b, err := h.svc.UpdateBudget(c.Request.Context(), c.Param("id"), budget.UpdateBudgetInput{
		Title:       req.Title,
		Description: req.Description,
	}, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type adjustBudgetRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Remarks string          `json:"remarks"`
}

// AddSupplemental adds a supplemental amount to the budget.
func (h *BudgetHandler) AddSupplemental(c *gin.Context) {
	var req adjustBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	b, err := h.svc.AddSupplemental(c.Request.Context(), c.Param("id"), req.Amount, req.Remarks, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Revert returns an unallocated amount from the budget.
func (h *BudgetHandler) Revert(c *gin.Context) {
	var req adjustBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	b, err := h.svc.RevertBudget(c.Request.Context(), c.Param("id"), req.Amount, req.Remarks, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type createAllocationRequest struct {
	BudgetID        string          `json:"budgetId" binding:"required"`
	Department      string          `json:"department" binding:"required"`
	EndUserID       string          `json:"endUserId" binding:"required"`
	AllocatedAmount decimal.Decimal `json:"allocatedAmount"`
}

// CreateAllocation carves a department share out of a budget.
func (h *BudgetHandler) CreateAllocation(c *gin.Context) {
	var req createAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	a, err := h.svc.CreateAllocation(c.Request.Context(), budget.CreateAllocationInput{
		BudgetID:        req.BudgetID,
		Department:      req.Department,
		EndUserID:       req.EndUserID,
		AllocatedAmount: req.AllocatedAmount,
	}, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// GetAllocation returns one allocation.
func (h *BudgetHandler) GetAllocation(c *gin.Context) {
	a, err := h.svc.GetAllocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// ListAllocations returns the allocations of one budget.
func (h *BudgetHandler) ListAllocations(c *gin.Context) {
	includeArchived := c.Query("includeArchived") == "true"
	allocations, err := h.svc.ListAllocationsByBudget(c.Request.Context(), c.Param("id"), includeArchived)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocations": allocations})
}

// MyAllocations returns the allocations of the actor's department.
func (h *BudgetHandler) MyAllocations(c *gin.Context) {
	allocations, err := h.svc.ListAllocationsByDepartment(c.Request.Context(), actorFrom(c).Department)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"allocations": allocations})
}

// AdjustAllocation modifies an allocation's amount after creation.
func (h *BudgetHandler) AdjustAllocation(c *gin.Context) {
	var req adjustBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	a, err := h.svc.AdjustAllocation(c.Request.Context(), c.Param("id"), req.Amount, req.Remarks, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAllocation removes an unused allocation and returns its funds.
func (h *BudgetHandler) DeleteAllocation(c *gin.Context) {
	if err := h.svc.DeleteAllocation(c.Request.Context(), c.Param("id"), actorFrom(c)); err != nil {
		fail(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Transactions returns the audit trail of budget movements on an allocation.
func (h *BudgetHandler) Transactions(c *gin.Context) {
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "50"), 10, 64)
	txns, err := h.svc.ListTransactions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txns})
}
