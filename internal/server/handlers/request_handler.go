package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/domain/models"
	"github.com/opencampus/budgetd/internal/service/workflow"
)

// RequestHandler handles purchase request and activity design endpoints.
type RequestHandler struct {
	svc    *workflow.Service
	logger *zap.Logger
}

// NewRequestHandler constructs the HTTP handler adapter.
func NewRequestHandler(svc *workflow.Service, logger *zap.Logger) *RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestHandler{svc: svc, logger: logger}
}

type lineDrawRequest struct {
	LineItemID string          `json:"lineItemId" binding:"required"`
	Quarter    models.Quarter  `json:"quarter" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

func toDraws(reqs []lineDrawRequest) []workflow.LineDraw {
	draws := make([]workflow.LineDraw, 0, len(reqs))
	for _, r := range reqs {
		draws = append(draws, workflow.LineDraw{
			LineItemID: r.LineItemID,
			Quarter:    r.Quarter,
			Amount:     r.Amount,
		})
	}
	return draws
}

// statusFilter parses repeated ?status= query values.
func statusFilter(c *gin.Context) []models.Status {
	var statuses []models.Status
	for _, s := range c.QueryArray("status") {
		statuses = append(statuses, models.Status(s))
	}
	return statuses
}

// departmentScope limits end users to their own department's documents while
// admins may filter freely.
func departmentScope(c *gin.Context) string {
	actor := actorFrom(c)
	if actor.IsAdmin() {
		return c.Query("department")
	}
	return actor.Department
}

type createPurchaseRequestRequest struct {
	AllocationID string                       `json:"allocationId" binding:"required"`
	Purpose      string                       `json:"purpose"`
	Entity       string                       `json:"entity"`
	FundCluster  string                       `json:"fundCluster"`
	Items        []models.PurchaseRequestItem `json:"items"`
	Draws        []lineDrawRequest            `json:"draws"`
}

// CreatePR builds a purchase request draft.
func (h *RequestHandler) CreatePR(c *gin.Context) {
	var req createPurchaseRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pr, err := h.svc.CreatePurchaseRequest(c.Request.Context(), workflow.CreatePurchaseRequestInput{
		AllocationID: req.AllocationID,
		Purpose:      req.Purpose,
		Entity:       req.Entity,
		FundCluster:  req.FundCluster,
		Items:        req.Items,
		Draws:        toDraws(req.Draws),
	}, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, pr)
}

type updatePurchaseRequestRequest struct {
	Purpose     string                       `json:"purpose"`
	Entity      string                       `json:"entity"`
	FundCluster string                       `json:"fundCluster"`
	Items       []models.PurchaseRequestItem `json:"items"`
	Draws       []lineDrawRequest            `json:"draws"`
}

// UpdatePR replaces the fields and draws of a purchase request draft.
func (h *RequestHandler) UpdatePR(c *gin.Context) {
	var req updatePurchaseRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pr, err := h.svc.UpdateDraftPurchaseRequest(c.Request.Context(), c.Param("id"), workflow.CreatePurchaseRequestInput{
		Purpose:     req.Purpose,
		Entity:      req.Entity,
		FundCluster: req.FundCluster,
		Items:       req.Items,
		Draws:       toDraws(req.Draws),
	}, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

// GetPR returns one purchase request.
func (h *RequestHandler) GetPR(c *gin.Context) {
	pr, err := h.svc.GetPurchaseRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

// ListPRs returns purchase requests scoped to the actor's department.
func (h *RequestHandler) ListPRs(c *gin.Context) {
	prs, err := h.svc.ListPurchaseRequests(c.Request.Context(), departmentScope(c),
		statusFilter(c), c.Query("includeArchived") == "true")
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchaseRequests": prs})
}

// SubmitPR moves a purchase request draft into the review queue.
func (h *RequestHandler) SubmitPR(c *gin.Context) {
	pr, err := h.svc.SubmitPurchaseRequest(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

// PartialApprovePR records the first-stage admin approval.
func (h *RequestHandler) PartialApprovePR(c *gin.Context) {
	pr, err := h.svc.PartialApprovePurchaseRequest(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

// MarkPRSignedUploaded queues a signed purchase request for verification.
func (h *RequestHandler) MarkPRSignedUploaded(c *gin.Context) {
	pr, err := h.svc.MarkPurchaseRequestSignedUploaded(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

// FinalApprovePR completes the workflow and deducts the budget.
func (h *RequestHandler) FinalApprovePR(c *gin.Context) {
	pr, err := h.svc.FinalApprovePurchaseRequest(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

// RejectPR turns a purchase request down and frees its reservations.
func (h *RequestHandler) RejectPR(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	pr, err := h.svc.RejectPurchaseRequest(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, pr)
}

type createActivityDesignRequest struct {
	AllocationID        string            `json:"allocationId" binding:"required"`
	ActivityTitle       string            `json:"activityTitle" binding:"required"`
	ActivityDescription string            `json:"activityDescription"`
	Purpose             string            `json:"purpose"`
	TotalAmount         decimal.Decimal   `json:"totalAmount"`
	Draws               []lineDrawRequest `json:"draws"`
}

// CreateAD builds an activity design draft.
func (h *RequestHandler) CreateAD(c *gin.Context) {
	var req createActivityDesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ad, err := h.svc.CreateActivityDesign(c.Request.Context(), workflow.CreateActivityDesignInput{
		AllocationID:        req.AllocationID,
		ActivityTitle:       req.ActivityTitle,
		ActivityDescription: req.ActivityDescription,
		Purpose:             req.Purpose,
		TotalAmount:         req.TotalAmount,
		Draws:               toDraws(req.Draws),
	}, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, ad)
}

type updateActivityDesignRequest struct {
	ActivityTitle       string            `json:"activityTitle" binding:"required"`
	ActivityDescription string            `json:"activityDescription"`
	Purpose             string            `json:"purpose"`
	TotalAmount         decimal.Decimal   `json:"totalAmount"`
	Draws               []lineDrawRequest `json:"draws"`
}

// UpdateAD replaces the fields and draws of an activity design draft.
func (h *RequestHandler) UpdateAD(c *gin.Context) {
	var req updateActivityDesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ad, err := h.svc.UpdateDraftActivityDesign(c.Request.Context(), c.Param("id"), workflow.CreateActivityDesignInput{
		ActivityTitle:       req.ActivityTitle,
		ActivityDescription: req.ActivityDescription,
		Purpose:             req.Purpose,
		TotalAmount:         req.TotalAmount,
		Draws:               toDraws(req.Draws),
	}, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}

// GetAD returns one activity design.
func (h *RequestHandler) GetAD(c *gin.Context) {
	ad, err := h.svc.GetActivityDesign(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}

// ListADs returns activity designs scoped to the actor's department.
func (h *RequestHandler) ListADs(c *gin.Context) {
	ads, err := h.svc.ListActivityDesigns(c.Request.Context(), departmentScope(c),
		statusFilter(c), c.Query("includeArchived") == "true")
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activityDesigns": ads})
}

// SubmitAD moves an activity design draft into the review queue.
func (h *RequestHandler) SubmitAD(c *gin.Context) {
	ad, err := h.svc.SubmitActivityDesign(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}

// PartialApproveAD records the first-stage admin approval.
func (h *RequestHandler) PartialApproveAD(c *gin.Context) {
	ad, err := h.svc.PartialApproveActivityDesign(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}

// MarkADSignedUploaded queues a signed activity design for verification.
func (h *RequestHandler) MarkADSignedUploaded(c *gin.Context) {
	ad, err := h.svc.MarkActivityDesignSignedUploaded(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}

// FinalApproveAD completes the workflow and deducts the budget.
func (h *RequestHandler) FinalApproveAD(c *gin.Context) {
	ad, err := h.svc.FinalApproveActivityDesign(c.Request.Context(), c.Param("id"), actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}

// RejectAD turns an activity design down and frees its reservations.
func (h *RequestHandler) RejectAD(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ad, err := h.svc.RejectActivityDesign(c.Request.Context(), c.Param("id"), req.Reason, actorFrom(c))
	if err != nil {
		fail(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ad)
}
