// Package workflow runs the document approval pipeline for PREs, purchase
// requests and activity designs: draft, submission, partial approval,
// signed-copy verification and final approval, with budget effects applied
// exactly once at final approval.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/domain/models"
	"github.com/opencampus/budgetd/internal/repository/mongodb"
	"github.com/opencampus/budgetd/internal/service/preparse"
)

// Workflow errors surfaced to handlers.
var (
	ErrInvalidTransition = errors.New("document status does not allow this action")
	ErrArchivedDocument  = errors.New("archived documents cannot move through the workflow")
	ErrExceedsPREBudget  = errors.New("amount exceeds the available PRE budget")
	ErrExceedsQuarter    = errors.New("amount exceeds the quarter's available balance")
	ErrExceedsAllocation = errors.New("PRE total exceeds the department allocation")
	ErrNoSignedCopy      = errors.New("a signed copy must be uploaded first")
	ErrSheetsDisabled    = errors.New("sheet ingestion is not configured")
	ErrEmptyPRE          = errors.New("a PRE needs at least one line item")
	ErrRejectionReason   = errors.New("a rejection reason must be provided")
	ErrNotOwner          = errors.New("document belongs to another department")
)

// adminRecipient is the notification inbox shared by portal administrators.
const adminRecipient = "admin"

// Store is the persistence surface the workflow service needs.
type Store interface {
	GetAllocation(ctx context.Context, id string) (*models.BudgetAllocation, error)
	IncrementAllocationUsage(ctx context.Context, id string, prDelta, adDelta, preDelta decimal.Decimal) error

	InsertPRE(ctx context.Context, pre *models.DepartmentPRE, items []models.PRELineItem, receipts []models.PREReceipt) error
	GetPRE(ctx context.Context, id string) (*models.DepartmentPRE, error)
	ListPREsByAllocation(ctx context.Context, allocationID string, includeArchived bool) ([]models.DepartmentPRE, error)
	ListPREsByStatus(ctx context.Context, statuses ...models.Status) ([]models.DepartmentPRE, error)
	GetApprovedPREForAllocation(ctx context.Context, allocationID string) (*models.DepartmentPRE, error)
	UpdatePRE(ctx context.Context, pre *models.DepartmentPRE) error
	ListPRELineItems(ctx context.Context, preID string) ([]models.PRELineItem, error)
	GetPRELineItem(ctx context.Context, id string) (*models.PRELineItem, error)
	ListPREReceipts(ctx context.Context, preID string) ([]models.PREReceipt, error)

	InsertPurchaseRequest(ctx context.Context, pr *models.PurchaseRequest) error
	GetPurchaseRequest(ctx context.Context, id string) (*models.PurchaseRequest, error)
	ListPurchaseRequests(ctx context.Context, department string, statuses []models.Status, includeArchived bool) ([]models.PurchaseRequest, error)
	UpdatePurchaseRequest(ctx context.Context, pr *models.PurchaseRequest) error

	InsertActivityDesign(ctx context.Context, ad *models.ActivityDesign) error
	GetActivityDesign(ctx context.Context, id string) (*models.ActivityDesign, error)
	ListActivityDesigns(ctx context.Context, department string, statuses []models.Status, includeArchived bool) ([]models.ActivityDesign, error)
	UpdateActivityDesign(ctx context.Context, ad *models.ActivityDesign) error

	InsertLineItemAllocation(ctx context.Context, la *models.LineItemAllocation) error
	ListLineItemAllocationsByDocument(ctx context.Context, kind models.DocumentKind, documentID string) ([]models.LineItemAllocation, error)
	UpdateLineItemAllocationStatus(ctx context.Context, kind models.DocumentKind, documentID string, status models.Status) error
	DeleteLineItemAllocationsByDocument(ctx context.Context, kind models.DocumentKind, documentID string) error
	SumLineItemAllocations(ctx context.Context, lineItemID string, q models.Quarter, statuses []models.Status) (decimal.Decimal, error)
	CountLineItemAllocations(ctx context.Context, lineItemID string, q models.Quarter, kind models.DocumentKind, statuses []models.Status) (int64, error)

	NextSequence(ctx context.Context, name string) (int64, error)
	HasSignedCopy(ctx context.Context, kind models.DocumentKind, entityID string) (bool, error)

	InsertTransaction(ctx context.Context, t *models.BudgetTransaction) error
	InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// SheetSource reads PRE workbook grids from Google Sheets.
type SheetSource interface {
	ReadRange(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
}

// Service implements the document approval workflow.
type Service struct {
	store  Store
	sheets SheetSource
	locks  *allocationLocks
	logger *zap.Logger
}

// NewService wires a new workflow service instance. sheets may be nil when
// sheet ingestion is not configured.
func NewService(store Store, sheets SheetSource, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		sheets: sheets,
		locks:  newAllocationLocks(),
		logger: logger,
	}
}

// LineInput is one budget line of a manually entered PRE.
type LineInput struct {
	Category    models.PRECategory
	Subcategory string
	ItemName    string
	Description string
	Q1          decimal.Decimal
	Q2          decimal.Decimal
	Q3          decimal.Decimal
	Q4          decimal.Decimal
}

// CreatePREInput carries the fields of a new PRE draft.
type CreatePREInput struct {
	AllocationID    string
	Program         string
	FundSource      string
	FiscalYear      string
	PreparedByName  string
	CertifiedByName string
	ApprovedByName  string
	Lines           []LineInput
}

// CreatePRE builds a PRE draft from manually entered lines. The grand total
// may not exceed the department allocation.
func (s *Service) CreatePRE(ctx context.Context, in CreatePREInput, actor models.Actor) (*models.DepartmentPRE, error) {
	if len(in.Lines) == 0 {
		return nil, ErrEmptyPRE
	}

	alloc, err := s.store.GetAllocation(ctx, in.AllocationID)
	if err != nil {
		return nil, err
	}

	preID := uuid.NewString()
	total := decimal.Zero
	items := make([]models.PRELineItem, 0, len(in.Lines))
	for _, line := range in.Lines {
		li := models.PRELineItem{
			ID:          uuid.NewString(),
			PREID:       preID,
			Category:    line.Category,
			Subcategory: line.Subcategory,
			ItemName:    line.ItemName,
			Description: line.Description,
			SourceType:  models.LineItemSourceManual,
			Q1Amount:    line.Q1,
			Q2Amount:    line.Q2,
			Q3Amount:    line.Q3,
			Q4Amount:    line.Q4,
		}
		total = total.Add(li.Total())
		items = append(items, li)
	}

	if total.GreaterThan(alloc.AllocatedAmount) {
		return nil, ErrExceedsAllocation
	}

	now := time.Now()
	pre := &models.DepartmentPRE{
		ID:                 preID,
		SubmittedBy:        actor.ID,
		Department:         alloc.Department,
		Program:            in.Program,
		FundSource:         in.FundSource,
		FiscalYear:         in.FiscalYear,
		BudgetAllocationID: in.AllocationID,
		Status:             models.StatusDraft,
		TotalAmount:        total,
		IsValid:            true,
		PreparedByName:     in.PreparedByName,
		CertifiedByName:    in.CertifiedByName,
		ApprovedByName:     in.ApprovedByName,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.InsertPRE(ctx, pre, items, nil); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, models.ActionCreate, models.KindPRE, pre.ID,
		fmt.Sprintf("created PRE draft for %s, total PHP %s", pre.Department, total.StringFixed(2)))
	s.logger.Info("pre created",
		zap.String("pre_id", pre.ID),
		zap.String("department", pre.Department),
		zap.Int("line_items", len(items)))
	return pre, nil
}

// preTemplateRange covers the whole standard PRE workbook.
const preTemplateRange = "A1:I177"

// CreatePREFromSheet ingests a filled-out PRE workbook from Google Sheets
// and builds a draft from its extracted line items. Parser warnings land on
// the PRE as validation errors without blocking the draft.
func (s *Service) CreatePREFromSheet(ctx context.Context, allocationID, spreadsheetID string, actor models.Actor) (*models.DepartmentPRE, error) {
	if s.sheets == nil {
		return nil, ErrSheetsDisabled
	}

	alloc, err := s.store.GetAllocation(ctx, allocationID)
	if err != nil {
		return nil, err
	}

	grid, err := s.sheets.ReadRange(ctx, spreadsheetID, preTemplateRange)
	if err != nil {
		return nil, fmt.Errorf("read pre workbook: %w", err)
	}

	parsed, err := preparse.NewParser(grid).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse pre workbook: %w", err)
	}
	if len(parsed.Items) == 0 {
		return nil, ErrEmptyPRE
	}
	if parsed.GrandTotal.GreaterThan(alloc.AllocatedAmount) {
		return nil, ErrExceedsAllocation
	}

	preID := uuid.NewString()
	items := make([]models.PRELineItem, 0, len(parsed.Items))
	var receipts []models.PREReceipt
	for _, p := range parsed.Items {
		if p.Category == models.CategoryReceipts {
			receipts = append(receipts, models.PREReceipt{
				ID:          uuid.NewString(),
				PREID:       preID,
				ReceiptType: p.ItemName,
				Q1Amount:    p.Q1,
				Q2Amount:    p.Q2,
				Q3Amount:    p.Q3,
				Q4Amount:    p.Q4,
			})
			continue
		}
		items = append(items, models.PRELineItem{
			ID:          uuid.NewString(),
			PREID:       preID,
			Category:    p.Category,
			Subcategory: p.Subcategory,
			ItemName:    p.ItemName,
			SourceType:  models.LineItemSourceSheet,
			Q1Amount:    p.Q1,
			Q2Amount:    p.Q2,
			Q3Amount:    p.Q3,
			Q4Amount:    p.Q4,
		})
	}

	now := time.Now()
	pre := &models.DepartmentPRE{
		ID:                 preID,
		SubmittedBy:        actor.ID,
		Department:         alloc.Department,
		FiscalYear:         parsed.FiscalYear,
		BudgetAllocationID: allocationID,
		Status:             models.StatusDraft,
		TotalAmount:        parsed.GrandTotal,
		IsValid:            len(parsed.Warnings) == 0,
		ValidationErrors:   parsed.Warnings,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.InsertPRE(ctx, pre, items, receipts); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, models.ActionCreate, models.KindPRE, pre.ID,
		fmt.Sprintf("ingested PRE workbook %s, %d line items, total PHP %s",
			spreadsheetID, len(items), parsed.GrandTotal.StringFixed(2)))
	s.logger.Info("pre ingested from sheet",
		zap.String("pre_id", pre.ID),
		zap.String("spreadsheet_id", spreadsheetID),
		zap.Int("line_items", len(items)),
		zap.Int("custom_items", parsed.CustomItems),
		zap.Int("warnings", len(parsed.Warnings)))
	return pre, nil
}

// LineDraw charges part of a document against one PRE line item quarter.
type LineDraw struct {
	LineItemID string
	Quarter    models.Quarter
	Amount     decimal.Decimal
}

// CreatePurchaseRequestInput carries the fields of a new PR draft.
type CreatePurchaseRequestInput struct {
	AllocationID string
	Purpose      string
	Entity       string
	FundCluster  string
	Items        []models.PurchaseRequestItem
	Draws        []LineDraw
}

// CreatePurchaseRequest builds a PR draft numbered from the yearly sequence.
// The total must fit the available PRE budget and each draw must fit its
// quarter.
func (s *Service) CreatePurchaseRequest(ctx context.Context, in CreatePurchaseRequestInput, actor models.Actor) (*models.PurchaseRequest, error) {
	alloc, err := s.store.GetAllocation(ctx, in.AllocationID)
	if err != nil {
		return nil, err
	}

	pr := &models.PurchaseRequest{
		ID:                 uuid.NewString(),
		SubmittedBy:        actor.ID,
		Department:         alloc.Department,
		BudgetAllocationID: in.AllocationID,
		Purpose:            in.Purpose,
		EntityName:         in.Entity,
		FundCluster:        in.FundCluster,
		Status:             models.StatusDraft,
		Items:              in.Items,
	}
	pr.RecalculateTotal()
	if pr.TotalAmount.IsZero() {
		pr.TotalAmount = drawTotal(in.Draws)
	}

	if err := s.validateDocumentBudget(ctx, alloc, pr.TotalAmount, in.Draws); err != nil {
		return nil, err
	}

	seq, err := s.store.NextSequence(ctx, fmt.Sprintf("pr-%d", time.Now().Year()))
	if err != nil {
		return nil, err
	}
	pr.PRNumber = fmt.Sprintf("PR-%d-%04d", time.Now().Year(), seq)

	now := time.Now()
	pr.CreatedAt = now
	pr.UpdatedAt = now
	if len(in.Draws) > 0 {
		li, err := s.store.GetPRELineItem(ctx, in.Draws[0].LineItemID)
		if err != nil {
			return nil, err
		}
		pr.SourcePREID = li.PREID
		pr.SourceLineItemID = li.ID
	}
	if err := s.store.InsertPurchaseRequest(ctx, pr); err != nil {
		return nil, err
	}
	if err := s.insertDraws(ctx, models.KindPurchaseRequest, pr.ID, in.Draws); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, models.ActionCreate, models.KindPurchaseRequest, pr.ID,
		fmt.Sprintf("created %s for PHP %s", pr.PRNumber, pr.TotalAmount.StringFixed(2)))
	s.logger.Info("purchase request created",
		zap.String("pr_number", pr.PRNumber),
		zap.String("department", pr.Department),
		zap.String("amount", pr.TotalAmount.String()))
	return pr, nil
}

// UpdateDraftPurchaseRequest replaces the editable fields and line item
// draws of a PR that has not been submitted yet. The replacement passes the
// same budget checks as creation; the PR number is kept.
func (s *Service) UpdateDraftPurchaseRequest(ctx context.Context, id string, in CreatePurchaseRequestInput, actor models.Actor) (*models.PurchaseRequest, error) {
	pr, err := s.store.GetPurchaseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if pr.IsArchived {
		return nil, ErrArchivedDocument
	}
	if !actor.IsAdmin() && actor.ID != pr.SubmittedBy {
		return nil, ErrNotOwner
	}
	if pr.Status != models.StatusDraft {
		return nil, fmt.Errorf("%w: only drafts can be edited", ErrInvalidTransition)
	}

	alloc, err := s.store.GetAllocation(ctx, pr.BudgetAllocationID)
	if err != nil {
		return nil, err
	}

	pr.Purpose = in.Purpose
	pr.EntityName = in.Entity
	pr.FundCluster = in.FundCluster
	pr.Items = in.Items
	pr.TotalAmount = decimal.Zero
	pr.RecalculateTotal()
	if pr.TotalAmount.IsZero() {
		pr.TotalAmount = drawTotal(in.Draws)
	}

	if err := s.validateDocumentBudget(ctx, alloc, pr.TotalAmount, in.Draws); err != nil {
		return nil, err
	}

	if len(in.Draws) > 0 {
		li, err := s.store.GetPRELineItem(ctx, in.Draws[0].LineItemID)
		if err != nil {
			return nil, err
		}
		pr.SourcePREID = li.PREID
		pr.SourceLineItemID = li.ID
	} else {
		pr.SourcePREID = ""
		pr.SourceLineItemID = ""
	}

	if err := s.store.DeleteLineItemAllocationsByDocument(ctx, models.KindPurchaseRequest, pr.ID); err != nil {
		return nil, err
	}
	if err := s.insertDraws(ctx, models.KindPurchaseRequest, pr.ID, in.Draws); err != nil {
		return nil, err
	}

	pr.UpdatedAt = time.Now()
	if err := s.store.UpdatePurchaseRequest(ctx, pr); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, models.ActionUpdate, models.KindPurchaseRequest, pr.ID,
		fmt.Sprintf("updated draft %s, new total PHP %s", pr.PRNumber, pr.TotalAmount.StringFixed(2)))
	return pr, nil
}

// CreateActivityDesignInput carries the fields of a new AD draft.
type CreateActivityDesignInput struct {
	AllocationID        string
	ActivityTitle       string
	ActivityDescription string
	Purpose             string
	TotalAmount         decimal.Decimal
	Draws               []LineDraw
}

// CreateActivityDesign builds an AD draft numbered from the yearly sequence,
// under the same budget checks as purchase requests.
func (s *Service) CreateActivityDesign(ctx context.Context, in CreateActivityDesignInput, actor models.Actor) (*models.ActivityDesign, error) {
	alloc, err := s.store.GetAllocation(ctx, in.AllocationID)
	if err != nil {
		return nil, err
	}

	total := in.TotalAmount
	if total.IsZero() {
		total = drawTotal(in.Draws)
	}

	ad := &models.ActivityDesign{
		ID:                  uuid.NewString(),
		SubmittedBy:         actor.ID,
		Department:          alloc.Department,
		BudgetAllocationID:  in.AllocationID,
		ActivityTitle:       in.ActivityTitle,
		ActivityDescription: in.ActivityDescription,
		Purpose:             in.Purpose,
		TotalAmount:         total,
		Status:              models.StatusDraft,
	}

	if err := s.validateDocumentBudget(ctx, alloc, total, in.Draws); err != nil {
		return nil, err
	}

	seq, err := s.store.NextSequence(ctx, fmt.Sprintf("ad-%d", time.Now().Year()))
	if err != nil {
		return nil, err
	}
	ad.ADNumber = fmt.Sprintf("AD-%d-%04d", time.Now().Year(), seq)

	now := time.Now()
	ad.CreatedAt = now
	ad.UpdatedAt = now
	if err := s.store.InsertActivityDesign(ctx, ad); err != nil {
		return nil, err
	}
	if err := s.insertDraws(ctx, models.KindActivityDesign, ad.ID, in.Draws); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, models.ActionCreate, models.KindActivityDesign, ad.ID,
		fmt.Sprintf("created %s for PHP %s", ad.ADNumber, ad.TotalAmount.StringFixed(2)))
	s.logger.Info("activity design created",
		zap.String("ad_number", ad.ADNumber),
		zap.String("department", ad.Department),
		zap.String("amount", ad.TotalAmount.String()))
	return ad, nil
}

// UpdateDraftActivityDesign replaces the editable fields and line item
// draws of an AD that has not been submitted yet.
func (s *Service) UpdateDraftActivityDesign(ctx context.Context, id string, in CreateActivityDesignInput, actor models.Actor) (*models.ActivityDesign, error) {
	ad, err := s.store.GetActivityDesign(ctx, id)
	if err != nil {
		return nil, err
	}
	if ad.IsArchived {
		return nil, ErrArchivedDocument
	}
	if !actor.IsAdmin() && actor.ID != ad.SubmittedBy {
		return nil, ErrNotOwner
	}
	if ad.Status != models.StatusDraft {
		return nil, fmt.Errorf("%w: only drafts can be edited", ErrInvalidTransition)
	}

	alloc, err := s.store.GetAllocation(ctx, ad.BudgetAllocationID)
	if err != nil {
		return nil, err
	}

	total := in.TotalAmount
	if total.IsZero() {
		total = drawTotal(in.Draws)
	}

	ad.ActivityTitle = in.ActivityTitle
	ad.ActivityDescription = in.ActivityDescription
	ad.Purpose = in.Purpose
	ad.TotalAmount = total

	if err := s.validateDocumentBudget(ctx, alloc, total, in.Draws); err != nil {
		return nil, err
	}

	if err := s.store.DeleteLineItemAllocationsByDocument(ctx, models.KindActivityDesign, ad.ID); err != nil {
		return nil, err
	}
	if err := s.insertDraws(ctx, models.KindActivityDesign, ad.ID, in.Draws); err != nil {
		return nil, err
	}

	ad.UpdatedAt = time.Now()
	if err := s.store.UpdateActivityDesign(ctx, ad); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, models.ActionUpdate, models.KindActivityDesign, ad.ID,
		fmt.Sprintf("updated draft %s, new total PHP %s", ad.ADNumber, ad.TotalAmount.StringFixed(2)))
	return ad, nil
}

// validateDocumentBudget enforces the two spending limits on a PR or AD:
// the overall available PRE budget and each drawn quarter's balance.
func (s *Service) validateDocumentBudget(ctx context.Context, alloc *models.BudgetAllocation, total decimal.Decimal, draws []LineDraw) error {
	approvedTotal := decimal.Zero
	if pre, err := s.store.GetApprovedPREForAllocation(ctx, alloc.ID); err == nil {
		approvedTotal = pre.TotalAmount
	} else if !errors.Is(err, mongodb.ErrNotFound) {
		return err
	}

	if total.GreaterThan(alloc.AvailableFromPRE(approvedTotal)) {
		return ErrExceedsPREBudget
	}

	committed := append([]models.Status{}, models.ReservedStatuses...)
	committed = append(committed, models.ConsumedStatuses...)
	for _, draw := range draws {
		if !models.ValidQuarter(draw.Quarter) || !draw.Amount.IsPositive() {
			return fmt.Errorf("%w: bad draw on line item %s", ErrExceedsQuarter, draw.LineItemID)
		}
		li, err := s.store.GetPRELineItem(ctx, draw.LineItemID)
		if err != nil {
			return err
		}
		used, err := s.store.SumLineItemAllocations(ctx, draw.LineItemID, draw.Quarter, committed)
		if err != nil {
			return err
		}
		if draw.Amount.GreaterThan(li.QuarterAmount(draw.Quarter).Sub(used)) {
			return fmt.Errorf("%w: %s %s", ErrExceedsQuarter, li.ItemName, draw.Quarter)
		}
	}
	return nil
}

func (s *Service) insertDraws(ctx context.Context, kind models.DocumentKind, docID string, draws []LineDraw) error {
	for _, draw := range draws {
		li, err := s.store.GetPRELineItem(ctx, draw.LineItemID)
		if err != nil {
			return err
		}
		la := &models.LineItemAllocation{
			ID:             uuid.NewString(),
			DocumentKind:   kind,
			DocumentID:     docID,
			DocumentStatus: models.StatusDraft,
			PREID:          li.PREID,
			PRELineItemID:  draw.LineItemID,
			Quarter:        draw.Quarter,
			Amount:         draw.Amount,
			AllocatedAt:    time.Now(),
		}
		if err := s.store.InsertLineItemAllocation(ctx, la); err != nil {
			return err
		}
	}
	return nil
}

func drawTotal(draws []LineDraw) decimal.Decimal {
	total := decimal.Zero
	for _, d := range draws {
		total = total.Add(d.Amount)
	}
	return total
}

// QuarterBreakdown reports the per-quarter position of one PRE line item.
func (s *Service) QuarterBreakdown(ctx context.Context, lineItemID string) ([]models.QuarterBreakdown, error) {
	li, err := s.store.GetPRELineItem(ctx, lineItemID)
	if err != nil {
		return nil, err
	}

	out := make([]models.QuarterBreakdown, 0, len(models.Quarters))
	for _, q := range models.Quarters {
		original := li.QuarterAmount(q)
		consumed, err := s.store.SumLineItemAllocations(ctx, lineItemID, q, models.ConsumedStatuses)
		if err != nil {
			return nil, err
		}
		reserved, err := s.store.SumLineItemAllocations(ctx, lineItemID, q, models.ReservedStatuses)
		if err != nil {
			return nil, err
		}
		prCount, err := s.store.CountLineItemAllocations(ctx, lineItemID, q, models.KindPurchaseRequest, append(models.ConsumedStatuses, models.ReservedStatuses...))
		if err != nil {
			return nil, err
		}
		adCount, err := s.store.CountLineItemAllocations(ctx, lineItemID, q, models.KindActivityDesign, append(models.ConsumedStatuses, models.ReservedStatuses...))
		if err != nil {
			return nil, err
		}

		qb := models.QuarterBreakdown{
			Quarter:   q,
			Original:  original,
			Consumed:  consumed,
			Reserved:  reserved,
			Available: original.Sub(consumed).Sub(reserved),
			PRCount:   prCount,
			ADCount:   adCount,
		}
		if original.IsPositive() {
			pct, _ := consumed.Add(reserved).Div(original).Mul(decimal.NewFromInt(100)).Float64()
			qb.UtilizationPercent = pct
		}
		out = append(out, qb)
	}
	return out, nil
}
