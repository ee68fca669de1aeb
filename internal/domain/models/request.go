package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest is a procurement fund-utilization document funded from PRE
// line items.
type PurchaseRequest struct {
	ID                 string `bson:"_id" json:"id"`
	PRNumber           string `bson:"pr_number" json:"prNumber"`
	SubmittedBy        string `bson:"submitted_by" json:"submittedBy"`
	Department         string `bson:"department" json:"department"`
	BudgetAllocationID string `bson:"budget_allocation_id" json:"budgetAllocationId"`

	SourcePREID      string `bson:"source_pre_id,omitempty" json:"sourcePreId,omitempty"`
	SourceLineItemID string `bson:"source_line_item_id,omitempty" json:"sourceLineItemId,omitempty"`
	SourceOfFund     string `bson:"source_of_fund,omitempty" json:"sourceOfFund,omitempty"`

	Purpose     string          `bson:"purpose" json:"purpose"`
	TotalAmount decimal.Decimal `bson:"total_amount" json:"totalAmount"`

	EntityName           string `bson:"entity_name,omitempty" json:"entityName,omitempty"`
	FundCluster          string `bson:"fund_cluster,omitempty" json:"fundCluster,omitempty"`
	OfficeSection        string `bson:"office_section,omitempty" json:"officeSection,omitempty"`
	ResponsibilityCenter string `bson:"responsibility_center,omitempty" json:"responsibilityCenter,omitempty"`

	Status           Status   `bson:"status" json:"status"`
	IsValid          bool     `bson:"is_valid" json:"isValid"`
	ValidationErrors []string `bson:"validation_errors,omitempty" json:"validationErrors,omitempty"`
	AdminNotes       string   `bson:"admin_notes,omitempty" json:"adminNotes,omitempty"`
	RejectionReason  string   `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`

	Items []PurchaseRequestItem `bson:"items,omitempty" json:"items,omitempty"`

	CreatedAt            time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt            time.Time  `bson:"updated_at" json:"updatedAt"`
	SubmittedAt          *time.Time `bson:"submitted_at,omitempty" json:"submittedAt,omitempty"`
	PartiallyApprovedAt  *time.Time `bson:"partially_approved_at,omitempty" json:"partiallyApprovedAt,omitempty"`
	FinalApprovedAt      *time.Time `bson:"final_approved_at,omitempty" json:"finalApprovedAt,omitempty"`
	AwaitingVerification bool       `bson:"awaiting_verification" json:"awaitingVerification"`
	EndUserUploadedAt    *time.Time `bson:"end_user_uploaded_at,omitempty" json:"endUserUploadedAt,omitempty"`
	AdminApprovedBy      string     `bson:"admin_approved_by,omitempty" json:"adminApprovedBy,omitempty"`
	AdminApprovedAt      *time.Time `bson:"admin_approved_at,omitempty" json:"adminApprovedAt,omitempty"`

	ArchiveInfo `bson:",inline"`
}

// RecalculateTotal refreshes the PR total from its items.
func (pr *PurchaseRequest) RecalculateTotal() {
	total := decimal.Zero
	for i := range pr.Items {
		pr.Items[i].Compute()
		total = total.Add(pr.Items[i].TotalCost)
	}
	if len(pr.Items) > 0 {
		pr.TotalAmount = total
	}
}

// PurchaseRequestItem is one procurement line of a form-based PR.
type PurchaseRequestItem struct {
	StockPropertyNo string          `bson:"stock_property_no,omitempty" json:"stockPropertyNo,omitempty"`
	Unit            string          `bson:"unit" json:"unit"`
	Description     string          `bson:"description" json:"description"`
	Quantity        int64           `bson:"quantity" json:"quantity"`
	UnitCost        decimal.Decimal `bson:"unit_cost" json:"unitCost"`
	TotalCost       decimal.Decimal `bson:"total_cost" json:"totalCost"`
}

// Compute sets the item total from quantity and unit cost.
func (i *PurchaseRequestItem) Compute() {
	i.TotalCost = i.UnitCost.Mul(decimal.NewFromInt(i.Quantity))
}

// ActivityDesign is a non-procurement fund-utilization document. It shares
// the PR workflow and budget linkage.
type ActivityDesign struct {
	ID                 string `bson:"_id" json:"id"`
	ADNumber           string `bson:"ad_number" json:"adNumber"`
	SubmittedBy        string `bson:"submitted_by" json:"submittedBy"`
	Department         string `bson:"department" json:"department"`
	BudgetAllocationID string `bson:"budget_allocation_id" json:"budgetAllocationId"`

	SourcePREID      string `bson:"source_pre_id,omitempty" json:"sourcePreId,omitempty"`
	SourceLineItemID string `bson:"source_line_item_id,omitempty" json:"sourceLineItemId,omitempty"`

	ActivityTitle       string          `bson:"activity_title,omitempty" json:"activityTitle,omitempty"`
	ActivityDescription string          `bson:"activity_description,omitempty" json:"activityDescription,omitempty"`
	Purpose             string          `bson:"purpose,omitempty" json:"purpose,omitempty"`
	TotalAmount         decimal.Decimal `bson:"total_amount" json:"totalAmount"`

	Status           Status   `bson:"status" json:"status"`
	IsValid          bool     `bson:"is_valid" json:"isValid"`
	ValidationErrors []string `bson:"validation_errors,omitempty" json:"validationErrors,omitempty"`
	AdminNotes       string   `bson:"admin_notes,omitempty" json:"adminNotes,omitempty"`
	RejectionReason  string   `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`

	CreatedAt            time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt            time.Time  `bson:"updated_at" json:"updatedAt"`
	SubmittedAt          *time.Time `bson:"submitted_at,omitempty" json:"submittedAt,omitempty"`
	PartiallyApprovedAt  *time.Time `bson:"partially_approved_at,omitempty" json:"partiallyApprovedAt,omitempty"`
	FinalApprovedAt      *time.Time `bson:"final_approved_at,omitempty" json:"finalApprovedAt,omitempty"`
	AwaitingVerification bool       `bson:"awaiting_verification" json:"awaitingVerification"`
	EndUserUploadedAt    *time.Time `bson:"end_user_uploaded_at,omitempty" json:"endUserUploadedAt,omitempty"`
	AdminApprovedBy      string     `bson:"admin_approved_by,omitempty" json:"adminApprovedBy,omitempty"`
	AdminApprovedAt      *time.Time `bson:"admin_approved_at,omitempty" json:"adminApprovedAt,omitempty"`

	ArchiveInfo `bson:",inline"`
}

// LineItemAllocation records one PRE line item quarter funding a PR or AD.
// DocumentStatus mirrors the parent document's workflow status so quarter
// consumption queries never need a join.
type LineItemAllocation struct {
	ID             string          `bson:"_id" json:"id"`
	DocumentKind   DocumentKind    `bson:"document_kind" json:"documentKind"`
	DocumentID     string          `bson:"document_id" json:"documentId"`
	DocumentStatus Status          `bson:"document_status" json:"documentStatus"`
	PREID          string          `bson:"pre_id" json:"preId"`
	PRELineItemID  string          `bson:"pre_line_item_id" json:"preLineItemId"`
	Quarter        Quarter         `bson:"quarter" json:"quarter"`
	Amount         decimal.Decimal `bson:"amount" json:"amount"`
	AllocatedAt    time.Time       `bson:"allocated_at" json:"allocatedAt"`
	Notes          string          `bson:"notes,omitempty" json:"notes,omitempty"`
}
