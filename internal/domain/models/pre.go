package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PRECategory is the budget-by-object section a line item belongs to.
type PRECategory string

const (
	CategoryReceipts  PRECategory = "RECEIPTS"
	CategoryPersonnel PRECategory = "PERSONNEL"
	CategoryMOOE      PRECategory = "MOOE"
	CategoryCapital   PRECategory = "CAPITAL"
)

// Line item source types.
const (
	LineItemSourceSheet  = "sheet"
	LineItemSourceManual = "manual"
)

// DepartmentPRE is a department's Program of Receipts and Expenditures: the
// planning document whose approved grand total caps PR/AD spending for the
// linked allocation.
type DepartmentPRE struct {
	ID                 string          `bson:"_id" json:"id"`
	SubmittedBy        string          `bson:"submitted_by" json:"submittedBy"`
	Department         string          `bson:"department" json:"department"`
	Program            string          `bson:"program,omitempty" json:"program,omitempty"`
	FundSource         string          `bson:"fund_source,omitempty" json:"fundSource,omitempty"`
	FiscalYear         string          `bson:"fiscal_year" json:"fiscalYear"`
	BudgetAllocationID string          `bson:"budget_allocation_id" json:"budgetAllocationId"`
	Status             Status          `bson:"status" json:"status"`
	TotalAmount        decimal.Decimal `bson:"total_amount" json:"totalAmount"`
	IsValid            bool            `bson:"is_valid" json:"isValid"`
	ValidationErrors   []string        `bson:"validation_errors,omitempty" json:"validationErrors,omitempty"`

	PreparedByName  string `bson:"prepared_by_name,omitempty" json:"preparedByName,omitempty"`
	CertifiedByName string `bson:"certified_by_name,omitempty" json:"certifiedByName,omitempty"`
	ApprovedByName  string `bson:"approved_by_name,omitempty" json:"approvedByName,omitempty"`

	AdminNotes      string `bson:"admin_notes,omitempty" json:"adminNotes,omitempty"`
	RejectionReason string `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`

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

// PRELineItem is one budget line of a PRE with quarterly amounts.
type PRELineItem struct {
	ID          string      `bson:"_id" json:"id"`
	PREID       string      `bson:"pre_id" json:"preId"`
	Category    PRECategory `bson:"category" json:"category"`
	Subcategory string      `bson:"subcategory,omitempty" json:"subcategory,omitempty"`
	ItemName    string      `bson:"item_name" json:"itemName"`
	ItemCode    string      `bson:"item_code,omitempty" json:"itemCode,omitempty"`
	Description string      `bson:"description,omitempty" json:"description,omitempty"`
	SourceType  string      `bson:"source_type" json:"sourceType"`

	Q1Amount decimal.Decimal `bson:"q1_amount" json:"q1Amount"`
	Q2Amount decimal.Decimal `bson:"q2_amount" json:"q2Amount"`
	Q3Amount decimal.Decimal `bson:"q3_amount" json:"q3Amount"`
	Q4Amount decimal.Decimal `bson:"q4_amount" json:"q4Amount"`

	IsProcurable      bool   `bson:"is_procurable" json:"isProcurable"`
	ProcurementMethod string `bson:"procurement_method,omitempty" json:"procurementMethod,omitempty"`
	Remarks           string `bson:"remarks,omitempty" json:"remarks,omitempty"`
}

// Total sums all four quarters.
func (li *PRELineItem) Total() decimal.Decimal {
	return li.Q1Amount.Add(li.Q2Amount).Add(li.Q3Amount).Add(li.Q4Amount)
}

// QuarterAmount returns the budgeted amount for one quarter.
func (li *PRELineItem) QuarterAmount(q Quarter) decimal.Decimal {
	switch q {
	case Q1:
		return li.Q1Amount
	case Q2:
		return li.Q2Amount
	case Q3:
		return li.Q3Amount
	case Q4:
		return li.Q4Amount
	}
	return decimal.Zero
}

// SetQuarterAmount overwrites the budgeted amount for one quarter.
func (li *PRELineItem) SetQuarterAmount(q Quarter, amount decimal.Decimal) {
	switch q {
	case Q1:
		li.Q1Amount = amount
	case Q2:
		li.Q2Amount = amount
	case Q3:
		li.Q3Amount = amount
	case Q4:
		li.Q4Amount = amount
	}
}

// PREReceipt is one income line of a PRE with quarterly amounts.
type PREReceipt struct {
	ID          string          `bson:"_id" json:"id"`
	PREID       string          `bson:"pre_id" json:"preId"`
	ReceiptType string          `bson:"receipt_type" json:"receiptType"`
	Q1Amount    decimal.Decimal `bson:"q1_amount" json:"q1Amount"`
	Q2Amount    decimal.Decimal `bson:"q2_amount" json:"q2Amount"`
	Q3Amount    decimal.Decimal `bson:"q3_amount" json:"q3Amount"`
	Q4Amount    decimal.Decimal `bson:"q4_amount" json:"q4Amount"`
}

// Total sums all four quarters of the receipt.
func (r *PREReceipt) Total() decimal.Decimal {
	return r.Q1Amount.Add(r.Q2Amount).Add(r.Q3Amount).Add(r.Q4Amount)
}

// QuarterBreakdown describes budget usage of one line item quarter.
// Available = Original - Consumed - Reserved, so pending requests cannot
// over-commit a quarter before they are decided.
type QuarterBreakdown struct {
	Quarter            Quarter         `json:"quarter"`
	Original           decimal.Decimal `json:"original"`
	Consumed           decimal.Decimal `json:"consumed"`
	Reserved           decimal.Decimal `json:"reserved"`
	Available          decimal.Decimal `json:"available"`
	PRCount            int64           `json:"prCount"`
	ADCount            int64           `json:"adCount"`
	UtilizationPercent float64         `json:"utilizationPercent"`
}
