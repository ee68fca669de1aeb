package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Realignment moves budget between PRE line items, per quarter, source to
// target. It follows the shared workflow and executes the transfer on final
// approval.
type Realignment struct {
	ID          string `bson:"_id" json:"id"`
	RequestedBy string `bson:"requested_by" json:"requestedBy"`
	Department  string `bson:"department" json:"department"`
	Status      Status `bson:"status" json:"status"`
	Reason      string `bson:"reason,omitempty" json:"reason,omitempty"`

	SourcePREID      string `bson:"source_pre_id" json:"sourcePreId"`
	SourceLineItemID string `bson:"source_line_item_id" json:"sourceLineItemId"`
	TargetPREID      string `bson:"target_pre_id" json:"targetPreId"`
	TargetLineItemID string `bson:"target_line_item_id" json:"targetLineItemId"`

	SourceItemDisplay string `bson:"source_item_display,omitempty" json:"sourceItemDisplay,omitempty"`
	TargetItemDisplay string `bson:"target_item_display,omitempty" json:"targetItemDisplay,omitempty"`

	Q1Amount decimal.Decimal `bson:"q1_amount" json:"q1Amount"`
	Q2Amount decimal.Decimal `bson:"q2_amount" json:"q2Amount"`
	Q3Amount decimal.Decimal `bson:"q3_amount" json:"q3Amount"`
	Q4Amount decimal.Decimal `bson:"q4_amount" json:"q4Amount"`

	AdminNotes      string `bson:"admin_notes,omitempty" json:"adminNotes,omitempty"`
	RejectionReason string `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`

	CreatedAt            time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt            time.Time  `bson:"updated_at" json:"updatedAt"`
	SubmittedAt          *time.Time `bson:"submitted_at,omitempty" json:"submittedAt,omitempty"`
	PartiallyApprovedAt  *time.Time `bson:"partially_approved_at,omitempty" json:"partiallyApprovedAt,omitempty"`
	FinalApprovedAt      *time.Time `bson:"final_approved_at,omitempty" json:"finalApprovedAt,omitempty"`
	AwaitingVerification bool       `bson:"awaiting_verification" json:"awaitingVerification"`
	EndUserUploadedAt    *time.Time `bson:"end_user_uploaded_at,omitempty" json:"endUserUploadedAt,omitempty"`
	PartialApprovedBy    string     `bson:"partial_approved_by,omitempty" json:"partialApprovedBy,omitempty"`
	AdminApprovedBy      string     `bson:"admin_approved_by,omitempty" json:"adminApprovedBy,omitempty"`
	AdminApprovedAt      *time.Time `bson:"admin_approved_at,omitempty" json:"adminApprovedAt,omitempty"`

	ArchiveInfo `bson:",inline"`
}

// TotalAmount sums the quarterly transfer amounts.
func (r *Realignment) TotalAmount() decimal.Decimal {
	return r.Q1Amount.Add(r.Q2Amount).Add(r.Q3Amount).Add(r.Q4Amount)
}

// QuarterTransfer is one quarter's share of a realignment.
type QuarterTransfer struct {
	Quarter Quarter
	Amount  decimal.Decimal
}

// SelectedQuarters lists the quarters with a positive transfer amount.
func (r *Realignment) SelectedQuarters() []QuarterTransfer {
	var out []QuarterTransfer
	for _, qt := range []QuarterTransfer{
		{Q1, r.Q1Amount},
		{Q2, r.Q2Amount},
		{Q3, r.Q3Amount},
		{Q4, r.Q4Amount},
	} {
		if qt.Amount.IsPositive() {
			out = append(out, qt)
		}
	}
	return out
}

// QuarterAvailability reports how much of a source line item quarter can
// still be moved. Remaining accounts for consumed, reserved and other
// pending realignments so an approval can never drive the quarter negative.
type QuarterAvailability struct {
	Quarter   Quarter         `json:"quarter"`
	Allocated decimal.Decimal `json:"allocated"`
	Consumed  decimal.Decimal `json:"consumed"`
	Reserved  decimal.Decimal `json:"reserved"`
	Pending   decimal.Decimal `json:"pending"`
	Remaining decimal.Decimal `json:"remaining"`
}
