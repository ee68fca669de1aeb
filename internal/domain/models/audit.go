package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies budget balance changes.
type TransactionType string

const (
	TxnPREApproved         TransactionType = "PRE_APPROVED"
	TxnPRApproved          TransactionType = "PR_APPROVED"
	TxnADApproved          TransactionType = "AD_APPROVED"
	TxnPRERejected         TransactionType = "PRE_REJECTED"
	TxnPRRejected          TransactionType = "PR_REJECTED"
	TxnADRejected          TransactionType = "AD_REJECTED"
	TxnAllocationCreated   TransactionType = "ALLOCATION_CREATED"
	TxnAllocationModified  TransactionType = "ALLOCATION_MODIFIED"
	TxnAllocationDeleted   TransactionType = "ALLOCATION_DELETED"
	TxnRealignmentApproved TransactionType = "REALIGNMENT_APPROVED"
	TxnSupplemental        TransactionType = "SUPPLEMENTAL"
	TxnReversion           TransactionType = "REVERSION"
)

// BudgetTransaction is one entry of the financial audit trail. Previous and
// new balance are snapshots taken inside the same critical section as the
// balance mutation.
type BudgetTransaction struct {
	ID              string          `bson:"_id" json:"id"`
	AllocationID    string          `bson:"allocation_id" json:"allocationId"`
	Type            TransactionType `bson:"type" json:"type"`
	Amount          decimal.Decimal `bson:"amount" json:"amount"`
	PreviousBalance decimal.Decimal `bson:"previous_balance" json:"previousBalance"`
	NewBalance      decimal.Decimal `bson:"new_balance" json:"newBalance"`
	RelatedKind     DocumentKind    `bson:"related_kind,omitempty" json:"relatedKind,omitempty"`
	RelatedID       string          `bson:"related_id,omitempty" json:"relatedId,omitempty"`
	Remarks         string          `bson:"remarks,omitempty" json:"remarks,omitempty"`
	CreatedBy       string          `bson:"created_by,omitempty" json:"createdBy,omitempty"`
	CreatedAt       time.Time       `bson:"created_at" json:"createdAt"`
}

// IsIncrease reports whether the transaction added budget.
func (t *BudgetTransaction) IsIncrease() bool { return t.Amount.IsPositive() }

// IsDecrease reports whether the transaction deducted budget.
func (t *BudgetTransaction) IsDecrease() bool { return t.Amount.IsNegative() }

// FormattedAmount renders the signed amount for display.
func (t *BudgetTransaction) FormattedAmount() string {
	switch {
	case t.Amount.IsPositive():
		return fmt.Sprintf("+PHP %s", t.Amount.StringFixed(2))
	case t.Amount.IsNegative():
		return fmt.Sprintf("-PHP %s", t.Amount.Abs().StringFixed(2))
	}
	return "PHP 0.00"
}

// AuditAction classifies audit trail entries.
type AuditAction string

const (
	ActionCreate    AuditAction = "CREATE"
	ActionUpdate    AuditAction = "UPDATE"
	ActionDelete    AuditAction = "DELETE"
	ActionSubmit    AuditAction = "SUBMIT"
	ActionApprove   AuditAction = "APPROVE"
	ActionReject    AuditAction = "REJECT"
	ActionArchive   AuditAction = "ARCHIVE"
	ActionUnarchive AuditAction = "UNARCHIVE"
)

// AuditEntry records who did what to which record.
type AuditEntry struct {
	ID         string       `bson:"_id" json:"id"`
	UserID     string       `bson:"user_id,omitempty" json:"userId,omitempty"`
	Action     AuditAction  `bson:"action" json:"action"`
	EntityKind DocumentKind `bson:"entity_kind" json:"entityKind"`
	RecordID   string       `bson:"record_id,omitempty" json:"recordId,omitempty"`
	Detail     string       `bson:"detail" json:"detail"`
	IPAddress  string       `bson:"ip_address,omitempty" json:"ipAddress,omitempty"`
	Timestamp  time.Time    `bson:"timestamp" json:"timestamp"`
}
