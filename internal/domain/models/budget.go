package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ApprovedBudget is the approved campus budget for one fiscal year. Fiscal
// years are unique across active budgets.
type ApprovedBudget struct {
	ID              string          `bson:"_id" json:"id"`
	Title           string          `bson:"title" json:"title"`
	FiscalYear      string          `bson:"fiscal_year" json:"fiscalYear"`
	Amount          decimal.Decimal `bson:"amount" json:"amount"`
	RemainingBudget decimal.Decimal `bson:"remaining_budget" json:"remainingBudget"`
	Description     string          `bson:"description,omitempty" json:"description,omitempty"`
	CreatedBy       string          `bson:"created_by" json:"createdBy"`
	CreatedAt       time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `bson:"updated_at" json:"updatedAt"`
	IsActive        bool            `bson:"is_active" json:"isActive"`

	ArchiveInfo `bson:",inline"`
}

// String renders the budget the way it appears in audit details.
func (b *ApprovedBudget) String() string {
	return fmt.Sprintf("%s (%s) - PHP %s", b.Title, b.FiscalYear, b.Amount.StringFixed(2))
}

// BudgetAllocation distributes part of an approved budget to one end user of
// a department. The (budget, end user) pair is unique.
type BudgetAllocation struct {
	ID               string          `bson:"_id" json:"id"`
	ApprovedBudgetID string          `bson:"approved_budget_id" json:"approvedBudgetId"`
	Department       string          `bson:"department" json:"department"`
	EndUserID        string          `bson:"end_user_id" json:"endUserId"`
	AllocatedAmount  decimal.Decimal `bson:"allocated_amount" json:"allocatedAmount"`
	RemainingBalance decimal.Decimal `bson:"remaining_balance" json:"remainingBalance"`

	// Usage is tracked per document kind. PRE amounts plan spending and do
	// not reduce the remaining balance; PR and AD amounts do.
	PREAmountUsed decimal.Decimal `bson:"pre_amount_used" json:"preAmountUsed"`
	PRAmountUsed  decimal.Decimal `bson:"pr_amount_used" json:"prAmountUsed"`
	ADAmountUsed  decimal.Decimal `bson:"ad_amount_used" json:"adAmountUsed"`

	AllocatedAt time.Time `bson:"allocated_at" json:"allocatedAt"`
	IsActive    bool      `bson:"is_active" json:"isActive"`

	ArchiveInfo `bson:",inline"`
}

// TotalUsed returns the officially spent amount (PR + AD, PRE excluded).
func (a *BudgetAllocation) TotalUsed() decimal.Decimal {
	return a.PRAmountUsed.Add(a.ADAmountUsed)
}

// RecalculateRemaining refreshes the remaining balance from the allocated
// amount and current usage.
func (a *BudgetAllocation) RecalculateRemaining() {
	a.RemainingBalance = a.AllocatedAmount.Sub(a.TotalUsed())
}

// AvailableFromPRE is the spendable amount under the new PRE workflow: the
// approved PRE grand total minus PR/AD usage. Without an approved PRE it
// falls back to the remaining balance.
func (a *BudgetAllocation) AvailableFromPRE(approvedPRETotal decimal.Decimal) decimal.Decimal {
	if approvedPRETotal.IsZero() {
		return a.RemainingBalance
	}
	return approvedPRETotal.Sub(a.TotalUsed())
}

// UtilizationPercent returns spent / allocated as a percentage.
func (a *BudgetAllocation) UtilizationPercent() float64 {
	if a.AllocatedAmount.IsZero() {
		return 0
	}
	pct, _ := a.TotalUsed().Div(a.AllocatedAmount).Mul(decimal.NewFromInt(100)).Float64()
	return pct
}
