package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignificantSavingsThreshold marks line items worth flagging in reports.
var SignificantSavingsThreshold = decimal.NewFromInt(5000)

// BudgetSavings is a point-in-time snapshot of unused budget for one
// allocation, computed at fiscal year end or on demand.
type BudgetSavings struct {
	ID           string          `bson:"_id" json:"id"`
	AllocationID string          `bson:"allocation_id" json:"allocationId"`
	FiscalYear   string          `bson:"fiscal_year" json:"fiscalYear"`
	Department   string          `bson:"department" json:"department"`
	Allocated    decimal.Decimal `bson:"allocated" json:"allocated"`
	Used         decimal.Decimal `bson:"used" json:"used"`
	Savings      decimal.Decimal `bson:"savings" json:"savings"`
	ComputedAt   time.Time       `bson:"computed_at" json:"computedAt"`
	ComputedBy   string          `bson:"computed_by,omitempty" json:"computedBy,omitempty"`
}

// UtilizationRate is Used/Allocated as a percentage, 0 when nothing allocated.
func (s *BudgetSavings) UtilizationRate() decimal.Decimal {
	if s.Allocated.IsZero() {
		return decimal.Zero
	}
	return s.Used.Div(s.Allocated).Mul(decimal.NewFromInt(100)).Round(2)
}

// SavingsRate is Savings/Allocated as a percentage, 0 when nothing allocated.
func (s *BudgetSavings) SavingsRate() decimal.Decimal {
	if s.Allocated.IsZero() {
		return decimal.Zero
	}
	return s.Savings.Div(s.Allocated).Mul(decimal.NewFromInt(100)).Round(2)
}

// QuarterSavings is the per-quarter breakdown within a line item.
type QuarterSavings struct {
	Quarter Quarter         `bson:"quarter" json:"quarter"`
	Planned decimal.Decimal `bson:"planned" json:"planned"`
	Used    decimal.Decimal `bson:"used" json:"used"`
	Savings decimal.Decimal `bson:"savings" json:"savings"`
}

// LineItemSavings breaks savings down to a single planning line item.
type LineItemSavings struct {
	ID         string           `bson:"_id" json:"id"`
	SavingsID  string           `bson:"savings_id" json:"savingsId"`
	LineItemID string           `bson:"line_item_id" json:"lineItemId"`
	ItemName   string           `bson:"item_name" json:"itemName"`
	Category   PRECategory      `bson:"category" json:"category"`
	Planned    decimal.Decimal  `bson:"planned" json:"planned"`
	Used       decimal.Decimal  `bson:"used" json:"used"`
	Savings    decimal.Decimal  `bson:"savings" json:"savings"`
	Quarters   []QuarterSavings `bson:"quarters,omitempty" json:"quarters,omitempty"`
}

// Significant reports whether the saved amount clears the reporting threshold.
func (l *LineItemSavings) Significant() bool {
	return l.Savings.GreaterThanOrEqual(SignificantSavingsThreshold)
}
