// Package budget manages fiscal-year budgets and department allocations.
package budget

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
)

// Validation errors surfaced to handlers.
var (
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrOverAllocated      = errors.New("allocation exceeds the budget's remaining amount")
	ErrAllocationInUse    = errors.New("allocation has recorded usage and cannot be removed")
	ErrReversionTooLarge  = errors.New("reversion exceeds the budget's remaining amount")
	ErrFiscalYearRequired = errors.New("fiscal year must be provided")
)

// Store is the persistence surface the budget service needs.
type Store interface {
	InsertBudget(ctx context.Context, b *models.ApprovedBudget) error
	GetBudget(ctx context.Context, id string) (*models.ApprovedBudget, error)
	GetBudgetByFiscalYear(ctx context.Context, fiscalYear string) (*models.ApprovedBudget, error)
	ListBudgets(ctx context.Context, includeArchived bool) ([]models.ApprovedBudget, error)
	UpdateBudget(ctx context.Context, b *models.ApprovedBudget) error
	AdjustBudgetAmounts(ctx context.Context, id string, amountDelta, remainingDelta decimal.Decimal) error

	InsertAllocation(ctx context.Context, a *models.BudgetAllocation) error
	GetAllocation(ctx context.Context, id string) (*models.BudgetAllocation, error)
	ListAllocationsByBudget(ctx context.Context, budgetID string, includeArchived bool) ([]models.BudgetAllocation, error)
	ListAllocationsByDepartment(ctx context.Context, department string) ([]models.BudgetAllocation, error)
	UpdateAllocation(ctx context.Context, a *models.BudgetAllocation) error
	DeleteAllocation(ctx context.Context, id string) error

	InsertTransaction(ctx context.Context, t *models.BudgetTransaction) error
	ListTransactionsByAllocation(ctx context.Context, allocationID string, limit int64) ([]models.BudgetTransaction, error)
	InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error
}

// Service implements budget and allocation management for the admin portal.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires a new budget service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// CreateBudgetInput carries the fields of a new fiscal-year budget.
type CreateBudgetInput struct {
	Title       string
	FiscalYear  string
	Amount      decimal.Decimal
	Description string
}

// CreateBudget registers the approved budget for a fiscal year. One budget
// per fiscal year; the remaining amount starts equal to the total.
func (s *Service) CreateBudget(ctx context.Context, in CreateBudgetInput, actor models.Actor) (*models.ApprovedBudget, error) {
	if in.FiscalYear == "" {
		return nil, ErrFiscalYearRequired
	}
	if !in.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	b := &models.ApprovedBudget{
		ID:              uuid.NewString(),
		Title:           in.Title,
		FiscalYear:      in.FiscalYear,
		Amount:          in.Amount,
		RemainingBudget: in.Amount,
		Description:     in.Description,
		CreatedBy:       actor.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
		IsActive:        true,
	}
	if err := s.store.InsertBudget(ctx, b); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, models.ActionCreate, models.KindBudget, b.ID,
		fmt.Sprintf("created budget %s for FY %s (PHP %s)", b.Title, b.FiscalYear, b.Amount.StringFixed(2)))
	s.logger.Info("budget created",
		zap.String("budget_id", b.ID),
		zap.String("fiscal_year", b.FiscalYear),
		zap.String("amount", b.Amount.String()))
	return b, nil
}

// GetBudget fetches one budget.
func (s *Service) GetBudget(ctx context.Context, id string) (*models.ApprovedBudget, error) {
	return s.store.GetBudget(ctx, id)
}

// ListBudgets lists budgets, newest fiscal year first.
func (s *Service) ListBudgets(ctx context.Context, includeArchived bool) ([]models.ApprovedBudget, error) {
	return s.store.ListBudgets(ctx, includeArchived)
}

// UpdateBudgetInput carries the editable fields of a budget.
type UpdateBudgetInput struct {
	Title       string
	Description string
}

// UpdateBudget changes a budget's descriptive fields. Amounts move only
// through supplemental and reversion adjustments.
func (s *Service) UpdateBudget(ctx context.Context, id string, in UpdateBudgetInput, actor models.Actor) (*models.ApprovedBudget, error) {
	b, err := s.store.GetBudget(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Title != "" {
		b.Title = in.Title
	}
	if in.Description != "" {
		b.Description = in.Description
	}
	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return nil, err
	}
	s.audit(ctx, actor, models.ActionUpdate, models.KindBudget, b.ID, "updated budget details")
	return b, nil
}

// AddSupplemental raises both the total and the remaining amount of a
// budget, recording the adjustment in the transaction trail.
func (s *Service) AddSupplemental(ctx context.Context, budgetID string, amount decimal.Decimal, remarks string, actor models.Actor) (*models.ApprovedBudget, error) {
	return s.adjustBudget(ctx, budgetID, amount, models.TxnSupplemental, remarks, actor)
}

// RevertBudget returns unused funds, lowering both the total and the
// remaining amount. The reversion may not exceed what is left.
func (s *Service) RevertBudget(ctx context.Context, budgetID string, amount decimal.Decimal, remarks string, actor models.Actor) (*models.ApprovedBudget, error) {
	return s.adjustBudget(ctx, budgetID, amount.Neg(), models.TxnReversion, remarks, actor)
}

func (s *Service) adjustBudget(ctx context.Context, budgetID string, delta decimal.Decimal, txnType models.TransactionType, remarks string, actor models.Actor) (*models.ApprovedBudget, error) {
	if delta.IsZero() {
		return nil, ErrInvalidAmount
	}
	b, err := s.store.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if delta.IsNegative() && b.RemainingBudget.Add(delta).IsNegative() {
		return nil, ErrReversionTooLarge
	}

	previous := b.RemainingBudget
	if err := s.store.AdjustBudgetAmounts(ctx, budgetID, delta, delta); err != nil {
		return nil, err
	}
	b.Amount = b.Amount.Add(delta)
	b.RemainingBudget = b.RemainingBudget.Add(delta)

	txn := &models.BudgetTransaction{
		ID:              uuid.NewString(),
		Type:            txnType,
		Amount:          delta,
		PreviousBalance: previous,
		NewBalance:      b.RemainingBudget,
		RelatedKind:     models.KindBudget,
		RelatedID:       budgetID,
		Remarks:         remarks,
		CreatedBy:       actor.ID,
		CreatedAt:       time.Now(),
	}
	if err := s.store.InsertTransaction(ctx, txn); err != nil {
		s.logger.Error("failed to record budget adjustment transaction",
			zap.String("budget_id", budgetID), zap.Error(err))
	}

	s.audit(ctx, actor, models.ActionUpdate, models.KindBudget, budgetID,
		fmt.Sprintf("%s adjustment of PHP %s", txnType, delta.Abs().StringFixed(2)))
	return b, nil
}

// CreateAllocationInput carries the fields of a new department allocation.
type CreateAllocationInput struct {
	BudgetID        string
	Department      string
	EndUserID       string
	AllocatedAmount decimal.Decimal
}

// CreateAllocation carves a department's share out of a fiscal-year budget.
// The sum of allocations can never exceed the budget's remaining amount.
func (s *Service) CreateAllocation(ctx context.Context, in CreateAllocationInput, actor models.Actor) (*models.BudgetAllocation, error) {
	if !in.AllocatedAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	b, err := s.store.GetBudget(ctx, in.BudgetID)
	if err != nil {
		return nil, err
	}
	if in.AllocatedAmount.GreaterThan(b.RemainingBudget) {
		return nil, ErrOverAllocated
	}

	a := &models.BudgetAllocation{
		ID:               uuid.NewString(),
		ApprovedBudgetID: in.BudgetID,
		Department:       in.Department,
		EndUserID:        in.EndUserID,
		AllocatedAmount:  in.AllocatedAmount,
		RemainingBalance: in.AllocatedAmount,
		AllocatedAt:      time.Now(),
		IsActive:         true,
	}
	if err := s.store.InsertAllocation(ctx, a); err != nil {
		return nil, err
	}

	if err := s.store.AdjustBudgetAmounts(ctx, in.BudgetID, decimal.Zero, in.AllocatedAmount.Neg()); err != nil {
		return nil, err
	}

	txn := &models.BudgetTransaction{
		ID:              uuid.NewString(),
		AllocationID:    a.ID,
		Type:            models.TxnAllocationCreated,
		Amount:          in.AllocatedAmount.Neg(),
		PreviousBalance: b.RemainingBudget,
		NewBalance:      b.RemainingBudget.Sub(in.AllocatedAmount),
		RelatedKind:     models.KindBudget,
		RelatedID:       in.BudgetID,
		Remarks:         fmt.Sprintf("allocated to %s", in.Department),
		CreatedBy:       actor.ID,
		CreatedAt:       time.Now(),
	}
	if err := s.store.InsertTransaction(ctx, txn); err != nil {
		s.logger.Error("failed to record allocation transaction",
			zap.String("allocation_id", a.ID), zap.Error(err))
	}

	s.audit(ctx, actor, models.ActionCreate, models.KindAllocation, a.ID,
		fmt.Sprintf("allocated PHP %s of FY %s budget to %s", in.AllocatedAmount.StringFixed(2), b.FiscalYear, in.Department))
	s.logger.Info("allocation created",
		zap.String("allocation_id", a.ID),
		zap.String("department", in.Department),
		zap.String("amount", in.AllocatedAmount.String()))
	return a, nil
}

// GetAllocation fetches one allocation.
func (s *Service) GetAllocation(ctx context.Context, id string) (*models.BudgetAllocation, error) {
	return s.store.GetAllocation(ctx, id)
}

// ListAllocationsByBudget lists the allocations under a budget.
func (s *Service) ListAllocationsByBudget(ctx context.Context, budgetID string, includeArchived bool) ([]models.BudgetAllocation, error) {
	return s.store.ListAllocationsByBudget(ctx, budgetID, includeArchived)
}

// ListAllocationsByDepartment lists a department's active allocations.
func (s *Service) ListAllocationsByDepartment(ctx context.Context, department string) ([]models.BudgetAllocation, error) {
	return s.store.ListAllocationsByDepartment(ctx, department)
}

// DeleteAllocation removes an untouched allocation and returns its amount
// to the parent budget. Allocations with recorded usage stay.
func (s *Service) DeleteAllocation(ctx context.Context, id string, actor models.Actor) error {
	a, err := s.store.GetAllocation(ctx, id)
	if err != nil {
		return err
	}
	if !a.TotalUsed().IsZero() || !a.PREAmountUsed.IsZero() {
		return ErrAllocationInUse
	}
	if err := s.store.DeleteAllocation(ctx, id); err != nil {
		return err
	}
	if err := s.store.AdjustBudgetAmounts(ctx, a.ApprovedBudgetID, decimal.Zero, a.AllocatedAmount); err != nil {
		return err
	}

	txn := &models.BudgetTransaction{
		ID:           uuid.NewString(),
		AllocationID: a.ID,
		Type:         models.TxnAllocationDeleted,
		Amount:       a.AllocatedAmount,
		RelatedKind:  models.KindBudget,
		RelatedID:    a.ApprovedBudgetID,
		Remarks:      fmt.Sprintf("deleted allocation for %s", a.Department),
		CreatedBy:    actor.ID,
		CreatedAt:    time.Now(),
	}
	if err := s.store.InsertTransaction(ctx, txn); err != nil {
		s.logger.Error("failed to record allocation deletion",
			zap.String("allocation_id", a.ID), zap.Error(err))
	}

	s.audit(ctx, actor, models.ActionDelete, models.KindAllocation, id,
		fmt.Sprintf("removed allocation for %s, PHP %s returned to budget", a.Department, a.AllocatedAmount.StringFixed(2)))
	return nil
}

// AdjustAllocation grows or shrinks a department's share after the fact.
// Growth draws from the parent budget's unallocated remainder; shrinkage
// may not take back more than the allocation's unused balance.
func (s *Service) AdjustAllocation(ctx context.Context, id string, delta decimal.Decimal, remarks string, actor models.Actor) (*models.BudgetAllocation, error) {
	if delta.IsZero() {
		return nil, ErrInvalidAmount
	}
	a, err := s.store.GetAllocation(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := s.store.GetBudget(ctx, a.ApprovedBudgetID)
	if err != nil {
		return nil, err
	}
	if delta.IsPositive() && delta.GreaterThan(b.RemainingBudget) {
		return nil, ErrOverAllocated
	}
	if delta.IsNegative() && a.RemainingBalance.Add(delta).IsNegative() {
		return nil, ErrReversionTooLarge
	}

	previous := a.RemainingBalance
	a.AllocatedAmount = a.AllocatedAmount.Add(delta)
	a.RecalculateRemaining()
	if err := s.store.UpdateAllocation(ctx, a); err != nil {
		return nil, err
	}
	if err := s.store.AdjustBudgetAmounts(ctx, a.ApprovedBudgetID, decimal.Zero, delta.Neg()); err != nil {
		return nil, err
	}

	txn := &models.BudgetTransaction{
		ID:              uuid.NewString(),
		AllocationID:    a.ID,
		Type:            models.TxnAllocationModified,
		Amount:          delta,
		PreviousBalance: previous,
		NewBalance:      a.RemainingBalance,
		RelatedKind:     models.KindAllocation,
		RelatedID:       a.ID,
		Remarks:         remarks,
		CreatedBy:       actor.ID,
		CreatedAt:       time.Now(),
	}
	if err := s.store.InsertTransaction(ctx, txn); err != nil {
		s.logger.Error("failed to record allocation adjustment",
			zap.String("allocation_id", a.ID), zap.Error(err))
	}

	s.audit(ctx, actor, models.ActionUpdate, models.KindAllocation, a.ID,
		fmt.Sprintf("adjusted %s allocation by PHP %s", a.Department, delta.StringFixed(2)))
	return a, nil
}

// ListTransactions returns the transaction trail of an allocation.
func (s *Service) ListTransactions(ctx context.Context, allocationID string, limit int64) ([]models.BudgetTransaction, error) {
	return s.store.ListTransactionsByAllocation(ctx, allocationID, limit)
}

func (s *Service) audit(ctx context.Context, actor models.Actor, action models.AuditAction, kind models.DocumentKind, recordID, detail string) {
	entry := &models.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     actor.ID,
		Action:     action,
		EntityKind: kind,
		RecordID:   recordID,
		Detail:     detail,
		IPAddress:  actor.IPAddress,
		Timestamp:  time.Now(),
	}
	if err := s.store.InsertAuditEntry(ctx, entry); err != nil {
		s.logger.Error("failed to write audit entry",
			zap.String("record_id", recordID), zap.Error(err))
	}
}

// Ensure the concrete repository satisfies the interface.
var _ Store = (*mongodb.Repository)(nil)
