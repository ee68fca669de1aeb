package budget

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/budgetd/internal/domain/models"
	"github.com/opencampus/budgetd/internal/repository/mongodb"
)

type fakeStore struct {
	budgets      map[string]*models.ApprovedBudget
	allocations  map[string]*models.BudgetAllocation
	transactions []*models.BudgetTransaction
	audits       []*models.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		budgets:     map[string]*models.ApprovedBudget{},
		allocations: map[string]*models.BudgetAllocation{},
	}
}

func (f *fakeStore) InsertBudget(_ context.Context, b *models.ApprovedBudget) error {
	for _, existing := range f.budgets {
		if existing.FiscalYear == b.FiscalYear {
			return mongodb.ErrDuplicate
		}
	}
	cp := *b
	f.budgets[b.ID] = &cp
	return nil
}

func (f *fakeStore) GetBudget(_ context.Context, id string) (*models.ApprovedBudget, error) {
	b, ok := f.budgets[id]
	if !ok {
		return nil, mongodb.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) GetBudgetByFiscalYear(_ context.Context, fy string) (*models.ApprovedBudget, error) {
	for _, b := range f.budgets {
		if b.FiscalYear == fy {
			cp := *b
			return &cp, nil
		}
	}
	return nil, mongodb.ErrNotFound
}

func (f *fakeStore) ListBudgets(_ context.Context, includeArchived bool) ([]models.ApprovedBudget, error) {
	var out []models.ApprovedBudget
	for _, b := range f.budgets {
		if includeArchived || !b.IsArchived {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateBudget(_ context.Context, b *models.ApprovedBudget) error {
	if _, ok := f.budgets[b.ID]; !ok {
		return mongodb.ErrNotFound
	}
	cp := *b
	f.budgets[b.ID] = &cp
	return nil
}

func (f *fakeStore) AdjustBudgetAmounts(_ context.Context, id string, amountDelta, remainingDelta decimal.Decimal) error {
	b, ok := f.budgets[id]
	if !ok {
		return mongodb.ErrNotFound
	}
	b.Amount = b.Amount.Add(amountDelta)
	b.RemainingBudget = b.RemainingBudget.Add(remainingDelta)
	return nil
}

func (f *fakeStore) InsertAllocation(_ context.Context, a *models.BudgetAllocation) error {
	cp := *a
	f.allocations[a.ID] = &cp
	return nil
}

func (f *fakeStore) GetAllocation(_ context.Context, id string) (*models.BudgetAllocation, error) {
	a, ok := f.allocations[id]
	if !ok {
		return nil, mongodb.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ListAllocationsByBudget(_ context.Context, budgetID string, includeArchived bool) ([]models.BudgetAllocation, error) {
	var out []models.BudgetAllocation
	for _, a := range f.allocations {
		if a.ApprovedBudgetID == budgetID && (includeArchived || !a.IsArchived) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAllocationsByDepartment(_ context.Context, department string) ([]models.BudgetAllocation, error) {
	var out []models.BudgetAllocation
	for _, a := range f.allocations {
		if a.Department == department && !a.IsArchived {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateAllocation(_ context.Context, a *models.BudgetAllocation) error {
	if _, ok := f.allocations[a.ID]; !ok {
		return mongodb.ErrNotFound
	}
	cp := *a
	f.allocations[a.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteAllocation(_ context.Context, id string) error {
	if _, ok := f.allocations[id]; !ok {
		return mongodb.ErrNotFound
	}
	delete(f.allocations, id)
	return nil
}

func (f *fakeStore) InsertTransaction(_ context.Context, t *models.BudgetTransaction) error {
	f.transactions = append(f.transactions, t)
	return nil
}

func (f *fakeStore) ListTransactionsByAllocation(_ context.Context, allocationID string, _ int64) ([]models.BudgetTransaction, error) {
	var out []models.BudgetTransaction
	for _, t := range f.transactions {
		if t.AllocationID == allocationID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertAuditEntry(_ context.Context, e *models.AuditEntry) error {
	f.audits = append(f.audits, e)
	return nil
}

var admin = models.Actor{ID: "admin-1", Name: "Budget Officer", Role: models.RoleAdmin}

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func TestCreateBudget(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	b, err := svc.CreateBudget(context.Background(), CreateBudgetInput{
		Title:      "General Fund",
		FiscalYear: "2026",
		Amount:     d("1000000"),
	}, admin)
	require.NoError(t, err)

	assert.True(t, b.RemainingBudget.Equal(d("1000000")))
	assert.True(t, b.IsActive)
	require.Len(t, store.audits, 1)
	assert.Equal(t, models.ActionCreate, store.audits[0].Action)

	// Second budget for the same fiscal year is rejected.
	_, err = svc.CreateBudget(context.Background(), CreateBudgetInput{
		Title: "Duplicate", FiscalYear: "2026", Amount: d("500"),
	}, admin)
	assert.ErrorIs(t, err, mongodb.ErrDuplicate)
}

func TestCreateBudget_InvalidAmount(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	_, err := svc.CreateBudget(context.Background(), CreateBudgetInput{
		FiscalYear: "2026", Amount: decimal.Zero,
	}, admin)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateBudget(context.Background(), CreateBudgetInput{
		Amount: d("100"),
	}, admin)
	assert.ErrorIs(t, err, ErrFiscalYearRequired)
}

func TestCreateAllocation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	b, err := svc.CreateBudget(context.Background(), CreateBudgetInput{
		Title: "General Fund", FiscalYear: "2026", Amount: d("1000000"),
	}, admin)
	require.NoError(t, err)

	a, err := svc.CreateAllocation(context.Background(), CreateAllocationInput{
		BudgetID:        b.ID,
		Department:      "Library",
		EndUserID:       "user-7",
		AllocatedAmount: d("300000"),
	}, admin)
	require.NoError(t, err)

	assert.True(t, a.RemainingBalance.Equal(d("300000")))

	got, err := svc.GetBudget(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingBudget.Equal(d("700000")), "got %s", got.RemainingBudget)

	// The carve-out is on the transaction trail.
	txns, err := svc.ListTransactions(context.Background(), a.ID, 0)
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.TxnAllocationCreated, txns[0].Type)
	assert.True(t, txns[0].Amount.Equal(d("-300000")))
	assert.True(t, txns[0].PreviousBalance.Equal(d("1000000")))
	assert.True(t, txns[0].NewBalance.Equal(d("700000")))
}

func TestCreateAllocation_OverAllocated(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	b, err := svc.CreateBudget(context.Background(), CreateBudgetInput{
		Title: "General Fund", FiscalYear: "2026", Amount: d("100000"),
	}, admin)
	require.NoError(t, err)

	_, err = svc.CreateAllocation(context.Background(), CreateAllocationInput{
		BudgetID: b.ID, Department: "Library", AllocatedAmount: d("100001"),
	}, admin)
	assert.ErrorIs(t, err, ErrOverAllocated)
}

func TestSupplementalAndReversion(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	b, err := svc.CreateBudget(context.Background(), CreateBudgetInput{
		Title: "General Fund", FiscalYear: "2026", Amount: d("100000"),
	}, admin)
	require.NoError(t, err)

	b, err = svc.AddSupplemental(context.Background(), b.ID, d("50000"), "mid-year supplemental", admin)
	require.NoError(t, err)
	assert.True(t, b.Amount.Equal(d("150000")))
	assert.True(t, b.RemainingBudget.Equal(d("150000")))

	b, err = svc.RevertBudget(context.Background(), b.ID, d("150000"), "year-end reversion", admin)
	require.NoError(t, err)
	assert.True(t, b.RemainingBudget.IsZero())

	_, err = svc.RevertBudget(context.Background(), b.ID, d("1"), "too much", admin)
	assert.ErrorIs(t, err, ErrReversionTooLarge)
}

func TestAdjustAllocation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	b, err := svc.CreateBudget(context.Background(), CreateBudgetInput{
		Title: "General Fund", FiscalYear: "2026", Amount: d("100000"),
	}, admin)
	require.NoError(t, err)

	a, err := svc.CreateAllocation(context.Background(), CreateAllocationInput{
		BudgetID: b.ID, Department: "Registrar", AllocatedAmount: d("40000"),
	}, admin)
	require.NoError(t, err)

	a, err = svc.AdjustAllocation(context.Background(), a.ID, d("20000"), "expanded scope", admin)
	require.NoError(t, err)
	assert.True(t, a.AllocatedAmount.Equal(d("60000")))
	assert.True(t, a.RemainingBalance.Equal(d("60000")))

	got, err := svc.GetBudget(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingBudget.Equal(d("40000")))

	// Growth past the budget's unallocated remainder is refused.
	_, err = svc.AdjustAllocation(context.Background(), a.ID, d("40001"), "too much", admin)
	assert.ErrorIs(t, err, ErrOverAllocated)

	// Shrinking returns funds to the budget.
	a, err = svc.AdjustAllocation(context.Background(), a.ID, d("-60000"), "descoped", admin)
	require.NoError(t, err)
	assert.True(t, a.RemainingBalance.IsZero())

	got, err = svc.GetBudget(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingBudget.Equal(d("100000")))

	txns, err := svc.ListTransactions(context.Background(), a.ID, 0)
	require.NoError(t, err)
	var modified int
	for _, txn := range txns {
		if txn.Type == models.TxnAllocationModified {
			modified++
		}
	}
	assert.Equal(t, 2, modified)
}

func TestDeleteAllocation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	b, err := svc.CreateBudget(context.Background(), CreateBudgetInput{
		Title: "General Fund", FiscalYear: "2026", Amount: d("100000"),
	}, admin)
	require.NoError(t, err)

	a, err := svc.CreateAllocation(context.Background(), CreateAllocationInput{
		BudgetID: b.ID, Department: "Registrar", AllocatedAmount: d("40000"),
	}, admin)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteAllocation(context.Background(), a.ID, admin))

	got, err := svc.GetBudget(context.Background(), b.ID)
	require.NoError(t, err)
	assert.True(t, got.RemainingBudget.Equal(d("100000")))
}

func TestDeleteAllocation_WithUsage(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)

	b, err := svc.CreateBudget(context.Background(), CreateBudgetInput{
		Title: "General Fund", FiscalYear: "2026", Amount: d("100000"),
	}, admin)
	require.NoError(t, err)

	a, err := svc.CreateAllocation(context.Background(), CreateAllocationInput{
		BudgetID: b.ID, Department: "Registrar", AllocatedAmount: d("40000"),
	}, admin)
	require.NoError(t, err)

	stored := store.allocations[a.ID]
	stored.PRAmountUsed = d("1000")

	err = svc.DeleteAllocation(context.Background(), a.ID, admin)
	assert.ErrorIs(t, err, ErrAllocationInUse)
}
