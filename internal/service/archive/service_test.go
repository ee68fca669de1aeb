package archive

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/budgetd/internal/domain/models"
)

type fakeStore struct {
	budgets      map[string]*models.ApprovedBudget
	allocations  map[string]*models.BudgetAllocation
	pres         map[string]*models.DepartmentPRE
	requests     map[string]*models.PurchaseRequest
	realignments map[string]*models.Realignment

	auditEntries  []*models.AuditEntry
	notifications []*models.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		budgets:      map[string]*models.ApprovedBudget{},
		allocations:  map[string]*models.BudgetAllocation{},
		pres:         map[string]*models.DepartmentPRE{},
		requests:     map[string]*models.PurchaseRequest{},
		realignments: map[string]*models.Realignment{},
	}
}

func (f *fakeStore) GetBudget(_ context.Context, id string) (*models.ApprovedBudget, error) {
	b, ok := f.budgets[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) SetBudgetArchive(_ context.Context, id string, info models.ArchiveInfo) error {
	b, ok := f.budgets[id]
	if !ok {
		return assert.AnError
	}
	b.ArchiveInfo = info
	return nil
}

func (f *fakeStore) ListArchivedBudgets(_ context.Context) ([]models.ApprovedBudget, error) {
	var out []models.ApprovedBudget
	for _, b := range f.budgets {
		if b.IsArchived {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) ListBudgetsWithFiscalYearBefore(_ context.Context, year int) ([]models.ApprovedBudget, error) {
	var out []models.ApprovedBudget
	for _, b := range f.budgets {
		if b.IsArchived {
			continue
		}
		var start int
		for _, c := range b.FiscalYear[:4] {
			start = start*10 + int(c-'0')
		}
		if start < year {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeStore) GetAllocation(_ context.Context, id string) (*models.BudgetAllocation, error) {
	a, ok := f.allocations[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) SetAllocationArchive(_ context.Context, id string, info models.ArchiveInfo) error {
	a, ok := f.allocations[id]
	if !ok {
		return assert.AnError
	}
	a.ArchiveInfo = info
	return nil
}

func (f *fakeStore) ArchiveAllocationsByBudget(_ context.Context, budgetID string, info models.ArchiveInfo) ([]string, error) {
	var ids []string
	for _, a := range f.allocations {
		if a.ApprovedBudgetID == budgetID && !a.IsArchived {
			a.ArchiveInfo = info
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (f *fakeStore) RestoreAllocationsByBudget(_ context.Context, budgetID string, info models.ArchiveInfo) ([]string, error) {
	var ids []string
	for _, a := range f.allocations {
		if a.ApprovedBudgetID == budgetID && a.IsArchived && a.ArchiveType == models.ArchiveTypeFiscalYear {
			a.ArchiveInfo = info
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (f *fakeStore) ArchivePREsByAllocations(_ context.Context, allocationIDs []string, info models.ArchiveInfo) ([]string, error) {
	var ids []string
	for _, p := range f.pres {
		if contains(allocationIDs, p.BudgetAllocationID) && !p.IsArchived {
			p.ArchiveInfo = info
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (f *fakeStore) RestorePREsByAllocations(_ context.Context, allocationIDs []string, info models.ArchiveInfo) ([]string, error) {
	var ids []string
	for _, p := range f.pres {
		if contains(allocationIDs, p.BudgetAllocationID) && p.IsArchived && p.ArchiveType == models.ArchiveTypeFiscalYear {
			p.ArchiveInfo = info
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (f *fakeStore) ArchiveRequestsByAllocations(_ context.Context, allocationIDs []string, info models.ArchiveInfo) error {
	for _, pr := range f.requests {
		if contains(allocationIDs, pr.BudgetAllocationID) && !pr.IsArchived {
			pr.ArchiveInfo = info
		}
	}
	return nil
}

func (f *fakeStore) RestoreRequestsByAllocations(_ context.Context, allocationIDs []string, info models.ArchiveInfo) error {
	for _, pr := range f.requests {
		if contains(allocationIDs, pr.BudgetAllocationID) && pr.IsArchived && pr.ArchiveType == models.ArchiveTypeFiscalYear {
			pr.ArchiveInfo = info
		}
	}
	return nil
}

func (f *fakeStore) ArchiveRealignmentsByPREs(_ context.Context, preIDs []string, info models.ArchiveInfo) error {
	for _, re := range f.realignments {
		if contains(preIDs, re.SourcePREID) && !re.IsArchived {
			re.ArchiveInfo = info
		}
	}
	return nil
}

func (f *fakeStore) RestoreRealignmentsByPREs(_ context.Context, preIDs []string, info models.ArchiveInfo) error {
	for _, re := range f.realignments {
		if contains(preIDs, re.SourcePREID) && re.IsArchived && re.ArchiveType == models.ArchiveTypeFiscalYear {
			re.ArchiveInfo = info
		}
	}
	return nil
}

func (f *fakeStore) InsertAuditEntry(_ context.Context, e *models.AuditEntry) error {
	f.auditEntries = append(f.auditEntries, e)
	return nil
}

func (f *fakeStore) InsertNotification(_ context.Context, n *models.Notification) error {
	f.notifications = append(f.notifications, n)
	return nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

var admin = models.Actor{ID: "admin-1", Role: models.RoleAdmin}

// seedFiscalYear builds one budget with an allocation, a PRE, a purchase
// request and a realignment hanging off it.
func seedFiscalYear(store *fakeStore, fiscalYear, suffix string) {
	store.budgets["budget-"+suffix] = &models.ApprovedBudget{
		ID:         "budget-" + suffix,
		FiscalYear: fiscalYear,
		Amount:     decimal.NewFromInt(1000000),
	}
	store.allocations["alloc-"+suffix] = &models.BudgetAllocation{
		ID:               "alloc-" + suffix,
		ApprovedBudgetID: "budget-" + suffix,
		Department:       "Library",
	}
	store.pres["pre-"+suffix] = &models.DepartmentPRE{
		ID:                 "pre-" + suffix,
		BudgetAllocationID: "alloc-" + suffix,
		Status:             models.StatusApproved,
	}
	store.requests["pr-"+suffix] = &models.PurchaseRequest{
		ID:                 "pr-" + suffix,
		BudgetAllocationID: "alloc-" + suffix,
		Status:             models.StatusApproved,
	}
	store.realignments["re-"+suffix] = &models.Realignment{
		ID:          "re-" + suffix,
		SourcePREID: "pre-" + suffix,
		Status:      models.StatusPending,
	}
}

func TestArchiveBudget_Cascades(t *testing.T) {
	store := newFakeStore()
	seedFiscalYear(store, "2024-2025", "a")
	svc := NewService(store, nil)

	res, err := svc.ArchiveBudget(context.Background(), "budget-a", "superseded by revised budget", admin)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allocations)
	assert.Equal(t, 1, res.PREs)

	assert.True(t, store.budgets["budget-a"].IsArchived)
	assert.Equal(t, models.ArchiveTypeManual, store.budgets["budget-a"].ArchiveType)
	assert.True(t, store.allocations["alloc-a"].IsArchived)
	assert.True(t, store.pres["pre-a"].IsArchived)
	assert.True(t, store.requests["pr-a"].IsArchived)
	assert.True(t, store.realignments["re-a"].IsArchived)
	assert.Len(t, store.auditEntries, 1)

	_, err = svc.ArchiveBudget(context.Background(), "budget-a", "again", admin)
	assert.ErrorIs(t, err, ErrAlreadyArchived)
}

func TestSweepPastFiscalYears(t *testing.T) {
	store := newFakeStore()
	seedFiscalYear(store, "2024-2025", "old")
	seedFiscalYear(store, "2026-2027", "current")
	svc := NewService(store, nil)

	res, err := svc.SweepPastFiscalYears(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, res.BudgetsSwept)
	assert.Equal(t, 1, res.Allocations)

	assert.True(t, store.budgets["budget-old"].IsArchived)
	assert.Equal(t, models.ArchiveTypeFiscalYear, store.budgets["budget-old"].ArchiveType)
	assert.Equal(t, "fiscal year ended", store.budgets["budget-old"].ArchiveReason)
	assert.True(t, store.pres["pre-old"].IsArchived)
	assert.False(t, store.budgets["budget-current"].IsArchived)
	assert.False(t, store.allocations["alloc-current"].IsArchived)

	require.Len(t, store.notifications, 1)
	assert.Equal(t, models.NotifArchive, store.notifications[0].Type)

	// Second sweep finds nothing new.
	res, err = svc.SweepPastFiscalYears(context.Background(), 2026)
	require.NoError(t, err)
	assert.Zero(t, res.BudgetsSwept)
}

func TestRestoreBudget_FiscalYearCascadeOnly(t *testing.T) {
	store := newFakeStore()
	seedFiscalYear(store, "2024-2025", "a")
	svc := NewService(store, nil)
	ctx := context.Background()

	// The allocation was archived manually before the year-end sweep.
	manual := models.NewArchiveInfo(models.ArchiveTypeManual, admin.ID, "department dissolved", time.Now())
	store.allocations["alloc-manual"] = &models.BudgetAllocation{
		ID:               "alloc-manual",
		ApprovedBudgetID: "budget-a",
		Department:       "Annex Office",
		ArchiveInfo:      manual,
	}

	_, err := svc.SweepPastFiscalYears(ctx, 2026)
	require.NoError(t, err)
	require.True(t, store.budgets["budget-a"].IsArchived)

	res, err := svc.RestoreBudget(ctx, "budget-a", admin)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allocations)

	assert.False(t, store.budgets["budget-a"].IsArchived)
	assert.False(t, store.allocations["alloc-a"].IsArchived)
	assert.False(t, store.pres["pre-a"].IsArchived)
	assert.False(t, store.requests["pr-a"].IsArchived)
	assert.False(t, store.realignments["re-a"].IsArchived)
	// The manually archived allocation stays archived.
	assert.True(t, store.allocations["alloc-manual"].IsArchived)

	_, err = svc.RestoreBudget(ctx, "budget-a", admin)
	assert.ErrorIs(t, err, ErrNotArchived)
}

func TestArchiveAllocation_LeavesBudgetActive(t *testing.T) {
	store := newFakeStore()
	seedFiscalYear(store, "2026-2027", "a")
	svc := NewService(store, nil)
	ctx := context.Background()

	res, err := svc.ArchiveAllocation(ctx, "alloc-a", "department merged", admin)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Allocations)
	assert.Equal(t, 1, res.PREs)

	assert.False(t, store.budgets["budget-a"].IsArchived)
	assert.True(t, store.allocations["alloc-a"].IsArchived)
	assert.True(t, store.pres["pre-a"].IsArchived)
	assert.True(t, store.requests["pr-a"].IsArchived)

	_, err = svc.ArchiveAllocation(ctx, "alloc-a", "again", admin)
	assert.ErrorIs(t, err, ErrAlreadyArchived)
}
