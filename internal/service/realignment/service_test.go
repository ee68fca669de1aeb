package realignment

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/budgetd/internal/domain/models"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

type fakeStore struct {
	mu sync.Mutex

	realignments map[string]*models.Realignment
	lineItems    map[string]*models.PRELineItem
	pres         map[string]*models.DepartmentPRE

	// keyed lineItemID + "/" + quarter
	consumed map[string]decimal.Decimal
	reserved map[string]decimal.Decimal

	signedCopies  map[string]bool
	transactions  []*models.BudgetTransaction
	auditEntries  []*models.AuditEntry
	notifications []*models.Notification
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		realignments: map[string]*models.Realignment{},
		lineItems:    map[string]*models.PRELineItem{},
		pres:         map[string]*models.DepartmentPRE{},
		consumed:     map[string]decimal.Decimal{},
		reserved:     map[string]decimal.Decimal{},
		signedCopies: map[string]bool{},
	}
}

func sumKey(lineItemID string, q models.Quarter) string {
	return lineItemID + "/" + string(q)
}

func (f *fakeStore) GetRealignment(_ context.Context, id string) (*models.Realignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	re, ok := f.realignments[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *re
	return &cp, nil
}

func (f *fakeStore) InsertRealignment(_ context.Context, re *models.Realignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *re
	f.realignments[re.ID] = &cp
	return nil
}

func (f *fakeStore) ListRealignments(_ context.Context, requestedBy string, statuses []models.Status, includeArchived bool) ([]models.Realignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Realignment
	for _, re := range f.realignments {
		if requestedBy != "" && re.RequestedBy != requestedBy {
			continue
		}
		if re.IsArchived && !includeArchived {
			continue
		}
		if len(statuses) > 0 {
			found := false
			for _, s := range statuses {
				if re.Status == s {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, *re)
	}
	return out, nil
}

func (f *fakeStore) UpdateRealignment(_ context.Context, re *models.Realignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *re
	f.realignments[re.ID] = &cp
	return nil
}

func (f *fakeStore) PendingRealignmentQuarterTotal(_ context.Context, sourceLineItemID string, q models.Quarter, excludeID string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := decimal.Zero
	for _, re := range f.realignments {
		if re.SourceLineItemID != sourceLineItemID || re.ID == excludeID || re.IsArchived {
			continue
		}
		reserved := false
		for _, s := range models.ReservedStatuses {
			if re.Status == s {
				reserved = true
			}
		}
		if !reserved {
			continue
		}
		switch q {
		case models.Q1:
			total = total.Add(re.Q1Amount)
		case models.Q2:
			total = total.Add(re.Q2Amount)
		case models.Q3:
			total = total.Add(re.Q3Amount)
		case models.Q4:
			total = total.Add(re.Q4Amount)
		}
	}
	return total, nil
}

func (f *fakeStore) GetPRELineItem(_ context.Context, id string) (*models.PRELineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	li, ok := f.lineItems[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *li
	return &cp, nil
}

func (f *fakeStore) AdjustLineItemQuarter(_ context.Context, id string, q models.Quarter, delta decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	li, ok := f.lineItems[id]
	if !ok {
		return assert.AnError
	}
	li.SetQuarterAmount(q, li.QuarterAmount(q).Add(delta))
	return nil
}

func (f *fakeStore) SumLineItemAllocations(_ context.Context, lineItemID string, q models.Quarter, statuses []models.Status) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range statuses {
		if s == models.StatusApproved {
			return f.consumed[sumKey(lineItemID, q)], nil
		}
	}
	return f.reserved[sumKey(lineItemID, q)], nil
}

func (f *fakeStore) GetPRE(_ context.Context, id string) (*models.DepartmentPRE, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pre, ok := f.pres[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *pre
	return &cp, nil
}

func (f *fakeStore) HasSignedCopy(_ context.Context, kind models.DocumentKind, entityID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.signedCopies[string(kind)+"/"+entityID], nil
}

func (f *fakeStore) InsertTransaction(_ context.Context, t *models.BudgetTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.transactions = append(f.transactions, t)
	return nil
}

func (f *fakeStore) InsertAuditEntry(_ context.Context, e *models.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.auditEntries = append(f.auditEntries, e)
	return nil
}

func (f *fakeStore) InsertNotification(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.notifications = append(f.notifications, n)
	return nil
}

var (
	endUser = models.Actor{ID: "user-1", Name: "Dana Cruz", Department: "Library", Role: models.RoleEndUser}
	admin   = models.Actor{ID: "admin-1", Name: "Budget Officer", Role: models.RoleAdmin}
)

// seedLineItems puts two line items of one approved PRE into the store.
// The office supplies item carries 30000/20000 in Q1/Q2; the training item
// is empty.
func seedLineItems(store *fakeStore) (source, target *models.PRELineItem) {
	store.pres["pre-1"] = &models.DepartmentPRE{
		ID:         "pre-1",
		Department: "Library",
		Status:     models.StatusApproved,
	}
	source = &models.PRELineItem{
		ID:       "li-1",
		PREID:    "pre-1",
		ItemName: "Office Supplies",
		Q1Amount: d("30000"),
		Q2Amount: d("20000"),
	}
	target = &models.PRELineItem{
		ID:       "li-2",
		PREID:    "pre-1",
		ItemName: "Training Expenses",
	}
	store.lineItems[source.ID] = source
	store.lineItems[target.ID] = target
	return source, target
}

func TestCreateRealignment(t *testing.T) {
	store := newFakeStore()
	seedLineItems(store)
	svc := NewService(store, nil)

	re, err := svc.Create(context.Background(), CreateInput{
		SourceLineItemID: "li-1",
		TargetLineItemID: "li-2",
		Reason:           "supplies overbudgeted, training underfunded",
		Q1:               d("10000"),
	}, endUser)
	require.NoError(t, err)

	assert.Equal(t, models.StatusDraft, re.Status)
	assert.Equal(t, "Library", re.Department)
	assert.Equal(t, "Office Supplies", re.SourceItemDisplay)
	assert.Equal(t, "Training Expenses", re.TargetItemDisplay)
	assert.True(t, re.TotalAmount().Equal(d("10000")))
	assert.Len(t, store.auditEntries, 1)
}

func TestCreateRealignment_Validation(t *testing.T) {
	store := newFakeStore()
	seedLineItems(store)
	svc := NewService(store, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{
			name: "missing reason",
			in: CreateInput{
				SourceLineItemID: "li-1",
				TargetLineItemID: "li-2",
				Q1:               d("1000"),
			},
			wantErr: ErrReasonRequired,
		},
		{
			name: "same line item",
			in: CreateInput{
				SourceLineItemID: "li-1",
				TargetLineItemID: "li-1",
				Reason:           "noop",
				Q1:               d("1000"),
			},
			wantErr: ErrSameLineItem,
		},
		{
			name: "no quarter selected",
			in: CreateInput{
				SourceLineItemID: "li-1",
				TargetLineItemID: "li-2",
				Reason:           "nothing to move",
			},
			wantErr: ErrNoAmount,
		},
		{
			name: "quarter exceeded",
			in: CreateInput{
				SourceLineItemID: "li-1",
				TargetLineItemID: "li-2",
				Reason:           "too much",
				Q1:               d("30001"),
			},
			wantErr: ErrQuarterShort,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in, endUser)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateRealignment_ConsumedAndReservedCount(t *testing.T) {
	store := newFakeStore()
	seedLineItems(store)
	// 12000 already spent and 8000 reserved against Q1: only 10000 movable.
	store.consumed[sumKey("li-1", models.Q1)] = d("12000")
	store.reserved[sumKey("li-1", models.Q1)] = d("8000")
	svc := NewService(store, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{
		SourceLineItemID: "li-1",
		TargetLineItemID: "li-2",
		Reason:           "reduce supplies",
		Q1:               d("10001"),
	}, endUser)
	assert.ErrorIs(t, err, ErrQuarterShort)

	_, err = svc.Create(ctx, CreateInput{
		SourceLineItemID: "li-1",
		TargetLineItemID: "li-2",
		Reason:           "reduce supplies",
		Q1:               d("10000"),
	}, endUser)
	assert.NoError(t, err)
}

func TestRealignmentLifecycle(t *testing.T) {
	store := newFakeStore()
	source, target := seedLineItems(store)
	svc := NewService(store, nil)
	ctx := context.Background()

	re, err := svc.Create(ctx, CreateInput{
		SourceLineItemID: source.ID,
		TargetLineItemID: target.ID,
		Reason:           "shift supplies budget to training",
		Q1:               d("10000"),
		Q2:               d("5000"),
	}, endUser)
	require.NoError(t, err)

	re, err = svc.Submit(ctx, re.ID, endUser)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, re.Status)
	require.NotNil(t, re.SubmittedAt)

	re, err = svc.PartialApprove(ctx, re.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPartiallyApproved, re.Status)
	assert.Equal(t, admin.ID, re.PartialApprovedBy)

	store.signedCopies["REALIGNMENT/"+re.ID] = true
	re, err = svc.MarkSignedUploaded(ctx, re.ID, endUser)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAwaitingVerification, re.Status)

	re, err = svc.FinalApprove(ctx, re.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, re.Status)
	assert.Equal(t, admin.ID, re.AdminApprovedBy)
	require.NotNil(t, re.FinalApprovedAt)

	// The amounts moved between the line items.
	assert.True(t, store.lineItems[source.ID].Q1Amount.Equal(d("20000")))
	assert.True(t, store.lineItems[source.ID].Q2Amount.Equal(d("15000")))
	assert.True(t, store.lineItems[target.ID].Q1Amount.Equal(d("10000")))
	assert.True(t, store.lineItems[target.ID].Q2Amount.Equal(d("5000")))

	require.Len(t, store.transactions, 1)
	assert.Equal(t, models.TxnRealignmentApproved, store.transactions[0].Type)
	assert.Equal(t, models.KindRealignment, store.transactions[0].RelatedKind)

	// A second approval must not double the transfer.
	_, err = svc.FinalApprove(ctx, re.ID, admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.True(t, store.lineItems[source.ID].Q1Amount.Equal(d("20000")))
}

func TestFinalApproveRealignment_ConcurrentExecutesOnce(t *testing.T) {
	store := newFakeStore()
	source, target := seedLineItems(store)
	svc := NewService(store, nil)
	ctx := context.Background()

	re, err := svc.Create(ctx, CreateInput{
		SourceLineItemID: source.ID,
		TargetLineItemID: target.ID,
		Reason:           "shift supplies budget to training",
		Q1:               d("10000"),
	}, endUser)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, re.ID, endUser)
	require.NoError(t, err)
	_, err = svc.PartialApprove(ctx, re.ID, admin)
	require.NoError(t, err)
	store.signedCopies["REALIGNMENT/"+re.ID] = true
	_, err = svc.MarkSignedUploaded(ctx, re.ID, endUser)
	require.NoError(t, err)

	// Two admins race to verify the same realignment. Only one transfer
	// may execute.
	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.FinalApprove(ctx, re.ID, admin)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var approved, refused int
	for err := range errs {
		if err == nil {
			approved++
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition)
			refused++
		}
	}
	assert.Equal(t, 1, approved)
	assert.Equal(t, 1, refused)

	// The amount moved exactly once and the source stayed non-negative.
	assert.True(t, store.lineItems[source.ID].Q1Amount.Equal(d("20000")))
	assert.True(t, store.lineItems[target.ID].Q1Amount.Equal(d("10000")))
	require.Len(t, store.transactions, 1)
}

func TestSubmitRealignment_OwnershipEnforced(t *testing.T) {
	store := newFakeStore()
	seedLineItems(store)
	svc := NewService(store, nil)
	ctx := context.Background()

	re, err := svc.Create(ctx, CreateInput{
		SourceLineItemID: "li-1",
		TargetLineItemID: "li-2",
		Reason:           "shift budget",
		Q1:               d("1000"),
	}, endUser)
	require.NoError(t, err)

	stranger := models.Actor{ID: "user-2", Department: "Registrar", Role: models.RoleEndUser}
	_, err = svc.Submit(ctx, re.ID, stranger)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestPendingRealignmentsReserveQuarter(t *testing.T) {
	store := newFakeStore()
	seedLineItems(store)
	svc := NewService(store, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateInput{
		SourceLineItemID: "li-1",
		TargetLineItemID: "li-2",
		Reason:           "first transfer",
		Q1:               d("25000"),
	}, endUser)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, first.ID, endUser)
	require.NoError(t, err)

	// Only 5000 of Q1 remains movable while the first request is in flight.
	_, err = svc.Create(ctx, CreateInput{
		SourceLineItemID: "li-1",
		TargetLineItemID: "li-2",
		Reason:           "second transfer",
		Q1:               d("5001"),
	}, endUser)
	assert.ErrorIs(t, err, ErrQuarterShort)

	_, err = svc.Create(ctx, CreateInput{
		SourceLineItemID: "li-1",
		TargetLineItemID: "li-2",
		Reason:           "second transfer",
		Q1:               d("5000"),
	}, endUser)
	assert.NoError(t, err)
}

func TestRejectRealignment_FreesReservation(t *testing.T) {
	store := newFakeStore()
	seedLineItems(store)
	svc := NewService(store, nil)
	ctx := context.Background()

	re, err := svc.Create(ctx, CreateInput{
		SourceLineItemID: "li-1",
		TargetLineItemID: "li-2",
		Reason:           "large transfer",
		Q1:               d("30000"),
	}, endUser)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, re.ID, endUser)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, re.ID, "", admin)
	assert.ErrorIs(t, err, ErrRejectionReason)

	rejected, err := svc.Reject(ctx, re.ID, "quarter needed for procurement", admin)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "quarter needed for procurement", rejected.RejectionReason)

	// The rejected request no longer reserves Q1.
	_, err = svc.Create(ctx, CreateInput{
		SourceLineItemID: "li-1",
		TargetLineItemID: "li-2",
		Reason:           "retry transfer",
		Q1:               d("30000"),
	}, endUser)
	assert.NoError(t, err)
}

func TestMarkSignedUploaded_RequiresCopy(t *testing.T) {
	store := newFakeStore()
	seedLineItems(store)
	svc := NewService(store, nil)
	ctx := context.Background()

	re, err := svc.Create(ctx, CreateInput{
		SourceLineItemID: "li-1",
		TargetLineItemID: "li-2",
		Reason:           "shift budget",
		Q1:               d("1000"),
	}, endUser)
	require.NoError(t, err)
	_, err = svc.Submit(ctx, re.ID, endUser)
	require.NoError(t, err)
	_, err = svc.PartialApprove(ctx, re.ID, admin)
	require.NoError(t, err)

	_, err = svc.MarkSignedUploaded(ctx, re.ID, endUser)
	assert.ErrorIs(t, err, ErrNoSignedCopy)
}

func TestQuarterAvailability(t *testing.T) {
	store := newFakeStore()
	seedLineItems(store)
	store.consumed[sumKey("li-1", models.Q1)] = d("5000")
	store.reserved[sumKey("li-1", models.Q2)] = d("4000")
	svc := NewService(store, nil)

	avail, err := svc.Availability(context.Background(), "li-1", "")
	require.NoError(t, err)
	require.Len(t, avail, 4)

	assert.Equal(t, models.Q1, avail[0].Quarter)
	assert.True(t, avail[0].Remaining.Equal(d("25000")))
	assert.True(t, avail[1].Remaining.Equal(d("16000")))
	assert.True(t, avail[2].Remaining.IsZero())
}
