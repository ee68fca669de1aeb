// Package reporting builds the admin and end-user dashboards and the
// fiscal-year savings reports.
package reporting

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

// ErrSheetsDisabled is returned when an export is requested without a
// configured spreadsheet backend.
var ErrSheetsDisabled = errors.New("spreadsheet export is not configured")

// lowBudgetRatio flags allocations whose remaining balance dropped under a
// tenth of the allocated amount.
var lowBudgetRatio = decimal.NewFromFloat(0.10)

const recentActivityLimit = 20

// Store is the persistence surface the reporting service needs.
type Store interface {
	ListBudgets(ctx context.Context, includeArchived bool) ([]models.ApprovedBudget, error)
	GetBudgetByFiscalYear(ctx context.Context, fiscalYear string) (*models.ApprovedBudget, error)
	ListActiveAllocations(ctx context.Context) ([]models.BudgetAllocation, error)
	ListAllocationsByBudget(ctx context.Context, budgetID string, includeArchived bool) ([]models.BudgetAllocation, error)
	ListAllocationsByDepartment(ctx context.Context, department string) ([]models.BudgetAllocation, error)

	CountRequestsByStatus(ctx context.Context, kind models.DocumentKind, status models.Status) (int64, error)
	ListPREsByStatus(ctx context.Context, statuses ...models.Status) ([]models.DepartmentPRE, error)
	GetApprovedPREForAllocation(ctx context.Context, allocationID string) (*models.DepartmentPRE, error)
	ListPRELineItems(ctx context.Context, preID string) ([]models.PRELineItem, error)
	SumLineItemAllocations(ctx context.Context, lineItemID string, q models.Quarter, statuses []models.Status) (decimal.Decimal, error)
	ListRecentAuditEntries(ctx context.Context, limit int64) ([]models.AuditEntry, error)

	InsertSavings(ctx context.Context, s *models.BudgetSavings, items []models.LineItemSavings) error
	ListSavingsByFiscalYear(ctx context.Context, fiscalYear string) ([]models.BudgetSavings, error)
	ListLineItemSavings(ctx context.Context, savingsID string) ([]models.LineItemSavings, error)
	InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error
}

// SheetSink receives exported report rows.
type SheetSink interface {
	AppendRow(ctx context.Context, spreadsheetID, sheetRange string, values []interface{}) error
}

// Service assembles dashboards and savings reports.
type Service struct {
	store  Store
	sheets SheetSink
	logger *zap.Logger
}

// NewService wires a new reporting service. The sheet sink may be nil when
// export is not configured.
func NewService(store Store, sheets SheetSink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, sheets: sheets, logger: logger}
}

// DepartmentStat is one row of the admin dashboard department table.
type DepartmentStat struct {
	Department  string          `json:"department"`
	Allocated   decimal.Decimal `json:"allocated"`
	Used        decimal.Decimal `json:"used"`
	Remaining   decimal.Decimal `json:"remaining"`
	Utilization float64         `json:"utilization"`
	LowBudget   bool            `json:"lowBudget"`
}

// AdminDashboard is the campus-wide overview for budget officers.
type AdminDashboard struct {
	TotalBudget    decimal.Decimal `json:"totalBudget"`
	TotalAllocated decimal.Decimal `json:"totalAllocated"`
	TotalUsed      decimal.Decimal `json:"totalUsed"`
	TotalRemaining decimal.Decimal `json:"totalRemaining"`

	PendingPREs         int64 `json:"pendingPres"`
	PendingPRs          int64 `json:"pendingPrs"`
	PendingADs          int64 `json:"pendingAds"`
	AwaitingVerifyTotal int64 `json:"awaitingVerification"`

	Departments        []DepartmentStat    `json:"departments"`
	LowBudgetCount     int                 `json:"lowBudgetCount"`
	AverageUtilization float64             `json:"averageUtilization"`
	RecentActivity     []models.AuditEntry `json:"recentActivity"`
}

// AdminDashboardData builds the admin overview from active budgets and
// allocations.
func (s *Service) AdminDashboardData(ctx context.Context) (*AdminDashboard, error) {
	dash := &AdminDashboard{}

	budgets, err := s.store.ListBudgets(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, b := range budgets {
		dash.TotalBudget = dash.TotalBudget.Add(b.Amount)
		dash.TotalRemaining = dash.TotalRemaining.Add(b.RemainingBudget)
	}

	allocations, err := s.store.ListActiveAllocations(ctx)
	if err != nil {
		return nil, err
	}
	utilizationSum := 0.0
	for i := range allocations {
		a := &allocations[i]
		dash.TotalAllocated = dash.TotalAllocated.Add(a.AllocatedAmount)
		dash.TotalUsed = dash.TotalUsed.Add(a.TotalUsed())

		stat := DepartmentStat{
			Department:  a.Department,
			Allocated:   a.AllocatedAmount,
			Used:        a.TotalUsed(),
			Remaining:   a.RemainingBalance,
			Utilization: a.UtilizationPercent(),
			LowBudget:   isLowBudget(a),
		}
		if stat.LowBudget {
			dash.LowBudgetCount++
		}
		utilizationSum += stat.Utilization
		dash.Departments = append(dash.Departments, stat)
	}
	if len(allocations) > 0 {
		dash.AverageUtilization = utilizationSum / float64(len(allocations))
	}

	pendingPREs, err := s.store.ListPREsByStatus(ctx, models.StatusPending, models.StatusPartiallyApproved, models.StatusAwaitingVerification)
	if err != nil {
		return nil, err
	}
	dash.PendingPREs = int64(len(pendingPREs))

	for _, kind := range []models.DocumentKind{models.KindPurchaseRequest, models.KindActivityDesign} {
		pending, err := s.store.CountRequestsByStatus(ctx, kind, models.StatusPending)
		if err != nil {
			return nil, err
		}
		awaiting, err := s.store.CountRequestsByStatus(ctx, kind, models.StatusAwaitingVerification)
		if err != nil {
			return nil, err
		}
		switch kind {
		case models.KindPurchaseRequest:
			dash.PendingPRs = pending
		case models.KindActivityDesign:
			dash.PendingADs = pending
		}
		dash.AwaitingVerifyTotal += awaiting
	}

	dash.RecentActivity, err = s.store.ListRecentAuditEntries(ctx, recentActivityLimit)
	if err != nil {
		return nil, err
	}
	return dash, nil
}

// AuditTrail returns the newest audit entries, capped at the given limit.
func (s *Service) AuditTrail(ctx context.Context, limit int64) ([]models.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListRecentAuditEntries(ctx, limit)
}

// QuarterUsage is one quarter of an allocation's planned-versus-actual view.
type QuarterUsage struct {
	Quarter   models.Quarter  `json:"quarter"`
	Planned   decimal.Decimal `json:"planned"`
	Consumed  decimal.Decimal `json:"consumed"`
	Reserved  decimal.Decimal `json:"reserved"`
	Remaining decimal.Decimal `json:"remaining"`
}

// AllocationSummary is one allocation on the end-user dashboard, with the
// quarterly plan of its approved PRE when there is one.
type AllocationSummary struct {
	Allocation   models.BudgetAllocation `json:"allocation"`
	PlannedTotal decimal.Decimal         `json:"plannedTotal"`
	HasPRE       bool                    `json:"hasPre"`
	Quarters     []QuarterUsage          `json:"quarters,omitempty"`
	LowBudget    bool                    `json:"lowBudget"`
}

// EndUserDashboard is the department view.
type EndUserDashboard struct {
	Department  string              `json:"department"`
	Allocations []AllocationSummary `json:"allocations"`
}

// EndUserDashboardData builds the department dashboard: each allocation with
// its approved plan aggregated per quarter.
func (s *Service) EndUserDashboardData(ctx context.Context, department string) (*EndUserDashboard, error) {
	allocations, err := s.store.ListAllocationsByDepartment(ctx, department)
	if err != nil {
		return nil, err
	}

	dash := &EndUserDashboard{Department: department}
	for i := range allocations {
		a := allocations[i]
		summary := AllocationSummary{Allocation: a, LowBudget: isLowBudget(&a)}

		pre, err := s.store.GetApprovedPREForAllocation(ctx, a.ID)
		switch {
		case errors.Is(err, mongodb.ErrNotFound):
			// No approved plan yet.
		case err != nil:
			return nil, err
		default:
			summary.HasPRE = true
			summary.PlannedTotal = pre.TotalAmount
			summary.Quarters, err = s.quarterUsage(ctx, pre.ID)
			if err != nil {
				return nil, err
			}
		}
		dash.Allocations = append(dash.Allocations, summary)
	}
	return dash, nil
}

// quarterUsage aggregates planned, consumed and reserved amounts across all
// line items of a PRE, per quarter.
func (s *Service) quarterUsage(ctx context.Context, preID string) ([]QuarterUsage, error) {
	items, err := s.store.ListPRELineItems(ctx, preID)
	if err != nil {
		return nil, err
	}

	out := make([]QuarterUsage, 0, len(models.Quarters))
	for _, q := range models.Quarters {
		usage := QuarterUsage{Quarter: q}
		for i := range items {
			li := &items[i]
			usage.Planned = usage.Planned.Add(li.QuarterAmount(q))

			consumed, err := s.store.SumLineItemAllocations(ctx, li.ID, q, models.ConsumedStatuses)
			if err != nil {
				return nil, err
			}
			reserved, err := s.store.SumLineItemAllocations(ctx, li.ID, q, models.ReservedStatuses)
			if err != nil {
				return nil, err
			}
			usage.Consumed = usage.Consumed.Add(consumed)
			usage.Reserved = usage.Reserved.Add(reserved)
		}
		usage.Remaining = usage.Planned.Sub(usage.Consumed).Sub(usage.Reserved)
		out = append(out, usage)
	}
	return out, nil
}

// SavingsReport is the fiscal-year savings rollup.
type SavingsReport struct {
	FiscalYear       string                   `json:"fiscalYear"`
	TotalAllocated   decimal.Decimal          `json:"totalAllocated"`
	TotalUsed        decimal.Decimal          `json:"totalUsed"`
	TotalSavings     decimal.Decimal          `json:"totalSavings"`
	Departments      []models.BudgetSavings   `json:"departments"`
	SignificantItems []models.LineItemSavings `json:"significantItems,omitempty"`
}

// CreateSavingsSnapshot computes and stores the savings of every allocation
// under the fiscal year's budget, with a per-line-item breakdown from the
// approved PRE.
func (s *Service) CreateSavingsSnapshot(ctx context.Context, fiscalYear string, actor models.Actor) (*SavingsReport, error) {
	budget, err := s.store.GetBudgetByFiscalYear(ctx, fiscalYear)
	if err != nil {
		return nil, err
	}
	allocations, err := s.store.ListAllocationsByBudget(ctx, budget.ID, true)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	report := &SavingsReport{FiscalYear: fiscalYear}
	for i := range allocations {
		a := &allocations[i]
		savings := &models.BudgetSavings{
			ID:           uuid.NewString(),
			AllocationID: a.ID,
			FiscalYear:   fiscalYear,
			Department:   a.Department,
			Allocated:    a.AllocatedAmount,
			Used:         a.TotalUsed(),
			Savings:      a.AllocatedAmount.Sub(a.TotalUsed()),
			ComputedAt:   now,
			ComputedBy:   actor.ID,
		}

		items, err := s.lineItemSavings(ctx, a.ID, savings.ID)
		if err != nil {
			return nil, err
		}
		if err := s.store.InsertSavings(ctx, savings, items); err != nil {
			return nil, err
		}

		report.TotalAllocated = report.TotalAllocated.Add(savings.Allocated)
		report.TotalUsed = report.TotalUsed.Add(savings.Used)
		report.TotalSavings = report.TotalSavings.Add(savings.Savings)
		report.Departments = append(report.Departments, *savings)
		for _, item := range items {
			if item.Significant() {
				report.SignificantItems = append(report.SignificantItems, item)
			}
		}
	}

	s.audit(ctx, actor, fmt.Sprintf("computed savings snapshot for %s: PHP %s saved across %d allocations",
		fiscalYear, report.TotalSavings.StringFixed(2), len(report.Departments)))
	s.logger.Info("savings snapshot created",
		zap.String("fiscal_year", fiscalYear),
		zap.Int("allocations", len(report.Departments)),
		zap.String("total_savings", report.TotalSavings.String()))
	return report, nil
}

// lineItemSavings breaks one allocation's savings down by approved PRE line
// item, with quarters.
func (s *Service) lineItemSavings(ctx context.Context, allocationID, savingsID string) ([]models.LineItemSavings, error) {
	pre, err := s.store.GetApprovedPREForAllocation(ctx, allocationID)
	if errors.Is(err, mongodb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lineItems, err := s.store.ListPRELineItems(ctx, pre.ID)
	if err != nil {
		return nil, err
	}

	var out []models.LineItemSavings
	for i := range lineItems {
		li := &lineItems[i]
		item := models.LineItemSavings{
			ID:         uuid.NewString(),
			SavingsID:  savingsID,
			LineItemID: li.ID,
			ItemName:   li.ItemName,
			Category:   li.Category,
			Planned:    li.Total(),
		}
		for _, q := range models.Quarters {
			used, err := s.store.SumLineItemAllocations(ctx, li.ID, q, models.ConsumedStatuses)
			if err != nil {
				return nil, err
			}
			planned := li.QuarterAmount(q)
			item.Used = item.Used.Add(used)
			item.Quarters = append(item.Quarters, models.QuarterSavings{
				Quarter: q,
				Planned: planned,
				Used:    used,
				Savings: planned.Sub(used),
			})
		}
		item.Savings = item.Planned.Sub(item.Used)
		out = append(out, item)
	}
	return out, nil
}

// SavingsReportData loads a previously computed snapshot.
func (s *Service) SavingsReportData(ctx context.Context, fiscalYear string) (*SavingsReport, error) {
	rows, err := s.store.ListSavingsByFiscalYear(ctx, fiscalYear)
	if err != nil {
		return nil, err
	}

	report := &SavingsReport{FiscalYear: fiscalYear}
	for i := range rows {
		row := rows[i]
		report.TotalAllocated = report.TotalAllocated.Add(row.Allocated)
		report.TotalUsed = report.TotalUsed.Add(row.Used)
		report.TotalSavings = report.TotalSavings.Add(row.Savings)
		report.Departments = append(report.Departments, row)

		items, err := s.store.ListLineItemSavings(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			if item.Significant() {
				report.SignificantItems = append(report.SignificantItems, item)
			}
		}
	}
	return report, nil
}

// ExportSavings appends one row per department to the configured spreadsheet.
func (s *Service) ExportSavings(ctx context.Context, spreadsheetID string, report *SavingsReport) error {
	if s.sheets == nil {
		return ErrSheetsDisabled
	}
	for _, row := range report.Departments {
		values := []interface{}{
			report.FiscalYear,
			row.Department,
			row.Allocated.StringFixed(2),
			row.Used.StringFixed(2),
			row.Savings.StringFixed(2),
			row.SavingsRate().String() + "%",
		}
		if err := s.sheets.AppendRow(ctx, spreadsheetID, "Savings!A1", values); err != nil {
			return fmt.Errorf("failed to export savings row for %s: %w", row.Department, err)
		}
	}
	s.logger.Info("savings report exported",
		zap.String("fiscal_year", report.FiscalYear),
		zap.Int("rows", len(report.Departments)))
	return nil
}

func isLowBudget(a *models.BudgetAllocation) bool {
	if a.AllocatedAmount.IsZero() {
		return false
	}
	return a.RemainingBalance.LessThan(a.AllocatedAmount.Mul(lowBudgetRatio))
}

func (s *Service) audit(ctx context.Context, actor models.Actor, detail string) {
	entry := &models.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     actor.ID,
		Action:     models.ActionCreate,
		EntityKind: models.KindBudget,
		Detail:     detail,
		IPAddress:  actor.IPAddress,
		Timestamp:  time.Now(),
	}
	if err := s.store.InsertAuditEntry(ctx, entry); err != nil {
		s.logger.Error("failed to write audit entry", zap.Error(err))
	}
}

// Ensure the concrete repository satisfies the interface.
var _ Store = (*mongodb.Repository)(nil)
