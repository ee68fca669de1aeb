// Package archive handles manual archiving, fiscal-year-end sweeps and the
// cascades they trigger. Archiving a budget pulls its allocations, PREs,
// spending documents and realignments out of every active view; restoring a
// fiscal-year archive brings the whole cascade back.
package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/domain/models"
	"github.com/opencampus/budgetd/internal/repository/mongodb"
	"github.com/opencampus/budgetd/pkg/metrics"
)

var (
	ErrAlreadyArchived = errors.New("record is already archived")
	ErrNotArchived     = errors.New("record is not archived")
)

const (
	adminRecipient = "admin"
	systemActorID  = "system"
)

// Store is the persistence surface the archive service needs.
type Store interface {
	GetBudget(ctx context.Context, id string) (*models.ApprovedBudget, error)
	SetBudgetArchive(ctx context.Context, id string, info models.ArchiveInfo) error
	ListBudgetsWithFiscalYearBefore(ctx context.Context, year int) ([]models.ApprovedBudget, error)
	ListArchivedBudgets(ctx context.Context) ([]models.ApprovedBudget, error)

	GetAllocation(ctx context.Context, id string) (*models.BudgetAllocation, error)
	SetAllocationArchive(ctx context.Context, id string, info models.ArchiveInfo) error
	ArchiveAllocationsByBudget(ctx context.Context, budgetID string, info models.ArchiveInfo) ([]string, error)
	RestoreAllocationsByBudget(ctx context.Context, budgetID string, info models.ArchiveInfo) ([]string, error)

	ArchivePREsByAllocations(ctx context.Context, allocationIDs []string, info models.ArchiveInfo) ([]string, error)
	RestorePREsByAllocations(ctx context.Context, allocationIDs []string, info models.ArchiveInfo) ([]string, error)
	ArchiveRequestsByAllocations(ctx context.Context, allocationIDs []string, info models.ArchiveInfo) error
	RestoreRequestsByAllocations(ctx context.Context, allocationIDs []string, info models.ArchiveInfo) error
	ArchiveRealignmentsByPREs(ctx context.Context, preIDs []string, info models.ArchiveInfo) error
	RestoreRealignmentsByPREs(ctx context.Context, preIDs []string, info models.ArchiveInfo) error

	InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// Service implements archive cascades and the year-end sweep.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires a new archive service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// CascadeResult counts the records touched by one cascade.
type CascadeResult struct {
	Allocations  int `json:"allocations"`
	PREs         int `json:"pres"`
	BudgetsSwept int `json:"budgetsSwept,omitempty"`
}

// ArchiveBudget manually archives a budget and everything under it.
func (s *Service) ArchiveBudget(ctx context.Context, budgetID, reason string, actor models.Actor) (*CascadeResult, error) {
	budget, err := s.store.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if budget.IsArchived {
		return nil, ErrAlreadyArchived
	}
	info := models.NewArchiveInfo(models.ArchiveTypeManual, actor.ID, reason, time.Now())
	res, err := s.archiveBudgetCascade(ctx, budget, info)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, actor, models.ActionArchive, models.KindBudget, budgetID,
		fmt.Sprintf("archived budget %s with %d allocations: %s", budget.FiscalYear, res.Allocations, reason))
	return res, nil
}

func (s *Service) archiveBudgetCascade(ctx context.Context, budget *models.ApprovedBudget, info models.ArchiveInfo) (*CascadeResult, error) {
	if err := s.store.SetBudgetArchive(ctx, budget.ID, info); err != nil {
		return nil, err
	}
	allocationIDs, err := s.store.ArchiveAllocationsByBudget(ctx, budget.ID, info)
	if err != nil {
		return nil, err
	}
	preIDs, err := s.archiveAllocationChildren(ctx, allocationIDs, info)
	if err != nil {
		return nil, err
	}

	metrics.ArchivedBudgets.Inc()
	s.logger.Info("budget archived",
		zap.String("budget_id", budget.ID),
		zap.String("fiscal_year", budget.FiscalYear),
		zap.String("archive_type", string(info.ArchiveType)),
		zap.Int("allocations", len(allocationIDs)),
		zap.Int("pres", len(preIDs)))
	return &CascadeResult{Allocations: len(allocationIDs), PREs: len(preIDs)}, nil
}

func (s *Service) archiveAllocationChildren(ctx context.Context, allocationIDs []string, info models.ArchiveInfo) ([]string, error) {
	preIDs, err := s.store.ArchivePREsByAllocations(ctx, allocationIDs, info)
	if err != nil {
		return nil, err
	}
	if err := s.store.ArchiveRequestsByAllocations(ctx, allocationIDs, info); err != nil {
		return nil, err
	}
	if err := s.store.ArchiveRealignmentsByPREs(ctx, preIDs, info); err != nil {
		return nil, err
	}
	return preIDs, nil
}

// RestoreBudget brings an archived budget back. Fiscal-year cascades restore
// their children as well; records archived manually stay archived.
func (s *Service) RestoreBudget(ctx context.Context, budgetID string, actor models.Actor) (*CascadeResult, error) {
	budget, err := s.store.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if !budget.IsArchived {
		return nil, ErrNotArchived
	}

	restore := models.ArchiveInfo{}
	if err := s.store.SetBudgetArchive(ctx, budgetID, restore); err != nil {
		return nil, err
	}
	allocationIDs, err := s.store.RestoreAllocationsByBudget(ctx, budgetID, restore)
	if err != nil {
		return nil, err
	}
	preIDs, err := s.store.RestorePREsByAllocations(ctx, allocationIDs, restore)
	if err != nil {
		return nil, err
	}
	if err := s.store.RestoreRequestsByAllocations(ctx, allocationIDs, restore); err != nil {
		return nil, err
	}
	if err := s.store.RestoreRealignmentsByPREs(ctx, preIDs, restore); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, models.ActionUnarchive, models.KindBudget, budgetID,
		fmt.Sprintf("restored budget %s with %d allocations", budget.FiscalYear, len(allocationIDs)))
	s.logger.Info("budget restored",
		zap.String("budget_id", budgetID),
		zap.Int("allocations", len(allocationIDs)))
	return &CascadeResult{Allocations: len(allocationIDs), PREs: len(preIDs)}, nil
}

// ListArchivedBudgets returns the archive browser's budget list, newest
// archival first.
func (s *Service) ListArchivedBudgets(ctx context.Context) ([]models.ApprovedBudget, error) {
	return s.store.ListArchivedBudgets(ctx)
}

// ArchiveAllocation manually archives one department allocation and its
// documents, leaving the parent budget active.
func (s *Service) ArchiveAllocation(ctx context.Context, allocationID, reason string, actor models.Actor) (*CascadeResult, error) {
	alloc, err := s.store.GetAllocation(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if alloc.IsArchived {
		return nil, ErrAlreadyArchived
	}

	info := models.NewArchiveInfo(models.ArchiveTypeManual, actor.ID, reason, time.Now())
	if err := s.store.SetAllocationArchive(ctx, allocationID, info); err != nil {
		return nil, err
	}
	preIDs, err := s.archiveAllocationChildren(ctx, []string{allocationID}, info)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, actor, models.ActionArchive, models.KindAllocation, allocationID,
		fmt.Sprintf("archived %s allocation: %s", alloc.Department, reason))
	s.logger.Info("allocation archived",
		zap.String("allocation_id", allocationID),
		zap.String("department", alloc.Department),
		zap.Int("pres", len(preIDs)))
	return &CascadeResult{Allocations: 1, PREs: len(preIDs)}, nil
}

// RestoreAllocation brings a manually archived allocation back, with its
// fiscal-year archived children.
func (s *Service) RestoreAllocation(ctx context.Context, allocationID string, actor models.Actor) error {
	alloc, err := s.store.GetAllocation(ctx, allocationID)
	if err != nil {
		return err
	}
	if !alloc.IsArchived {
		return ErrNotArchived
	}

	restore := models.ArchiveInfo{}
	if err := s.store.SetAllocationArchive(ctx, allocationID, restore); err != nil {
		return err
	}
	preIDs, err := s.store.RestorePREsByAllocations(ctx, []string{allocationID}, restore)
	if err != nil {
		return err
	}
	if err := s.store.RestoreRequestsByAllocations(ctx, []string{allocationID}, restore); err != nil {
		return err
	}
	if err := s.store.RestoreRealignmentsByPREs(ctx, preIDs, restore); err != nil {
		return err
	}

	s.audit(ctx, actor, models.ActionUnarchive, models.KindAllocation, allocationID,
		fmt.Sprintf("restored %s allocation", alloc.Department))
	return nil
}

// SweepPastFiscalYears archives every active budget whose fiscal year ended
// before the given year. The scheduler runs this nightly; it is idempotent
// because swept budgets drop out of the active listing.
func (s *Service) SweepPastFiscalYears(ctx context.Context, currentYear int) (*CascadeResult, error) {
	metrics.ArchiveSweeps.Inc()

	budgets, err := s.store.ListBudgetsWithFiscalYearBefore(ctx, currentYear)
	if err != nil {
		return nil, err
	}

	total := &CascadeResult{}
	info := models.NewArchiveInfo(models.ArchiveTypeFiscalYear, systemActorID, "fiscal year ended", time.Now())
	for i := range budgets {
		b := &budgets[i]
		res, err := s.archiveBudgetCascade(ctx, b, info)
		if err != nil {
			return total, fmt.Errorf("failed to sweep budget %s: %w", b.FiscalYear, err)
		}
		total.BudgetsSwept++
		total.Allocations += res.Allocations
		total.PREs += res.PREs

		s.audit(ctx, models.Actor{ID: systemActorID}, models.ActionArchive, models.KindBudget, b.ID,
			fmt.Sprintf("fiscal year %s ended, budget archived automatically", b.FiscalYear))
		s.notify(ctx, models.NotifArchive, "Fiscal year archived",
			fmt.Sprintf("Budget for %s was archived at fiscal year end with %d allocations.", b.FiscalYear, res.Allocations),
			b.ID)
	}

	if total.BudgetsSwept > 0 {
		s.logger.Info("fiscal year sweep finished",
			zap.Int("budgets", total.BudgetsSwept),
			zap.Int("allocations", total.Allocations))
	}
	return total, nil
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
		s.logger.Error("failed to write audit entry", zap.String("record_id", recordID), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, typ models.NotificationType, title, message, entityID string) {
	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: adminRecipient,
		Type:        typ,
		Title:       title,
		Message:     message,
		EntityKind:  models.KindBudget,
		EntityID:    entityID,
		CreatedAt:   time.Now(),
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		s.logger.Error("failed to write notification", zap.Error(err))
	}
}

// Ensure the concrete repository satisfies the interface.
var _ Store = (*mongodb.Repository)(nil)
