// Package realignment moves planned amounts between PRE line items through
// the same two-stage approval pipeline as spending documents. The transfer
// itself happens only at final approval.
package realignment

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
	"github.com/opencampus/budgetd/pkg/metrics"
)

// Realignment errors surfaced to handlers.
var (
	ErrInvalidTransition = errors.New("realignment status does not allow this action")
	ErrArchived          = errors.New("archived realignments cannot move through the workflow")
	ErrNoAmount          = errors.New("at least one quarter must carry a positive amount")
	ErrSameLineItem      = errors.New("source and target line items must differ")
	ErrQuarterShort      = errors.New("quarter has insufficient movable balance")
	ErrReasonRequired    = errors.New("a reason must be provided")
	ErrRejectionReason   = errors.New("a rejection reason must be provided")
	ErrNoSignedCopy      = errors.New("a signed copy must be uploaded first")
	ErrNotOwner          = errors.New("realignment belongs to another user")
)

const adminRecipient = "admin"

// Store is the persistence surface the realignment service needs.
type Store interface {
	GetRealignment(ctx context.Context, id string) (*models.Realignment, error)
	InsertRealignment(ctx context.Context, re *models.Realignment) error
	ListRealignments(ctx context.Context, requestedBy string, statuses []models.Status, includeArchived bool) ([]models.Realignment, error)
	UpdateRealignment(ctx context.Context, re *models.Realignment) error
	PendingRealignmentQuarterTotal(ctx context.Context, sourceLineItemID string, q models.Quarter, excludeID string) (decimal.Decimal, error)

	GetPRELineItem(ctx context.Context, id string) (*models.PRELineItem, error)
	AdjustLineItemQuarter(ctx context.Context, id string, q models.Quarter, delta decimal.Decimal) error
	SumLineItemAllocations(ctx context.Context, lineItemID string, q models.Quarter, statuses []models.Status) (decimal.Decimal, error)
	GetPRE(ctx context.Context, id string) (*models.DepartmentPRE, error)

	HasSignedCopy(ctx context.Context, kind models.DocumentKind, entityID string) (bool, error)
	InsertTransaction(ctx context.Context, t *models.BudgetTransaction) error
	InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error
	InsertNotification(ctx context.Context, n *models.Notification) error
}

// Service implements the realignment workflow.
type Service struct {
	store  Store
	locks  *lineItemLocks
	logger *zap.Logger
}

// NewService wires a new realignment service instance.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, locks: newLineItemLocks(), logger: logger}
}

// CreateInput carries the fields of a new realignment request.
type CreateInput struct {
	SourceLineItemID string
	TargetLineItemID string
	Reason           string
	Q1               decimal.Decimal
	Q2               decimal.Decimal
	Q3               decimal.Decimal
	Q4               decimal.Decimal
}

// Create files a realignment draft after checking each selected quarter can
// actually be moved.
func (s *Service) Create(ctx context.Context, in CreateInput, actor models.Actor) (*models.Realignment, error) {
	if in.Reason == "" {
		return nil, ErrReasonRequired
	}
	if in.SourceLineItemID == in.TargetLineItemID {
		return nil, ErrSameLineItem
	}

	source, err := s.store.GetPRELineItem(ctx, in.SourceLineItemID)
	if err != nil {
		return nil, err
	}
	target, err := s.store.GetPRELineItem(ctx, in.TargetLineItemID)
	if err != nil {
		return nil, err
	}
	sourcePRE, err := s.store.GetPRE(ctx, source.PREID)
	if err != nil {
		return nil, err
	}

	re := &models.Realignment{
		ID:                uuid.NewString(),
		RequestedBy:       actor.ID,
		Department:        sourcePRE.Department,
		Status:            models.StatusDraft,
		Reason:            in.Reason,
		SourcePREID:       source.PREID,
		SourceLineItemID:  source.ID,
		SourceItemDisplay: source.ItemName,
		TargetPREID:       target.PREID,
		TargetLineItemID:  target.ID,
		TargetItemDisplay: target.ItemName,
		Q1Amount:          in.Q1,
		Q2Amount:          in.Q2,
		Q3Amount:          in.Q3,
		Q4Amount:          in.Q4,
	}
	if len(re.SelectedQuarters()) == 0 {
		return nil, ErrNoAmount
	}
	if err := s.checkAvailability(ctx, re); err != nil {
		return nil, err
	}

	now := time.Now()
	re.CreatedAt = now
	re.UpdatedAt = now
	if err := s.store.InsertRealignment(ctx, re); err != nil {
		return nil, err
	}

	s.audit(ctx, actor, models.ActionCreate, re.ID,
		fmt.Sprintf("created realignment of PHP %s from %s to %s",
			re.TotalAmount().StringFixed(2), re.SourceItemDisplay, re.TargetItemDisplay))
	s.logger.Info("realignment created",
		zap.String("realignment_id", re.ID),
		zap.String("source_item", re.SourceItemDisplay),
		zap.String("target_item", re.TargetItemDisplay),
		zap.String("amount", re.TotalAmount().String()))
	return re, nil
}

// Get fetches one realignment.
func (s *Service) Get(ctx context.Context, id string) (*models.Realignment, error) {
	return s.store.GetRealignment(ctx, id)
}

// List lists realignments by optional requester and status filters.
func (s *Service) List(ctx context.Context, requestedBy string, statuses []models.Status, includeArchived bool) ([]models.Realignment, error) {
	return s.store.ListRealignments(ctx, requestedBy, statuses, includeArchived)
}

// Availability reports, per selected source quarter, how much can still be
// moved after consumption, reservations and other pending realignments.
func (s *Service) Availability(ctx context.Context, sourceLineItemID string, excludeRealignmentID string) ([]models.QuarterAvailability, error) {
	source, err := s.store.GetPRELineItem(ctx, sourceLineItemID)
	if err != nil {
		return nil, err
	}

	out := make([]models.QuarterAvailability, 0, len(models.Quarters))
	for _, q := range models.Quarters {
		qa, err := s.quarterAvailability(ctx, source, q, excludeRealignmentID)
		if err != nil {
			return nil, err
		}
		out = append(out, *qa)
	}
	return out, nil
}

func (s *Service) quarterAvailability(ctx context.Context, source *models.PRELineItem, q models.Quarter, excludeID string) (*models.QuarterAvailability, error) {
	consumed, err := s.store.SumLineItemAllocations(ctx, source.ID, q, models.ConsumedStatuses)
	if err != nil {
		return nil, err
	}
	reserved, err := s.store.SumLineItemAllocations(ctx, source.ID, q, models.ReservedStatuses)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.PendingRealignmentQuarterTotal(ctx, source.ID, q, excludeID)
	if err != nil {
		return nil, err
	}

	allocated := source.QuarterAmount(q)
	return &models.QuarterAvailability{
		Quarter:   q,
		Allocated: allocated,
		Consumed:  consumed,
		Reserved:  reserved,
		Pending:   pending,
		Remaining: allocated.Sub(consumed).Sub(reserved).Sub(pending),
	}, nil
}

// checkAvailability verifies every selected quarter still has enough
// movable balance for this realignment.
func (s *Service) checkAvailability(ctx context.Context, re *models.Realignment) error {
	source, err := s.store.GetPRELineItem(ctx, re.SourceLineItemID)
	if err != nil {
		return err
	}
	for _, qt := range re.SelectedQuarters() {
		qa, err := s.quarterAvailability(ctx, source, qt.Quarter, re.ID)
		if err != nil {
			return err
		}
		if qt.Amount.GreaterThan(qa.Remaining) {
			return fmt.Errorf("%w: %s %s has PHP %s movable",
				ErrQuarterShort, source.ItemName, qt.Quarter, qa.Remaining.StringFixed(2))
		}
	}
	return nil
}

// Submit moves a realignment draft into the admin review queue. From this
// point its amounts count against the source quarters.
func (s *Service) Submit(ctx context.Context, id string, actor models.Actor) (*models.Realignment, error) {
	re, err := s.store.GetRealignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(re, models.StatusPending, re.RequestedBy, actor); err != nil {
		return nil, err
	}
	if err := s.checkAvailability(ctx, re); err != nil {
		return nil, err
	}

	now := time.Now()
	re.Status = models.StatusPending
	re.SubmittedAt = &now
	re.UpdatedAt = now
	if err := s.store.UpdateRealignment(ctx, re); err != nil {
		return nil, err
	}

	s.decided(ctx, actor, models.ActionSubmit, "submit", re,
		fmt.Sprintf("submitted realignment of PHP %s", re.TotalAmount().StringFixed(2)))
	s.notify(ctx, adminRecipient, models.NotifSubmission, "Realignment submitted",
		fmt.Sprintf("%s requested moving PHP %s from %s to %s",
			re.Department, re.TotalAmount().StringFixed(2), re.SourceItemDisplay, re.TargetItemDisplay),
		re.ID)
	return re, nil
}

// PartialApprove records the first-stage admin approval.
func (s *Service) PartialApprove(ctx context.Context, id string, actor models.Actor) (*models.Realignment, error) {
	re, err := s.store.GetRealignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(re, models.StatusPartiallyApproved, "", actor); err != nil {
		return nil, err
	}

	now := time.Now()
	re.Status = models.StatusPartiallyApproved
	re.PartialApprovedBy = actor.ID
	re.PartiallyApprovedAt = &now
	re.UpdatedAt = now
	if err := s.store.UpdateRealignment(ctx, re); err != nil {
		return nil, err
	}

	s.decided(ctx, actor, models.ActionApprove, "partial_approve", re, "partially approved realignment")
	s.notify(ctx, re.RequestedBy, models.NotifPartialOK, "Realignment partially approved",
		"Print the realignment form, collect signatures and upload the signed copy.", re.ID)
	return re, nil
}

// MarkSignedUploaded queues a signed realignment for final verification.
func (s *Service) MarkSignedUploaded(ctx context.Context, id string, actor models.Actor) (*models.Realignment, error) {
	re, err := s.store.GetRealignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(re, models.StatusAwaitingVerification, re.RequestedBy, actor); err != nil {
		return nil, err
	}
	ok, err := s.store.HasSignedCopy(ctx, models.KindRealignment, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSignedCopy
	}

	now := time.Now()
	re.Status = models.StatusAwaitingVerification
	re.EndUserUploadedAt = &now
	re.UpdatedAt = now
	if err := s.store.UpdateRealignment(ctx, re); err != nil {
		return nil, err
	}

	s.decided(ctx, actor, models.ActionSubmit, "signed_uploaded", re, "uploaded signed realignment copy")
	s.notify(ctx, adminRecipient, models.NotifAwaitingSign, "Signed realignment uploaded",
		fmt.Sprintf("Realignment from %s awaits final verification", re.Department), re.ID)
	return re, nil
}

// FinalApprove re-checks availability and executes the transfer: each
// selected quarter is deducted from the source line item and added to the
// target in one pass.
func (s *Service) FinalApprove(ctx context.Context, id string, actor models.Actor) (*models.Realignment, error) {
	re, err := s.store.GetRealignment(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(re.SourceLineItemID)
	defer unlock()

	// Re-read under the lock so a concurrent decision cannot execute the
	// transfer twice.
	re, err = s.store.GetRealignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(re, models.StatusApproved, "", actor); err != nil {
		return nil, err
	}
	// The source may have shrunk since submission.
	if err := s.checkAvailability(ctx, re); err != nil {
		return nil, err
	}

	for _, qt := range re.SelectedQuarters() {
		if err := s.store.AdjustLineItemQuarter(ctx, re.SourceLineItemID, qt.Quarter, qt.Amount.Neg()); err != nil {
			return nil, err
		}
		if err := s.store.AdjustLineItemQuarter(ctx, re.TargetLineItemID, qt.Quarter, qt.Amount); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	re.Status = models.StatusApproved
	re.AdminApprovedBy = actor.ID
	re.AdminApprovedAt = &now
	re.FinalApprovedAt = &now
	re.UpdatedAt = now
	if err := s.store.UpdateRealignment(ctx, re); err != nil {
		return nil, err
	}

	txn := &models.BudgetTransaction{
		ID:          uuid.NewString(),
		Type:        models.TxnRealignmentApproved,
		Amount:      decimal.Zero,
		RelatedKind: models.KindRealignment,
		RelatedID:   re.ID,
		Remarks: fmt.Sprintf("moved PHP %s from %s to %s",
			re.TotalAmount().StringFixed(2), re.SourceItemDisplay, re.TargetItemDisplay),
		CreatedBy: actor.ID,
		CreatedAt: now,
	}
	if err := s.store.InsertTransaction(ctx, txn); err != nil {
		s.logger.Error("failed to record realignment transaction",
			zap.String("realignment_id", re.ID), zap.Error(err))
	}

	s.decided(ctx, actor, models.ActionApprove, "final_approve", re,
		fmt.Sprintf("approved realignment of PHP %s", re.TotalAmount().StringFixed(2)))
	s.notify(ctx, re.RequestedBy, models.NotifApproval, "Realignment approved",
		fmt.Sprintf("PHP %s was moved from %s to %s.",
			re.TotalAmount().StringFixed(2), re.SourceItemDisplay, re.TargetItemDisplay),
		re.ID)
	return re, nil
}

// Reject turns a realignment down at any review stage.
func (s *Service) Reject(ctx context.Context, id, reason string, actor models.Actor) (*models.Realignment, error) {
	if reason == "" {
		return nil, ErrRejectionReason
	}
	re, err := s.store.GetRealignment(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(re, models.StatusRejected, "", actor); err != nil {
		return nil, err
	}

	now := time.Now()
	re.Status = models.StatusRejected
	re.RejectionReason = reason
	re.UpdatedAt = now
	if err := s.store.UpdateRealignment(ctx, re); err != nil {
		return nil, err
	}

	s.decided(ctx, actor, models.ActionReject, "reject", re, fmt.Sprintf("rejected realignment: %s", reason))
	s.notify(ctx, re.RequestedBy, models.NotifRejection, "Realignment rejected", reason, re.ID)
	return re, nil
}

func (s *Service) checkTransition(re *models.Realignment, to models.Status, owner string, actor models.Actor) error {
	if re.IsArchived {
		return ErrArchived
	}
	if owner != "" && !actor.IsAdmin() && actor.ID != owner {
		return ErrNotOwner
	}
	if !re.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, re.Status, to)
	}
	return nil
}

func (s *Service) decided(ctx context.Context, actor models.Actor, action models.AuditAction, decision string, re *models.Realignment, detail string) {
	metrics.WorkflowDecisions.WithLabelValues(string(models.KindRealignment), decision).Inc()
	entry := &models.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     actor.ID,
		Action:     action,
		EntityKind: models.KindRealignment,
		RecordID:   re.ID,
		Detail:     detail,
		IPAddress:  actor.IPAddress,
		Timestamp:  time.Now(),
	}
	if err := s.store.InsertAuditEntry(ctx, entry); err != nil {
		s.logger.Error("failed to write audit entry",
			zap.String("realignment_id", re.ID), zap.Error(err))
	}
}

func (s *Service) audit(ctx context.Context, actor models.Actor, action models.AuditAction, recordID, detail string) {
	entry := &models.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     actor.ID,
		Action:     action,
		EntityKind: models.KindRealignment,
		RecordID:   recordID,
		Detail:     detail,
		IPAddress:  actor.IPAddress,
		Timestamp:  time.Now(),
	}
	if err := s.store.InsertAuditEntry(ctx, entry); err != nil {
		s.logger.Error("failed to write audit entry",
			zap.String("realignment_id", recordID), zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, recipient string, typ models.NotificationType, title, message, realignmentID string) {
	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipient,
		Type:        typ,
		Title:       title,
		Message:     message,
		EntityKind:  models.KindRealignment,
		EntityID:    realignmentID,
		CreatedAt:   time.Now(),
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		s.logger.Error("failed to write notification",
			zap.String("recipient", recipient), zap.Error(err))
	}
}

// Ensure the concrete repository satisfies the interface.
var _ Store = (*mongodb.Repository)(nil)
