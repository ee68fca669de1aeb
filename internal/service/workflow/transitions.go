package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/domain/models"
	"github.com/opencampus/budgetd/internal/repository/mongodb"
	"github.com/opencampus/budgetd/pkg/metrics"
)

// lowBudgetThresholdPercent triggers a warning notification when an
// allocation's remaining balance drops below this share of the total.
const lowBudgetThresholdPercent = 10

// GetPRE fetches one PRE with its line items and receipts.
func (s *Service) GetPRE(ctx context.Context, id string) (*models.DepartmentPRE, []models.PRELineItem, []models.PREReceipt, error) {
	pre, err := s.store.GetPRE(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	items, err := s.store.ListPRELineItems(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	receipts, err := s.store.ListPREReceipts(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	return pre, items, receipts, nil
}

// ListPREsByAllocation lists the PREs under one allocation.
func (s *Service) ListPREsByAllocation(ctx context.Context, allocationID string, includeArchived bool) ([]models.DepartmentPRE, error) {
	return s.store.ListPREsByAllocation(ctx, allocationID, includeArchived)
}

// ListPendingPREs lists PREs waiting on an admin decision.
func (s *Service) ListPendingPREs(ctx context.Context) ([]models.DepartmentPRE, error) {
	return s.store.ListPREsByStatus(ctx, models.StatusPending, models.StatusPartiallyApproved, models.StatusAwaitingVerification)
}

// GetPurchaseRequest fetches one PR.
func (s *Service) GetPurchaseRequest(ctx context.Context, id string) (*models.PurchaseRequest, error) {
	return s.store.GetPurchaseRequest(ctx, id)
}

// ListPurchaseRequests lists PRs by optional department and status filters.
func (s *Service) ListPurchaseRequests(ctx context.Context, department string, statuses []models.Status, includeArchived bool) ([]models.PurchaseRequest, error) {
	return s.store.ListPurchaseRequests(ctx, department, statuses, includeArchived)
}

// GetActivityDesign fetches one AD.
func (s *Service) GetActivityDesign(ctx context.Context, id string) (*models.ActivityDesign, error) {
	return s.store.GetActivityDesign(ctx, id)
}

// ListActivityDesigns lists ADs by optional department and status filters.
func (s *Service) ListActivityDesigns(ctx context.Context, department string, statuses []models.Status, includeArchived bool) ([]models.ActivityDesign, error) {
	return s.store.ListActivityDesigns(ctx, department, statuses, includeArchived)
}

// SubmitPRE moves a PRE draft into the admin review queue.
func (s *Service) SubmitPRE(ctx context.Context, id string, actor models.Actor) (*models.DepartmentPRE, error) {
	pre, err := s.store.GetPRE(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(pre.IsArchived, pre.Status, models.StatusPending, pre.SubmittedBy, actor); err != nil {
		return nil, err
	}

	now := time.Now()
	pre.Status = models.StatusPending
	pre.SubmittedAt = &now
	pre.UpdatedAt = now
	if err := s.store.UpdatePRE(ctx, pre); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, models.KindPRE, pre.ID, models.ActionSubmit, "submit",
		fmt.Sprintf("submitted PRE for %s", pre.Department))
	s.notify(ctx, adminRecipient, models.NotifSubmission, "PRE submitted",
		fmt.Sprintf("%s submitted a PRE for review (PHP %s)", pre.Department, pre.TotalAmount.StringFixed(2)),
		models.KindPRE, pre.ID)
	return pre, nil
}

// PartialApprovePRE records the first-stage admin approval. The submitter
// prints the document and collects physical signatures next.
func (s *Service) PartialApprovePRE(ctx context.Context, id, notes string, actor models.Actor) (*models.DepartmentPRE, error) {
	pre, err := s.store.GetPRE(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(pre.IsArchived, pre.Status, models.StatusPartiallyApproved, "", actor); err != nil {
		return nil, err
	}

	now := time.Now()
	pre.Status = models.StatusPartiallyApproved
	pre.PartiallyApprovedAt = &now
	pre.AdminNotes = notes
	pre.UpdatedAt = now
	if err := s.store.UpdatePRE(ctx, pre); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, models.KindPRE, pre.ID, models.ActionApprove, "partial_approve",
		fmt.Sprintf("partially approved PRE for %s", pre.Department))
	s.notify(ctx, pre.SubmittedBy, models.NotifPartialOK, "PRE partially approved",
		"Print your PRE, collect signatures and upload the signed copy.",
		models.KindPRE, pre.ID)
	return pre, nil
}

// MarkPRESignedUploaded records that the signed copy is attached and queues
// the PRE for final admin verification.
func (s *Service) MarkPRESignedUploaded(ctx context.Context, id string, actor models.Actor) (*models.DepartmentPRE, error) {
	pre, err := s.store.GetPRE(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(pre.IsArchived, pre.Status, models.StatusAwaitingVerification, pre.SubmittedBy, actor); err != nil {
		return nil, err
	}
	if err := s.requireSignedCopy(ctx, models.KindPRE, id); err != nil {
		return nil, err
	}

	now := time.Now()
	pre.Status = models.StatusAwaitingVerification
	pre.AwaitingVerification = true
	pre.EndUserUploadedAt = &now
	pre.UpdatedAt = now
	if err := s.store.UpdatePRE(ctx, pre); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, models.KindPRE, pre.ID, models.ActionSubmit, "signed_uploaded",
		fmt.Sprintf("uploaded signed PRE copy for %s", pre.Department))
	s.notify(ctx, adminRecipient, models.NotifAwaitingSign, "Signed PRE uploaded",
		fmt.Sprintf("%s uploaded a signed PRE awaiting verification", pre.Department),
		models.KindPRE, pre.ID)
	return pre, nil
}

// FinalApprovePRE verifies the signed copy and locks in the PRE. Its grand
// total becomes the department's spending ceiling for PRs and ADs.
func (s *Service) FinalApprovePRE(ctx context.Context, id string, actor models.Actor) (*models.DepartmentPRE, error) {
	pre, err := s.store.GetPRE(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(pre.BudgetAllocationID)
	defer unlock()

	// Re-read under the lock so a concurrent decision cannot approve twice.
	pre, err = s.store.GetPRE(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(pre.IsArchived, pre.Status, models.StatusApproved, "", actor); err != nil {
		return nil, err
	}

	alloc, err := s.store.GetAllocation(ctx, pre.BudgetAllocationID)
	if err != nil {
		return nil, err
	}

	// The grand total a department typed in can drift from its line items;
	// the sum of the line items is authoritative at approval.
	items, err := s.store.ListPRELineItems(ctx, pre.ID)
	if err != nil {
		return nil, err
	}
	computed := decimal.Zero
	for i := range items {
		computed = computed.Add(items[i].Total())
	}
	if !computed.Equal(pre.TotalAmount) {
		s.logger.Warn("correcting stale pre total at approval",
			zap.String("pre_id", pre.ID),
			zap.String("stored", pre.TotalAmount.String()),
			zap.String("computed", computed.String()))
		pre.TotalAmount = computed
	}

	now := time.Now()
	pre.Status = models.StatusApproved
	pre.AwaitingVerification = false
	pre.FinalApprovedAt = &now
	pre.AdminApprovedBy = actor.ID
	pre.AdminApprovedAt = &now
	pre.UpdatedAt = now
	if err := s.store.UpdatePRE(ctx, pre); err != nil {
		return nil, err
	}

	if err := s.store.IncrementAllocationUsage(ctx, alloc.ID, decimal.Zero, decimal.Zero, pre.TotalAmount); err != nil {
		return nil, err
	}

	s.recordTransaction(ctx, &models.BudgetTransaction{
		AllocationID:    alloc.ID,
		Type:            models.TxnPREApproved,
		Amount:          decimal.Zero,
		PreviousBalance: alloc.RemainingBalance,
		NewBalance:      alloc.RemainingBalance,
		RelatedKind:     models.KindPRE,
		RelatedID:       pre.ID,
		Remarks:         fmt.Sprintf("PRE approved, planning total PHP %s", pre.TotalAmount.StringFixed(2)),
		CreatedBy:       actor.ID,
	})

	s.afterTransition(ctx, actor, models.KindPRE, pre.ID, models.ActionApprove, "final_approve",
		fmt.Sprintf("approved PRE for %s, total PHP %s", pre.Department, pre.TotalAmount.StringFixed(2)))
	s.notify(ctx, pre.SubmittedBy, models.NotifApproval, "PRE approved",
		fmt.Sprintf("Your PRE was approved. PHP %s is now available for requests.", pre.TotalAmount.StringFixed(2)),
		models.KindPRE, pre.ID)
	return pre, nil
}

// RejectPRE turns a PRE down at any review stage.
func (s *Service) RejectPRE(ctx context.Context, id, reason string, actor models.Actor) (*models.DepartmentPRE, error) {
	if reason == "" {
		return nil, ErrRejectionReason
	}
	pre, err := s.store.GetPRE(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(pre.IsArchived, pre.Status, models.StatusRejected, "", actor); err != nil {
		return nil, err
	}

	now := time.Now()
	pre.Status = models.StatusRejected
	pre.AwaitingVerification = false
	pre.RejectionReason = reason
	pre.UpdatedAt = now
	if err := s.store.UpdatePRE(ctx, pre); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, models.KindPRE, pre.ID, models.ActionReject, "reject",
		fmt.Sprintf("rejected PRE for %s: %s", pre.Department, reason))
	s.notify(ctx, pre.SubmittedBy, models.NotifRejection, "PRE rejected", reason, models.KindPRE, pre.ID)
	return pre, nil
}

// SubmitPurchaseRequest moves a PR draft into the admin review queue and
// reserves its drawn quarter amounts.
func (s *Service) SubmitPurchaseRequest(ctx context.Context, id string, actor models.Actor) (*models.PurchaseRequest, error) {
	pr, err := s.store.GetPurchaseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(pr.IsArchived, pr.Status, models.StatusPending, pr.SubmittedBy, actor); err != nil {
		return nil, err
	}

	now := time.Now()
	pr.Status = models.StatusPending
	pr.SubmittedAt = &now
	pr.UpdatedAt = now
	if err := s.store.UpdatePurchaseRequest(ctx, pr); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLineItemAllocationStatus(ctx, models.KindPurchaseRequest, pr.ID, models.StatusPending); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, models.KindPurchaseRequest, pr.ID, models.ActionSubmit, "submit",
		fmt.Sprintf("submitted %s", pr.PRNumber))
	s.notify(ctx, adminRecipient, models.NotifSubmission, "Purchase request submitted",
		fmt.Sprintf("%s submitted %s for PHP %s", pr.Department, pr.PRNumber, pr.TotalAmount.StringFixed(2)),
		models.KindPurchaseRequest, pr.ID)
	return pr, nil
}

// PartialApprovePurchaseRequest records the first-stage admin approval.
func (s *Service) PartialApprovePurchaseRequest(ctx context.Context, id string, actor models.Actor) (*models.PurchaseRequest, error) {
	pr, err := s.store.GetPurchaseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(pr.IsArchived, pr.Status, models.StatusPartiallyApproved, "", actor); err != nil {
		return nil, err
	}

	now := time.Now()
	pr.Status = models.StatusPartiallyApproved
	pr.PartiallyApprovedAt = &now
	pr.UpdatedAt = now
	if err := s.store.UpdatePurchaseRequest(ctx, pr); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLineItemAllocationStatus(ctx, models.KindPurchaseRequest, pr.ID, models.StatusPartiallyApproved); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, models.KindPurchaseRequest, pr.ID, models.ActionApprove, "partial_approve",
		fmt.Sprintf("partially approved %s", pr.PRNumber))
	s.notify(ctx, pr.SubmittedBy, models.NotifPartialOK, "Purchase request partially approved",
		fmt.Sprintf("Print %s, collect signatures and upload the signed copy.", pr.PRNumber),
		models.KindPurchaseRequest, pr.ID)
	return pr, nil
}

// MarkPurchaseRequestSignedUploaded queues a signed PR for final
// verification.
func (s *Service) MarkPurchaseRequestSignedUploaded(ctx context.Context, id string, actor models.Actor) (*models.PurchaseRequest, error) {
	pr, err := s.store.GetPurchaseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(pr.IsArchived, pr.Status, models.StatusAwaitingVerification, pr.SubmittedBy, actor); err != nil {
		return nil, err
	}
	if err := s.requireSignedCopy(ctx, models.KindPurchaseRequest, id); err != nil {
		return nil, err
	}

	now := time.Now()
	pr.Status = models.StatusAwaitingVerification
	pr.AwaitingVerification = true
	pr.EndUserUploadedAt = &now
	pr.UpdatedAt = now
	if err := s.store.UpdatePurchaseRequest(ctx, pr); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLineItemAllocationStatus(ctx, models.KindPurchaseRequest, pr.ID, models.StatusAwaitingVerification); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, models.KindPurchaseRequest, pr.ID, models.ActionSubmit, "signed_uploaded",
		fmt.Sprintf("uploaded signed copy for %s", pr.PRNumber))
	s.notify(ctx, adminRecipient, models.NotifAwaitingSign, "Signed purchase request uploaded",
		fmt.Sprintf("%s awaits final verification", pr.PRNumber),
		models.KindPurchaseRequest, pr.ID)
	return pr, nil
}

// FinalApprovePurchaseRequest applies the PR's budget effect exactly once:
// under the allocation lock, usage rises and the remaining balance falls by
// the PR total, with a transaction snapshot of both balances.
func (s *Service) FinalApprovePurchaseRequest(ctx context.Context, id string, actor models.Actor) (*models.PurchaseRequest, error) {
	pr, err := s.store.GetPurchaseRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(pr.BudgetAllocationID)
	defer unlock()

	pr, err = s.store.GetPurchaseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(pr.IsArchived, pr.Status, models.StatusApproved, "", actor); err != nil {
		return nil, err
	}

	alloc, err := s.store.GetAllocation(ctx, pr.BudgetAllocationID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	pr.Status = models.StatusApproved
	pr.AwaitingVerification = false
	pr.FinalApprovedAt = &now
	pr.AdminApprovedBy = actor.ID
	pr.AdminApprovedAt = &now
	pr.UpdatedAt = now
	if err := s.store.UpdatePurchaseRequest(ctx, pr); err != nil {
		return nil, err
	}
	if err := s.store.IncrementAllocationUsage(ctx, alloc.ID, pr.TotalAmount, decimal.Zero, decimal.Zero); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLineItemAllocationStatus(ctx, models.KindPurchaseRequest, pr.ID, models.StatusApproved); err != nil {
		return nil, err
	}

	newBalance := alloc.RemainingBalance.Sub(pr.TotalAmount)
	s.recordTransaction(ctx, &models.BudgetTransaction{
		AllocationID:    alloc.ID,
		Type:            models.TxnPRApproved,
		Amount:          pr.TotalAmount.Neg(),
		PreviousBalance: alloc.RemainingBalance,
		NewBalance:      newBalance,
		RelatedKind:     models.KindPurchaseRequest,
		RelatedID:       pr.ID,
		Remarks:         pr.PRNumber,
		CreatedBy:       actor.ID,
	})
	s.warnLowBudget(ctx, alloc, newBalance, pr.SubmittedBy)

	s.afterTransition(ctx, actor, models.KindPurchaseRequest, pr.ID, models.ActionApprove, "final_approve",
		fmt.Sprintf("approved %s for PHP %s", pr.PRNumber, pr.TotalAmount.StringFixed(2)))
	s.notify(ctx, pr.SubmittedBy, models.NotifApproval, "Purchase request approved",
		fmt.Sprintf("%s was approved for PHP %s", pr.PRNumber, pr.TotalAmount.StringFixed(2)),
		models.KindPurchaseRequest, pr.ID)
	return pr, nil
}

// RejectPurchaseRequest turns a PR down and releases its reservations.
func (s *Service) RejectPurchaseRequest(ctx context.Context, id, reason string, actor models.Actor) (*models.PurchaseRequest, error) {
	if reason == "" {
		return nil, ErrRejectionReason
	}
	pr, err := s.store.GetPurchaseRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(pr.IsArchived, pr.Status, models.StatusRejected, "", actor); err != nil {
		return nil, err
	}

	now := time.Now()
	pr.Status = models.StatusRejected
	pr.AwaitingVerification = false
	pr.RejectionReason = reason
	pr.UpdatedAt = now
	if err := s.store.UpdatePurchaseRequest(ctx, pr); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLineItemAllocationStatus(ctx, models.KindPurchaseRequest, pr.ID, models.StatusRejected); err != nil {
		return nil, err
	}

	s.recordTransaction(ctx, &models.BudgetTransaction{
		AllocationID: pr.BudgetAllocationID,
		Type:         models.TxnPRRejected,
		Amount:       decimal.Zero,
		RelatedKind:  models.KindPurchaseRequest,
		RelatedID:    pr.ID,
		Remarks:      fmt.Sprintf("%s rejected: %s", pr.PRNumber, reason),
		CreatedBy:    actor.ID,
	})

	s.afterTransition(ctx, actor, models.KindPurchaseRequest, pr.ID, models.ActionReject, "reject",
		fmt.Sprintf("rejected %s: %s", pr.PRNumber, reason))
	s.notify(ctx, pr.SubmittedBy, models.NotifRejection, "Purchase request rejected", reason,
		models.KindPurchaseRequest, pr.ID)
	return pr, nil
}

// SubmitActivityDesign moves an AD draft into the admin review queue.
func (s *Service) SubmitActivityDesign(ctx context.Context, id string, actor models.Actor) (*models.ActivityDesign, error) {
	ad, err := s.store.GetActivityDesign(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(ad.IsArchived, ad.Status, models.StatusPending, ad.SubmittedBy, actor); err != nil {
		return nil, err
	}

	now := time.Now()
	ad.Status = models.StatusPending
	ad.SubmittedAt = &now
	ad.UpdatedAt = now
	if err := s.store.UpdateActivityDesign(ctx, ad); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLineItemAllocationStatus(ctx, models.KindActivityDesign, ad.ID, models.StatusPending); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, models.KindActivityDesign, ad.ID, models.ActionSubmit, "submit",
		fmt.Sprintf("submitted %s", ad.ADNumber))
	s.notify(ctx, adminRecipient, models.NotifSubmission, "Activity design submitted",
		fmt.Sprintf("%s submitted %s for PHP %s", ad.Department, ad.ADNumber, ad.TotalAmount.StringFixed(2)),
		models.KindActivityDesign, ad.ID)
	return ad, nil
}

// PartialApproveActivityDesign records the first-stage admin approval.
func (s *Service) PartialApproveActivityDesign(ctx context.Context, id string, actor models.Actor) (*models.ActivityDesign, error) {
	ad, err := s.store.GetActivityDesign(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(ad.IsArchived, ad.Status, models.StatusPartiallyApproved, "", actor); err != nil {
		return nil, err
	}

	now := time.Now()
	ad.Status = models.StatusPartiallyApproved
	ad.PartiallyApprovedAt = &now
	ad.UpdatedAt = now
	if err := s.store.UpdateActivityDesign(ctx, ad); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLineItemAllocationStatus(ctx, models.KindActivityDesign, ad.ID, models.StatusPartiallyApproved); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, models.KindActivityDesign, ad.ID, models.ActionApprove, "partial_approve",
		fmt.Sprintf("partially approved %s", ad.ADNumber))
	s.notify(ctx, ad.SubmittedBy, models.NotifPartialOK, "Activity design partially approved",
		fmt.Sprintf("Print %s, collect signatures and upload the signed copy.", ad.ADNumber),
		models.KindActivityDesign, ad.ID)
	return ad, nil
}

// MarkActivityDesignSignedUploaded queues a signed AD for final
// verification.
func (s *Service) MarkActivityDesignSignedUploaded(ctx context.Context, id string, actor models.Actor) (*models.ActivityDesign, error) {
	ad, err := s.store.GetActivityDesign(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(ad.IsArchived, ad.Status, models.StatusAwaitingVerification, ad.SubmittedBy, actor); err != nil {
		return nil, err
	}
	if err := s.requireSignedCopy(ctx, models.KindActivityDesign, id); err != nil {
		return nil, err
	}

	now := time.Now()
	ad.Status = models.StatusAwaitingVerification
	ad.AwaitingVerification = true
	ad.EndUserUploadedAt = &now
	ad.UpdatedAt = now
	if err := s.store.UpdateActivityDesign(ctx, ad); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLineItemAllocationStatus(ctx, models.KindActivityDesign, ad.ID, models.StatusAwaitingVerification); err != nil {
		return nil, err
	}

	s.afterTransition(ctx, actor, models.KindActivityDesign, ad.ID, models.ActionSubmit, "signed_uploaded",
		fmt.Sprintf("uploaded signed copy for %s", ad.ADNumber))
	s.notify(ctx, adminRecipient, models.NotifAwaitingSign, "Signed activity design uploaded",
		fmt.Sprintf("%s awaits final verification", ad.ADNumber),
		models.KindActivityDesign, ad.ID)
	return ad, nil
}

// FinalApproveActivityDesign applies the AD's budget effect exactly once
// under the allocation lock.
func (s *Service) FinalApproveActivityDesign(ctx context.Context, id string, actor models.Actor) (*models.ActivityDesign, error) {
	ad, err := s.store.GetActivityDesign(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.acquire(ad.BudgetAllocationID)
	defer unlock()

	ad, err = s.store.GetActivityDesign(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(ad.IsArchived, ad.Status, models.StatusApproved, "", actor); err != nil {
		return nil, err
	}

	alloc, err := s.store.GetAllocation(ctx, ad.BudgetAllocationID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ad.Status = models.StatusApproved
	ad.AwaitingVerification = false
	ad.FinalApprovedAt = &now
	ad.AdminApprovedBy = actor.ID
	ad.AdminApprovedAt = &now
	ad.UpdatedAt = now
	if err := s.store.UpdateActivityDesign(ctx, ad); err != nil {
		return nil, err
	}
	if err := s.store.IncrementAllocationUsage(ctx, alloc.ID, decimal.Zero, ad.TotalAmount, decimal.Zero); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLineItemAllocationStatus(ctx, models.KindActivityDesign, ad.ID, models.StatusApproved); err != nil {
		return nil, err
	}

	newBalance := alloc.RemainingBalance.Sub(ad.TotalAmount)
	s.recordTransaction(ctx, &models.BudgetTransaction{
		AllocationID:    alloc.ID,
		Type:            models.TxnADApproved,
		Amount:          ad.TotalAmount.Neg(),
		PreviousBalance: alloc.RemainingBalance,
		NewBalance:      newBalance,
		RelatedKind:     models.KindActivityDesign,
		RelatedID:       ad.ID,
		Remarks:         ad.ADNumber,
		CreatedBy:       actor.ID,
	})
	s.warnLowBudget(ctx, alloc, newBalance, ad.SubmittedBy)

	s.afterTransition(ctx, actor, models.KindActivityDesign, ad.ID, models.ActionApprove, "final_approve",
		fmt.Sprintf("approved %s for PHP %s", ad.ADNumber, ad.TotalAmount.StringFixed(2)))
	s.notify(ctx, ad.SubmittedBy, models.NotifApproval, "Activity design approved",
		fmt.Sprintf("%s was approved for PHP %s", ad.ADNumber, ad.TotalAmount.StringFixed(2)),
		models.KindActivityDesign, ad.ID)
	return ad, nil
}

// RejectActivityDesign turns an AD down and releases its reservations.
func (s *Service) RejectActivityDesign(ctx context.Context, id, reason string, actor models.Actor) (*models.ActivityDesign, error) {
	if reason == "" {
		return nil, ErrRejectionReason
	}
	ad, err := s.store.GetActivityDesign(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(ad.IsArchived, ad.Status, models.StatusRejected, "", actor); err != nil {
		return nil, err
	}

	now := time.Now()
	ad.Status = models.StatusRejected
	ad.AwaitingVerification = false
	ad.RejectionReason = reason
	ad.UpdatedAt = now
	if err := s.store.UpdateActivityDesign(ctx, ad); err != nil {
		return nil, err
	}
	if err := s.store.UpdateLineItemAllocationStatus(ctx, models.KindActivityDesign, ad.ID, models.StatusRejected); err != nil {
		return nil, err
	}

	s.recordTransaction(ctx, &models.BudgetTransaction{
		AllocationID: ad.BudgetAllocationID,
		Type:         models.TxnADRejected,
		Amount:       decimal.Zero,
		RelatedKind:  models.KindActivityDesign,
		RelatedID:    ad.ID,
		Remarks:      fmt.Sprintf("%s rejected: %s", ad.ADNumber, reason),
		CreatedBy:    actor.ID,
	})

	s.afterTransition(ctx, actor, models.KindActivityDesign, ad.ID, models.ActionReject, "reject",
		fmt.Sprintf("rejected %s: %s", ad.ADNumber, reason))
	s.notify(ctx, ad.SubmittedBy, models.NotifRejection, "Activity design rejected", reason,
		models.KindActivityDesign, ad.ID)
	return ad, nil
}

// checkTransition enforces archive state, the status machine and, for
// end-user actions, document ownership. owner is empty for admin-only steps.
func (s *Service) checkTransition(archived bool, from, to models.Status, owner string, actor models.Actor) error {
	if archived {
		return ErrArchivedDocument
	}
	if owner != "" && !actor.IsAdmin() && actor.ID != owner {
		return ErrNotOwner
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func (s *Service) requireSignedCopy(ctx context.Context, kind models.DocumentKind, id string) error {
	ok, err := s.store.HasSignedCopy(ctx, kind, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoSignedCopy
	}
	return nil
}

func (s *Service) warnLowBudget(ctx context.Context, alloc *models.BudgetAllocation, newBalance decimal.Decimal, recipient string) {
	if alloc.AllocatedAmount.IsZero() {
		return
	}
	pct := newBalance.Div(alloc.AllocatedAmount).Mul(decimal.NewFromInt(100))
	if pct.GreaterThanOrEqual(decimal.NewFromInt(lowBudgetThresholdPercent)) {
		return
	}
	s.notify(ctx, recipient, models.NotifLowBudget, "Budget running low",
		fmt.Sprintf("Your allocation has PHP %s left (%s%% of the original amount).",
			newBalance.StringFixed(2), pct.Round(1)),
		models.KindAllocation, alloc.ID)
}

func (s *Service) recordTransaction(ctx context.Context, t *models.BudgetTransaction) {
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now()
	if err := s.store.InsertTransaction(ctx, t); err != nil {
		s.logger.Error("failed to record budget transaction",
			zap.String("related_id", t.RelatedID), zap.Error(err))
	}
}

func (s *Service) afterTransition(ctx context.Context, actor models.Actor, kind models.DocumentKind, id string, action models.AuditAction, decision, detail string) {
	metrics.WorkflowDecisions.WithLabelValues(string(kind), decision).Inc()
	s.audit(ctx, actor, action, kind, id, detail)
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

func (s *Service) notify(ctx context.Context, recipient string, typ models.NotificationType, title, message string, kind models.DocumentKind, entityID string) {
	n := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipient,
		Type:        typ,
		Title:       title,
		Message:     message,
		EntityKind:  kind,
		EntityID:    entityID,
		CreatedAt:   time.Now(),
	}
	if err := s.store.InsertNotification(ctx, n); err != nil {
		s.logger.Error("failed to write notification",
			zap.String("recipient", recipient), zap.Error(err))
	}
}

// Ensure the concrete repository satisfies the interface.
var _ Store = (*mongodb.Repository)(nil)
