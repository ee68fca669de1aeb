package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opencampus/budgetd/internal/domain/models"
)

// InsertPRE stores a new department PRE with its line items and receipts.
func (r *Repository) InsertPRE(ctx context.Context, pre *models.DepartmentPRE, items []models.PRELineItem, receipts []models.PREReceipt) error {
	if _, err := r.db.Collection(collPREs).InsertOne(ctx, pre); err != nil {
		return fmt.Errorf("failed to insert pre: %w", err)
	}
	if len(items) > 0 {
		docs := make([]interface{}, len(items))
		for i := range items {
			docs[i] = items[i]
		}
		if _, err := r.db.Collection(collPRELineItems).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert pre line items: %w", err)
		}
	}
	if len(receipts) > 0 {
		docs := make([]interface{}, len(receipts))
		for i := range receipts {
			docs[i] = receipts[i]
		}
		if _, err := r.db.Collection(collPREReceipts).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert pre receipts: %w", err)
		}
	}
	return nil
}

// GetPRE fetches one PRE by id.
func (r *Repository) GetPRE(ctx context.Context, id string) (*models.DepartmentPRE, error) {
	var pre models.DepartmentPRE
	err := r.db.Collection(collPREs).FindOne(ctx, bson.M{"_id": id}).Decode(&pre)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pre: %w", err)
	}
	return &pre, nil
}

// ListPREsByAllocation returns the PREs under one allocation.
func (r *Repository) ListPREsByAllocation(ctx context.Context, allocationID string, includeArchived bool) ([]models.DepartmentPRE, error) {
	filter := bson.M{"budget_allocation_id": allocationID}
	if !includeArchived {
		filter["is_archived"] = false
	}
	return r.findPREs(ctx, filter)
}

// ListPREsByStatus returns active PREs in the given statuses.
func (r *Repository) ListPREsByStatus(ctx context.Context, statuses ...models.Status) ([]models.DepartmentPRE, error) {
	return r.findPREs(ctx, bson.M{"status": bson.M{"$in": statuses}, "is_archived": false})
}

// GetApprovedPREForAllocation returns the active approved PRE of an
// allocation, or ErrNotFound when the department has none yet.
func (r *Repository) GetApprovedPREForAllocation(ctx context.Context, allocationID string) (*models.DepartmentPRE, error) {
	var pre models.DepartmentPRE
	err := r.db.Collection(collPREs).FindOne(ctx, bson.M{
		"budget_allocation_id": allocationID,
		"status":               models.StatusApproved,
		"is_archived":          false,
	}, options.FindOne().SetSort(bson.D{{Key: "final_approved_at", Value: -1}})).Decode(&pre)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approved pre: %w", err)
	}
	return &pre, nil
}

func (r *Repository) findPREs(ctx context.Context, filter bson.M) ([]models.DepartmentPRE, error) {
	cursor, err := r.db.Collection(collPREs).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list pres: %w", err)
	}
	var out []models.DepartmentPRE
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode pres: %w", err)
	}
	return out, nil
}

// UpdatePRE replaces a PRE document.
func (r *Repository) UpdatePRE(ctx context.Context, pre *models.DepartmentPRE) error {
	res, err := r.db.Collection(collPREs).ReplaceOne(ctx, bson.M{"_id": pre.ID}, pre)
	if err != nil {
		return fmt.Errorf("failed to update pre: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPRELineItems returns the line items of a PRE in sheet order.
func (r *Repository) ListPRELineItems(ctx context.Context, preID string) ([]models.PRELineItem, error) {
	cursor, err := r.db.Collection(collPRELineItems).Find(ctx, bson.M{"pre_id": preID})
	if err != nil {
		return nil, fmt.Errorf("failed to list pre line items: %w", err)
	}
	var out []models.PRELineItem
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode pre line items: %w", err)
	}
	return out, nil
}

// GetPRELineItem fetches one planning line item.
func (r *Repository) GetPRELineItem(ctx context.Context, id string) (*models.PRELineItem, error) {
	var li models.PRELineItem
	err := r.db.Collection(collPRELineItems).FindOne(ctx, bson.M{"_id": id}).Decode(&li)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pre line item: %w", err)
	}
	return &li, nil
}

// UpdatePRELineItem replaces one planning line item.
func (r *Repository) UpdatePRELineItem(ctx context.Context, li *models.PRELineItem) error {
	res, err := r.db.Collection(collPRELineItems).ReplaceOne(ctx, bson.M{"_id": li.ID}, li)
	if err != nil {
		return fmt.Errorf("failed to update pre line item: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustLineItemQuarter applies a signed delta to one quarter column of a
// line item, used by realignment transfers.
func (r *Repository) AdjustLineItemQuarter(ctx context.Context, id string, q models.Quarter, delta decimal.Decimal) error {
	field, ok := quarterField(q)
	if !ok {
		return fmt.Errorf("invalid quarter %q", q)
	}
	res, err := r.db.Collection(collPRELineItems).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return fmt.Errorf("failed to adjust line item quarter: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func quarterField(q models.Quarter) (string, bool) {
	switch q {
	case models.Q1:
		return "q1_amount", true
	case models.Q2:
		return "q2_amount", true
	case models.Q3:
		return "q3_amount", true
	case models.Q4:
		return "q4_amount", true
	}
	return "", false
}

// ListPREReceipts returns the receipt rows of a PRE.
func (r *Repository) ListPREReceipts(ctx context.Context, preID string) ([]models.PREReceipt, error) {
	cursor, err := r.db.Collection(collPREReceipts).Find(ctx, bson.M{"pre_id": preID})
	if err != nil {
		return nil, fmt.Errorf("failed to list pre receipts: %w", err)
	}
	var out []models.PREReceipt
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode pre receipts: %w", err)
	}
	return out, nil
}

// ArchivePREsByAllocations archives every active PRE under the given
// allocations and returns the affected PRE ids.
func (r *Repository) ArchivePREsByAllocations(ctx context.Context, allocationIDs []string, info models.ArchiveInfo) ([]string, error) {
	if len(allocationIDs) == 0 {
		return nil, nil
	}
	ids, err := r.collectIDs(ctx, collPREs, bson.M{
		"budget_allocation_id": bson.M{"$in": allocationIDs},
		"is_archived":          false,
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	_, err = r.db.Collection(collPREs).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": archiveSet(info)})
	if err != nil {
		return nil, fmt.Errorf("failed to archive pres: %w", err)
	}
	return ids, nil
}

// RestorePREsByAllocations restores fiscal-year archived PREs under the
// given allocations.
func (r *Repository) RestorePREsByAllocations(ctx context.Context, allocationIDs []string, info models.ArchiveInfo) ([]string, error) {
	if len(allocationIDs) == 0 {
		return nil, nil
	}
	ids, err := r.collectIDs(ctx, collPREs, bson.M{
		"budget_allocation_id": bson.M{"$in": allocationIDs},
		"is_archived":          true,
		"archive_type":         models.ArchiveTypeFiscalYear,
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	_, err = r.db.Collection(collPREs).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": archiveSet(info)})
	if err != nil {
		return nil, fmt.Errorf("failed to restore pres: %w", err)
	}
	return ids, nil
}
