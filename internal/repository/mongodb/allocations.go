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

// InsertAllocation stores a new department allocation.
func (r *Repository) InsertAllocation(ctx context.Context, a *models.BudgetAllocation) error {
	if _, err := r.db.Collection(collAllocations).InsertOne(ctx, a); err != nil {
		return fmt.Errorf("failed to insert allocation: %w", err)
	}
	return nil
}

// GetAllocation fetches one allocation by id.
func (r *Repository) GetAllocation(ctx context.Context, id string) (*models.BudgetAllocation, error) {
	var a models.BudgetAllocation
	err := r.db.Collection(collAllocations).FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}
	return &a, nil
}

// ListAllocationsByBudget returns the allocations under one budget.
func (r *Repository) ListAllocationsByBudget(ctx context.Context, budgetID string, includeArchived bool) ([]models.BudgetAllocation, error) {
	filter := bson.M{"approved_budget_id": budgetID}
	if !includeArchived {
		filter["is_archived"] = false
	}
	return r.findAllocations(ctx, filter)
}

// ListAllocationsByDepartment returns the active allocations for a
// department, newest first.
func (r *Repository) ListAllocationsByDepartment(ctx context.Context, department string) ([]models.BudgetAllocation, error) {
	return r.findAllocations(ctx, bson.M{"department": department, "is_archived": false})
}

// ListActiveAllocations returns every active allocation.
func (r *Repository) ListActiveAllocations(ctx context.Context) ([]models.BudgetAllocation, error) {
	return r.findAllocations(ctx, bson.M{"is_archived": false})
}

func (r *Repository) findAllocations(ctx context.Context, filter bson.M) ([]models.BudgetAllocation, error) {
	cursor, err := r.db.Collection(collAllocations).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "allocated_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	var out []models.BudgetAllocation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode allocations: %w", err)
	}
	return out, nil
}

// UpdateAllocation replaces an allocation document.
func (r *Repository) UpdateAllocation(ctx context.Context, a *models.BudgetAllocation) error {
	res, err := r.db.Collection(collAllocations).ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return fmt.Errorf("failed to update allocation: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllocation removes an allocation. Only draft-stage allocations with
// no usage should reach this.
func (r *Repository) DeleteAllocation(ctx context.Context, id string) error {
	res, err := r.db.Collection(collAllocations).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete allocation: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAllocationArchive flips the archive fields of one allocation.
func (r *Repository) SetAllocationArchive(ctx context.Context, id string, info models.ArchiveInfo) error {
	res, err := r.db.Collection(collAllocations).UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": archiveSet(info)})
	if err != nil {
		return fmt.Errorf("failed to set allocation archive state: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveAllocationsByBudget archives every active allocation under a
// budget and returns the affected ids for the next cascade level.
func (r *Repository) ArchiveAllocationsByBudget(ctx context.Context, budgetID string, info models.ArchiveInfo) ([]string, error) {
	ids, err := r.collectIDs(ctx, collAllocations, bson.M{"approved_budget_id": budgetID, "is_archived": false})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	_, err = r.db.Collection(collAllocations).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": archiveSet(info)})
	if err != nil {
		return nil, fmt.Errorf("failed to archive allocations: %w", err)
	}
	return ids, nil
}

// RestoreAllocationsByBudget restores allocations archived by the budget
// cascade. Only fiscal-year archives come back; manual archives stay put.
func (r *Repository) RestoreAllocationsByBudget(ctx context.Context, budgetID string, info models.ArchiveInfo) ([]string, error) {
	ids, err := r.collectIDs(ctx, collAllocations, bson.M{
		"approved_budget_id": budgetID,
		"is_archived":        true,
		"archive_type":       models.ArchiveTypeFiscalYear,
	})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	_, err = r.db.Collection(collAllocations).UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": archiveSet(info)})
	if err != nil {
		return nil, fmt.Errorf("failed to restore allocations: %w", err)
	}
	return ids, nil
}

// IncrementAllocationUsage atomically applies usage deltas to an allocation
// and refreshes its remaining balance by the same amounts.
func (r *Repository) IncrementAllocationUsage(ctx context.Context, id string, prDelta, adDelta, preDelta decimal.Decimal) error {
	inc := bson.M{}
	balanceDelta := decimal.Zero
	if !prDelta.IsZero() {
		inc["pr_amount_used"] = prDelta
		balanceDelta = balanceDelta.Sub(prDelta)
	}
	if !adDelta.IsZero() {
		inc["ad_amount_used"] = adDelta
		balanceDelta = balanceDelta.Sub(adDelta)
	}
	if !preDelta.IsZero() {
		inc["pre_amount_used"] = preDelta
	}
	if len(inc) == 0 {
		return nil
	}
	if !balanceDelta.IsZero() {
		inc["remaining_balance"] = balanceDelta
	}

	res, err := r.db.Collection(collAllocations).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": inc})
	if err != nil {
		return fmt.Errorf("failed to increment allocation usage: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// collectIDs gathers the _id values matching a filter.
func (r *Repository) collectIDs(ctx context.Context, coll string, filter bson.M) ([]string, error) {
	cursor, err := r.db.Collection(coll).Find(ctx, filter,
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to collect ids from %s: %w", coll, err)
	}
	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode ids from %s: %w", coll, err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
