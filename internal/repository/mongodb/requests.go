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

// InsertPurchaseRequest stores a new PR.
func (r *Repository) InsertPurchaseRequest(ctx context.Context, pr *models.PurchaseRequest) error {
	_, err := r.db.Collection(collPRs).InsertOne(ctx, pr)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("pr number %s: %w", pr.PRNumber, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert purchase request: %w", err)
	}
	return nil
}

// GetPurchaseRequest fetches one PR by id.
func (r *Repository) GetPurchaseRequest(ctx context.Context, id string) (*models.PurchaseRequest, error) {
	var pr models.PurchaseRequest
	err := r.db.Collection(collPRs).FindOne(ctx, bson.M{"_id": id}).Decode(&pr)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase request: %w", err)
	}
	return &pr, nil
}

// ListPurchaseRequests returns PRs matching the optional department and
// status filters, newest first.
func (r *Repository) ListPurchaseRequests(ctx context.Context, department string, statuses []models.Status, includeArchived bool) ([]models.PurchaseRequest, error) {
	filter := requestFilter(department, statuses, includeArchived)
	cursor, err := r.db.Collection(collPRs).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase requests: %w", err)
	}
	var out []models.PurchaseRequest
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode purchase requests: %w", err)
	}
	return out, nil
}

// UpdatePurchaseRequest replaces a PR document.
func (r *Repository) UpdatePurchaseRequest(ctx context.Context, pr *models.PurchaseRequest) error {
	res, err := r.db.Collection(collPRs).ReplaceOne(ctx, bson.M{"_id": pr.ID}, pr)
	if err != nil {
		return fmt.Errorf("failed to update purchase request: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertActivityDesign stores a new AD.
func (r *Repository) InsertActivityDesign(ctx context.Context, ad *models.ActivityDesign) error {
	_, err := r.db.Collection(collADs).InsertOne(ctx, ad)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("ad number %s: %w", ad.ADNumber, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert activity design: %w", err)
	}
	return nil
}

// GetActivityDesign fetches one AD by id.
func (r *Repository) GetActivityDesign(ctx context.Context, id string) (*models.ActivityDesign, error) {
	var ad models.ActivityDesign
	err := r.db.Collection(collADs).FindOne(ctx, bson.M{"_id": id}).Decode(&ad)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity design: %w", err)
	}
	return &ad, nil
}

// ListActivityDesigns returns ADs matching the optional department and
// status filters, newest first.
func (r *Repository) ListActivityDesigns(ctx context.Context, department string, statuses []models.Status, includeArchived bool) ([]models.ActivityDesign, error) {
	filter := requestFilter(department, statuses, includeArchived)
	cursor, err := r.db.Collection(collADs).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list activity designs: %w", err)
	}
	var out []models.ActivityDesign
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode activity designs: %w", err)
	}
	return out, nil
}

// UpdateActivityDesign replaces an AD document.
func (r *Repository) UpdateActivityDesign(ctx context.Context, ad *models.ActivityDesign) error {
	res, err := r.db.Collection(collADs).ReplaceOne(ctx, bson.M{"_id": ad.ID}, ad)
	if err != nil {
		return fmt.Errorf("failed to update activity design: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func requestFilter(department string, statuses []models.Status, includeArchived bool) bson.M {
	filter := bson.M{}
	if department != "" {
		filter["department"] = department
	}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	if !includeArchived {
		filter["is_archived"] = false
	}
	return filter
}

// CountRequestsByStatus counts PRs or ADs per status for dashboards.
func (r *Repository) CountRequestsByStatus(ctx context.Context, kind models.DocumentKind, status models.Status) (int64, error) {
	coll := collPRs
	if kind == models.KindActivityDesign {
		coll = collADs
	}
	n, err := r.db.Collection(coll).CountDocuments(ctx, bson.M{"status": status, "is_archived": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s by status: %w", kind, err)
	}
	return n, nil
}

// ArchiveRequestsByAllocations archives all active PRs and ADs under the
// given allocations.
func (r *Repository) ArchiveRequestsByAllocations(ctx context.Context, allocationIDs []string, info models.ArchiveInfo) error {
	if len(allocationIDs) == 0 {
		return nil
	}
	filter := bson.M{"budget_allocation_id": bson.M{"$in": allocationIDs}, "is_archived": false}
	for _, coll := range []string{collPRs, collADs} {
		if _, err := r.db.Collection(coll).UpdateMany(ctx, filter, bson.M{"$set": archiveSet(info)}); err != nil {
			return fmt.Errorf("failed to archive %s: %w", coll, err)
		}
	}
	return nil
}

// RestoreRequestsByAllocations restores fiscal-year archived PRs and ADs
// under the given allocations.
func (r *Repository) RestoreRequestsByAllocations(ctx context.Context, allocationIDs []string, info models.ArchiveInfo) error {
	if len(allocationIDs) == 0 {
		return nil
	}
	filter := bson.M{
		"budget_allocation_id": bson.M{"$in": allocationIDs},
		"is_archived":          true,
		"archive_type":         models.ArchiveTypeFiscalYear,
	}
	for _, coll := range []string{collPRs, collADs} {
		if _, err := r.db.Collection(coll).UpdateMany(ctx, filter, bson.M{"$set": archiveSet(info)}); err != nil {
			return fmt.Errorf("failed to restore %s: %w", coll, err)
		}
	}
	return nil
}

// InsertLineItemAllocation records the quarterly reservation or consumption
// of a document against a planning line item.
func (r *Repository) InsertLineItemAllocation(ctx context.Context, la *models.LineItemAllocation) error {
	if _, err := r.db.Collection(collLineAllocs).InsertOne(ctx, la); err != nil {
		return fmt.Errorf("failed to insert line item allocation: %w", err)
	}
	return nil
}

// ListLineItemAllocationsByDocument returns the allocations of one PR or AD.
func (r *Repository) ListLineItemAllocationsByDocument(ctx context.Context, kind models.DocumentKind, documentID string) ([]models.LineItemAllocation, error) {
	cursor, err := r.db.Collection(collLineAllocs).Find(ctx,
		bson.M{"document_kind": kind, "document_id": documentID})
	if err != nil {
		return nil, fmt.Errorf("failed to list line item allocations: %w", err)
	}
	var out []models.LineItemAllocation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode line item allocations: %w", err)
	}
	return out, nil
}

// UpdateLineItemAllocationStatus mirrors a document's status change onto
// its allocations so quarter sums never need a join.
func (r *Repository) UpdateLineItemAllocationStatus(ctx context.Context, kind models.DocumentKind, documentID string, status models.Status) error {
	_, err := r.db.Collection(collLineAllocs).UpdateMany(ctx,
		bson.M{"document_kind": kind, "document_id": documentID},
		bson.M{"$set": bson.M{"document_status": status}})
	if err != nil {
		return fmt.Errorf("failed to update line item allocation status: %w", err)
	}
	return nil
}

// DeleteLineItemAllocationsByDocument removes the allocations of a document,
// used when a draft is edited before resubmission.
func (r *Repository) DeleteLineItemAllocationsByDocument(ctx context.Context, kind models.DocumentKind, documentID string) error {
	_, err := r.db.Collection(collLineAllocs).DeleteMany(ctx,
		bson.M{"document_kind": kind, "document_id": documentID})
	if err != nil {
		return fmt.Errorf("failed to delete line item allocations: %w", err)
	}
	return nil
}

// SumLineItemAllocations aggregates the committed amount against one line
// item quarter across documents in the given statuses.
func (r *Repository) SumLineItemAllocations(ctx context.Context, lineItemID string, q models.Quarter, statuses []models.Status) (decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"pre_line_item_id": lineItemID,
			"quarter":          q,
			"document_status":  bson.M{"$in": statuses},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}}},
	}
	cursor, err := r.db.Collection(collLineAllocs).Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum line item allocations: %w", err)
	}
	var rows []struct {
		Total decimal.Decimal `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode line item allocation sum: %w", err)
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return rows[0].Total, nil
}

// CountLineItemAllocations counts committed documents of one kind against a
// line item quarter.
func (r *Repository) CountLineItemAllocations(ctx context.Context, lineItemID string, q models.Quarter, kind models.DocumentKind, statuses []models.Status) (int64, error) {
	n, err := r.db.Collection(collLineAllocs).CountDocuments(ctx, bson.M{
		"pre_line_item_id": lineItemID,
		"quarter":          q,
		"document_kind":    kind,
		"document_status":  bson.M{"$in": statuses},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count line item allocations: %w", err)
	}
	return n, nil
}
