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

// InsertRealignment stores a new realignment request.
func (r *Repository) InsertRealignment(ctx context.Context, re *models.Realignment) error {
	if _, err := r.db.Collection(collRealignments).InsertOne(ctx, re); err != nil {
		return fmt.Errorf("failed to insert realignment: %w", err)
	}
	return nil
}

// GetRealignment fetches one realignment by id.
func (r *Repository) GetRealignment(ctx context.Context, id string) (*models.Realignment, error) {
	var re models.Realignment
	err := r.db.Collection(collRealignments).FindOne(ctx, bson.M{"_id": id}).Decode(&re)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get realignment: %w", err)
	}
	return &re, nil
}

// ListRealignments returns realignments matching the optional requester and
// status filters, newest first.
func (r *Repository) ListRealignments(ctx context.Context, requestedBy string, statuses []models.Status, includeArchived bool) ([]models.Realignment, error) {
	filter := bson.M{}
	if requestedBy != "" {
		filter["requested_by"] = requestedBy
	}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	if !includeArchived {
		filter["is_archived"] = false
	}
	cursor, err := r.db.Collection(collRealignments).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list realignments: %w", err)
	}
	var out []models.Realignment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode realignments: %w", err)
	}
	return out, nil
}

// UpdateRealignment replaces a realignment document.
func (r *Repository) UpdateRealignment(ctx context.Context, re *models.Realignment) error {
	res, err := r.db.Collection(collRealignments).ReplaceOne(ctx, bson.M{"_id": re.ID}, re)
	if err != nil {
		return fmt.Errorf("failed to update realignment: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// PendingRealignmentQuarterTotal sums a quarter's amount across other
// in-flight realignments drawing from the same source line item. The
// excludeID keeps a realignment from counting against itself.
func (r *Repository) PendingRealignmentQuarterTotal(ctx context.Context, sourceLineItemID string, q models.Quarter, excludeID string) (decimal.Decimal, error) {
	field, ok := quarterField(q)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid quarter %q", q)
	}
	match := bson.M{
		"source_line_item_id": sourceLineItemID,
		"status":              bson.M{"$in": models.ReservedStatuses},
		"is_archived":         false,
	}
	if excludeID != "" {
		match["_id"] = bson.M{"$ne": excludeID}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$" + field},
		}}},
	}
	cursor, err := r.db.Collection(collRealignments).Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum pending realignments: %w", err)
	}
	var rows []struct {
		Total decimal.Decimal `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode pending realignment sum: %w", err)
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return rows[0].Total, nil
}

// ArchiveRealignmentsByPREs archives active realignments drawing from the
// given PREs.
func (r *Repository) ArchiveRealignmentsByPREs(ctx context.Context, preIDs []string, info models.ArchiveInfo) error {
	if len(preIDs) == 0 {
		return nil
	}
	_, err := r.db.Collection(collRealignments).UpdateMany(ctx,
		bson.M{"source_pre_id": bson.M{"$in": preIDs}, "is_archived": false},
		bson.M{"$set": archiveSet(info)})
	if err != nil {
		return fmt.Errorf("failed to archive realignments: %w", err)
	}
	return nil
}

// RestoreRealignmentsByPREs restores fiscal-year archived realignments
// drawing from the given PREs.
func (r *Repository) RestoreRealignmentsByPREs(ctx context.Context, preIDs []string, info models.ArchiveInfo) error {
	if len(preIDs) == 0 {
		return nil
	}
	_, err := r.db.Collection(collRealignments).UpdateMany(ctx,
		bson.M{
			"source_pre_id": bson.M{"$in": preIDs},
			"is_archived":   true,
			"archive_type":  models.ArchiveTypeFiscalYear,
		},
		bson.M{"$set": archiveSet(info)})
	if err != nil {
		return fmt.Errorf("failed to restore realignments: %w", err)
	}
	return nil
}
