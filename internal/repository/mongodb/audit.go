package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opencampus/budgetd/internal/domain/models"
)

// InsertTransaction appends one entry to the financial audit trail.
func (r *Repository) InsertTransaction(ctx context.Context, t *models.BudgetTransaction) error {
	if _, err := r.db.Collection(collTransactions).InsertOne(ctx, t); err != nil {
		return fmt.Errorf("failed to insert budget transaction: %w", err)
	}
	return nil
}

// ListTransactionsByAllocation returns an allocation's transactions, newest
// first, capped at limit (0 means no cap).
func (r *Repository) ListTransactionsByAllocation(ctx context.Context, allocationID string, limit int64) ([]models.BudgetTransaction, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cursor, err := r.db.Collection(collTransactions).Find(ctx, bson.M{"allocation_id": allocationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	var out []models.BudgetTransaction
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return out, nil
}

// InsertAuditEntry appends one entry to the action audit trail.
func (r *Repository) InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	if _, err := r.db.Collection(collAuditEntries).InsertOne(ctx, e); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// ListRecentAuditEntries returns the newest audit entries.
func (r *Repository) ListRecentAuditEntries(ctx context.Context, limit int64) ([]models.AuditEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cursor, err := r.db.Collection(collAuditEntries).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	var out []models.AuditEntry
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return out, nil
}
