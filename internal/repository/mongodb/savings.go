package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opencampus/budgetd/internal/domain/models"
)

// InsertSavings stores a savings snapshot with its per-item breakdown.
func (r *Repository) InsertSavings(ctx context.Context, s *models.BudgetSavings, items []models.LineItemSavings) error {
	if _, err := r.db.Collection(collSavings).InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to insert savings snapshot: %w", err)
	}
	if len(items) > 0 {
		docs := make([]interface{}, len(items))
		for i := range items {
			docs[i] = items[i]
		}
		if _, err := r.db.Collection(collItemSavings).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("failed to insert line item savings: %w", err)
		}
	}
	return nil
}

// ListSavingsByFiscalYear returns the savings snapshots of one fiscal year.
func (r *Repository) ListSavingsByFiscalYear(ctx context.Context, fiscalYear string) ([]models.BudgetSavings, error) {
	cursor, err := r.db.Collection(collSavings).Find(ctx, bson.M{"fiscal_year": fiscalYear},
		options.Find().SetSort(bson.D{{Key: "computed_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list savings: %w", err)
	}
	var out []models.BudgetSavings
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode savings: %w", err)
	}
	return out, nil
}

// ListLineItemSavings returns the per-item breakdown of one snapshot.
func (r *Repository) ListLineItemSavings(ctx context.Context, savingsID string) ([]models.LineItemSavings, error) {
	cursor, err := r.db.Collection(collItemSavings).Find(ctx, bson.M{"savings_id": savingsID})
	if err != nil {
		return nil, fmt.Errorf("failed to list line item savings: %w", err)
	}
	var out []models.LineItemSavings
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode line item savings: %w", err)
	}
	return out, nil
}
