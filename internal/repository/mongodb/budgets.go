package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/domain/models"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique index rejects an insert.
var ErrDuplicate = errors.New("record already exists")

// InsertBudget stores a new approved budget. A second budget for the same
// fiscal year is rejected by the unique index.
func (r *Repository) InsertBudget(ctx context.Context, b *models.ApprovedBudget) error {
	_, err := r.db.Collection(collBudgets).InsertOne(ctx, b)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("fiscal year %s: %w", b.FiscalYear, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert budget: %w", err)
	}
	return nil
}

// GetBudget fetches one budget by id.
func (r *Repository) GetBudget(ctx context.Context, id string) (*models.ApprovedBudget, error) {
	var b models.ApprovedBudget
	err := r.db.Collection(collBudgets).FindOne(ctx, bson.M{"_id": id}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return &b, nil
}

// GetBudgetByFiscalYear fetches the budget for a fiscal year.
func (r *Repository) GetBudgetByFiscalYear(ctx context.Context, fiscalYear string) (*models.ApprovedBudget, error) {
	var b models.ApprovedBudget
	err := r.db.Collection(collBudgets).FindOne(ctx, bson.M{"fiscal_year": fiscalYear}).Decode(&b)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget by fiscal year: %w", err)
	}
	return &b, nil
}

// ListBudgets returns budgets, optionally including archived ones, newest
// fiscal year first.
func (r *Repository) ListBudgets(ctx context.Context, includeArchived bool) ([]models.ApprovedBudget, error) {
	filter := bson.M{}
	if !includeArchived {
		filter["is_archived"] = false
	}
	opts := options.Find().SetSort(bson.D{{Key: "fiscal_year", Value: -1}})
	cursor, err := r.db.Collection(collBudgets).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}
	var out []models.ApprovedBudget
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode budgets: %w", err)
	}
	return out, nil
}

// ListArchivedBudgets returns archived budgets only.
func (r *Repository) ListArchivedBudgets(ctx context.Context) ([]models.ApprovedBudget, error) {
	cursor, err := r.db.Collection(collBudgets).Find(ctx, bson.M{"is_archived": true},
		options.Find().SetSort(bson.D{{Key: "archived_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list archived budgets: %w", err)
	}
	var out []models.ApprovedBudget
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode archived budgets: %w", err)
	}
	return out, nil
}

// UpdateBudget replaces a budget document.
func (r *Repository) UpdateBudget(ctx context.Context, b *models.ApprovedBudget) error {
	b.UpdatedAt = time.Now()
	res, err := r.db.Collection(collBudgets).ReplaceOne(ctx, bson.M{"_id": b.ID}, b)
	if err != nil {
		return fmt.Errorf("failed to update budget: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustBudgetAmounts applies signed deltas to the total and remaining
// amounts in one atomic update, for supplemental and reversion adjustments.
// A zero delta leaves the field untouched.
func (r *Repository) AdjustBudgetAmounts(ctx context.Context, id string, amountDelta, remainingDelta decimal.Decimal) error {
	inc := bson.M{}
	if !amountDelta.IsZero() {
		inc["amount"] = amountDelta
	}
	if !remainingDelta.IsZero() {
		inc["remaining_budget"] = remainingDelta
	}
	update := bson.M{"$set": bson.M{"updated_at": time.Now()}}
	if len(inc) > 0 {
		update["$inc"] = inc
	}
	res, err := r.db.Collection(collBudgets).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to adjust budget amounts: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetBudgetArchive flips the archive fields of a budget.
func (r *Repository) SetBudgetArchive(ctx context.Context, id string, info models.ArchiveInfo) error {
	res, err := r.db.Collection(collBudgets).UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": archiveSet(info),
	})
	if err != nil {
		return fmt.Errorf("failed to set budget archive state: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBudgetsWithFiscalYearBefore returns active budgets whose fiscal year
// start is before the given year, for the year-end archive sweep.
func (r *Repository) ListBudgetsWithFiscalYearBefore(ctx context.Context, year int) ([]models.ApprovedBudget, error) {
	budgets, err := r.ListBudgets(ctx, false)
	if err != nil {
		return nil, err
	}
	var out []models.ApprovedBudget
	for _, b := range budgets {
		startYear, ok := fiscalYearStart(b.FiscalYear)
		if !ok {
			r.log.Warn("skipping budget with malformed fiscal year",
				zap.String("budget_id", b.ID),
				zap.String("fiscal_year", b.FiscalYear))
			continue
		}
		if startYear < year {
			out = append(out, b)
		}
	}
	return out, nil
}

// archiveSet builds the $set document for archive state changes, shared by
// all archivable collections.
func archiveSet(info models.ArchiveInfo) bson.M {
	return bson.M{
		"is_archived":    info.IsArchived,
		"archived_at":    info.ArchivedAt,
		"archived_by":    info.ArchivedBy,
		"archive_reason": info.ArchiveReason,
		"archive_type":   info.ArchiveType,
	}
}

// fiscalYearStart parses the starting year out of labels like "2025-2026"
// or "2025".
func fiscalYearStart(fiscalYear string) (int, bool) {
	if len(fiscalYear) < 4 {
		return 0, false
	}
	year := 0
	for _, c := range fiscalYear[:4] {
		if c < '0' || c > '9' {
			return 0, false
		}
		year = year*10 + int(c-'0')
	}
	return year, true
}
