package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names.
const (
	collBudgets       = "approved_budgets"
	collAllocations   = "budget_allocations"
	collPREs          = "department_pres"
	collPRELineItems  = "pre_line_items"
	collPREReceipts   = "pre_receipts"
	collPRs           = "purchase_requests"
	collADs           = "activity_designs"
	collLineAllocs    = "line_item_allocations"
	collRealignments  = "realignments"
	collTransactions  = "budget_transactions"
	collAuditEntries  = "audit_entries"
	collNotifications = "notifications"
	collDocuments     = "stored_documents"
	collSavings       = "budget_savings"
	collItemSavings   = "line_item_savings"
	collCounters      = "counters"
)

// Repository holds the MongoDB connection and exposes all persistence
// operations. Service packages depend on narrow slices of it through their
// own interfaces.
type Repository struct {
	client *mongo.Client
	db     *mongo.Database
	log    *zap.Logger
}

// NewRepository connects to MongoDB, verifies the connection and prepares
// indexes. The decimal registry makes decimal.Decimal fields round-trip as
// Decimal128 instead of strings.
func NewRepository(ctx context.Context, uri, dbName string, log *zap.Logger) (*Repository, error) {
	clientOptions := options.Client().ApplyURI(uri).SetRegistry(decimalRegistry())
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &Repository{
		client: client,
		db:     client.Database(dbName),
		log:    log,
	}

	if err := r.ensureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collBudgets: {
			{Keys: bson.D{{Key: "fiscal_year", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		collAllocations: {
			{Keys: bson.D{{Key: "approved_budget_id", Value: 1}}},
			{Keys: bson.D{{Key: "department", Value: 1}, {Key: "is_archived", Value: 1}}},
		},
		collPREs: {
			{Keys: bson.D{{Key: "budget_allocation_id", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "is_archived", Value: 1}}},
		},
		collPRELineItems: {
			{Keys: bson.D{{Key: "pre_id", Value: 1}}},
		},
		collPREReceipts: {
			{Keys: bson.D{{Key: "pre_id", Value: 1}}},
		},
		collPRs: {
			{Keys: bson.D{{Key: "pr_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "budget_allocation_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		collADs: {
			{Keys: bson.D{{Key: "ad_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "budget_allocation_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		collLineAllocs: {
			{Keys: bson.D{{Key: "pre_line_item_id", Value: 1}, {Key: "quarter", Value: 1}}},
			{Keys: bson.D{{Key: "document_kind", Value: 1}, {Key: "document_id", Value: 1}}},
		},
		collRealignments: {
			{Keys: bson.D{{Key: "source_pre_id", Value: 1}, {Key: "status", Value: 1}}},
		},
		collTransactions: {
			{Keys: bson.D{{Key: "allocation_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collAuditEntries: {
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
		collNotifications: {
			{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "is_read", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collDocuments: {
			{Keys: bson.D{{Key: "entity_kind", Value: 1}, {Key: "entity_id", Value: 1}}},
		},
		collSavings: {
			{Keys: bson.D{{Key: "fiscal_year", Value: 1}, {Key: "allocation_id", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := r.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("collection %s: %w", name, err)
		}
	}
	return nil
}

// Close disconnects from MongoDB.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
