package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/opencampus/budgetd/internal/domain/models"
)

// InsertDocument stores the metadata of an uploaded file.
func (r *Repository) InsertDocument(ctx context.Context, d *models.StoredDocument) error {
	if _, err := r.db.Collection(collDocuments).InsertOne(ctx, d); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// GetDocument fetches one stored document by id.
func (r *Repository) GetDocument(ctx context.Context, id string) (*models.StoredDocument, error) {
	var d models.StoredDocument
	err := r.db.Collection(collDocuments).FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &d, nil
}

// ListDocumentsByEntity returns the files attached to one record.
func (r *Repository) ListDocumentsByEntity(ctx context.Context, kind models.DocumentKind, entityID string) ([]models.StoredDocument, error) {
	cursor, err := r.db.Collection(collDocuments).Find(ctx,
		bson.M{"entity_kind": kind, "entity_id": entityID},
		options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	var out []models.StoredDocument
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode documents: %w", err)
	}
	return out, nil
}

// HasSignedCopy reports whether a signed copy has been attached to a record.
func (r *Repository) HasSignedCopy(ctx context.Context, kind models.DocumentKind, entityID string) (bool, error) {
	n, err := r.db.Collection(collDocuments).CountDocuments(ctx,
		bson.M{"entity_kind": kind, "entity_id": entityID, "is_signed_copy": true})
	if err != nil {
		return false, fmt.Errorf("failed to check signed copy: %w", err)
	}
	return n > 0, nil
}
