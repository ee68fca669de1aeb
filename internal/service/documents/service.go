// Package documents manages supporting files and signed approval copies:
// upload to the media store, metadata in the database.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opencampus/budgetd/internal/domain/models"
	"github.com/opencampus/budgetd/internal/repository/mongodb"
	"github.com/opencampus/budgetd/pkg/clients/mediastore"
)

var (
	ErrStorageDisabled = errors.New("file storage is not configured")
	ErrEmptyFile       = errors.New("file is empty")
	ErrTooLarge        = errors.New("file exceeds the upload size limit")
)

// MaxUploadBytes caps a single supporting document.
const MaxUploadBytes = 10 << 20

// Store is the persistence surface the documents service needs.
type Store interface {
	InsertDocument(ctx context.Context, d *models.StoredDocument) error
	GetDocument(ctx context.Context, id string) (*models.StoredDocument, error)
	ListDocumentsByEntity(ctx context.Context, kind models.DocumentKind, entityID string) ([]models.StoredDocument, error)
	HasSignedCopy(ctx context.Context, kind models.DocumentKind, entityID string) (bool, error)
	InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error
}

// Uploader is the slice of the media store client this service uses.
type Uploader interface {
	Upload(ctx context.Context, req mediastore.UploadRequest) (*mediastore.UploadResult, error)
	FolderFor(fiscalYear, fileName string) string
}

// Service stores and lists workflow documents.
type Service struct {
	store  Store
	media  Uploader
	logger *zap.Logger
}

// NewService wires a new documents service. The uploader may be nil when the
// media store is not configured.
func NewService(store Store, media Uploader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, media: media, logger: logger}
}

// UploadInput carries one incoming file.
type UploadInput struct {
	EntityKind   models.DocumentKind
	EntityID     string
	FiscalYear   string
	FileName     string
	ContentType  string
	SizeBytes    int64
	Body         io.Reader
	IsSignedCopy bool
}

// Upload pushes the file to the media store and records its metadata.
func (s *Service) Upload(ctx context.Context, in UploadInput, actor models.Actor) (*models.StoredDocument, error) {
	if s.media == nil {
		return nil, ErrStorageDisabled
	}
	if in.SizeBytes == 0 {
		return nil, ErrEmptyFile
	}
	if in.SizeBytes > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	folder := s.media.FolderFor(in.FiscalYear, in.FileName)
	result, err := s.media.Upload(ctx, mediastore.UploadRequest{
		FileName:    in.FileName,
		ContentType: in.ContentType,
		Folder:      folder,
		Body:        in.Body,
	})
	if err != nil {
		return nil, err
	}

	doc := &models.StoredDocument{
		ID:           uuid.NewString(),
		EntityKind:   in.EntityKind,
		EntityID:     in.EntityID,
		FileName:     in.FileName,
		ContentType:  in.ContentType,
		SizeBytes:    in.SizeBytes,
		StorageURL:   result.URL,
		Folder:       folder,
		IsSignedCopy: in.IsSignedCopy,
		UploadedBy:   actor.ID,
		UploadedAt:   time.Now(),
	}
	if err := s.store.InsertDocument(ctx, doc); err != nil {
		return nil, err
	}

	detail := fmt.Sprintf("uploaded %s (%s)", doc.FileName, doc.SizeDisplay())
	if doc.IsSignedCopy {
		detail = fmt.Sprintf("uploaded signed copy %s (%s)", doc.FileName, doc.SizeDisplay())
	}
	s.audit(ctx, actor, doc, detail)
	s.logger.Info("document stored",
		zap.String("document_id", doc.ID),
		zap.String("entity_kind", string(doc.EntityKind)),
		zap.String("entity_id", doc.EntityID),
		zap.Bool("signed_copy", doc.IsSignedCopy))
	return doc, nil
}

// Get fetches one document's metadata.
func (s *Service) Get(ctx context.Context, id string) (*models.StoredDocument, error) {
	return s.store.GetDocument(ctx, id)
}

// ListForEntity lists the documents attached to a workflow record.
func (s *Service) ListForEntity(ctx context.Context, kind models.DocumentKind, entityID string) ([]models.StoredDocument, error) {
	return s.store.ListDocumentsByEntity(ctx, kind, entityID)
}

// HasSignedCopy reports whether a signed approval copy exists for the record.
func (s *Service) HasSignedCopy(ctx context.Context, kind models.DocumentKind, entityID string) (bool, error) {
	return s.store.HasSignedCopy(ctx, kind, entityID)
}

func (s *Service) audit(ctx context.Context, actor models.Actor, doc *models.StoredDocument, detail string) {
	entry := &models.AuditEntry{
		ID:         uuid.NewString(),
		UserID:     actor.ID,
		Action:     models.ActionCreate,
		EntityKind: doc.EntityKind,
		RecordID:   doc.EntityID,
		Detail:     detail,
		IPAddress:  actor.IPAddress,
		Timestamp:  time.Now(),
	}
	if err := s.store.InsertAuditEntry(ctx, entry); err != nil {
		s.logger.Error("failed to write audit entry", zap.String("document_id", doc.ID), zap.Error(err))
	}
}

// Ensure the concrete repository satisfies the interface.
var _ Store = (*mongodb.Repository)(nil)
