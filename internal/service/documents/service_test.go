package documents

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/budgetd/internal/domain/models"
	"github.com/opencampus/budgetd/pkg/clients/mediastore"
)

type fakeStore struct {
	documents    map[string]*models.StoredDocument
	auditEntries []*models.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{documents: map[string]*models.StoredDocument{}}
}

func (f *fakeStore) InsertDocument(_ context.Context, d *models.StoredDocument) error {
	cp := *d
	f.documents[d.ID] = &cp
	return nil
}

func (f *fakeStore) GetDocument(_ context.Context, id string) (*models.StoredDocument, error) {
	d, ok := f.documents[id]
	if !ok {
		return nil, assert.AnError
	}
	cp := *d
	return &cp, nil
}

func (f *fakeStore) ListDocumentsByEntity(_ context.Context, kind models.DocumentKind, entityID string) ([]models.StoredDocument, error) {
	var out []models.StoredDocument
	for _, d := range f.documents {
		if d.EntityKind == kind && d.EntityID == entityID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeStore) HasSignedCopy(_ context.Context, kind models.DocumentKind, entityID string) (bool, error) {
	for _, d := range f.documents {
		if d.EntityKind == kind && d.EntityID == entityID && d.IsSignedCopy {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertAuditEntry(_ context.Context, e *models.AuditEntry) error {
	f.auditEntries = append(f.auditEntries, e)
	return nil
}

type fakeUploader struct {
	uploads []mediastore.UploadRequest
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, req mediastore.UploadRequest) (*mediastore.UploadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.uploads = append(f.uploads, req)
	return &mediastore.UploadResult{
		URL:  "https://cdn.example.com/" + req.Folder + "/" + req.FileName,
		Path: req.Folder + "/" + req.FileName,
	}, nil
}

func (f *fakeUploader) FolderFor(fiscalYear, fileName string) string {
	doc := models.StoredDocument{FileName: fileName}
	return "budget-docs/" + fiscalYear + "/" + doc.FileFormat()
}

var endUser = models.Actor{ID: "user-1", Department: "Library", Role: models.RoleEndUser}

func TestUpload(t *testing.T) {
	store := newFakeStore()
	uploader := &fakeUploader{}
	svc := NewService(store, uploader, nil)

	doc, err := svc.Upload(context.Background(), UploadInput{
		EntityKind:   models.KindPurchaseRequest,
		EntityID:     "pr-1",
		FiscalYear:   "2026-2027",
		FileName:     "pr-signed.pdf",
		ContentType:  "application/pdf",
		SizeBytes:    2048,
		Body:         strings.NewReader("pdf content"),
		IsSignedCopy: true,
	}, endUser)
	require.NoError(t, err)

	assert.Equal(t, "budget-docs/2026-2027/pdf_files", doc.Folder)
	assert.Contains(t, doc.StorageURL, "pr-signed.pdf")
	assert.True(t, doc.IsSignedCopy)
	assert.Equal(t, endUser.ID, doc.UploadedBy)
	require.Len(t, uploader.uploads, 1)

	signed, err := svc.HasSignedCopy(context.Background(), models.KindPurchaseRequest, "pr-1")
	require.NoError(t, err)
	assert.True(t, signed)
	require.Len(t, store.auditEntries, 1)
	assert.Contains(t, store.auditEntries[0].Detail, "signed copy")
}

func TestUpload_Validation(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeUploader{}, nil)
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{FileName: "empty.pdf"}, endUser)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = svc.Upload(ctx, UploadInput{
		FileName:  "huge.pdf",
		SizeBytes: MaxUploadBytes + 1,
		Body:      strings.NewReader("x"),
	}, endUser)
	assert.ErrorIs(t, err, ErrTooLarge)

	disabled := NewService(store, nil, nil)
	_, err = disabled.Upload(ctx, UploadInput{FileName: "a.pdf", SizeBytes: 1, Body: strings.NewReader("x")}, endUser)
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestListForEntity(t *testing.T) {
	store := newFakeStore()
	uploader := &fakeUploader{}
	svc := NewService(store, uploader, nil)
	ctx := context.Background()

	for _, name := range []string{"quotation-1.pdf", "quotation-2.pdf"} {
		_, err := svc.Upload(ctx, UploadInput{
			EntityKind: models.KindActivityDesign,
			EntityID:   "ad-1",
			FiscalYear: "2026-2027",
			FileName:   name,
			SizeBytes:  100,
			Body:       strings.NewReader("data"),
		}, endUser)
		require.NoError(t, err)
	}

	docs, err := svc.ListForEntity(ctx, models.KindActivityDesign, "ad-1")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	signed, err := svc.HasSignedCopy(ctx, models.KindActivityDesign, "ad-1")
	require.NoError(t, err)
	assert.False(t, signed)
}
