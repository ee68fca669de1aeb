package mediastore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencampus/budgetd/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(config.MediaStoreConfig{
		BaseURL:    server.URL,
		APIKey:     "test-key",
		RootFolder: "budget-docs",
	})
}

func TestUpload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/files", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "budget-docs/2026-2027/pdf_files", r.FormValue("folder"))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "pr-signed.pdf", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(UploadResult{
			URL:       "https://cdn.example.com/budget-docs/2026-2027/pdf_files/pr-signed.pdf",
			Path:      "budget-docs/2026-2027/pdf_files/pr-signed.pdf",
			SizeBytes: 11,
		})
	})

	res, err := client.Upload(context.Background(), UploadRequest{
		FileName:    "pr-signed.pdf",
		ContentType: "application/pdf",
		Folder:      client.FolderFor("2026-2027", "pr-signed.pdf"),
		Body:        strings.NewReader("pdf content"),
	})
	require.NoError(t, err)
	assert.Contains(t, res.URL, "pr-signed.pdf")
	assert.Equal(t, int64(11), res.SizeBytes)
}

func TestUpload_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		w.Write([]byte(`{"error":{"message":"file exceeds 10MB limit","code":413}}`))
	})

	_, err := client.Upload(context.Background(), UploadRequest{
		FileName: "huge.pdf",
		Body:     strings.NewReader("x"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file exceeds 10MB limit")
	assert.Contains(t, err.Error(), "413")
}

func TestDelete(t *testing.T) {
	deleted := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/files/budget-docs/2026-2027/pdf_files/old.pdf", r.URL.Path)
		deleted = true
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.Delete(context.Background(), "budget-docs/2026-2027/pdf_files/old.pdf")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestDelete_NotFoundIgnored(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	assert.NoError(t, client.Delete(context.Background(), "budget-docs/missing.pdf"))
}

func TestFolderFor(t *testing.T) {
	client := NewClient(config.MediaStoreConfig{RootFolder: "budget-docs"})

	tests := []struct {
		fileName string
		want     string
	}{
		{"pr-form.pdf", "budget-docs/2026-2027/pdf_files"},
		{"pre-template.xlsx", "budget-docs/2026-2027/excel_files"},
		{"activity-design.docx", "budget-docs/2026-2027/word_files"},
		{"photo.png", "budget-docs/2026-2027/other_files"},
	}
	for _, tt := range tests {
		t.Run(tt.fileName, func(t *testing.T) {
			assert.Equal(t, tt.want, client.FolderFor("2026-2027", tt.fileName))
		})
	}
}
