// Package mediastore talks to the external file storage service that keeps
// supporting documents and signed approval copies.
package mediastore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/opencampus/budgetd/internal/config"
	"github.com/opencampus/budgetd/internal/domain/models"
)

// Client exposes the media store operations used by the application.
type Client interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
	Delete(ctx context.Context, storagePath string) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
	rootFolder string
}

// NewClient builds a media store client using the provided configuration
// values.
func NewClient(cfg config.MediaStoreConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("X-API-Key", cfg.APIKey).
		SetTimeout(30 * time.Second)

	return &APIClient{
		httpClient: restyClient,
		rootFolder: cfg.RootFolder,
	}
}

// UploadRequest carries one file to store.
type UploadRequest struct {
	FileName    string
	ContentType string
	Folder      string
	Body        io.Reader
}

// UploadResult mirrors the successful upload response.
type UploadResult struct {
	URL       string `json:"url"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size"`
}

// apiError represents a media store error payload.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Upload stores one file under the given folder and returns its public URL.
func (c *APIClient) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	result := new(UploadResult)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFileReader("file", req.FileName, req.Body).
		SetFormData(map[string]string{
			"folder":       req.Folder,
			"content_type": req.ContentType,
		}).
		SetResult(result).
		SetError(apiErr).
		Post("/files")
	if err != nil {
		return nil, fmt.Errorf("upload file: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := ""
		code := resp.StatusCode()
		if apiErr != nil {
			message = apiErr.Error.Message
			if apiErr.Error.Code != 0 {
				code = apiErr.Error.Code
			}
		}
		return nil, fmt.Errorf("media store error: code=%d, message=%s", code, message)
	}

	return result, nil
}

// Delete removes a stored file.
func (c *APIClient) Delete(ctx context.Context, storagePath string) error {
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetError(apiErr).
		Delete(path.Join("/files", storagePath))
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("media store error: code=%d, message=%s", resp.StatusCode(), apiErr.Error.Message)
	}
	return nil
}

// FolderFor builds the storage folder for a file: root, fiscal year, then a
// subfolder by file format so spreadsheets, scans and forms stay separated.
func (c *APIClient) FolderFor(fiscalYear, fileName string) string {
	doc := models.StoredDocument{FileName: fileName}
	return path.Join(c.rootFolder, fiscalYear, doc.FileFormat())
}
