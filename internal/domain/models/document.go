package models

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// StoredDocument is a file attached to a workflow record, kept in the
// external media store.
type StoredDocument struct {
	ID           string       `bson:"_id" json:"id"`
	EntityKind   DocumentKind `bson:"entity_kind" json:"entityKind"`
	EntityID     string       `bson:"entity_id" json:"entityId"`
	FileName     string       `bson:"file_name" json:"fileName"`
	ContentType  string       `bson:"content_type,omitempty" json:"contentType,omitempty"`
	SizeBytes    int64        `bson:"size_bytes" json:"sizeBytes"`
	StorageURL   string       `bson:"storage_url" json:"storageUrl"`
	Folder       string       `bson:"folder" json:"folder"`
	IsSignedCopy bool         `bson:"is_signed_copy" json:"isSignedCopy"`
	UploadedBy   string       `bson:"uploaded_by" json:"uploadedBy"`
	UploadedAt   time.Time    `bson:"uploaded_at" json:"uploadedAt"`
}

// SizeDisplay renders the file size in the largest unit under 1024.
func (d *StoredDocument) SizeDisplay() string {
	size := float64(d.SizeBytes)
	for _, unit := range []string{"B", "KB", "MB"} {
		if size < 1024 {
			if unit == "B" {
				return fmt.Sprintf("%d %s", d.SizeBytes, unit)
			}
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f GB", size)
}

// FileFormat groups the file by extension for media store folder layout.
func (d *StoredDocument) FileFormat() string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(d.FileName), ".")) {
	case "pdf":
		return "pdf_files"
	case "doc", "docx":
		return "word_files"
	case "xls", "xlsx", "csv":
		return "excel_files"
	}
	return "other_files"
}
