package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoredDocument_SizeDisplay(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"bytes", 512, "512 B"},
		{"kilobytes", 2048, "2.0 KB"},
		{"megabytes", 5 * 1024 * 1024, "5.0 MB"},
		{"gigabytes", 3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &StoredDocument{SizeBytes: tt.bytes}
			assert.Equal(t, tt.want, doc.SizeDisplay())
		})
	}
}

func TestStoredDocument_FileFormat(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"report.pdf", "pdf_files"},
		{"Memo.DOCX", "word_files"},
		{"pre_2026.xlsx", "excel_files"},
		{"data.csv", "excel_files"},
		{"photo.png", "other_files"},
		{"noext", "other_files"},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			doc := &StoredDocument{FileName: tt.file}
			assert.Equal(t, tt.want, doc.FileFormat())
		})
	}
}
