package models

import "time"

// ArchiveType distinguishes automatic fiscal-year-end archiving from manual
// archive/delete actions. Restore of a fiscal-year cascade skips manually
// archived records.
type ArchiveType string

const (
	ArchiveTypeFiscalYear ArchiveType = "FISCAL_YEAR"
	ArchiveTypeManual     ArchiveType = "MANUAL"
)

// ArchiveInfo is embedded by every archivable entity. Default repository
// queries exclude records with IsArchived set.
type ArchiveInfo struct {
	IsArchived    bool        `bson:"is_archived" json:"isArchived"`
	ArchivedAt    *time.Time  `bson:"archived_at,omitempty" json:"archivedAt,omitempty"`
	ArchivedBy    string      `bson:"archived_by,omitempty" json:"archivedBy,omitempty"`
	ArchiveReason string      `bson:"archive_reason,omitempty" json:"archiveReason,omitempty"`
	ArchiveType   ArchiveType `bson:"archive_type,omitempty" json:"archiveType,omitempty"`
}

// NewArchiveInfo builds the marker applied to a record when it is archived.
func NewArchiveInfo(archiveType ArchiveType, by, reason string, at time.Time) ArchiveInfo {
	return ArchiveInfo{
		IsArchived:    true,
		ArchivedAt:    &at,
		ArchivedBy:    by,
		ArchiveReason: reason,
		ArchiveType:   archiveType,
	}
}
