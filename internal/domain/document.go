package domain

import (
	"strings"
	"time"
)

// DocumentStatus tracks a document through processing.
type DocumentStatus string

const (
	DocumentStatusUploaded  DocumentStatus = "UPLOADED"
	DocumentStatusParsing   DocumentStatus = "PARSING"
	DocumentStatusProcessed DocumentStatus = "PROCESSED"
	DocumentStatusError     DocumentStatus = "ERROR"
)

// CanTransitionTo reports whether moving from s to next is allowed.
// PARSING exits only to PROCESSED or ERROR; finished documents may be
// resubmitted, which moves them back to PARSING.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	switch s {
	case DocumentStatusUploaded, DocumentStatusProcessed, DocumentStatusError:
		return next == DocumentStatusParsing
	case DocumentStatusParsing:
		return next == DocumentStatusProcessed || next == DocumentStatusError
	}
	return false
}

// Document is an uploaded receipt or statement.
type Document struct {
	ID               string         `json:"id"`
	UserID           string         `json:"user_id"`
	OriginalFilename string         `json:"original_filename"`
	StorageURI       string         `json:"storage_uri"`
	MimeType         string         `json:"mime_type"`
	Status           DocumentStatus `json:"status"`
	UserNote         string         `json:"user_note,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// SupportedMimeType reports whether documents of this type can be sent to
// the reasoning service.
func SupportedMimeType(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	return mime == "application/pdf" || strings.HasPrefix(mime, "image/")
}
