package models

import "time"

type UploadKind string

const (
	UploadAttempt  UploadKind = "attempt"
	UploadBookmark UploadKind = "bookmark"
)

// PendingUpload is a queued record awaiting remote persistence, created when
// an upload fails or no authenticated session exists at completion time.
// Deduplicated by ID; removed once a retry succeeds.
type PendingUpload struct {
	ID       string       `json:"id"` // attempt id or library item id
	Kind     UploadKind   `json:"kind"`
	Attempt  *TestAttempt `json:"attempt,omitempty"`
	Bookmark *LibraryItem `json:"bookmark,omitempty"`
	QueuedAt time.Time    `json:"queued_at"`
	Retries  int          `json:"retries"`
}
