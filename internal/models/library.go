package models

import "time"

type LibraryItemType string

const (
	LibrarySaved LibraryItemType = "saved"
	LibraryWrong LibraryItemType = "wrong"
	LibraryLearn LibraryItemType = "learn"
)

// LibraryItem is a question flagged for later reference. Keyed by
// (QuestionID, Type): the same question may exist as saved, wrong and learn
// simultaneously, but at most once per type. Concurrent writers reconcile by
// last-write-wins on UpdatedAt.
type LibraryItem struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	QuestionID string          `json:"question_id"`
	Type       LibraryItemType `json:"type"`
	Question   Question        `json:"question"`
	TestID     string          `json:"test_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// LibraryKey identifies a library item within a user's library.
type LibraryKey struct {
	QuestionID string
	Type       LibraryItemType
}

func (i *LibraryItem) Key() LibraryKey {
	return LibraryKey{QuestionID: i.QuestionID, Type: i.Type}
}
