package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/prepstack/attempt-engine/internal/models"
)

type EventType string

const (
	EventAttemptCompleted EventType = "attempt.completed"
	EventProgressSaved    EventType = "progress.saved"
	EventLibraryUpdated   EventType = "library.updated"
)

const (
	eventSource  = "attempt-engine"
	eventVersion = "1.0"
)

// AttemptEvent is the envelope published for session lifecycle events.
// Downstream consumers (notifications, analytics) subscribe to these; the
// engine itself never depends on a consumer being present.
type AttemptEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	UserID    string      `json:"user_id"`
	TestID    string      `json:"test_id"`
	Data      interface{} `json:"data,omitempty"`
}

type AttemptCompletedData struct {
	AttemptID  string  `json:"attempt_id"`
	TestTitle  string  `json:"test_title"`
	Score      float64 `json:"score"`
	TotalMarks int     `json:"total_marks"`
	Answered   int     `json:"answered"`
	Questions  int     `json:"questions"`
}

type ProgressSavedData struct {
	TestID        string `json:"test_id"`
	CurrentIndex  int    `json:"current_index"`
	Answered      int    `json:"answered"`
	TimeRemaining int    `json:"time_remaining"`
}

type LibraryUpdatedData struct {
	QuestionID string                 `json:"question_id"`
	ItemType   models.LibraryItemType `json:"item_type"`
	Removed    bool                   `json:"removed"`
}

func newEvent(typ EventType, userID, testID string, data interface{}) *AttemptEvent {
	return &AttemptEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		TestID:    testID,
		Data:      data,
	}
}

func NewAttemptCompletedEvent(userID string, attempt *models.TestAttempt) *AttemptEvent {
	return newEvent(EventAttemptCompleted, userID, attempt.TestID, AttemptCompletedData{
		AttemptID:  attempt.ID,
		TestTitle:  attempt.TestTitle,
		Score:      attempt.Score,
		TotalMarks: attempt.TotalMarks,
		Answered:   attempt.AnsweredCount(),
		Questions:  len(attempt.Questions),
	})
}

func NewProgressSavedEvent(userID string, attempt *models.TestAttempt) *AttemptEvent {
	return newEvent(EventProgressSaved, userID, attempt.TestID, ProgressSavedData{
		TestID:        attempt.TestID,
		CurrentIndex:  attempt.CurrentIndex,
		Answered:      attempt.AnsweredCount(),
		TimeRemaining: attempt.TimeRemaining,
	})
}

func NewLibraryUpdatedEvent(userID, testID, questionID string, itemType models.LibraryItemType, removed bool) *AttemptEvent {
	return newEvent(EventLibraryUpdated, userID, testID, LibraryUpdatedData{
		QuestionID: questionID,
		ItemType:   itemType,
		Removed:    removed,
	})
}
