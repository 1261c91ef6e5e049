package models

import "time"

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "In Progress"
	AttemptCompleted  AttemptStatus = "Completed"
	AttemptAbandoned  AttemptStatus = "Abandoned"
)

// TestAttempt is one pass through a test's question set. An In Progress
// attempt is a resumable snapshot keyed by its test (at most one per test,
// with a deterministic id); a Completed attempt has random identity and is
// append-only history, never mutated after insertion.
type TestAttempt struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	TestID    string `json:"test_id"`
	TestTitle string `json:"test_title"`

	Questions       []Question      `json:"questions"`
	CurrentIndex    int             `json:"current_index"`
	Answers         map[string]int  `json:"answers"`
	MarkedForReview map[string]bool `json:"marked_for_review"`
	TimeSpent       map[string]int  `json:"time_spent"`

	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	TimeRemaining int       `json:"time_remaining"` // seconds left when snapshotted
	TotalTime     int       `json:"total_time"`

	Score      float64       `json:"score"`
	TotalMarks int           `json:"total_marks"`
	Status     AttemptStatus `json:"status"`
}

// InProgressAttemptID derives the deterministic identity of the resumable
// snapshot for a test. Saving progress for the same test replaces the prior
// record instead of appending.
func InProgressAttemptID(testID string) string {
	return "in-progress-" + testID
}

// AnsweredCount returns how many questions carry a recorded answer.
func (a *TestAttempt) AnsweredCount() int {
	if a == nil {
		return 0
	}
	return len(a.Answers)
}

// AttemptStats aggregates a user's completed history.
type AttemptStats struct {
	TotalAttempts     int     `json:"total_attempts"`
	CompletedAttempts int     `json:"completed_attempts"`
	AverageScore      float64 `json:"average_score"`
	BestScore         float64 `json:"best_score"`
	TotalTimeSpent    int     `json:"total_time_spent"`
	TestsAttempted    int     `json:"tests_attempted"`
}
