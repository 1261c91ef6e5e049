package models

import "time"

// Session is the single live test-attempt owned by the session engine. At most
// one session is active at a time; all mutation goes through the engine.
//
// Invariant: either IsPlaying is true and EndTime is a valid future deadline,
// or IsPlaying is false and TimeRemaining is frozen.
type Session struct {
	TestID    string     `json:"test_id"`
	TestTitle string     `json:"test_title"`
	Questions []Question `json:"questions"`

	CurrentIndex    int             `json:"current_index"`
	Answers         map[string]int  `json:"answers"`           // questionID -> selected option; absence = unanswered
	MarkedForReview map[string]bool `json:"marked_for_review"` // questionID -> flagged
	TimeSpent       map[string]int  `json:"time_spent"`        // questionID -> accumulated seconds

	// QuestionVisitedAt is the wall-clock instant the current question became
	// current, nil while paused.
	QuestionVisitedAt *time.Time `json:"question_visited_at"`

	TimeRemaining    int       `json:"time_remaining"` // seconds
	TotalTime        int       `json:"total_time"`     // seconds, fixed at start
	EndTime          time.Time `json:"end_time"`       // absolute deadline, recomputed on resume
	SessionStartTime time.Time `json:"session_start_time"`
	IsPlaying        bool      `json:"is_playing"`
}

// Active reports whether a session holds a live test.
func (s *Session) Active() bool {
	return s != nil && s.TestID != ""
}

// CurrentQuestion returns the question under the cursor, or nil when the
// session is empty or the cursor is out of range.
func (s *Session) CurrentQuestion() *Question {
	if s == nil || s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.CurrentIndex]
}

// AnsweredCount returns how many questions carry a recorded answer.
func (s *Session) AnsweredCount() int {
	if s == nil {
		return 0
	}
	return len(s.Answers)
}
