package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/prepstack/attempt-engine/internal/models"
)

// ===== COLLABORATORS =====

// Clock provides wall-clock time. All timer math derives from it, so tests
// inject a fake to make pause/resume and drift behavior deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

// IDGenerator mints identifiers for completed attempts and library items.
// Only uniqueness is required.
type IDGenerator func() string

// UUIDGenerator is the default IDGenerator.
func UUIDGenerator() string { return uuid.NewString() }

// AuthProvider reports the authenticated user, if any. Anonymous sessions
// degrade to local-only persistence with queued uploads.
type AuthProvider interface {
	UserID(ctx context.Context) (string, bool)
}

// StaticAuth is an AuthProvider fixed to one user; empty means anonymous.
type StaticAuth string

func (a StaticAuth) UserID(ctx context.Context) (string, bool) {
	return string(a), a != ""
}

// TestCatalog resolves display titles for known tests.
type TestCatalog interface {
	TitleFor(testID string) (string, bool)
}

// CatalogMap is a TestCatalog backed by a plain map.
type CatalogMap map[string]string

func (c CatalogMap) TitleFor(testID string) (string, bool) {
	title, ok := c[testID]
	return title, ok
}

// ===== SERVICE CONTRACTS =====

// SessionService is the state machine owning the single active test attempt.
// All operations are synchronous, atomic state transitions; remote work they
// trigger runs in the background and never blocks them.
type SessionService interface {
	StartTest(ctx context.Context, req *StartTestRequest) (*SessionView, error)
	SubmitAnswer(ctx context.Context, questionID string, option *int) error
	ToggleMark(ctx context.Context, questionID string) error
	NextQuestion(ctx context.Context) error
	PrevQuestion(ctx context.Context) error
	JumpToQuestion(ctx context.Context, index int) error
	TickTimer(ctx context.Context) int
	ToggleTimer(ctx context.Context) error
	SaveProgress(ctx context.Context) error
	FinishTest(ctx context.Context) (*models.TestAttempt, error)
	Reset(ctx context.Context)
	View() *SessionView
}

// ProgressService snapshots in-progress attempts and reconciles local state
// with remote snapshots.
type ProgressService interface {
	SaveProgress(ctx context.Context, session *models.Session) error
	SyncProgress(ctx context.Context) error
	GetResumable(ctx context.Context, testID string) (*models.TestAttempt, error)
}

// CompletionService finalizes attempts into immutable history records and
// derives library side effects.
type CompletionService interface {
	Finalize(ctx context.Context, attempt *models.TestAttempt) error
	History(ctx context.Context) ([]*models.TestAttempt, error)
	Stats(ctx context.Context) (*models.AttemptStats, error)
}

// LibraryService manages saved / wrong / learn questions.
type LibraryService interface {
	Bookmark(ctx context.Context, question models.Question, testID string, typ models.LibraryItemType) (*models.LibraryItem, error)
	Remove(ctx context.Context, key models.LibraryKey) error
	List(ctx context.Context, typ models.LibraryItemType) ([]*models.LibraryItem, error)
	SyncBookmarks(ctx context.Context) error
}

// UploadService persists attempts and bookmarks remotely, queuing anything
// that cannot be uploaded right now.
type UploadService interface {
	UploadAttempt(ctx context.Context, attempt *models.TestAttempt)
	UploadBookmark(ctx context.Context, item *models.LibraryItem)
	SyncPendingUploads(ctx context.Context) error
}

// ===== REQUEST / VIEW TYPES =====

type StartTestRequest struct {
	TestID          string            `json:"test_id" validate:"required"`
	Title           string            `json:"title"`
	Questions       []models.Question `json:"questions"`
	DurationMinutes int               `json:"duration_minutes" validate:"required,min=1,max=300"`
}

// SessionView is the derived state exposed to presentation layers. It is a
// snapshot: mutating it never affects the live session.
type SessionView struct {
	TestID          string            `json:"test_id"`
	TestTitle       string            `json:"test_title"`
	Questions       []models.Question `json:"questions"`
	CurrentIndex    int               `json:"current_index"`
	CurrentQuestion *models.Question  `json:"current_question,omitempty"`
	Answers         map[string]int    `json:"answers"`
	MarkedForReview map[string]bool   `json:"marked_for_review"`
	TimeSpent       map[string]int    `json:"time_spent"`
	TimeRemaining   int               `json:"time_remaining"`
	TotalTime       int               `json:"total_time"`
	IsPlaying       bool              `json:"is_playing"`
	AnsweredCount   int               `json:"answered_count"`
	Resumed         bool              `json:"resumed"`
}
