package repositories

import (
	"context"
	"errors"

	"github.com/prepstack/attempt-engine/internal/models"
)

// HistoryPageSize is the fixed page size for remote history fetches.
const HistoryPageSize = 20

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// IsNotFoundError reports whether err indicates a missing record.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// QuestionProvider is the question-bank collaborator. An empty result is the
// failure mode; callers fall back to the static mock set.
type QuestionProvider interface {
	FetchQuestions(ctx context.Context, testID string) ([]models.Question, error)
}

// AttemptRepository stores attempts on the device: completed history plus the
// per-test resumable In Progress snapshot.
type AttemptRepository interface {
	// In Progress snapshots, one per test at most.
	SaveInProgress(ctx context.Context, attempt *models.TestAttempt) error
	GetInProgress(ctx context.Context, testID string) (*models.TestAttempt, error)
	ListInProgress(ctx context.Context) ([]*models.TestAttempt, error)
	DeleteInProgress(ctx context.Context, testID string) error

	// Completed history, append-only, deduplicated by id on merge.
	AppendCompleted(ctx context.Context, attempt *models.TestAttempt) error
	ListCompleted(ctx context.Context) ([]*models.TestAttempt, error)
	GetCompleted(ctx context.Context, id string) (*models.TestAttempt, error)
}

// LibraryRepository stores saved / wrong / learn items keyed by
// (question id, type).
type LibraryRepository interface {
	Upsert(ctx context.Context, item *models.LibraryItem) error
	Get(ctx context.Context, key models.LibraryKey) (*models.LibraryItem, error)
	Delete(ctx context.Context, key models.LibraryKey) error
	List(ctx context.Context) ([]*models.LibraryItem, error)
	ListByType(ctx context.Context, typ models.LibraryItemType) ([]*models.LibraryItem, error)
}

// PendingUploadRepository is the durable outbox of records awaiting remote
// persistence. FIFO by enqueue order, deduplicated by id.
type PendingUploadRepository interface {
	Enqueue(ctx context.Context, upload *models.PendingUpload) error
	List(ctx context.Context) ([]*models.PendingUpload, error)
	Remove(ctx context.Context, id string) error
	MarkRetried(ctx context.Context, id string) error
}

// Repository aggregates the device-local stores.
type Repository interface {
	Attempt() AttemptRepository
	Library() LibraryRepository
	PendingUpload() PendingUploadRepository
}

// RemoteSync is the cloud persistence collaborator. Every write is an
// idempotent upsert so retries are safe. Callers treat failures as transient
// and local state as the source of truth for the live UI.
type RemoteSync interface {
	UpsertAttempt(ctx context.Context, userID string, attempt *models.TestAttempt) error
	UpsertProgress(ctx context.Context, userID string, attempt *models.TestAttempt) error
	DeleteProgress(ctx context.Context, userID, testID string) error
	UpsertBookmark(ctx context.Context, userID string, item *models.LibraryItem) error

	FetchProgress(ctx context.Context, userID string) ([]*models.TestAttempt, error)
	FetchBookmarks(ctx context.Context, userID string) ([]*models.LibraryItem, error)
	FetchHistory(ctx context.Context, userID string, page int) ([]*models.TestAttempt, error)
}
