package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prepstack/attempt-engine/internal/cache"
	"github.com/prepstack/attempt-engine/internal/events"
	"github.com/prepstack/attempt-engine/internal/models"
	"github.com/prepstack/attempt-engine/internal/repositories"
	"github.com/prepstack/attempt-engine/internal/repositories/memory"
	"github.com/prepstack/attempt-engine/internal/scoring"
	"github.com/prepstack/attempt-engine/internal/utils"
)

// ===== FAKE CLOCK =====

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ===== FAKE QUESTION PROVIDER =====

type fakeProvider struct {
	questions []models.Question
	err       error
}

func (f *fakeProvider) FetchQuestions(ctx context.Context, testID string) ([]models.Question, error) {
	return f.questions, f.err
}

// ===== FAKE REMOTE BACKEND =====

type fakeRemote struct {
	mu sync.Mutex

	failAll bool
	failIDs map[string]bool

	attempts        map[string]*models.TestAttempt
	progress        map[string]*models.TestAttempt // testID -> snapshot
	bookmarks       map[models.LibraryKey]*models.LibraryItem
	deletedProgress []string

	fetchProgress  []*models.TestAttempt
	fetchBookmarks []*models.LibraryItem
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		failIDs:   make(map[string]bool),
		attempts:  make(map[string]*models.TestAttempt),
		progress:  make(map[string]*models.TestAttempt),
		bookmarks: make(map[models.LibraryKey]*models.LibraryItem),
	}
}

func (f *fakeRemote) failure(id string) error {
	if f.failAll || f.failIDs[id] {
		return fmt.Errorf("remote unavailable")
	}
	return nil
}

func (f *fakeRemote) UpsertAttempt(ctx context.Context, userID string, attempt *models.TestAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(attempt.ID); err != nil {
		return err
	}
	f.attempts[attempt.ID] = attempt
	return nil
}

func (f *fakeRemote) UpsertProgress(ctx context.Context, userID string, attempt *models.TestAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(attempt.TestID); err != nil {
		return err
	}
	f.progress[attempt.TestID] = attempt
	return nil
}

func (f *fakeRemote) DeleteProgress(ctx context.Context, userID, testID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(testID); err != nil {
		return err
	}
	delete(f.progress, testID)
	f.deletedProgress = append(f.deletedProgress, testID)
	return nil
}

func (f *fakeRemote) UpsertBookmark(ctx context.Context, userID string, item *models.LibraryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failure(item.ID); err != nil {
		return err
	}
	f.bookmarks[item.Key()] = item
	return nil
}

func (f *fakeRemote) FetchProgress(ctx context.Context, userID string) ([]*models.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, fmt.Errorf("remote unavailable")
	}
	return f.fetchProgress, nil
}

func (f *fakeRemote) FetchBookmarks(ctx context.Context, userID string) ([]*models.LibraryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, fmt.Errorf("remote unavailable")
	}
	return f.fetchBookmarks, nil
}

func (f *fakeRemote) FetchHistory(ctx context.Context, userID string, page int) ([]*models.TestAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, fmt.Errorf("remote unavailable")
	}
	var out []*models.TestAttempt
	for _, attempt := range f.attempts {
		out = append(out, attempt)
	}
	return out, nil
}

func (f *fakeRemote) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func (f *fakeRemote) attempt(id string) *models.TestAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[id]
}

func (f *fakeRemote) bookmark(key models.LibraryKey) *models.LibraryItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bookmarks[key]
}

var _ repositories.RemoteSync = (*fakeRemote)(nil)

// ===== ENVIRONMENT =====

type testEnv struct {
	repo      *memory.Store
	remote    *fakeRemote
	provider  *fakeProvider
	publisher *events.MockEventPublisher
	clock     *fakeClock

	uploads    UploadService
	progress   ProgressService
	completion CompletionService
	library    LibraryService
	session    SessionService
}

func discardLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// sequentialIDs mints attempt-1, attempt-2, ... for deterministic assertions.
func sequentialIDs() IDGenerator {
	var n int
	var mu sync.Mutex
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("attempt-%d", n)
	}
}

func newTestEnv(auth AuthProvider, questions []models.Question) *testEnv {
	logger := discardLogger()
	slogLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := newFakeClock()
	idGen := sequentialIDs()

	repo := memory.NewStore(cache.NewMemoryBlobStore(), slogLogger)
	remote := newFakeRemote()
	provider := &fakeProvider{questions: questions}
	publisher := events.NewMockEventPublisher(slogLogger)
	catalog := CatalogMap{}

	uploads := NewUploadService(repo, remote, auth, clock, logger)
	progress := NewProgressService(repo, remote, auth, catalog, publisher, logger, scoring.DefaultNegativeMarking)
	completion := NewCompletionService(repo, remote, auth, uploads, publisher, clock, idGen, logger)
	library := NewLibraryService(repo, remote, auth, uploads, publisher, clock, idGen, logger)
	session := NewSessionService(provider, progress, completion, catalog, clock, idGen, nil, logger, scoring.DefaultNegativeMarking)

	return &testEnv{
		repo:       repo,
		remote:     remote,
		provider:   provider,
		publisher:  publisher,
		clock:      clock,
		uploads:    uploads,
		progress:   progress,
		completion: completion,
		library:    library,
		session:    session,
	}
}

func fiveQuestions() []models.Question {
	questions := make([]models.Question, 5)
	for i := range questions {
		questions[i] = models.Question{
			ID:            fmt.Sprintf("q%d", i+1),
			Text:          fmt.Sprintf("Question %d", i+1),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: 0,
			Subject:       "General Awareness",
			Type:          models.MultipleChoice,
		}
	}
	return questions
}

func intPtr(v int) *int { return &v }
