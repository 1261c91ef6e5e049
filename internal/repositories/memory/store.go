package memory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/prepstack/attempt-engine/internal/cache"
	"github.com/prepstack/attempt-engine/internal/models"
	"github.com/prepstack/attempt-engine/internal/repositories"
)

const (
	blobInProgress = "in_progress"
	blobHistory    = "history"
	blobLibrary    = "library"
	blobUploads    = "pending_uploads"
)

// ErrNotFound is the local store's alias for the shared not-found error.
var ErrNotFound = repositories.ErrNotFound

// IsNotFoundError reports whether err is the local store's not-found error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is the device-local persistence layer. All state lives in memory
// behind one mutex; every mutation re-serializes the affected collection to
// the blob store so it survives process restarts. Blob write failures are
// logged and swallowed: the in-memory copy remains the source of truth for
// the live session.
type Store struct {
	mu     sync.RWMutex
	blobs  cache.BlobStore
	logger *slog.Logger

	inProgress map[string]*models.TestAttempt // testID -> snapshot
	completed  []*models.TestAttempt
	library    map[models.LibraryKey]*models.LibraryItem
	uploads    []*models.PendingUpload
}

func NewStore(blobs cache.BlobStore, logger *slog.Logger) *Store {
	return &Store{
		blobs:      blobs,
		logger:     logger,
		inProgress: make(map[string]*models.TestAttempt),
		library:    make(map[models.LibraryKey]*models.LibraryItem),
	}
}

var _ repositories.Repository = (*Store)(nil)

func (s *Store) Attempt() repositories.AttemptRepository { return (*attemptRepo)(s) }

func (s *Store) Library() repositories.LibraryRepository { return (*libraryRepo)(s) }

func (s *Store) PendingUpload() repositories.PendingUploadRepository { return (*uploadRepo)(s) }

// Rehydrate loads previously persisted state from the blob store. Called once
// on startup, before the engine accepts operations. Missing blobs are normal
// on first run.
func (s *Store) Rehydrate(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx, blobInProgress, &s.inProgress); err != nil {
		return err
	}
	if err := s.load(ctx, blobHistory, &s.completed); err != nil {
		return err
	}
	var items []*models.LibraryItem
	if err := s.load(ctx, blobLibrary, &items); err != nil {
		return err
	}
	for _, item := range items {
		s.library[item.Key()] = item
	}
	if err := s.load(ctx, blobUploads, &s.uploads); err != nil {
		return err
	}

	s.logger.Info("Local store rehydrated",
		"in_progress", len(s.inProgress),
		"history", len(s.completed),
		"library", len(s.library),
		"pending_uploads", len(s.uploads))
	return nil
}

func (s *Store) load(ctx context.Context, key string, dest interface{}) error {
	if s.blobs == nil {
		return nil
	}
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	return json.Unmarshal(data, dest)
}

// persist serializes one collection; failures never propagate.
func (s *Store) persist(ctx context.Context, key string, value interface{}) {
	if s.blobs == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("Failed to serialize local state", "key", key, "error", err)
		return
	}
	if err := s.blobs.Set(ctx, key, data); err != nil {
		s.logger.Warn("Failed to persist local state", "key", key, "error", err)
	}
}

func (s *Store) libraryItems() []*models.LibraryItem {
	items := make([]*models.LibraryItem, 0, len(s.library))
	for _, item := range s.library {
		items = append(items, item)
	}
	return items
}

// ===== ATTEMPTS =====

type attemptRepo Store

func (r *attemptRepo) SaveInProgress(ctx context.Context, attempt *models.TestAttempt) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *attempt
	s.inProgress[attempt.TestID] = &cp
	s.persist(ctx, blobInProgress, s.inProgress)
	return nil
}

func (r *attemptRepo) GetInProgress(ctx context.Context, testID string) (*models.TestAttempt, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.inProgress[testID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *attempt
	return &cp, nil
}

func (r *attemptRepo) ListInProgress(ctx context.Context) ([]*models.TestAttempt, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempts := make([]*models.TestAttempt, 0, len(s.inProgress))
	for _, attempt := range s.inProgress {
		cp := *attempt
		attempts = append(attempts, &cp)
	}
	return attempts, nil
}

func (r *attemptRepo) DeleteInProgress(ctx context.Context, testID string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inProgress, testID)
	s.persist(ctx, blobInProgress, s.inProgress)
	return nil
}

func (r *attemptRepo) AppendCompleted(ctx context.Context, attempt *models.TestAttempt) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.completed {
		if existing.ID == attempt.ID {
			return nil // history is append-only and deduplicated by id
		}
	}
	cp := *attempt
	s.completed = append(s.completed, &cp)
	s.persist(ctx, blobHistory, s.completed)
	return nil
}

func (r *attemptRepo) ListCompleted(ctx context.Context) ([]*models.TestAttempt, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempts := make([]*models.TestAttempt, 0, len(s.completed))
	for _, attempt := range s.completed {
		cp := *attempt
		attempts = append(attempts, &cp)
	}
	return attempts, nil
}

func (r *attemptRepo) GetCompleted(ctx context.Context, id string) (*models.TestAttempt, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, attempt := range s.completed {
		if attempt.ID == id {
			cp := *attempt
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// ===== LIBRARY =====

type libraryRepo Store

func (r *libraryRepo) Upsert(ctx context.Context, item *models.LibraryItem) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	key := item.Key()
	if existing, ok := s.library[key]; ok && existing.UpdatedAt.After(item.UpdatedAt) {
		return nil // last write wins on timestamp
	}
	cp := *item
	s.library[key] = &cp
	s.persist(ctx, blobLibrary, s.libraryItems())
	return nil
}

func (r *libraryRepo) Get(ctx context.Context, key models.LibraryKey) (*models.LibraryItem, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.library[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *libraryRepo) Delete(ctx context.Context, key models.LibraryKey) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.library, key)
	s.persist(ctx, blobLibrary, s.libraryItems())
	return nil
}

func (r *libraryRepo) List(ctx context.Context) ([]*models.LibraryItem, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]*models.LibraryItem, 0, len(s.library))
	for _, item := range s.library {
		cp := *item
		items = append(items, &cp)
	}
	return items, nil
}

func (r *libraryRepo) ListByType(ctx context.Context, typ models.LibraryItemType) ([]*models.LibraryItem, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var items []*models.LibraryItem
	for _, item := range s.library {
		if item.Type == typ {
			cp := *item
			items = append(items, &cp)
		}
	}
	return items, nil
}

// ===== PENDING UPLOADS =====

type uploadRepo Store

func (r *uploadRepo) Enqueue(ctx context.Context, upload *models.PendingUpload) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, queued := range s.uploads {
		if queued.ID == upload.ID {
			return nil // deduplicated by id
		}
	}
	cp := *upload
	s.uploads = append(s.uploads, &cp)
	s.persist(ctx, blobUploads, s.uploads)
	return nil
}

func (r *uploadRepo) List(ctx context.Context) ([]*models.PendingUpload, error) {
	s := (*Store)(r)
	s.mu.RLock()
	defer s.mu.RUnlock()
	uploads := make([]*models.PendingUpload, 0, len(s.uploads))
	for _, upload := range s.uploads {
		cp := *upload
		uploads = append(uploads, &cp)
	}
	return uploads, nil
}

func (r *uploadRepo) Remove(ctx context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.uploads[:0]
	for _, upload := range s.uploads {
		if upload.ID != id {
			kept = append(kept, upload)
		}
	}
	s.uploads = kept
	s.persist(ctx, blobUploads, s.uploads)
	return nil
}

func (r *uploadRepo) MarkRetried(ctx context.Context, id string) error {
	s := (*Store)(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, upload := range s.uploads {
		if upload.ID == id {
			upload.Retries++
			break
		}
	}
	s.persist(ctx, blobUploads, s.uploads)
	return nil
}
