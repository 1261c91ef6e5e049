package services

import (
	"context"

	"github.com/prepstack/attempt-engine/internal/events"
	"github.com/prepstack/attempt-engine/internal/models"
	"github.com/prepstack/attempt-engine/internal/repositories"
	"github.com/prepstack/attempt-engine/internal/utils"
)

// libraryService manages the saved / wrong / learn question collections.
// Writes are local-first with last-write-wins timestamps; the remote copy is
// maintained through the upload path.
type libraryService struct {
	repo    repositories.Repository
	remote  repositories.RemoteSync
	auth    AuthProvider
	uploads UploadService

	publisher events.EventPublisher
	clock     Clock
	idGen     IDGenerator
	logger    utils.Logger
}

func NewLibraryService(
	repo repositories.Repository,
	remote repositories.RemoteSync,
	auth AuthProvider,
	uploads UploadService,
	publisher events.EventPublisher,
	clock Clock,
	idGen IDGenerator,
	logger utils.Logger,
) LibraryService {
	if clock == nil {
		clock = SystemClock()
	}
	if idGen == nil {
		idGen = UUIDGenerator
	}
	return &libraryService{
		repo:      repo,
		remote:    remote,
		auth:      auth,
		uploads:   uploads,
		publisher: publisher,
		clock:     clock,
		idGen:     idGen,
		logger:    logger,
	}
}

// Bookmark stores a question under the given library type. Bookmarking an
// already stored (question, type) pair refreshes it in place.
func (l *libraryService) Bookmark(ctx context.Context, question models.Question, testID string, typ models.LibraryItemType) (*models.LibraryItem, error) {
	if question.ID == "" {
		return nil, ErrQuestionNotFound
	}

	now := l.clock.Now()
	key := models.LibraryKey{QuestionID: question.ID, Type: typ}

	item, err := l.repo.Library().Get(ctx, key)
	if err != nil {
		if !repositories.IsNotFoundError(err) {
			return nil, err
		}
		userID, _ := l.userID(ctx)
		item = &models.LibraryItem{
			ID:         l.idGen(),
			UserID:     userID,
			QuestionID: question.ID,
			Type:       typ,
			CreatedAt:  now,
		}
	}
	item.Question = question
	item.TestID = testID
	item.UpdatedAt = now

	if err := l.repo.Library().Upsert(ctx, item); err != nil {
		return nil, err
	}

	go l.pushRemote(context.WithoutCancel(ctx), item)

	l.logger.Debug("Bookmarked question",
		"question_id", question.ID,
		"item_type", typ)
	return item, nil
}

func (l *libraryService) pushRemote(ctx context.Context, item *models.LibraryItem) {
	if l.uploads != nil {
		l.uploads.UploadBookmark(ctx, item)
	}
	if l.publisher != nil {
		event := events.NewLibraryUpdatedEvent(item.UserID, item.TestID, item.QuestionID, item.Type, false)
		if err := l.publisher.PublishAttemptEvent(ctx, event); err != nil {
			l.logger.Warn("Failed to publish library event",
				"question_id", item.QuestionID,
				"error", err)
		}
	}
}

// Remove deletes a library item. Removing a missing item is not an error.
func (l *libraryService) Remove(ctx context.Context, key models.LibraryKey) error {
	item, err := l.repo.Library().Get(ctx, key)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil
		}
		return err
	}

	if err := l.repo.Library().Delete(ctx, key); err != nil {
		return err
	}

	if l.publisher != nil {
		event := events.NewLibraryUpdatedEvent(item.UserID, item.TestID, item.QuestionID, item.Type, true)
		if err := l.publisher.PublishAttemptEvent(context.WithoutCancel(ctx), event); err != nil {
			l.logger.Warn("Failed to publish library event",
				"question_id", item.QuestionID,
				"error", err)
		}
	}
	return nil
}

// List returns library items, optionally filtered by type. Passing an empty
// type returns everything.
func (l *libraryService) List(ctx context.Context, typ models.LibraryItemType) ([]*models.LibraryItem, error) {
	if typ == "" {
		return l.repo.Library().List(ctx)
	}
	return l.repo.Library().ListByType(ctx, typ)
}

// SyncBookmarks pulls the user's remote bookmarks and merges them into the
// local library by last-write-wins on UpdatedAt.
func (l *libraryService) SyncBookmarks(ctx context.Context) error {
	userID, ok := l.userID(ctx)
	if !ok {
		return ErrNotAuthenticated
	}
	if l.remote == nil {
		return nil
	}

	remote, err := l.remote.FetchBookmarks(ctx, userID)
	if err != nil {
		l.logger.Warn("Remote bookmark fetch failed", "user_id", userID, "error", err)
		return nil
	}

	for _, item := range remote {
		if item == nil || item.QuestionID == "" {
			continue
		}
		local, err := l.repo.Library().Get(ctx, item.Key())
		if err == nil && local.UpdatedAt.After(item.UpdatedAt) {
			continue // local edit is newer
		}
		if err := l.repo.Library().Upsert(ctx, item); err != nil {
			l.logger.Warn("Failed to store remote bookmark",
				"question_id", item.QuestionID,
				"error", err)
		}
	}
	return nil
}

func (l *libraryService) userID(ctx context.Context) (string, bool) {
	if l.auth == nil {
		return "", false
	}
	return l.auth.UserID(ctx)
}
