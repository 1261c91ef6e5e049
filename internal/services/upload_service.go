package services

import (
	"context"

	"github.com/prepstack/attempt-engine/internal/models"
	"github.com/prepstack/attempt-engine/internal/repositories"
	"github.com/prepstack/attempt-engine/internal/utils"
)

// uploadService pushes attempts and bookmarks to the remote backend and
// queues anything that cannot go out right now. Nothing here ever errors
// back into the session path; a failed upload becomes a queued retry.
type uploadService struct {
	repo   repositories.Repository
	remote repositories.RemoteSync
	auth   AuthProvider
	clock  Clock
	logger utils.Logger
}

func NewUploadService(
	repo repositories.Repository,
	remote repositories.RemoteSync,
	auth AuthProvider,
	clock Clock,
	logger utils.Logger,
) UploadService {
	if clock == nil {
		clock = SystemClock()
	}
	return &uploadService{
		repo:   repo,
		remote: remote,
		auth:   auth,
		clock:  clock,
		logger: logger,
	}
}

// UploadAttempt tries an immediate remote insert; anonymous users and
// failures both land in the pending queue instead of losing the attempt.
// The caller keeps the original object: this often runs on a background
// goroutine while the caller is still reading it, so all writes here go
// to a detached copy.
func (u *uploadService) UploadAttempt(ctx context.Context, attempt *models.TestAttempt) {
	if attempt == nil {
		return
	}
	cp := *attempt

	userID, ok := u.userID(ctx)
	if !ok || u.remote == nil {
		u.enqueue(ctx, &models.PendingUpload{
			ID:      cp.ID,
			Kind:    models.UploadAttempt,
			Attempt: &cp,
		})
		return
	}

	cp.UserID = userID
	if err := u.remote.UpsertAttempt(ctx, userID, &cp); err != nil {
		u.logger.Warn("Attempt upload failed, queuing for retry",
			"attempt_id", cp.ID,
			"error", err)
		u.enqueue(ctx, &models.PendingUpload{
			ID:      cp.ID,
			Kind:    models.UploadAttempt,
			Attempt: &cp,
		})
		return
	}
	u.logger.Debug("Uploaded attempt", "attempt_id", cp.ID)
}

// UploadBookmark mirrors UploadAttempt for library items, including the
// detached copy.
func (u *uploadService) UploadBookmark(ctx context.Context, item *models.LibraryItem) {
	if item == nil {
		return
	}
	cp := *item

	userID, ok := u.userID(ctx)
	if !ok || u.remote == nil {
		u.enqueue(ctx, &models.PendingUpload{
			ID:       cp.ID,
			Kind:     models.UploadBookmark,
			Bookmark: &cp,
		})
		return
	}

	cp.UserID = userID
	if err := u.remote.UpsertBookmark(ctx, userID, &cp); err != nil {
		u.logger.Warn("Bookmark upload failed, queuing for retry",
			"question_id", cp.QuestionID,
			"error", err)
		u.enqueue(ctx, &models.PendingUpload{
			ID:       cp.ID,
			Kind:     models.UploadBookmark,
			Bookmark: &cp,
		})
		return
	}
	u.logger.Debug("Uploaded bookmark", "question_id", cp.QuestionID)
}

// SyncPendingUploads drains the queue in FIFO order. Every upsert is
// idempotent, so retrying an item that already landed is harmless. One
// item's failure never blocks the rest of the pass.
func (u *uploadService) SyncPendingUploads(ctx context.Context) error {
	userID, ok := u.userID(ctx)
	if !ok {
		return ErrNotAuthenticated
	}
	if u.remote == nil {
		return nil
	}

	pending, err := u.repo.PendingUpload().List(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	u.logger.Info("Draining pending uploads", "count", len(pending))

	for _, upload := range pending {
		if err := u.pushOne(ctx, userID, upload); err != nil {
			u.logger.Warn("Pending upload failed, keeping queued",
				"upload_id", upload.ID,
				"kind", upload.Kind,
				"error", err)
			if markErr := u.repo.PendingUpload().MarkRetried(ctx, upload.ID); markErr != nil {
				u.logger.Warn("Failed to record retry", "upload_id", upload.ID, "error", markErr)
			}
			continue
		}
		if err := u.repo.PendingUpload().Remove(ctx, upload.ID); err != nil {
			u.logger.Warn("Failed to dequeue upload", "upload_id", upload.ID, "error", err)
		}
	}
	return nil
}

func (u *uploadService) pushOne(ctx context.Context, userID string, upload *models.PendingUpload) error {
	switch upload.Kind {
	case models.UploadBookmark:
		if upload.Bookmark == nil {
			return nil // malformed entry, drop it
		}
		item := *upload.Bookmark
		item.UserID = userID
		return u.remote.UpsertBookmark(ctx, userID, &item)
	default:
		if upload.Attempt == nil {
			return nil
		}
		attempt := *upload.Attempt
		attempt.UserID = userID
		return u.remote.UpsertAttempt(ctx, userID, &attempt)
	}
}

func (u *uploadService) enqueue(ctx context.Context, upload *models.PendingUpload) {
	upload.QueuedAt = u.clock.Now()
	if err := u.repo.PendingUpload().Enqueue(ctx, upload); err != nil {
		u.logger.LogError(err, "Failed to enqueue pending upload", "upload_id", upload.ID)
	}
}

func (u *uploadService) userID(ctx context.Context) (string, bool) {
	if u.auth == nil {
		return "", false
	}
	return u.auth.UserID(ctx)
}
