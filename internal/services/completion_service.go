package services

import (
	"context"
	"sort"

	"github.com/prepstack/attempt-engine/internal/events"
	"github.com/prepstack/attempt-engine/internal/models"
	"github.com/prepstack/attempt-engine/internal/repositories"
	"github.com/prepstack/attempt-engine/internal/utils"
)

// completionService turns a finished session into an immutable history
// record, derives the wrong-answer library side effects and schedules the
// remote upload. Local writes are synchronous; everything remote is
// fire-and-forget.
type completionService struct {
	repo    repositories.Repository
	remote  repositories.RemoteSync
	auth    AuthProvider
	uploads UploadService

	publisher events.EventPublisher
	clock     Clock
	idGen     IDGenerator
	logger    utils.Logger
}

func NewCompletionService(
	repo repositories.Repository,
	remote repositories.RemoteSync,
	auth AuthProvider,
	uploads UploadService,
	publisher events.EventPublisher,
	clock Clock,
	idGen IDGenerator,
	logger utils.Logger,
) CompletionService {
	if clock == nil {
		clock = SystemClock()
	}
	if idGen == nil {
		idGen = UUIDGenerator
	}
	return &completionService{
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

// Finalize records a completed attempt. The In Progress snapshot for the
// test is replaced by the completed record in history, wrong-answer library
// items are reconciled, and the attempt is handed to the upload path.
func (c *completionService) Finalize(ctx context.Context, attempt *models.TestAttempt) error {
	if attempt == nil || attempt.TestID == "" {
		return ErrAttemptNotFound
	}

	if userID, ok := c.userID(ctx); ok {
		attempt.UserID = userID
	}
	attempt.Status = models.AttemptCompleted

	if err := c.repo.Attempt().DeleteInProgress(ctx, attempt.TestID); err != nil && !repositories.IsNotFoundError(err) {
		c.logger.Warn("Failed to clear in-progress snapshot",
			"test_id", attempt.TestID,
			"error", err)
	}
	if err := c.repo.Attempt().AppendCompleted(ctx, attempt); err != nil {
		c.logger.LogError(err, "Failed to append attempt to history", "attempt_id", attempt.ID)
		return err
	}

	c.reconcileWrongAnswers(ctx, attempt)

	go c.finishRemote(context.WithoutCancel(ctx), attempt)

	c.logger.Info("Finalized attempt",
		"attempt_id", attempt.ID,
		"test_id", attempt.TestID,
		"score", attempt.Score)
	return nil
}

// reconcileWrongAnswers keeps the wrong-answer library in step with the
// latest attempt: newly missed questions are flagged, questions now answered
// correctly lose any stale wrong flag.
func (c *completionService) reconcileWrongAnswers(ctx context.Context, attempt *models.TestAttempt) {
	now := c.clock.Now()
	for i := range attempt.Questions {
		q := attempt.Questions[i]
		selected, answered := attempt.Answers[q.ID]
		key := models.LibraryKey{QuestionID: q.ID, Type: models.LibraryWrong}

		switch {
		case answered && selected != q.CorrectAnswer:
			if _, err := c.repo.Library().Get(ctx, key); err == nil {
				continue // already flagged
			}
			item := &models.LibraryItem{
				ID:         c.idGen(),
				UserID:     attempt.UserID,
				QuestionID: q.ID,
				Type:       models.LibraryWrong,
				Question:   q,
				TestID:     attempt.TestID,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := c.repo.Library().Upsert(ctx, item); err != nil {
				c.logger.Warn("Failed to flag wrong answer",
					"question_id", q.ID,
					"error", err)
				continue
			}
			c.publishLibraryEvent(ctx, attempt, q.ID, false)

		case answered && selected == q.CorrectAnswer:
			if err := c.repo.Library().Delete(ctx, key); err != nil {
				if !repositories.IsNotFoundError(err) {
					c.logger.Warn("Failed to clear wrong flag",
						"question_id", q.ID,
						"error", err)
				}
				continue
			}
			c.publishLibraryEvent(ctx, attempt, q.ID, true)
		}
	}
}

func (c *completionService) publishLibraryEvent(ctx context.Context, attempt *models.TestAttempt, questionID string, removed bool) {
	if c.publisher == nil {
		return
	}
	event := events.NewLibraryUpdatedEvent(attempt.UserID, attempt.TestID, questionID, models.LibraryWrong, removed)
	if err := c.publisher.PublishAttemptEvent(ctx, event); err != nil {
		c.logger.Warn("Failed to publish library event", "question_id", questionID, "error", err)
	}
}

// finishRemote runs the post-completion remote side effects: upload the
// attempt (or queue it), drop the remote in-progress snapshot and announce
// the completion. Failures are logged; none of them reach the caller of
// FinishTest.
func (c *completionService) finishRemote(ctx context.Context, attempt *models.TestAttempt) {
	if c.uploads != nil {
		c.uploads.UploadAttempt(ctx, attempt)
	}

	if attempt.UserID != "" && c.remote != nil {
		if err := c.remote.DeleteProgress(ctx, attempt.UserID, attempt.TestID); err != nil {
			c.logger.Warn("Failed to delete remote progress snapshot",
				"test_id", attempt.TestID,
				"error", err)
		}
	}

	if c.publisher != nil {
		event := events.NewAttemptCompletedEvent(attempt.UserID, attempt)
		if err := c.publisher.PublishAttemptEvent(ctx, event); err != nil {
			c.logger.Warn("Failed to publish completion event",
				"attempt_id", attempt.ID,
				"error", err)
		}
	}
}

// History returns the local completed attempts, most recent first.
func (c *completionService) History(ctx context.Context) ([]*models.TestAttempt, error) {
	attempts, err := c.repo.Attempt().ListCompleted(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(attempts, func(i, j int) bool {
		return attempts[i].EndTime.After(attempts[j].EndTime)
	})
	return attempts, nil
}

// Stats aggregates the completed history into headline numbers.
func (c *completionService) Stats(ctx context.Context) (*models.AttemptStats, error) {
	attempts, err := c.repo.Attempt().ListCompleted(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.AttemptStats{}
	tests := make(map[string]bool)
	var scoreSum float64

	for _, attempt := range attempts {
		stats.TotalAttempts++
		if attempt.Status == models.AttemptCompleted {
			stats.CompletedAttempts++
		}
		scoreSum += attempt.Score
		if attempt.Score > stats.BestScore {
			stats.BestScore = attempt.Score
		}
		for _, secs := range attempt.TimeSpent {
			stats.TotalTimeSpent += secs
		}
		tests[attempt.TestID] = true
	}

	stats.TestsAttempted = len(tests)
	if stats.TotalAttempts > 0 {
		stats.AverageScore = scoreSum / float64(stats.TotalAttempts)
	}
	return stats, nil
}

func (c *completionService) userID(ctx context.Context) (string, bool) {
	if c.auth == nil {
		return "", false
	}
	return c.auth.UserID(ctx)
}
