package services

import (
	"context"

	"github.com/prepstack/attempt-engine/internal/events"
	"github.com/prepstack/attempt-engine/internal/models"
	"github.com/prepstack/attempt-engine/internal/repositories"
	"github.com/prepstack/attempt-engine/internal/scoring"
	"github.com/prepstack/attempt-engine/internal/utils"
)

// progressService snapshots the live session into the local store and
// reconciles local snapshots with the remote backend. The local copy is
// always the source of truth for the live UI; remote failures are logged
// and swallowed.
type progressService struct {
	repo    repositories.Repository
	remote  repositories.RemoteSync
	auth    AuthProvider
	catalog TestCatalog

	publisher events.EventPublisher
	logger    utils.Logger

	negativeMarking float64
}

func NewProgressService(
	repo repositories.Repository,
	remote repositories.RemoteSync,
	auth AuthProvider,
	catalog TestCatalog,
	publisher events.EventPublisher,
	logger utils.Logger,
	negativeMarking float64,
) ProgressService {
	if negativeMarking < 0 {
		negativeMarking = scoring.DefaultNegativeMarking
	}
	return &progressService{
		repo:            repo,
		remote:          remote,
		auth:            auth,
		catalog:         catalog,
		publisher:       publisher,
		logger:          logger,
		negativeMarking: negativeMarking,
	}
}

// SaveProgress persists the session as the per-test In Progress snapshot.
// The local write is synchronous; the remote upsert and the lifecycle event
// run in the background and never block or fail the save.
func (p *progressService) SaveProgress(ctx context.Context, session *models.Session) error {
	if !session.Active() {
		return ErrNoActiveSession
	}

	userID, _ := p.userID(ctx)
	snapshot := p.snapshotAttempt(session, userID)

	if err := p.repo.Attempt().SaveInProgress(ctx, snapshot); err != nil {
		p.logger.LogError(err, "Failed to save progress locally", "test_id", snapshot.TestID)
		return err
	}

	p.logger.Debug("Saved progress",
		"test_id", snapshot.TestID,
		"current_index", snapshot.CurrentIndex,
		"answered", snapshot.AnsweredCount())

	go p.pushRemote(context.WithoutCancel(ctx), snapshot)
	return nil
}

func (p *progressService) pushRemote(ctx context.Context, snapshot *models.TestAttempt) {
	if snapshot.UserID != "" && p.remote != nil {
		if err := p.remote.UpsertProgress(ctx, snapshot.UserID, snapshot); err != nil {
			p.logger.Warn("Remote progress upsert failed",
				"test_id", snapshot.TestID,
				"error", err)
		}
	}
	if p.publisher != nil {
		event := events.NewProgressSavedEvent(snapshot.UserID, snapshot)
		if err := p.publisher.PublishAttemptEvent(ctx, event); err != nil {
			p.logger.Warn("Failed to publish progress event",
				"test_id", snapshot.TestID,
				"error", err)
		}
	}
}

// GetResumable returns the In Progress snapshot for a test, or nil when
// there is nothing to resume.
func (p *progressService) GetResumable(ctx context.Context, testID string) (*models.TestAttempt, error) {
	snap, err := p.repo.Attempt().GetInProgress(ctx, testID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return snap, nil
}

// SyncProgress fetches the user's remote In Progress snapshots and merges
// them with the local ones per test. Requires an authenticated user; local
// snapshots absent from the remote result are preserved.
func (p *progressService) SyncProgress(ctx context.Context) error {
	userID, ok := p.userID(ctx)
	if !ok {
		return ErrNotAuthenticated
	}
	if p.remote == nil {
		return nil
	}

	remote, err := p.remote.FetchProgress(ctx, userID)
	if err != nil {
		p.logger.Warn("Remote progress fetch failed", "user_id", userID, "error", err)
		return nil
	}

	local, err := p.repo.Attempt().ListInProgress(ctx)
	if err != nil {
		return err
	}

	localByTest := make(map[string]*models.TestAttempt, len(local))
	for _, attempt := range local {
		localByTest[attempt.TestID] = attempt
	}

	history, _ := p.repo.Attempt().ListCompleted(ctx)

	for _, remoteSnap := range remote {
		if remoteSnap == nil || remoteSnap.TestID == "" {
			continue
		}
		merged := MergeSnapshots(localByTest[remoteSnap.TestID], remoteSnap)
		merged.UserID = userID
		merged.ID = models.InProgressAttemptID(merged.TestID)
		merged.Status = models.AttemptInProgress

		if merged.TestTitle == "" {
			merged.TestTitle = p.resolveTitle(merged.TestID, history)
		}

		if err := p.repo.Attempt().SaveInProgress(ctx, merged); err != nil {
			p.logger.LogError(err, "Failed to store merged snapshot", "test_id", merged.TestID)
			continue
		}
		p.logger.Debug("Merged in-progress snapshot",
			"test_id", merged.TestID,
			"current_index", merged.CurrentIndex,
			"answered", merged.AnsweredCount())
	}
	return nil
}

// resolveTitle falls back to a non-generic title recorded in history before
// prettifying the raw id.
func (p *progressService) resolveTitle(testID string, history []*models.TestAttempt) string {
	if p.catalog != nil {
		if title, ok := p.catalog.TitleFor(testID); ok && title != "" {
			return title
		}
	}
	for _, attempt := range history {
		if attempt.TestID == testID && attempt.TestTitle != "" && !isGenericTitle(attempt.TestTitle) {
			return attempt.TestTitle
		}
	}
	return PrettifyTestID(testID)
}

// snapshotAttempt copies the session maps so the background remote push
// never reads them while the live session keeps mutating.
func (p *progressService) snapshotAttempt(session *models.Session, userID string) *models.TestAttempt {
	return &models.TestAttempt{
		ID:              models.InProgressAttemptID(session.TestID),
		UserID:          userID,
		TestID:          session.TestID,
		TestTitle:       session.TestTitle,
		Questions:       session.Questions,
		CurrentIndex:    session.CurrentIndex,
		Answers:         copyIntMap(session.Answers),
		MarkedForReview: copyBoolMap(session.MarkedForReview),
		TimeSpent:       copyIntMap(session.TimeSpent),
		StartTime:       session.SessionStartTime,
		TimeRemaining:   session.TimeRemaining,
		TotalTime:       session.TotalTime,
		Score:           scoring.Score(session.Questions, session.Answers, p.negativeMarking),
		TotalMarks:      scoring.TotalMarks(session.Questions),
		Status:          models.AttemptInProgress,
	}
}

func (p *progressService) userID(ctx context.Context) (string, bool) {
	if p.auth == nil {
		return "", false
	}
	return p.auth.UserID(ctx)
}

// ===== MERGE STRATEGY =====

// snapshotStrength orders snapshots by how far the attempt has progressed.
// Answered count dominates; the cursor position breaks ties.
type snapshotStrength struct {
	answered int
	index    int
}

func strengthOf(a *models.TestAttempt) snapshotStrength {
	if a == nil {
		return snapshotStrength{answered: -1, index: -1}
	}
	return snapshotStrength{answered: a.AnsweredCount(), index: a.CurrentIndex}
}

func (s snapshotStrength) lessThan(o snapshotStrength) bool {
	if s.answered != o.answered {
		return s.answered < o.answered
	}
	return s.index < o.index
}

// MergeSnapshots reconciles a local and a remote In Progress snapshot for
// the same test. The further-along side wins as the base; fields empty on
// the winner are filled from the loser so a stale but complete snapshot can
// still contribute its question set or title.
func MergeSnapshots(local, remote *models.TestAttempt) *models.TestAttempt {
	if local == nil && remote == nil {
		return nil
	}
	if local == nil {
		merged := *remote
		return &merged
	}
	if remote == nil {
		merged := *local
		return &merged
	}

	base, other := local, remote
	if strengthOf(local).lessThan(strengthOf(remote)) {
		base, other = remote, local
	}

	merged := *base
	if len(merged.Questions) == 0 {
		merged.Questions = other.Questions
	}
	if merged.TestTitle == "" {
		merged.TestTitle = other.TestTitle
	}
	if merged.TotalTime == 0 {
		merged.TotalTime = other.TotalTime
	}
	if merged.TimeRemaining == 0 && other.TimeRemaining > 0 {
		merged.TimeRemaining = other.TimeRemaining
	}
	if merged.StartTime.IsZero() {
		merged.StartTime = other.StartTime
	}
	if len(merged.Answers) == 0 && len(other.Answers) > 0 {
		merged.Answers = other.Answers
	}
	if len(merged.MarkedForReview) == 0 && len(other.MarkedForReview) > 0 {
		merged.MarkedForReview = other.MarkedForReview
	}
	if len(merged.TimeSpent) == 0 && len(other.TimeSpent) > 0 {
		merged.TimeSpent = other.TimeSpent
	}
	return &merged
}
