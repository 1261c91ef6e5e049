package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/attempt-engine/internal/models"
)

func inProgressSnapshot(testID string, currentIndex, answered int) *models.TestAttempt {
	answers := make(map[string]int, answered)
	for i := 0; i < answered; i++ {
		answers[questionID(i)] = 0
	}
	return &models.TestAttempt{
		ID:           models.InProgressAttemptID(testID),
		TestID:       testID,
		CurrentIndex: currentIndex,
		Answers:      answers,
		Questions:    fiveQuestions(),
		Status:       models.AttemptInProgress,
	}
}

func questionID(i int) string {
	return string(rune('a'+i)) + "-question"
}

func TestMergeSnapshots_StrongerLocalWins(t *testing.T) {
	local := inProgressSnapshot("ssc-cgl-tier1-2024", 8, 8)
	remote := inProgressSnapshot("ssc-cgl-tier1-2024", 2, 1)
	remote.TestTitle = "SSC CGL Tier 1 2024"
	remote.Questions = nil

	merged := MergeSnapshots(local, remote)

	assert.Equal(t, 8, merged.CurrentIndex)
	assert.Equal(t, 8, merged.AnsweredCount())
	assert.Len(t, merged.Questions, 5)
	// title only exists on the weaker side and fills the gap
	assert.Equal(t, "SSC CGL Tier 1 2024", merged.TestTitle)
}

func TestMergeSnapshots_StrongerRemoteWins(t *testing.T) {
	local := inProgressSnapshot("t1", 1, 1)
	remote := inProgressSnapshot("t1", 4, 3)

	merged := MergeSnapshots(local, remote)

	assert.Equal(t, 4, merged.CurrentIndex)
	assert.Equal(t, 3, merged.AnsweredCount())
}

func TestMergeSnapshots_AnsweredCountDominatesIndex(t *testing.T) {
	// a far cursor with few answers loses to a near cursor with many
	local := inProgressSnapshot("t1", 9, 1)
	remote := inProgressSnapshot("t1", 2, 5)

	merged := MergeSnapshots(local, remote)

	assert.Equal(t, 2, merged.CurrentIndex)
	assert.Equal(t, 5, merged.AnsweredCount())
}

func TestMergeSnapshots_EmptyQuestionsFallBack(t *testing.T) {
	local := inProgressSnapshot("t1", 3, 3)
	local.Questions = nil
	remote := inProgressSnapshot("t1", 0, 0)

	merged := MergeSnapshots(local, remote)

	assert.Equal(t, 3, merged.CurrentIndex)
	assert.Len(t, merged.Questions, 5)
}

func TestMergeSnapshots_NilSides(t *testing.T) {
	snap := inProgressSnapshot("t1", 1, 1)

	assert.Nil(t, MergeSnapshots(nil, nil))
	assert.Equal(t, 1, MergeSnapshots(snap, nil).CurrentIndex)
	assert.Equal(t, 1, MergeSnapshots(nil, snap).CurrentIndex)
}

func TestSyncProgress_RequiresAuth(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	err := env.progress.SyncProgress(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSyncProgress_MergesRemoteIntoLocal(t *testing.T) {
	env := newTestEnv(StaticAuth("user-1"), nil)
	ctx := context.Background()

	local := inProgressSnapshot("ssc-cgl-tier1-2024", 8, 8)
	require.NoError(t, env.repo.Attempt().SaveInProgress(ctx, local))

	stale := inProgressSnapshot("ssc-cgl-tier1-2024", 2, 1)
	stale.TestTitle = "SSC CGL Tier 1 2024"
	env.remote.fetchProgress = []*models.TestAttempt{stale}

	require.NoError(t, env.progress.SyncProgress(ctx))

	merged, err := env.repo.Attempt().GetInProgress(ctx, "ssc-cgl-tier1-2024")
	require.NoError(t, err)
	assert.Equal(t, 8, merged.CurrentIndex)
	assert.Equal(t, 8, merged.AnsweredCount())
	assert.Equal(t, "user-1", merged.UserID)
	assert.Equal(t, models.AttemptInProgress, merged.Status)
}

func TestSyncProgress_RemoteOnlySnapshotAdopted(t *testing.T) {
	env := newTestEnv(StaticAuth("user-1"), nil)
	ctx := context.Background()

	remote := inProgressSnapshot("upsc-prelims-gs1", 3, 2)
	env.remote.fetchProgress = []*models.TestAttempt{remote}

	require.NoError(t, env.progress.SyncProgress(ctx))

	adopted, err := env.repo.Attempt().GetInProgress(ctx, "upsc-prelims-gs1")
	require.NoError(t, err)
	assert.Equal(t, 3, adopted.CurrentIndex)
	// title derived from the id when nothing better is known
	assert.Equal(t, "UPSC Prelims GS 1", adopted.TestTitle)
}

func TestSyncProgress_LocalOnlyPreserved(t *testing.T) {
	env := newTestEnv(StaticAuth("user-1"), nil)
	ctx := context.Background()

	local := inProgressSnapshot("local-only-test", 2, 2)
	require.NoError(t, env.repo.Attempt().SaveInProgress(ctx, local))
	env.remote.fetchProgress = nil

	require.NoError(t, env.progress.SyncProgress(ctx))

	kept, err := env.repo.Attempt().GetInProgress(ctx, "local-only-test")
	require.NoError(t, err)
	assert.Equal(t, 2, kept.CurrentIndex)
}

func TestSyncProgress_RemoteFetchFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(StaticAuth("user-1"), nil)
	env.remote.failAll = true

	assert.NoError(t, env.progress.SyncProgress(context.Background()))
}

func TestSaveProgress_ReplacesPriorSnapshot(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	ctx := context.Background()

	session := &models.Session{
		TestID:        "t1",
		TestTitle:     "Test One",
		Questions:     fiveQuestions(),
		Answers:       map[string]int{"q1": 0},
		TimeRemaining: 500,
		TotalTime:     600,
	}
	require.NoError(t, env.progress.SaveProgress(ctx, session))

	session.Answers["q2"] = 1
	session.CurrentIndex = 3
	require.NoError(t, env.progress.SaveProgress(ctx, session))

	all, err := env.repo.Attempt().ListInProgress(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 3, all[0].CurrentIndex)
	assert.Equal(t, 2, all[0].AnsweredCount())
}

func TestSaveProgress_NoSession(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	err := env.progress.SaveProgress(context.Background(), &models.Session{})
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestGetResumable_MissingIsNil(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	snap, err := env.progress.GetResumable(context.Background(), "never-started")
	require.NoError(t, err)
	assert.Nil(t, snap)
}
