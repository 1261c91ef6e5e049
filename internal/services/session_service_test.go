package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepstack/attempt-engine/internal/models"
)

func startDefaultTest(t *testing.T, env *testEnv) *SessionView {
	t.Helper()
	view, err := env.session.StartTest(context.Background(), &StartTestRequest{
		TestID:          "ssc-cgl-tier1-2024",
		Questions:       fiveQuestions(),
		DurationMinutes: 10,
	})
	require.NoError(t, err)
	return view
}

func TestStartTest_Fresh(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	view := startDefaultTest(t, env)

	assert.Equal(t, "ssc-cgl-tier1-2024", view.TestID)
	assert.Equal(t, "SSC CGL Tier 1 2024", view.TestTitle)
	assert.Equal(t, 0, view.CurrentIndex)
	assert.Equal(t, 600, view.TimeRemaining)
	assert.Equal(t, 600, view.TotalTime)
	assert.True(t, view.IsPlaying)
	assert.False(t, view.Resumed)
	assert.Len(t, view.Questions, 5)
	require.NotNil(t, view.CurrentQuestion)
	assert.Equal(t, "q1", view.CurrentQuestion.ID)
}

func TestStartTest_FallsBackToMockQuestions(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	env.provider.questions = nil

	view, err := env.session.StartTest(context.Background(), &StartTestRequest{
		TestID:          "unknown-test",
		DurationMinutes: 5,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, view.Questions)
	assert.Len(t, view.Questions, len(models.MockQuestions()))
}

func TestSubmitAnswer_SetAndClear(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	require.NoError(t, env.session.SubmitAnswer(ctx, "q1", intPtr(2)))
	assert.Equal(t, map[string]int{"q1": 2}, env.session.View().Answers)

	require.NoError(t, env.session.SubmitAnswer(ctx, "q1", nil))
	assert.Empty(t, env.session.View().Answers)
}

func TestSubmitAnswer_UnknownQuestion(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)

	err := env.session.SubmitAnswer(context.Background(), "nope", intPtr(0))
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestSubmitAnswer_NoSession(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	err := env.session.SubmitAnswer(context.Background(), "q1", intPtr(0))
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestToggleMark_FlipsIndependentOfAnswer(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	require.NoError(t, env.session.ToggleMark(ctx, "q3"))
	assert.True(t, env.session.View().MarkedForReview["q3"])

	require.NoError(t, env.session.ToggleMark(ctx, "q3"))
	assert.False(t, env.session.View().MarkedForReview["q3"])
}

func TestNavigation_ClampsAtBounds(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	require.NoError(t, env.session.PrevQuestion(ctx))
	assert.Equal(t, 0, env.session.View().CurrentIndex)

	for i := 0; i < 10; i++ {
		require.NoError(t, env.session.NextQuestion(ctx))
	}
	assert.Equal(t, 4, env.session.View().CurrentIndex)
}

func TestJumpToQuestion_RejectsOutOfRange(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	assert.ErrorIs(t, env.session.JumpToQuestion(ctx, -1), ErrIndexOutOfRange)
	assert.ErrorIs(t, env.session.JumpToQuestion(ctx, 5), ErrIndexOutOfRange)

	require.NoError(t, env.session.JumpToQuestion(ctx, 3))
	assert.Equal(t, 3, env.session.View().CurrentIndex)
}

func TestNavigation_AccumulatesTimeSpentWhilePlaying(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	env.clock.Advance(5 * time.Second)
	require.NoError(t, env.session.NextQuestion(ctx))

	env.clock.Advance(7 * time.Second)
	require.NoError(t, env.session.JumpToQuestion(ctx, 4))

	spent := env.session.View().TimeSpent
	assert.Equal(t, 5, spent["q1"])
	assert.Equal(t, 7, spent["q2"])
}

func TestNavigation_NoTimeSpentWhilePaused(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	require.NoError(t, env.session.ToggleTimer(ctx)) // pause
	env.clock.Advance(30 * time.Second)
	require.NoError(t, env.session.NextQuestion(ctx))

	assert.Empty(t, env.session.View().TimeSpent)
}

func TestTickTimer_DerivesFromDeadline(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	env.clock.Advance(60 * time.Second)
	assert.Equal(t, 540, env.session.TickTimer(ctx))

	// deadline passed: clamps at zero
	env.clock.Advance(20 * time.Minute)
	assert.Equal(t, 0, env.session.TickTimer(ctx))
}

func TestToggleTimer_PauseFreezesRemaining(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	env.clock.Advance(60 * time.Second)
	require.NoError(t, env.session.ToggleTimer(ctx)) // pause

	view := env.session.View()
	assert.False(t, view.IsPlaying)
	assert.Equal(t, 540, view.TimeRemaining)

	// paused wall-clock time does not count against the deadline
	env.clock.Advance(5 * time.Minute)
	assert.Equal(t, 540, env.session.TickTimer(ctx))

	require.NoError(t, env.session.ToggleTimer(ctx)) // resume
	assert.Equal(t, 540, env.session.TickTimer(ctx))

	env.clock.Advance(40 * time.Second)
	assert.Equal(t, 500, env.session.TickTimer(ctx))
}

func TestToggleTimer_PauseAccumulatesCurrentQuestion(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	env.clock.Advance(12 * time.Second)
	require.NoError(t, env.session.ToggleTimer(ctx)) // pause

	assert.Equal(t, 12, env.session.View().TimeSpent["q1"])
}

func TestSaveProgress_WritesResumableSnapshot(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	require.NoError(t, env.session.SubmitAnswer(ctx, "q1", intPtr(0)))
	require.NoError(t, env.session.SaveProgress(ctx))

	snap, err := env.repo.Attempt().GetInProgress(ctx, "ssc-cgl-tier1-2024")
	require.NoError(t, err)
	assert.Equal(t, models.InProgressAttemptID("ssc-cgl-tier1-2024"), snap.ID)
	assert.Equal(t, models.AttemptInProgress, snap.Status)
	assert.Equal(t, 1, snap.AnsweredCount())
}

func TestStartTest_ResumeFidelity(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	require.NoError(t, env.session.SubmitAnswer(ctx, "q1", intPtr(1)))
	require.NoError(t, env.session.SubmitAnswer(ctx, "q2", intPtr(0)))
	require.NoError(t, env.session.ToggleMark(ctx, "q4"))
	require.NoError(t, env.session.JumpToQuestion(ctx, 2))
	env.clock.Advance(2 * time.Minute)
	env.session.TickTimer(ctx)
	require.NoError(t, env.session.SaveProgress(ctx))
	env.session.Reset(ctx)

	// restart with a different freshly supplied question set
	replacement := []models.Question{{ID: "zz", Text: "other", Options: []string{"A", "B"}}}
	view, err := env.session.StartTest(ctx, &StartTestRequest{
		TestID:          "ssc-cgl-tier1-2024",
		Questions:       replacement,
		DurationMinutes: 10,
	})
	require.NoError(t, err)

	assert.True(t, view.Resumed)
	assert.Equal(t, 2, view.CurrentIndex)
	assert.Equal(t, map[string]int{"q1": 1, "q2": 0}, view.Answers)
	assert.True(t, view.MarkedForReview["q4"])
	assert.Equal(t, 480, view.TimeRemaining)
	// stored question snapshot wins over the supplied one
	require.Len(t, view.Questions, 5)
	assert.Equal(t, "q1", view.Questions[0].ID)
	assert.True(t, view.IsPlaying)
}

func TestStartTest_SwitchSnapshotsOutgoingSession(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	require.NoError(t, env.session.SubmitAnswer(ctx, "q1", intPtr(0)))

	_, err := env.session.StartTest(ctx, &StartTestRequest{
		TestID:          "rrb-ntpc-gk",
		Questions:       fiveQuestions(),
		DurationMinutes: 15,
	})
	require.NoError(t, err)

	snap, err := env.repo.Attempt().GetInProgress(ctx, "ssc-cgl-tier1-2024")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.AnsweredCount())
	assert.Equal(t, "rrb-ntpc-gk", env.session.View().TestID)
}

func TestFinishTest_ScoresAndClearsSession(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	// 2 correct, 2 wrong, 1 unanswered
	require.NoError(t, env.session.SubmitAnswer(ctx, "q1", intPtr(0)))
	require.NoError(t, env.session.SubmitAnswer(ctx, "q2", intPtr(0)))
	require.NoError(t, env.session.SubmitAnswer(ctx, "q3", intPtr(1)))
	require.NoError(t, env.session.SubmitAnswer(ctx, "q5", intPtr(2)))

	attempt, err := env.session.FinishTest(ctx)
	require.NoError(t, err)

	assert.InDelta(t, 2.68, attempt.Score, 1e-9)
	assert.Equal(t, 10, attempt.TotalMarks)
	assert.Equal(t, models.AttemptCompleted, attempt.Status)

	// session cleared back to idle
	view := env.session.View()
	assert.Empty(t, view.TestID)
	assert.Empty(t, view.Questions)

	// exactly one completed record, no in-progress leftover
	history, err := env.repo.Attempt().ListCompleted(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "ssc-cgl-tier1-2024", history[0].TestID)

	_, err = env.repo.Attempt().GetInProgress(ctx, "ssc-cgl-tier1-2024")
	assert.Error(t, err)
}

func TestFinishTest_ReplacesInProgressRecord(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	require.NoError(t, env.session.SaveProgress(ctx))
	_, err := env.repo.Attempt().GetInProgress(ctx, "ssc-cgl-tier1-2024")
	require.NoError(t, err)

	_, err = env.session.FinishTest(ctx)
	require.NoError(t, err)

	_, err = env.repo.Attempt().GetInProgress(ctx, "ssc-cgl-tier1-2024")
	assert.Error(t, err)
}

func TestFinishTest_ResultSafeToReadDuringUpload(t *testing.T) {
	env := newTestEnv(StaticAuth("user-1"), nil)
	startDefaultTest(t, env)
	ctx := context.Background()

	require.NoError(t, env.session.SubmitAnswer(ctx, "q1", intPtr(0)))

	attempt, err := env.session.FinishTest(ctx)
	require.NoError(t, err)

	// the upload runs on a background goroutine; the returned record must
	// stay readable while it is in flight (run with -race)
	for i := 0; i < 200; i++ {
		_, err := json.Marshal(attempt)
		require.NoError(t, err)
	}
	assert.Equal(t, "user-1", attempt.UserID)

	assert.Eventually(t, func() bool {
		return env.remote.attemptCount() == 1
	}, time.Second, 5*time.Millisecond)
	uploaded := env.remote.attempt(attempt.ID)
	require.NotNil(t, uploaded)
	assert.Equal(t, "user-1", uploaded.UserID)
}

func TestFinishTest_NoSession(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)
	_, err := env.session.FinishTest(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestStartTest_ValidationErrors(t *testing.T) {
	env := newTestEnv(StaticAuth(""), nil)

	_, err := env.session.StartTest(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
