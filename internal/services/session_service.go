package services

import (
	"context"
	"sync"
	"time"

	"github.com/prepstack/attempt-engine/internal/models"
	"github.com/prepstack/attempt-engine/internal/repositories"
	"github.com/prepstack/attempt-engine/internal/scoring"
	"github.com/prepstack/attempt-engine/internal/utils"
)

// sessionService owns the single live session. Every operation is a
// synchronous state transition under one mutex; remote work it triggers is
// delegated to the progress and completion services and never blocks here.
type sessionService struct {
	mu      sync.Mutex
	session *models.Session
	resumed bool

	questions  repositories.QuestionProvider
	progress   ProgressService
	completion CompletionService
	catalog    TestCatalog

	clock     Clock
	idGen     IDGenerator
	validator *utils.Validator
	logger    utils.Logger

	negativeMarking float64
}

func NewSessionService(
	questions repositories.QuestionProvider,
	progress ProgressService,
	completion CompletionService,
	catalog TestCatalog,
	clock Clock,
	idGen IDGenerator,
	validator *utils.Validator,
	logger utils.Logger,
	negativeMarking float64,
) SessionService {
	if clock == nil {
		clock = SystemClock()
	}
	if idGen == nil {
		idGen = UUIDGenerator
	}
	if negativeMarking < 0 {
		negativeMarking = scoring.DefaultNegativeMarking
	}
	return &sessionService{
		session:         &models.Session{},
		questions:       questions,
		progress:        progress,
		completion:      completion,
		catalog:         catalog,
		clock:           clock,
		idGen:           idGen,
		validator:       validator,
		logger:          logger,
		negativeMarking: negativeMarking,
	}
}

// ===== LIFECYCLE =====

// StartTest begins or resumes a session for the requested test. An active
// session for a different test is snapshotted before switching, so progress
// is never lost to navigation.
func (s *sessionService) StartTest(ctx context.Context, req *StartTestRequest) (*SessionView, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}
	if s.validator != nil {
		if err := s.validator.Validate(req); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	if s.session.Active() && s.session.TestID != req.TestID {
		s.accumulatePlayingLocked(now)
		if err := s.progress.SaveProgress(ctx, s.snapshotLocked()); err != nil {
			s.logger.Warn("Failed to snapshot outgoing session",
				"test_id", s.session.TestID,
				"error", err)
		}
	}

	title := ResolveTestTitle(s.catalog, req.TestID, req.Title)

	if snap, err := s.progress.GetResumable(ctx, req.TestID); err == nil && snap != nil {
		s.restoreLocked(ctx, req, snap, title, now)
		s.logger.Info("Resumed in-progress session",
			"test_id", req.TestID,
			"current_index", s.session.CurrentIndex,
			"answered", s.session.AnsweredCount(),
			"time_remaining", s.session.TimeRemaining)
		return s.viewLocked(), nil
	}

	total := req.DurationMinutes * 60
	s.session = &models.Session{
		TestID:            req.TestID,
		TestTitle:         title,
		Questions:         s.resolveQuestions(ctx, req),
		CurrentIndex:      0,
		Answers:           make(map[string]int),
		MarkedForReview:   make(map[string]bool),
		TimeSpent:         make(map[string]int),
		QuestionVisitedAt: &now,
		TimeRemaining:     total,
		TotalTime:         total,
		EndTime:           now.Add(time.Duration(total) * time.Second),
		SessionStartTime:  now,
		IsPlaying:         true,
	}
	s.resumed = false

	s.logger.Info("Started fresh session",
		"test_id", req.TestID,
		"questions", len(s.session.Questions),
		"total_time", total)
	return s.viewLocked(), nil
}

// restoreLocked rebuilds the live session from a persisted snapshot. The
// snapshot's question set wins over the freshly supplied one unless it is
// empty.
func (s *sessionService) restoreLocked(ctx context.Context, req *StartTestRequest, snap *models.TestAttempt, title string, now time.Time) {
	questions := snap.Questions
	if len(questions) == 0 {
		questions = s.resolveQuestions(ctx, req)
	}

	if snap.TestTitle != "" {
		title = ResolveTestTitle(s.catalog, req.TestID, snap.TestTitle)
	}

	total := snap.TotalTime
	if total <= 0 {
		total = req.DurationMinutes * 60
	}
	remaining := snap.TimeRemaining
	if remaining < 0 {
		remaining = 0
	}

	index := snap.CurrentIndex
	if index < 0 || index >= len(questions) {
		index = 0
	}

	start := snap.StartTime
	if start.IsZero() {
		start = now
	}

	s.session = &models.Session{
		TestID:            req.TestID,
		TestTitle:         title,
		Questions:         questions,
		CurrentIndex:      index,
		Answers:           copyIntMap(snap.Answers),
		MarkedForReview:   copyBoolMap(snap.MarkedForReview),
		TimeSpent:         copyIntMap(snap.TimeSpent),
		QuestionVisitedAt: &now,
		TimeRemaining:     remaining,
		TotalTime:         total,
		EndTime:           now.Add(time.Duration(remaining) * time.Second),
		SessionStartTime:  start,
		IsPlaying:         true,
	}
	s.resumed = true
}

// resolveQuestions prefers the caller-supplied set, then the question bank,
// then the static mock set. An empty result is treated the same as an error.
func (s *sessionService) resolveQuestions(ctx context.Context, req *StartTestRequest) []models.Question {
	if len(req.Questions) > 0 {
		return req.Questions
	}
	if s.questions != nil {
		fetched, err := s.questions.FetchQuestions(ctx, req.TestID)
		if err != nil {
			s.logger.Warn("Question fetch failed, using mock set",
				"test_id", req.TestID,
				"error", err)
		} else if len(fetched) > 0 {
			return fetched
		}
	}
	return models.MockQuestions()
}

// FinishTest scores the session, clears it back to idle and hands the
// completed attempt to the completion pipeline. The attempt is returned
// synchronously; remote upload and cleanup happen in the background.
func (s *sessionService) FinishTest(ctx context.Context) (*models.TestAttempt, error) {
	s.mu.Lock()
	if !s.session.Active() {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}

	now := s.clock.Now()
	s.accumulateLocked(now)

	sess := s.session
	attempt := &models.TestAttempt{
		ID:              s.idGen(),
		TestID:          sess.TestID,
		TestTitle:       sess.TestTitle,
		Questions:       sess.Questions,
		CurrentIndex:    sess.CurrentIndex,
		Answers:         sess.Answers,
		MarkedForReview: sess.MarkedForReview,
		TimeSpent:       sess.TimeSpent,
		StartTime:       sess.SessionStartTime,
		EndTime:         now,
		TimeRemaining:   sess.TimeRemaining,
		TotalTime:       sess.TotalTime,
		Score:           scoring.Score(sess.Questions, sess.Answers, s.negativeMarking),
		TotalMarks:      scoring.TotalMarks(sess.Questions),
		Status:          models.AttemptCompleted,
	}

	s.session = &models.Session{}
	s.resumed = false
	s.mu.Unlock()

	if err := s.completion.Finalize(ctx, attempt); err != nil {
		s.logger.LogError(err, "Failed to finalize attempt",
			"attempt_id", attempt.ID,
			"test_id", attempt.TestID)
	}

	s.logger.Info("Finished test",
		"test_id", attempt.TestID,
		"attempt_id", attempt.ID,
		"score", attempt.Score,
		"answered", attempt.AnsweredCount())
	return attempt, nil
}

// Reset drops the live session without recording anything.
func (s *sessionService) Reset(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &models.Session{}
	s.resumed = false
}

// ===== ANSWERS AND MARKS =====

// SubmitAnswer records the selected option for a question; a nil option
// clears any recorded answer.
func (s *sessionService) SubmitAnswer(ctx context.Context, questionID string, option *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.Active() {
		return ErrNoActiveSession
	}
	if !s.hasQuestionLocked(questionID) {
		return ErrQuestionNotFound
	}

	if option == nil {
		delete(s.session.Answers, questionID)
		return nil
	}
	s.session.Answers[questionID] = *option
	return nil
}

// ToggleMark flips the review flag for a question, independent of its answer.
func (s *sessionService) ToggleMark(ctx context.Context, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.Active() {
		return ErrNoActiveSession
	}
	if !s.hasQuestionLocked(questionID) {
		return ErrQuestionNotFound
	}

	if s.session.MarkedForReview[questionID] {
		delete(s.session.MarkedForReview, questionID)
	} else {
		s.session.MarkedForReview[questionID] = true
	}
	return nil
}

// ===== NAVIGATION =====

func (s *sessionService) NextQuestion(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.Active() {
		return ErrNoActiveSession
	}
	target := s.session.CurrentIndex + 1
	if target >= len(s.session.Questions) {
		target = len(s.session.Questions) - 1
	}
	s.moveCursorLocked(target)
	return nil
}

func (s *sessionService) PrevQuestion(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.Active() {
		return ErrNoActiveSession
	}
	target := s.session.CurrentIndex - 1
	if target < 0 {
		target = 0
	}
	s.moveCursorLocked(target)
	return nil
}

// JumpToQuestion moves the cursor to an arbitrary index. Out-of-range
// indices are rejected rather than trusted.
func (s *sessionService) JumpToQuestion(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.Active() {
		return ErrNoActiveSession
	}
	if index < 0 || index >= len(s.session.Questions) {
		return ErrIndexOutOfRange
	}
	s.moveCursorLocked(index)
	return nil
}

// moveCursorLocked accumulates time spent on the outgoing question (only
// while playing) and restarts the per-question stopwatch.
func (s *sessionService) moveCursorLocked(index int) {
	now := s.clock.Now()
	if s.session.IsPlaying {
		s.accumulateLocked(now)
	}
	s.session.CurrentIndex = index
	s.session.QuestionVisitedAt = &now
}

// ===== TIMER =====

// TickTimer recomputes the remaining seconds from the absolute deadline and
// returns them. A no-op while paused. Call it on a fixed interval and on
// app-foreground transitions to correct drift accumulated while suspended.
func (s *sessionService) TickTimer(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.Active() {
		return 0
	}
	if !s.session.IsPlaying {
		return s.session.TimeRemaining
	}
	s.session.TimeRemaining = secondsUntil(s.session.EndTime, s.clock.Now())
	return s.session.TimeRemaining
}

// ToggleTimer pauses a playing session or resumes a paused one. Resume
// pushes the deadline out by the frozen remaining time, so paused wall-clock
// time never counts against the test.
func (s *sessionService) ToggleTimer(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.Active() {
		return ErrNoActiveSession
	}

	now := s.clock.Now()
	if s.session.IsPlaying {
		s.accumulateLocked(now)
		s.session.QuestionVisitedAt = nil
		s.session.TimeRemaining = secondsUntil(s.session.EndTime, now)
		s.session.IsPlaying = false
		s.logger.Debug("Paused session",
			"test_id", s.session.TestID,
			"time_remaining", s.session.TimeRemaining)
		return nil
	}

	s.session.EndTime = now.Add(time.Duration(s.session.TimeRemaining) * time.Second)
	s.session.QuestionVisitedAt = &now
	s.session.IsPlaying = true
	s.logger.Debug("Resumed session",
		"test_id", s.session.TestID,
		"time_remaining", s.session.TimeRemaining)
	return nil
}

// ===== PERSISTENCE =====

// SaveProgress snapshots the live session. Persistence failures are logged
// and swallowed; the live session is the source of truth for the UI and a
// failed save must never interrupt it.
func (s *sessionService) SaveProgress(ctx context.Context) error {
	s.mu.Lock()
	if !s.session.Active() {
		s.mu.Unlock()
		return ErrNoActiveSession
	}

	now := s.clock.Now()
	s.accumulatePlayingLocked(now)
	if s.session.IsPlaying {
		s.session.QuestionVisitedAt = &now
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if err := s.progress.SaveProgress(ctx, snapshot); err != nil {
		s.logger.LogError(err, "Failed to save progress", "test_id", snapshot.TestID)
	}
	return nil
}

// View returns a detached snapshot of the current session state.
func (s *sessionService) View() *SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// ===== INTERNAL =====

// accumulateLocked folds the elapsed seconds on the current question into its
// time-spent bucket whenever the stopwatch is running.
func (s *sessionService) accumulateLocked(now time.Time) {
	visited := s.session.QuestionVisitedAt
	if visited == nil {
		return
	}
	current := s.session.CurrentQuestion()
	if current == nil {
		return
	}
	elapsed := int(now.Sub(*visited) / time.Second)
	if elapsed > 0 {
		s.session.TimeSpent[current.ID] += elapsed
	}
	s.session.QuestionVisitedAt = &now
}

// accumulatePlayingLocked is the navigation-path variant: it only counts
// time while the session is playing.
func (s *sessionService) accumulatePlayingLocked(now time.Time) {
	if s.session.IsPlaying {
		s.accumulateLocked(now)
	}
}

func (s *sessionService) hasQuestionLocked(questionID string) bool {
	for i := range s.session.Questions {
		if s.session.Questions[i].ID == questionID {
			return true
		}
	}
	return false
}

// snapshotLocked returns a deep enough copy of the session for background
// persistence to read without racing the live maps.
func (s *sessionService) snapshotLocked() *models.Session {
	sess := s.session
	copied := *sess
	copied.Answers = copyIntMap(sess.Answers)
	copied.MarkedForReview = copyBoolMap(sess.MarkedForReview)
	copied.TimeSpent = copyIntMap(sess.TimeSpent)
	return &copied
}

func (s *sessionService) viewLocked() *SessionView {
	sess := s.session
	view := &SessionView{
		TestID:          sess.TestID,
		TestTitle:       sess.TestTitle,
		Questions:       sess.Questions,
		CurrentIndex:    sess.CurrentIndex,
		Answers:         copyIntMap(sess.Answers),
		MarkedForReview: copyBoolMap(sess.MarkedForReview),
		TimeSpent:       copyIntMap(sess.TimeSpent),
		TimeRemaining:   sess.TimeRemaining,
		TotalTime:       sess.TotalTime,
		IsPlaying:       sess.IsPlaying,
		AnsweredCount:   sess.AnsweredCount(),
		Resumed:         s.resumed,
	}
	if q := sess.CurrentQuestion(); q != nil {
		question := *q
		view.CurrentQuestion = &question
	}
	return view
}

// secondsUntil converts the deadline distance into whole seconds, never
// negative.
func secondsUntil(deadline, now time.Time) int {
	secs := int(deadline.Sub(now) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
