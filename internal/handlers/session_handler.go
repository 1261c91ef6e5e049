package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prepstack/attempt-engine/internal/services"
	"github.com/prepstack/attempt-engine/internal/utils"
)

// SessionHandler exposes the live session state machine over HTTP. It is a
// thin facade: every route is one service call plus response shaping.
type SessionHandler struct {
	BaseHandler
	session services.SessionService
}

func NewSessionHandler(session services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		session:     session,
	}
}

// StartTest begins or resumes a test session
// POST /api/v1/session/start
func (h *SessionHandler) StartTest(c *gin.Context) {
	var req services.StartTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	view, err := h.session.StartTest(c.Request.Context(), &req)
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "session started", view)
}

type submitAnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	Option     *int   `json:"option"` // null clears the answer
}

// SubmitAnswer records or clears an answer
// POST /api/v1/session/answer
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.session.SubmitAnswer(c.Request.Context(), req.QuestionID, req.Option); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "answer recorded", h.session.View())
}

type toggleMarkRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
}

// ToggleMark flips the review flag on a question
// POST /api/v1/session/mark
func (h *SessionHandler) ToggleMark(c *gin.Context) {
	var req toggleMarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.session.ToggleMark(c.Request.Context(), req.QuestionID); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "mark toggled", h.session.View())
}

// NextQuestion advances the cursor
// POST /api/v1/session/next
func (h *SessionHandler) NextQuestion(c *gin.Context) {
	if err := h.session.NextQuestion(c.Request.Context()); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "moved to next question", h.session.View())
}

// PrevQuestion moves the cursor back
// POST /api/v1/session/prev
func (h *SessionHandler) PrevQuestion(c *gin.Context) {
	if err := h.session.PrevQuestion(c.Request.Context()); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "moved to previous question", h.session.View())
}

type jumpRequest struct {
	Index int `json:"index"`
}

// JumpToQuestion moves the cursor to an arbitrary question
// POST /api/v1/session/jump
func (h *SessionHandler) JumpToQuestion(c *gin.Context) {
	var req jumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.session.JumpToQuestion(c.Request.Context(), req.Index); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "jumped to question", h.session.View())
}

// TickTimer recomputes and returns the remaining seconds
// POST /api/v1/session/tick
func (h *SessionHandler) TickTimer(c *gin.Context) {
	remaining := h.session.TickTimer(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"time_remaining": remaining})
}

// ToggleTimer pauses or resumes the session
// POST /api/v1/session/toggle-timer
func (h *SessionHandler) ToggleTimer(c *gin.Context) {
	if err := h.session.ToggleTimer(c.Request.Context()); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "timer toggled", h.session.View())
}

// SaveProgress snapshots the live session
// POST /api/v1/session/save
func (h *SessionHandler) SaveProgress(c *gin.Context) {
	if err := h.session.SaveProgress(c.Request.Context()); err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "progress saved", nil)
}

// FinishTest scores and finalizes the session
// POST /api/v1/session/finish
func (h *SessionHandler) FinishTest(c *gin.Context) {
	attempt, err := h.session.FinishTest(c.Request.Context())
	if err != nil {
		h.RespondWithServiceError(c, err)
		return
	}
	h.RespondWithSuccess(c, http.StatusOK, "test finished", attempt)
}

// GetSession returns the current session view
// GET /api/v1/session
func (h *SessionHandler) GetSession(c *gin.Context) {
	h.RespondWithSuccess(c, http.StatusOK, "session state", h.session.View())
}

// ResetSession abandons the live session without recording it
// DELETE /api/v1/session
func (h *SessionHandler) ResetSession(c *gin.Context) {
	h.session.Reset(c.Request.Context())
	h.RespondWithSuccess(c, http.StatusOK, "session reset", nil)
}
