package handlers

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/prepstack/attempt-engine/internal/services"
	"github.com/prepstack/attempt-engine/internal/utils"
)

func respondTo(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h := NewBaseHandler(utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	h.RespondWithServiceError(c, err)
	return w
}

func TestRespondWithServiceError_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrNoActiveSession, http.StatusConflict},
		{services.ErrQuestionNotFound, http.StatusNotFound},
		{services.ErrIndexOutOfRange, http.StatusBadRequest},
		{services.ErrNotAuthenticated, http.StatusUnauthorized},
		{services.ErrInvalidRequest, http.StatusBadRequest},
		{fmt.Errorf("backend exploded"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, respondTo(t, tc.err).Code, tc.err.Error())
	}
}

func TestRespondWithServiceError_UnwrapsWrappedErrors(t *testing.T) {
	w := respondTo(t, fmt.Errorf("finishing attempt: %w", services.ErrNoActiveSession))
	assert.Equal(t, http.StatusConflict, w.Code)
}
