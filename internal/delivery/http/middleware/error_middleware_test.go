package middleware_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-recruitment-intake/internal/delivery/http/middleware"
	"go-recruitment-intake/internal/delivery/http/response"
	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/pkg/apperror"
	"go-recruitment-intake/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func failWith(t *testing.T, err error) (int, response.Response) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(err)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))

	var env response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestErrorHandler(t *testing.T) {
	t.Run("Should map intake errors to their answers", func(t *testing.T) {
		cases := []struct {
			err  error
			code int
			msg  string
		}{
			{domain.ErrSessionNotFound, http.StatusNotFound, "Chat session not found. Please start a new chat."},
			{domain.ErrSessionBusy, http.StatusConflict, "Your resume is still being uploaded. Please wait."},
			{domain.ErrSessionClosed, http.StatusGone, "This chat was closed."},
			{domain.ErrStepMismatch, http.StatusConflict, "That answer does not belong to the current question."},
			{domain.ErrNotificationNotFound, http.StatusNotFound, "Notification not found"},
			{domain.ErrFileUnreadable, http.StatusBadRequest, "The uploaded file could not be read."},
		}
		for _, tc := range cases {
			code, env := failWith(t, fmt.Errorf("handler: %w", tc.err))
			assert.Equal(t, tc.code, code, tc.err.Error())
			assert.Equal(t, tc.msg, env.Message)
			assert.False(t, env.Success)
		}
	})

	t.Run("Should render an AppError as is", func(t *testing.T) {
		code, env := failWith(t, apperror.BadRequest("Email is not valid"))
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "Email is not valid", env.Message)
	})

	t.Run("Should hide unknown errors", func(t *testing.T) {
		code, env := failWith(t, errors.New("dial tcp 10.0.0.7:5432: connection refused"))
		assert.Equal(t, http.StatusInternalServerError, code)
		assert.NotContains(t, env.Message, "10.0.0.7")
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(nil, middleware.RateLimitConfig{
		Limit:     1,
		Window:    time.Minute,
		KeyPrefix: "rl:test:",
	}, security.NewSecurityLogger(zap.NewNop(), "test", "test")))
	r.GET("/limited", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var env response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "Rate limit exceeded. Please try again later.", env.Message)
}
