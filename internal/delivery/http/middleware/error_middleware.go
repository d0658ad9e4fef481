package middleware

import (
	"errors"
	"net/http"

	"go-recruitment-intake/internal/delivery/http/response"
	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/pkg/apperror"
	"go-recruitment-intake/pkg/logger"

	"github.com/gin-gonic/gin"
)

// domainErrors maps sentinel errors of the intake flow to HTTP answers.
var domainErrors = []struct {
	target error
	answer *apperror.AppError
}{
	{domain.ErrSessionNotFound, apperror.NotFound("Chat session not found. Please start a new chat.")},
	{domain.ErrSessionBusy, apperror.Conflict("Your resume is still being uploaded. Please wait.")},
	{domain.ErrSessionClosed, apperror.Gone("This chat was closed.")},
	{domain.ErrStepMismatch, apperror.Conflict("That answer does not belong to the current question.")},
	{domain.ErrNotificationNotFound, apperror.NotFound("Notification not found")},
	{domain.ErrFileUnreadable, apperror.BadRequest("The uploaded file could not be read.")},
}

// abortWith writes appErr and stops the handler chain.
func abortWith(c *gin.Context, appErr *apperror.AppError) {
	response.Error(c, appErr.Code, appErr.Message, nil)
	c.Abort()
}

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if appErr, ok := apperror.As(err); ok {
			if appErr.Code >= http.StatusInternalServerError {
				logger.Log.Error("request failed", "path", c.FullPath(), "request_id", response.RequestID(c), "error", err)
			}
			response.Error(c, appErr.Code, appErr.Message, nil)
			return
		}

		for _, de := range domainErrors {
			if errors.Is(err, de.target) {
				response.Error(c, de.answer.Code, de.answer.Message, nil)
				return
			}
		}

		// SECURITY: Never expose internal error details to clients.
		logger.Log.Error("internal server error", "path", c.FullPath(), "request_id", response.RequestID(c), "error", err)
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
	}
}
