package v1

import (
	"io"
	"net/http"
	"time"

	"go-recruitment-intake/internal/delivery/http/response"
	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/pkg/apperror"
	"go-recruitment-intake/pkg/security"

	"github.com/gin-gonic/gin"
)

const defaultStreamHeartbeat = 25 * time.Second

type AdminHandler struct {
	feedUC    domain.AdminFeedUsecase
	secLogger *security.SecurityLogger
	heartbeat time.Duration
}

// NewAdminHandler registers the admin dashboard routes on a group that is
// already behind admin authentication.
func NewAdminHandler(admin *gin.RouterGroup, feedUC domain.AdminFeedUsecase, secLogger *security.SecurityLogger, heartbeat time.Duration) {
	if heartbeat <= 0 {
		heartbeat = defaultStreamHeartbeat
	}
	handler := &AdminHandler{feedUC: feedUC, secLogger: secLogger, heartbeat: heartbeat}

	// Notifications
	admin.GET("/notifications", handler.ListNotifications)
	admin.POST("/notifications/read-all", handler.MarkAllRead)
	admin.POST("/notifications/:id/read", handler.MarkRead)
	admin.DELETE("/notifications", handler.Clear)
	admin.GET("/notifications/stream", handler.Stream)

	// Resumes
	admin.GET("/resumes", handler.LatestResumes)
}

// ListNotifications godoc
// @Summary      List notifications
// @Description  Returns the notification list, newest first, with the unread count
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=domain.NotificationList}
// @Failure      401  {object}  response.Response
// @Router       /admin/notifications [get]
func (h *AdminHandler) ListNotifications(c *gin.Context) {
	response.Success(c, http.StatusOK, "Notifications", h.feedUC.ListNotifications(c.Request.Context()))
}

// MarkRead godoc
// @Summary      Mark a notification read
// @Description  Accepts the notification id or the resume id it refers to
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Notification ID"
// @Success      200  {object}  response.Response{data=domain.NotificationList}
// @Failure      404  {object}  response.Response
// @Router       /admin/notifications/{id}/read [post]
func (h *AdminHandler) MarkRead(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(apperror.BadRequest("Notification ID is required"))
		return
	}

	if err := h.feedUC.MarkRead(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Notification marked as read", h.feedUC.ListNotifications(c.Request.Context()))
}

// MarkAllRead godoc
// @Summary      Mark all notifications read
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=domain.NotificationList}
// @Router       /admin/notifications/read-all [post]
func (h *AdminHandler) MarkAllRead(c *gin.Context) {
	response.Success(c, http.StatusOK, "All notifications marked as read", h.feedUC.MarkAllRead(c.Request.Context()))
}

// Clear godoc
// @Summary      Clear notifications
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Router       /admin/notifications [delete]
func (h *AdminHandler) Clear(c *gin.Context) {
	h.feedUC.Clear(c.Request.Context())
	response.Success(c, http.StatusOK, "Notifications cleared", nil)
}

// LatestResumes godoc
// @Summary      Latest resumes
// @Description  First page of resumes as of the last refetch
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=domain.ResumePage}
// @Failure      502  {object}  response.Response
// @Router       /admin/resumes [get]
func (h *AdminHandler) LatestResumes(c *gin.Context) {
	page, err := h.feedUC.LatestResumes(c.Request.Context())
	if err != nil {
		c.Error(apperror.BadGateway("Resume list is unavailable right now", err))
		return
	}
	response.Success(c, http.StatusOK, "Latest resumes", page)
}

// Stream godoc
// @Summary      Notification stream
// @Description  Server-sent events. Starts with a "snapshot" event, then "notification", "unread_count" and "resumes" events, with "ping" heartbeats. EventSource clients pass the token as a query parameter.
// @Tags         admin
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        token  query  string  false  "Admin token for EventSource clients"
// @Success      200
// @Failure      401  {object}  response.Response
// @Router       /admin/notifications/stream [get]
func (h *AdminHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	events, unsubscribe := h.feedUC.Subscribe()
	defer unsubscribe()

	h.secLogger.LogAdminStreamOpened(ctx, c.GetString(string(domain.KeyAdminID)), c.ClientIP(), response.RequestID(c))

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("snapshot", h.feedUC.ListNotifications(ctx))
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case e, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Type), e)
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", gin.H{"at": t.UTC()})
			return true
		}
	})
}
