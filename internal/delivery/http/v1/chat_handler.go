package v1

import (
	"errors"
	"io"
	"net/http"

	"go-recruitment-intake/internal/delivery/http/response"
	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/pkg/apperror"

	"github.com/gin-gonic/gin"
)

// maxUploadBody caps the multipart body. It sits above the 5MB resume limit
// so oversized files still get a conversational answer.
const maxUploadBody = 10 << 20

type ChatHandler struct {
	chatUC domain.ConversationUsecase
}

type NameRequest struct {
	Name string `json:"name" example:"John O'Brien"`
}

type EmailRequest struct {
	Email string `json:"email" example:"john@example.com"`
}

type JobTitleRequest struct {
	JobTitle string `json:"job_title" example:"Backend Developer"`
}

// NewChatHandler registers the chat assistant routes (public). openGuards run
// before a session is opened.
func NewChatHandler(public *gin.RouterGroup, chatUC domain.ConversationUsecase, openGuards ...gin.HandlerFunc) {
	handler := &ChatHandler{chatUC: chatUC}

	open := append(append([]gin.HandlerFunc{}, openGuards...), handler.Open)

	chat := public.Group("/chat/sessions")
	{
		chat.POST("", open...)
		chat.GET("/:id", handler.Get)
		chat.POST("/:id/name", handler.SubmitName)
		chat.POST("/:id/email", handler.SubmitEmail)
		chat.POST("/:id/job-title", handler.SelectJobTitle)
		chat.POST("/:id/resume", handler.UploadResume)
		chat.DELETE("/:id", handler.Close)
	}
}

// Open godoc
// @Summary      Open a chat
// @Description  Starts a CV intake conversation. The reply carries the greeting; the name prompt follows after the typing delay.
// @Tags         chat
// @Produce      json
// @Success      201  {object}  response.Response{data=domain.ChatReply}
// @Failure      429  {object}  response.Response
// @Router       /chat/sessions [post]
func (h *ChatHandler) Open(c *gin.Context) {
	reply, err := h.chatUC.Open(c.Request.Context())
	if err != nil {
		c.Error(apperror.Internal(err))
		return
	}
	response.Success(c, http.StatusCreated, "Chat opened", reply)
}

// Get godoc
// @Summary      Get chat state
// @Description  Returns the current step, input control and full transcript
// @Tags         chat
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  response.Response{data=domain.ChatSessionView}
// @Failure      404  {object}  response.Response
// @Router       /chat/sessions/{id} [get]
func (h *ChatHandler) Get(c *gin.Context) {
	view, err := h.chatUC.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Chat session", view)
}

// SubmitName godoc
// @Summary      Answer the name question
// @Description  Invalid names are answered with outcome "invalid" and a validation message; the step does not change.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        id    path      string       true  "Session ID"
// @Param        body  body      NameRequest  true  "Applicant name"
// @Success      200   {object}  response.Response{data=domain.ChatReply}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /chat/sessions/{id}/name [post]
func (h *ChatHandler) SubmitName(c *gin.Context) {
	var req NameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	reply, err := h.chatUC.SubmitName(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, replyMessage(reply), reply)
}

// SubmitEmail godoc
// @Summary      Answer the email question
// @Description  On success the reply lists the selectable job titles.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        id    path      string        true  "Session ID"
// @Param        body  body      EmailRequest  true  "Applicant email"
// @Success      200   {object}  response.Response{data=domain.ChatReply}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /chat/sessions/{id}/email [post]
func (h *ChatHandler) SubmitEmail(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	reply, err := h.chatUC.SubmitEmail(c.Request.Context(), c.Param("id"), req.Email)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, replyMessage(reply), reply)
}

// SelectJobTitle godoc
// @Summary      Choose a job title
// @Description  Selecting "create-new" keeps the step and returns a navigate action.
// @Tags         chat
// @Accept       json
// @Produce      json
// @Param        id    path      string           true  "Session ID"
// @Param        body  body      JobTitleRequest  true  "Selected job title"
// @Success      200   {object}  response.Response{data=domain.ChatReply}
// @Failure      400   {object}  response.Response
// @Failure      404   {object}  response.Response
// @Failure      409   {object}  response.Response
// @Router       /chat/sessions/{id}/job-title [post]
func (h *ChatHandler) SelectJobTitle(c *gin.Context) {
	var req JobTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return
	}

	reply, err := h.chatUC.SelectJobTitle(c.Request.Context(), c.Param("id"), req.JobTitle)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, replyMessage(reply), reply)
}

// UploadResume godoc
// @Summary      Upload the resume
// @Description  Accepts PDF, DOC or DOCX between 1KB and 5MB as multipart field "resume". Drag-and-drop uploads use the same field.
// @Tags         chat
// @Accept       multipart/form-data
// @Produce      json
// @Param        id      path      string  true  "Session ID"
// @Param        resume  formData  file    true  "Resume file"
// @Success      200     {object}  response.Response{data=domain.ChatReply}
// @Failure      400     {object}  response.Response
// @Failure      404     {object}  response.Response
// @Failure      409     {object}  response.Response
// @Failure      410     {object}  response.Response
// @Failure      413     {object}  response.Response
// @Router       /chat/sessions/{id}/resume [post]
func (h *ChatHandler) UploadResume(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBody)

	fh, err := c.FormFile("resume")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.Error(apperror.New(http.StatusRequestEntityTooLarge, "File is too large. The maximum size is 5MB", err))
			return
		}
		c.Error(apperror.BadRequest("Resume file is required in field \"resume\""))
		return
	}

	file := domain.ResumeFile{
		Name:      fh.Filename,
		MIMEType:  fh.Header.Get("Content-Type"),
		SizeBytes: fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}

	reply, err := h.chatUC.UploadResume(c.Request.Context(), c.Param("id"), file, c.ClientIP())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, replyMessage(reply), reply)
}

// Close godoc
// @Summary      Close a chat
// @Description  Discards the conversation. An upload in flight still completes but its result is dropped.
// @Tags         chat
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /chat/sessions/{id} [delete]
func (h *ChatHandler) Close(c *gin.Context) {
	if err := h.chatUC.Close(c.Request.Context(), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Chat closed", nil)
}

func replyMessage(reply *domain.ChatReply) string {
	switch reply.Outcome {
	case domain.OutcomeInvalid:
		return "Input needs attention"
	case domain.OutcomeError, domain.OutcomeFailed:
		return "Something went wrong"
	case domain.OutcomeSubmitted:
		return "Resume submitted"
	default:
		return "OK"
	}
}
