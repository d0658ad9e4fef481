package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/pkg/logger"
	"go-recruitment-intake/pkg/metrics"
	"go-recruitment-intake/pkg/security"
	"go-recruitment-intake/pkg/security/antivirus"
	"go-recruitment-intake/pkg/validation"

	"github.com/google/uuid"
)

const (
	msgGreeting         = "Hi there! I'm the recruitment assistant. I'll help you send us your CV in a few quick steps."
	msgAskName          = "What's your full name?"
	msgAskEmail         = "Nice to meet you, %s! What's your email address?"
	msgAskJobTitle      = "Which position are you applying for?"
	msgAskJobTitleFree  = "We couldn't load the list of open positions. Pick one of these or type the position you're applying for."
	msgCreateJobTitle   = "Let's add that position first. Opening the job title form."
	msgAskResume        = "Great! Please upload your resume (PDF, DOC or DOCX, up to 5MB). You can also drag and drop it here."
	msgUploading        = "Uploading your resume..."
	msgRetryResume      = "Please try uploading your resume again."
	msgThanks           = "Thank you, %s! We've received your resume and will be in touch soon."
	msgFileUnreadable   = "We couldn't read that file. Please try uploading it again."
	msgScannerFailed    = "We couldn't check your file right now. Please try again in a moment."
	msgThreatDetected   = "This file can't be accepted. Please upload a different file."
	msgUploadsThrottled = "You've uploaded too many files. Please try again later."
)

// FallbackJobTitles is offered when the job title list cannot be loaded.
var FallbackJobTitles = []string{
	"Software Engineer",
	"Frontend Developer",
	"Backend Developer",
	"Full Stack Developer",
	"UI/UX Designer",
	"Project Manager",
	"QA Engineer",
	"DevOps Engineer",
	"Data Analyst",
	"HR Executive",
}

// UploadLimiter throttles resume uploads per client.
type UploadLimiter interface {
	AllowUpload(ctx context.Context, ip, email string) (security.Decision, error)
}

type ConversationConfig struct {
	TypingDelay        time.Duration
	CloseDelay         time.Duration
	JobTitleCreatePath string
}

// ConversationDeps collects the collaborators of the chat driver. Limiter,
// Scanner, SecurityLogger and Logger are optional. Schedule and Now exist for
// tests and default to time.AfterFunc and time.Now.
type ConversationDeps struct {
	Sessions       domain.SessionRepository
	Resumes        domain.ResumeRepository
	Store          domain.NotificationSink
	Limiter        UploadLimiter
	Scanner        antivirus.Scanner
	SecurityLogger *security.SecurityLogger
	Logger         *slog.Logger

	Schedule func(d time.Duration, f func())
	Now      func() time.Time
}

type conversationUsecase struct {
	sessions  domain.SessionRepository
	resumes   domain.ResumeRepository
	store     domain.NotificationSink
	limiter   UploadLimiter
	scanner   antivirus.Scanner
	secLogger *security.SecurityLogger
	logger    *slog.Logger
	cfg       ConversationConfig
	schedule  func(d time.Duration, f func())
	now       func() time.Time
}

// NewConversationUsecase creates the chat assistant driver
func NewConversationUsecase(deps ConversationDeps, cfg ConversationConfig) domain.ConversationUsecase {
	uc := &conversationUsecase{
		sessions:  deps.Sessions,
		resumes:   deps.Resumes,
		store:     deps.Store,
		limiter:   deps.Limiter,
		scanner:   deps.Scanner,
		secLogger: deps.SecurityLogger,
		logger:    deps.Logger,
		cfg:       cfg,
		schedule:  deps.Schedule,
		now:       deps.Now,
	}
	if uc.scanner == nil {
		uc.scanner = antivirus.NewNoOpScanner()
	}
	if uc.logger == nil {
		uc.logger = logger.Log
	}
	uc.logger = uc.logger.With("component", "conversation")
	if uc.schedule == nil {
		uc.schedule = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	if uc.now == nil {
		uc.now = time.Now
	}
	return uc
}

// Open starts a dialogue in greeting. The name prompt follows after the
// typing delay.
func (uc *conversationUsecase) Open(ctx context.Context) (*domain.ChatReply, error) {
	sess := domain.NewConversationSession(uuid.NewString(), uc.now())

	sess.Lock()
	defer sess.Unlock()

	b := beginReply(sess)
	sess.Say(domain.MessagePrompt, msgGreeting, uc.now())
	if err := uc.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}

	if uc.cfg.TypingDelay <= 0 {
		uc.askName(sess)
	} else {
		uc.schedule(uc.cfg.TypingDelay, func() {
			sess.Lock()
			defer sess.Unlock()
			if uc.isCurrent(sess) {
				uc.askName(sess)
			}
		})
	}

	metrics.RecordChatAction(string(domain.StepGreeting), string(domain.OutcomeAccepted))
	return b.finish(domain.OutcomeAccepted), nil
}

// askName runs with the session lock held.
func (uc *conversationUsecase) askName(sess *domain.ConversationSession) {
	if sess.Step != domain.StepGreeting {
		return
	}
	_ = sess.Advance(domain.StepCollectName, uc.now())
	sess.Say(domain.MessagePrompt, msgAskName, uc.now())
}

func (uc *conversationUsecase) Get(ctx context.Context, sessionID string) (*domain.ChatSessionView, error) {
	sess, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	reply := beginReply(sess).finish("")
	view := &domain.ChatSessionView{
		ChatReply:  *reply,
		Name:       sess.Name,
		Email:      sess.Email,
		JobTitle:   sess.JobTitle,
		Transcript: append([]domain.ChatMessage(nil), sess.Transcript...),
	}
	view.Messages = []domain.ChatMessage{}
	view.Receipt = sess.Receipt
	if sess.File != nil {
		file := *sess.File
		view.File = &file
	}
	return view, nil
}

func (uc *conversationUsecase) SubmitName(ctx context.Context, sessionID, name string) (*domain.ChatReply, error) {
	return uc.collect(ctx, sessionID, domain.StepCollectName, func(sess *domain.ConversationSession, b replyBuilder) *domain.ChatReply {
		value := strings.TrimSpace(name)
		sess.Hear(value, uc.now())

		if res := validation.ValidateName(value); !res.Valid {
			return uc.reject(sess, b, res)
		}

		sess.Name = value
		_ = sess.Advance(domain.StepCollectEmail, uc.now())
		sess.Say(domain.MessagePrompt, fmt.Sprintf(msgAskEmail, firstName(value)), uc.now())
		return b.finish(domain.OutcomeAccepted)
	})
}

func (uc *conversationUsecase) SubmitEmail(ctx context.Context, sessionID, email string) (*domain.ChatReply, error) {
	return uc.collect(ctx, sessionID, domain.StepCollectEmail, func(sess *domain.ConversationSession, b replyBuilder) *domain.ChatReply {
		value := strings.TrimSpace(email)
		sess.Hear(value, uc.now())

		if res := validation.ValidateEmail(value); !res.Valid {
			return uc.reject(sess, b, res)
		}

		sess.Email = value
		_ = sess.Advance(domain.StepCollectJobTitle, uc.now())

		options, freeForm := uc.loadJobTitles(ctx)
		sess.JobTitleOptions = options
		sess.JobTitleFreeForm = freeForm
		if freeForm {
			sess.Say(domain.MessagePrompt, msgAskJobTitleFree, uc.now())
		} else {
			sess.Say(domain.MessagePrompt, msgAskJobTitle, uc.now())
		}
		return b.finish(domain.OutcomeAccepted)
	})
}

// loadJobTitles returns the selectable titles. When the list cannot be loaded
// or is empty the fallback roles are offered and free-form answers allowed.
func (uc *conversationUsecase) loadJobTitles(ctx context.Context) ([]string, bool) {
	titles, err := uc.resumes.ListJobTitles(ctx)
	if err != nil {
		uc.logger.Warn("job title list unavailable, using fallback roles", "error", err)
		return append([]string(nil), FallbackJobTitles...), true
	}

	seen := make(map[string]struct{}, len(titles))
	options := make([]string, 0, len(titles))
	for _, t := range titles {
		name := strings.TrimSpace(t.Name)
		if t.IsDeleted || name == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			continue
		}
		seen[strings.ToLower(name)] = struct{}{}
		options = append(options, name)
	}

	if len(options) == 0 {
		uc.logger.Warn("job title list is empty, using fallback roles")
		return append([]string(nil), FallbackJobTitles...), true
	}
	return options, false
}

func (uc *conversationUsecase) SelectJobTitle(ctx context.Context, sessionID, title string) (*domain.ChatReply, error) {
	return uc.collect(ctx, sessionID, domain.StepCollectJobTitle, func(sess *domain.ConversationSession, b replyBuilder) *domain.ChatReply {
		value := strings.TrimSpace(title)

		if value == validation.JobTitleCreateNew {
			sess.Say(domain.MessageInfo, msgCreateJobTitle, uc.now())
			reply := b.finish(domain.OutcomeNavigate)
			reply.Action = &domain.ChatAction{Type: "navigate", Target: uc.cfg.JobTitleCreatePath}
			return reply
		}

		sess.Hear(value, uc.now())
		if res := validation.ValidateJobTitle(value, sess.JobTitleOptions, sess.JobTitleFreeForm); !res.Valid {
			return uc.reject(sess, b, res)
		}

		sess.JobTitle = canonicalTitle(value, sess.JobTitleOptions)
		_ = sess.Advance(domain.StepCollectResume, uc.now())
		sess.Say(domain.MessagePrompt, msgAskResume, uc.now())
		return b.finish(domain.OutcomeAccepted)
	})
}

// UploadResume validates the file, parks the session in submitting and runs
// the upload outside the session lock. Closing the chat while the upload is
// in flight does not cancel it; the late result is dropped.
func (uc *conversationUsecase) UploadResume(ctx context.Context, sessionID string, file domain.ResumeFile, clientIP string) (*domain.ChatReply, error) {
	sess, b, upload, reply, err := uc.prepareUpload(ctx, sessionID, file, clientIP)
	if err != nil || reply != nil {
		return reply, err
	}

	start := uc.now()
	receipt, err := uc.resumes.SubmitResume(context.WithoutCancel(ctx), *upload)
	elapsed := uc.now().Sub(start)

	sess.Lock()
	defer sess.Unlock()

	if !uc.isCurrent(sess) {
		uc.logger.Info("dropping upload result for closed session", "session_id", sess.ID, "succeeded", err == nil)
		return nil, domain.ErrSessionClosed
	}

	if err != nil {
		metrics.RecordSubmission("failed", elapsed)
		message := domain.GenericSubmissionMessage
		var subErr *domain.SubmissionError
		if errors.As(err, &subErr) && subErr.Message != "" {
			message = subErr.Message
		}
		uc.logger.Warn("resume submission failed", "session_id", sess.ID, "error", err)

		_ = sess.Advance(domain.StepCollectResume, uc.now())
		sess.Say(domain.MessageError, message, uc.now())
		sess.Say(domain.MessagePrompt, msgRetryResume, uc.now())
		metrics.RecordChatAction(string(domain.StepSubmitting), string(domain.OutcomeFailed))
		return b.finish(domain.OutcomeFailed), nil
	}

	metrics.RecordSubmission("submitted", elapsed)
	sess.Receipt = receipt
	_ = sess.Advance(domain.StepDone, uc.now())
	sess.Say(domain.MessageInfo, fmt.Sprintf(msgThanks, firstName(sess.Name)), uc.now())
	uc.notifyLocal(sess, receipt)

	uc.schedule(uc.cfg.CloseDelay, func() {
		uc.sessions.Delete(context.Background(), sess)
	})

	metrics.RecordChatAction(string(domain.StepSubmitting), string(domain.OutcomeSubmitted))
	reply = b.finish(domain.OutcomeSubmitted)
	reply.Receipt = receipt
	return reply, nil
}

// prepareUpload runs the locked part of UploadResume. A non-nil reply ends
// the action without contacting the recruitment API.
func (uc *conversationUsecase) prepareUpload(ctx context.Context, sessionID string, file domain.ResumeFile, clientIP string) (*domain.ConversationSession, replyBuilder, *domain.ResumeUpload, *domain.ChatReply, error) {
	sess, err := uc.lockStep(ctx, sessionID, domain.StepCollectResume)
	if err != nil {
		return nil, replyBuilder{}, nil, nil, err
	}
	defer sess.Unlock()

	b := beginReply(sess)
	sess.Hear(file.Name, uc.now())

	// 1. Declared metadata
	if res := validation.ValidateResumeFile(file.Meta(nil)); !res.Valid {
		return nil, b, nil, uc.reject(sess, b, res), nil
	}

	// 2. Content, bounded one byte past the limit so oversize bodies are caught
	data, err := readResume(file)
	if err != nil {
		uc.logger.Warn("resume file unreadable", "session_id", sess.ID, "error", err)
		sess.Say(domain.MessageError, msgFileUnreadable, uc.now())
		metrics.RecordChatAction(string(sess.Step), string(domain.OutcomeError))
		return nil, b, nil, b.finish(domain.OutcomeError), nil
	}

	meta := file.Meta(data)
	meta.SizeBytes = int64(len(data))
	if res := validation.ValidateResumeFile(meta); !res.Valid {
		uc.secLogger.LogUploadRejected(ctx, sess.Email, clientIP, file.Name, res.Message)
		return nil, b, nil, uc.reject(sess, b, res), nil
	}

	// 3. Rate limit
	if uc.limiter != nil {
		decision, err := uc.limiter.AllowUpload(ctx, clientIP, sess.Email)
		if err != nil && !errors.Is(err, security.ErrLimiterUnavailable) {
			uc.logger.Warn("upload limiter failed, allowing upload", "error", err)
		}
		if !decision.Allowed {
			uc.secLogger.LogRateLimitTriggered(ctx, clientIP, sess.Email, "chat_resume_upload")
			return nil, b, nil, uc.reject(sess, b, validation.Result{Valid: false, Message: msgUploadsThrottled}), nil
		}
	}

	// 4. Malware scan
	scan := uc.scanner.Scan(ctx, file.Name, data)
	if scan.Error != nil {
		uc.secLogger.LogScannerFailed(ctx, uc.scanner.Name(), scan.Error)
		sess.Say(domain.MessageError, msgScannerFailed, uc.now())
		metrics.RecordChatAction(string(sess.Step), string(domain.OutcomeError))
		return nil, b, nil, b.finish(domain.OutcomeError), nil
	}
	if scan.Infected {
		uc.secLogger.LogMalwareDetected(ctx, sess.Email, clientIP, scan.ScannerName, scan.ThreatName)
		return nil, b, nil, uc.reject(sess, b, validation.Result{Valid: false, Message: msgThreatDetected}), nil
	}

	// 5. Park in submitting
	sess.File = &domain.FileSummary{Name: file.Name, MIMEType: file.MIMEType, SizeBytes: int64(len(data))}
	if err := sess.Advance(domain.StepSubmitting, uc.now()); err != nil {
		return nil, b, nil, nil, err
	}
	sess.Say(domain.MessageInfo, msgUploading, uc.now())

	upload := &domain.ResumeUpload{
		FileName: file.Name,
		MIMEType: file.MIMEType,
		Content:  bytes.NewReader(data),
		Name:     sess.Name,
		Email:    sess.Email,
		JobTitle: sess.JobTitle,
	}
	return sess, b, upload, nil, nil
}

func readResume(file domain.ResumeFile) ([]byte, error) {
	if file.Open == nil {
		return nil, domain.ErrFileUnreadable
	}
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFileUnreadable, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, validation.MaxResumeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFileUnreadable, err)
	}
	return data, nil
}

// notifyLocal inserts the notification for this submission into the shared
// store. It carries the resume id from the receipt so the copy pushed back by
// the realtime server is recognised as a duplicate.
func (uc *conversationUsecase) notifyLocal(sess *domain.ConversationSession, receipt *domain.SubmissionReceipt) {
	if uc.store == nil {
		return
	}
	now := uc.now()
	n := domain.Notification{
		ID:      "local-" + uuid.NewString(),
		Type:    domain.NotificationCVUpload,
		Message: fmt.Sprintf("%s uploaded a CV for %s", sess.Name, sess.JobTitle),
		CVData: domain.CVData{
			Name:  sess.Name,
			Email: sess.Email,
			Role:  sess.JobTitle,
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
	if receipt != nil {
		n.CVData.ID = receipt.ResumeID
		n.CVData.ResumeLink = receipt.ResumeLink
	}

	result := "accepted"
	if !uc.store.Insert(n) {
		result = "duplicate"
	}
	metrics.NotificationsTotal.WithLabelValues("local", result).Inc()
}

func (uc *conversationUsecase) Close(ctx context.Context, sessionID string) error {
	sess, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	// No session lock: an upload in flight must not delay the close.
	uc.sessions.Delete(ctx, sess)
	return nil
}

// collect runs one input event against a collection step.
func (uc *conversationUsecase) collect(
	ctx context.Context,
	sessionID string,
	step domain.Step,
	handle func(sess *domain.ConversationSession, b replyBuilder) *domain.ChatReply,
) (*domain.ChatReply, error) {
	sess, err := uc.lockStep(ctx, sessionID, step)
	if err != nil {
		return nil, err
	}
	defer sess.Unlock()

	reply := handle(sess, beginReply(sess))
	if reply.Outcome != domain.OutcomeInvalid {
		metrics.RecordChatAction(string(step), string(reply.Outcome))
	}
	return reply, nil
}

// lockStep returns the session locked when it is current and in step.
func (uc *conversationUsecase) lockStep(ctx context.Context, sessionID string, step domain.Step) (*domain.ConversationSession, error) {
	sess, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Lock()
	switch {
	case !uc.isCurrent(sess):
		sess.Unlock()
		return nil, domain.ErrSessionNotFound
	case sess.Step == domain.StepSubmitting:
		sess.Unlock()
		return nil, domain.ErrSessionBusy
	case sess.Step != step:
		sess.Unlock()
		return nil, fmt.Errorf("%w: session is in %s", domain.ErrStepMismatch, sess.Step)
	}
	return sess, nil
}

func (uc *conversationUsecase) isCurrent(sess *domain.ConversationSession) bool {
	current, err := uc.sessions.Get(context.Background(), sess.ID)
	return err == nil && current == sess
}

// reject keeps the step and its accepted fields.
func (uc *conversationUsecase) reject(sess *domain.ConversationSession, b replyBuilder, res validation.Result) *domain.ChatReply {
	sess.Say(domain.MessageError, res.Message, uc.now())
	metrics.RecordChatAction(string(sess.Step), string(domain.OutcomeInvalid))
	reply := b.finish(domain.OutcomeInvalid)
	reply.Validation = &res
	return reply
}

type replyBuilder struct {
	sess  *domain.ConversationSession
	start int
}

func beginReply(sess *domain.ConversationSession) replyBuilder {
	return replyBuilder{sess: sess, start: len(sess.Transcript)}
}

// finish snapshots the session. Messages holds what was said since begin.
func (b replyBuilder) finish(outcome domain.Outcome) *domain.ChatReply {
	s := b.sess
	reply := &domain.ChatReply{
		SessionID: s.ID,
		Step:      s.Step,
		Control:   s.Step.Control(),
		Busy:      s.Step == domain.StepSubmitting,
		Outcome:   outcome,
		Messages:  append([]domain.ChatMessage{}, s.Transcript[b.start:]...),
	}
	if s.Step == domain.StepCollectJobTitle {
		reply.JobTitleOptions = append(append([]string{}, s.JobTitleOptions...), validation.JobTitleCreateNew)
	}
	return reply
}

func canonicalTitle(value string, options []string) string {
	for _, o := range options {
		if strings.EqualFold(o, value) {
			return o
		}
	}
	return value
}

func firstName(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return name
}
