package domain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go-recruitment-intake/pkg/validation"
)

var (
	ErrSessionNotFound   = errors.New("chat session not found")
	ErrSessionBusy       = errors.New("chat session is busy submitting")
	ErrSessionClosed     = errors.New("chat session was closed")
	ErrStepMismatch      = errors.New("input does not belong to the current step")
	ErrIllegalTransition = errors.New("illegal step transition")
	ErrFileUnreadable    = errors.New("uploaded file could not be read")
)

// Step is the position of a chat session in the intake dialogue.
type Step string

const (
	StepGreeting        Step = "greeting"
	StepCollectName     Step = "collect_name"
	StepCollectEmail    Step = "collect_email"
	StepCollectJobTitle Step = "collect_job_title"
	StepCollectResume   Step = "collect_resume"
	StepSubmitting      Step = "submitting"
	StepDone            Step = "done"
)

// stepTransitions is the complete set of legal moves. Submitting may fall
// back to collect_resume so a failed upload can be retried.
var stepTransitions = map[Step][]Step{
	StepGreeting:        {StepCollectName},
	StepCollectName:     {StepCollectEmail},
	StepCollectEmail:    {StepCollectJobTitle},
	StepCollectJobTitle: {StepCollectResume},
	StepCollectResume:   {StepSubmitting},
	StepSubmitting:      {StepDone, StepCollectResume},
	StepDone:            {},
}

func (s Step) Valid() bool {
	_, ok := stepTransitions[s]
	return ok
}

func (s Step) CanTransitionTo(next Step) bool {
	for _, allowed := range stepTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Control is the input affordance a chat front-end should render for a step.
type Control string

const (
	ControlNone           Control = "none"
	ControlText           Control = "text"
	ControlEmail          Control = "email"
	ControlJobTitleSelect Control = "job_title_select"
	ControlFileUpload     Control = "file_upload"
)

func (s Step) Control() Control {
	switch s {
	case StepCollectName:
		return ControlText
	case StepCollectEmail:
		return ControlEmail
	case StepCollectJobTitle:
		return ControlJobTitleSelect
	case StepCollectResume:
		return ControlFileUpload
	default:
		return ControlNone
	}
}

type Sender string

const (
	SenderBot  Sender = "bot"
	SenderUser Sender = "user"
)

type MessageKind string

const (
	MessagePrompt MessageKind = "prompt"
	MessageError  MessageKind = "error"
	MessageInfo   MessageKind = "info"
	MessageInput  MessageKind = "input"
)

type ChatMessage struct {
	Sender    Sender      `json:"sender"`
	Kind      MessageKind `json:"kind"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"created_at"`
}

// ResumeFile is an uploaded resume handle. Open is called at most once, after
// the metadata has passed validation.
type ResumeFile struct {
	Name      string
	MIMEType  string
	SizeBytes int64
	Open      func() (io.ReadCloser, error)
}

func (f ResumeFile) Meta(head []byte) validation.FileMeta {
	return validation.FileMeta{
		Name:      f.Name,
		MIMEType:  f.MIMEType,
		SizeBytes: f.SizeBytes,
		Head:      head,
	}
}

type FileSummary struct {
	Name      string `json:"name"`
	MIMEType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// ConversationSession is one open chat dialogue. Fields are populated step by
// step and never change once accepted. Callers hold the session lock while
// reading or mutating it.
type ConversationSession struct {
	mu sync.Mutex

	ID               string             `json:"id"`
	Step             Step               `json:"step"`
	Name             string             `json:"name,omitempty"`
	Email            string             `json:"email,omitempty"`
	JobTitle         string             `json:"job_title,omitempty"`
	File             *FileSummary       `json:"file,omitempty"`
	JobTitleOptions  []string           `json:"job_title_options,omitempty"`
	JobTitleFreeForm bool               `json:"job_title_free_form"`
	Transcript       []ChatMessage      `json:"transcript"`
	Receipt          *SubmissionReceipt `json:"receipt,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

func NewConversationSession(id string, now time.Time) *ConversationSession {
	return &ConversationSession{
		ID:         id,
		Step:       StepGreeting,
		Transcript: []ChatMessage{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (s *ConversationSession) Lock()   { s.mu.Lock() }
func (s *ConversationSession) Unlock() { s.mu.Unlock() }

// Advance moves the session along the transition table.
func (s *ConversationSession) Advance(next Step, now time.Time) error {
	if !s.Step.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.Step, next)
	}
	s.Step = next
	s.UpdatedAt = now
	return nil
}

func (s *ConversationSession) Say(kind MessageKind, text string, now time.Time) ChatMessage {
	return s.append(SenderBot, kind, text, now)
}

func (s *ConversationSession) Hear(text string, now time.Time) ChatMessage {
	return s.append(SenderUser, MessageInput, text, now)
}

func (s *ConversationSession) append(sender Sender, kind MessageKind, text string, now time.Time) ChatMessage {
	msg := ChatMessage{Sender: sender, Kind: kind, Text: text, CreatedAt: now}
	s.Transcript = append(s.Transcript, msg)
	s.UpdatedAt = now
	return msg
}

// Outcome classifies how a chat action was resolved.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeError     Outcome = "error"
	OutcomeNavigate  Outcome = "navigate"
	OutcomeSubmitted Outcome = "submitted"
	OutcomeFailed    Outcome = "failed"
)

type ChatAction struct {
	Type   string `json:"type"`
	Target string `json:"target"`
}

// ChatReply is what a chat front-end renders after each action: the messages
// produced by the action and the control for the step the session is in now.
type ChatReply struct {
	SessionID       string             `json:"session_id"`
	Step            Step               `json:"step"`
	Control         Control            `json:"control"`
	Busy            bool               `json:"busy"`
	Outcome         Outcome            `json:"outcome,omitempty"`
	Validation      *validation.Result `json:"validation,omitempty"`
	Messages        []ChatMessage      `json:"messages"`
	JobTitleOptions []string           `json:"job_title_options,omitempty"`
	Action          *ChatAction        `json:"action,omitempty"`
	Receipt         *SubmissionReceipt `json:"receipt,omitempty"`
}

type ChatSessionView struct {
	ChatReply
	Name       string        `json:"name,omitempty"`
	Email      string        `json:"email,omitempty"`
	JobTitle   string        `json:"job_title,omitempty"`
	File       *FileSummary  `json:"file,omitempty"`
	Transcript []ChatMessage `json:"transcript"`
}

type SessionRepository interface {
	Save(ctx context.Context, session *ConversationSession) error
	Get(ctx context.Context, id string) (*ConversationSession, error)
	// Delete removes the session only if it is still the registered one.
	Delete(ctx context.Context, session *ConversationSession) bool
}

type ConversationUsecase interface {
	Open(ctx context.Context) (*ChatReply, error)
	Get(ctx context.Context, sessionID string) (*ChatSessionView, error)
	SubmitName(ctx context.Context, sessionID, name string) (*ChatReply, error)
	SubmitEmail(ctx context.Context, sessionID, email string) (*ChatReply, error)
	SelectJobTitle(ctx context.Context, sessionID, title string) (*ChatReply, error)
	UploadResume(ctx context.Context, sessionID string, file ResumeFile, clientIP string) (*ChatReply, error)
	Close(ctx context.Context, sessionID string) error
}
