package domain

import (
	"context"
	"errors"
	"time"
)

var ErrNotificationNotFound = errors.New("notification not found")

type NotificationType string

const NotificationCVUpload NotificationType = "cv_upload"

// CVData is the submitted identity carried by a cv_upload notification.
// ID is the resume record id assigned by the recruitment API.
type CVData struct {
	ID         string `json:"_id,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	ResumeLink string `json:"resume-link,omitempty"`
}

type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Message   string           `json:"message"`
	CVData    CVData           `json:"cvData"`
	Timestamp string           `json:"timestamp"`
	Read      bool             `json:"read"`
}

// DedupKey prefers the underlying resume id and falls back to the
// notification id.
func (n Notification) DedupKey() string {
	if n.CVData.ID != "" {
		return n.CVData.ID
	}
	return n.ID
}

type StoreEventKind string

const (
	StoreEventInserted StoreEventKind = "inserted"
	StoreEventRead     StoreEventKind = "read"
	StoreEventAllRead  StoreEventKind = "all_read"
	StoreEventCleared  StoreEventKind = "cleared"
)

// StoreEvent describes one mutation. Seq increases by one per mutation in
// the order the store applied them; listeners may observe events out of
// that order.
type StoreEvent struct {
	Kind         StoreEventKind
	Notification *Notification
	UnreadCount  int
	Seq          uint64
}

// NotificationStore is the shared, deduplicating notification list.
type NotificationStore interface {
	Insert(candidate Notification) bool
	MarkRead(id string) bool
	MarkAllRead()
	Clear()
	List() []Notification
	UnreadCount() int
	// Snapshot returns the entries and the unread count as one consistent view.
	Snapshot() ([]Notification, int)
	Subscribe(listener func(StoreEvent)) (unsubscribe func())
}

// NotificationSink accepts notifications from the realtime channel.
type NotificationSink interface {
	Insert(candidate Notification) bool
}

type FeedEventType string

const (
	FeedEventNotification FeedEventType = "notification"
	FeedEventUnreadCount  FeedEventType = "unread_count"
	FeedEventResumes      FeedEventType = "resumes"
)

type FeedEvent struct {
	Type         FeedEventType `json:"type"`
	Notification *Notification `json:"notification,omitempty"`
	UnreadCount  int           `json:"unread_count"`
	Resumes      *ResumePage   `json:"resumes,omitempty"`
	At           time.Time     `json:"at"`
}

type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unread_count"`
}

type AdminFeedUsecase interface {
	ListNotifications(ctx context.Context) *NotificationList
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) *NotificationList
	Clear(ctx context.Context)
	LatestResumes(ctx context.Context) (*ResumePage, error)
	Subscribe() (events <-chan FeedEvent, unsubscribe func())
}
