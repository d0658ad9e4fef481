package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-recruitment-intake/internal/domain"
)

const (
	// EventJoinAdmin is sent once per connection to enter the admin room.
	EventJoinAdmin = "join-admin"
	// EventNewCVUpload is pushed by the server for every submitted resume.
	EventNewCVUpload = "new-cv-upload"
)

// Frame is the JSON envelope of every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func EncodeFrame(event string, data interface{}) ([]byte, error) {
	frame := Frame{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event, err)
		}
		frame.Data = raw
	}
	return json.Marshal(frame)
}

var errMissingIdentifier = errors.New("notification has neither id nor resume id")

// DecodeNotification reads a new-cv-upload payload. Pushed notifications
// always arrive unread; a missing type or timestamp is filled in.
func DecodeNotification(frame Frame, now time.Time) (domain.Notification, error) {
	var n domain.Notification
	if len(frame.Data) == 0 {
		return n, errMissingIdentifier
	}
	if err := json.Unmarshal(frame.Data, &n); err != nil {
		return n, fmt.Errorf("decode %s payload: %w", frame.Event, err)
	}
	if n.DedupKey() == "" {
		return n, errMissingIdentifier
	}
	if n.ID == "" {
		n.ID = n.CVData.ID
	}
	if n.Type == "" {
		n.Type = domain.NotificationCVUpload
	}
	if n.Timestamp == "" {
		n.Timestamp = now.UTC().Format(time.RFC3339)
	}
	n.Read = false
	return n, nil
}
