package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/internal/realtime"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pushingServer answers the admin room join with the given notifications.
func pushingServer(t *testing.T, pushes ...domain.Notification) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame realtime.Frame
			if json.Unmarshal(data, &frame) != nil || frame.Event != realtime.EventJoinAdmin {
				continue
			}
			for _, n := range pushes {
				payload, _ := realtime.EncodeFrame(realtime.EventNewCVUpload, n)
				if conn.WriteMessage(websocket.TextMessage, payload) != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func cvUpload(resumeID, name, role string) domain.Notification {
	return domain.Notification{
		ID:        "n-" + resumeID,
		Type:      domain.NotificationCVUpload,
		Message:   "New CV uploaded by " + name,
		CVData:    domain.CVData{ID: resumeID, Name: name, Email: strings.ToLower(strings.Fields(name)[0]) + "@example.com", Role: role},
		Timestamp: "2026-10-15T09:00:00Z",
	}
}

func TestWatchCommand(t *testing.T) {
	t.Run("Should print each resume once and stop after count", func(t *testing.T) {
		first := cvUpload("r-1", "Jane Doe", "QA Engineer")
		second := cvUpload("r-2", "Budi Santoso", "Backend Developer")
		url := pushingServer(t, first, first, second)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		out, stderr, err := execute(t, ctx, "watch", "--url", url, "--token", "rt-token", "--count", "2")
		require.NoError(t, err)
		require.NoError(t, ctx.Err(), "watch should exit on its own")

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "Jane Doe <jane@example.com>")
		assert.Contains(t, lines[0], "QA Engineer")
		assert.Contains(t, lines[1], "Budi Santoso")
		assert.Contains(t, stderr, "Watching "+url)
	})

	t.Run("Should print JSON lines", func(t *testing.T) {
		url := pushingServer(t, cvUpload("r-9", "Jane Doe", "QA Engineer"))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		out, _, err := execute(t, ctx, "watch", "--url", url, "--count", "1", "--json")
		require.NoError(t, err)

		var n domain.Notification
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &n))
		assert.Equal(t, "r-9", n.CVData.ID)
		assert.False(t, n.Read)
	})

	t.Run("Should stop when the context ends", func(t *testing.T) {
		url := pushingServer(t)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		out, _, err := execute(t, ctx, "watch", "--url", url)
		assert.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("Should reject a negative count", func(t *testing.T) {
		_, _, err := execute(t, context.Background(), "watch", "--url", "ws://localhost:1", "--count", "-1")
		assert.Error(t, err)
	})
}
