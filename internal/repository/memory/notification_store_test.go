package memory_test

import (
	"fmt"
	"sync"
	"testing"

	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notification(id, resumeID string) domain.Notification {
	return domain.Notification{
		ID:        id,
		Type:      domain.NotificationCVUpload,
		Message:   "New CV uploaded",
		CVData:    domain.CVData{ID: resumeID, Name: "John O'Brien", Email: "john@example.com", Role: "QA Engineer"},
		Timestamp: "2026-10-15T08:00:00Z",
	}
}

func countUnread(list []domain.Notification) int {
	n := 0
	for _, item := range list {
		if !item.Read {
			n++
		}
	}
	return n
}

func TestNotificationStoreInsert(t *testing.T) {
	t.Run("Should be idempotent for the same dedup key", func(t *testing.T) {
		store := memory.NewNotificationStore()

		assert.True(t, store.Insert(notification("n1", "r1")))
		assert.False(t, store.Insert(notification("n1", "r1")))

		assert.Len(t, store.List(), 1)
		assert.Equal(t, 1, store.UnreadCount())
	})

	t.Run("Should dedup a local echo against the realtime push", func(t *testing.T) {
		store := memory.NewNotificationStore()

		assert.True(t, store.Insert(notification("local-1760515200000", "r42")))
		assert.False(t, store.Insert(notification("server-99", "r42")))

		list := store.List()
		require.Len(t, list, 1)
		assert.Equal(t, "local-1760515200000", list[0].ID)
	})

	t.Run("Should fall back to the notification id without a resume id", func(t *testing.T) {
		store := memory.NewNotificationStore()

		assert.True(t, store.Insert(notification("local-1", "")))
		assert.False(t, store.Insert(notification("local-1", "")))
		assert.True(t, store.Insert(notification("local-2", "")))
		assert.Equal(t, 2, store.UnreadCount())
	})

	t.Run("Should prepend newest first", func(t *testing.T) {
		store := memory.NewNotificationStore()
		store.Insert(notification("a", "ra"))
		store.Insert(notification("b", "rb"))
		store.Insert(notification("c", "rc"))

		list := store.List()
		require.Len(t, list, 3)
		assert.Equal(t, []string{"c", "b", "a"}, []string{list[0].ID, list[1].ID, list[2].ID})
	})

	t.Run("Should reject a candidate without any identifier", func(t *testing.T) {
		store := memory.NewNotificationStore()
		assert.False(t, store.Insert(notification("", "")))
		assert.Empty(t, store.List())
	})
}

func TestNotificationStoreMarkRead(t *testing.T) {
	t.Run("Should decrement exactly once", func(t *testing.T) {
		store := memory.NewNotificationStore()
		store.Insert(notification("a", "ra"))
		store.Insert(notification("b", "rb"))

		assert.True(t, store.MarkRead("a"))
		assert.True(t, store.MarkRead("a"))
		assert.Equal(t, 1, store.UnreadCount())
	})

	t.Run("Should find entries by resume id", func(t *testing.T) {
		store := memory.NewNotificationStore()
		store.Insert(notification("a", "ra"))

		assert.True(t, store.MarkRead("ra"))
		assert.Equal(t, 0, store.UnreadCount())
	})

	t.Run("Should report unknown ids", func(t *testing.T) {
		store := memory.NewNotificationStore()
		assert.False(t, store.MarkRead("missing"))
		assert.Equal(t, 0, store.UnreadCount())
	})
}

func TestNotificationStoreMarkAllRead(t *testing.T) {
	t.Run("Should read 3 unread and 2 read entries", func(t *testing.T) {
		store := memory.NewNotificationStore()
		for i := 0; i < 5; i++ {
			store.Insert(notification(fmt.Sprintf("n%d", i), fmt.Sprintf("r%d", i)))
		}
		store.MarkRead("n0")
		store.MarkRead("n1")
		require.Equal(t, 3, store.UnreadCount())

		store.MarkAllRead()

		list := store.List()
		require.Len(t, list, 5)
		for _, item := range list {
			assert.True(t, item.Read)
		}
		assert.Equal(t, 0, store.UnreadCount())
	})
}

func TestNotificationStoreClear(t *testing.T) {
	store := memory.NewNotificationStore()
	store.Insert(notification("a", "ra"))
	store.Clear()

	assert.Empty(t, store.List())
	assert.Equal(t, 0, store.UnreadCount())
	assert.True(t, store.Insert(notification("a", "ra")), "cleared keys can be inserted again")
}

func TestNotificationStoreUnreadCountInvariant(t *testing.T) {
	store := memory.NewNotificationStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store.Insert(notification(fmt.Sprintf("n%d", i%20), fmt.Sprintf("r%d", i%20)))
			store.MarkRead(fmt.Sprintf("n%d", i%7))
			if i == 25 {
				store.MarkAllRead()
			}
		}(i)
	}
	wg.Wait()

	list := store.List()
	assert.Len(t, list, 20)
	assert.Equal(t, countUnread(list), store.UnreadCount())
}

func TestNotificationStoreSubscribe(t *testing.T) {
	store := memory.NewNotificationStore()

	var events []domain.StoreEvent
	unsubscribe := store.Subscribe(func(e domain.StoreEvent) {
		events = append(events, e)
	})

	store.Insert(notification("a", "ra"))
	store.Insert(notification("a", "ra")) // duplicate, no event
	store.MarkRead("a")
	unsubscribe()
	store.Insert(notification("b", "rb"))

	require.Len(t, events, 2)
	assert.Equal(t, domain.StoreEventInserted, events[0].Kind)
	assert.Equal(t, 1, events[0].UnreadCount)
	assert.Equal(t, domain.StoreEventRead, events[1].Kind)
	assert.Equal(t, 0, events[1].UnreadCount)
}

func TestNotificationStoreSeq(t *testing.T) {
	store := memory.NewNotificationStore()

	var seqs []uint64
	store.Subscribe(func(e domain.StoreEvent) {
		seqs = append(seqs, e.Seq)
	})

	store.Insert(notification("a", "ra"))
	store.Insert(notification("a", "ra"))
	store.Insert(notification("b", "rb"))
	store.MarkRead("a")
	store.MarkRead("a")
	store.MarkAllRead()
	store.Clear()

	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, seqs)
}
