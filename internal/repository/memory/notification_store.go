package memory

import (
	"sync"

	"go-recruitment-intake/internal/domain"
)

// NotificationStore is the process-wide notification list. Entries are kept
// newest first and unreadCount is adjusted on every mutation, never
// recomputed by a scan.
type NotificationStore struct {
	mu          sync.Mutex
	items       []*domain.Notification
	index       map[string]*domain.Notification // dedup key -> entry
	unreadCount int
	seq         uint64

	listenersMu  sync.RWMutex
	listeners    map[int]func(domain.StoreEvent)
	nextListener int
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		index:     make(map[string]*domain.Notification),
		listeners: make(map[int]func(domain.StoreEvent)),
	}
}

// Insert prepends candidate unless an entry with the same dedup key exists.
// It reports whether the candidate was stored.
func (s *NotificationStore) Insert(candidate domain.Notification) bool {
	key := candidate.DedupKey()
	if key == "" {
		return false
	}

	s.mu.Lock()
	if _, exists := s.index[key]; exists {
		s.mu.Unlock()
		return false
	}

	entry := candidate
	s.items = append([]*domain.Notification{&entry}, s.items...)
	s.index[key] = &entry
	if !entry.Read {
		s.unreadCount++
	}
	s.seq++
	snapshot := entry
	event := domain.StoreEvent{Kind: domain.StoreEventInserted, Notification: &snapshot, UnreadCount: s.unreadCount, Seq: s.seq}
	s.mu.Unlock()

	s.publish(event)
	return true
}

// MarkRead marks the entry whose id or dedup key matches id. It reports
// whether such an entry exists.
func (s *NotificationStore) MarkRead(id string) bool {
	s.mu.Lock()
	entry := s.find(id)
	if entry == nil {
		s.mu.Unlock()
		return false
	}

	changed := !entry.Read
	if changed {
		entry.Read = true
		if s.unreadCount > 0 {
			s.unreadCount--
		}
	}
	if !changed {
		s.mu.Unlock()
		return true
	}
	s.seq++
	snapshot := *entry
	event := domain.StoreEvent{Kind: domain.StoreEventRead, Notification: &snapshot, UnreadCount: s.unreadCount, Seq: s.seq}
	s.mu.Unlock()

	s.publish(event)
	return true
}

func (s *NotificationStore) MarkAllRead() {
	s.mu.Lock()
	for _, entry := range s.items {
		entry.Read = true
	}
	s.unreadCount = 0
	s.seq++
	event := domain.StoreEvent{Kind: domain.StoreEventAllRead, Seq: s.seq}
	s.mu.Unlock()

	s.publish(event)
}

func (s *NotificationStore) Clear() {
	s.mu.Lock()
	s.items = nil
	s.index = make(map[string]*domain.Notification)
	s.unreadCount = 0
	s.seq++
	event := domain.StoreEvent{Kind: domain.StoreEventCleared, Seq: s.seq}
	s.mu.Unlock()

	s.publish(event)
}

// List returns a copy of the entries, newest first.
func (s *NotificationStore) List() []domain.Notification {
	list, _ := s.Snapshot()
	return list
}

func (s *NotificationStore) Snapshot() ([]domain.Notification, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Notification, len(s.items))
	for i, entry := range s.items {
		out[i] = *entry
	}
	return out, s.unreadCount
}

func (s *NotificationStore) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unreadCount
}

// Subscribe registers listener for every accepted mutation. Listeners run on
// the mutating goroutine after the store lock is released, so concurrent
// mutations may reach a listener out of Seq order.
func (s *NotificationStore) Subscribe(listener func(domain.StoreEvent)) func() {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = listener
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *NotificationStore) find(id string) *domain.Notification {
	if entry, ok := s.index[id]; ok {
		return entry
	}
	for _, entry := range s.items {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

func (s *NotificationStore) publish(event domain.StoreEvent) {
	s.listenersMu.RLock()
	listeners := make([]func(domain.StoreEvent), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
}
