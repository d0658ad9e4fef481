package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/pkg/logger"
	"go-recruitment-intake/pkg/metrics"

	"golang.org/x/sync/singleflight"
)

const subscriberBuffer = 16

// AdminFeed surfaces the notification store to admin dashboards. Every
// accepted insert triggers one refetch of the first resume page; concurrent
// triggers share a single request.
type AdminFeed struct {
	store     domain.NotificationStore
	resumes   domain.ResumeRepository
	pageLimit int
	logger    *slog.Logger
	now       func() time.Time

	group singleflight.Group

	pageMu sync.RWMutex
	page   *domain.ResumePage

	subsMu sync.Mutex
	subs   map[chan domain.FeedEvent]struct{}

	seqMu   sync.Mutex
	lastSeq uint64

	lifecycleMu sync.Mutex
	baseCtx     context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	refetches   sync.WaitGroup
}

var _ domain.AdminFeedUsecase = (*AdminFeed)(nil)

// NewAdminFeedUsecase creates the admin feed. Start must be called before
// store events are observed.
func NewAdminFeedUsecase(store domain.NotificationStore, resumes domain.ResumeRepository, pageLimit int, log *slog.Logger) *AdminFeed {
	if pageLimit <= 0 {
		pageLimit = 10
	}
	if log == nil {
		log = logger.Log
	}
	return &AdminFeed{
		store:     store,
		resumes:   resumes,
		pageLimit: pageLimit,
		logger:    log.With("component", "admin_feed"),
		now:       time.Now,
		subs:      make(map[chan domain.FeedEvent]struct{}),
	}
}

// Start subscribes to the store. Calling it twice is a no-op.
func (f *AdminFeed) Start(ctx context.Context) {
	f.lifecycleMu.Lock()
	defer f.lifecycleMu.Unlock()

	if f.unsubscribe != nil {
		return
	}
	f.baseCtx, f.cancel = context.WithCancel(ctx)
	f.unsubscribe = f.store.Subscribe(f.onStoreEvent)
	metrics.UnreadNotifications.Set(float64(f.store.UnreadCount()))
}

// Stop detaches from the store, waits for in-flight refetches and closes all
// subscriber channels.
func (f *AdminFeed) Stop() {
	f.lifecycleMu.Lock()
	if f.unsubscribe == nil {
		f.lifecycleMu.Unlock()
		return
	}
	f.unsubscribe()
	f.unsubscribe = nil
	f.cancel()
	f.lifecycleMu.Unlock()

	f.refetches.Wait()

	f.subsMu.Lock()
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
		metrics.StreamSubscribers.Dec()
	}
	f.subsMu.Unlock()
}

// onStoreEvent fans a store mutation out to subscribers. An event older than
// one already handled carries a stale unread count: a stale insert is still
// pushed with the store's current count, anything else stale is dropped.
func (f *AdminFeed) onStoreEvent(e domain.StoreEvent) {
	stale := f.observeSeq(e.Seq)
	if stale {
		if e.Kind != domain.StoreEventInserted {
			return
		}
		e.UnreadCount = f.store.UnreadCount()
	} else {
		metrics.UnreadNotifications.Set(float64(e.UnreadCount))
	}

	switch e.Kind {
	case domain.StoreEventInserted:
		f.broadcast(domain.FeedEvent{
			Type:         domain.FeedEventNotification,
			Notification: e.Notification,
			UnreadCount:  e.UnreadCount,
			At:           f.now(),
		})
		f.triggerRefetch()
	default:
		f.broadcast(domain.FeedEvent{
			Type:        domain.FeedEventUnreadCount,
			UnreadCount: e.UnreadCount,
			At:          f.now(),
		})
	}
}

// observeSeq records seq and reports whether a newer event was already seen.
// Events without a sequence are never stale.
func (f *AdminFeed) observeSeq(seq uint64) bool {
	if seq == 0 {
		return false
	}
	f.seqMu.Lock()
	defer f.seqMu.Unlock()
	if seq <= f.lastSeq {
		return true
	}
	f.lastSeq = seq
	return false
}

func (f *AdminFeed) triggerRefetch() {
	f.lifecycleMu.Lock()
	ctx := f.baseCtx
	if ctx == nil || ctx.Err() != nil {
		f.lifecycleMu.Unlock()
		return
	}
	f.refetches.Add(1)
	f.lifecycleMu.Unlock()

	go func() {
		defer f.refetches.Done()
		_, _ = f.refresh(ctx)
	}()
}

// refresh loads page 1. On failure the previous page stays cached.
func (f *AdminFeed) refresh(ctx context.Context) (*domain.ResumePage, error) {
	v, err, _ := f.group.Do("resumes", func() (interface{}, error) {
		page, err := f.resumes.ListResumes(ctx, 1, f.pageLimit)
		if err != nil {
			metrics.ResumeRefetchesTotal.WithLabelValues("error").Inc()
			f.logger.Warn("resume list refetch failed, keeping previous page", "error", err)
			return nil, err
		}
		metrics.ResumeRefetchesTotal.WithLabelValues("success").Inc()

		page.FetchedAt = f.now()
		f.pageMu.Lock()
		f.page = page
		f.pageMu.Unlock()

		f.broadcast(domain.FeedEvent{
			Type:        domain.FeedEventResumes,
			Resumes:     page,
			UnreadCount: f.store.UnreadCount(),
			At:          f.now(),
		})
		return page, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.ResumePage), nil
}

func (f *AdminFeed) broadcast(e domain.FeedEvent) {
	f.subsMu.Lock()
	defer f.subsMu.Unlock()

	for ch := range f.subs {
		select {
		case ch <- e:
		default:
			f.logger.Debug("admin stream subscriber is slow, event dropped", "type", e.Type)
		}
	}
}

func (f *AdminFeed) ListNotifications(ctx context.Context) *domain.NotificationList {
	items, unread := f.store.Snapshot()
	return &domain.NotificationList{Notifications: items, UnreadCount: unread}
}

func (f *AdminFeed) MarkRead(ctx context.Context, id string) error {
	if !f.store.MarkRead(id) {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (f *AdminFeed) MarkAllRead(ctx context.Context) *domain.NotificationList {
	f.store.MarkAllRead()
	return f.ListNotifications(ctx)
}

func (f *AdminFeed) Clear(ctx context.Context) {
	f.store.Clear()
}

// LatestResumes returns the cached page, fetching it on first use.
func (f *AdminFeed) LatestResumes(ctx context.Context) (*domain.ResumePage, error) {
	f.pageMu.RLock()
	page := f.page
	f.pageMu.RUnlock()
	if page != nil {
		return page, nil
	}
	return f.refresh(ctx)
}

// Subscribe registers an admin stream. Slow readers miss events rather than
// block the store.
func (f *AdminFeed) Subscribe() (<-chan domain.FeedEvent, func()) {
	ch := make(chan domain.FeedEvent, subscriberBuffer)

	f.subsMu.Lock()
	f.subs[ch] = struct{}{}
	f.subsMu.Unlock()
	metrics.StreamSubscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.subsMu.Lock()
			defer f.subsMu.Unlock()
			if _, ok := f.subs[ch]; ok {
				delete(f.subs, ch)
				close(ch)
				metrics.StreamSubscribers.Dec()
			}
		})
	}
}
