package memory

import (
	"context"
	"sync"
	"time"

	"go-recruitment-intake/internal/domain"
	"go-recruitment-intake/pkg/metrics"

	"github.com/patrickmn/go-cache"
)

type sessionRepository struct {
	mu    sync.Mutex // serializes check-then-act on the cache
	cache *cache.Cache
}

// NewSessionRepository keeps chat sessions in memory. Abandoned sessions
// expire after ttl; expired items are purged every ttl/3.
func NewSessionRepository(ttl time.Duration) domain.SessionRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c := cache.New(ttl, ttl/3)
	// fires on Delete and on expiry
	c.OnEvicted(func(string, interface{}) {
		metrics.ActiveSessions.Dec()
	})
	return &sessionRepository{cache: c}
}

func (r *sessionRepository) Save(ctx context.Context, session *domain.ConversationSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.cache.Get(session.ID); !found {
		metrics.ActiveSessions.Inc()
	}
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.ConversationSession, error) {
	if x, found := r.cache.Get(id); found {
		return x.(*domain.ConversationSession), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (r *sessionRepository) Delete(ctx context.Context, session *domain.ConversationSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	x, found := r.cache.Get(session.ID)
	if !found || x.(*domain.ConversationSession) != session {
		return false
	}
	r.cache.Delete(session.ID)
	return true
}
