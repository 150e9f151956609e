package ratelimit

import (
	"container/list"
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMaxKeys bounds the number of buckets kept by a MemoryLimiter.
const DefaultMaxKeys = 10000

type bucket struct {
	key string
	lim *rate.Limiter
}

// MemoryLimiter keeps one rate.Limiter per key in a bounded LRU. The map
// lock is held only to find or create a bucket; consuming a token uses the
// bucket's own lock. An evicted client starts again with a full bucket.
type MemoryLimiter struct {
	policy  Policy
	maxKeys int
	now     func() time.Time

	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
}

// NewMemoryLimiter builds a limiter; maxKeys <= 0 means DefaultMaxKeys and a
// nil clock means time.Now.
func NewMemoryLimiter(p Policy, maxKeys int, now func() time.Time) *MemoryLimiter {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryLimiter{
		policy:  p.normalized(),
		maxKeys: maxKeys,
		now:     now,
		order:   list.New(),
		items:   make(map[string]*list.Element),
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()
	lim := m.bucket(key)

	d := Decision{Limit: m.policy.Capacity}
	d.Allowed = lim.AllowN(now, 1)
	tokens := lim.TokensAt(now)
	if tokens > 0 {
		d.Remaining = int(math.Floor(tokens))
	}
	if !d.Allowed {
		missing := 1 - tokens
		d.RetryAfter = time.Duration(math.Ceil(missing * float64(m.policy.tokenInterval())))
	}
	return d, nil
}

// Len reports how many buckets are currently held.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *MemoryLimiter) bucket(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.order.MoveToFront(el)
		return el.Value.(*bucket).lim
	}
	b := &bucket{
		key: key,
		lim: rate.NewLimiter(rate.Every(m.policy.tokenInterval()), m.policy.Capacity),
	}
	m.items[key] = m.order.PushFront(b)
	for m.order.Len() > m.maxKeys {
		oldest := m.order.Back()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*bucket).key)
	}
	return b.lim
}
