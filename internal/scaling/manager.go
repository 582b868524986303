// Package scaling is the cross-cutting policy layer in front of outbound work:
// a bounded admission gate, per-host pacing with failure backoff, and a TTL
// result cache. Crawler and aggregator route fetches through Do; the matching
// engine uses the gate alone for encode/query bursts.
package scaling

import (
	"context"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

type Config struct {
	MaxInFlight  int           // concurrent outbound fetches
	PerHostDelay time.Duration // minimum gap between requests to one host
	CacheTTL     time.Duration // memoized fetch results; expired == absent
	BackoffMax   time.Duration // per-host pacing cap under repeated failures
}

func (c Config) withDefaults() Config {
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 8
	}
	if c.PerHostDelay <= 0 {
		c.PerHostDelay = 500 * time.Millisecond
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 24 * time.Hour
	}
	if c.BackoffMax <= 0 {
		c.BackoffMax = 2 * time.Minute
	}
	return c
}

type hostState struct {
	lim   *rate.Limiter
	delay time.Duration // current paced delay, grows on failures
	fails int
}

type cacheEntry struct {
	val     any
	expires time.Time
}

type Manager struct {
	cfg Config
	sem *semaphore.Weighted
	log *zap.Logger

	mu    sync.Mutex
	hosts map[string]*hostState
	cache map[string]cacheEntry

	clock func() time.Time
}

func New(cfg Config, log *zap.Logger) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:   cfg,
		sem:   semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		log:   log,
		hosts: make(map[string]*hostState),
		cache: make(map[string]cacheEntry),
		clock: time.Now,
	}
}

// Do runs fn under the concurrency cap and host pacing, memoizing the result
// under key for the cache TTL. A cache hit short-circuits the fetch entirely.
// The semaphore is held across fn, but no registry locks are, so fn may block
// on network I/O freely.
func (m *Manager) Do(ctx context.Context, key, target string, fn func(context.Context) (any, error)) (any, error) {
	if v, ok := m.cached(key); ok {
		return v, nil
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer m.sem.Release(1)

	// recheck: another caller may have populated the key while we waited
	if v, ok := m.cached(key); ok {
		return v, nil
	}

	host := hostOf(target)
	if err := m.limiterFor(host).Wait(ctx); err != nil {
		return nil, err
	}

	v, err := fn(ctx)
	if err != nil {
		m.noteFailure(host)
		return nil, err
	}
	m.noteSuccess(host)
	m.put(key, v)
	return v, nil
}

// Admit blocks until a slot under the concurrency cap is free. Callers must
// invoke the returned release func. Used for encode/query work with no target
// host.
func (m *Manager) Admit(ctx context.Context) (release func(), err error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { m.sem.Release(1) }, nil
}

func (m *Manager) cached(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.cache[key]
	if !ok {
		return nil, false
	}
	if m.clock().After(e.expires) {
		delete(m.cache, key)
		return nil, false
	}
	return e.val, true
}

func (m *Manager) put(key string, v any) {
	m.mu.Lock()
	m.cache[key] = cacheEntry{val: v, expires: m.clock().Add(m.cfg.CacheTTL)}
	m.mu.Unlock()
}

// Invalidate drops a memoized entry, used when a caller knows the cached
// result went stale early (e.g. a careers URL that started 404ing).
func (m *Manager) Invalidate(key string) {
	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()
}

func (m *Manager) limiterFor(host string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	hs, ok := m.hosts[host]
	if !ok {
		hs = &hostState{
			lim:   rate.NewLimiter(rate.Every(m.cfg.PerHostDelay), 1),
			delay: m.cfg.PerHostDelay,
		}
		m.hosts[host] = hs
	}
	return hs.lim
}

// noteFailure doubles the host's paced delay, capped; noteSuccess resets it.
func (m *Manager) noteFailure(host string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hs, ok := m.hosts[host]
	if !ok {
		return
	}
	hs.fails++
	next := hs.delay * 2
	if next > m.cfg.BackoffMax {
		next = m.cfg.BackoffMax
	}
	if next != hs.delay {
		hs.delay = next
		hs.lim.SetLimit(rate.Every(next))
	}
	m.log.Debug("host backoff",
		zap.String("host", host),
		zap.Int("fails", hs.fails),
		zap.Duration("delay", hs.delay))
}

func (m *Manager) noteSuccess(host string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hs, ok := m.hosts[host]
	if !ok {
		return
	}
	if hs.fails > 0 || hs.delay != m.cfg.PerHostDelay {
		hs.fails = 0
		hs.delay = m.cfg.PerHostDelay
		hs.lim.SetLimit(rate.Every(hs.delay))
	}
}

func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return "_"
	}
	return u.Host
}
