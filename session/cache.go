// Package session maps caller-supplied session ids to live sandbox
// execution contexts, amortizing sandbox startup across repeated queries.
//
// Concurrency policy: creation is single-flight per id, so racing requests
// for an unseen id produce exactly one sandbox. A session executes one
// request at a time; a second request on a busy session is rejected with
// ErrSessionBusy rather than queued, so callers see contention instead of
// unbounded latency.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ragworks/rag/sandbox"
)

// ErrSessionBusy reports that the session's sandbox is serving another
// request. The caller may retry.
var ErrSessionBusy = errors.New("session is busy with another request")

// Session is one cached sandbox context. It is owned by the Cache; callers
// borrow it for the duration of a single request.
type Session struct {
	ID        string
	CreatedAt time.Time

	sandbox  sandbox.Session
	busy     sync.Mutex
	lastUsed int64 // unix nanos, read by the eviction sweep
}

// Execute runs one request on the session's sandbox. At most one request
// runs at a time; contention returns ErrSessionBusy immediately.
func (s *Session) Execute(ctx context.Context, query string, contextTexts []string) (string, error) {
	if !s.busy.TryLock() {
		return "", ErrSessionBusy
	}
	defer s.busy.Unlock()
	defer s.touch()
	return s.sandbox.Execute(ctx, query, contextTexts)
}

func (s *Session) touch() {
	atomic.StoreInt64(&s.lastUsed, time.Now().UnixNano())
}

// Cache owns every live session. Idle sessions are reclaimed by a
// background sweep so sandbox usage stays bounded without blocking queries.
type Cache struct {
	provider    sandbox.Provider
	idleTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	group    singleflight.Group

	stop chan struct{}
	done chan struct{}
}

func NewCache(provider sandbox.Provider, idleTimeout time.Duration) *Cache {
	return &Cache{
		provider:    provider,
		idleTimeout: idleTimeout,
		sessions:    make(map[string]*Session),
	}
}

// GetOrCreate returns the live session for id, creating its sandbox on
// first use. Concurrent calls for the same unseen id share one creation.
func (c *Cache) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	c.mu.Lock()
	if s, ok := c.sessions[id]; ok {
		c.mu.Unlock()
		s.touch()
		return s, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(id, func() (interface{}, error) {
		c.mu.Lock()
		if s, ok := c.sessions[id]; ok {
			c.mu.Unlock()
			return s, nil
		}
		c.mu.Unlock()

		sb, err := c.provider.CreateSession(ctx)
		if err != nil {
			return nil, err
		}
		s := &Session{
			ID:        id,
			CreatedAt: time.Now(),
			sandbox:   sb,
		}
		s.touch()

		c.mu.Lock()
		c.sessions[id] = s
		c.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Touch refreshes the idle clock for id, if it is live.
func (c *Cache) Touch(id string) {
	c.mu.Lock()
	s, ok := c.sessions[id]
	c.mu.Unlock()
	if ok {
		s.touch()
	}
}

// EvictIdle tears down every session idle since before the cutoff and
// reports how many were removed. Sessions mid-request are skipped; the next
// sweep sees them again.
func (c *Cache) EvictIdle(olderThan time.Time) int {
	c.mu.Lock()
	var idle []*Session
	for id, s := range c.sessions {
		if time.Unix(0, atomic.LoadInt64(&s.lastUsed)).Before(olderThan) && s.busy.TryLock() {
			delete(c.sessions, id)
			idle = append(idle, s)
		}
	}
	c.mu.Unlock()

	for _, s := range idle {
		if err := s.sandbox.Close(context.Background()); err != nil {
			log.Printf("SESSION: failed to close sandbox for %s: %v", s.ID, err)
		}
		s.busy.Unlock()
	}
	return len(idle)
}

// Teardown destroys the session for id. Unknown ids are a no-op.
func (c *Cache) Teardown(ctx context.Context, id string) error {
	c.mu.Lock()
	s, ok := c.sessions[id]
	if ok {
		delete(c.sessions, id)
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}
	s.busy.Lock()
	defer s.busy.Unlock()
	return s.sandbox.Close(ctx)
}

// Start launches the background eviction sweep. It runs until Close and
// never blocks request handling.
func (c *Cache) Start(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := c.EvictIdle(time.Now().Add(-c.idleTimeout)); n > 0 {
					log.Printf("SESSION: evicted %d idle session(s)", n)
				}
			case <-c.stop:
				return
			}
		}
	}()
}

// Close stops the sweep and tears down every live session.
func (c *Cache) Close() {
	if c.stop != nil {
		close(c.stop)
		<-c.done
	}
	c.mu.Lock()
	remaining := make([]*Session, 0, len(c.sessions))
	for id, s := range c.sessions {
		delete(c.sessions, id)
		remaining = append(remaining, s)
	}
	c.mu.Unlock()
	for _, s := range remaining {
		if err := s.sandbox.Close(context.Background()); err != nil {
			log.Printf("SESSION: failed to close sandbox for %s: %v", s.ID, err)
		}
	}
}
