package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragworks/rag/sandbox"
)

// fakeSandbox blocks inside Execute until released, so tests can hold a
// session busy deterministically.
type fakeSandbox struct {
	executed int32
	closed   int32
	release  chan struct{}
}

func (f *fakeSandbox) Execute(ctx context.Context, query string, contextTexts []string) (string, error) {
	atomic.AddInt32(&f.executed, 1)
	if f.release != nil {
		<-f.release
	}
	return "answer to " + query, nil
}

func (f *fakeSandbox) Close(ctx context.Context) error {
	atomic.AddInt32(&f.closed, 1)
	return nil
}

type fakeProvider struct {
	mu      sync.Mutex
	created []*fakeSandbox
	release chan struct{}
}

func (p *fakeProvider) CreateSession(ctx context.Context) (sandbox.Session, error) {
	sb := &fakeSandbox{release: p.release}
	p.mu.Lock()
	p.created = append(p.created, sb)
	p.mu.Unlock()
	return sb, nil
}

func (p *fakeProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.created)
}

func TestGetOrCreateSharesOneCreationPerID(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewCache(provider, time.Minute)
	defer cache.Close()

	const callers = 16
	sessions := make([]*Session, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i], errs[i] = cache.GetOrCreate(context.Background(), "shared-id")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, provider.count())
	for _, s := range sessions[1:] {
		assert.Same(t, sessions[0], s)
	}
}

func TestGetOrCreateSeparatesIDs(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewCache(provider, time.Minute)
	defer cache.Close()

	a, err := cache.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	b, err := cache.GetOrCreate(context.Background(), "b")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 2, provider.count())
}

func TestExecuteRejectsConcurrentUse(t *testing.T) {
	release := make(chan struct{})
	provider := &fakeProvider{release: release}
	cache := NewCache(provider, time.Minute)
	defer cache.Close()

	s, err := cache.GetOrCreate(context.Background(), "busy-id")
	require.NoError(t, err)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := s.Execute(context.Background(), "long running", nil)
		done <- err
	}()
	<-started

	// Wait until the first request holds the sandbox.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&provider.created[0].executed) == 1
	}, time.Second, time.Millisecond)

	_, err = s.Execute(context.Background(), "concurrent", nil)
	assert.ErrorIs(t, err, ErrSessionBusy)

	close(release)
	require.NoError(t, <-done)

	// The session is reusable once the first request finishes.
	answer, err := s.Execute(context.Background(), "next", nil)
	require.NoError(t, err)
	assert.Equal(t, "answer to next", answer)
}

func TestEvictIdleSkipsBusySessions(t *testing.T) {
	release := make(chan struct{})
	provider := &fakeProvider{release: release}
	cache := NewCache(provider, time.Minute)
	defer cache.Close()

	busy, err := cache.GetOrCreate(context.Background(), "busy")
	require.NoError(t, err)
	_, err = cache.GetOrCreate(context.Background(), "idle")
	require.NoError(t, err)

	go busy.Execute(context.Background(), "hold", nil)
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&provider.created[0].executed) == 1
	}, time.Second, time.Millisecond)

	// Both sessions are older than a future cutoff, but the busy one must
	// survive the sweep.
	evicted := cache.EvictIdle(time.Now().Add(time.Hour))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, int32(0), atomic.LoadInt32(&provider.created[0].closed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.created[1].closed))

	close(release)
}

func TestEvictIdleHonorsCutoff(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewCache(provider, time.Minute)
	defer cache.Close()

	_, err := cache.GetOrCreate(context.Background(), "fresh")
	require.NoError(t, err)

	assert.Equal(t, 0, cache.EvictIdle(time.Now().Add(-time.Minute)))

	cache.Touch("fresh")
	assert.Equal(t, 0, cache.EvictIdle(time.Now().Add(-time.Second)))
}

func TestTeardown(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewCache(provider, time.Minute)
	defer cache.Close()

	_, err := cache.GetOrCreate(context.Background(), "gone")
	require.NoError(t, err)

	require.NoError(t, cache.Teardown(context.Background(), "gone"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&provider.created[0].closed))

	// Unknown ids are a no-op.
	require.NoError(t, cache.Teardown(context.Background(), "never-seen"))

	// The id is usable again with a fresh sandbox.
	_, err = cache.GetOrCreate(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.count())
}

func TestCloseTearsDownEverything(t *testing.T) {
	provider := &fakeProvider{}
	cache := NewCache(provider, time.Minute)
	cache.Start(10 * time.Millisecond)

	_, err := cache.GetOrCreate(context.Background(), "a")
	require.NoError(t, err)
	_, err = cache.GetOrCreate(context.Background(), "b")
	require.NoError(t, err)

	cache.Close()
	for _, sb := range provider.created {
		assert.Equal(t, int32(1), atomic.LoadInt32(&sb.closed))
	}
}
