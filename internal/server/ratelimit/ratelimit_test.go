package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time without sleeping
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, config *Config) (*Limiter, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	l := NewLimiter(config)
	l.now = clock.Now
	t.Cleanup(l.Stop)
	return l, clock
}

func TestTokenBucket_Take(t *testing.T) {
	now := time.Now()
	bucket := newTokenBucket(10, 1.0, now) // 10 tokens, 1 token per second

	for i := 0; i < 10; i++ {
		allowed, remaining, _ := bucket.take(now)
		assert.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 9-i, remaining)
	}

	allowed, remaining, reset := bucket.take(now)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, now.Add(10*time.Second), reset)
}

func TestTokenBucket_Refill(t *testing.T) {
	now := time.Now()
	bucket := newTokenBucket(10, 1.0, now)
	for i := 0; i < 10; i++ {
		bucket.take(now)
	}

	later := now.Add(1100 * time.Millisecond)
	allowed, _, _ := bucket.take(later)
	assert.True(t, allowed, "one token should have refilled")

	allowed, _, _ = bucket.take(later)
	assert.False(t, allowed)
}

func TestTokenBucket_NeverExceedsCapacity(t *testing.T) {
	now := time.Now()
	bucket := newTokenBucket(3, 1.0, now)

	_, remaining, reset := bucket.take(now.Add(time.Hour))
	assert.Equal(t, 2, remaining)
	assert.True(t, reset.After(now.Add(time.Hour)))
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
	})

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/interviews", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
		assert.Equal(t, 9-i, info.Remaining)
	}

	allowed, info := limiter.Allow("127.0.0.1", "/interviews", "GET")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Positive(t, info.RetryAfter)
}

func TestLimiter_Whitelist(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"127.0.0.1": true},
	})

	for i := 0; i < 100; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/interviews", "GET")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
	assert.Zero(t, limiter.Len())
}

func TestLimiter_Blacklist(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Blacklist:     map[string]bool{"192.168.1.1": true},
	})

	allowed, _ := limiter.Allow("192.168.1.1", "/health", "GET")
	assert.False(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{Enabled: false})

	for i := 0; i < 100; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/auth/login", "POST")
		require.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_HealthIsUnlimited(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
	})

	for i := 0; i < 50; i++ {
		allowed, _ := limiter.Allow("127.0.0.1", "/health", "GET")
		require.True(t, allowed)
	}
}

func TestLimiter_EndpointSpecific(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:         true,
		DefaultLimit:    1000,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(),
	})

	// login allows a burst of 5
	for i := 0; i < 5; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/auth/login", "POST")
		require.True(t, allowed, "login %d", i+1)
		assert.Equal(t, 10, info.Limit)
	}
	allowed, _ := limiter.Allow("127.0.0.1", "/auth/login", "POST")
	assert.False(t, allowed)

	// other endpoints and other clients are unaffected
	allowed, _ = limiter.Allow("127.0.0.1", "/interviews", "GET")
	assert.True(t, allowed)
	allowed, _ = limiter.Allow("10.0.0.2", "/auth/login", "POST")
	assert.True(t, allowed)
}

func TestLimiter_TokenRoutesShareBucket(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/interview/", Method: "POST", Limit: 60, Window: time.Minute, Burst: 3},
		},
	})

	// a client cycling through tokens still draws from one bucket
	for i := 0; i < 3; i++ {
		path := fmt.Sprintf("/interview/token-%d/complete", i)
		allowed, _ := limiter.Allow("127.0.0.1", path, "POST")
		require.True(t, allowed)
	}
	allowed, _ := limiter.Allow("127.0.0.1", "/interview/another/complete", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 1, limiter.Len())
}

func TestLimiter_RefillsOverTime(t *testing.T) {
	limiter, clock := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  60,
		DefaultWindow: time.Minute,
		EndpointConfigs: []EndpointConfig{
			{Path: "/auth/magic-link", Method: "POST", Limit: 60, Window: time.Minute, Burst: 1},
		},
	})

	allowed, _ := limiter.Allow("127.0.0.1", "/auth/magic-link", "POST")
	require.True(t, allowed)
	allowed, info := limiter.Allow("127.0.0.1", "/auth/magic-link", "POST")
	require.False(t, allowed)
	assert.Equal(t, time.Second, info.RetryAfter)

	clock.Advance(time.Second)
	allowed, _ = limiter.Allow("127.0.0.1", "/auth/magic-link", "POST")
	assert.True(t, allowed)
}

func TestLimiter_Cleanup(t *testing.T) {
	limiter, clock := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  10,
		DefaultWindow: time.Minute,
		IdleTTL:       10 * time.Minute,
	})

	limiter.Allow("127.0.0.1", "/interviews", "GET")
	clock.Advance(5 * time.Minute)
	limiter.Allow("10.0.0.2", "/interviews", "GET")
	require.Equal(t, 2, limiter.Len())

	clock.Advance(6 * time.Minute)
	limiter.cleanupBuckets()
	assert.Equal(t, 1, limiter.Len(), "only the idle bucket is dropped")

	clock.Advance(10 * time.Minute)
	limiter.cleanupBuckets()
	assert.Zero(t, limiter.Len())
}

func TestLimiter_StopIsIdempotent(t *testing.T) {
	limiter := NewLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    10,
		DefaultWindow:   time.Minute,
		CleanupInterval: time.Millisecond,
	})
	assert.NotPanics(t, func() {
		limiter.Stop()
		limiter.Stop()
	})
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(t, &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Hour,
	})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if ok, _ := limiter.Allow("127.0.0.1", "/assignments", "GET"); ok {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, allowed)
}

func TestMatchEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		method   string
		wantPath string
		wantNil  bool
	}{
		{name: "exact login", path: "/auth/login", method: "POST", wantPath: "/auth/login"},
		{name: "verify is its own rule", path: "/auth/magic-link/verify", method: "POST", wantPath: "/auth/magic-link/verify"},
		{name: "answer save", path: "/interview/abc/answers/q1", method: "PUT", wantPath: "/interview/"},
		{name: "video upload", path: "/interview/abc/answers/q1/video", method: "POST", wantPath: "/interview/"},
		{name: "resend", path: "/assignments/123/resend", method: "POST", wantPath: "/assignments/"},
		{name: "interview update", path: "/interviews/123", method: "PUT", wantPath: "/interviews/"},
		{name: "health", path: "/health", method: "GET", wantPath: "/health"},
		{name: "open interview uses default", path: "/interview/abc", method: "GET", wantNil: true},
		{name: "wrong method", path: "/auth/login", method: "GET", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, DefaultEndpointConfigs())
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantPath, got.Path)
			assert.Equal(t, tt.method, got.Method)
		})
	}
}
