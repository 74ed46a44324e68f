package ratelimiter

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(rate, capacity float64) (*KeyedLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(rate, capacity, time.Hour)
	l.now = clock.Now
	return l, clock
}

func TestAllow(t *testing.T) {
	t.Run("burst then deny", func(t *testing.T) {
		l, _ := newTestLimiter(1, 3)
		defer l.Stop()
		assert.True(t, l.Allow("a"))
		assert.True(t, l.Allow("a"))
		assert.True(t, l.Allow("a"))
		assert.False(t, l.Allow("a"))
	})

	t.Run("refills over time", func(t *testing.T) {
		l, clock := newTestLimiter(1, 1)
		defer l.Stop()
		assert.True(t, l.Allow("a"))
		assert.False(t, l.Allow("a"))
		clock.Advance(time.Second)
		assert.True(t, l.Allow("a"))
	})

	t.Run("does not exceed capacity", func(t *testing.T) {
		l, clock := newTestLimiter(1, 2)
		defer l.Stop()
		assert.True(t, l.Allow("a"))
		clock.Advance(time.Hour)
		assert.True(t, l.Allow("a"))
		assert.True(t, l.Allow("a"))
		assert.False(t, l.Allow("a"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		l, _ := newTestLimiter(1, 1)
		defer l.Stop()
		assert.True(t, l.Allow("a"))
		assert.False(t, l.Allow("a"))
		assert.True(t, l.Allow("b"))
	})

	t.Run("reset restores the burst", func(t *testing.T) {
		l, _ := newTestLimiter(1, 1)
		defer l.Stop()
		assert.True(t, l.Allow("a"))
		l.Reset("a")
		assert.True(t, l.Allow("a"))
	})
}

func TestSweepDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(1, 1)
	defer l.Stop()
	l.Allow("old")
	clock.Advance(2 * time.Hour)
	l.Allow("new")
	l.sweep()
	assert.Equal(t, 1, l.Len())
}

func TestConcurrentAllow(t *testing.T) {
	l, _ := newTestLimiter(0, 50)
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("a") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestStopIsIdempotent(t *testing.T) {
	l := PerMinute(60, 1)
	l.Stop()
	l.Stop()
}
