package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestLimiter(limit int, window time.Duration) (*Limiter, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(limit, window)
	l.now = c.now
	return l, c
}

func TestAllowRefillsOverWindow(t *testing.T) {
	l, c := newTestLimiter(3, time.Minute)
	defer l.Close()

	for range 3 {
		assert.True(t, l.Allow("1.2.3.4"))
	}
	assert.False(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("5.6.7.8"), "keys are independent")

	c.t = c.t.Add(30 * time.Second)
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"))
	assert.Equal(t, 20*time.Second, l.RetryAfter())
}

func TestSweepDropsIdleKeys(t *testing.T) {
	l, c := newTestLimiter(1, time.Second)
	defer l.Close()

	l.Allow("a")
	c.t = c.t.Add(3 * time.Second)
	l.Allow("b")
	l.sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.entries, "a")
	assert.Contains(t, l.entries, "b")
}
