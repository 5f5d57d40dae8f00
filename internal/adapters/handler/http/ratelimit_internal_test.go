package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterSweepsIdleClientsPeriodically(t *testing.T) {
	l := NewRateLimiter(1, 1)
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	l.now = func() time.Time { return clock }

	l.Allow("a")
	clock = start.Add(5 * time.Minute)
	l.Allow("b")

	clock = start.Add(12 * time.Minute)
	l.Allow("c")
	assert.NotContains(t, l.clients, "a", "idle past the TTL at sweep time")
	assert.Contains(t, l.clients, "b")

	// b is now idle past the TTL, but the last sweep is too recent to run
	// another one.
	clock = start.Add(20 * time.Minute)
	l.Allow("d")
	assert.Contains(t, l.clients, "b")

	clock = start.Add(23 * time.Minute)
	l.Allow("d")
	assert.NotContains(t, l.clients, "b")
	assert.NotContains(t, l.clients, "c")
	assert.Contains(t, l.clients, "d")
}
