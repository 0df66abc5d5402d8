package ratelimiting_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/Amund211/beacon/internal/ratelimiting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketLimiter(t *testing.T) {
	t.Parallel()

	limiter, stop := ratelimiting.NewBucketLimiter(1, 2, time.Minute)
	defer stop()

	// Each key gets its own burst
	assert.True(t, limiter.Allow("203.0.113.7"))
	assert.True(t, limiter.Allow("203.0.113.7"))
	assert.False(t, limiter.Allow("203.0.113.7"))

	assert.True(t, limiter.Allow("203.0.113.8"))
	assert.True(t, limiter.Allow("203.0.113.8"))
	assert.False(t, limiter.Allow("203.0.113.8"))
}

func TestBucketLimiterRefills(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping test in short mode")
	}
	t.Parallel()

	limiter, stop := ratelimiting.NewBucketLimiter(10, 1, time.Minute)
	defer stop()

	require.True(t, limiter.Allow("key"))
	require.False(t, limiter.Allow("key"))

	time.Sleep(150 * time.Millisecond)
	assert.True(t, limiter.Allow("key"))
}

type allowFunc func(key string) bool

func (f allowFunc) Allow(key string) bool {
	return f(key)
}

func TestRequestLimiterKeysByClientIP(t *testing.T) {
	t.Parallel()

	var keys []string
	limiter := ratelimiting.NewRequestLimiter(allowFunc(func(key string) bool {
		keys = append(keys, key)
		return true
	}), ratelimiting.ClientIPKey)

	assert.True(t, limiter.Allow(&http.Request{RemoteAddr: "192.0.2.1:39112"}))
	assert.True(t, limiter.Allow(&http.Request{RemoteAddr: "192.0.2.1:39113"}))

	// The same client maps to the same key regardless of source port
	assert.Equal(t, []string{"ip: 192.0.2.1", "ip: 192.0.2.1"}, keys)
	assert.Equal(t, "ip: 192.0.2.1", limiter.Key(&http.Request{RemoteAddr: "192.0.2.1:39114"}))
}

func TestClientIPKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ip: 192.0.2.1", ratelimiting.ClientIPKey(&http.Request{RemoteAddr: "192.0.2.1:39112"}))
	assert.Equal(t, "ip: 192.0.2.1", ratelimiting.ClientIPKey(&http.Request{RemoteAddr: "192.0.2.1"}))
	assert.Equal(t, "ip: 2001:db8::1", ratelimiting.ClientIPKey(&http.Request{RemoteAddr: "[2001:db8::1]:443"}))
}
