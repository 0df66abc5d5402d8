package ratelimiting

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/time/rate"
)

// ClientLimiter throttles operations per client key.
type ClientLimiter interface {
	Allow(key string) bool
}

type bucketLimiter struct {
	buckets *ttlcache.Cache[string, *rate.Limiter]
	refill  rate.Limit
	burst   int
}

func (l *bucketLimiter) Allow(key string) bool {
	bucket, _ := l.buckets.GetOrSet(key, rate.NewLimiter(l.refill, l.burst))
	return bucket.Value().Allow()
}

// NewBucketLimiter returns a limiter keeping one token bucket per client key.
// Buckets idle for idleEviction are dropped; call stop to end the eviction
// loop.
func NewBucketLimiter(refillPerSecond float64, burst int, idleEviction time.Duration) (limiter ClientLimiter, stop func()) {
	buckets := ttlcache.New[string, *rate.Limiter](
		ttlcache.WithTTL[string, *rate.Limiter](idleEviction),
	)
	go buckets.Start()

	return &bucketLimiter{
		buckets: buckets,
		refill:  rate.Limit(refillPerSecond),
		burst:   burst,
	}, buckets.Stop
}

// RequestKeyFunc derives the throttling key for an incoming request.
type RequestKeyFunc func(r *http.Request) string

// RequestLimiter throttles http requests by a key derived from each request.
type RequestLimiter struct {
	limiter ClientLimiter
	keyFor  RequestKeyFunc
}

func NewRequestLimiter(limiter ClientLimiter, keyFor RequestKeyFunc) *RequestLimiter {
	return &RequestLimiter{
		limiter: limiter,
		keyFor:  keyFor,
	}
}

func (l *RequestLimiter) Allow(r *http.Request) bool {
	return l.limiter.Allow(l.keyFor(r))
}

func (l *RequestLimiter) Key(r *http.Request) string {
	return l.keyFor(r)
}

// ClientIPKey keys requests by the remote ip, ignoring the port.
func ClientIPKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return fmt.Sprintf("ip: %s", host)
}
