package ports_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Amund211/beacon/internal/ports"
	"github.com/Amund211/beacon/internal/ratelimiting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeMiddlewares(t *testing.T) {
	t.Parallel()

	var order []string
	makeMiddleware := func(name string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next(w, r)
			}
		}
	}

	composed := ports.ComposeMiddlewares(
		makeMiddleware("outer"),
		makeMiddleware("middle"),
		makeMiddleware("inner"),
	)

	handler := composed(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	})

	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "middle", "inner", "handler"}, order)
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Parallel()

	limiter, stop := ratelimiting.NewBucketLimiter(1, 2, time.Minute)
	defer stop()
	requestLimiter := ratelimiting.NewRequestLimiter(limiter, ratelimiting.ClientIPKey)

	limited := false
	middleware := ports.NewRateLimitMiddleware(requestLimiter, func(w http.ResponseWriter, r *http.Request) {
		limited = true
		w.WriteHeader(http.StatusTooManyRequests)
	})

	handler := middleware(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "192.0.2.1:1234"
		handler(w, r)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	handler(w, r)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.True(t, limited)
}
