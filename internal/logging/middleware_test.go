package logging_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Amund211/beacon/internal/logging"
	"github.com/stretchr/testify/assert"
)

func TestRequestLoggerMiddleware(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	rootLogger := slog.New(slog.NewJSONHandler(&buf, nil))

	middleware := logging.NewRequestLoggerMiddleware(rootLogger)
	handler := middleware(func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Info("handled")
	})

	r := httptest.NewRequest(http.MethodPost, "/v1/profiles/resolve", nil)
	r.RemoteAddr = "192.0.2.1:39112"
	r.Header.Set("User-Agent", "beacon-test/1.0")
	handler(httptest.NewRecorder(), r)

	record := lastRecord(t, &buf)

	assert.Equal(t, "handled", record["msg"])
	assert.Equal(t, "192.0.2.1", record["ip"])
	assert.Equal(t, "beacon-test/1.0", record["userAgent"])
	assert.Equal(t, http.MethodPost, record["method"])
	assert.Equal(t, "/v1/profiles/resolve", record["path"])
	assert.NotEmpty(t, record["requestID"])
}
