package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/Amund211/beacon/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines)

	var record map[string]any
	err := json.Unmarshal(lines[len(lines)-1], &record)
	require.NoError(t, err)
	return record
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("returns fallback logger when none is set", func(t *testing.T) {
		t.Parallel()

		logger := logging.FromContext(context.Background())
		require.NotNil(t, logger)
	})

	t.Run("returns the logger added to the context", func(t *testing.T) {
		t.Parallel()

		buf := &bytes.Buffer{}
		logger := slog.New(slog.NewJSONHandler(buf, nil))

		ctx := logging.AddToContext(context.Background(), logger)

		logging.FromContext(ctx).Info("hello", "key", "value")

		record := lastRecord(t, buf)
		assert.Equal(t, "hello", record["msg"])
		assert.Equal(t, "value", record["key"])
	})
}

func TestAddMetaToContext(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	ctx := logging.AddToContext(context.Background(), logger)
	ctx = logging.AddMetaToContext(ctx, slog.String("component", "resolver"))

	logging.FromContext(ctx).Info("working")

	record := lastRecord(t, buf)
	assert.Equal(t, "working", record["msg"])
	assert.Equal(t, "resolver", record["component"])
}
