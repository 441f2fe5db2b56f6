package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCaptureLogger returns a debug-level JSON logger writing to buf.
func newCaptureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// records decodes every JSON line written to buf.
func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestEnrichLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := EnrichLogger(newCaptureLogger(&buf), "loader")
	logger.Info("hello")

	recs := records(t, &buf)
	require.Len(t, recs, 1)
	assert.Equal(t, "loader", recs[0]["component"])
	assert.Nil(t, EnrichLogger(nil, "x"))
}

func TestLogPhaseHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := newCaptureLogger(&buf)

	LogPhaseStart(logger, "loading", "core")
	LogPhaseComplete(logger, "loading", "core", 1.5, 3)
	LogPhaseError(logger, "initializing", "core", errors.New("boom"))

	recs := records(t, &buf)
	require.Len(t, recs, 3)
	assert.Equal(t, "phase starting", recs[0]["msg"])
	assert.Equal(t, "DEBUG", recs[0]["level"])
	assert.Equal(t, "phase completed", recs[1]["msg"])
	assert.Equal(t, float64(3), recs[1]["modules"])
	assert.Equal(t, "ERROR", recs[2]["level"])
	assert.Equal(t, "boom", recs[2]["error"])
}

func TestLogModuleAndEventHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := newCaptureLogger(&buf)

	LogUnitRejected(logger, "broken", errors.New("no factory"))
	LogModuleStaged(logger, "ping", "core")
	LogModuleCommitted(logger, "ping", "core", true)
	LogListenerAdded(logger, "ping", "*main.listener", true)
	LogPostError(logger, "ping", errors.New("handler failed"))
	LogSettingChanged(logger, "core:ping", "interval")

	recs := records(t, &buf)
	require.Len(t, recs, 6)
	assert.Equal(t, "WARN", recs[0]["level"])
	assert.Equal(t, "broken", recs[0]["unit"])
	assert.Equal(t, "core", recs[1]["plugin_id"])
	assert.Equal(t, true, recs[2]["instantiated"])
	assert.Equal(t, true, recs[3]["new_group"])
	assert.Equal(t, "event post failed", recs[4]["msg"])
	assert.Equal(t, "interval", recs[5]["path"])
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogPhaseStart(nil, "a", "b")
		LogPhaseComplete(nil, "a", "b", 0, 0)
		LogPhaseError(nil, "a", "b", errors.New("x"))
		LogUnitRejected(nil, "u", errors.New("x"))
		LogModuleStaged(nil, "m", "p")
		LogModuleCommitted(nil, "m", "p", false)
		LogListenerAdded(nil, "e", "l", false)
		LogPostError(nil, "e", errors.New("x"))
		LogSettingChanged(nil, "m", "p")
	})
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(2 * time.Millisecond)
	elapsed := done()
	assert.GreaterOrEqual(t, elapsed, 2*time.Millisecond)
	assert.InDelta(t, 1.5, Milliseconds(1500*time.Microsecond), 0.0001)
}
