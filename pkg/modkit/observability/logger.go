// Package observability provides logging helpers, metrics and tracing for
// the module runtime.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
// Every helper tolerates a nil logger.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds the component name to a logger.
func EnrichLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("component", component))
}

// LogPhaseStart logs the start of a loader phase.
func LogPhaseStart(logger *slog.Logger, phase, group string) {
	if logger == nil {
		return
	}
	logger.Debug("phase starting",
		slog.String("phase", phase),
		slog.String("group", group),
	)
}

// LogPhaseComplete logs successful completion of a loader phase.
func LogPhaseComplete(logger *slog.Logger, phase, group string, durationMs float64, modules int) {
	if logger == nil {
		return
	}
	logger.Info("phase completed",
		slog.String("phase", phase),
		slog.String("group", group),
		slog.Float64("duration_ms", durationMs),
		slog.Int("modules", modules),
	)
}

// LogPhaseError logs a failed loader phase.
func LogPhaseError(logger *slog.Logger, phase, group string, err error) {
	if logger == nil {
		return
	}
	logger.Error("phase failed",
		slog.String("phase", phase),
		slog.String("group", group),
		slog.String("error", err.Error()),
	)
}

// LogUnitRejected logs a unit whose declaration could not be loaded.
// Loading of the remaining units continues.
func LogUnitRejected(logger *slog.Logger, unit string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("unit rejected",
		slog.String("unit", unit),
		slog.String("error", err.Error()),
	)
}

// LogModuleStaged logs a module manager entering the pending queue.
func LogModuleStaged(logger *slog.Logger, name, pluginID string) {
	if logger == nil {
		return
	}
	logger.Debug("module staged",
		slog.String("module", name),
		slog.String("plugin_id", pluginID),
	)
}

// LogModuleCommitted logs a module manager moving into the live registry.
func LogModuleCommitted(logger *slog.Logger, name, pluginID string, instantiated bool) {
	if logger == nil {
		return
	}
	logger.Debug("module committed",
		slog.String("module", name),
		slog.String("plugin_id", pluginID),
		slog.Bool("instantiated", instantiated),
	)
}

// LogListenerAdded logs a listener joining a listener group.
func LogListenerAdded(logger *slog.Logger, eventType, listener string, newGroup bool) {
	if logger == nil {
		return
	}
	logger.Debug("listener added",
		slog.String("event_type", eventType),
		slog.String("listener", listener),
		slog.Bool("new_group", newGroup),
	)
}

// LogPostError logs an event post aborted by a handler failure.
func LogPostError(logger *slog.Logger, eventType string, err error) {
	if logger == nil {
		return
	}
	logger.Error("event post failed",
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogSettingChanged logs an externally changed module setting.
func LogSettingChanged(logger *slog.Logger, module, path string) {
	if logger == nil {
		return
	}
	logger.Debug("setting changed",
		slog.String("module", module),
		slog.String("path", path),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Milliseconds converts a duration to fractional milliseconds for log fields.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
