// Package logging assembles structured slog loggers and formatting helpers used
// across gazerec.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes helpers that tag log lines with session ids, stream names and
// correlation ids. WarnWithContext keeps non-fatal failures (lost chunks,
// encoder errors, finalize timeouts) uniform by always carrying event_type,
// error_hint and impact. The package also provides a no-op logger for tests.
package logging
