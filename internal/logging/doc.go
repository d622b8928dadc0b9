// Package logging configures structured logging for reprintd on top of
// log/slog.
//
// New builds a logger from Options (level, format, output paths); console
// output uses a compact single-line handler, JSON output a tuned
// slog.JSONHandler. Component loggers and context-derived fields (job id,
// chunk index, task id, workflow) keep pipeline log lines correlatable
// across concurrent chunk tasks.
package logging
