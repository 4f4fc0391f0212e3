// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package: JSON output in prod, plain text
// everywhere else. The registry emits its event stream through the logger
// built here.
package logger
