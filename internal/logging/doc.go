// Package logging provides structured logging for the fotad OTA server.
//
// It wraps a global zap logger so that every package logs through the same
// instance. Logging is silent by default: a level must be supplied either
// explicitly (the serve command's --log-level flag) or via the
// FOTAD_LOG_LEVEL environment variable. CLI commands that produce their own
// human-readable output rely on the silent default so log lines never mix
// with command output.
package logging
