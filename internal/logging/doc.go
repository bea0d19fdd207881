// Package logging provides structured logging built on log/slog.
//
// Loggers are constructed from configuration (format, level, output paths)
// and enriched with standardized field names so log consumers can correlate
// events by record, stage, and request. Context plumbing carries those
// identifiers through pipeline stages without threading them as parameters.
package logging
