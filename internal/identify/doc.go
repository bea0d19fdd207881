// Package identify turns an uploaded record photo into structured metadata.
// A cheap heuristic pass (local OCR plus fixed text parsing) runs first; the
// resolver escalates to the hosted vision service only when the heuristic
// confidence falls below the configured threshold.
package identify
