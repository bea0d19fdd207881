package ingest

import (
	"strings"
)

// DefaultFilename is used when sanitization strips a filename to nothing.
const DefaultFilename = "upload.bin"

// SanitizeFilename reduces an untrusted filename to a safe basename. It
// strips directory components, null bytes, control characters, and
// parent-directory sequences. The function is idempotent: applying it to its
// own output is a no-op, and the output never contains "..", "/", or "\".
func SanitizeFilename(name string) string {
	cleaned := stripControl(name)

	// Directory components are dropped, not rejected; only the basename may
	// influence the stored name.
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if idx := strings.LastIndexByte(cleaned, '/'); idx >= 0 {
		cleaned = cleaned[idx+1:]
	}

	// Repeated application until stable so sequences like "...." or "..%"
	// cannot reassemble into traversal after a single pass.
	for strings.Contains(cleaned, "..") {
		cleaned = strings.ReplaceAll(cleaned, "..", "")
	}

	cleaned = strings.Trim(cleaned, " .")
	if cleaned == "" {
		return DefaultFilename
	}
	return cleaned
}

func stripControl(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r == 0 || r < 0x20 || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
