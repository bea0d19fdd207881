package enrich

import (
	"strings"

	"waxcrate/internal/records"
	"waxcrate/internal/textutil"
)

// Fingerprint derives the cache key for a set of fields: normalized
// artist|album|label|year. It is a lookup key, not an identity; collisions
// are acceptable because the cache is best-effort.
func Fingerprint(fields records.Fields) string {
	parts := []string{
		textutil.Normalize(fields.Artist),
		textutil.Normalize(fields.Album),
		textutil.Normalize(fields.Label),
		textutil.Normalize(fields.Year),
	}
	return strings.Join(parts, "|")
}
