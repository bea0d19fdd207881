package identify

import (
	"strings"

	"waxcrate/internal/records"
)

// HighConfidenceThresholdDefault is used when configuration does not supply a
// threshold.
const HighConfidenceThresholdDefault = 0.75

// Score computes a deterministic confidence for extracted fields as a
// weighted sum capped at 1.0. Artist and album carry the most weight because
// they are the archive's minimal identity.
func Score(fields records.Fields) float64 {
	score := 0.0
	if present(fields.Artist) {
		score += 0.3
	}
	if present(fields.Album) || present(fields.Title) {
		score += 0.3
	}
	if present(fields.Label) {
		score += 0.2
	}
	if present(fields.Year) {
		score += 0.1
	}
	if present(fields.CatalogNumber) {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

func present(value string) bool {
	return strings.TrimSpace(value) != ""
}
