package identify

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"waxcrate/internal/logging"
	"waxcrate/internal/ocr"
	"waxcrate/internal/records"
)

// Extraction is the output of the heuristic pass.
type Extraction struct {
	OCRText string
	Fields  records.Fields
}

// Extractor produces best-effort metadata from a photo without calling any
// paid external service.
type Extractor struct {
	reader ocr.Reader
	logger *slog.Logger
}

// NewExtractor constructs the heuristic extractor.
func NewExtractor(reader ocr.Reader, logger *slog.Logger) *Extractor {
	return &Extractor{
		reader: reader,
		logger: logging.NewComponentLogger(logger, "identify"),
	}
}

// Extract runs OCR and parses the recognized text. Recognition failure is
// absorbed: downstream stages must tolerate missing text, so the extraction
// comes back with empty text instead of an error.
func (e *Extractor) Extract(ctx context.Context, imagePath string) Extraction {
	logger := logging.WithContext(ctx, e.logger)

	text, err := e.reader.ExtractText(ctx, imagePath)
	if err != nil {
		logger.Warn("optical text recognition failed, continuing without text",
			logging.String("image", imagePath),
			logging.Error(err))
		return Extraction{}
	}
	fields := ParseText(text)
	logger.Debug("heuristic extraction complete",
		logging.Int("text_bytes", len(text)),
		logging.Bool("has_identity", fields.HasIdentity()))
	return Extraction{OCRText: text, Fields: fields}
}

var (
	yearPattern    = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	catalogPattern = regexp.MustCompile(`\b([A-Z]{2,6})[ -]?(\d{2,6})\b`)
	labelPattern   = regexp.MustCompile(`(?i)^(.{2,60}\b(?:records|recordings|music|label)\b.{0,20})$`)
	formatPattern  = regexp.MustCompile(`(?i)\b(LP|EP|45\s?RPM|33\s?1/3|7"|10"|12")\b`)
)

// ParseText applies the fixed extraction heuristics to recognized text. The
// first line split on a dash is read as artist and album; a plausible 4-digit
// token becomes the year; a short alphanumeric token shaped like a catalog
// number becomes the catalog number. All results may come back empty.
func ParseText(text string) records.Fields {
	var fields records.Fields
	text = strings.TrimSpace(text)
	if text == "" {
		return fields
	}

	lines := splitNonEmptyLines(text)
	if len(lines) > 0 {
		artist, album := splitIdentityLine(lines[0])
		fields.Artist = artist
		fields.Album = album
	}

	maxYear := time.Now().Year() + 1
	for _, match := range yearPattern.FindAllString(text, -1) {
		year, err := strconv.Atoi(match)
		if err != nil {
			continue
		}
		if year >= 1900 && year <= maxYear {
			fields.Year = match
			break
		}
	}

	if m := catalogPattern.FindStringSubmatch(text); m != nil {
		fields.CatalogNumber = strings.TrimSpace(m[0])
	}

	for _, line := range lines {
		if m := labelPattern.FindStringSubmatch(line); m != nil {
			fields.Label = strings.TrimSpace(m[1])
			break
		}
	}

	if m := formatPattern.FindString(text); m != "" {
		fields.Format = strings.ToUpper(strings.Join(strings.Fields(m), " "))
	}

	return fields
}

func splitNonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// splitIdentityLine reads "artist - album" from the leading line. En and em
// dashes appear in OCR output about as often as plain hyphens.
func splitIdentityLine(line string) (artist, album string) {
	for _, sep := range []string{" - ", " – ", " — ", "-"} {
		if idx := strings.Index(line, sep); idx > 0 {
			artist = strings.TrimSpace(line[:idx])
			album = strings.TrimSpace(line[idx+len(sep):])
			if artist != "" && album != "" {
				return artist, album
			}
		}
	}
	return "", ""
}
