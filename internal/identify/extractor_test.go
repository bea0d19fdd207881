package identify

import (
	"context"
	"errors"
	"testing"

	"waxcrate/internal/logging"
)

type fakeReader struct {
	text  string
	err   error
	calls int
}

func (f *fakeReader) ExtractText(ctx context.Context, imagePath string) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestParseTextFullSleeve(t *testing.T) {
	text := "MILES DAVIS - KIND OF BLUE\nCOLUMBIA RECORDS\nCL 1355\n1959\nLP 33 1/3"
	fields := ParseText(text)
	if fields.Artist != "MILES DAVIS" {
		t.Errorf("artist = %q", fields.Artist)
	}
	if fields.Album != "KIND OF BLUE" {
		t.Errorf("album = %q", fields.Album)
	}
	if fields.Year != "1959" {
		t.Errorf("year = %q", fields.Year)
	}
	if fields.CatalogNumber != "CL 1355" {
		t.Errorf("catalog number = %q", fields.CatalogNumber)
	}
	if fields.Label != "COLUMBIA RECORDS" {
		t.Errorf("label = %q", fields.Label)
	}
	if fields.Format != "LP" {
		t.Errorf("format = %q", fields.Format)
	}
}

func TestParseTextNoDashLine(t *testing.T) {
	fields := ParseText("ABBEY ROAD\nAPPLE\n1969")
	if fields.Artist != "" || fields.Album != "" {
		t.Fatalf("expected empty identity, got %q / %q", fields.Artist, fields.Album)
	}
	if fields.Year != "1969" {
		t.Fatalf("year = %q", fields.Year)
	}
}

func TestParseTextRejectsImplausibleYear(t *testing.T) {
	fields := ParseText("PRESSED 1850\nISSUE 2099 COPIES")
	if fields.Year != "" {
		t.Fatalf("expected no year from implausible tokens, got %q", fields.Year)
	}
}

func TestParseTextEnDash(t *testing.T) {
	fields := ParseText("Nina Simone – Pastel Blues")
	if fields.Artist != "Nina Simone" || fields.Album != "Pastel Blues" {
		t.Fatalf("identity = %q / %q", fields.Artist, fields.Album)
	}
}

func TestParseTextEmpty(t *testing.T) {
	fields := ParseText("   \n  ")
	if fields != (ParseText("")) {
		t.Fatal("whitespace-only text should parse like empty text")
	}
}

func TestExtractAbsorbsOCRFailure(t *testing.T) {
	reader := &fakeReader{err: errors.New("binary missing")}
	extractor := NewExtractor(reader, logging.NewNop())

	extraction := extractor.Extract(context.Background(), "/tmp/cover.jpg")
	if extraction.OCRText != "" {
		t.Fatalf("expected empty text on failure, got %q", extraction.OCRText)
	}
	if extraction.Fields.HasIdentity() {
		t.Fatal("expected no fields on failure")
	}
	if reader.calls != 1 {
		t.Fatalf("expected one OCR call, got %d", reader.calls)
	}
}

func TestExtractParsesReaderOutput(t *testing.T) {
	reader := &fakeReader{text: "Joni Mitchell - Blue\nREPRISE RECORDS\nMS 2038"}
	extractor := NewExtractor(reader, logging.NewNop())

	extraction := extractor.Extract(context.Background(), "/tmp/cover.jpg")
	if extraction.Fields.Artist != "Joni Mitchell" || extraction.Fields.Album != "Blue" {
		t.Fatalf("identity = %q / %q", extraction.Fields.Artist, extraction.Fields.Album)
	}
	if extraction.Fields.CatalogNumber != "MS 2038" {
		t.Fatalf("catalog number = %q", extraction.Fields.CatalogNumber)
	}
}
