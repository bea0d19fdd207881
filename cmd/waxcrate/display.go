package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
)

func shouldColorize(writer io.Writer) bool {
	f, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func colorize(value, color string, enabled bool) string {
	if !enabled || color == "" {
		return value
	}
	return color + value + ansiReset
}

var titleCaser = cases.Title(language.Und)

// displayField tidies OCR-derived metadata for terminal output. Sleeve text
// is usually all caps; title-case it, but leave mixed-case values alone since
// those were set by a reviewer or a catalog.
func displayField(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "-"
	}
	hasLower := strings.IndexFunc(trimmed, unicode.IsLower) >= 0
	if hasLower {
		return trimmed
	}
	return titleCaser.String(strings.ToLower(trimmed))
}

func formatConfidence(confidence float64) string {
	return fmt.Sprintf("%.2f", confidence)
}
