// Package ocr runs a local optical text recognition binary against preview
// photos. Recognition failure is not fatal to the pipeline; callers receive
// empty text and decide whether to escalate.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

const defaultTimeout = 20 * time.Second

// Reader extracts text from an image file.
type Reader interface {
	ExtractText(ctx context.Context, imagePath string) (string, error)
}

// Engine shells out to a tesseract-compatible binary.
type Engine struct {
	binary   string
	language string
	timeout  time.Duration
}

var _ Reader = (*Engine)(nil)

// NewEngine constructs an OCR engine. An empty binary falls back to
// "tesseract" on PATH.
func NewEngine(binary, language string, timeoutSeconds int) *Engine {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "tesseract"
	}
	timeout := defaultTimeout
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}
	return &Engine{
		binary:   binary,
		language: strings.TrimSpace(language),
		timeout:  timeout,
	}
}

// Available reports whether the configured binary can be found.
func (e *Engine) Available() bool {
	_, err := exec.LookPath(e.binary)
	return err == nil
}

// ExtractText runs recognition on the image and returns the recognized text
// with trailing whitespace trimmed. The "-" output target keeps the result on
// stdout instead of a sidecar file.
func (e *Engine) ExtractText(ctx context.Context, imagePath string) (string, error) {
	if strings.TrimSpace(imagePath) == "" {
		return "", errors.New("ocr: image path required")
	}
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := []string{imagePath, "-"}
	if e.language != "" {
		args = append(args, "-l", e.language)
	}
	cmd := commandContext(runCtx, e.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return "", fmt.Errorf("ocr: %s timed out after %s", e.binary, e.timeout)
		}
		return "", fmt.Errorf("ocr: %s: %w: %s", e.binary, err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(stdout.String()), nil
}
