package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"waxcrate/internal/config"
	"waxcrate/internal/fileutil"
	"waxcrate/internal/logging"
	"waxcrate/internal/services"
)

// RejectionReason is the machine-readable code returned to callers when an
// upload is refused.
type RejectionReason string

const (
	ReasonPathTraversal      RejectionReason = "path_traversal"
	ReasonMIMEMismatch       RejectionReason = "mime_mismatch"
	ReasonTooLarge           RejectionReason = "too_large"
	ReasonDangerousSignature RejectionReason = "dangerous_signature"
	ReasonFilenameTooLong    RejectionReason = "filename_too_long"
)

// RejectionError carries the reason code alongside the validation marker so
// callers can branch on errors.Is(err, services.ErrValidation) and still
// report the precise reason.
type RejectionError struct {
	Reason RejectionReason
	Detail string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("upload rejected (%s): %s", e.Reason, e.Detail)
}

func (e *RejectionError) Unwrap() error {
	return services.ErrValidation
}

// ReasonOf extracts the rejection reason from an error chain, if present.
func ReasonOf(err error) (RejectionReason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// ValidatedUpload describes a successfully stored upload.
type ValidatedUpload struct {
	Path         string
	StoredName   string
	DetectedMIME string
	Size         int64
}

// Validator checks and stores untrusted upload streams.
type Validator struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewValidator constructs an upload validator.
func NewValidator(cfg *config.Config, logger *slog.Logger) *Validator {
	return &Validator{cfg: cfg, logger: logging.NewComponentLogger(logger, "ingest")}
}

// streamChunkSize bounds buffered memory while copying, regardless of the
// declared upload size.
const streamChunkSize = 64 * 1024

// Accept validates the stream and, on success, writes it beneath the upload
// directory scoped to the owner. On any failure no partial file remains.
func (v *Validator) Accept(ctx context.Context, r io.Reader, declaredMIME, declaredFilename, ownerID string) (*ValidatedUpload, error) {
	logger := logging.WithContext(ctx, v.logger)

	if strings.TrimSpace(ownerID) == "" {
		return nil, services.Wrap(services.ErrValidation, "ingest", "accept", "owner id is required", nil)
	}
	if err := v.checkFilename(declaredFilename); err != nil {
		logger.Warn("upload rejected before read",
			logging.String(logging.FieldEventType, "upload_rejected"),
			logging.Error(err))
		return nil, err
	}

	prefix := make([]byte, sniffLen)
	n, err := io.ReadFull(r, prefix)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, services.Wrap(services.ErrTransient, "ingest", "read prefix", "failed reading upload stream", err)
	}
	prefix = prefix[:n]

	detected, executable := classifyPrefix(prefix)
	if executable {
		logger.Warn("executable signature rejected",
			logging.String(logging.FieldEventType, "upload_rejected"),
			logging.String("detected_mime", detected),
			logging.String("declared_mime", declaredMIME))
		return nil, &RejectionError{
			Reason: ReasonDangerousSignature,
			Detail: fmt.Sprintf("prefix matches executable format %s", detected),
		}
	}
	if reject := checkMIMEConflict(declaredMIME, detected); reject != nil {
		logger.Warn("declared type conflicts with signature",
			logging.String(logging.FieldEventType, "upload_rejected"),
			logging.String("detected_mime", detected),
			logging.String("declared_mime", declaredMIME))
		return nil, reject
	}

	stored, err := v.streamToOwnerDir(ctx, prefix, r, declaredFilename, ownerID)
	if err != nil {
		return nil, err
	}
	stored.DetectedMIME = detected

	logger.Info("upload accepted",
		logging.String(logging.FieldEventType, "upload_accepted"),
		logging.String("stored_name", stored.StoredName),
		logging.String("detected_mime", detected),
		logging.Int64("bytes", stored.Size))
	return stored, nil
}

func (v *Validator) checkFilename(name string) error {
	if len(name) > v.cfg.Ingest.MaxFilenameLength {
		return &RejectionError{
			Reason: ReasonFilenameTooLong,
			Detail: fmt.Sprintf("filename of %d bytes exceeds limit %d", len(name), v.cfg.Ingest.MaxFilenameLength),
		}
	}
	// Traversal sequences and directory markers are survivable (they are
	// stripped to a basename), but a null byte is an overt path smuggling
	// attempt with no legitimate reading.
	if strings.ContainsRune(name, 0) {
		return &RejectionError{Reason: ReasonPathTraversal, Detail: "filename contains a null byte"}
	}
	return nil
}

func checkMIMEConflict(declared, detected string) *RejectionError {
	normalizedDeclared := normalizeMIME(declared)
	if normalizedDeclared == "" {
		return nil
	}
	if normalizedDeclared == detected {
		return nil
	}
	return &RejectionError{
		Reason: ReasonMIMEMismatch,
		Detail: fmt.Sprintf("declared %s but signature is %s", normalizedDeclared, detected),
	}
}

func (v *Validator) streamToOwnerDir(ctx context.Context, prefix []byte, rest io.Reader, declaredFilename, ownerID string) (*ValidatedUpload, error) {
	maxBytes := v.cfg.Ingest.MaxUploadBytes
	if int64(len(prefix)) > maxBytes {
		return nil, &RejectionError{
			Reason: ReasonTooLarge,
			Detail: fmt.Sprintf("upload exceeds %d bytes", maxBytes),
		}
	}

	ownerDir := filepath.Join(v.cfg.Paths.UploadDir, sanitizeOwnerDir(ownerID))
	if err := fileutil.EnsureDir(ownerDir); err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "prepare", "create owner directory", err)
	}

	tmp, err := os.CreateTemp(ownerDir, ".upload-*")
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "ingest", "prepare", "create temp file", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	total := int64(0)
	if _, err := tmp.Write(prefix); err != nil {
		cleanup()
		return nil, services.Wrap(services.ErrTransient, "ingest", "stream", "write temp file", err)
	}
	total += int64(len(prefix))

	buf := make([]byte, streamChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			cleanup()
			return nil, services.Wrap(services.ErrTransient, "ingest", "stream", "upload canceled", err)
		}
		n, readErr := rest.Read(buf)
		if n > 0 {
			total += int64(n)
			// Checked continuously so an attacker cannot make us buffer or
			// store more than the cap before the final read.
			if total > maxBytes {
				cleanup()
				return nil, &RejectionError{
					Reason: ReasonTooLarge,
					Detail: fmt.Sprintf("upload exceeds %d bytes", maxBytes),
				}
			}
			if _, err := tmp.Write(buf[:n]); err != nil {
				cleanup()
				return nil, services.Wrap(services.ErrTransient, "ingest", "stream", "write temp file", err)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			cleanup()
			return nil, services.Wrap(services.ErrTransient, "ingest", "stream", "read upload stream", readErr)
		}
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, services.Wrap(services.ErrTransient, "ingest", "stream", "close temp file", err)
	}

	storedName := fmt.Sprintf("%s_%s", uuid.NewString(), SanitizeFilename(declaredFilename))
	finalPath := filepath.Join(ownerDir, storedName)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return nil, services.Wrap(services.ErrTransient, "ingest", "stream", "finalize upload file", err)
	}

	return &ValidatedUpload{
		Path:       finalPath,
		StoredName: storedName,
		Size:       total,
	}, nil
}

func sanitizeOwnerDir(ownerID string) string {
	var b strings.Builder
	for _, r := range ownerID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}
