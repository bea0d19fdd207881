package archive

import (
	"context"
	"fmt"
	"log/slog"

	"waxcrate/internal/logging"
	"waxcrate/internal/records"
	"waxcrate/internal/services"
)

// Result reports the outcome of a commit attempt.
type Result struct {
	Record *records.ArchiveRecord
	// Created is false when the preview was already archived and the
	// existing record was recovered through its tombstone.
	Created bool
}

// Committer performs the terminal pipeline transition.
type Committer struct {
	store  *records.Store
	logger *slog.Logger
}

// NewCommitter constructs the archive committer.
func NewCommitter(store *records.Store, logger *slog.Logger) *Committer {
	return &Committer{
		store:  store,
		logger: logging.NewComponentLogger(logger, "archive"),
	}
}

// Commit archives the preview identified by previewID for ownerID. The
// preview must have been analyzed and must carry at least one of artist or
// album; a preview that was already archived resolves to the existing archive
// record with Created=false.
func (c *Committer) Commit(ctx context.Context, previewID, ownerID string) (*Result, error) {
	logger := logging.WithContext(ctx, c.logger).With(
		logging.String(logging.FieldPreviewID, previewID))

	rec, err := c.store.GetPreview(ctx, previewID, ownerID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// No preview row. Either it never existed for this owner or it was
		// already consumed by a commit; the tombstone disambiguates.
		tomb, found, err := c.store.FindTombstone(ctx, previewID, ownerID)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, services.Wrap(services.ErrNotFound, "archive", "commit",
				fmt.Sprintf("preview %s not found for owner", previewID), nil)
		}
		existing, err := c.store.GetArchive(ctx, tomb.RecordID, ownerID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, services.Wrap(services.ErrNotFound, "archive", "commit",
				fmt.Sprintf("archive %s missing for tombstoned preview %s", tomb.RecordID, previewID), nil)
		}
		logger.Info("commit resolved to existing archive",
			logging.String(logging.FieldRecordID, existing.RecordID))
		return &Result{Record: existing, Created: false}, nil
	}

	if !rec.State.AtLeast(records.StateAIAnalyzed) {
		return nil, services.Wrap(services.ErrInvalidTransition, "archive", "commit",
			fmt.Sprintf("preview %s is %s, archiving requires analysis first", previewID, rec.State), nil)
	}
	if !rec.Fields.HasIdentity() {
		return nil, services.Wrap(services.ErrMissingFields, "archive", "commit",
			fmt.Sprintf("preview %s has neither artist nor album", previewID), nil)
	}

	archived, created, err := c.store.ArchivePreview(ctx, rec)
	if err != nil {
		return nil, err
	}
	if created {
		logger.Info("preview archived",
			logging.String(logging.FieldRecordID, archived.RecordID),
			logging.String(logging.FieldEventType, "archived"))
	} else {
		logger.Info("commit raced, returning existing archive",
			logging.String(logging.FieldRecordID, archived.RecordID))
	}
	return &Result{Record: archived, Created: created}, nil
}
