package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"waxcrate/internal/services"
)

const archiveColumns = `id, preview_id, owner_id, artist, album, title, label,
    year, catalog_number, country, format, confidence, analysis_model,
    enrichment_source, archived_at`

// ArchivePreview converts a preview record into an archive record. The
// archive insert, the tombstone insert, and the preview delete run in a
// single transaction: a crash leaves either the full archive result or the
// untouched preview, never both and never neither.
//
// The UNIQUE constraint on archive_records.preview_id is the idempotency
// guard. When two commits race, exactly one transaction inserts; the loser
// observes the constraint violation (or a missing preview row), reads the
// tombstone, and returns the existing archive record with created=false.
func (s *Store) ArchivePreview(ctx context.Context, rec *PreviewRecord) (*ArchiveRecord, bool, error) {
	if rec == nil {
		return nil, false, errors.New("record is nil")
	}
	ctx = ensureContext(ctx)

	now := time.Now().UTC()
	archive := &ArchiveRecord{
		RecordID:         uuid.NewString(),
		PreviewID:        rec.PreviewID,
		OwnerID:          rec.OwnerID,
		Fields:           rec.Fields,
		Confidence:       rec.Confidence,
		AnalysisModel:    rec.AnalysisModel,
		EnrichmentSource: rec.EnrichmentSource,
		ArchivedAt:       now,
	}

	var created bool
	err := retryOnBusy(ctx, func() error {
		var txErr error
		created, txErr = s.archiveTx(ctx, rec, archive)
		return txErr
	})
	if err != nil {
		if isConstraintViolation(err) {
			existing, found, tombErr := s.archiveFromTombstone(ctx, rec.PreviewID, rec.OwnerID)
			if tombErr != nil {
				return nil, false, tombErr
			}
			if found {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	if !created {
		existing, found, tombErr := s.archiveFromTombstone(ctx, rec.PreviewID, rec.OwnerID)
		if tombErr != nil {
			return nil, false, tombErr
		}
		if !found {
			return nil, false, services.Wrap(services.ErrNotFound, "records", "archive",
				fmt.Sprintf("preview %s vanished without a tombstone", rec.PreviewID), nil)
		}
		return existing, false, nil
	}
	return archive, true, nil
}

func (s *Store) archiveTx(ctx context.Context, rec *PreviewRecord, archive *ArchiveRecord) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin archive tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Deleting first makes the preview row the arbiter of the race: only the
	// transaction that deletes it proceeds to insert.
	res, err := tx.ExecContext(ctx,
		`DELETE FROM preview_records WHERE id = ? AND owner_id = ?`,
		rec.PreviewID, rec.OwnerID,
	)
	if err != nil {
		return false, fmt.Errorf("delete preview: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	timestamp := archive.ArchivedAt.Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO archive_records (
            id, preview_id, owner_id, artist, album, title, label, year,
            catalog_number, country, format, confidence, analysis_model,
            enrichment_source, archived_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		archive.RecordID,
		archive.PreviewID,
		archive.OwnerID,
		nullableString(archive.Fields.Artist),
		nullableString(archive.Fields.Album),
		nullableString(archive.Fields.Title),
		nullableString(archive.Fields.Label),
		nullableString(archive.Fields.Year),
		nullableString(archive.Fields.CatalogNumber),
		nullableString(archive.Fields.Country),
		nullableString(archive.Fields.Format),
		archive.Confidence,
		nullableString(archive.AnalysisModel),
		string(archive.EnrichmentSource),
		timestamp,
	); err != nil {
		return false, fmt.Errorf("insert archive: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO archive_tombstones (preview_id, record_id, owner_id, archived_at)
         VALUES (?, ?, ?, ?)`,
		archive.PreviewID, archive.RecordID, archive.OwnerID, timestamp,
	); err != nil {
		return false, fmt.Errorf("insert tombstone: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit archive: %w", err)
	}
	return true, nil
}

func (s *Store) archiveFromTombstone(ctx context.Context, previewID, ownerID string) (*ArchiveRecord, bool, error) {
	tomb, found, err := s.FindTombstone(ctx, previewID, ownerID)
	if err != nil || !found {
		return nil, false, err
	}
	archive, err := s.GetArchive(ctx, tomb.RecordID, ownerID)
	if err != nil {
		return nil, false, err
	}
	if archive == nil {
		return nil, false, fmt.Errorf("tombstone for %s references missing archive %s", previewID, tomb.RecordID)
	}
	return archive, true, nil
}

// FindTombstone looks up the archive mapping left behind for a consumed
// preview id.
func (s *Store) FindTombstone(ctx context.Context, previewID, ownerID string) (Tombstone, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT preview_id, record_id, owner_id, archived_at
         FROM archive_tombstones WHERE preview_id = ? AND owner_id = ?`,
		previewID, ownerID,
	)
	var (
		tomb        Tombstone
		archivedRaw string
	)
	err := row.Scan(&tomb.PreviewID, &tomb.RecordID, &tomb.OwnerID, &archivedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return Tombstone{}, false, nil
	}
	if err != nil {
		return Tombstone{}, false, fmt.Errorf("find tombstone: %w", err)
	}
	if t, parseErr := parseTimeString(archivedRaw); parseErr == nil {
		tomb.ArchivedAt = t
	}
	return tomb, true, nil
}

// GetArchive fetches an archive record scoped to its owner. Returns nil when
// no record exists.
func (s *Store) GetArchive(ctx context.Context, recordID, ownerID string) (*ArchiveRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+archiveColumns+` FROM archive_records WHERE id = ? AND owner_id = ?`,
		recordID, ownerID,
	)
	archive, err := scanArchive(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}
	return archive, nil
}

// ListArchivesByOwner returns archive records for one owner, newest first.
func (s *Store) ListArchivesByOwner(ctx context.Context, ownerID string) ([]*ArchiveRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+archiveColumns+` FROM archive_records WHERE owner_id = ? ORDER BY archived_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var archives []*ArchiveRecord
	for rows.Next() {
		archive, err := scanArchive(rows)
		if err != nil {
			return nil, err
		}
		archives = append(archives, archive)
	}
	return archives, rows.Err()
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == 19 { // SQLITE_CONSTRAINT
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "SQLITE_CONSTRAINT")
}

func scanArchive(scanner interface{ Scan(dest ...any) error }) (*ArchiveRecord, error) {
	var (
		id               string
		previewID        string
		ownerID          string
		artist           sql.NullString
		album            sql.NullString
		title            sql.NullString
		label            sql.NullString
		year             sql.NullString
		catalogNumber    sql.NullString
		country          sql.NullString
		format           sql.NullString
		confidence       sql.NullFloat64
		analysisModel    sql.NullString
		enrichmentSource sql.NullString
		archivedRaw      string
	)
	if err := scanner.Scan(
		&id, &previewID, &ownerID, &artist, &album, &title, &label,
		&year, &catalogNumber, &country, &format, &confidence, &analysisModel,
		&enrichmentSource, &archivedRaw,
	); err != nil {
		return nil, err
	}
	archive := &ArchiveRecord{
		RecordID:  id,
		PreviewID: previewID,
		OwnerID:   ownerID,
		Fields: Fields{
			Artist:        artist.String,
			Album:         album.String,
			Title:         title.String,
			Label:         label.String,
			Year:          year.String,
			CatalogNumber: catalogNumber.String,
			Country:       country.String,
			Format:        format.String,
		},
		Confidence:       confidence.Float64,
		AnalysisModel:    analysisModel.String,
		EnrichmentSource: EnrichmentSource(enrichmentSource.String),
	}
	if archive.EnrichmentSource == "" {
		archive.EnrichmentSource = EnrichmentNone
	}
	if t, err := parseTimeString(archivedRaw); err == nil {
		archive.ArchivedAt = t
	}
	return archive, nil
}
