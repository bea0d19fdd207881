package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"waxcrate/internal/services"
)

const previewColumns = `id, owner_id, source_file_path, canonical_image_path,
    artist, album, title, label, year, catalog_number, country, format,
    confidence, ocr_text, raw_analysis_json, analysis_model,
    estimated_cost_cents, analysis_error, enrichment_source, status,
    error_message, last_heartbeat, created_at, updated_at, analyzed_at,
    reviewed_at, enriched_at`

// CreatePreview inserts a new preview record in the uploaded state. The
// preview identifier is generated here and never supplied by a caller.
func (s *Store) CreatePreview(ctx context.Context, ownerID, sourcePath, canonicalPath string) (*PreviewRecord, error) {
	if ownerID == "" {
		return nil, services.Wrap(services.ErrValidation, "records", "create preview", "owner id is required", nil)
	}
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO preview_records (
            id, owner_id, source_file_path, canonical_image_path,
            status, enrichment_source, confidence, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		ownerID,
		nullableString(sourcePath),
		nullableString(canonicalPath),
		StateUploaded,
		EnrichmentNone,
		0.0,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert preview: %w", err)
	}
	return s.GetPreview(ctx, id, ownerID)
}

// GetPreview fetches a preview record scoped to its owner. Returns nil when
// no record exists for that (id, owner) pair.
func (s *Store) GetPreview(ctx context.Context, previewID, ownerID string) (*PreviewRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+previewColumns+` FROM preview_records WHERE id = ? AND owner_id = ?`,
		previewID, ownerID,
	)
	rec, err := scanPreview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preview: %w", err)
	}
	return rec, nil
}

// Update persists mutable fields of a preview record without changing state.
func (s *Store) Update(ctx context.Context, rec *PreviewRecord) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	rec.UpdatedAt = time.Now().UTC()
	_, err := s.execWithRetry(ctx,
		`UPDATE preview_records SET `+previewSetClause+` WHERE id = ? AND owner_id = ?`,
		append(previewSetArgs(rec), rec.PreviewID, rec.OwnerID)...,
	)
	if err != nil {
		return fmt.Errorf("update preview: %w", err)
	}
	return nil
}

// Advance persists all mutable fields and moves the record to the next state
// in one guarded UPDATE. The write succeeds only when the stored state equals
// rec.State and to is its immediate successor, which is what prevents skipped
// or duplicated transitions under concurrent callers. On success rec reflects
// the new state and stage timestamp.
func (s *Store) Advance(ctx context.Context, rec *PreviewRecord, to State) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	from := rec.State
	if !CanAdvance(from, to) {
		return services.Wrap(services.ErrInvalidTransition, "records", "advance",
			fmt.Sprintf("cannot transition %s from %s to %s", rec.PreviewID, from, to), nil)
	}

	now := time.Now().UTC()
	rec.UpdatedAt = now
	switch to {
	case StateAIAnalyzed:
		rec.AnalyzedAt = &now
	case StateUserReviewed:
		rec.ReviewedAt = &now
	case StateEnriched:
		rec.EnrichedAt = &now
	}
	rec.LastHeartbeat = nil

	prevState := rec.State
	rec.State = to
	res, err := s.execWithRetry(ctx,
		`UPDATE preview_records SET `+previewSetClause+` WHERE id = ? AND owner_id = ? AND status = ?`,
		append(previewSetArgs(rec), rec.PreviewID, rec.OwnerID, prevState)...,
	)
	if err != nil {
		rec.State = prevState
		return fmt.Errorf("advance preview: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		rec.State = prevState
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		rec.State = prevState
		current, getErr := s.GetPreview(ctx, rec.PreviewID, rec.OwnerID)
		if getErr != nil {
			return getErr
		}
		if current == nil {
			return services.Wrap(services.ErrNotFound, "records", "advance",
				fmt.Sprintf("preview %s not found", rec.PreviewID), nil)
		}
		return services.Wrap(services.ErrInvalidTransition, "records", "advance",
			fmt.Sprintf("preview %s is %s, expected %s", rec.PreviewID, current.State, from), nil)
	}
	return nil
}

// MarkReviewed applies reviewer corrections and advances the record from the
// analyzed to the reviewed state. Reviewer values replace extracted ones on
// conflict; a human correction is the highest-trust source in the pipeline.
func (s *Store) MarkReviewed(ctx context.Context, rec *PreviewRecord, corrections Fields) error {
	if rec == nil {
		return errors.New("record is nil")
	}
	rec.Fields.Override(corrections)
	return s.Advance(ctx, rec, StateUserReviewed)
}

// ListByState returns preview records matching any of the given states,
// oldest first. With no states it returns all previews.
func (s *Store) ListByState(ctx context.Context, states ...State) ([]*PreviewRecord, error) {
	baseQuery := `SELECT ` + previewColumns + ` FROM preview_records`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(states) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(states))
		args := make([]any, len(states))
		for i, state := range states {
			args[i] = state
		}
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list previews: %w", err)
	}
	defer rows.Close()

	var recs []*PreviewRecord
	for rows.Next() {
		rec, err := scanPreview(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ListByOwner returns all preview records for one owner, oldest first.
func (s *Store) ListByOwner(ctx context.Context, ownerID string) ([]*PreviewRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+previewColumns+` FROM preview_records WHERE owner_id = ? ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list previews by owner: %w", err)
	}
	defer rows.Close()

	var recs []*PreviewRecord
	for rows.Next() {
		rec, err := scanPreview(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// NextForStates returns the oldest preview matching any of the given states.
func (s *Store) NextForStates(ctx context.Context, states ...State) (*PreviewRecord, error) {
	if len(states) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(states))
	args := make([]any, len(states))
	for i, state := range states {
		args[i] = state
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+previewColumns+` FROM preview_records WHERE status IN (`+placeholders+`) ORDER BY created_at LIMIT 1`,
		args...,
	)
	rec, err := scanPreview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// NextReady returns the oldest preview in any of the given states whose
// heartbeat is absent or older than cutoff. In-flight previews and recent
// failures keep a fresh heartbeat and are skipped until it goes stale.
func (s *Store) NextReady(ctx context.Context, cutoff time.Time, states ...State) (*PreviewRecord, error) {
	if len(states) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(states))
	args := make([]any, 0, len(states)+1)
	for _, state := range states {
		args = append(args, state)
	}
	args = append(args, cutoff.UTC().Format(time.RFC3339Nano))
	row := s.db.QueryRowContext(ctx,
		`SELECT `+previewColumns+` FROM preview_records
         WHERE status IN (`+placeholders+`)
           AND (last_heartbeat IS NULL OR last_heartbeat < ?)
         ORDER BY created_at LIMIT 1`,
		args...,
	)
	rec, err := scanPreview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Stats returns a count of preview records grouped by state.
func (s *Store) Stats(ctx context.Context) (map[State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM preview_records GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("record stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[State]int)
	for rows.Next() {
		var state State
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, err
		}
		stats[state] = count
	}
	return stats, rows.Err()
}

// Health aggregates record counts for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for state, count := range stats {
		health.Previews += count
		switch state {
		case StateUploaded:
			health.Uploaded += count
		case StateAIAnalyzed:
			health.Analyzed += count
		case StateUserReviewed:
			health.Reviewed += count
		case StateEnriched:
			health.Enriched += count
		}
	}
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM archive_records`)
	if err := row.Scan(&health.Archived); err != nil {
		return health, fmt.Errorf("count archive records: %w", err)
	}
	row = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM archive_tombstones`)
	if err := row.Scan(&health.Tombstones); err != nil {
		return health, fmt.Errorf("count tombstones: %w", err)
	}
	return health, nil
}

const previewSetClause = `source_file_path = ?, canonical_image_path = ?,
    artist = ?, album = ?, title = ?, label = ?, year = ?, catalog_number = ?,
    country = ?, format = ?, confidence = ?, ocr_text = ?,
    raw_analysis_json = ?, analysis_model = ?, estimated_cost_cents = ?,
    analysis_error = ?, enrichment_source = ?, status = ?, error_message = ?,
    last_heartbeat = ?, updated_at = ?, analyzed_at = ?, reviewed_at = ?,
    enriched_at = ?`

func previewSetArgs(rec *PreviewRecord) []any {
	return []any{
		nullableString(rec.SourceFilePath),
		nullableString(rec.CanonicalImagePath),
		nullableString(rec.Fields.Artist),
		nullableString(rec.Fields.Album),
		nullableString(rec.Fields.Title),
		nullableString(rec.Fields.Label),
		nullableString(rec.Fields.Year),
		nullableString(rec.Fields.CatalogNumber),
		nullableString(rec.Fields.Country),
		nullableString(rec.Fields.Format),
		rec.Confidence,
		nullableString(rec.OCRText),
		nullableString(rec.RawAnalysis),
		nullableString(rec.AnalysisModel),
		rec.EstimatedCost,
		nullableString(rec.AnalysisError),
		string(rec.EnrichmentSource),
		rec.State,
		nullableString(rec.ErrorMessage),
		nullableTime(rec.LastHeartbeat),
		rec.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(rec.AnalyzedAt),
		nullableTime(rec.ReviewedAt),
		nullableTime(rec.EnrichedAt),
	}
}

func scanPreview(scanner interface{ Scan(dest ...any) error }) (*PreviewRecord, error) {
	var (
		id               string
		ownerID          string
		sourcePath       sql.NullString
		canonicalPath    sql.NullString
		artist           sql.NullString
		album            sql.NullString
		title            sql.NullString
		label            sql.NullString
		year             sql.NullString
		catalogNumber    sql.NullString
		country          sql.NullString
		format           sql.NullString
		confidence       sql.NullFloat64
		ocrText          sql.NullString
		rawAnalysis      sql.NullString
		analysisModel    sql.NullString
		estimatedCost    sql.NullInt64
		analysisError    sql.NullString
		enrichmentSource sql.NullString
		statusStr        string
		errorMessage     sql.NullString
		lastHeartbeatRaw sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		analyzedRaw      sql.NullString
		reviewedRaw      sql.NullString
		enrichedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id, &ownerID, &sourcePath, &canonicalPath,
		&artist, &album, &title, &label, &year, &catalogNumber, &country, &format,
		&confidence, &ocrText, &rawAnalysis, &analysisModel,
		&estimatedCost, &analysisError, &enrichmentSource, &statusStr,
		&errorMessage, &lastHeartbeatRaw, &createdRaw, &updatedRaw, &analyzedRaw,
		&reviewedRaw, &enrichedRaw,
	); err != nil {
		return nil, err
	}

	rec := &PreviewRecord{
		PreviewID:          id,
		OwnerID:            ownerID,
		SourceFilePath:     sourcePath.String,
		CanonicalImagePath: canonicalPath.String,
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
		OCRText:          ocrText.String,
		RawAnalysis:      rawAnalysis.String,
		AnalysisModel:    analysisModel.String,
		EstimatedCost:    int(estimatedCost.Int64),
		AnalysisError:    analysisError.String,
		EnrichmentSource: EnrichmentSource(enrichmentSource.String),
		State:            State(statusStr),
		ErrorMessage:     errorMessage.String,
	}
	if rec.EnrichmentSource == "" {
		rec.EnrichmentSource = EnrichmentNone
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		rec.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		rec.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if hb, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			rec.LastHeartbeat = &hb
		}
	}
	if analyzedRaw.Valid {
		if t, err := parseTimeString(analyzedRaw.String); err == nil {
			rec.AnalyzedAt = &t
		}
	}
	if reviewedRaw.Valid {
		if t, err := parseTimeString(reviewedRaw.String); err == nil {
			rec.ReviewedAt = &t
		}
	}
	if enrichedRaw.Valid {
		if t, err := parseTimeString(enrichedRaw.String); err == nil {
			rec.EnrichedAt = &t
		}
	}
	return rec, nil
}
