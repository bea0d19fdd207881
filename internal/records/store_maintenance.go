package records

import (
	"context"
	"fmt"
	"time"
)

// UpdateHeartbeat refreshes the heartbeat timestamp for an in-flight preview.
func (s *Store) UpdateHeartbeat(ctx context.Context, previewID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.execWithRetry(ctx,
		`UPDATE preview_records SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now, now, previewID,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ClearStaleHeartbeats drops heartbeats older than the cutoff so the workflow
// manager can pick the records up again. State is untouched; analysis stages
// are safe to re-run because completed stages short-circuit on state checks.
func (s *Store) ClearStaleHeartbeats(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE preview_records
         SET last_heartbeat = NULL, updated_at = ?
         WHERE last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("clear stale heartbeats: %w", err)
	}
	return res.RowsAffected()
}

// PruneTombstones removes tombstones older than the retention window. After
// pruning, a duplicate commit for that preview id reports not-found instead
// of already-archived, which is the documented retention trade-off.
func (s *Store) PruneTombstones(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM archive_tombstones WHERE archived_at < ?`,
		olderThan.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune tombstones: %w", err)
	}
	return res.RowsAffected()
}

// DeletePreview removes a preview record outright (abandoned uploads).
func (s *Store) DeletePreview(ctx context.Context, previewID, ownerID string) (bool, error) {
	res, err := s.execWithRetry(ctx,
		`DELETE FROM preview_records WHERE id = ? AND owner_id = ?`,
		previewID, ownerID,
	)
	if err != nil {
		return false, fmt.Errorf("delete preview: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
