package records_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"waxcrate/internal/records"
	"waxcrate/internal/services"
	"waxcrate/internal/testsupport"
)

func newPreview(t *testing.T, store *records.Store, owner string) *records.PreviewRecord {
	t.Helper()
	rec, err := store.CreatePreview(context.Background(), owner, "/tmp/src.jpg", "/tmp/canonical.jpg")
	if err != nil {
		t.Fatalf("CreatePreview failed: %v", err)
	}
	return rec
}

func advanceTo(t *testing.T, store *records.Store, rec *records.PreviewRecord, target records.State) {
	t.Helper()
	ctx := context.Background()
	for rec.State != target {
		next := records.AllStates()[rec.State.Index()+1]
		if err := store.Advance(ctx, rec, next); err != nil {
			t.Fatalf("Advance to %s failed: %v", next, err)
		}
	}
}

func TestCreatePreviewAssignsIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	rec := newPreview(t, store, "owner-1")
	if rec.PreviewID == "" {
		t.Fatal("expected preview ID to be assigned")
	}
	if rec.State != records.StateUploaded {
		t.Fatalf("expected uploaded state, got %s", rec.State)
	}

	fetched, err := store.GetPreview(context.Background(), rec.PreviewID, "owner-1")
	if err != nil {
		t.Fatalf("GetPreview failed: %v", err)
	}
	if fetched == nil || fetched.SourceFilePath != "/tmp/src.jpg" {
		t.Fatalf("unexpected fetched record: %#v", fetched)
	}
}

func TestCreatePreviewRequiresOwner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.CreatePreview(context.Background(), "", "/tmp/a", "/tmp/b"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetPreviewScopedToOwner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	rec := newPreview(t, store, "owner-1")
	other, err := store.GetPreview(context.Background(), rec.PreviewID, "owner-2")
	if err != nil {
		t.Fatalf("GetPreview failed: %v", err)
	}
	if other != nil {
		t.Fatal("expected record to be invisible to another owner")
	}
}

func TestAdvanceRejectsSkips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := newPreview(t, store, "owner-1")
	err := store.Advance(ctx, rec, records.StateEnriched)
	if !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if rec.State != records.StateUploaded {
		t.Fatalf("record state mutated on failed advance: %s", rec.State)
	}
}

func TestAdvanceGuardsOnStoredState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := newPreview(t, store, "owner-1")
	stale, err := store.GetPreview(ctx, rec.PreviewID, "owner-1")
	if err != nil {
		t.Fatalf("GetPreview failed: %v", err)
	}

	if err := store.Advance(ctx, rec, records.StateAIAnalyzed); err != nil {
		t.Fatalf("first advance failed: %v", err)
	}
	// The stale copy still thinks the record is uploaded; its advance must fail.
	if err := store.Advance(ctx, stale, records.StateAIAnalyzed); !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition for stale copy, got %v", err)
	}
}

func TestAdvanceSetsStageTimestamps(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := newPreview(t, store, "owner-1")
	advanceTo(t, store, rec, records.StateEnriched)

	fetched, err := store.GetPreview(ctx, rec.PreviewID, "owner-1")
	if err != nil {
		t.Fatalf("GetPreview failed: %v", err)
	}
	if fetched.AnalyzedAt == nil || fetched.ReviewedAt == nil || fetched.EnrichedAt == nil {
		t.Fatalf("expected stage timestamps set: %#v", fetched)
	}
	if fetched.AnalyzedAt.After(*fetched.ReviewedAt) || fetched.ReviewedAt.After(*fetched.EnrichedAt) {
		t.Fatal("stage timestamps out of order")
	}
}

func TestAdvancePersistsFieldsWithState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := newPreview(t, store, "owner-1")
	rec.Fields.Artist = "Miles Davis"
	rec.Fields.Album = "Kind of Blue"
	rec.Confidence = 0.9
	rec.AnalysisModel = "heuristic"
	if err := store.Advance(ctx, rec, records.StateAIAnalyzed); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}

	fetched, err := store.GetPreview(ctx, rec.PreviewID, "owner-1")
	if err != nil {
		t.Fatalf("GetPreview failed: %v", err)
	}
	// A reader that observes the new state must also observe the fields
	// written with it.
	if fetched.State != records.StateAIAnalyzed || fetched.Fields.Artist != "Miles Davis" {
		t.Fatalf("fields not visible with state: %#v", fetched)
	}
	if fetched.Confidence != 0.9 || fetched.AnalysisModel != "heuristic" {
		t.Fatalf("provenance not persisted: %#v", fetched)
	}
}

func TestArchivePreviewMovesRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := newPreview(t, store, "owner-1")
	rec.Fields.Artist = "X"
	rec.Fields.Album = "Y"
	advanceTo(t, store, rec, records.StateEnriched)

	archive, created, err := store.ArchivePreview(ctx, rec)
	if err != nil {
		t.Fatalf("ArchivePreview failed: %v", err)
	}
	if !created {
		t.Fatal("expected created=true on first archive")
	}
	if archive.RecordID == "" || archive.RecordID == rec.PreviewID {
		t.Fatalf("expected fresh record id, got %q", archive.RecordID)
	}

	gone, err := store.GetPreview(ctx, rec.PreviewID, "owner-1")
	if err != nil {
		t.Fatalf("GetPreview failed: %v", err)
	}
	if gone != nil {
		t.Fatal("preview should be deleted after archive")
	}

	tomb, found, err := store.FindTombstone(ctx, rec.PreviewID, "owner-1")
	if err != nil || !found {
		t.Fatalf("expected tombstone, err=%v found=%v", err, found)
	}
	if tomb.RecordID != archive.RecordID {
		t.Fatalf("tombstone points at %s, want %s", tomb.RecordID, archive.RecordID)
	}
}

func TestArchivePreviewSecondCallReturnsExisting(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := newPreview(t, store, "owner-1")
	rec.Fields.Artist = "X"
	advanceTo(t, store, rec, records.StateEnriched)

	first, created, err := store.ArchivePreview(ctx, rec)
	if err != nil || !created {
		t.Fatalf("first archive failed: %v created=%v", err, created)
	}

	second, created, err := store.ArchivePreview(ctx, rec)
	if err != nil {
		t.Fatalf("second archive failed: %v", err)
	}
	if created {
		t.Fatal("expected created=false on duplicate archive")
	}
	if second.RecordID != first.RecordID {
		t.Fatalf("duplicate archive returned %s, want %s", second.RecordID, first.RecordID)
	}
}

func TestArchivePreviewConcurrentCommits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := newPreview(t, store, "owner-1")
	rec.Fields.Artist = "X"
	rec.Fields.Album = "Y"
	advanceTo(t, store, rec, records.StateEnriched)

	const attempts = 8
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		createdN    int
		recordIDs   = make(map[string]struct{})
		firstErrors []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cp := *rec
			archive, created, err := store.ArchivePreview(ctx, &cp)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				firstErrors = append(firstErrors, err)
				return
			}
			if created {
				createdN++
			}
			recordIDs[archive.RecordID] = struct{}{}
		}()
	}
	wg.Wait()

	if len(firstErrors) > 0 {
		t.Fatalf("unexpected errors: %v", firstErrors)
	}
	if createdN != 1 {
		t.Fatalf("expected exactly one created archive, got %d", createdN)
	}
	if len(recordIDs) != 1 {
		t.Fatalf("expected one record id across responses, got %v", recordIDs)
	}

	archives, err := store.ListArchivesByOwner(ctx, "owner-1")
	if err != nil {
		t.Fatalf("ListArchivesByOwner failed: %v", err)
	}
	if len(archives) != 1 || archives[0].Fields.Artist != "X" || archives[0].Fields.Album != "Y" {
		t.Fatalf("unexpected archive rows: %#v", archives)
	}
}

func TestPruneTombstones(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := newPreview(t, store, "owner-1")
	rec.Fields.Artist = "X"
	advanceTo(t, store, rec, records.StateEnriched)
	if _, _, err := store.ArchivePreview(ctx, rec); err != nil {
		t.Fatalf("archive failed: %v", err)
	}

	pruned, err := store.PruneTombstones(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("PruneTombstones failed: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("expected one pruned tombstone, got %d", pruned)
	}
	if _, found, _ := store.FindTombstone(ctx, rec.PreviewID, "owner-1"); found {
		t.Fatal("tombstone should be gone after pruning")
	}
}

func TestHealthCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	newPreview(t, store, "owner-1")
	reviewed := newPreview(t, store, "owner-1")
	advanceTo(t, store, reviewed, records.StateUserReviewed)

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Previews != 2 || health.Uploaded != 1 || health.Reviewed != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestClearStaleHeartbeats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	rec := newPreview(t, store, "owner-1")
	if err := store.UpdateHeartbeat(ctx, rec.PreviewID); err != nil {
		t.Fatalf("UpdateHeartbeat failed: %v", err)
	}

	cleared, err := store.ClearStaleHeartbeats(ctx, time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("ClearStaleHeartbeats failed: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected one cleared heartbeat, got %d", cleared)
	}
}

func TestParseStateRoundTrip(t *testing.T) {
	for _, state := range records.AllStates() {
		parsed, ok := records.ParseState(string(state))
		if !ok || parsed != state {
			t.Fatalf("ParseState(%q) = %q, %v", state, parsed, ok)
		}
	}
	if _, ok := records.ParseState("bogus"); ok {
		t.Fatal("expected unknown state to be rejected")
	}
}

func TestFieldsMergeFillsOnlyEmpty(t *testing.T) {
	fields := records.Fields{Artist: "Trusted Artist"}
	changed := fields.Merge(records.Fields{Artist: "Other", Album: "New Album"})
	if !changed {
		t.Fatal("expected merge to report change")
	}
	if fields.Artist != "Trusted Artist" {
		t.Fatalf("merge overwrote populated field: %q", fields.Artist)
	}
	if fields.Album != "New Album" {
		t.Fatalf("merge did not fill empty field: %q", fields.Album)
	}
}

func TestFieldsOverridePrefersOther(t *testing.T) {
	fields := records.Fields{Artist: "Heuristic Artist", Year: "1959"}
	fields.Override(records.Fields{Artist: "Vision Artist"})
	if fields.Artist != "Vision Artist" {
		t.Fatalf("override did not replace: %q", fields.Artist)
	}
	if fields.Year != "1959" {
		t.Fatalf("override cleared unrelated field: %q", fields.Year)
	}
}
