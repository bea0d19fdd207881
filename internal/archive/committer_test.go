package archive

import (
	"context"
	"errors"
	"sync"
	"testing"

	"waxcrate/internal/logging"
	"waxcrate/internal/records"
	"waxcrate/internal/services"
	"waxcrate/internal/testsupport"
)

func newCommitterHarness(t *testing.T) (*Committer, *records.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	return NewCommitter(store, logging.NewNop()), store
}

func analyzedPreview(t *testing.T, store *records.Store, fields records.Fields) *records.PreviewRecord {
	t.Helper()
	ctx := context.Background()
	rec, err := store.CreatePreview(ctx, "collector-7", "/uploads/raw.jpg", "/uploads/canonical.jpg")
	if err != nil {
		t.Fatalf("create preview: %v", err)
	}
	rec.Fields = fields
	rec.Confidence = 0.8
	rec.AnalysisModel = "heuristic"
	if err := store.Advance(ctx, rec, records.StateAIAnalyzed); err != nil {
		t.Fatalf("advance: %v", err)
	}
	return rec
}

func TestCommitArchivesAnalyzedPreview(t *testing.T) {
	committer, store := newCommitterHarness(t)
	rec := analyzedPreview(t, store, records.Fields{Artist: "Miles Davis", Album: "Kind of Blue"})

	result, err := committer.Commit(context.Background(), rec.PreviewID, rec.OwnerID)
	if err != nil {
		t.Fatalf("Commit returned error: %v", err)
	}
	if !result.Created {
		t.Fatal("first commit should create the archive")
	}
	if result.Record.RecordID == "" || result.Record.RecordID == rec.PreviewID {
		t.Fatalf("record id must be fresh, got %q", result.Record.RecordID)
	}
	if result.Record.Fields.Artist != "Miles Davis" {
		t.Fatalf("display fields not copied: %+v", result.Record.Fields)
	}

	// The preview is consumed by the commit.
	gone, err := store.GetPreview(context.Background(), rec.PreviewID, rec.OwnerID)
	if err != nil {
		t.Fatalf("get preview: %v", err)
	}
	if gone != nil {
		t.Fatal("preview should be deleted after archiving")
	}
}

func TestCommitSecondAttemptReturnsExisting(t *testing.T) {
	committer, store := newCommitterHarness(t)
	rec := analyzedPreview(t, store, records.Fields{Artist: "Miles Davis", Album: "Kind of Blue"})

	first, err := committer.Commit(context.Background(), rec.PreviewID, rec.OwnerID)
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	second, err := committer.Commit(context.Background(), rec.PreviewID, rec.OwnerID)
	if err != nil {
		t.Fatalf("second commit must not be a hard error: %v", err)
	}
	if second.Created {
		t.Fatal("second commit must not create a duplicate")
	}
	if second.Record.RecordID != first.Record.RecordID {
		t.Fatalf("second commit resolved to %s, want %s", second.Record.RecordID, first.Record.RecordID)
	}
}

func TestCommitUnknownPreviewIsNotFound(t *testing.T) {
	committer, _ := newCommitterHarness(t)

	_, err := committer.Commit(context.Background(), "no-such-preview", "collector-7")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCommitWrongOwnerIsNotFound(t *testing.T) {
	committer, store := newCommitterHarness(t)
	rec := analyzedPreview(t, store, records.Fields{Artist: "A", Album: "B"})

	_, err := committer.Commit(context.Background(), rec.PreviewID, "other-owner")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for other owner, got %v", err)
	}
}

func TestCommitUploadedPreviewIsInvalidTransition(t *testing.T) {
	committer, store := newCommitterHarness(t)
	rec, err := store.CreatePreview(context.Background(), "collector-7", "/uploads/raw.jpg", "/uploads/canonical.jpg")
	if err != nil {
		t.Fatalf("create preview: %v", err)
	}

	_, err = committer.Commit(context.Background(), rec.PreviewID, rec.OwnerID)
	if !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestCommitWithoutIdentityIsMissingFields(t *testing.T) {
	committer, store := newCommitterHarness(t)
	rec := analyzedPreview(t, store, records.Fields{Label: "Columbia", Year: "1959"})

	_, err := committer.Commit(context.Background(), rec.PreviewID, rec.OwnerID)
	if !errors.Is(err, services.ErrMissingFields) {
		t.Fatalf("expected missing fields, got %v", err)
	}

	// The failed commit must not consume the preview.
	still, err := store.GetPreview(context.Background(), rec.PreviewID, rec.OwnerID)
	if err != nil {
		t.Fatalf("get preview: %v", err)
	}
	if still == nil {
		t.Fatal("preview should survive a rejected commit")
	}
}

func TestCommitConcurrentAttemptsCreateExactlyOne(t *testing.T) {
	committer, store := newCommitterHarness(t)
	rec := analyzedPreview(t, store, records.Fields{Artist: "Miles Davis", Album: "Kind of Blue"})

	const attempts = 8
	results := make([]*Result, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = committer.Commit(context.Background(), rec.PreviewID, rec.OwnerID)
		}(i)
	}
	wg.Wait()

	created := 0
	recordIDs := make(map[string]struct{})
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			t.Fatalf("attempt %d failed: %v", i, errs[i])
		}
		if results[i].Created {
			created++
		}
		recordIDs[results[i].Record.RecordID] = struct{}{}
	}
	if created != 1 {
		t.Fatalf("expected exactly one creation, got %d", created)
	}
	if len(recordIDs) != 1 {
		t.Fatalf("all attempts must resolve to the same record, got %d ids", len(recordIDs))
	}
}
