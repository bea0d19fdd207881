package enrich

import (
	"context"
	"errors"
	"testing"

	"waxcrate/internal/logging"
	"waxcrate/internal/records"
	"waxcrate/internal/services"
	"waxcrate/internal/services/catalog"
	"waxcrate/internal/services/vision"
	"waxcrate/internal/testsupport"
)

type fakeSearcher struct {
	resp  *catalog.Response
	err   error
	calls int
}

func (f *fakeSearcher) SearchReleases(ctx context.Context, artist, album string, opts catalog.SearchOptions) (*catalog.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeSearcher) GetRelease(ctx context.Context, releaseID int64) (*catalog.Release, error) {
	return nil, errors.New("not implemented")
}

type fakeAnalyzer struct {
	analysis *vision.Analysis
	err      error
	calls    int
}

func (f *fakeAnalyzer) AnalyzeImage(ctx context.Context, imagePath, hint string) (*vision.Analysis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.analysis, nil
}

type harness struct {
	enricher *Enricher
	cache    *Cache
	store    *records.Store
	searcher *fakeSearcher
	analyzer *fakeAnalyzer
}

func newHarness(t *testing.T, searcher *fakeSearcher, analyzer *fakeAnalyzer) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	cache := NewCache(cfg.Enrichment.CacheCapacity)
	return &harness{
		enricher: NewEnricher(store, cache, searcher, analyzer, cfg, logging.NewNop()),
		cache:    cache,
		store:    store,
		searcher: searcher,
		analyzer: analyzer,
	}
}

func reviewedPreview(t *testing.T, store *records.Store, fields records.Fields) *records.PreviewRecord {
	t.Helper()
	ctx := context.Background()
	rec, err := store.CreatePreview(ctx, "collector-7", "/uploads/raw.jpg", "/uploads/canonical.jpg")
	if err != nil {
		t.Fatalf("create preview: %v", err)
	}
	rec.Fields = fields
	rec.Confidence = 0.6
	if err := store.Advance(ctx, rec, records.StateAIAnalyzed); err != nil {
		t.Fatalf("advance to analyzed: %v", err)
	}
	if err := store.Advance(ctx, rec, records.StateUserReviewed); err != nil {
		t.Fatalf("advance to reviewed: %v", err)
	}
	return rec
}

func columbiaResponse() *catalog.Response {
	return &catalog.Response{Results: []catalog.Release{
		{Artist: "Miles Davis", Album: "Kind of Blue", Label: "Columbia", Year: "1959", CatalogNumber: "CL 1355", Country: "US", Format: "LP", Score: 0.97},
	}}
}

func TestEnrichCacheHitStopsCascade(t *testing.T) {
	h := newHarness(t, &fakeSearcher{resp: columbiaResponse()}, &fakeAnalyzer{})
	fields := records.Fields{Artist: "Miles Davis", Album: "Kind of Blue"}
	h.cache.Put(Fingerprint(fields), records.Fields{Label: "Columbia", Year: "1959"})
	rec := reviewedPreview(t, h.store, fields)

	updated, err := h.enricher.Enrich(context.Background(), rec, false)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if h.searcher.calls != 0 || h.analyzer.calls != 0 {
		t.Fatalf("cache hit must stop the cascade: catalog=%d vision=%d", h.searcher.calls, h.analyzer.calls)
	}
	if updated.EnrichmentSource != records.EnrichmentCache {
		t.Fatalf("source = %s", updated.EnrichmentSource)
	}
	if updated.Fields.Label != "Columbia" {
		t.Fatalf("label not filled: %+v", updated.Fields)
	}
	if updated.State != records.StateEnriched {
		t.Fatalf("state = %s", updated.State)
	}
}

func TestEnrichCatalogHitSkipsVisionAndCaches(t *testing.T) {
	h := newHarness(t, &fakeSearcher{resp: columbiaResponse()}, &fakeAnalyzer{})
	fields := records.Fields{Artist: "Miles Davis", Album: "Kind of Blue"}
	rec := reviewedPreview(t, h.store, fields)

	updated, err := h.enricher.Enrich(context.Background(), rec, false)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if h.searcher.calls != 1 {
		t.Fatalf("expected one catalog call, got %d", h.searcher.calls)
	}
	if h.analyzer.calls != 0 {
		t.Fatal("vision must not run when the catalog hits")
	}
	if updated.EnrichmentSource != records.EnrichmentCatalog {
		t.Fatalf("source = %s", updated.EnrichmentSource)
	}
	if _, ok := h.cache.Get(Fingerprint(fields)); !ok {
		t.Fatal("catalog hit should be cached for later lookups")
	}
}

func TestEnrichFallsThroughToVision(t *testing.T) {
	h := newHarness(t, &fakeSearcher{resp: &catalog.Response{}}, &fakeAnalyzer{analysis: &vision.Analysis{
		Label: "Philips", Year: "1965", Country: "NL",
	}})
	fields := records.Fields{Artist: "Nina Simone", Album: "Pastel Blues"}
	rec := reviewedPreview(t, h.store, fields)

	updated, err := h.enricher.Enrich(context.Background(), rec, false)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if h.searcher.calls != 1 || h.analyzer.calls != 1 {
		t.Fatalf("expected catalog then vision: catalog=%d vision=%d", h.searcher.calls, h.analyzer.calls)
	}
	if updated.EnrichmentSource != records.EnrichmentAI {
		t.Fatalf("source = %s", updated.EnrichmentSource)
	}
	if updated.Fields.Label != "Philips" {
		t.Fatalf("label not filled: %+v", updated.Fields)
	}
}

func TestEnrichForceExpensiveSkipsCheaperSteps(t *testing.T) {
	h := newHarness(t, &fakeSearcher{resp: columbiaResponse()}, &fakeAnalyzer{analysis: &vision.Analysis{Label: "Columbia"}})
	fields := records.Fields{Artist: "Miles Davis", Album: "Kind of Blue"}
	h.cache.Put(Fingerprint(fields), records.Fields{Label: "Columbia"})
	rec := reviewedPreview(t, h.store, fields)

	updated, err := h.enricher.Enrich(context.Background(), rec, true)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if h.searcher.calls != 0 {
		t.Fatal("forceExpensive must skip the catalog")
	}
	if h.analyzer.calls != 1 {
		t.Fatalf("expected one vision call, got %d", h.analyzer.calls)
	}
	if updated.EnrichmentSource != records.EnrichmentAI {
		t.Fatalf("source = %s", updated.EnrichmentSource)
	}
}

func TestEnrichTotalFailureStillAdvances(t *testing.T) {
	h := newHarness(t, &fakeSearcher{err: errors.New("catalog down")}, &fakeAnalyzer{err: errors.New("vision down")})
	rec := reviewedPreview(t, h.store, records.Fields{Artist: "Miles Davis", Album: "Kind of Blue"})

	updated, err := h.enricher.Enrich(context.Background(), rec, false)
	if err != nil {
		t.Fatalf("total cascade failure must not block: %v", err)
	}
	if updated.EnrichmentSource != records.EnrichmentNone {
		t.Fatalf("source = %s", updated.EnrichmentSource)
	}
	if updated.State != records.StateEnriched {
		t.Fatalf("state = %s", updated.State)
	}
}

func TestEnrichOnlyFillsEmptyFields(t *testing.T) {
	h := newHarness(t, &fakeSearcher{resp: &catalog.Response{Results: []catalog.Release{
		{Artist: "Wrong Artist", Album: "Wrong Album", Label: "Columbia", Year: "1959"},
	}}}, &fakeAnalyzer{})
	rec := reviewedPreview(t, h.store, records.Fields{Artist: "Miles Davis", Album: "Kind of Blue"})

	updated, err := h.enricher.Enrich(context.Background(), rec, false)
	if err != nil {
		t.Fatalf("Enrich returned error: %v", err)
	}
	if updated.Fields.Artist != "Miles Davis" || updated.Fields.Album != "Kind of Blue" {
		t.Fatalf("trusted values overwritten: %+v", updated.Fields)
	}
	if updated.Fields.Label != "Columbia" {
		t.Fatalf("empty field not filled: %+v", updated.Fields)
	}
}

func TestEnrichRejectsUnreviewedRecord(t *testing.T) {
	h := newHarness(t, &fakeSearcher{}, &fakeAnalyzer{})
	rec, err := h.store.CreatePreview(context.Background(), "collector-7", "/uploads/raw.jpg", "/uploads/canonical.jpg")
	if err != nil {
		t.Fatalf("create preview: %v", err)
	}

	_, err = h.enricher.Enrich(context.Background(), rec, false)
	if !errors.Is(err, services.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if h.searcher.calls != 0 || h.analyzer.calls != 0 {
		t.Fatal("no external call should happen for an unreviewed record")
	}
}

func TestEnrichIsReentrant(t *testing.T) {
	h := newHarness(t, &fakeSearcher{resp: columbiaResponse()}, &fakeAnalyzer{})
	rec := reviewedPreview(t, h.store, records.Fields{Artist: "Miles Davis", Album: "Kind of Blue"})

	first, err := h.enricher.Enrich(context.Background(), rec, false)
	if err != nil {
		t.Fatalf("first enrich: %v", err)
	}
	catalogCalls := h.searcher.calls

	second, err := h.enricher.Enrich(context.Background(), first, false)
	if err != nil {
		t.Fatalf("second enrich: %v", err)
	}
	if h.searcher.calls != catalogCalls {
		t.Fatal("re-entrant enrich must not recompute")
	}
	if second.EnrichmentSource != records.EnrichmentCatalog {
		t.Fatalf("source = %s", second.EnrichmentSource)
	}
}
