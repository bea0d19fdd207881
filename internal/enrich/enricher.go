package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"waxcrate/internal/config"
	"waxcrate/internal/logging"
	"waxcrate/internal/records"
	"waxcrate/internal/services"
	"waxcrate/internal/services/catalog"
	"waxcrate/internal/services/vision"
)

// Enricher runs the cascade against a reviewed preview.
type Enricher struct {
	store    *records.Store
	cache    *Cache
	searcher catalog.Searcher
	analyzer vision.Analyzer
	cfg      *config.Config
	logger   *slog.Logger
}

// NewEnricher constructs the cascade with its shared fingerprint cache.
func NewEnricher(store *records.Store, cache *Cache, searcher catalog.Searcher, analyzer vision.Analyzer, cfg *config.Config, logger *slog.Logger) *Enricher {
	return &Enricher{
		store:    store,
		cache:    cache,
		searcher: searcher,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "enrich"),
	}
}

// Enrich fills empty fields on a reviewed preview and advances it to the
// enriched state. The cascade stops at the first step that produces a usable
// result; the expensive vision step is only reached when both cheaper steps
// miss, or when forceExpensive skips them. Total failure of all steps still
// advances the record, with source "none", rather than blocking the pipeline.
func (e *Enricher) Enrich(ctx context.Context, rec *records.PreviewRecord, forceExpensive bool) (*records.PreviewRecord, error) {
	if rec.State.AtLeast(records.StateEnriched) {
		return rec, nil
	}
	if rec.State != records.StateUserReviewed {
		return nil, services.Wrap(services.ErrInvalidTransition, "enrich", "enrich",
			fmt.Sprintf("preview %s is %s, enrichment requires %s", rec.PreviewID, rec.State, records.StateUserReviewed), nil)
	}
	logger := logging.WithContext(ctx, e.logger).With(
		logging.String(logging.FieldPreviewID, rec.PreviewID))

	fingerprint := Fingerprint(rec.Fields)
	source := records.EnrichmentNone

	if !forceExpensive {
		if cached, ok := e.cache.Get(fingerprint); ok {
			rec.Fields.Merge(cached)
			source = records.EnrichmentCache
			logger.Info("enrichment served from cache",
				logging.String("fingerprint", fingerprint))
		} else if found, ok := e.lookupCatalog(ctx, logger, rec.Fields); ok {
			e.cache.Put(fingerprint, found)
			rec.Fields.Merge(found)
			source = records.EnrichmentCatalog
		}
	}

	if source == records.EnrichmentNone {
		if found, ok := e.lookupVision(ctx, logger, rec); ok {
			e.cache.Put(fingerprint, found)
			rec.Fields.Merge(found)
			source = records.EnrichmentAI
		}
	}

	rec.EnrichmentSource = source
	if err := e.store.Advance(ctx, rec, records.StateEnriched); err != nil {
		return nil, err
	}
	logger.Info("enrichment complete",
		logging.String("source", string(source)))
	return rec, nil
}

func (e *Enricher) lookupCatalog(ctx context.Context, logger *slog.Logger, fields records.Fields) (records.Fields, bool) {
	var empty records.Fields
	if e.searcher == nil {
		return empty, false
	}
	if strings.TrimSpace(fields.Artist) == "" && strings.TrimSpace(fields.Album) == "" {
		return empty, false
	}

	timeout := 10 * time.Second
	if e.cfg != nil && e.cfg.Catalog.TimeoutSeconds > 0 {
		timeout = time.Duration(e.cfg.Catalog.TimeoutSeconds) * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := catalog.SearchOptions{
		Label:         fields.Label,
		CatalogNumber: fields.CatalogNumber,
	}
	if year, err := strconv.Atoi(strings.TrimSpace(fields.Year)); err == nil {
		opts.Year = year
	}
	resp, err := e.searcher.SearchReleases(callCtx, fields.Artist, fields.Album, opts)
	if err != nil {
		logger.Warn("catalog lookup failed, cascading", logging.Error(err))
		return empty, false
	}
	best := pickBestRelease(resp)
	if best == nil {
		return empty, false
	}
	return releaseFields(*best), true
}

func (e *Enricher) lookupVision(ctx context.Context, logger *slog.Logger, rec *records.PreviewRecord) (records.Fields, bool) {
	var empty records.Fields
	if e.analyzer == nil {
		return empty, false
	}
	timeout := 30 * time.Second
	if e.cfg != nil && e.cfg.Vision.TimeoutSeconds > 0 {
		timeout = time.Duration(e.cfg.Vision.TimeoutSeconds) * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	analysis, err := e.analyzer.AnalyzeImage(callCtx, rec.CanonicalImagePath, enrichmentHint(rec.Fields))
	if err != nil {
		logger.Warn("vision enrichment failed, continuing without it", logging.Error(err))
		return empty, false
	}
	return records.Fields{
		Artist:        analysis.Artist,
		Album:         analysis.Album,
		Title:         analysis.Title,
		Label:         analysis.Label,
		Year:          analysis.Year,
		CatalogNumber: analysis.CatalogNumber,
		Country:       analysis.Country,
		Format:        analysis.Format,
	}, true
}

func pickBestRelease(resp *catalog.Response) *catalog.Release {
	if resp == nil || len(resp.Results) == 0 {
		return nil
	}
	best := &resp.Results[0]
	for i := range resp.Results {
		if resp.Results[i].Score > best.Score {
			best = &resp.Results[i]
		}
	}
	return best
}

func releaseFields(release catalog.Release) records.Fields {
	return records.Fields{
		Artist:        release.Artist,
		Album:         release.Album,
		Label:         release.Label,
		Year:          release.Year,
		CatalogNumber: release.CatalogNumber,
		Country:       release.Country,
		Format:        release.Format,
	}
}

func enrichmentHint(fields records.Fields) string {
	parts := make([]string, 0, 2)
	if fields.Artist != "" {
		parts = append(parts, fields.Artist)
	}
	if fields.Album != "" {
		parts = append(parts, fields.Album)
	}
	return strings.Join(parts, " ")
}
