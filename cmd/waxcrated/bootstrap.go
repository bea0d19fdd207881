package main

import (
	"log/slog"

	"waxcrate/internal/archive"
	"waxcrate/internal/config"
	"waxcrate/internal/enrich"
	"waxcrate/internal/identify"
	"waxcrate/internal/logging"
	"waxcrate/internal/ocr"
	"waxcrate/internal/pipeline"
	"waxcrate/internal/records"
	"waxcrate/internal/services/catalog"
	"waxcrate/internal/services/vision"
	"waxcrate/internal/stageexec"
)

// buildRegistry wires the external clients into the pipeline stages. Vision
// and catalog credentials are optional; without them the stages fall back to
// heuristics-only behavior.
func buildRegistry(cfg *config.Config, store *records.Store, logger *slog.Logger) (*stageexec.Registry, error) {
	var analyzer vision.Analyzer
	if cfg.Vision.APIKey != "" {
		analyzer = vision.NewClient(vision.Config{
			APIKey:         cfg.Vision.APIKey,
			BaseURL:        cfg.Vision.BaseURL,
			Model:          cfg.Vision.Model,
			TimeoutSeconds: cfg.Vision.TimeoutSeconds,
		})
	} else {
		logger.Warn("vision api key not configured, escalation disabled")
	}

	var searcher catalog.Searcher
	if cfg.Catalog.APIKey != "" {
		client, err := catalog.New(cfg.Catalog.APIKey, cfg.Catalog.BaseURL, cfg.Catalog.TimeoutSeconds)
		if err != nil {
			return nil, err
		}
		searcher = client
	} else {
		logger.Warn("catalog api key not configured, catalog enrichment disabled")
	}

	engine := ocr.NewEngine(cfg.OCR.Binary, cfg.OCR.Language, cfg.OCR.TimeoutSeconds)
	if !engine.Available() {
		logger.Warn("ocr binary not found, extraction degrades to empty text",
			logging.String("binary", cfg.OCR.Binary))
	}

	extractor := identify.NewExtractor(engine, logger)
	resolver := identify.NewResolver(store, extractor, analyzer, cfg, logger)
	enricher := enrich.NewEnricher(store, enrich.NewCache(cfg.Enrichment.CacheCapacity),
		searcher, analyzer, cfg, logger)
	committer := archive.NewCommitter(store, logger)

	return pipeline.NewRegistry(pipeline.Deps{
		Store:     store,
		Resolver:  resolver,
		Enricher:  enricher,
		Committer: committer,
	})
}
