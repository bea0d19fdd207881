package identify

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"waxcrate/internal/config"
	"waxcrate/internal/logging"
	"waxcrate/internal/records"
	"waxcrate/internal/services/vision"
)

// ModelHeuristic is recorded as provenance when no external analyzer ran.
const ModelHeuristic = "heuristic"

// Resolver decides whether a preview needs the expensive vision tier and
// persists the analysis outcome.
type Resolver struct {
	store    *records.Store
	extract  *Extractor
	analyzer vision.Analyzer
	cfg      *config.Config
	logger   *slog.Logger
}

// NewResolver constructs the escalation controller.
func NewResolver(store *records.Store, extract *Extractor, analyzer vision.Analyzer, cfg *config.Config, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:    store,
		extract:  extract,
		analyzer: analyzer,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "identify"),
	}
}

func (r *Resolver) threshold() float64 {
	if r.cfg != nil && r.cfg.Analysis.ConfidenceThreshold > 0 {
		return r.cfg.Analysis.ConfidenceThreshold
	}
	return HighConfidenceThresholdDefault
}

// Resolve analyzes an uploaded preview and advances it to the analyzed state.
// A record already past upload is returned unchanged; reprocessing an
// analyzed record would pay for analysis again for no new information.
func (r *Resolver) Resolve(ctx context.Context, rec *records.PreviewRecord) (*records.PreviewRecord, error) {
	if rec.State.AtLeast(records.StateAIAnalyzed) {
		return rec, nil
	}
	logger := logging.WithContext(ctx, r.logger).With(
		logging.String(logging.FieldPreviewID, rec.PreviewID))

	extraction := r.extract.Extract(ctx, rec.CanonicalImagePath)
	fields := extraction.Fields
	score := Score(fields)

	rec.OCRText = extraction.OCRText
	rec.AnalysisModel = ModelHeuristic
	rec.EstimatedCost = r.cfg.Analysis.HeuristicCostCents
	rec.AnalysisError = ""

	if score < r.threshold() {
		logger.Info("confidence below threshold, escalating to vision tier",
			logging.Float64("score", score),
			logging.Float64("threshold", r.threshold()))
		analysis, err := r.analyzeWithTimeout(ctx, rec.CanonicalImagePath, extraction)
		if err != nil {
			// Partial metadata beats a hard failure: keep the heuristic
			// result and record why escalation produced nothing.
			logger.Warn("vision analysis failed, keeping heuristic result",
				logging.Error(err))
			rec.AnalysisError = err.Error()
		} else {
			fields.Override(visionFields(analysis))
			score = Score(fields)
			rec.AnalysisModel = r.visionModelName()
			rec.EstimatedCost = r.cfg.Analysis.VisionCostCents
			rec.RawAnalysis = analysis.Raw
		}
	}

	rec.Fields = fields
	rec.Confidence = score

	if err := r.store.Advance(ctx, rec, records.StateAIAnalyzed); err != nil {
		return nil, err
	}
	logger.Info("analysis complete",
		logging.String("model", rec.AnalysisModel),
		logging.Float64("confidence", rec.Confidence),
		logging.Int("estimated_cost_cents", rec.EstimatedCost))
	return rec, nil
}

func (r *Resolver) analyzeWithTimeout(ctx context.Context, imagePath string, extraction Extraction) (*vision.Analysis, error) {
	if r.analyzer == nil {
		return nil, errors.New("vision service not configured")
	}
	timeout := 30 * time.Second
	if r.cfg != nil && r.cfg.Vision.TimeoutSeconds > 0 {
		timeout = time.Duration(r.cfg.Vision.TimeoutSeconds) * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return r.analyzer.AnalyzeImage(callCtx, imagePath, analysisHint(extraction))
}

func (r *Resolver) visionModelName() string {
	if r.cfg != nil && strings.TrimSpace(r.cfg.Vision.Model) != "" {
		return strings.TrimSpace(r.cfg.Vision.Model)
	}
	return "vision"
}

// analysisHint gives the vision service whatever the heuristic pass already
// read, which improves disambiguation on partially legible sleeves.
func analysisHint(extraction Extraction) string {
	parts := make([]string, 0, 3)
	if extraction.Fields.Artist != "" {
		parts = append(parts, extraction.Fields.Artist)
	}
	if extraction.Fields.Album != "" {
		parts = append(parts, extraction.Fields.Album)
	}
	if len(parts) == 0 {
		lines := splitNonEmptyLines(extraction.OCRText)
		if len(lines) > 0 {
			parts = append(parts, lines[0])
		}
	}
	return strings.Join(parts, " ")
}

func visionFields(analysis *vision.Analysis) records.Fields {
	return records.Fields{
		Artist:        analysis.Artist,
		Album:         analysis.Album,
		Title:         analysis.Title,
		Label:         analysis.Label,
		Year:          analysis.Year,
		CatalogNumber: analysis.CatalogNumber,
		Country:       analysis.Country,
		Format:        analysis.Format,
	}
}
