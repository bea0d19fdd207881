// Package pipeline wires the lifecycle stages into the dispatch engine. Each
// stage owns exactly one state transition; the engine guards their input
// contracts uniformly.
package pipeline

import (
	"context"

	"waxcrate/internal/archive"
	"waxcrate/internal/enrich"
	"waxcrate/internal/identify"
	"waxcrate/internal/records"
	"waxcrate/internal/stage"
	"waxcrate/internal/stageexec"
)

// Stage names registered at process start.
const (
	StageAnalyze = "analyze"
	StageReview  = "review"
	StageEnrich  = "enrich"
	StageArchive = "archive"
)

// Deps carries the stage implementations the pipeline dispatches to.
type Deps struct {
	Store     *records.Store
	Resolver  *identify.Resolver
	Enricher  *enrich.Enricher
	Committer *archive.Committer
}

// NewRegistry registers every pipeline stage. Registration failure is a
// wiring bug and should abort startup.
func NewRegistry(deps Deps) (*stageexec.Registry, error) {
	registry := stageexec.NewRegistry()
	handlers := []stage.Handler{
		&analyzeStage{resolver: deps.Resolver},
		&reviewStage{store: deps.Store},
		&enrichStage{enricher: deps.Enricher},
		&archiveStage{committer: deps.Committer},
	}
	for _, handler := range handlers {
		if err := registry.Register(handler); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

type analyzeStage struct {
	resolver *identify.Resolver
}

func (s *analyzeStage) Name() string { return StageAnalyze }

func (s *analyzeStage) RequiredKeys() []string { return []string{stage.KeyPreview} }

func (s *analyzeStage) Execute(ctx context.Context, sc *stage.Context) error {
	rec, _ := sc.Preview()
	updated, err := s.resolver.Resolve(ctx, rec)
	if err != nil {
		return err
	}
	sc.Set(stage.KeyResult, updated)
	return nil
}

func (s *analyzeStage) HealthCheck(ctx context.Context) stage.Health {
	if s.resolver == nil {
		return stage.Unhealthy(StageAnalyze, "resolver not configured")
	}
	return stage.Healthy(StageAnalyze)
}

type reviewStage struct {
	store *records.Store
}

func (s *reviewStage) Name() string { return StageReview }

func (s *reviewStage) RequiredKeys() []string {
	return []string{stage.KeyPreview, stage.KeyCorrections}
}

func (s *reviewStage) Execute(ctx context.Context, sc *stage.Context) error {
	rec, _ := sc.Preview()
	corrections, _ := sc.Fields(stage.KeyCorrections)
	if rec.State.AtLeast(records.StateUserReviewed) {
		sc.Set(stage.KeyResult, rec)
		return nil
	}
	if err := s.store.MarkReviewed(ctx, rec, corrections); err != nil {
		return err
	}
	sc.Set(stage.KeyResult, rec)
	return nil
}

func (s *reviewStage) HealthCheck(ctx context.Context) stage.Health {
	if s.store == nil {
		return stage.Unhealthy(StageReview, "record store not configured")
	}
	return stage.Healthy(StageReview)
}

type enrichStage struct {
	enricher *enrich.Enricher
}

func (s *enrichStage) Name() string { return StageEnrich }

func (s *enrichStage) RequiredKeys() []string { return []string{stage.KeyPreview} }

func (s *enrichStage) Execute(ctx context.Context, sc *stage.Context) error {
	rec, _ := sc.Preview()
	updated, err := s.enricher.Enrich(ctx, rec, sc.Bool(stage.KeyForceExpensive))
	if err != nil {
		return err
	}
	sc.Set(stage.KeyResult, updated)
	return nil
}

func (s *enrichStage) HealthCheck(ctx context.Context) stage.Health {
	if s.enricher == nil {
		return stage.Unhealthy(StageEnrich, "enricher not configured")
	}
	return stage.Healthy(StageEnrich)
}

type archiveStage struct {
	committer *archive.Committer
}

func (s *archiveStage) Name() string { return StageArchive }

// The archive stage keys on the preview id rather than a loaded record so a
// retried commit still resolves through the tombstone after the preview row
// is gone.
func (s *archiveStage) RequiredKeys() []string {
	return []string{stage.KeyPreviewID, stage.KeyOwnerID}
}

func (s *archiveStage) Execute(ctx context.Context, sc *stage.Context) error {
	owner, _ := sc.OwnerID()
	result, err := s.committer.Commit(ctx, sc.String(stage.KeyPreviewID), owner)
	if err != nil {
		return err
	}
	sc.Set(stage.KeyResult, result)
	return nil
}

func (s *archiveStage) HealthCheck(ctx context.Context) stage.Health {
	if s.committer == nil {
		return stage.Unhealthy(StageArchive, "committer not configured")
	}
	return stage.Healthy(StageArchive)
}
