package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"waxcrate/internal/config"
	"waxcrate/internal/logging"
	"waxcrate/internal/pipeline"
	"waxcrate/internal/records"
	"waxcrate/internal/services"
	"waxcrate/internal/stage"
	"waxcrate/internal/stageexec"
)

// Manager drives uploaded previews through the analysis stage in the
// background. Review, enrichment, and archiving are caller-triggered through
// the API; analysis is the only stage that runs unprompted.
type Manager struct {
	cfg          *config.Config
	store        *records.Store
	registry     *stageexec.Registry
	logger       *slog.Logger
	pollInterval time.Duration

	heartbeat *HeartbeatMonitor

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, store *records.Store, registry *stageexec.Registry, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:          cfg,
		store:        store,
		registry:     registry,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		pollInterval: secondsOrDefault(cfg.Workflow.PollInterval, 2*time.Second),
		heartbeat: NewHeartbeatMonitor(
			store,
			logger,
			secondsOrDefault(cfg.Workflow.HeartbeatInterval, 10*time.Second),
			secondsOrDefault(cfg.Workflow.HeartbeatTimeout, 120*time.Second),
		),
	}
}

func secondsOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}

// Start launches the poll and maintenance loops. Starting a running manager
// is a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(2)
	go m.pollLoop(runCtx)
	go m.maintenanceLoop(runCtx)

	m.logger.Info("workflow manager started",
		logging.Duration("poll_interval", m.pollInterval))
	return nil
}

// Stop cancels the loops and waits for them to drain.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
	m.logger.Info("workflow manager stopped")
}

// Running reports whether the loops are active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastError returns the most recent stage failure, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) pollLoop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain everything claimable before sleeping again.
			for {
				processed, err := m.processNext(ctx)
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					m.setLastError(err)
					break
				}
				if !processed {
					break
				}
			}
		}
	}
}

// processNext claims the oldest ready preview and runs analysis on it. It
// reports whether any work was found.
func (m *Manager) processNext(ctx context.Context) (bool, error) {
	cutoff := time.Now().UTC().Add(-m.heartbeat.timeout)
	rec, err := m.store.NextReady(ctx, cutoff, records.StateUploaded)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	// Claim by stamping a heartbeat so a second poll pass skips the record.
	if err := m.store.UpdateHeartbeat(ctx, rec.PreviewID); err != nil {
		return false, err
	}

	workCtx := services.WithPreviewID(ctx, rec.PreviewID)
	workCtx = services.WithOwnerID(workCtx, rec.OwnerID)

	heartbeatCtx, stopHeartbeat := context.WithCancel(workCtx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.heartbeat.StartLoop(heartbeatCtx, &hbWG, rec.PreviewID)

	sc := stage.NewContext()
	sc.Set(stage.KeyPreview, rec)
	sc.Set(stage.KeyOwnerID, rec.OwnerID)
	runErr := stageexec.Run(workCtx, stageexec.Options{
		Logger:    m.logger,
		Registry:  m.registry,
		StageName: pipeline.StageAnalyze,
		Context:   sc,
	})

	stopHeartbeat()
	hbWG.Wait()

	if runErr != nil {
		m.recordFailure(workCtx, rec, runErr)
		return true, nil
	}
	return true, nil
}

// recordFailure persists the failure reason on the preview. The fresh
// heartbeat acts as a retry delay: the preview becomes claimable again once
// the heartbeat goes stale.
func (m *Manager) recordFailure(ctx context.Context, rec *records.PreviewRecord, stageErr error) {
	logger := logging.WithContext(ctx, m.logger)
	now := time.Now().UTC()
	rec.ErrorMessage = stageErr.Error()
	rec.LastHeartbeat = &now
	if err := m.store.Update(ctx, rec); err != nil {
		logger.Error("failed to persist stage failure", logging.Error(err))
	}
	m.setLastError(stageErr)
}

func (m *Manager) maintenanceLoop(ctx context.Context) {
	defer m.wg.Done()
	interval := secondsOrDefault(m.cfg.Workflow.MaintenanceInterval, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runMaintenance(ctx)
		}
	}
}

func (m *Manager) runMaintenance(ctx context.Context) {
	logger := m.logger.With(logging.String(logging.FieldComponent, "workflow-maintenance"))

	if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("stale heartbeat reclamation failed", logging.Error(err))
	}

	retentionDays := m.cfg.Archive.TombstoneRetentionDays
	if retentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
		pruned, err := m.store.PruneTombstones(ctx, cutoff)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("tombstone pruning failed", logging.Error(err))
		} else if pruned > 0 {
			logger.Info("pruned expired tombstones", logging.Int64("count", pruned))
		}
	}
}

// Health reports the readiness of the store and every registered stage.
func (m *Manager) Health(ctx context.Context) ([]stage.Health, records.HealthSummary, error) {
	summary, err := m.store.Health(ctx)
	if err != nil {
		return nil, records.HealthSummary{}, err
	}
	return m.registry.Health(ctx), summary, nil
}
