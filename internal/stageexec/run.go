// Package stageexec dispatches named pipeline stages. The engine holds no
// business state: it is a registration table plus a uniform contract check
// applied identically to every stage before its body runs.
package stageexec

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"waxcrate/internal/logging"
	"waxcrate/internal/services"
	"waxcrate/internal/stage"
)

// Registry maps stage names to handlers. Stages register at process start;
// dispatching an unregistered name is a configuration error, not a data
// error.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]stage.Handler
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]stage.Handler)}
}

// Register adds a handler under its own name. Duplicate names and empty
// names are rejected so wiring mistakes surface at startup.
func (r *Registry) Register(handler stage.Handler) error {
	if handler == nil {
		return services.Wrap(services.ErrConfiguration, "stageexec", "register", "nil stage handler", nil)
	}
	name := strings.TrimSpace(handler.Name())
	if name == "" {
		return services.Wrap(services.ErrConfiguration, "stageexec", "register", "stage handler has no name", nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return services.Wrap(services.ErrConfiguration, "stageexec", "register",
			fmt.Sprintf("stage %q registered twice", name), nil)
	}
	r.handlers[name] = handler
	return nil
}

// Handler resolves a stage by name.
func (r *Registry) Handler(name string) (stage.Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[name]
	if !ok {
		return nil, services.Wrap(services.ErrConfiguration, "stageexec", "dispatch",
			fmt.Sprintf("no stage registered under %q", name), nil)
	}
	return handler, nil
}

// Names returns the registered stage names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Health collects the readiness of every registered stage.
func (r *Registry) Health(ctx context.Context) []stage.Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	health := make([]stage.Health, 0, len(names))
	for _, name := range names {
		health = append(health, r.handlers[name].HealthCheck(ctx))
	}
	return health
}

// Options controls a single stage dispatch.
type Options struct {
	Logger    *slog.Logger
	Registry  *Registry
	StageName string
	Context   *stage.Context
}

// Run resolves and executes a named stage. Before the stage body runs, every
// key the stage declared is checked against the context; a missing key fails
// fast with an error naming it, identically for every stage.
func Run(ctx context.Context, opts Options) error {
	if opts.Registry == nil {
		return services.Wrap(services.ErrConfiguration, "stageexec", "run", "stage registry is required", nil)
	}
	if opts.Context == nil {
		return services.Wrap(services.ErrConfiguration, "stageexec", "run", "stage context is required", nil)
	}
	handler, err := opts.Registry.Handler(opts.StageName)
	if err != nil {
		return err
	}

	if missing := missingKeys(handler, opts.Context); len(missing) > 0 {
		return services.Wrap(services.ErrValidation, "stageexec", "run",
			fmt.Sprintf("stage %q missing required context keys: %s",
				opts.StageName, strings.Join(missing, ", ")), nil)
	}

	stageCtx := logging.WithStage(ctx, opts.StageName)
	stageLogger := logging.WithContext(stageCtx, opts.Logger)

	stageLogger.Info("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String("context_keys", strings.Join(opts.Context.Keys(), ",")))

	if err := handler.Execute(stageCtx, opts.Context); err != nil {
		message := strings.TrimSpace(services.Details(err).Message)
		if message == "" {
			message = strings.TrimSpace(err.Error())
		}
		stageLogger.Error("stage failed",
			logging.String(logging.FieldEventType, "stage_failure"),
			logging.String("error_message", message),
			logging.Error(err))
		return err
	}

	stageLogger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"))
	return nil
}

func missingKeys(handler stage.Handler, sc *stage.Context) []string {
	var missing []string
	for _, key := range handler.RequiredKeys() {
		if !sc.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}
