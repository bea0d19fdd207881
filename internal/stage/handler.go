package stage

import (
	"context"
)

// Handler describes the contract the pipeline engine needs from each stage.
// RequiredKeys declares the context keys the stage reads; the engine checks
// them before Execute runs, so stage bodies never guard against missing
// inputs themselves.
type Handler interface {
	Name() string
	RequiredKeys() []string
	Execute(context.Context, *Context) error
	HealthCheck(context.Context) Health
}
