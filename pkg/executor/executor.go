package executor

import (
	"context"
	"fmt"
	"time"

	"maestro/pkg/decision"
	"maestro/pkg/logx"
	"maestro/pkg/proto"
)

// Request is the fully adapted call into the generation pipeline. Params is
// the typed per-mode struct produced by the adapter.
type Request struct {
	Mode   proto.ExecutionMode
	Params any
}

// Result is whatever the generation pipeline returned.
type Result struct {
	Mode     proto.ExecutionMode
	Output   string
	Duration time.Duration
}

// Generator is the external generation pipeline boundary. Everything behind
// it is out of scope here.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Executor adapts decisions and dispatches them to the generator.
type Executor struct {
	gen    Generator
	logger *logx.Logger
}

// New creates an executor over the given generator.
func New(gen Generator) *Executor {
	return &Executor{gen: gen, logger: logx.NewLogger("executor")}
}

// Execute adapts the decision's parameters and calls the generator. A
// structurally incomplete decision fails before any call is made.
func (e *Executor) Execute(ctx context.Context, d *decision.Decision) (*Result, error) {
	params, err := adaptParams(d)
	if err != nil {
		e.logger.Warn("cannot execute %s decision %s: %v", d.Mode, d.ID, err)
		return nil, err
	}

	start := time.Now()
	output, err := e.gen.Generate(ctx, Request{Mode: d.Mode, Params: params})
	if err != nil {
		return nil, fmt.Errorf("generation failed for mode %s: %w", d.Mode, err)
	}

	result := &Result{Mode: d.Mode, Output: output, Duration: time.Since(start)}
	e.logger.Info("executed mode=%s decision=%s in %s", d.Mode, d.ID, result.Duration)
	return result, nil
}
