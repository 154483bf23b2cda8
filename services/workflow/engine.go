package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// EngineOptions tunes run-level behavior.
type EngineOptions struct {
	// FailFast finishes the run as failed on the first node that reports a
	// failure (a failed status or error-shaped output). The default keeps
	// source behavior: node failures are recorded data and the run carries on
	// to a successful terminal status.
	FailFast bool
}

// Engine executes one workflow version start-to-finish: it derives a
// deterministic node order, routes data along conditional ports, dispatches
// each node through the registry and records every state transition.
//
// A run is strictly sequential; concurrency across runs is the caller's
// business (one worker per run), and runs share no mutable state.
type Engine struct {
	registry Registry
	defaults DefaultsProvider
	opts     EngineOptions
}

// NewEngine creates an Engine with the given executor registry.
func NewEngine(registry Registry, opts EngineOptions) *Engine {
	return &Engine{registry: registry, defaults: BuiltinDefaults(), opts: opts}
}

// Prepare normalizes the version's graph, creates the run record and
// persists it. It fails without creating a run when the graph is structurally
// empty or the initial write fails.
func (e *Engine) Prepare(ctx context.Context, version *WorkflowVersion, rec Recorder) (*Run, error) {
	graph, err := Normalize(version.Graph, e.defaults)
	if err != nil {
		return nil, fmt.Errorf("normalize graph: %w", err)
	}

	run := NewRun(uuid.New().String(), version.WorkflowID, version.ID, graph)
	if err := rec.Begin(ctx, run); err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// Process walks the prepared run to a terminal status. Node-level failures
// are captured as result data; only engine-level failures (a write the
// recorder refuses) flip the run to failed and stop processing.
func (e *Engine) Process(ctx context.Context, run *Run, rec Recorder) {
	order := Order(run.Graph.Nodes, run.Graph.Edges)
	ctx = WithWorkflowID(ctx, run.WorkflowID)

	for _, node := range order {
		input := ResolveInput(node, run.NodeResults, run.Graph.Edges)

		if err := rec.NodeStart(ctx, run, node.ID, input); err != nil {
			e.abort(ctx, rec, run, node.ID, err)
			return
		}
		slog.Debug("Executing node", "run", run.ID, "node", node.ID, "type", node.Type)

		output, execErr := e.executeNode(ctx, node, input)

		status := StatusSuccess
		errMsg := ""
		if execErr != nil {
			status = StatusFailed
			errMsg = execErr.Error()
			if output == nil {
				output = map[string]any{"error": errMsg, "success": false}
			}
			slog.Warn("Node execution failed", "run", run.ID, "node", node.ID, "error", execErr)
		}

		if err := rec.NodeEnd(ctx, run, node.ID, output, status, errMsg); err != nil {
			e.abort(ctx, rec, run, node.ID, err)
			return
		}

		if e.opts.FailFast && nodeFailed(status, output) {
			slog.Info("Stopping run on node failure", "run", run.ID, "node", node.ID)
			if err := rec.Finish(ctx, run, StatusFailed); err != nil {
				slog.Error("Failed to finish run", "run", run.ID, "error", err)
			}
			return
		}
	}

	if err := rec.Finish(ctx, run, StatusSuccess); err != nil {
		slog.Error("Failed to finish run", "run", run.ID, "error", err)
	}
}

// Execute runs a version synchronously: Prepare then Process.
func (e *Engine) Execute(ctx context.Context, version *WorkflowVersion, rec Recorder) (*Run, error) {
	run, err := e.Prepare(ctx, version, rec)
	if err != nil {
		return nil, err
	}
	e.Process(ctx, run, rec)
	return run, nil
}

// executeNode dispatches to the node's executor, converting a panic into
// error-shaped output. Executors must never take the engine down.
func (e *Engine) executeNode(ctx context.Context, node Node, input any) (output map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = map[string]any{"error": fmt.Sprintf("executor panic: %v", r), "success": false}
			err = nil
		}
	}()
	return e.registry.Lookup(node.Type).Execute(ctx, node, input)
}

// abort handles an engine-level failure: the run flips to failed and no
// further nodes are processed.
func (e *Engine) abort(ctx context.Context, rec Recorder, run *Run, nodeID string, cause error) {
	slog.Error("Run aborted", "run", run.ID, "node", nodeID, "error", cause)
	if err := rec.Finish(ctx, run, StatusFailed); err != nil {
		slog.Error("Failed to record run abort", "run", run.ID, "error", err)
	}
}

// nodeFailed reports whether a completed node counts as failed for the
// fail-fast policy: a failed status, or output that carries an error.
func nodeFailed(status string, output map[string]any) bool {
	if status == StatusFailed {
		return true
	}
	if output == nil {
		return false
	}
	if _, hasErr := output["error"]; hasErr {
		return true
	}
	if ok, isBool := output["success"].(bool); isBool && !ok {
		return true
	}
	return false
}
