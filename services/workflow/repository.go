package workflow

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles workflow, version and run persistence in PostgreSQL.
// It implements Recorder with one write per state transition; node results
// are upserted row-by-row so large graphs never rewrite the whole result map.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// InitSchema creates the tables if they do not exist.
func (r *Repository) InitSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS workflows (
			id         UUID PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			nodes      JSONB NOT NULL DEFAULT '[]',
			edges      JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS workflow_versions (
			id          UUID PRIMARY KEY,
			workflow_id UUID NOT NULL REFERENCES workflows(id),
			graph       JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS runs (
			id          UUID PRIMARY KEY,
			workflow_id UUID NOT NULL,
			version_id  UUID NOT NULL,
			status      TEXT NOT NULL,
			graph       JSONB NOT NULL DEFAULT '{}',
			started_at  TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS run_node_results (
			run_id            UUID NOT NULL REFERENCES runs(id),
			node_id           TEXT NOT NULL,
			status            TEXT NOT NULL,
			input             JSONB,
			output            JSONB,
			error             TEXT NOT NULL DEFAULT '',
			started_at        TIMESTAMPTZ NOT NULL,
			finished_at       TIMESTAMPTZ,
			execution_time_ms BIGINT NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, node_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID. Returns nil, nil if not found.
func (r *Repository) GetWorkflow(ctx context.Context, id string) (*Workflow, error) {
	var wf Workflow
	var nodesJSON, edgesJSON []byte

	err := r.db.QueryRow(ctx, `
		SELECT id, name, nodes, edges, created_at, updated_at
		FROM workflows WHERE id = $1
	`, id).Scan(&wf.ID, &wf.Name, &nodesJSON, &edgesJSON, &wf.CreatedAt, &wf.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}

	if err := json.Unmarshal(nodesJSON, &wf.Nodes); err != nil {
		return nil, fmt.Errorf("unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal(edgesJSON, &wf.Edges); err != nil {
		return nil, fmt.Errorf("unmarshal edges: %w", err)
	}
	return &wf, nil
}

// LatestVersion retrieves the newest version of a workflow. Returns nil, nil
// if the workflow has no versions.
func (r *Repository) LatestVersion(ctx context.Context, workflowID string) (*WorkflowVersion, error) {
	var v WorkflowVersion
	var graphJSON []byte

	err := r.db.QueryRow(ctx, `
		SELECT id, workflow_id, graph, created_at
		FROM workflow_versions
		WHERE workflow_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, workflowID).Scan(&v.ID, &v.WorkflowID, &graphJSON, &v.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest version: %w", err)
	}

	if err := json.Unmarshal(graphJSON, &v.Graph); err != nil {
		return nil, fmt.Errorf("unmarshal graph: %w", err)
	}
	return &v, nil
}

// GetRun retrieves a run with its node results. Returns nil, nil if not
// found. Pollers calling this between recorder writes see whatever has been
// committed so far; progress is monotonic because the engine is the sole
// writer and writes in processing order.
func (r *Repository) GetRun(ctx context.Context, runID string) (*Run, error) {
	var run Run
	var graphJSON []byte

	err := r.db.QueryRow(ctx, `
		SELECT id, workflow_id, version_id, status, graph, started_at, finished_at
		FROM runs WHERE id = $1
	`, runID).Scan(&run.ID, &run.WorkflowID, &run.VersionID, &run.Status, &graphJSON, &run.StartedAt, &run.FinishedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if err := json.Unmarshal(graphJSON, &run.Graph); err != nil {
		return nil, fmt.Errorf("unmarshal run graph: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT node_id, status, input, output, error, started_at, finished_at, execution_time_ms
		FROM run_node_results WHERE run_id = $1
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get node results: %w", err)
	}
	defer rows.Close()

	run.NodeResults = make(map[string]*NodeResult)
	for rows.Next() {
		var nr NodeResult
		var inputJSON, outputJSON []byte
		if err := rows.Scan(&nr.NodeID, &nr.Status, &inputJSON, &outputJSON, &nr.Error, &nr.StartedAt, &nr.FinishedAt, &nr.ExecutionTimeMs); err != nil {
			return nil, fmt.Errorf("scan node result: %w", err)
		}
		if len(inputJSON) > 0 {
			if err := json.Unmarshal(inputJSON, &nr.Input); err != nil {
				return nil, fmt.Errorf("unmarshal node input: %w", err)
			}
		}
		if len(outputJSON) > 0 {
			if err := json.Unmarshal(outputJSON, &nr.Output); err != nil {
				return nil, fmt.Errorf("unmarshal node output: %w", err)
			}
		}
		run.NodeResults[nr.NodeID] = &nr
	}
	return &run, rows.Err()
}

// Begin persists a freshly created run with its frozen graph snapshot.
func (r *Repository) Begin(ctx context.Context, run *Run) error {
	graphJSON, err := json.Marshal(run.Graph)
	if err != nil {
		return fmt.Errorf("marshal graph snapshot: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO runs (id, workflow_id, version_id, status, graph, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.WorkflowID, run.VersionID, run.Status, graphJSON, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// NodeStart records a node's transition to running.
func (r *Repository) NodeStart(ctx context.Context, run *Run, nodeID string, input any) error {
	nr := run.startNode(nodeID, input)
	inputJSON, err := json.Marshal(nr.Input)
	if err != nil {
		return fmt.Errorf("marshal node input: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO run_node_results (run_id, node_id, status, input, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id, node_id) DO UPDATE
		SET status = EXCLUDED.status, input = EXCLUDED.input, started_at = EXCLUDED.started_at
	`, run.ID, nodeID, nr.Status, inputJSON, nr.StartedAt)
	if err != nil {
		return fmt.Errorf("record node start: %w", err)
	}
	return nil
}

// NodeEnd records a node's completion in place (same run_id/node_id row).
func (r *Repository) NodeEnd(ctx context.Context, run *Run, nodeID string, output any, status, errMsg string) error {
	nr := run.endNode(nodeID, output, status, errMsg)
	outputJSON, err := json.Marshal(nr.Output)
	if err != nil {
		return fmt.Errorf("marshal node output: %w", err)
	}
	_, err = r.db.Exec(ctx, `
		UPDATE run_node_results
		SET status = $3, output = $4, error = $5, finished_at = $6, execution_time_ms = $7
		WHERE run_id = $1 AND node_id = $2
	`, run.ID, nodeID, nr.Status, outputJSON, nr.Error, nr.FinishedAt, nr.ExecutionTimeMs)
	if err != nil {
		return fmt.Errorf("record node end: %w", err)
	}
	return nil
}

// Finish records the run's terminal status.
func (r *Repository) Finish(ctx context.Context, run *Run, status string) error {
	run.finish(status)
	_, err := r.db.Exec(ctx, `
		UPDATE runs SET status = $2, finished_at = $3 WHERE id = $1
	`, run.ID, run.Status, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	return nil
}

// Seed inserts the sample notification workflow and its initial version if
// they do not already exist.
func (r *Repository) Seed(ctx context.Context) error {
	nodesJSON, err := json.Marshal(sampleGraph.Nodes)
	if err != nil {
		return fmt.Errorf("marshal seed nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(sampleGraph.Edges)
	if err != nil {
		return fmt.Errorf("marshal seed edges: %w", err)
	}
	graphJSON, err := json.Marshal(sampleGraph)
	if err != nil {
		return fmt.Errorf("marshal seed graph: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO workflows (id, name, nodes, edges)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, sampleWorkflowID, "Deploy Notification Workflow", nodesJSON, edgesJSON)
	if err != nil {
		return fmt.Errorf("seed workflow: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO workflow_versions (id, workflow_id, graph)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, sampleVersionID, sampleWorkflowID, graphJSON)
	if err != nil {
		return fmt.Errorf("seed version: %w", err)
	}
	return nil
}

// InitDB creates the schema and seeds initial data. Called from main on startup.
func InitDB(ctx context.Context, pool *pgxpool.Pool) error {
	repo := NewRepository(pool)
	if err := repo.InitSchema(ctx); err != nil {
		return err
	}
	return repo.Seed(ctx)
}

const (
	sampleWorkflowID = "550e8400-e29b-41d4-a716-446655440000"
	sampleVersionID  = "550e8400-e29b-41d4-a716-446655440001"
)

// sampleGraph is the seeded demo: a trigger feeding an IF whose true branch
// notifies Slack and whose false branch mails the on-call address.
var sampleGraph = Graph{
	Nodes: []Node{
		{
			ID: "start", Type: TypeStart,
			Data: NodeData{Label: "Start", Description: "Begin deploy notification workflow"},
		},
		{
			ID: "check", Type: TypeIf,
			Data: NodeData{
				Label:       "Deploy Succeeded?",
				Description: "Route on the deploy outcome",
				Parameters: map[string]any{
					"value1":    "success",
					"operation": "equal",
					"value2":    "success",
				},
			},
		},
		{
			ID: "notify-slack", Type: TypeSlack,
			Data: NodeData{
				Label: "Announce in Slack",
				Parameters: map[string]any{
					"webhookUrl": "https://hooks.slack.com/services/T000/B000/XXXX",
					"message":    "Deploy finished successfully",
				},
			},
		},
		{
			ID: "notify-mail", Type: TypeGmail,
			Data: NodeData{
				Label: "Mail On-Call",
				Parameters: map[string]any{
					"to":      "oncall@example.com",
					"subject": "Deploy failed",
					"body":    "The deploy did not complete; check the pipeline.",
				},
			},
		},
	},
	Edges: []Edge{
		{ID: "e1", Source: "start", Target: "check", Label: "Trigger"},
		{ID: "e2", Source: "check", Target: "notify-slack", SourceHandle: "output-0", Label: "Success"},
		{ID: "e3", Source: "check", Target: "notify-mail", SourceHandle: "output-1", Label: "Failure"},
	},
}
