package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mwhitford/storyloom/internal/airtable"
	"github.com/mwhitford/storyloom/internal/config"
	"github.com/mwhitford/storyloom/internal/database"
	"github.com/mwhitford/storyloom/internal/derive"
	"github.com/mwhitford/storyloom/internal/normalize"
)

// leaseTTL bounds how long a crashed run can block the next one.
const leaseTTL = 15 * time.Minute

// RecordSource lists every record of a table view.
type RecordSource interface {
	ListAll(ctx context.Context, table, view string) ([]airtable.Record, error)
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full sync run.
type Result struct {
	RunID string
	Steps []StepResult
}

// Failed reports whether any step errored.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline orchestrates the 4-step sync: fetch, normalize, derive, commit.
type Pipeline struct {
	cfg    *config.Config
	db     *database.DB
	source RecordSource
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB, source RecordSource) *Pipeline {
	return &Pipeline{cfg: cfg, db: db, source: source}
}

// Run executes a full sync under the advisory lease. The database is only
// touched in the final commit step, so a failed run leaves the prior sync
// intact.
func (p *Pipeline) Run(ctx context.Context) *Result {
	runID := uuid.New().String()
	r := &Result{RunID: runID}

	if err := p.db.AcquireLease(runID, leaseTTL); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Lease", Err: err})
		return r
	}
	defer func() {
		if err := p.db.ReleaseLease(runID); err != nil {
			log.Printf("Warning: failed to release sync lease: %v", err)
		}
	}()

	startedAt := time.Now().UTC().Format("2006-01-02 15:04:05")

	// Step 1: Fetch
	records, step := p.runFetch(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	// Step 2: Normalize
	storytellers, warnings, step := p.runNormalize(records)
	r.Steps = append(r.Steps, step)

	// Step 3: Derive
	cols, step := p.runDerive(storytellers)
	r.Steps = append(r.Steps, step)

	// Step 4: Commit
	run := database.SyncRun{
		ID:           runID,
		StartedAt:    startedAt,
		RecordCount:  len(storytellers),
		WarningCount: warnings,
	}
	step = p.runCommit(run, storytellers, cols)
	r.Steps = append(r.Steps, step)

	return r
}

// DryRun fetches and normalizes without writing anything.
func (p *Pipeline) DryRun(ctx context.Context) *Result {
	r := &Result{RunID: "dry-run"}

	records, step := p.runFetch(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	storytellers, _, step := p.runNormalize(records)
	r.Steps = append(r.Steps, step)

	cols, step := p.runDerive(storytellers)
	r.Steps = append(r.Steps, step)

	current, err := p.db.CountStorytellers()
	if err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Commit", Err: err})
		return r
	}
	r.Steps = append(r.Steps, StepResult{
		Name: "Commit",
		Summary: fmt.Sprintf("[dry-run] Would upsert %d storytellers (%d currently stored), %d themes",
			len(storytellers), current, len(cols.Themes)),
	})
	return r
}

func (p *Pipeline) runFetch(ctx context.Context) ([]airtable.Record, StepResult) {
	log.Println("Step 1/4: Fetching records...")
	records, err := p.source.ListAll(ctx, p.cfg.Airtable.Table, p.cfg.Airtable.View)
	if err != nil {
		return nil, StepResult{Name: "Fetch", Err: err}
	}
	return records, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d records from %s/%s", len(records), p.cfg.Airtable.Table, p.cfg.Airtable.View),
	}
}

func (p *Pipeline) runNormalize(records []airtable.Record) ([]normalize.Storyteller, int, StepResult) {
	log.Println("Step 2/4: Normalizing records...")
	n := normalize.New(p.cfg.Gallery.Dir, p.cfg.Gallery.PathPrefix)

	storytellers := make([]normalize.Storyteller, 0, len(records))
	warningCount := 0
	for _, rec := range records {
		s, warnings := n.Normalize(rec)
		for _, w := range warnings {
			log.Printf("Warning: record %s: %s", rec.ID, w)
		}
		warningCount += len(warnings)
		storytellers = append(storytellers, s)
	}

	return storytellers, warningCount, StepResult{
		Name:    "Normalize",
		Summary: fmt.Sprintf("Normalized %d storytellers, %d warnings", len(storytellers), warningCount),
	}
}

func (p *Pipeline) runDerive(storytellers []normalize.Storyteller) (derive.Collections, StepResult) {
	log.Println("Step 3/4: Deriving collections...")
	cols := derive.Build(storytellers, time.Now().UTC())
	return cols, StepResult{
		Name: "Derive",
		Summary: fmt.Sprintf("%d projects, %d locations, %d themes",
			len(cols.Projects), len(cols.Locations), len(cols.Themes)),
	}
}

func (p *Pipeline) runCommit(run database.SyncRun, storytellers []normalize.Storyteller, cols derive.Collections) StepResult {
	log.Println("Step 4/4: Committing sync...")
	if err := p.db.CommitSync(run, storytellers, cols); err != nil {
		return StepResult{Name: "Commit", Err: err}
	}
	return StepResult{
		Name:    "Commit",
		Summary: fmt.Sprintf("Stored %d storytellers", len(storytellers)),
	}
}
