package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"framelift/internal/domain"
)

// Runner drives multiple jobs concurrently, each on its own task. Jobs
// share nothing but the workspace registry and the ledger, both of which
// serialize access internally.
type Runner struct {
	orch  *Orchestrator
	limit int
}

func NewRunner(orch *Orchestrator, limit int) *Runner {
	if limit < 1 {
		limit = 1
	}
	return &Runner{orch: orch, limit: limit}
}

func (r *Runner) SubmitAll(ctx context.Context, jobs []*domain.Job) []domain.JobResult {
	g := new(errgroup.Group)
	g.SetLimit(r.limit)

	results := make([]domain.JobResult, len(jobs))
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			results[i] = r.orch.Submit(ctx, job)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
