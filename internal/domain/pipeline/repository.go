package pipeline

import "context"

// RunRepository stores the history of send workflow runs.
type RunRepository interface {
	SaveRun(ctx context.Context, run *Run) error
	LatestRun(ctx context.Context) (*Run, error)
}
