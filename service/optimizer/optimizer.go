package optimizer

import (
	"context"

	"github.com/viant/recompiler/model/job"
)

// Service optimizes a job. On success it sets job.Code; a returned error is a
// recoverable, per-job failure.
type Service interface {
	Optimize(ctx context.Context, aJob *job.Job) error
}

// Func adapts a plain function to Service.
type Func func(ctx context.Context, aJob *job.Job) error

// Optimize calls f.
func (f Func) Optimize(ctx context.Context, aJob *job.Job) error {
	return f(ctx, aJob)
}
