// Package passthrough implements a trivial optimizing tier: it normalises the
// function source and emits it as optimized code. It is used by the demo and
// by tests that need a real optimizer rather than a fake.
package passthrough

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/viant/recompiler/internal/clock"
	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/model/target"
	"github.com/viant/recompiler/service/optimizer"
)

// ErrEmptySource is returned for functions without a body.
var ErrEmptySource = errors.New("passthrough: empty source")

type service struct{}

// Optimize emits the whitespace-normalised source as the next code version.
func (s *service) Optimize(ctx context.Context, aJob *job.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn := aJob.Target
	body := strings.Join(strings.Fields(fn.Source), " ")
	if body == "" {
		return fmt.Errorf("%w: %s", ErrEmptySource, fn.Name)
	}
	version := 1
	if active := fn.Code(); active != nil {
		version = active.Version + 1
	}
	aJob.Code = &target.Code{
		Tier:       target.TierOptimized,
		Version:    version,
		Body:       body,
		CompiledAt: clock.Now(),
	}
	return nil
}

// New creates a passthrough optimizer.
func New() optimizer.Service {
	return &service{}
}
