// Package memory provides the in-memory job registry used to look up jobs by
// id and list them by state.
package memory

import (
	"github.com/viant/recompiler/model/job"
	"github.com/viant/recompiler/service/dao"
	"github.com/viant/recompiler/service/dao/criteria"
	"github.com/viant/recompiler/service/dao/store"
)

// Service stores job pointers, so state changes made by the coordinator are
// visible to readers without re-saving.
type Service = store.MemoryStore[string, job.Job]

// New creates a job registry.
func New() *Service {
	return store.NewMemoryStore[string, job.Job](func(j *job.Job) string { return j.ID }).
		WithMatcher(func(j *job.Job, parameters []*dao.Parameter) bool {
			return criteria.FilterByState(j.State().String(), parameters)
		})
}

var _ dao.Service[string, job.Job] = (*Service)(nil)
