// Package artifact defines the persisted record of code installed on a
// function, used as a code cache across runs.
package artifact

import (
	"time"

	"github.com/viant/recompiler/model/target"
)

// Artifact is keyed by function name; a newer install overwrites it.
type Artifact struct {
	Function    string       `json:"function"`
	JobID       string       `json:"jobID"`
	Code        *target.Code `json:"code"`
	InstalledAt time.Time    `json:"installedAt"`
}
