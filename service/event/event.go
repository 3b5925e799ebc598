package event

import (
	"time"

	"github.com/viant/recompiler/internal/idgen"
)

// Event types emitted by the recompilation pipeline.
const (
	TypeCompiled  = "compiled"
	TypeFailed    = "failed"
	TypeInstalled = "installed"
)

type Context struct {
	JobID       string `json:"jobID"`
	Function    string `json:"function"`
	EventType   string `json:"eventType"`
	TimeTakenMs int    `json:"timeTakenMs"`
}

type Event[T any] struct {
	ID        string                 `json:"id"`
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		ID:        idgen.New(),
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
