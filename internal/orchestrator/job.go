package orchestrator

import (
	"time"

	"github.com/user/dbbuddy/internal/types"
)

type operation string

const (
	opSearch    operation = "search"
	opSummarize operation = "summarize"
	opFetch     operation = "fetch"
)

// job is one backend call within a retrieval.
type job struct {
	client  types.Client
	op      operation
	items   []string
	result  types.Result
	started time.Time
}
