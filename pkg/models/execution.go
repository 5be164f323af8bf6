package models

import (
	"fmt"
	"strconv"
	"time"
)

// ExecutionStatus represents the lifecycle state of a flow run.
type ExecutionStatus string

const (
	ExecutionStatusRunning ExecutionStatus = "running"
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
)

// ExecutionContext is the mutable key/value data shared by all jobs of one
// execution. Values are constrained to what JSON round-trips: strings,
// numbers, booleans, nil and nested maps/slices of those.
type ExecutionContext map[string]any

// Lookup resolves a dotted path ("contact.name") against the context.
// The boolean result reports whether the full path resolved.
func (c ExecutionContext) Lookup(path string) (any, bool) {
	var current any = map[string]any(c)

	start := 0

	for i := 0; i <= len(path); i++ {
		if i != len(path) && path[i] != '.' {
			continue
		}

		key := path[start:i]
		start = i + 1

		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// StringValue renders a context value the way it appears inside an
// interpolated message.
func StringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Execution is one run of a flow. Its status transitions
// running -> {success|failed} exactly once; a failed execution is never
// re-read by the poller, which is what makes retry exhaustion terminal for
// the whole run.
type Execution struct {
	ID           string           `json:"id"`
	OwnerID      string           `json:"owner_id" validate:"required"`
	FlowID       string           `json:"flow_id"  validate:"required"`
	Status       ExecutionStatus  `json:"status"`
	Context      ExecutionContext `json:"context"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}
