package assist

import (
	"context"
	"time"
)

// ExecutionState is the lifecycle state of one submitted action.
type ExecutionState string

const (
	// ExecutionRunning means Run has been called and has not returned.
	ExecutionRunning ExecutionState = "running"
	// ExecutionComplete means Run returned a result.
	ExecutionComplete ExecutionState = "complete"
	// ExecutionError means Run failed, timed out or panicked.
	ExecutionError ExecutionState = "error"
	// ExecutionCancelled means the execution's context was cancelled.
	ExecutionCancelled ExecutionState = "cancelled"
)

// execution is the dispatcher's private record of one submitted action.
type execution struct {
	id          string
	actionID    string
	displayName string
	async       bool

	state     ExecutionState
	startTime time.Time
	endTime   time.Time
	output    string
	err       error

	cancel context.CancelFunc
}

func newExecution(id string, action Action, async bool, now time.Time) *execution {
	return &execution{
		id:          id,
		actionID:    action.ID(),
		displayName: action.DisplayName(),
		async:       async,
		state:       ExecutionRunning,
		startTime:   now,
	}
}

// isTerminal reports whether the execution has finished.
func (e *execution) isTerminal() bool {
	return e.state == ExecutionComplete || e.state == ExecutionError || e.state == ExecutionCancelled
}

func (e *execution) complete(output string, now time.Time) {
	e.state = ExecutionComplete
	e.output = output
	e.endTime = now
}

// fail records err, classifying cancellation separately from other failures.
func (e *execution) fail(err error, now time.Time) {
	e.state = ExecutionError
	if HasCode(err, ErrCodeCancelled) {
		e.state = ExecutionCancelled
	}
	e.err = err
	e.endTime = now
}

func (e *execution) duration(now time.Time) time.Duration {
	if e.isTerminal() {
		return e.endTime.Sub(e.startTime)
	}
	return now.Sub(e.startTime)
}

// ExecutionStatus is a snapshot of one execution.
type ExecutionStatus struct {
	ExecutionID  string         `json:"execution_id" yaml:"execution_id"`
	ActionID     string         `json:"action_id" yaml:"action_id"`
	DisplayName  string         `json:"display_name" yaml:"display_name"`
	Async        bool           `json:"async" yaml:"async"`
	State        ExecutionState `json:"state" yaml:"state"`
	StartTime    time.Time      `json:"start_time" yaml:"start_time"`
	Duration     time.Duration  `json:"duration" yaml:"duration"`
	IsComplete   bool           `json:"is_complete" yaml:"is_complete"`
	HasError     bool           `json:"has_error" yaml:"has_error"`
	Output       string         `json:"output,omitempty" yaml:"output,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty" yaml:"error_code,omitempty"`

	// Err is the full error chain, kept for diagnostics.
	Err error `json:"-" yaml:"-"`
}

func (e *execution) status(now time.Time) ExecutionStatus {
	s := ExecutionStatus{
		ExecutionID: e.id,
		ActionID:    e.actionID,
		DisplayName: e.displayName,
		Async:       e.async,
		State:       e.state,
		StartTime:   e.startTime,
		Duration:    e.duration(now),
		IsComplete:  e.state == ExecutionComplete,
		HasError:    e.state == ExecutionError || e.state == ExecutionCancelled,
		Output:      e.output,
		Err:         e.err,
	}
	if e.err != nil {
		s.ErrorMessage = UserMessage(e.err)
		if ae, ok := AsError(e.err); ok {
			s.ErrorCode = ae.Code
		}
	}
	return s
}
