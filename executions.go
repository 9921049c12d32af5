package assist

import (
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/dragonscale-assist/internal/eventbus"
)

// track registers exec. Callers hold d.mu.
func (d *Dispatcher) track(exec *execution) {
	d.executions[exec.id] = exec
	d.order = append(d.order, exec.id)
}

// trim drops the oldest finished executions beyond HistoryLimit. Callers hold d.mu.
func (d *Dispatcher) trim() {
	excess := len(d.order) - d.config.HistoryLimit
	if excess <= 0 {
		return
	}
	kept := d.order[:0]
	for _, id := range d.order {
		if excess > 0 && d.executions[id].isTerminal() {
			delete(d.executions, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	d.order = kept
}

// Execution returns the status of the execution with the given ID.
func (d *Dispatcher) Execution(executionID string) (ExecutionStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exec, exists := d.executions[executionID]
	if !exists {
		return ExecutionStatus{}, NewValidationError("dispatcher", fmt.Sprintf("execution with ID '%s' not found", executionID), nil)
	}
	return exec.status(d.now()), nil
}

// ListExecutions returns the known executions, oldest first.
func (d *Dispatcher) ListExecutions() []ExecutionStatus {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	out := make([]ExecutionStatus, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.executions[id].status(now))
	}
	return out
}

// CancelExecution cancels a running execution. It returns false if the
// execution has already finished.
func (d *Dispatcher) CancelExecution(executionID string) (bool, error) {
	d.mu.Lock()
	exec, exists := d.executions[executionID]
	if !exists {
		d.mu.Unlock()
		return false, NewValidationError("dispatcher", fmt.Sprintf("execution with ID '%s' not found", executionID), nil)
	}
	if exec.isTerminal() {
		d.mu.Unlock()
		return false, nil
	}
	cancel := exec.cancel
	d.mu.Unlock()

	if cancel == nil {
		return false, NewInternalError("dispatcher", "cannot cancel execution: cancel function not found", nil)
	}
	cancel()
	d.logger.Infof("cancelled execution %s (%s)", executionID, exec.actionID)
	d.publish(eventbus.EventAsyncExecutionCancelled, exec, 0, nil)
	return true, nil
}

// CleanupExecutions removes finished executions that ended more than
// olderThan ago and returns how many were removed.
func (d *Dispatcher) CleanupExecutions(olderThan time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	count := 0
	kept := d.order[:0]
	for _, id := range d.order {
		exec := d.executions[id]
		if exec.isTerminal() && now.Sub(exec.endTime) > olderThan {
			delete(d.executions, id)
			count++
			continue
		}
		kept = append(kept, id)
	}
	d.order = kept
	return count
}
