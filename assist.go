// Package assist dispatches assistant actions one at a time and publishes the
// outcome of the most recent one.
package assist

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZanzyTHEbar/dragonscale-assist/internal/eventbus"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/logger"
)

// Config holds the configuration options for a Dispatcher.
type Config struct {
	// ActionTimeout bounds a single Run. Zero means no deadline beyond the caller's.
	ActionTimeout time.Duration

	// HistoryLimit caps the number of finished executions kept for status queries.
	HistoryLimit int

	// Event bus configuration, used when no bus is injected.
	EnableEventBus      bool
	EventBusBufferSize  int
	EventBusWorkerCount int
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ActionTimeout:       time.Minute,
		HistoryLimit:        100,
		EnableEventBus:      false,
		EventBusBufferSize:  100,
		EventBusWorkerCount: 2,
	}
}

// Dispatcher runs at most one Action at a time. A submission while another
// action is in flight is rejected with an ErrCodeBusy error and leaves the
// published state untouched.
type Dispatcher struct {
	mu sync.Mutex

	busy             bool
	lastOutput       string
	lastResult       *ActionResult
	errorMessage     *string
	debugLog         string
	currentStyleHint *string

	executions map[string]*execution
	order      []string

	config   Config
	logger   logger.Logger
	eventBus eventbus.EventBus
	outbox   *eventbus.Outbox
	ownsBus  bool
	metrics  *metricsRecorder
	now      func() time.Time

	wg sync.WaitGroup
}

// Option is a function that configures a Dispatcher.
type Option func(*Dispatcher)

// WithConfig sets the configuration.
func WithConfig(config Config) Option {
	return func(d *Dispatcher) {
		d.config = config
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithPromCollectors mirrors the dispatcher metrics into Prometheus.
func WithPromCollectors(p *PromCollectors) Option {
	return func(d *Dispatcher) {
		d.metrics.prom = p
	}
}

// WithClock replaces time.Now for timestamps in traces and execution records.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// New creates a Dispatcher in the idle state.
func New(options ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		executions: make(map[string]*execution),
		config:     DefaultConfig(),
		logger:     logger.NopLogger{},
		metrics:    &metricsRecorder{},
		now:        time.Now,
	}
	for _, option := range options {
		option(d)
	}

	if d.config.ActionTimeout < 0 {
		return nil, NewValidationError("dispatcher", fmt.Sprintf("action timeout must not be negative, got %s", d.config.ActionTimeout), nil)
	}
	if d.config.HistoryLimit <= 0 {
		d.config.HistoryLimit = DefaultConfig().HistoryLimit
	}

	if d.config.EnableEventBus && d.eventBus == nil {
		d.eventBus = eventbus.NewChannelEventBus(
			eventbus.WithBufferSize(d.config.EventBusBufferSize),
			eventbus.WithWorkerCount(d.config.EventBusWorkerCount),
			eventbus.WithLogger(d.logger),
		)
		d.ownsBus = true
		d.logger.Debugf("initialized default channel-based event bus")
	}
	if d.eventBus != nil {
		d.outbox = eventbus.NewOutbox(d.eventBus, eventbus.WithOutboxLogger(d.logger))
	}
	return d, nil
}

// Submit runs action and blocks until it finishes. The returned error is also
// reflected in ErrorMessage, except for a busy rejection, which changes nothing.
func (d *Dispatcher) Submit(ctx context.Context, action Action) error {
	exec, err := d.begin(action, false)
	if err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.setCancel(exec, cancel)
	return d.run(runCtx, action, exec)
}

// SubmitAsync claims the dispatcher for action and runs it in the background.
// It returns the execution ID, or an ErrCodeBusy error when another action is
// in flight. The run outlives ctx's cancellation but keeps its values; use
// CancelExecution to stop it.
func (d *Dispatcher) SubmitAsync(ctx context.Context, action Action) (string, error) {
	exec, err := d.begin(action, true)
	if err != nil {
		return "", err
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.setCancel(exec, cancel)

	d.publish(eventbus.EventAsyncExecutionStarted, exec, 0, nil)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		_ = d.run(runCtx, action, exec)
	}()
	return exec.id, nil
}

// begin performs the Idle to Busy transition.
func (d *Dispatcher) begin(action Action, async bool) (*execution, error) {
	if action == nil {
		return nil, NewValidationError("dispatcher", "action is required", nil)
	}

	d.mu.Lock()
	if d.busy {
		d.mu.Unlock()
		d.logger.Warnf("rejected %s: dispatcher busy", action.ID())
		d.metrics.rejected(action.ID())
		d.publish(eventbus.EventActionRejected, &execution{actionID: action.ID(), displayName: action.DisplayName()}, 0, nil)
		return nil, NewBusyError(action.ID())
	}

	d.busy = true
	d.errorMessage = nil
	if p, ok := action.(PreloadHintProvider); ok {
		if hint, ok := p.PreloadHint(); ok {
			d.currentStyleHint = nil
			if hint != "" {
				d.currentStyleHint = &hint
			}
		}
	}
	exec := newExecution(uuid.New().String(), action, async, d.now())
	d.track(exec)
	d.mu.Unlock()

	d.metrics.setBusy(true)
	return exec, nil
}

func (d *Dispatcher) setCancel(exec *execution, cancel context.CancelFunc) {
	d.mu.Lock()
	exec.cancel = cancel
	d.mu.Unlock()
}

// run executes the action inside the busy window. The Busy to Idle
// transition is deferred so it happens on every path, and carries the
// terminal event with it.
func (d *Dispatcher) run(ctx context.Context, action Action, exec *execution) error {
	var terminal eventbus.Event
	defer func() { d.release(terminal) }()

	d.logger.Infof("running %s (%s)", action.ID(), exec.id)
	d.publish(eventbus.EventActionStarted, exec, 0, nil)

	runCtx := ctx
	if d.config.ActionTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.config.ActionTimeout)
		defer cancel()
	}

	hint := d.CurrentStyleHint()
	started := d.now()
	result, err := d.await(runCtx, action)
	elapsed := d.now().Sub(started)
	err = d.classify(ctx, runCtx, action.ID(), err)

	var trace string
	if err == nil {
		trace = buildTrace(exec.id, action, result, started, elapsed, hint).render()
	}

	d.mu.Lock()
	if err != nil {
		msg := UserMessage(err)
		d.errorMessage = &msg
		exec.fail(err, d.now())
	} else {
		d.lastOutput = result.Text()
		res := result
		d.lastResult = &res
		d.debugLog = trace
		exec.complete(d.lastOutput, d.now())
	}
	d.trim()
	d.mu.Unlock()

	d.metrics.finished(action.ID(), elapsed, err)
	if err != nil {
		d.logger.Errorf("%s failed after %s: %v", action.ID(), elapsed, err)
		terminal = actionEvent(eventbus.EventActionFailed, exec, elapsed, err)
		return err
	}
	d.logger.Infof("%s finished in %s", action.ID(), elapsed)
	terminal = actionEvent(eventbus.EventActionSucceeded, exec, elapsed, nil)
	return nil
}

// release returns the dispatcher to Idle. The terminal event is posted under
// the same lock so it precedes any event of the next action.
func (d *Dispatcher) release(terminal eventbus.Event) {
	d.mu.Lock()
	d.busy = false
	if terminal != nil && d.outbox != nil {
		d.outbox.Post(terminal)
	}
	d.mu.Unlock()
	d.metrics.setBusy(false)
}

type runOutcome struct {
	result ActionResult
	err    error
}

// await runs the action in its own goroutine so an action that ignores its
// context cannot hold the dispatcher past the deadline. A late result is discarded.
func (d *Dispatcher) await(ctx context.Context, action Action) (ActionResult, error) {
	done := make(chan runOutcome, 1)
	go func() {
		result, err := d.safeRun(ctx, action)
		done <- runOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		select {
		case out := <-done:
			return out.result, out.err
		default:
		}
		d.logger.Warnf("%s did not return before its context ended; abandoning it", action.ID())
		return ActionResult{}, ctx.Err()
	}
}

// safeRun turns a panic in Run into an internal error.
func (d *Dispatcher) safeRun(ctx context.Context, action Action) (result ActionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("%s panicked: %v\n%s", action.ID(), r, debug.Stack())
			err = NewInternalError(action.ID(), "unexpected failure", fmt.Errorf("panic: %v", r))
		}
	}()
	return action.Run(ctx)
}

// classify maps a Run failure onto the error taxonomy. Context failures take
// precedence so a collaborator that surfaces a raw ctx error still reports a
// timeout or cancellation.
func (d *Dispatcher) classify(parent, runCtx context.Context, actionID string, err error) error {
	if err == nil {
		return nil
	}
	if HasCode(err, ErrCodeTimeout) || HasCode(err, ErrCodeCancelled) {
		return NewActionError(actionID, err)
	}
	switch {
	case parent.Err() != nil:
		return NewActionError(actionID, FromContext(actionID, parent.Err()))
	case runCtx.Err() != nil:
		return NewActionError(actionID, FromContext(actionID, runCtx.Err()))
	}
	return NewActionError(actionID, err)
}

// publish posts a lifecycle event without waiting for the bus.
func (d *Dispatcher) publish(typ eventbus.EventType, exec *execution, elapsed time.Duration, err error) {
	if d.outbox == nil {
		return
	}
	d.outbox.Post(actionEvent(typ, exec, elapsed, err))
}

func actionEvent(typ eventbus.EventType, exec *execution, elapsed time.Duration, err error) eventbus.Event {
	payload := eventbus.ActionPayload{
		ExecutionID: exec.id,
		ActionID:    exec.actionID,
		DisplayName: exec.displayName,
		Duration:    elapsed,
	}
	if err != nil {
		payload.Error = UserMessage(err)
	}
	return eventbus.NewEvent(typ, payload, "dispatcher", nil)
}

// State returns a snapshot of the published fields.
func (d *Dispatcher) State() DispatcherState {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := DispatcherState{
		IsBusy:     d.busy,
		LastOutput: d.lastOutput,
		DebugLog:   d.debugLog,
	}
	if d.lastResult != nil {
		r := *d.lastResult
		s.LastResult = &r
	}
	if d.errorMessage != nil {
		m := *d.errorMessage
		s.ErrorMessage = &m
	}
	if d.currentStyleHint != nil {
		h := *d.currentStyleHint
		s.CurrentStyleHint = &h
	}
	return s
}

// IsBusy reports whether an action is in flight.
func (d *Dispatcher) IsBusy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy
}

// Status returns StateBusy while an action is in flight.
func (d *Dispatcher) Status() DispatchState {
	if d.IsBusy() {
		return StateBusy
	}
	return StateIdle
}

// LastOutput is the text of the most recent successful result.
func (d *Dispatcher) LastOutput() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastOutput
}

// ErrorMessage is the user-facing message of the most recent failure, or nil
// if the most recent submission has not failed.
func (d *Dispatcher) ErrorMessage() *string {
	return d.State().ErrorMessage
}

// DebugLog is the YAML debug trace of the most recent successful result.
func (d *Dispatcher) DebugLog() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.debugLog
}

// CurrentStyleHint is the style hint preloaded by the most recent action that offers one.
func (d *Dispatcher) CurrentStyleHint() *string {
	return d.State().CurrentStyleHint
}

// Metrics returns a copy of the dispatcher metrics.
func (d *Dispatcher) Metrics() DispatcherMetrics {
	return d.metrics.copy()
}

// EventBus returns the bus the dispatcher publishes to, or nil.
func (d *Dispatcher) EventBus() eventbus.EventBus {
	return d.eventBus
}

// Events returns a publisher that shares the dispatcher's non-blocking,
// ordered path to the event bus, or nil when there is no bus.
func (d *Dispatcher) Events() eventbus.Publisher {
	if d.outbox == nil {
		return nil
	}
	return d.outbox
}

// Wait blocks until every async execution has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close cancels running executions and waits for them. Pending lifecycle
// events get a bounded drain before the event bus is closed, if the
// dispatcher created it.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	for _, e := range d.executions {
		if !e.isTerminal() && e.cancel != nil {
			e.cancel()
		}
	}
	d.mu.Unlock()

	d.wg.Wait()
	if d.outbox != nil {
		d.outbox.Close()
	}
	if d.ownsBus && d.eventBus != nil {
		return d.eventBus.Close()
	}
	return nil
}
