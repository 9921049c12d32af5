package actions

import (
	"context"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

// Func adapts a plain Go function to assist.Action.
type Func struct {
	id          string
	displayName string
	summary     string
	fn          func(ctx context.Context) (assist.ActionResult, error)
	validator   func() error
	debug       map[string]any
	hint        *string
}

// FuncOption configures a Func.
type FuncOption func(*Func)

// WithDisplayName sets the name shown to the user. It defaults to the id.
func WithDisplayName(name string) FuncOption {
	return func(f *Func) { f.displayName = name }
}

// WithSummary sets the description of what the function does.
func WithSummary(summary string) FuncOption {
	return func(f *Func) { f.summary = summary }
}

// WithValidator runs check before the function; a failure aborts the run.
func WithValidator(check func() error) FuncOption {
	return func(f *Func) { f.validator = check }
}

// WithDebugContext adds fields to the debug trace.
func WithDebugContext(fields map[string]any) FuncOption {
	return func(f *Func) {
		if f.debug == nil {
			f.debug = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			f.debug[k] = v
		}
	}
}

// WithPreloadHint sets the style hint surfaced before the run.
func WithPreloadHint(hint string) FuncOption {
	return func(f *Func) { f.hint = &hint }
}

// NewFunc creates an action named id that calls fn.
func NewFunc(id string, fn func(ctx context.Context) (assist.ActionResult, error), options ...FuncOption) *Func {
	f := &Func{id: id, displayName: id, fn: fn}
	for _, option := range options {
		option(f)
	}
	return f
}

func (f *Func) ID() string          { return f.id }
func (f *Func) DisplayName() string { return f.displayName }
func (f *Func) Summary() string     { return f.summary }

func (f *Func) DebugContext() map[string]any { return f.debug }

func (f *Func) PreloadHint() (string, bool) {
	if f.hint == nil {
		return "", false
	}
	return *f.hint, true
}

func (f *Func) Run(ctx context.Context) (assist.ActionResult, error) {
	if f.fn == nil {
		return assist.ActionResult{}, assist.NewConfigurationMissingError(f.id, "function is nil")
	}
	if f.validator != nil {
		if err := f.validator(); err != nil {
			return assist.ActionResult{}, assist.NewValidationError(f.id, "input validation failed", err)
		}
	}
	return f.fn(ctx)
}
