package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

// Composite runs several actions concurrently and groups their results in
// submission order. The first failure cancels the rest.
type Composite struct {
	id             string
	displayName    string
	children       []assist.Action
	maxConcurrency int
}

// NewComposite groups children under one action.
func NewComposite(id, displayName string, children ...assist.Action) *Composite {
	return &Composite{id: id, displayName: displayName, children: children}
}

// WithMaxConcurrency bounds the number of children running at once. Zero
// means no bound.
func (c *Composite) WithMaxConcurrency(n int) *Composite {
	c.maxConcurrency = n
	return c
}

func (c *Composite) ID() string          { return c.id }
func (c *Composite) DisplayName() string { return c.displayName }

func (c *Composite) Summary() string {
	parts := make([]string, 0, len(c.children))
	for _, child := range c.children {
		parts = append(parts, child.DisplayName())
	}
	return strings.Join(parts, ", ")
}

// PreloadHint uses the first child that has one.
func (c *Composite) PreloadHint() (string, bool) {
	for _, child := range c.children {
		if p, ok := child.(assist.PreloadHintProvider); ok {
			if hint, ok := p.PreloadHint(); ok {
				return hint, true
			}
		}
	}
	return "", false
}

func (c *Composite) DebugContext() map[string]any {
	ids := make([]string, 0, len(c.children))
	for _, child := range c.children {
		ids = append(ids, child.ID())
	}
	return map[string]any{"children": ids}
}

func (c *Composite) Run(ctx context.Context) (assist.ActionResult, error) {
	if len(c.children) == 0 {
		return assist.ActionResult{}, assist.NewValidationError(c.id, "no actions to run", nil)
	}

	results := make([]assist.ActionResult, len(c.children))
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	if c.maxConcurrency > 0 {
		p = p.WithMaxGoroutines(c.maxConcurrency)
	}
	for i, child := range c.children {
		p.Go(func(ctx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = assist.NewInternalError(child.ID(), "unexpected failure", fmt.Errorf("panic: %v", r))
				}
			}()
			res, err := child.Run(ctx)
			if err != nil {
				return assist.NewActionError(child.ID(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return assist.ActionResult{}, err
	}
	return assist.CompositeResult(results...), nil
}
