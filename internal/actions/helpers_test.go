package actions

import (
	"context"
	"errors"
	"sync"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/search"
)

var errUnreachable = errors.New("dial tcp: connection refused")

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	debug   string
	err     error
	prompts []string
	hints   []*string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, hint *string) (assist.Generation, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	g.hints = append(g.hints, hint)
	if g.err != nil {
		return assist.Generation{}, g.err
	}
	return assist.Generation{Message: g.reply, Debug: g.debug}, nil
}

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

type fakeCalendar struct {
	accessErr error
	fetchErr  error
	summary   string
	allowed   map[string]struct{}
}

func (c *fakeCalendar) RequestAccessIfNeeded(context.Context) error { return c.accessErr }

func (c *fakeCalendar) FetchTodayScheduleSummary(_ context.Context, allowed map[string]struct{}) (string, error) {
	c.allowed = allowed
	if c.fetchErr != nil {
		return "", c.fetchErr
	}
	return c.summary, nil
}

type fakeLocation struct {
	at  assist.Coordinates
	err error
}

func (l fakeLocation) CurrentLocation(context.Context) (assist.Coordinates, error) {
	return l.at, l.err
}

type fixedDiscovery []assist.Restaurant

func (f fixedDiscovery) SearchRestaurants(_ context.Context, req assist.SearchRequest) ([]assist.Restaurant, error) {
	var out []assist.Restaurant
	for _, r := range f {
		if search.DistanceMeters(req.Near, r.Coordinates) <= float64(req.RadiusMeters) {
			out = append(out, r)
		}
	}
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, nil
}

// mapCache is a plain Get/Set cache without read-through support.
type mapCache struct {
	mu     sync.Mutex
	values map[string]string
	sets   int
}

func (c *mapCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

func (c *mapCache) Set(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[string]string)
	}
	c.values[key] = value
	c.sets++
	return nil
}
