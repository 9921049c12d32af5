// Package fixture provides a YAML-described world implementing the
// location, calendar and discovery collaborators, for offline runs and tests.
package fixture

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/search"
)

const stage = "fixture"

// Event is one calendar entry for today.
type Event struct {
	Title string `yaml:"title"`
	Start string `yaml:"start"`
	End   string `yaml:"end,omitempty"`
}

// Calendar is a named list of events.
type Calendar struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Events []Event `yaml:"events"`
}

// Message is the latest message in a conversation.
type Message struct {
	Sender  string   `yaml:"sender"`
	Text    string   `yaml:"text"`
	History []string `yaml:"history,omitempty"`
}

// World is the whole fixture.
type World struct {
	Location assist.Coordinates `yaml:"location"`
	// CalendarDenied makes calendar access fail.
	CalendarDenied bool       `yaml:"calendar_denied"`
	Calendars      []Calendar `yaml:"calendars"`

	Restaurants []assist.Restaurant `yaml:"restaurants"`

	// Contacts maps a contact name to their style hint.
	Contacts map[string]string `yaml:"contacts"`
	Inbox    *Message          `yaml:"inbox,omitempty"`

	// Replies are canned model replies keyed by a prompt keyword.
	Replies map[string]string `yaml:"replies"`
}

// Load reads a world from a YAML file.
func Load(path string) (*World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes a world from YAML.
func Parse(data []byte) (*World, error) {
	var w World
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &w, nil
}

// StyleHint returns the remembered style for contact.
func (w *World) StyleHint(contact string) string {
	return w.Contacts[contact]
}

// CurrentLocation implements assist.LocationClient.
func (w *World) CurrentLocation(ctx context.Context) (assist.Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return assist.Coordinates{}, assist.FromContext(stage, err)
	}
	return w.Location, nil
}

// RequestAccessIfNeeded implements assist.CalendarClient.
func (w *World) RequestAccessIfNeeded(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return assist.FromContext(stage, err)
	}
	if w.CalendarDenied {
		return assist.NewPermissionDeniedError(stage, "the calendar", nil)
	}
	return nil
}

// FetchTodayScheduleSummary implements assist.CalendarClient. Events from the
// allowed calendars are listed by start time, one per line.
func (w *World) FetchTodayScheduleSummary(ctx context.Context, allowed map[string]struct{}) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", assist.FromContext(stage, err)
	}

	type entry struct {
		Event
		calendar string
	}
	var entries []entry
	for _, c := range w.Calendars {
		if allowed != nil {
			if _, ok := allowed[c.ID]; !ok {
				continue
			}
		}
		for _, e := range c.Events {
			entries = append(entries, entry{Event: e, calendar: c.Name})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Start < entries[j].Start })

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		when := e.Start
		if e.End != "" {
			when += "-" + e.End
		}
		line := when + " " + e.Title
		if e.calendar != "" {
			line += " (" + e.calendar + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}

// SearchRestaurants implements assist.DiscoveryService. It returns places
// within the radius that match the query and the vegetarian filter, nearest
// first, capped at the limit.
func (w *World) SearchRestaurants(ctx context.Context, req assist.SearchRequest) ([]assist.Restaurant, error) {
	if err := ctx.Err(); err != nil {
		return nil, assist.FromContext(stage, err)
	}
	query := strings.ToLower(strings.TrimSpace(req.Query))

	type hit struct {
		r assist.Restaurant
		d float64
	}
	var hits []hit
	for _, r := range w.Restaurants {
		d := search.DistanceMeters(req.Near, r.Coordinates)
		if d > float64(req.RadiusMeters) {
			continue
		}
		if req.Filters.VegetarianRequired && !r.IsVegetarianFriendly {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(r.Name), query) && !strings.Contains(strings.ToLower(r.Cuisine), query) {
			continue
		}
		hits = append(hits, hit{r: r, d: d})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].d < hits[j].d })

	if req.Limit > 0 && len(hits) > req.Limit {
		hits = hits[:req.Limit]
	}
	out := make([]assist.Restaurant, len(hits))
	for i, h := range hits {
		out[i] = h.r
	}
	return out, nil
}
