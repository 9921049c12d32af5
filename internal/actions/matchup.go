package actions

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/cache"
)

// ReadThroughCache collapses concurrent loads of the same key.
// *cache.WindowCache[string] implements it.
type ReadThroughCache interface {
	GetOrLoad(ctx context.Context, key string, load func(context.Context) (string, error)) (string, bool, error)
}

// Matchup is one fixture of the week.
type Matchup struct {
	Home    string `json:"home" yaml:"home"`
	Away    string `json:"away" yaml:"away"`
	Kickoff string `json:"kickoff,omitempty" yaml:"kickoff,omitempty"`
}

// MatchupPayload is the structured result of WeeklyMatchup.
type MatchupPayload struct {
	Week     string    `json:"week" yaml:"week"`
	CacheHit bool      `json:"cache_hit" yaml:"cache_hit"`
	Matchups []Matchup `json:"matchups" yaml:"matchups"`
}

type matchupDocument struct {
	Matchups []Matchup `json:"matchups"`
}

const matchupPrompt = `List this week's headline football matchups as JSON only, in the form
{"matchups":[{"home":"...","away":"...","kickoff":"..."}]}.`

// WeeklyMatchup fetches this week's matchups, reading through the cache so
// the model is asked at most once per week.
type WeeklyMatchup struct {
	Cache     assist.Cache
	Generator assist.TextGenerator
	// Now defaults to time.Now.
	Now func() time.Time
	// Location is the zone the week is computed in; nil means UTC.
	Location     *time.Location
	EpochWeekday time.Weekday
}

func (WeeklyMatchup) ID() string          { return MatchupID }
func (WeeklyMatchup) DisplayName() string { return "Weekly matchups" }
func (WeeklyMatchup) Summary() string     { return "Show this week's matchups" }

func (m WeeklyMatchup) DebugContext() map[string]any {
	return map[string]any{"cache_key": m.key()}
}

// ResultDebugContext reports whether the cache answered.
func (WeeklyMatchup) ResultDebugContext(result assist.ActionResult) map[string]any {
	p, ok := result.Data.(MatchupPayload)
	if !ok {
		return nil
	}
	return map[string]any{"cache_hit": p.CacheHit, "count": len(p.Matchups)}
}

func (m WeeklyMatchup) key() string {
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return cache.WeekKey(now(), m.Location, m.EpochWeekday)
}

func (m WeeklyMatchup) Run(ctx context.Context) (assist.ActionResult, error) {
	if m.Cache == nil {
		return assist.ActionResult{}, assist.NewConfigurationMissingError(MatchupID, "no cache configured")
	}
	key := m.key()

	load := func(ctx context.Context) (string, error) {
		out, err := generate(ctx, m.Generator, MatchupID, matchupPrompt, "")
		if err != nil {
			return "", err
		}
		doc, err := parseMatchups(out.Message)
		if err != nil {
			return "", err
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return "", assist.NewInternalError(MatchupID, "could not encode matchups", err)
		}
		return string(raw), nil
	}

	var (
		raw string
		hit bool
		err error
	)
	if rt, ok := m.Cache.(ReadThroughCache); ok {
		raw, hit, err = rt.GetOrLoad(ctx, key, load)
	} else if raw, hit = m.Cache.Get(ctx, key); !hit {
		if raw, err = load(ctx); err == nil {
			err = m.Cache.Set(ctx, key, raw)
		}
	}
	if err != nil {
		return assist.ActionResult{}, collaboratorError(ctx, MatchupID, err, func(e error) *assist.Error {
			return assist.NewInternalError(MatchupID, "could not load matchups", e)
		})
	}

	doc, err := parseMatchups(raw)
	if err != nil {
		return assist.ActionResult{}, err
	}
	payload := MatchupPayload{Week: key, CacheHit: hit, Matchups: doc.Matchups}
	return assist.StructuredResult(formatMatchups(doc.Matchups), payload), nil
}

func parseMatchups(text string) (matchupDocument, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var doc matchupDocument
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &doc); err != nil {
		return matchupDocument{}, assist.NewInvalidResponseError(MatchupID, "the matchups could not be read", err)
	}
	if len(doc.Matchups) == 0 {
		return matchupDocument{}, assist.NewInvalidResponseError(MatchupID, "no matchups were returned", nil)
	}
	for _, mu := range doc.Matchups {
		if strings.TrimSpace(mu.Home) == "" || strings.TrimSpace(mu.Away) == "" {
			return matchupDocument{}, assist.NewInvalidResponseError(MatchupID, "a matchup is missing a team", nil)
		}
	}
	return doc, nil
}

func formatMatchups(ms []Matchup) string {
	lines := make([]string, 0, len(ms))
	for _, mu := range ms {
		line := mu.Home + " vs " + mu.Away
		if mu.Kickoff != "" {
			line += " (" + mu.Kickoff + ")"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
