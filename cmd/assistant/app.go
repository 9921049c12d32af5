package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/prometheus/client_golang/prometheus"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/actions"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/cache"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/config"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/eventbus"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/fixture"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/llm"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/logger"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/search"
)

// Action names accepted by "run".
var actionNames = []string{"greeting", "summary", "reply", "schedule", "restaurants", "matchup", "briefing"}

// actionArgs are the per-invocation inputs taken from flags.
type actionArgs struct {
	Recipient  string
	Query      string
	MinResults int
	Vegetarian bool
	Filter     string
	Calendars  []string
}

type app struct {
	cfg        *config.Config
	world      *fixture.World
	registry   *prometheus.Registry
	dispatcher *assist.Dispatcher
	generator  assist.TextGenerator
	engine     *search.Engine
	matchups   *cache.WindowCache[string]
	logger     logger.Logger
	now        func() time.Time
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if cfg.Fixtures.Path == "" {
		return nil, assist.NewConfigurationMissingError("assistant", "fixtures.path is required")
	}
	world, err := fixture.Load(cfg.Fixtures.Path)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		world:    world,
		registry: prometheus.NewRegistry(),
		logger:   logger.New("assistant"),
		now:      time.Now,
	}

	if a.generator, err = a.newGenerator(ctx); err != nil {
		return nil, err
	}

	promDispatcher, err := assist.NewPromCollectors(a.registry)
	if err != nil {
		return nil, err
	}
	a.dispatcher, err = assist.New(
		assist.WithConfig(cfg.DispatcherOptions()),
		assist.WithLogger(logger.New("dispatcher")),
		assist.WithPromCollectors(promDispatcher),
	)
	if err != nil {
		return nil, err
	}
	if bus := a.dispatcher.EventBus(); bus != nil {
		if _, err := bus.SubscribeAll(a.logEvent); err != nil {
			return nil, err
		}
	}

	searchMetrics, err := search.NewMetrics(a.registry)
	if err != nil {
		return nil, err
	}
	a.engine, err = search.NewEngine(world,
		search.WithConfig(cfg.Search),
		search.WithLogger(logger.New("search")),
		search.WithMetrics(searchMetrics),
		search.WithEventBus(a.dispatcher.Events()),
	)
	if err != nil {
		return nil, err
	}

	cacheMetrics, err := cache.NewMetrics(a.registry)
	if err != nil {
		return nil, err
	}
	cacheOpts := []cache.Option{
		cache.WithName("matchups"),
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithLogger(logger.New("cache")),
		cache.WithMetrics(cacheMetrics),
	}
	if cfg.Cache.EpochEnabled() {
		wd, _ := cfg.Cache.Weekday()
		loc, _ := cfg.Cache.Location()
		cacheOpts = append(cacheOpts, cache.WithEpoch(wd, loc))
	}
	a.matchups = cache.New[string](cacheOpts...)
	return a, nil
}

func (a *app) newGenerator(ctx context.Context) (assist.TextGenerator, error) {
	offline := llm.NewTemplateGenerator(a.world.Replies, "")
	apiKey := os.Getenv(a.cfg.LLM.APIKeyEnv)

	switch a.cfg.LLM.Provider {
	case llm.ProviderGemini:
		return llm.NewGeminiGenerator(ctx, apiKey, llm.WithModel(a.cfg.LLM.Model), llm.WithLogger(logger.New("gemini")))
	case llm.ProviderGenkit:
		g, err := genkit.Init(ctx)
		if err != nil {
			return nil, fmt.Errorf("init genkit: %w", err)
		}
		var backend assist.TextGenerator = offline
		if apiKey != "" {
			if backend, err = llm.NewGeminiGenerator(ctx, apiKey, llm.WithModel(a.cfg.LLM.Model)); err != nil {
				return nil, err
			}
		}
		return llm.NewGenkitGenerator(llm.DefineGenerateFlow(g, a.cfg.LLM.FlowName, backend)), nil
	default:
		return offline, nil
	}
}

func (a *app) logEvent(_ context.Context, evt eventbus.Event) error {
	a.logger.Debugw("event", map[string]any{
		"type":    string(evt.Type()),
		"source":  evt.Source(),
		"payload": evt.Payload(),
	})
	return nil
}

func (a *app) buildAction(name string, args actionArgs) (assist.Action, error) {
	var allowed map[string]struct{}
	if len(args.Calendars) > 0 {
		allowed = make(map[string]struct{}, len(args.Calendars))
		for _, id := range args.Calendars {
			allowed[strings.TrimSpace(id)] = struct{}{}
		}
	}

	switch name {
	case "greeting":
		return actions.Greeting{
			Generator: a.generator,
			Recipient: args.Recipient,
			StyleHint: a.world.StyleHint(args.Recipient),
		}, nil
	case "summary":
		return actions.DaySummary{Calendar: a.world, Generator: a.generator, AllowedCalendarIDs: allowed}, nil
	case "schedule":
		return actions.Schedule{Calendar: a.world, AllowedCalendarIDs: allowed}, nil
	case "reply":
		if a.world.Inbox == nil {
			return nil, assist.NewConfigurationMissingError("reply", "the fixture has no inbox message")
		}
		msg := a.world.Inbox
		return actions.Reply{
			Generator: a.generator,
			Message:   msg.Text,
			Sender:    msg.Sender,
			History:   msg.History,
			StyleHint: a.world.StyleHint(msg.Sender),
		}, nil
	case "restaurants":
		return actions.RestaurantDiscovery{
			Location:   a.world,
			Searcher:   a.engine,
			Query:      args.Query,
			MinResults: args.MinResults,
			Filters:    assist.SearchFilters{VegetarianRequired: args.Vegetarian, Expression: args.Filter},
		}, nil
	case "matchup":
		wd, _ := a.cfg.Cache.Weekday()
		loc, _ := a.cfg.Cache.Location()
		return actions.WeeklyMatchup{
			Cache:        a.matchups,
			Generator:    a.generator,
			Now:          a.now,
			Location:     loc,
			EpochWeekday: wd,
		}, nil
	case "briefing":
		children := make([]assist.Action, 0, 3)
		for _, n := range []string{"greeting", "summary", "matchup"} {
			child, err := a.buildAction(n, args)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return actions.NewComposite("briefing", "Morning briefing", children...), nil
	default:
		return nil, assist.NewValidationError("assistant", fmt.Sprintf("unknown action %q (want one of %s)", name, strings.Join(actionNames, ", ")), nil)
	}
}

func (a *app) Close() error {
	return a.dispatcher.Close()
}
