// Package search implements the adaptive radius-escalating restaurant search.
package search

import (
	"context"
	"fmt"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/eventbus"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/logger"
)

const (
	outcomeSatisfied = "satisfied"
	outcomePartial   = "partial"
	outcomeFailed    = "failed"
)

// Request describes one adaptive search.
type Request struct {
	Origin     assist.Coordinates
	Query      string
	MinResults int
	Filters    assist.SearchFilters
}

// Round records what a single discovery call returned.
type Round struct {
	RadiusMeters int `json:"radius_meters" yaml:"radius_meters"`
	Limit        int `json:"limit" yaml:"limit"`
	Raw          int `json:"raw" yaml:"raw"`
	Kept         int `json:"kept" yaml:"kept"`
}

// Result is the deduplicated outcome of the last round, ordered by distance
// from the origin, then name, then ID.
type Result struct {
	Restaurants       []assist.Restaurant `json:"restaurants" yaml:"restaurants"`
	Rounds            []Round             `json:"rounds" yaml:"rounds"`
	FinalRadiusMeters int                 `json:"final_radius_meters" yaml:"final_radius_meters"`
	// Satisfied is false when the ceiling was reached with fewer than MinResults.
	Satisfied bool `json:"satisfied" yaml:"satisfied"`
}

// Engine runs adaptive searches against a DiscoveryService.
type Engine struct {
	service assist.DiscoveryService
	config  Config
	logger  logger.Logger
	metrics *Metrics
	bus     eventbus.Publisher
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces DefaultConfig.
func WithConfig(c Config) Option {
	return func(e *Engine) { e.config = c }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records rounds and outcomes.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithEventBus publishes an event after every round.
func WithEventBus(bus eventbus.Publisher) Option {
	return func(e *Engine) { e.bus = bus }
}

// NewEngine creates an Engine. The config is validated here so Search never
// sees unusable bounds.
func NewEngine(service assist.DiscoveryService, opts ...Option) (*Engine, error) {
	e := &Engine{
		service: service,
		config:  DefaultConfig(),
		logger:  logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if service == nil {
		return nil, assist.NewConfigurationMissingError("search", "no discovery service configured")
	}
	if err := e.config.Validate(); err != nil {
		return nil, assist.NewValidationError("search", "invalid search config", err)
	}
	return e, nil
}

// Config returns the engine's bounds.
func (e *Engine) Config() Config { return e.config }

// Search queries the discovery service at the floor radius, doubling the
// radius until the deduplicated round holds at least MinResults or the
// ceiling has been queried. Reaching the ceiling short of MinResults is not
// an error. Any service failure aborts the search and discards earlier rounds.
func (e *Engine) Search(ctx context.Context, req Request) (Result, error) {
	if req.MinResults < 1 {
		return Result{}, assist.NewValidationError("search", fmt.Sprintf("min results must be >= 1, got %d", req.MinResults), nil)
	}
	filter, err := CompileFilter(req.Filters)
	if err != nil {
		return Result{}, err
	}
	rule := e.config.Rule()

	var rounds []Round
	radius := e.config.FloorMeters
	for {
		if err := ctx.Err(); err != nil {
			e.metrics.observe(outcomeFailed, len(rounds), 0)
			return Result{}, assist.FromContext("search", err)
		}

		limit := e.config.LimitFor(radius)
		raw, err := e.service.SearchRestaurants(ctx, assist.SearchRequest{
			Near:         req.Origin,
			Query:        req.Query,
			RadiusMeters: radius,
			Limit:        limit,
			Filters:      req.Filters,
		})
		if err != nil {
			e.metrics.observe(outcomeFailed, len(rounds)+1, 0)
			e.logger.Warnf("search round at %dm failed: %v", radius, err)
			return Result{}, e.wrapServiceError(ctx, err)
		}

		filtered, err := filter.Apply(req.Origin, raw)
		if err != nil {
			e.metrics.observe(outcomeFailed, len(rounds)+1, 0)
			return Result{}, err
		}
		unique := Dedup(req.Origin, filtered, rule)

		round := Round{RadiusMeters: radius, Limit: limit, Raw: len(raw), Kept: len(unique)}
		rounds = append(rounds, round)
		e.logger.Debugw("search round", map[string]any{
			"round":  len(rounds),
			"radius": radius,
			"limit":  limit,
			"raw":    len(raw),
			"kept":   len(unique),
		})
		e.publishRound(ctx, len(rounds), round)

		satisfied := len(unique) >= req.MinResults
		if satisfied || radius >= e.config.CeilingMeters {
			outcome := outcomeSatisfied
			if !satisfied {
				outcome = outcomePartial
			}
			e.metrics.observe(outcome, len(rounds), len(unique))
			return Result{
				Restaurants:       unique,
				Rounds:            rounds,
				FinalRadiusMeters: radius,
				Satisfied:         satisfied,
			}, nil
		}
		radius = e.config.nextRadius(radius)
	}
}

func (e *Engine) wrapServiceError(ctx context.Context, err error) error {
	if assist.IsAssistError(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return assist.FromContext("search", ctxErr)
	}
	return assist.NewNetworkError("search", err)
}

func (e *Engine) publishRound(ctx context.Context, n int, r Round) {
	if e.bus == nil {
		return
	}
	evt := eventbus.NewEvent(eventbus.EventSearchRoundCompleted, eventbus.SearchRoundPayload{
		Round:        n,
		RadiusMeters: r.RadiusMeters,
		Limit:        r.Limit,
		Raw:          r.Raw,
		Kept:         r.Kept,
	}, "search", nil)
	if err := e.bus.Publish(ctx, evt); err != nil {
		e.logger.Debugf("search round event dropped: %v", err)
	}
}
