// Package actions holds the assistant's concrete actions. Each action is an
// immutable value built per invocation from its inputs and collaborators.
package actions

import (
	"context"
	"strings"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

// Action identifiers.
const (
	GreetingID   = "greeting"
	DaySummaryID = "day_summary"
	ReplyID      = "reply"
	ScheduleID   = "schedule"
	DiscoveryID  = "restaurant_discovery"
	MatchupID    = "weekly_matchup"
)

// collaboratorError keeps typed errors, maps context failures, and converts
// anything else with fallback.
func collaboratorError(ctx context.Context, stage string, err error, fallback func(error) *assist.Error) error {
	if assist.IsAssistError(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return assist.FromContext(stage, ctxErr)
	}
	return fallback(err)
}

// generate calls the text generator and rejects empty output.
func generate(ctx context.Context, gen assist.TextGenerator, stage, prompt string, styleHint string) (assist.Generation, error) {
	if gen == nil {
		return assist.Generation{}, assist.NewConfigurationMissingError(stage, "no text generator configured")
	}
	var hint *string
	if styleHint != "" {
		hint = &styleHint
	}
	out, err := gen.Generate(ctx, prompt, hint)
	if err != nil {
		return assist.Generation{}, collaboratorError(ctx, stage, err, func(e error) *assist.Error {
			return assist.NewNetworkError(stage, e)
		})
	}
	if strings.TrimSpace(out.Message) == "" {
		return assist.Generation{}, assist.NewInvalidResponseError(stage, "the model returned an empty message", nil)
	}
	return out, nil
}

func generatedResult(g assist.Generation) assist.ActionResult {
	r := assist.TextResult(strings.TrimSpace(g.Message))
	r.Debug = g.Debug
	return r
}
