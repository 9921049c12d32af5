package actions

import (
	"context"
	"fmt"
	"strings"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/search"
)

// Searcher runs an adaptive search. *search.Engine implements it.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (search.Result, error)
}

// RestaurantDiscovery finds places to eat around the device location.
type RestaurantDiscovery struct {
	Location   assist.LocationClient
	Searcher   Searcher
	Query      string
	MinResults int
	Filters    assist.SearchFilters
}

func (RestaurantDiscovery) ID() string          { return DiscoveryID }
func (RestaurantDiscovery) DisplayName() string { return "Restaurants nearby" }
func (d RestaurantDiscovery) Summary() string {
	if d.Filters.VegetarianRequired {
		return "Find vegetarian-friendly restaurants nearby"
	}
	return "Find restaurants nearby"
}

func (d RestaurantDiscovery) DebugContext() map[string]any {
	fields := map[string]any{
		"query":               d.Query,
		"min_results":         d.MinResults,
		"vegetarian_required": d.Filters.VegetarianRequired,
	}
	if d.Filters.Expression != "" {
		fields["filter"] = d.Filters.Expression
	}
	return fields
}

// ResultDebugContext adds the search rounds taken.
func (RestaurantDiscovery) ResultDebugContext(result assist.ActionResult) map[string]any {
	res, ok := result.Data.(search.Result)
	if !ok {
		return nil
	}
	return map[string]any{
		"rounds":       res.Rounds,
		"final_radius": res.FinalRadiusMeters,
		"count":        len(res.Restaurants),
		"satisfied":    res.Satisfied,
	}
}

func (d RestaurantDiscovery) Run(ctx context.Context) (assist.ActionResult, error) {
	if d.Location == nil {
		return assist.ActionResult{}, assist.NewConfigurationMissingError(DiscoveryID, "no location provider configured")
	}
	if d.Searcher == nil {
		return assist.ActionResult{}, assist.NewConfigurationMissingError(DiscoveryID, "no restaurant search configured")
	}

	origin, err := d.Location.CurrentLocation(ctx)
	if err != nil {
		return assist.ActionResult{}, collaboratorError(ctx, DiscoveryID, err, func(e error) *assist.Error {
			return assist.NewPermissionDeniedError(DiscoveryID, "the device location", e)
		})
	}

	minResults := d.MinResults
	if minResults <= 0 {
		minResults = 1
	}
	res, err := d.Searcher.Search(ctx, search.Request{
		Origin:     origin,
		Query:      d.Query,
		MinResults: minResults,
		Filters:    d.Filters,
	})
	if err != nil {
		return assist.ActionResult{}, err
	}
	return assist.StructuredResult(listRestaurants(origin, res), res), nil
}

func listRestaurants(origin assist.Coordinates, res search.Result) string {
	if len(res.Restaurants) == 0 {
		return fmt.Sprintf("No restaurants found within %.1f km.", float64(res.FinalRadiusMeters)/1000)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d within %.1f km:", len(res.Restaurants), float64(res.FinalRadiusMeters)/1000)
	for i, r := range res.Restaurants {
		fmt.Fprintf(&b, "\n%d. %s", i+1, r.Name)
		if r.Cuisine != "" {
			fmt.Fprintf(&b, " (%s)", r.Cuisine)
		}
		fmt.Fprintf(&b, ", %.1f km", search.DistanceMeters(origin, r.Coordinates)/1000)
		if r.IsVegetarianFriendly {
			fmt.Fprintf(&b, ", %d vegetarian options", r.VegetarianOptionsCount)
		}
	}
	if !res.Satisfied {
		b.WriteString("\nFewer results than requested.")
	}
	return b.String()
}
