package search

import (
	"fmt"
	"strings"

	"github.com/Knetic/govaluate"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

// filterFunctions are the only functions an Expression may call.
var filterFunctions = map[string]govaluate.ExpressionFunction{
	"contains": func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("contains expects 2 arguments, got %d", len(args))
		}
		return strings.Contains(strings.ToLower(fmt.Sprint(args[0])), strings.ToLower(fmt.Sprint(args[1]))), nil
	},
	"lower": func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("lower expects 1 argument, got %d", len(args))
		}
		return strings.ToLower(fmt.Sprint(args[0])), nil
	},
}

// Filter applies SearchFilters to raw discovery results.
type Filter struct {
	vegetarianRequired bool
	expr               *govaluate.EvaluableExpression
	source             string
}

// CompileFilter parses f.Expression. Expressions see the parameters id, name,
// cuisine, address, vegetarian_friendly, vegetarian_options and distance_m,
// and may call contains(s, sub) and lower(s).
func CompileFilter(f assist.SearchFilters) (*Filter, error) {
	out := &Filter{vegetarianRequired: f.VegetarianRequired, source: f.Expression}
	if strings.TrimSpace(f.Expression) == "" {
		return out, nil
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(f.Expression, filterFunctions)
	if err != nil {
		return nil, assist.NewValidationError("search", fmt.Sprintf("invalid filter expression %q", f.Expression), err)
	}
	out.expr = expr
	return out, nil
}

// Apply returns the items that satisfy the filter, in input order.
func (f *Filter) Apply(origin assist.Coordinates, items []assist.Restaurant) ([]assist.Restaurant, error) {
	if f == nil || (!f.vegetarianRequired && f.expr == nil) {
		return items, nil
	}
	out := make([]assist.Restaurant, 0, len(items))
	for _, it := range items {
		if f.vegetarianRequired && !it.IsVegetarianFriendly {
			continue
		}
		if f.expr != nil {
			ok, err := f.eval(origin, it)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		out = append(out, it)
	}
	return out, nil
}

func (f *Filter) eval(origin assist.Coordinates, r assist.Restaurant) (bool, error) {
	res, err := f.expr.Evaluate(map[string]any{
		"id":                  r.ID,
		"name":                r.Name,
		"cuisine":             r.Cuisine,
		"address":             r.Address,
		"vegetarian_friendly": r.IsVegetarianFriendly,
		"vegetarian_options":  float64(r.VegetarianOptionsCount),
		"distance_m":          DistanceMeters(origin, r.Coordinates),
	})
	if err != nil {
		return false, assist.NewValidationError("search", fmt.Sprintf("failed to evaluate filter %q", f.source), err)
	}
	ok, isBool := res.(bool)
	if !isBool {
		return false, assist.NewValidationError("search", fmt.Sprintf("filter %q must yield a boolean, got %T", f.source, res), nil)
	}
	return ok, nil
}
