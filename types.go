package assist

import (
	"fmt"
	"strings"
)

// ResultKind tags the payload carried by an ActionResult.
type ResultKind string

const (
	// ResultText is a plain text payload.
	ResultText ResultKind = "text"
	// ResultStructured is a text summary plus a structured payload.
	ResultStructured ResultKind = "structured"
	// ResultComposite groups the results of several actions.
	ResultComposite ResultKind = "composite"
)

// ActionResult is the output of Action.Run. Only the fields matching Kind are
// meaningful; new kinds can be added without touching the dispatcher, which
// only ever reads Text().
type ActionResult struct {
	Kind ResultKind `json:"kind" yaml:"kind"`

	// Message is the display text for text and structured results.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// Data is the machine-readable sibling of Message for structured results.
	Data any `json:"data,omitempty" yaml:"data,omitempty"`

	// Parts holds child results for composite results, in submission order.
	Parts []ActionResult `json:"parts,omitempty" yaml:"parts,omitempty"`

	// Debug carries collaborator diagnostics (e.g. model debug text) for the
	// debug trace. It is never displayed.
	Debug string `json:"debug,omitempty" yaml:"debug,omitempty"`
}

// TextResult creates a text result.
func TextResult(message string) ActionResult {
	return ActionResult{Kind: ResultText, Message: message}
}

// StructuredResult creates a result carrying both display text and data.
func StructuredResult(message string, data any) ActionResult {
	return ActionResult{Kind: ResultStructured, Message: message, Data: data}
}

// CompositeResult creates a result grouping the given parts.
func CompositeResult(parts ...ActionResult) ActionResult {
	return ActionResult{Kind: ResultComposite, Parts: parts}
}

// Text returns the display text of the result. Composite results join the
// text of their parts with blank lines.
func (r ActionResult) Text() string {
	switch r.Kind {
	case ResultComposite:
		texts := make([]string, 0, len(r.Parts))
		for _, p := range r.Parts {
			if t := p.Text(); t != "" {
				texts = append(texts, t)
			}
		}
		return strings.Join(texts, "\n\n")
	default:
		return r.Message
	}
}

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat" yaml:"lat"`
	Longitude float64 `json:"lon" yaml:"lon"`
}

// String formats the coordinates with five decimals (about one metre).
func (c Coordinates) String() string {
	return fmt.Sprintf("%.5f,%.5f", c.Latitude, c.Longitude)
}

// Restaurant is a place returned by the discovery collaborator.
type Restaurant struct {
	ID                     string      `json:"id" yaml:"id"`
	Name                   string      `json:"name" yaml:"name"`
	Cuisine                string      `json:"cuisine" yaml:"cuisine"`
	Address                string      `json:"address" yaml:"address"`
	Phone                  string      `json:"phone" yaml:"phone"`
	IsVegetarianFriendly   bool        `json:"is_vegetarian_friendly" yaml:"is_vegetarian_friendly"`
	VegetarianOptionsCount int         `json:"vegetarian_options_count" yaml:"vegetarian_options_count"`
	Coordinates            Coordinates `json:"coordinates" yaml:"coordinates"`
}

// SearchFilters constrains a discovery round.
type SearchFilters struct {
	VegetarianRequired bool `json:"vegetarian_required" yaml:"vegetarian_required"`

	// Expression is an optional boolean expression over restaurant fields
	// (e.g. "vegetarian_options >= 3 && cuisine == 'thai'"), applied to the
	// raw results of every round.
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// SearchRequest is a single round sent to the DiscoveryService.
type SearchRequest struct {
	Near         Coordinates
	Query        string
	RadiusMeters int
	Limit        int
	Filters      SearchFilters
}

// Generation is the output of a TextGenerator.
type Generation struct {
	Message string
	Debug   string
}

// DispatchState is the coarse state of a Dispatcher.
type DispatchState string

const (
	// StateIdle means no action is in flight.
	StateIdle DispatchState = "idle"
	// StateBusy means an action is running.
	StateBusy DispatchState = "busy"
)

// DispatcherState is a snapshot of the fields a Dispatcher publishes to its caller.
type DispatcherState struct {
	IsBusy           bool
	LastOutput       string
	LastResult       *ActionResult
	ErrorMessage     *string
	DebugLog         string
	CurrentStyleHint *string
}
