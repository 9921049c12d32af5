package assist

import "context"

// Action is a unit of orchestrated work with captured inputs.
type Action interface {
	// ID is a stable machine identifier, used in errors and debug traces.
	ID() string

	// DisplayName is a short human-readable name.
	DisplayName() string

	// Summary describes what the action does.
	Summary() string

	// Run performs the action using only its captured inputs and collaborators.
	// It must not touch dispatcher state.
	Run(ctx context.Context) (ActionResult, error)
}

// PreloadHintProvider is implemented by actions that carry a style hint the
// dispatcher should surface before the action runs. ok=false leaves the
// current hint alone; ok=true with an empty hint clears it.
type PreloadHintProvider interface {
	PreloadHint() (hint string, ok bool)
}

// DebugContextProvider is implemented by actions that contribute
// action-specific fields to the dispatcher's debug trace.
type DebugContextProvider interface {
	DebugContext() map[string]any
}

// ResultDebugContextProvider is implemented by actions whose debug fields
// depend on the result they produced (e.g. the number of search rounds).
type ResultDebugContextProvider interface {
	ResultDebugContext(result ActionResult) map[string]any
}

// TextGenerator is the hosted language model.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, styleHint *string) (Generation, error)
}

// CalendarClient reads the device calendar.
type CalendarClient interface {
	RequestAccessIfNeeded(ctx context.Context) error

	// FetchTodayScheduleSummary summarizes today's events. A nil allowed set
	// means every calendar.
	FetchTodayScheduleSummary(ctx context.Context, allowedCalendarIDs map[string]struct{}) (string, error)
}

// LocationClient reports the device position.
type LocationClient interface {
	CurrentLocation(ctx context.Context) (Coordinates, error)
}

// DiscoveryService searches for restaurants around a point.
type DiscoveryService interface {
	SearchRestaurants(ctx context.Context, req SearchRequest) ([]Restaurant, error)
}

// MessageFormatter builds the context block for a reply from the most recent
// message, its sender and optional earlier messages. It cannot fail.
type MessageFormatter func(message, sender string, history []string) string

// Cache stores text payloads that are expensive to produce.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string) error
}
