// Package llm provides the TextGenerator implementations used by the
// assistant: a Genkit flow, a direct Gemini client and an offline
// template generator.
package llm

import (
	"context"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

const stage = "llm"

// Provider names accepted by the configuration.
const (
	ProviderGenkit   = "genkit"
	ProviderGemini   = "gemini"
	ProviderTemplate = "template"
)

// GenerateInput is what a generation flow receives.
type GenerateInput struct {
	Prompt    string `json:"prompt"`
	StyleHint string `json:"style_hint,omitempty"`
}

// GenerateOutput is what a generation flow returns.
type GenerateOutput struct {
	Message string `json:"message"`
	Debug   string `json:"debug,omitempty"`
}

func hintValue(hint *string) string {
	if hint == nil {
		return ""
	}
	return *hint
}

// wrapError keeps typed errors, maps context failures and treats anything
// else as a failed request.
func wrapError(ctx context.Context, err error) error {
	if assist.IsAssistError(err) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return assist.FromContext(stage, ctxErr)
	}
	return assist.NewNetworkError(stage, err)
}
