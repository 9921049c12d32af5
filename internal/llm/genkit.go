package llm

import (
	"context"
	"strings"

	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

// Flow is the Genkit flow type used for text generation.
type Flow = core.Flow[*GenerateInput, *GenerateOutput, struct{}]

// flowRunner is the part of a Flow the generator needs.
type flowRunner interface {
	Run(ctx context.Context, input *GenerateInput) (*GenerateOutput, error)
}

// GenkitGenerator uses a Genkit flow to implement assist.TextGenerator.
type GenkitGenerator struct {
	flow flowRunner
}

// NewGenkitGenerator creates a generator backed by flow.
func NewGenkitGenerator(flow *Flow) *GenkitGenerator {
	g := &GenkitGenerator{}
	if flow != nil {
		g.flow = flow
	}
	return g
}

// Generate implements assist.TextGenerator.
func (a *GenkitGenerator) Generate(ctx context.Context, prompt string, styleHint *string) (assist.Generation, error) {
	if a.flow == nil {
		return assist.Generation{}, assist.NewConfigurationMissingError(stage, "generation flow is not configured")
	}

	out, err := a.flow.Run(ctx, &GenerateInput{Prompt: prompt, StyleHint: hintValue(styleHint)})
	if err != nil {
		return assist.Generation{}, wrapError(ctx, err)
	}
	if out == nil || strings.TrimSpace(out.Message) == "" {
		return assist.Generation{}, assist.NewInvalidResponseError(stage, "the model returned an empty message", nil)
	}
	return assist.Generation{Message: out.Message, Debug: out.Debug}, nil
}

// DefineGenerateFlow registers a flow named name that delegates to backend,
// so generations show up in Genkit traces.
func DefineGenerateFlow(g *genkit.Genkit, name string, backend assist.TextGenerator) *Flow {
	return genkit.DefineFlow(g, name, func(ctx context.Context, in *GenerateInput) (*GenerateOutput, error) {
		var hint *string
		if in.StyleHint != "" {
			hint = &in.StyleHint
		}
		out, err := backend.Generate(ctx, in.Prompt, hint)
		if err != nil {
			return nil, err
		}
		return &GenerateOutput{Message: out.Message, Debug: out.Debug}, nil
	})
}
