package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
	"github.com/ZanzyTHEbar/dragonscale-assist/internal/logger"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// contentModels is the part of genai.Models the generator calls.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator calls the Gemini API directly.
type GeminiGenerator struct {
	models contentModels
	model  string
	logger logger.Logger
}

// GeminiOption configures a GeminiGenerator.
type GeminiOption func(*GeminiGenerator)

// WithModel overrides DefaultGeminiModel.
func WithModel(model string) GeminiOption {
	return func(g *GeminiGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) GeminiOption {
	return func(g *GeminiGenerator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGeminiGenerator creates a generator for the Gemini API.
func NewGeminiGenerator(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, assist.NewConfigurationMissingError(stage, "no Gemini API key configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGeminiGenerator(client.Models, opts...), nil
}

func newGeminiGenerator(models contentModels, opts ...GeminiOption) *GeminiGenerator {
	g := &GeminiGenerator{
		models: models,
		model:  DefaultGeminiModel,
		logger: logger.New("gemini"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate implements assist.TextGenerator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, styleHint *string) (assist.Generation, error) {
	var config *genai.GenerateContentConfig
	if hint := hintValue(styleHint); hint != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("Write in this style: "+hint, genai.RoleUser),
		}
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		g.logger.Warnf("gemini %s: %v", g.model, err)
		return assist.Generation{}, wrapError(ctx, err)
	}
	if resp == nil {
		return assist.Generation{}, assist.NewInvalidResponseError(stage, "the model returned no response", nil)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return assist.Generation{}, assist.NewInvalidResponseError(stage, "the model returned an empty message", nil)
	}

	debug := "model=" + g.model
	if resp.UsageMetadata != nil {
		debug += fmt.Sprintf(" tokens=%d", resp.UsageMetadata.TotalTokenCount)
	}
	return assist.Generation{Message: text, Debug: debug}, nil
}
