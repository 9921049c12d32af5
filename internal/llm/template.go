package llm

import (
	"context"
	"sort"
	"strings"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

// TemplateGenerator answers from canned replies, for offline runs and demos.
// A reply is chosen by the longest key contained in the prompt.
type TemplateGenerator struct {
	replies  map[string]string
	keys     []string
	fallback string
}

// NewTemplateGenerator creates a generator from keyword to reply pairs.
// An empty fallback makes unmatched prompts fail.
func NewTemplateGenerator(replies map[string]string, fallback string) *TemplateGenerator {
	keys := make([]string, 0, len(replies))
	for k := range replies {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return &TemplateGenerator{replies: replies, keys: keys, fallback: fallback}
}

// Generate implements assist.TextGenerator.
func (t *TemplateGenerator) Generate(ctx context.Context, prompt string, styleHint *string) (assist.Generation, error) {
	if err := ctx.Err(); err != nil {
		return assist.Generation{}, assist.FromContext(stage, err)
	}

	lower := strings.ToLower(prompt)
	reply, key := t.fallback, ""
	for _, k := range t.keys {
		if strings.Contains(lower, strings.ToLower(k)) {
			reply, key = t.replies[k], k
			break
		}
	}
	if reply == "" {
		return assist.Generation{}, assist.NewInvalidResponseError(stage, "no canned reply matches the prompt", nil)
	}

	debug := "template"
	if key != "" {
		debug += " key=" + key
	}
	if hint := hintValue(styleHint); hint != "" {
		debug += " style=" + hint
	}
	return assist.Generation{Message: reply, Debug: debug}, nil
}
