package actions

import (
	"context"
	"fmt"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

// Greeting writes a good-morning message for a contact.
type Greeting struct {
	Generator assist.TextGenerator
	Recipient string
	// StyleHint is the contact's remembered writing style, if any.
	StyleHint string
}

func (Greeting) ID() string          { return GreetingID }
func (Greeting) DisplayName() string { return "Good morning" }
func (g Greeting) Summary() string {
	if g.Recipient == "" {
		return "Write a good-morning message"
	}
	return "Write a good-morning message to " + g.Recipient
}

// PreloadHint surfaces the contact's style hint before generation starts.
func (g Greeting) PreloadHint() (string, bool) { return g.StyleHint, true }

func (g Greeting) DebugContext() map[string]any {
	return map[string]any{"recipient": g.Recipient}
}

func (g Greeting) Run(ctx context.Context) (assist.ActionResult, error) {
	prompt := "Write a short good-morning message."
	if g.Recipient != "" {
		prompt = fmt.Sprintf("Write a short good-morning message to %s.", g.Recipient)
	}
	out, err := generate(ctx, g.Generator, GreetingID, prompt, g.StyleHint)
	if err != nil {
		return assist.ActionResult{}, err
	}
	return generatedResult(out), nil
}
