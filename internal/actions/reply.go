package actions

import (
	"context"
	"fmt"
	"strings"

	assist "github.com/ZanzyTHEbar/dragonscale-assist"
)

// DefaultFormatter lists earlier messages oldest first, then the message being replied to.
func DefaultFormatter(message, sender string, history []string) string {
	var b strings.Builder
	if len(history) > 0 {
		b.WriteString("Earlier messages:\n")
		for _, h := range history {
			fmt.Fprintf(&b, "- %s\n", h)
		}
		b.WriteString("\n")
	}
	if sender == "" {
		sender = "Someone"
	}
	fmt.Fprintf(&b, "%s wrote: %s", sender, message)
	return b.String()
}

// Reply drafts an answer to the most recent message from a contact.
type Reply struct {
	Generator assist.TextGenerator
	// Formatter builds the conversation block; nil uses DefaultFormatter.
	Formatter assist.MessageFormatter
	Message   string
	Sender    string
	History   []string
	StyleHint string
}

func (Reply) ID() string          { return ReplyID }
func (Reply) DisplayName() string { return "Reply" }
func (r Reply) Summary() string {
	if r.Sender == "" {
		return "Draft a reply"
	}
	return "Draft a reply to " + r.Sender
}

// PreloadHint surfaces the sender's style hint before generation starts.
func (r Reply) PreloadHint() (string, bool) { return r.StyleHint, true }

func (r Reply) DebugContext() map[string]any {
	return map[string]any{
		"sender":         r.Sender,
		"history_length": len(r.History),
	}
}

func (r Reply) Run(ctx context.Context) (assist.ActionResult, error) {
	if strings.TrimSpace(r.Message) == "" {
		return assist.ActionResult{}, assist.NewValidationError(ReplyID, "there is no message to reply to", nil)
	}
	format := r.Formatter
	if format == nil {
		format = DefaultFormatter
	}
	prompt := "Draft a reply to this conversation.\n\n" + format(r.Message, r.Sender, r.History)
	out, err := generate(ctx, r.Generator, ReplyID, prompt, r.StyleHint)
	if err != nil {
		return assist.ActionResult{}, err
	}
	return generatedResult(out), nil
}
