package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/xaenox/jarvis/internal/classifier"
	"github.com/xaenox/jarvis/internal/models"
)

// Responder produces the assistant's reply for a user message. How the reply
// is generated is an implementation detail; the domain layer only needs a
// string back.
type Responder interface {
	Respond(ctx context.Context, conversationID, userText string) (string, error)
}

// LocalResponder answers deterministically from canned templates keyed by the
// classified category of the user message. It is the default when no API key
// is configured and the fallback when the remote model is unreachable.
type LocalResponder struct{}

func NewLocalResponder() *LocalResponder {
	return &LocalResponder{}
}

var localTemplates = map[string]string{
	models.CategoryTechnical: "That sounds like a technical question. Let me note it down: %q. Could you share any error output or code context?",
	models.CategoryPlanning:  "Got it, this is a planning item: %q. I've saved it so we can track milestones and deadlines around it.",
	models.CategoryAnalysis:  "Understood, you'd like some analysis: %q. I've recorded the request; what data should we look at first?",
	models.CategoryCreative:  "Fun, a creative one: %q. I've saved the idea so we can build on it later.",
	models.CategoryGeneral:   "Noted: %q. I've saved that for you. Anything else you'd like me to remember?",
}

func (r *LocalResponder) Respond(_ context.Context, _ string, userText string) (string, error) {
	category := classifier.Categorize(models.CategoryGeneral, userText)
	template, ok := localTemplates[category]
	if !ok {
		template = localTemplates[models.CategoryGeneral]
	}
	return fmt.Sprintf(template, summarize(userText)), nil
}

// summarize trims the echoed text so replies stay short.
func summarize(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > 80 {
		return string(runes[:80]) + "…"
	}
	return text
}
