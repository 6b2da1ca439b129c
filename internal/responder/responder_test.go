package responder

import (
	"context"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalResponder_Deterministic(t *testing.T) {
	ctx := context.Background()
	r := NewLocalResponder()

	first, err := r.Respond(ctx, "c1", "Fix the database error in the deploy script")
	require.NoError(t, err)
	second, err := r.Respond(ctx, "c1", "Fix the database error in the deploy script")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLocalResponder_EchoesUserText(t *testing.T) {
	ctx := context.Background()
	r := NewLocalResponder()

	reply, err := r.Respond(ctx, "c1", "schedule the launch review")
	require.NoError(t, err)
	assert.Contains(t, reply, "schedule the launch review")
}

func TestLocalResponder_TruncatesLongEcho(t *testing.T) {
	ctx := context.Background()
	r := NewLocalResponder()

	long := strings.Repeat("budget ", 40)
	reply, err := r.Respond(ctx, "c1", long)
	require.NoError(t, err)
	assert.Contains(t, reply, "…")
	assert.Less(t, len(reply), len(long))
}

func TestReplyFrom(t *testing.T) {
	_, ok := replyFrom(openai.ChatCompletionResponse{})
	assert.False(t, ok, "no choices should not produce a reply")

	_, ok = replyFrom(openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "   "}},
		},
	})
	assert.False(t, ok, "blank content should not produce a reply")

	reply, ok := replyFrom(openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: " All set. "}},
		},
	})
	assert.True(t, ok)
	assert.Equal(t, "All set.", reply)
}
