package responder

import (
	"context"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const systemPrompt = `You are Jarvis, a concise personal assistant for a small business dashboard.
Answer the user's message helpfully in a few sentences. Do not invent data you were not given.`

// OpenAIResponder generates replies with a chat completion model and falls
// back to the local templates when the API call fails.
type OpenAIResponder struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	fallback    *LocalResponder
	logger      *zap.Logger
}

func NewOpenAIResponder(apiKey, model string, maxTokens int, temperature float64, logger *zap.Logger) *OpenAIResponder {
	return &OpenAIResponder{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		fallback:    NewLocalResponder(),
		logger:      logger,
	}
}

func (r *OpenAIResponder) Respond(ctx context.Context, conversationID, userText string) (string, error) {
	resp, err := r.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: r.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userText,
				},
			},
			MaxTokens:   r.maxTokens,
			Temperature: float32(r.temperature),
		},
	)
	if err != nil {
		r.logger.Error("Failed to get completion, using local fallback",
			zap.Error(err),
			zap.String("conversation_id", conversationID))
		return r.fallback.Respond(ctx, conversationID, userText)
	}

	reply, ok := replyFrom(resp)
	if !ok {
		return r.fallback.Respond(ctx, conversationID, userText)
	}
	return reply, nil
}

// replyFrom extracts a usable reply from a completion response, reporting
// false when the response carries no choices or only whitespace.
func replyFrom(resp openai.ChatCompletionResponse) (string, bool) {
	if len(resp.Choices) == 0 {
		return "", false
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", false
	}
	return reply, true
}
