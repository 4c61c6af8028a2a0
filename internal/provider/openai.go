package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OpenAIRunner is the conversational agent runtime. It owns multi-turn
// history per (user, session) composite key, bounded to maxHistory recent
// messages, and accepts the API credential per call so the retry layer can
// rotate keys without touching process state.
type OpenAIRunner struct {
	tracer     trace.Tracer
	client     openai.Client
	model      string
	maxHistory int

	mu      sync.Mutex
	history map[string][]openai.ChatCompletionMessageParamUnion
}

func NewOpenAIRunner(tracer trace.Tracer, model string, maxHistory int) *OpenAIRunner {
	return &OpenAIRunner{
		tracer:     tracer,
		client:     openai.NewClient(),
		model:      model,
		maxHistory: maxHistory,
		history:    make(map[string][]openai.ChatCompletionMessageParamUnion),
	}
}

// Run sends prompt for the given session key and returns the raw model
// text. History is only recorded on success, so failed attempts can be
// retried without duplicating turns.
func (r *OpenAIRunner) Run(ctx context.Context, apiKey, userID, sessionID, system, prompt string) (string, error) {
	ctx, span := r.tracer.Start(ctx, "openai-runner.run")
	span.SetAttributes(attribute.String("session", userID+sessionID))
	defer span.End()

	key := userID + sessionID

	r.mu.Lock()
	prior := make([]openai.ChatCompletionMessageParamUnion, len(r.history[key]))
	copy(prior, r.history[key])
	r.mu.Unlock()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(prior)+2)
	messages = append(messages, openai.SystemMessage(system))
	messages = append(messages, prior...)
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(r.model),
		Messages: messages,
	}, option.WithAPIKey(apiKey))
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	content := resp.Choices[0].Message.Content

	r.mu.Lock()
	turns := append(r.history[key],
		openai.UserMessage(prompt),
		openai.AssistantMessage(content),
	)
	if r.maxHistory > 0 && len(turns) > r.maxHistory {
		turns = turns[len(turns)-r.maxHistory:]
	}
	r.history[key] = turns
	r.mu.Unlock()

	return content, nil
}

// HistoryLen reports the stored message count for a session key.
func (r *OpenAIRunner) HistoryLen(userID, sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history[userID+sessionID])
}
