package completion

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mbucher/cotrace/internal/types"
)

const (
	deepSeekBaseURL = "https://api.deepseek.com/v1"
	nineEBaseURL    = "https://api.9e.lv/v1"

	maxCompletionTokens = 8192
)

// openAICompat talks to any OpenAI-compatible chat endpoint (DeepSeek, and
// the 9e proxy fronting Gemini). DeepSeek's reasoner surfaces its chain of
// thought in reasoning_content.
type openAICompat struct {
	provider string
	model    string
	client   *openai.Client
}

func newOpenAICompat(provider, baseURL, model, apiKey string) (*openAICompat, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &Error{Provider: provider, Err: fmt.Errorf("API key not set")}
	}
	// Keys with non-ASCII bytes are always paste errors; fail early instead
	// of sending a malformed Authorization header.
	for _, r := range apiKey {
		if r > 127 {
			return nil, &Error{Provider: provider, Err: fmt.Errorf("API key contains non-ASCII characters")}
		}
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &openAICompat{
		provider: provider,
		model:    model,
		client:   openai.NewClientWithConfig(cfg),
	}, nil
}

func (c *openAICompat) Name() string { return c.model }

func (c *openAICompat) Complete(ctx context.Context, messages []types.Message) (string, string, error) {
	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toOpenAIMessages(messages),
		MaxTokens: maxCompletionTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", "", &Error{Provider: c.provider, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", "", &Error{Provider: c.provider, Err: fmt.Errorf("no choices in response")}
	}

	msg := resp.Choices[0].Message
	content := strings.TrimSpace(msg.Content)
	reasoning := msg.ReasoningContent
	return content, reasoning, nil
}

func toOpenAIMessages(messages []types.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}
