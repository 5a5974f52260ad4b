package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mbucher/cotrace/internal/extract"
	"github.com/mbucher/cotrace/internal/types"
)

// maxOllamaMessages bounds the conversation sent to a local model. Local
// context windows are small; older turns are dropped from the front.
const maxOllamaMessages = 12

// Ollama talks to a local Ollama server via /api/chat.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates a client for a local Ollama server.
func NewOllama(baseURL, model string) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client: &http.Client{
			Timeout: 180 * time.Second, // local generation can be slow
		},
	}
}

func (o *Ollama) Name() string { return o.model }

type ollamaMessage struct {
	Role     string `json:"role"`
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Think    *bool           `json:"think,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// Complete sends the conversation to /api/chat. Reasoning models return their
// chain of thought in message.thinking; models that inline it in <think> tags
// are handled via extraction. Models that reject the think option (400) get a
// single retry without it.
func (o *Ollama) Complete(ctx context.Context, messages []types.Message) (string, string, error) {
	msgs := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		msgs = append(msgs, ollamaMessage{Role: role, Content: sanitize(m.Content)})
	}
	if len(msgs) > maxOllamaMessages {
		msgs = msgs[len(msgs)-maxOllamaMessages:]
	}

	think := true
	resp, status, err := o.chat(ctx, ollamaChatRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   false,
		Think:    &think,
	})
	if status == http.StatusBadRequest {
		// Model doesn't support the think option.
		resp, _, err = o.chat(ctx, ollamaChatRequest{
			Model:    o.model,
			Messages: msgs,
			Stream:   false,
		})
	}
	if err != nil {
		return "", "", &Error{Provider: "ollama", Err: err}
	}

	content := strings.TrimSpace(resp.Message.Content)
	reasoning := strings.TrimSpace(resp.Message.Thinking)
	if reasoning == "" {
		reasoning = extract.Think(content)
	}
	return content, reasoning, nil
}

func (o *Ollama) chat(ctx context.Context, reqBody ollamaChatRequest) (*ollamaChatResponse, int, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return &result, resp.StatusCode, nil
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the model names available on the server.
func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var result ollamaTagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	names := make([]string, 0, len(result.Models))
	for _, m := range result.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// sanitize strips control characters that break JSON encoding of pasted text.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
