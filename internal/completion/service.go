// Package completion defines the abstract text-completion contract the engine
// consumes, plus one implementation per supported provider. Providers form a
// closed set; there is no free-form mode dispatch.
package completion

import (
	"context"
	"fmt"

	"github.com/mbucher/cotrace/internal/types"
)

// Service is a single text-completion call. Implementations return the reply
// body and, when the provider exposes it, the model's reasoning text.
// Failures are returned as *Error, never as silent empty results.
type Service interface {
	// Complete sends the conversation and returns (content, reasoning).
	Complete(ctx context.Context, messages []types.Message) (string, string, error)
	// Name identifies the provider/model for session records.
	Name() string
}

// Mode selects a provider.
type Mode string

const (
	ModeDeepSeek    Mode = "deepseek"
	ModeGeminiFlash Mode = "gemini_flash"
	ModeGeminiPro   Mode = "gemini_pro"
	ModeOllama      Mode = "ollama"
)

// Error is a typed completion-service failure.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options carries provider settings resolved from env/config by the caller.
type Options struct {
	APIKey      string // cloud providers
	BaseURL     string // override provider default
	OllamaModel string // required for ModeOllama
}

// New builds the Service for a mode.
func New(mode Mode, opts Options) (Service, error) {
	switch mode {
	case ModeDeepSeek:
		return newOpenAICompat("deepseek", defaultStr(opts.BaseURL, deepSeekBaseURL), "deepseek-reasoner", opts.APIKey)
	case ModeGeminiFlash:
		return newOpenAICompat("gemini-flash", defaultStr(opts.BaseURL, nineEBaseURL), "gemini-2.0-flash", opts.APIKey)
	case ModeGeminiPro:
		return newOpenAICompat("gemini-pro", defaultStr(opts.BaseURL, nineEBaseURL), "gemini-3-pro-preview", opts.APIKey)
	case ModeOllama:
		if opts.OllamaModel == "" {
			return nil, fmt.Errorf("ollama mode requires a model name")
		}
		return NewOllama(opts.BaseURL, opts.OllamaModel), nil
	default:
		return nil, fmt.Errorf("unknown completion mode: %q", mode)
	}
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
