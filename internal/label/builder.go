// Package label derives the short retrieval label stored alongside a saved
// trace. BuildRaw picks and caps node texts per configuration; ApplyFormat
// optionally rewrites the raw label through the completion service.
package label

import (
	"context"
	"strings"
	"time"

	"github.com/mbucher/cotrace/internal/completion"
	"github.com/mbucher/cotrace/internal/logging"
	"github.com/mbucher/cotrace/internal/types"
)

const (
	singleNodeLimit = 500
	fallbackLimit   = 300
	aiRawLimit      = 1500

	aiFormatTimeout = 60 * time.Second
)

// BuildRaw derives the raw label from the node texts in append order. Texts
// concatenate directly inside a part; the separator only joins parts. A label
// that ends up blank falls back to the first node's text in every mode.
func BuildRaw(nodeTexts []string, cfg Config) string {
	if len(nodeTexts) == 0 {
		return ""
	}
	if len(nodeTexts) == 1 {
		return capRunes(nodeTexts[0], singleNodeLimit)
	}

	var parts []string
	switch cfg.RawParts {
	case PartsFirstOnly:
		parts = []string{capRunes(nodeTexts[0], cfg.AfterFirstLimit)}
	case PartsLastOnly:
		parts = []string{capRunes(nodeTexts[len(nodeTexts)-1], cfg.BeforeLastLimit)}
	case PartsAll:
		parts = []string{capRunes(strings.Join(nodeTexts, ""), cfg.AfterFirstLimit+cfg.BeforeLastLimit)}
	default:
		// after_first_and_before_last
		afterFirst := capRunes(strings.Join(nodeTexts[1:], ""), cfg.AfterFirstLimit)
		beforeLast := capRunes(strings.Join(nodeTexts[:len(nodeTexts)-1], ""), cfg.BeforeLastLimit)
		if afterFirst != "" || beforeLast != "" {
			parts = []string{afterFirst, beforeLast}
		} else {
			parts = []string{capRunes(nodeTexts[0], fallbackLimit)}
		}
	}

	kept := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	out := strings.TrimSpace(strings.Join(kept, cfg.Separator))
	if out == "" {
		return capRunes(nodeTexts[0], fallbackLimit)
	}
	return out
}

// ApplyFormat produces the final stored label from the raw one. The ai mode
// asks the completion service for a one-sentence summary and falls back to
// the truncated raw label on any failure or empty reply.
func ApplyFormat(ctx context.Context, raw string, cfg Config, svc completion.Service) string {
	switch cfg.FormatMode {
	case FormatRaw:
		return capRunes(raw, cfg.OutputMaxLen)
	case FormatCustom:
		out := strings.ReplaceAll(cfg.CustomTemplate, "{raw_label}", raw)
		return capRunes(out, cfg.OutputMaxLen)
	default:
		// ai
		if svc == nil {
			return capRunes(raw, cfg.OutputMaxLen)
		}
		prompt := strings.ReplaceAll(cfg.AIPrompt, "{raw_label}", capRunes(raw, aiRawLimit))
		ctx, cancel := context.WithTimeout(ctx, aiFormatTimeout)
		defer cancel()
		content, _, err := svc.Complete(ctx, []types.Message{{Role: "user", Content: prompt}})
		if err != nil || strings.TrimSpace(content) == "" {
			if err != nil {
				logging.Debug("label", "ai format failed, using raw: %v", err)
			}
			return capRunes(raw, cfg.OutputMaxLen)
		}
		return capRunes(strings.TrimSpace(content), cfg.OutputMaxLen)
	}
}

// capRunes truncates s to at most n runes. Limits count runes so CJK text is
// not cut mid-character.
func capRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
