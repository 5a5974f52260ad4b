// Package extract turns free-form model output into structured pieces: step
// sentences for seeding a trace, <think> blocks, and display text with the
// fragment block removed.
package extract

import (
	"regexp"
	"strings"

	"github.com/tsawler/prose/v3"
)

// MaxSteps caps how many steps are extracted from one reasoning blob.
const MaxSteps = 30

// chunkRunes is the fallback chunk size when no sentence boundaries are found.
const chunkRunes = 80

var cjkSentenceEnd = regexp.MustCompile(`(?m)([。！？!?])\s*`)

// Steps splits reasoning text into at most MaxSteps step sentences.
// Paragraphs are segmented with prose; CJK text, which prose's English
// tokenizer leaves whole, is split on 。！？ terminators. Text that yields a
// single oversized step is chunked by rune count instead.
func Steps(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var steps []string
	paragraphs := splitParagraphs(text)
	for _, p := range paragraphs {
		for _, line := range strings.Split(p, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			for _, sent := range sentences(line) {
				sent = strings.TrimSpace(sent)
				if sent != "" {
					steps = append(steps, sent)
				}
			}
		}
		if len(steps) >= MaxSteps {
			break
		}
	}

	// No usable boundaries: chunk long paragraphs by length.
	if len(steps) <= 1 && len(paragraphs) > 0 {
		steps = steps[:0]
		for _, p := range paragraphs {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			runes := []rune(p)
			for i := 0; i < len(runes); i += chunkRunes {
				end := i + chunkRunes
				if end > len(runes) {
					end = len(runes)
				}
				steps = append(steps, string(runes[i:end]))
				if len(steps) >= MaxSteps {
					break
				}
			}
			if len(steps) >= MaxSteps {
				break
			}
		}
	}

	if len(steps) > MaxSteps {
		steps = steps[:MaxSteps]
	}
	return steps
}

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range regexp.MustCompile(`\n\s*\n`).Split(text, -1) {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentences segments one line. CJK terminators are handled first since prose
// only understands Latin-script boundaries.
func sentences(line string) []string {
	if cjkSentenceEnd.MatchString(line) {
		marked := cjkSentenceEnd.ReplaceAllString(line, "$1\x00")
		var out []string
		for _, s := range strings.Split(marked, "\x00") {
			if strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		return out
	}

	var parts []string
	doc, err := prose.NewDocument(line, prose.WithTagging(false), prose.WithExtraction(false))
	if err != nil {
		return []string{line}
	}
	for _, s := range doc.Sentences() {
		parts = append(parts, s.Text)
	}
	if len(parts) == 0 {
		return []string{line}
	}
	return parts
}
