package session

import (
	"fmt"

	"github.com/mbucher/cotrace/internal/extract"
)

// fragmentInstructions explains the delimited JSON block every fragment
// request expects back. Node kinds double as shape hints for renderers.
var fragmentInstructions = fmt.Sprintf(`Flowchart rules: kind "step" = process step (rectangle), "decision" = branch (diamond), "terminal" = start/end (rounded).

At the end of your answer, output the flowchart JSON in exactly this format:
%s
{"nodes":[{"id":1,"kind":"step","text":"..."}],"edges":[{"from":1,"to":2,"label":""}]}
%s`, extract.FragmentStartMarker, extract.FragmentEndMarker)

// fragmentFromReasoningPrompt asks the model to structure a reasoning blob
// as a fragment.
func fragmentFromReasoningPrompt(reasoning string) string {
	return fmt.Sprintf(`Convert the following reasoning into a flowchart of short steps. Output must be pure flowchart JSON, no other text.

%s

Reasoning:
%s`, fragmentInstructions, reasoning)
}

// continuationPrompt asks the model to extend an existing chain. The new
// steps must not repeat what the chain already covers.
func continuationPrompt(seed, supplement string) string {
	p := fmt.Sprintf(`Based on the following chain-of-thought steps, continue the reasoning. Output must be pure flowchart JSON, no other text.

IMPORTANT: the continuation must not repeat existing steps.

%s

Current chain:
%s`, fragmentInstructions, seed)
	if supplement != "" {
		p += fmt.Sprintf("\n\nUser supplement: %s", supplement)
	}
	return p
}

// answerPrompt asks for a direct user-facing answer grounded in the bright
// chain, with no flowchart output.
func answerPrompt(brightTexts []string, userText string) string {
	chain := ""
	for i, t := range brightTexts {
		chain += fmt.Sprintf("%d. %s\n", i+1, t)
	}
	return fmt.Sprintf(`Answer the user directly based on the chain-of-thought steps below. Do not repeat the steps, do not output a flowchart or JSON, give only the user-facing answer.

Current chain:
%s
User supplement: %s`, chain, userText)
}
