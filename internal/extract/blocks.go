package extract

import (
	"regexp"
	"strings"
)

var thinkBlock = regexp.MustCompile(`(?is)<think(?:ing)?>(.*?)</think(?:ing)?>`)

// FragmentStartMarker and FragmentEndMarker delimit the flowchart JSON block
// the completion service is instructed to emit.
const (
	FragmentStartMarker = "---FLOWCHART-JSON---"
	FragmentEndMarker   = "---END---"
)

var fragmentBlock = regexp.MustCompile(`(?s)\s*` + FragmentStartMarker + `.*?` + FragmentEndMarker + `\s*`)

// Think pulls the contents of <think>/<thinking> blocks out of content.
// Models that fold their reasoning into the reply body end up here.
func Think(content string) string {
	if content == "" {
		return ""
	}
	var parts []string
	for _, m := range thinkBlock.FindAllStringSubmatch(content, -1) {
		if p := strings.TrimSpace(m[1]); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

// StripFragmentBlock removes the delimited flowchart JSON block from reply
// text, leaving only what should be shown to the user.
func StripFragmentBlock(content string) string {
	if content == "" {
		return content
	}
	return strings.TrimSpace(fragmentBlock.ReplaceAllString(content, ""))
}
