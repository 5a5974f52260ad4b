package graph

import (
	"encoding/json"
	"strings"

	"github.com/mbucher/cotrace/internal/extract"
	"github.com/mbucher/cotrace/internal/types"
)

// fragmentWire mirrors the delimited JSON block the completion service emits.
// Edges uses a pointer so a missing array can be told apart from an empty one.
type fragmentWire struct {
	Nodes []types.Node  `json:"nodes"`
	Edges *[]types.Edge `json:"edges"`
}

// ParseFragment extracts the delimited flowchart JSON block from raw
// completion text. A fragment is accepted only if the block parses as JSON
// with a non-empty nodes array and a present (possibly empty) edges array.
// Anything else is "no fragment produced", reported via ok, never an error.
func ParseFragment(raw string) (types.Fragment, bool) {
	jsonText, ok := extractJSONBlock(raw)
	if !ok {
		return types.Fragment{}, false
	}

	var wire fragmentWire
	if err := json.Unmarshal([]byte(jsonText), &wire); err != nil {
		return types.Fragment{}, false
	}
	if len(wire.Nodes) == 0 || wire.Edges == nil {
		return types.Fragment{}, false
	}

	return types.Fragment{Nodes: wire.Nodes, Edges: *wire.Edges}, true
}

// extractJSONBlock finds the JSON object between the fragment markers by
// brace matching from the first opening brace after the start marker. String
// literals are skipped so braces inside node text don't break the count.
func extractJSONBlock(raw string) (string, bool) {
	start := strings.Index(raw, extract.FragmentStartMarker)
	if start < 0 {
		return "", false
	}
	rest := raw[start+len(extract.FragmentStartMarker):]
	if end := strings.Index(rest, extract.FragmentEndMarker); end >= 0 {
		rest = rest[:end]
	}

	open := strings.Index(rest, "{")
	if open < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(rest); i++ {
		c := rest[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[open : i+1], true
			}
		}
	}
	return "", false
}
