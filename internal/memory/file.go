// Package memory handles the trace export file: a JSON snapshot of one graph
// plus its conversation, used to move a trace between machines without the
// database.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/mbucher/cotrace/internal/graph"
	"github.com/mbucher/cotrace/internal/logging"
	"github.com/mbucher/cotrace/internal/types"
)

const traceFileVersion = 1

// ErrNotFound is returned when no usable trace file exists at the path.
// A missing or malformed file is a normal condition, not a failure.
var ErrNotFound = fmt.Errorf("trace file not found")

// SaveTrace writes the graph and conversation to path as JSON.
func SaveTrace(path string, g *graph.Graph, messages []types.Message) error {
	nodes := g.Nodes()
	seq := make([]int, 0, len(nodes))
	for _, n := range nodes {
		seq = append(seq, n.ID)
	}

	tf := types.TraceFile{
		Version:      traceFileVersion,
		UpdatedAt:    time.Now().UTC(),
		CallSequence: seq,
		Nodes:        nodes,
		Edges:        g.Edges(),
		Messages:     messages,
	}

	data, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write trace file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace trace file: %w", err)
	}
	return nil
}

// LoadTrace reads a trace file back into a graph and conversation. The file
// must hold at least one node; anything missing or malformed is ErrNotFound.
func LoadTrace(path string) (*graph.Graph, []types.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to read trace file: %w", err)
	}

	var tf types.TraceFile
	if err := json.Unmarshal(data, &tf); err != nil {
		logging.Debug("memory", "malformed trace file %s: %v", path, err)
		return nil, nil, ErrNotFound
	}
	if len(tf.Nodes) == 0 {
		return nil, nil, ErrNotFound
	}

	return graph.FromParts(tf.Nodes, tf.Edges), tf.Messages, nil
}
