package story

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LoadGraph loads a story graph from a JSON file in the runtime's graph export format.
func LoadGraph(path string) (*StoryGraph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story graph file: %w", err)
	}
	defer f.Close()

	return DecodeGraph(f)
}

// DecodeGraph decodes a story graph from JSON.
func DecodeGraph(r io.Reader) (*StoryGraph, error) {
	var g StoryGraph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to parse story graph JSON: %w", err)
	}
	return &g, nil
}
