package fixture

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
)

//go:embed examples/*.yaml
var examplesFS embed.FS

// Examples returns the names of the built-in example stories.
func Examples() []string {
	entries, err := examplesFS.ReadDir("examples")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Example returns the source of a built-in example.
func Example(name string) (string, bool) {
	b, err := examplesFS.ReadFile("examples/" + name + ".yaml")
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Source resolves ref to fixture source: a built-in example name, or
// otherwise a file path.
func Source(ref string) (string, error) {
	if src, ok := Example(ref); ok {
		return src, nil
	}
	b, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("story %q is neither a built-in example nor a readable file: %w", ref, err)
	}
	return string(b), nil
}
