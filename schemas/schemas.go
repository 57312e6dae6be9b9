// Package schemas embeds the JSON Schema documents that describe completion responses
// and the persisted pipeline state.
package schemas

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.schema.json
var schemaFS embed.FS

// Schema names.
const (
	ChunkResult = "chunk_result"
	Candidates  = "candidates"
	Verdict     = "verdict"
	State       = "state"
)

const suffix = ".schema.json"

// Get returns the raw schema document registered under name.
func Get(name string) (string, error) {
	data, err := schemaFS.ReadFile(name + suffix)
	if err != nil {
		return "", fmt.Errorf("schema %q not found: %w", name, err)
	}
	return string(data), nil
}

// MustGet is like Get but panics if the schema is missing.
func MustGet(name string) string {
	s, err := Get(name)
	if err != nil {
		panic(err)
	}
	return s
}

// List returns every embedded schema name, sorted.
func List() []string {
	entries, err := fs.ReadDir(schemaFS, ".")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), suffix) {
			names = append(names, strings.TrimSuffix(e.Name(), suffix))
		}
	}
	sort.Strings(names)
	return names
}
