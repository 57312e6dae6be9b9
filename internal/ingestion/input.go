// Package ingestion reads a source or target input into a single deterministic text artifact.
package ingestion

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileMarker starts every file section of a flattened directory.
const FileMarker = "=== FILE: "

// DefaultMaxFileBytes skips files larger than this when flattening a directory.
const DefaultMaxFileBytes = 256 * 1024

// defaultIgnoreDirs are never descended into.
var defaultIgnoreDirs = []string{".git", ".hg", ".svn", "node_modules", "vendor", "dist", "build", "__pycache__", ".idea", ".vscode"}

// InputError reports an input that cannot be read. It aborts the run.
type InputError struct {
	Path    string
	Message string
	Cause   error
}

func (e *InputError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("input %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("input %s: %s", e.Path, e.Message)
}

func (e *InputError) Unwrap() error {
	return e.Cause
}

// Options controls how a directory is flattened.
type Options struct {
	MaxFileBytes int64
	// Extensions limits directory inputs to these file extensions (e.g. ".go"). Empty means all text files.
	Extensions []string
	IgnoreDirs []string
}

func (o Options) withDefaults() Options {
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = DefaultMaxFileBytes
	}
	if len(o.IgnoreDirs) == 0 {
		o.IgnoreDirs = defaultIgnoreDirs
	}
	return o
}

// Artifact is an ingested input.
type Artifact struct {
	Text     string
	Metadata *Metadata
	// Sectioned is true when Text is made of FileMarker sections.
	Sectioned bool
}

// Load reads path. A file is returned as-is with normalized line endings;
// a directory is flattened into FileMarker sections in lexical path order.
func Load(path string, opts Options) (*Artifact, error) {
	if strings.TrimSpace(path) == "" {
		return nil, &InputError{Path: path, Message: "path is empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &InputError{Path: path, Message: "not found", Cause: err}
		}
		return nil, &InputError{Path: path, Message: "cannot stat", Cause: err}
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &InputError{Path: path, Message: "cannot read", Cause: err}
		}
		text := NormalizeLineEndings(string(data))
		meta := NewMetadata(path, text)
		meta.Files = 1
		return &Artifact{Text: text, Metadata: meta}, nil
	}

	return loadDir(path, opts.withDefaults())
}

func loadDir(root string, opts Options) (*Artifact, error) {
	var sb strings.Builder
	var skipped []string
	files := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if path != root && ignored(d.Name(), opts.IgnoreDirs) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !wanted(path, opts.Extensions) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if info.Size() > opts.MaxFileBytes {
			skipped = append(skipped, rel)
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if isBinary(data) {
			skipped = append(skipped, rel)
			return nil
		}

		sb.WriteString(FileMarker)
		sb.WriteString(rel)
		sb.WriteString(" ===\n")
		text := NormalizeLineEndings(string(data))
		sb.WriteString(text)
		if !strings.HasSuffix(text, "\n") {
			sb.WriteString("\n")
		}
		files++
		return nil
	})
	if err != nil {
		return nil, &InputError{Path: root, Message: "cannot walk directory", Cause: err}
	}
	if files == 0 {
		return nil, &InputError{Path: root, Message: "no readable text files"}
	}

	text := sb.String()
	meta := NewMetadata(root, text)
	meta.Files = files
	meta.Skipped = skipped
	return &Artifact{Text: text, Metadata: meta, Sectioned: true}, nil
}

// NormalizeLineEndings converts CRLF and CR line endings to LF.
func NormalizeLineEndings(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

func ignored(name string, dirs []string) bool {
	for _, d := range dirs {
		if name == d {
			return true
		}
	}
	return false
}

func wanted(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// isBinary uses the same heuristic as git: a NUL byte in the first 8000 bytes.
func isBinary(data []byte) bool {
	n := len(data)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(data[:n], 0) >= 0
}
