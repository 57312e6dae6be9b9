package statestore

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("candidate file: missing front matter")
	// ErrMalformedFrontMatter indicates the YAML block was not closed.
	ErrMalformedFrontMatter = errors.New("candidate file: malformed front matter")
)

// candidateHeader is the YAML block at the top of a candidate review file.
type candidateHeader struct {
	ID         string       `yaml:"id"`
	Title      string       `yaml:"title"`
	Priority   int          `yaml:"priority"`
	Category   string       `yaml:"category"`
	Complexity int          `yaml:"complexity"`
	Status     ReviewStatus `yaml:"status"`
}

func parseFrontMatter(content []byte) (candidateHeader, string, error) {
	var header candidateHeader
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return header, "", ErrMissingFrontMatter
	}
	parts := bytes.SplitN(normalized[4:], []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return header, "", ErrMalformedFrontMatter
	}
	if err := yaml.Unmarshal(parts[0], &header); err != nil {
		return header, "", fmt.Errorf("candidate file: parse front matter: %w", err)
	}
	return header, strings.TrimSpace(string(parts[1])), nil
}

func writeFrontMatter(header candidateHeader, body string) ([]byte, error) {
	data, err := yaml.Marshal(header)
	if err != nil {
		return nil, fmt.Errorf("candidate file: encode front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	if body = strings.TrimSpace(body); body != "" {
		buf.WriteString(body)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}
