// Package chunking splits artifacts into ordered, bounded-size chunks and pairs them by index.
package chunking

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/repocompare/internal/ingestion"
	"github.com/jonathan/repocompare/internal/types"
)

// Split partitions artifact into chunks of about targetSize characters at line boundaries.
// Lines are accumulated greedily; a chunk is closed when the next line would push it past targetSize.
// A single line longer than targetSize becomes its own oversized chunk.
// Concatenating the chunk contents in index order reproduces artifact exactly.
func Split(artifact string, targetSize int) ([]types.Chunk, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("chunk target size must be positive, got %d", targetSize)
	}
	return pack(splitLines(artifact), targetSize), nil
}

// SplitFiles is like Split but treats each FileMarker section as the unit, so small files are kept whole.
// A section larger than targetSize is split further on line boundaries.
func SplitFiles(artifact string, targetSize int) ([]types.Chunk, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("chunk target size must be positive, got %d", targetSize)
	}
	var units []string
	for _, section := range splitSections(artifact) {
		if utf8.RuneCountInString(section) > targetSize {
			units = append(units, splitLines(section)...)
		} else {
			units = append(units, section)
		}
	}
	return pack(units, targetSize), nil
}

// pack greedily accumulates units into chunks. Sizes are counted in characters.
func pack(units []string, targetSize int) []types.Chunk {
	var chunks []types.Chunk
	var current strings.Builder
	size := 0

	flush := func() {
		if current.Len() == 0 {
			return
		}
		chunks = append(chunks, types.Chunk{
			Index:           len(chunks),
			Content:         current.String(),
			ApproximateSize: size,
		})
		current.Reset()
		size = 0
	}

	for _, unit := range units {
		n := utf8.RuneCountInString(unit)
		if size > 0 && size+n > targetSize {
			flush()
		}
		current.WriteString(unit)
		size += n
		if size >= targetSize {
			flush()
		}
	}
	flush()
	return chunks
}

// splitLines returns the lines of s, each with its trailing newline. The last line may lack one.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// splitSections cuts s before every line that starts with the file marker.
// Text before the first marker forms its own section.
func splitSections(s string) []string {
	var sections []string
	var current strings.Builder
	for _, line := range splitLines(s) {
		if strings.HasPrefix(line, ingestion.FileMarker) && current.Len() > 0 {
			sections = append(sections, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		sections = append(sections, current.String())
	}
	return sections
}
