package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jonathan/repocompare/internal/ingestion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repeatLines builds n lines of exactly width bytes including the newline.
func repeatLines(n, width int) string {
	line := strings.Repeat("x", width-1) + "\n"
	return strings.Repeat(line, n)
}

func TestSplit_ExampleSizes(t *testing.T) {
	artifact := repeatLines(1200, 100)
	require.Len(t, artifact, 120000)

	chunks, err := Split(artifact, 15000)
	require.NoError(t, err)
	require.Len(t, chunks, 8)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		assert.Equal(t, 15000, c.ApproximateSize)
	}
	assert.Equal(t, artifact, Join(chunks))
}

func TestSplit_CountsCharactersNotBytes(t *testing.T) {
	artifact := strings.Repeat(strings.Repeat("é", 99)+"\n", 1200)
	require.Equal(t, 120000, utf8.RuneCountInString(artifact))
	require.Equal(t, 238800, len(artifact))

	chunks, err := Split(artifact, 15000)
	require.NoError(t, err)
	require.Len(t, chunks, 8)
	for _, c := range chunks {
		assert.Equal(t, 15000, c.ApproximateSize)
	}
	assert.Equal(t, artifact, Join(chunks))

	section := ingestion.FileMarker + "ü.go ===\n" + strings.Repeat("ü", 50) + "\n"
	files, err := SplitFiles(section+section, utf8.RuneCountInString(section))
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, section, files[0].Content)
}

func TestSplit_PartitionProperty(t *testing.T) {
	artifacts := []string{
		"a\nbb\nccc\n",
		"no trailing newline\nsecond",
		"\n\n\n",
		strings.Repeat("word ", 5000),
		"short\n" + strings.Repeat("y", 300) + "\nshort again\n",
		"é unicode ✓\nline\n",
	}
	for _, artifact := range artifacts {
		for _, target := range []int{1, 7, 64, 1000} {
			chunks, err := Split(artifact, target)
			require.NoError(t, err)
			assert.Equal(t, artifact, Join(chunks), "target %d", target)
			for i, c := range chunks {
				assert.Equal(t, i, c.Index)
				assert.NotEmpty(t, c.Content)
				assert.Equal(t, utf8.RuneCountInString(c.Content), c.ApproximateSize)
			}
		}
	}
}

func TestSplit_BoundedUnlessSingleLine(t *testing.T) {
	artifact := "short\n" + strings.Repeat("y", 300) + "\nshort again\n"
	chunks, err := Split(artifact, 100)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "short\n", chunks[0].Content)
	assert.Equal(t, strings.Repeat("y", 300)+"\n", chunks[1].Content)
	assert.Equal(t, "short again\n", chunks[2].Content)

	for _, c := range chunks {
		if c.ApproximateSize > 100 {
			assert.Equal(t, 1, strings.Count(c.Content, "\n"), "only a single-line chunk may exceed the target")
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	artifact := repeatLines(333, 37)
	a, err := Split(artifact, 1000)
	require.NoError(t, err)
	b, err := Split(artifact, 1000)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSplit_EdgeCases(t *testing.T) {
	chunks, err := Split("", 100)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	_, err = Split("abc", 0)
	assert.Error(t, err)
	_, err = SplitFiles("abc", -1)
	assert.Error(t, err)
}

func TestSplitFiles_KeepsSmallFilesWhole(t *testing.T) {
	fileA := ingestion.FileMarker + "a.go ===\n" + repeatLines(3, 10)
	fileB := ingestion.FileMarker + "b.go ===\n" + repeatLines(3, 10)
	fileC := ingestion.FileMarker + "c.go ===\n" + repeatLines(30, 10)
	artifact := fileA + fileB + fileC

	chunks, err := SplitFiles(artifact, 80)
	require.NoError(t, err)
	assert.Equal(t, artifact, Join(chunks))
	assert.Equal(t, fileA, chunks[0].Content)
	assert.True(t, strings.HasPrefix(chunks[1].Content, fileB))
	for _, c := range chunks {
		assert.LessOrEqual(t, c.ApproximateSize, 80)
	}
}

func TestSplitFiles_Preamble(t *testing.T) {
	artifact := "preamble\n" + ingestion.FileMarker + "a.go ===\nx\n"
	sections := splitSections(artifact)
	require.Len(t, sections, 2)
	assert.Equal(t, "preamble\n", sections[0])
}

func TestPair_PadsShorterSide(t *testing.T) {
	source, err := Split(repeatLines(30, 10), 100)
	require.NoError(t, err)
	target, err := Split(repeatLines(10, 10), 100)
	require.NoError(t, err)
	require.Len(t, source, 3)
	require.Len(t, target, 1)

	pairs := Pair(source, target)
	require.Len(t, pairs, 3)
	assert.Equal(t, "chunk 1 of 3", pairs[0].Label)
	assert.NotNil(t, pairs[0].Target)
	assert.Nil(t, pairs[1].Target)
	assert.Nil(t, pairs[2].Target)
	assert.Equal(t, 2, pairs[2].Source.Index)

	pairs = Pair(nil, target)
	require.Len(t, pairs, 1)
	assert.Nil(t, pairs[0].Source)
	assert.Empty(t, Pair(nil, nil))
}
