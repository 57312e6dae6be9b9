package chunking

import (
	"fmt"

	"github.com/jonathan/repocompare/internal/types"
)

// Pair couples source and target chunks by index. The shorter side is padded with nil.
func Pair(source, target []types.Chunk) []types.ChunkPair {
	n := len(source)
	if len(target) > n {
		n = len(target)
	}
	pairs := make([]types.ChunkPair, n)
	for i := 0; i < n; i++ {
		pair := types.ChunkPair{Index: i, Label: Label(i, n)}
		if i < len(source) {
			c := source[i]
			pair.Source = &c
		}
		if i < len(target) {
			c := target[i]
			pair.Target = &c
		}
		pairs[i] = pair
	}
	return pairs
}

// Label is the human-readable position of a chunk, 1-based.
func Label(index, total int) string {
	return fmt.Sprintf("chunk %d of %d", index+1, total)
}

// Join concatenates chunk contents in index order.
func Join(chunks []types.Chunk) string {
	size := 0
	for _, c := range chunks {
		size += len(c.Content)
	}
	buf := make([]byte, 0, size)
	for _, c := range chunks {
		buf = append(buf, c.Content...)
	}
	return string(buf)
}
