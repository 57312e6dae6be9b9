package ingestion

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "line 1\r\nline 2\rline 3\n")

	art, err := Load(filepath.Join(dir, "a.txt"), Options{})
	require.NoError(t, err)
	assert.Equal(t, "line 1\nline 2\nline 3\n", art.Text)
	assert.False(t, art.Sectioned)
	assert.Equal(t, 1, art.Metadata.Files)
	assert.Len(t, art.Metadata.Hash, 64)
}

func TestLoad_DirectoryIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b/main.go", "package main\n")
	writeFile(t, dir, "a.go", "package a")
	writeFile(t, dir, ".git/config", "[core]\n")
	writeFile(t, dir, "node_modules/x.js", "x\n")
	writeFile(t, dir, "img.bin", "\x00\x01\x02")

	first, err := Load(dir, Options{})
	require.NoError(t, err)
	second, err := Load(dir, Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.Metadata.Hash, second.Metadata.Hash)
	assert.True(t, first.Sectioned)
	assert.Equal(t, "=== FILE: a.go ===\npackage a\n=== FILE: b/main.go ===\npackage main\n", first.Text)
	assert.Equal(t, 2, first.Metadata.Files)
	assert.Equal(t, []string{"img.bin"}, first.Metadata.Skipped)
}

func TestLoad_DirectoryFilters(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n")
	writeFile(t, dir, "README.md", "# readme\n")
	writeFile(t, dir, "big.go", strings.Repeat("x", 100))

	art, err := Load(dir, Options{Extensions: []string{".GO"}, MaxFileBytes: 50})
	require.NoError(t, err)
	assert.Contains(t, art.Text, "a.go")
	assert.NotContains(t, art.Text, "README")
	assert.Equal(t, []string{"big.go"}, art.Metadata.Skipped)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		msg  string
	}{
		{"empty path", func(t *testing.T) string { return " " }, "path is empty"},
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope") }, "not found"},
		{"empty dir", func(t *testing.T) string { return t.TempDir() }, "no readable text files"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t), Options{})
			require.Error(t, err)
			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestNewMetadata(t *testing.T) {
	a := NewMetadata("/repo", "hello")
	b := NewMetadata("/repo", "hello")
	c := NewMetadata("/repo", "hello!")

	assert.Equal(t, "/repo", a.Path)
	assert.Equal(t, 5, a.Bytes)
	assert.Len(t, a.Hash, 64)
	assert.Equal(t, a.Hash, b.Hash)
	assert.NotEqual(t, a.Hash, c.Hash)
	assert.False(t, a.ReadAt.IsZero())
}
