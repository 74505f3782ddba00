package docs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_CreatesFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, Write(root, Summary{Brief: "Index: 2 files\n"}))

	data, err := os.ReadFile(filepath.Join(root, "CLAUDE.md"))
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, beginMarker)
	assert.Contains(t, content, endMarker)
	assert.Contains(t, content, "Index: 2 files")
	assert.Contains(t, content, "codex search")
}

func TestWrite_ReplacesOnlyManagedBlock(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "CLAUDE.md")
	require.NoError(t, os.WriteFile(path, []byte(
		"# My project\n\nhand-written notes\n\n"+beginMarker+"\nold block\n"+endMarker+"\n\ntrailing notes\n"), 0o644))

	require.NoError(t, Write(root, Summary{Brief: "fresh\n"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "hand-written notes")
	assert.Contains(t, content, "trailing notes")
	assert.Contains(t, content, "fresh")
	assert.NotContains(t, content, "old block")
	assert.Equal(t, 1, strings.Count(content, beginMarker))
}

func TestWrite_AppendsWhenNoMarkers(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	path := filepath.Join(root, "CLAUDE.md")
	require.NoError(t, os.WriteFile(path, []byte("# Existing doc"), 0o644))

	require.NoError(t, Write(root, Summary{Brief: "stats\n"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Existing doc\n"))
	assert.Contains(t, string(data), beginMarker)
}
