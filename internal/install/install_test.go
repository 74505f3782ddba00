package install

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func settingsPath(root string) string {
	return filepath.Join(root, ".claude", "settings.json")
}

func TestSettings_CreatesFileWithHook(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, Settings(root))

	m := readJSON(t, settingsPath(root))
	hooks := m["hooks"].(map[string]any)
	postToolUse := hooks["PostToolUse"].([]any)
	require.Len(t, postToolUse, 1)
}

func TestSettings_Idempotent(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, Settings(root))
	require.NoError(t, Settings(root))

	m := readJSON(t, settingsPath(root))
	hooks := m["hooks"].(map[string]any)
	assert.Len(t, hooks["PostToolUse"].([]any), 1, "installing twice adds one hook")
}

func TestSettings_PreservesExistingKeys(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".claude"), 0o755))
	require.NoError(t, os.WriteFile(settingsPath(root),
		[]byte(`{"model": "opus", "hooks": {"PreToolUse": []}}`), 0o644))

	require.NoError(t, Settings(root))

	m := readJSON(t, settingsPath(root))
	assert.Equal(t, "opus", m["model"])
	hooks := m["hooks"].(map[string]any)
	assert.Contains(t, hooks, "PreToolUse")
	assert.Contains(t, hooks, "PostToolUse")
}

func TestRemove_OnlyDropsCodexEntries(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".claude"), 0o755))
	require.NoError(t, os.WriteFile(settingsPath(root),
		[]byte(`{"hooks": {"PostToolUse": [{"matcher": "*", "hooks": [{"type": "command", "command": "other-tool"}]}]}}`), 0o644))
	require.NoError(t, Settings(root))

	require.NoError(t, Remove(root))

	m := readJSON(t, settingsPath(root))
	hooks := m["hooks"].(map[string]any)
	postToolUse := hooks["PostToolUse"].([]any)
	require.Len(t, postToolUse, 1, "the foreign hook survives")
}

func TestRemove_MissingFileIsFine(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Remove(t.TempDir()))
}
