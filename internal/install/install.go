// Package install writes and removes the assistant configuration that
// routes editor events through codex. It edits .claude/settings.json
// non-destructively: unknown keys are preserved and uninstall removes
// only the entries codex added.
package install

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const settingsDir = ".claude"
const settingsFile = "settings.json"

// hookCommand identifies the hook entries codex manages.
const hookCommand = "codex post-edit \"$CLAUDE_FILE_PATH\""

// Settings installs the post-edit hook into <root>/.claude/settings.json,
// creating the file if needed and merging into an existing one.
func Settings(root string) error {
	path := filepath.Join(root, settingsDir, settingsFile)
	settings, err := readSettings(path)
	if err != nil {
		return err
	}

	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		hooks = make(map[string]any)
	}
	postToolUse, _ := hooks["PostToolUse"].([]any)
	if !hasCodexHook(postToolUse) {
		postToolUse = append(postToolUse, map[string]any{
			"matcher": "Edit|Write",
			"hooks": []any{
				map[string]any{"type": "command", "command": hookCommand},
			},
		})
	}
	hooks["PostToolUse"] = postToolUse
	settings["hooks"] = hooks

	return writeSettings(path, settings)
}

// Remove deletes the codex hook entries from settings.json, leaving
// everything else in place. A missing file is not an error.
func Remove(root string) error {
	path := filepath.Join(root, settingsDir, settingsFile)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	settings, err := readSettings(path)
	if err != nil {
		return err
	}

	hooks, _ := settings["hooks"].(map[string]any)
	if hooks == nil {
		return nil
	}
	postToolUse, _ := hooks["PostToolUse"].([]any)
	var kept []any
	for _, entry := range postToolUse {
		if !isCodexHook(entry) {
			kept = append(kept, entry)
		}
	}
	if len(kept) == 0 {
		delete(hooks, "PostToolUse")
	} else {
		hooks["PostToolUse"] = kept
	}
	if len(hooks) == 0 {
		delete(settings, "hooks")
	} else {
		settings["hooks"] = hooks
	}

	return writeSettings(path, settings)
}

func readSettings(path string) (map[string]any, error) {
	settings := make(map[string]any)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return settings, nil
}

func writeSettings(path string, settings map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func hasCodexHook(entries []any) bool {
	for _, entry := range entries {
		if isCodexHook(entry) {
			return true
		}
	}
	return false
}

func isCodexHook(entry any) bool {
	m, ok := entry.(map[string]any)
	if !ok {
		return false
	}
	inner, _ := m["hooks"].([]any)
	for _, h := range inner {
		hm, ok := h.(map[string]any)
		if !ok {
			continue
		}
		if cmd, _ := hm["command"].(string); cmd == hookCommand {
			return true
		}
	}
	return false
}
