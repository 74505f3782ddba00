// Package collect walks a source tree and produces the set of indexable
// root-relative paths, pruning vendored and generated directories.
package collect

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MaxFileSize is the largest file the collector admits, in bytes.
const MaxFileSize = 524288

// blockedDirs are never descended into, regardless of project.
var blockedDirs = map[string]bool{
	"node_modules": true, ".git": true, ".hg": true, ".svn": true,
	"dist": true, "build": true, "out": true, ".next": true, ".nuxt": true,
	"__pycache__": true, ".pytest_cache": true, "target": true, "vendor": true,
	".codex": true, ".claude": true, "coverage": true, ".vscode": true,
	".idea": true, "venv": true, ".venv": true, ".env": true, ".tox": true,
	"bower_components": true, ".cache": true, ".parcel-cache": true,
	"tmp": true, "temp": true, ".turbo": true, ".vercel": true, ".netlify": true,
}

// supportedExts is the extension admission set.
var supportedExts = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true,
	".py": true, ".rs": true, ".go": true, ".sh": true, ".bash": true,
	".c": true, ".h": true, ".cpp": true, ".cc": true, ".hpp": true,
	".json": true, ".css": true, ".html": true, ".htm": true,
}

// SupportedExt reports whether a path's extension is in the admission
// set. The watcher uses this to drop events on irrelevant files.
func SupportedExt(path string) bool {
	return supportedExts[strings.ToLower(filepath.Ext(path))]
}

// Files walks root and returns the sorted set of admissible
// root-relative paths, forward-slash separated. Unreadable files and
// directories are skipped silently.
func Files(root string) ([]string, error) {
	ignored := loadGitignore(root)
	var paths []string

	var walkDir func(dir string) error
	walkDir = func(dir string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil // unreadable directory: skip
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		for _, entry := range entries {
			name := entry.Name()
			full := filepath.Join(dir, name)
			if entry.IsDir() {
				if PruneDir(name) || ignored[name] {
					continue
				}
				if err := walkDir(full); err != nil {
					return err
				}
				continue
			}
			if !supportedExts[strings.ToLower(filepath.Ext(name))] {
				continue
			}
			info, err := entry.Info()
			if err != nil || info.Size() > MaxFileSize {
				continue
			}
			f, err := os.Open(full)
			if err != nil {
				continue // unreadable file: skip
			}
			f.Close()
			rel, err := filepath.Rel(root, full)
			if err != nil {
				continue
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	}

	if err := walkDir(root); err != nil {
		return nil, err
	}
	return paths, nil
}

// PruneDir reports whether a directory basename is never descended
// into: dot-directories and the fixed block set.
func PruneDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return blockedDirs[name]
}

// loadGitignore reads the root .gitignore and returns the plain-name
// entries. Lines containing "/" or "*" are patterns this collector does
// not implement and are dropped; full glob semantics are a non-goal.
func loadGitignore(root string) map[string]bool {
	ignored := make(map[string]bool)
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return ignored
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "/")
		line = strings.TrimSuffix(line, "/")
		if strings.ContainsAny(line, "/*") {
			continue
		}
		ignored[line] = true
	}
	return ignored
}
