// Package resolve turns raw import specifiers into indexed file
// identities by probing the file system.
package resolve

import (
	"os"
	"path/filepath"
	"strings"
)

// candidate extensions, probed in order. The empty extension is a
// literal match for specifiers that already carry one.
var probeExts = []string{".ts", ".tsx", ".js", ".jsx", ".py", ".rs", ".go", ""}

// index files probed after the extension list, for directory imports.
var probeIndexes = []string{"/index.ts", "/index.tsx", "/index.js", "/index.jsx"}

// Import resolves a raw import specifier from the file at fromRel to a
// root-relative path, or ("", false) when the specifier is a package
// import or no candidate exists on disk.
func Import(root, fromRel, specifier string) (string, bool) {
	if !strings.HasPrefix(specifier, ".") && !strings.HasPrefix(specifier, "/") {
		return "", false // package import, not in-tree
	}

	base := filepath.Clean(filepath.Join(root, filepath.Dir(filepath.FromSlash(fromRel)), filepath.FromSlash(specifier)))

	for _, ext := range probeExts {
		if hit, ok := probe(root, base+ext); ok {
			return hit, true
		}
	}
	for _, index := range probeIndexes {
		if hit, ok := probe(root, base+filepath.FromSlash(index)); ok {
			return hit, true
		}
	}
	return "", false
}

func probe(root, candidate string) (string, bool) {
	info, err := os.Stat(candidate)
	if err != nil || info.IsDir() {
		return "", false
	}
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
