package collect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFiles_AdmitsSupportedExtensions(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "a.ts", "export const a = 1;")
	writeFile(t, root, "b.py", "x = 1")
	writeFile(t, root, "c.exe", "binary")
	writeFile(t, root, "notes.txt", "hello")

	paths, err := Files(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.ts", "b.py"}, paths)
}

func TestFiles_PrunesBlockedAndDotDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "src/main.ts", "let x = 1;")
	writeFile(t, root, "node_modules/lib/index.js", "module.exports = {};")
	writeFile(t, root, "dist/out.js", "var y;")
	writeFile(t, root, ".git/hooks/pre-commit.sh", "#!/bin/sh")
	writeFile(t, root, ".codex/cache.json", "{}")

	paths, err := Files(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.ts"}, paths)
}

func TestFiles_GitignorePlainNames(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "# comment\n\ngenerated/\n/secrets\n*.log\nsrc/deep\n")
	writeFile(t, root, "generated/g.ts", "let g;")
	writeFile(t, root, "secrets/s.ts", "let s;")
	writeFile(t, root, "kept/k.ts", "let k;")
	// Entries with globs or inner slashes are not implemented and must
	// not prune anything.
	writeFile(t, root, "src/deep/d.ts", "let d;")

	paths, err := Files(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept/k.ts", "src/deep/d.ts"}, paths)
}

func TestFiles_SizeCap(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "small.ts", "let x;")
	writeFile(t, root, "big.ts", strings.Repeat("x", MaxFileSize+1))

	paths, err := Files(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"small.ts"}, paths)
}

func TestFiles_DeterministicOrder(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	for _, rel := range []string{"z.ts", "a.ts", "m/b.ts", "m/a.ts"} {
		writeFile(t, root, rel, "let x;")
	}

	first, err := Files(root)
	require.NoError(t, err)
	second, err := Files(root)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.ElementsMatch(t, []string{"a.ts", "m/a.ts", "m/b.ts", "z.ts"}, first)
}

func TestFiles_EmptyRoot(t *testing.T) {
	t.Parallel()
	paths, err := Files(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestSupportedExt(t *testing.T) {
	t.Parallel()
	assert.True(t, SupportedExt("a/b/c.tsx"))
	assert.True(t, SupportedExt("script.BASH"))
	assert.False(t, SupportedExt("binary.exe"))
	assert.False(t, SupportedExt("Makefile"))
}
