package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("// stub\n"), 0o644))
}

func TestImport_PackageImportsAreNotInTree(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	for _, spec := range []string{"react", "lodash/merge", "@scope/pkg"} {
		_, ok := Import(root, "src/a.ts", spec)
		assert.False(t, ok, "specifier %q", spec)
	}
}

func TestImport_RelativeWithExtensionProbe(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "src/b.ts")

	rel, ok := Import(root, "src/a.ts", "./b")
	require.True(t, ok)
	assert.Equal(t, "src/b.ts", rel)
}

func TestImport_ProbeOrderPrefersTS(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "src/b.ts")
	writeFile(t, root, "src/b.js")

	rel, ok := Import(root, "src/a.ts", "./b")
	require.True(t, ok)
	assert.Equal(t, "src/b.ts", rel)
}

func TestImport_LiteralMatchKeepsExtension(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "src/util.py")

	rel, ok := Import(root, "src/a.py", "./util.py")
	require.True(t, ok)
	assert.Equal(t, "src/util.py", rel)
}

func TestImport_DirectoryIndexProbe(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "src/lib/index.ts")

	rel, ok := Import(root, "src/a.ts", "./lib")
	require.True(t, ok)
	assert.Equal(t, "src/lib/index.ts", rel)
}

func TestImport_ParentTraversal(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "shared.ts")

	rel, ok := Import(root, "src/deep/a.ts", "../../shared")
	require.True(t, ok)
	assert.Equal(t, "shared.ts", rel)
}

func TestImport_UnresolvableIsNotAnError(t *testing.T) {
	t.Parallel()
	_, ok := Import(t.TempDir(), "src/a.ts", "./missing")
	assert.False(t, ok)
}
