package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingReindexer counts re-index calls per path.
type recordingReindexer struct {
	mu    sync.Mutex
	calls map[string]int
}

func newRecorder() *recordingReindexer {
	return &recordingReindexer{calls: make(map[string]int)}
}

func (r *recordingReindexer) ReindexFile(ctx context.Context, rel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[rel]++
	return nil
}

func (r *recordingReindexer) count(rel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[rel]
}

func startWatcher(t *testing.T, root string, rec *recordingReindexer) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := New(root, rec, nil)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	// Give fsnotify a moment to register the directory watches.
	time.Sleep(100 * time.Millisecond)
	return cancel
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(25 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_DebouncesBurstsIntoOneReindex(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	startWatcher(t, root, rec)

	path := filepath.Join(root, "a.ts")
	// A burst of writes within the debounce window coalesces.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("export function f(){}\n"), 0o644))
		time.Sleep(20 * time.Millisecond)
	}

	require.True(t, waitFor(t, 3*time.Second, func() bool { return rec.count("a.ts") >= 1 }))
	// Allow any stragglers to fire, then confirm coalescing.
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, 1, rec.count("a.ts"))
}

func TestWatcher_IgnoresUnsupportedFiles(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	startWatcher(t, root, rec)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(800 * time.Millisecond)
	assert.Equal(t, 0, rec.count("notes.txt"))
}

func TestWatcher_SeesFilesInNewDirectories(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	startWatcher(t, root, rec)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	// The directory watch is added asynchronously on the create event.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "b.ts"), []byte("let b;\n"), 0o644))

	assert.True(t, waitFor(t, 3*time.Second, func() bool { return rec.count("src/b.ts") >= 1 }))
}

func TestWatcher_ReportsDeletes(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.ts")
	require.NoError(t, os.WriteFile(path, []byte("let x;\n"), 0o644))

	rec := newRecorder()
	startWatcher(t, root, rec)

	require.NoError(t, os.Remove(path))
	assert.True(t, waitFor(t, 3*time.Second, func() bool { return rec.count("gone.ts") >= 1 }),
		"unlink drives the same re-index path, which removes the file")
}
