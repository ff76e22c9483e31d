package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testDebounce = 50 * time.Millisecond

// start runs w until the test ends.
func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})
	// Give fsnotify a moment to register the tree.
	time.Sleep(testDebounce)
}

func TestWatcher_DebouncesBurst(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32
	w, err := New(root, func(context.Context) error {
		runs.Add(1)
		return nil
	}, WithDebounce(testDebounce), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	start(t, w)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "a.json"), []byte{byte('0' + i)}, 0o644))
	}

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(4 * testDebounce)
	assert.Equal(t, int32(1), runs.Load())
}

func TestWatcher_WatchesNewSubdirectories(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32
	w, err := New(root, func(context.Context) error {
		runs.Add(1)
		return nil
	}, WithDebounce(testDebounce))
	require.NoError(t, err)
	start(t, w)

	sub := filepath.Join(root, "nodes", "Scenario")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	before := runs.Load()
	time.Sleep(2 * testDebounce)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "s.json"), []byte("{}"), 0o644))
	assert.Eventually(t, func() bool { return runs.Load() > before }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresHiddenAndFilteredFiles(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32
	w, err := New(root, func(context.Context) error {
		runs.Add(1)
		return nil
	}, WithDebounce(testDebounce), WithIgnore(func(path string) bool {
		return filepath.Base(path) == "manifest.json"
	}))
	require.NoError(t, err)
	start(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".a.json.tmp-1"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "manifest.json"), []byte("{}"), 0o644))
	time.Sleep(4 * testDebounce)
	assert.Zero(t, runs.Load())
}

func TestWatcher_CallbackErrorKeepsWatching(t *testing.T) {
	root := t.TempDir()
	var runs atomic.Int32
	w, err := New(root, func(context.Context) error {
		runs.Add(1)
		return errors.New("repair failed")
	}, WithDebounce(testDebounce))
	require.NoError(t, err)
	start(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(root, "a.json"), []byte("1"), 0o644))
	assert.Eventually(t, func() bool { return runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "b.json"), []byte("2"), 0o644))
	assert.Eventually(t, func() bool { return runs.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestNew_Errors(t *testing.T) {
	noop := func(context.Context) error { return nil }

	_, err := New(filepath.Join(t.TempDir(), "missing"), noop)
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = New(file, noop)
	assert.Error(t, err)

	_, err = New(t.TempDir(), nil)
	assert.Error(t, err)
}
