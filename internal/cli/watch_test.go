package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/plangraph/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// syncBuffer is a bytes.Buffer safe for the watch goroutine and the test
// to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatch_RepairsOnStartAndAfterChanges(t *testing.T) {
	dir := seededTree(t, testutil.AllTopicsStmt)
	out := &syncBuffer{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cmd := NewWatchCommand(&RootOptions{Format: "text"})
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"--debounce", "50ms", dir})
	cmd.SetContext(ctx)

	done := make(chan error, 1)
	go func() { done <- cmd.Execute() }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Converged after 1 iteration(s)")
	}, 5*time.Second, 20*time.Millisecond)
	assert.Len(t, loadTree(t, dir).Nodes, 8)

	seed := NewSeedCommand(&RootOptions{Format: "text"})
	_, err := execute(t, seed, dir, testutil.AllTopicsStmt+" Second tenant.")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(loadTree(t, dir).Nodes) > 9
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatch_RejectsOtherBackends(t *testing.T) {
	_, err := execute(t, NewWatchCommand(&RootOptions{Format: "text"}), "--backend", "sqlite", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid configuration")
}
