package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func startWatcher(t *testing.T, root string) (<-chan struct{}, func()) {
	t.Helper()
	w, err := New(root, []string{".py"}, 50*time.Millisecond, zaptest.NewLogger(t))
	require.NoError(t, err)

	changes := make(chan struct{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) { changes <- struct{}{} })
	}()

	return changes, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change callback")
	}
}

func TestRunTriggersOnSourceChange(t *testing.T) {
	root := t.TempDir()
	changes, stop := startWatcher(t, root)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "tables.py"), []byte("x = 1\n"), 0o644))
	waitFor(t, changes)
}

func TestRunIgnoresOtherExtensions(t *testing.T) {
	root := t.TempDir()
	changes, stop := startWatcher(t, root)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("hi"), 0o644))
	select {
	case <-changes:
		t.Fatal("unexpected callback for .txt file")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestRunWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	changes, stop := startWatcher(t, root)
	defer stop()

	sub := filepath.Join(root, "columns")
	require.NoError(t, os.Mkdir(sub, 0o755))
	waitFor(t, changes)

	// Let the new directory registration settle before writing into it.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(sub, "metadata.py"), []byte("x = 1\n"), 0o644))
	waitFor(t, changes)
}

func TestNewMissingRoot(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), []string{".py"}, 0, nil)
	require.Error(t, err)
}
