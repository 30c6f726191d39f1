package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWatcherRunFailsOnMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent", "faq.json")
	w, err := NewWatcher(path, func() {}, zaptest.NewLogger(t))
	require.NoError(t, err)

	err = w.Run(context.Background())
	assert.Error(t, err)

	// The handle was released on the failed start: a second Run must
	// not find a usable watcher either.
	assert.Error(t, w.Run(context.Background()))
}

func TestWatcherFiresOnCatalogWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faq.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(path, func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watch a moment to attach before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`[{"question":"q","answer":"a"}]`), 0o644))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("catalog change never triggered the callback")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "faq.json")
	require.NoError(t, os.WriteFile(path, []byte("[]"), 0o644))

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(path, func() { changed <- struct{}{} }, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case <-changed:
		t.Fatal("unrelated file triggered the catalog callback")
	case <-time.After(debounceWindow + 500*time.Millisecond):
	}
}
