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

func TestIsDatalog(t *testing.T) {
	assert.True(t, isDatalog("/tmp/pull.csv"))
	assert.True(t, isDatalog("PULL.CSV"))
	assert.False(t, isDatalog("pull.csv.tmp"))
	assert.False(t, isDatalog("notes.txt"))
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	calls := map[string]int{}
	handled := make(chan string, 10)
	w := NewWatcher(dir, func(_ context.Context, file string) {
		mu.Lock()
		calls[file]++
		mu.Unlock()
		handled <- file
	}, WithSettle(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	name := filepath.Join(dir, "pull.csv")
	f, err := os.Create(name)
	require.NoError(t, err)
	for _, chunk := range []string{"Offset,", "Vehicle Speed\n", "0,0\n"} {
		_, err = f.WriteString(chunk)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	select {
	case got := <-handled:
		assert.Equal(t, name, got)
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
	// writes within the settle period collapse into one call
	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, map[string]int{name: 1}, calls)
	mu.Unlock()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcherMissingDir(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "missing"), func(context.Context, string) {})
	assert.Error(t, w.Run(context.Background()))
}
