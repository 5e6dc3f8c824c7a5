package config

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

func TestPolicyWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	var mu sync.Mutex
	var reloaded []string
	w, err := NewPolicyWatcher([]string{path}, func(p string) {
		mu.Lock()
		reloaded = append(reloaded, p)
		mu.Unlock()
	})
	require.NoError(t, err)
	// Short debounce keeps the test fast.
	w.debounceDur = 50 * time.Millisecond

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("v2"), 0644))

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		n := len(reloaded)
		mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("reload callback never fired")
		case <-time.After(20 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	abs, _ := filepath.Abs(path)
	assert.Equal(t, abs, reloaded[0])
}

func TestPolicyWatcherIgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "roles.yaml")
	other := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(watched, []byte("v1"), 0644))

	var mu sync.Mutex
	count := 0
	w, err := NewPolicyWatcher([]string{watched}, func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	require.NoError(t, err)
	w.debounceDur = 50 * time.Millisecond

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(other, []byte("x"), 0644))
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, count, "sibling file events must be filtered out")
}

func TestPolicyWatcherStopIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("v1"), 0644))

	w, err := NewPolicyWatcher([]string{path}, func(string) {})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))

	w.Stop()
	w.Stop()
}
