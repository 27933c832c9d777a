package inbox

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/registry"
)

type recordingSubmitter struct {
	mu    sync.Mutex
	files map[string][]byte
	max   int64
}

func (r *recordingSubmitter) MaxBytes() int64 {
	if r.max == 0 {
		return 1 << 20
	}
	return r.max
}

func (r *recordingSubmitter) Submit(filename string, data []byte) (registry.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.files == nil {
		r.files = map[string][]byte{}
	}
	r.files[filename] = data
	return registry.Job{ID: "job-" + filename, Status: registry.StatusPending}, nil
}

func (r *recordingSubmitter) get(name string) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.files[name]
	return data, ok
}

func (r *recordingSubmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.files)
}

func TestWatcherSubmitsAudio(t *testing.T) {
	dir := t.TempDir()
	sub := &recordingSubmitter{}
	w, err := New(dir, sub, logger.NewWithOutput(io.Discard))
	require.NoError(t, err)
	w.Settle = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "retro.wav"), []byte("audio"), 0o644))

	assert.Eventually(t, func() bool {
		_, ok := sub.get("retro.wav")
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	data, _ := sub.get("retro.wav")
	assert.Equal(t, []byte("audio"), data)
	assert.Equal(t, 1, sub.count())
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "retro.wav"))
		return os.IsNotExist(err)
	}, time.Second, 20*time.Millisecond)
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNewCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "inbox")
	w, err := New(dir, &recordingSubmitter{}, logger.NewWithOutput(io.Discard))
	require.NoError(t, err)
	defer w.fsw.Close()
	assert.DirExists(t, dir)
}

type fakeInfo struct {
	size int64
	mod  time.Time
}

func (f fakeInfo) Name() string       { return "fake" }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() fs.FileMode  { return 0o644 }
func (f fakeInfo) ModTime() time.Time { return f.mod }
func (f fakeInfo) IsDir() bool        { return false }
func (f fakeInfo) Sys() any           { return nil }

// sizesStat reports the given sizes in order, repeating the last one.
func sizesStat(sizes ...int64) (func(string) (os.FileInfo, error), *int) {
	calls := 0
	mod := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return func(string) (os.FileInfo, error) {
		i := min(calls, len(sizes)-1)
		calls++
		return fakeInfo{size: sizes[i], mod: mod}, nil
	}, &calls
}

func newTestWatcher(t *testing.T, sub *recordingSubmitter) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := New(dir, sub, logger.NewWithOutput(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() { w.fsw.Close() })
	w.Settle = time.Millisecond
	return w, dir
}

func TestSubmitLeavesOversizeFile(t *testing.T) {
	sub := &recordingSubmitter{max: 4}
	w, dir := newTestWatcher(t, sub)
	path := filepath.Join(dir, "allhands.mp3")
	require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o644))

	w.submit(context.Background(), path)

	assert.Equal(t, 0, sub.count())
	assert.FileExists(t, path)
}

func TestStableStatWaitsForWriter(t *testing.T) {
	w, _ := newTestWatcher(t, &recordingSubmitter{})
	stat, calls := sizesStat(3, 6, 9, 9)
	w.stat = stat

	fi, err := w.stableStat(context.Background(), "ignored")
	require.NoError(t, err)
	assert.EqualValues(t, 9, fi.Size())
	assert.Equal(t, 4, *calls)
}

func TestStableStatGivesUpOnEndlessWriter(t *testing.T) {
	w, _ := newTestWatcher(t, &recordingSubmitter{})
	size := int64(0)
	w.stat = func(string) (os.FileInfo, error) {
		size++
		return fakeInfo{size: size}, nil
	}

	_, err := w.stableStat(context.Background(), "ignored")
	assert.ErrorIs(t, err, errStillWriting)
}

func TestSubmitRetriesWhenFileChangesDuringRead(t *testing.T) {
	sub := &recordingSubmitter{}
	w, dir := newTestWatcher(t, sub)
	path := filepath.Join(dir, "retro.m4a")
	require.NoError(t, os.WriteFile(path, []byte("abcdef"), 0o644))

	// stable at 6, grows to 8 right after the read, then settles back at 6
	stat, _ := sizesStat(6, 6, 8, 6, 6, 6)
	w.stat = stat

	w.submit(context.Background(), path)

	data, ok := sub.get("retro.m4a")
	require.True(t, ok)
	assert.Equal(t, []byte("abcdef"), data)
	assert.NoFileExists(t, path)
}

func TestSubmitKeepsFileThatNeverSettles(t *testing.T) {
	sub := &recordingSubmitter{}
	w, dir := newTestWatcher(t, sub)
	path := filepath.Join(dir, "stream.wav")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	size := int64(0)
	w.stat = func(string) (os.FileInfo, error) {
		size++
		return fakeInfo{size: size}, nil
	}

	w.submit(context.Background(), path)

	assert.Equal(t, 0, sub.count())
	assert.FileExists(t, path)
}
