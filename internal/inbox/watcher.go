package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fsnotify/fsnotify"

	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/processor"
	"meeting-insights-go/internal/registry"
)

// maxAttempts bounds how often a file is re-checked while it is still being written.
const maxAttempts = 20

var errStillWriting = errors.New("file still being written")

// Submitter accepts an audio file for processing.
type Submitter interface {
	Submit(filename string, data []byte) (registry.Job, error)
	MaxBytes() int64
}

// Watcher submits audio files dropped into a directory.
type Watcher struct {
	dir    string
	intake Submitter
	log    *logger.Logger
	fsw    *fsnotify.Watcher
	stat   func(string) (os.FileInfo, error)

	// interval between size checks while waiting for a writer to finish
	Settle time.Duration
}

func New(dir string, intake Submitter, log *logger.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}
	return &Watcher{
		dir:    dir,
		intake: intake,
		log:    log.Component("inbox"),
		fsw:    fsw,
		stat:   os.Stat,
		Settle: 500 * time.Millisecond,
	}, nil
}

// Run blocks until ctx is done or the underlying watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	w.log.WithField("dir", w.dir).Info("inbox watcher started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("inbox watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !processor.SupportedAudio(event.Name) {
				w.log.WithField("file", event.Name).Debug("ignoring unsupported file")
				continue
			}
			w.submit(ctx, event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.log.WithError(err).Error("watcher error")
		}
	}
}

// submit hands a dropped file to the intake once its size has settled. The
// file is removed only when the bytes read match what is still on disk.
func (w *Watcher) submit(ctx context.Context, path string) {
	log := w.log.WithField("file", path)
	limit := w.intake.MaxBytes()

	for range maxAttempts {
		fi, err := w.stableStat(ctx, path)
		if err != nil {
			if ctx.Err() == nil {
				log.WithField("error", err.Error()).Warn("inbox file not ready")
			}
			return
		}
		if fi.Size() > limit {
			log.WithField("size", humanize.IBytes(uint64(fi.Size()))).
				WithField("limit", humanize.IBytes(uint64(limit))).
				Warn("inbox file too large, leaving it in place")
			return
		}

		data, err := readLimited(path, limit+1)
		if err != nil {
			log.WithField("error", err.Error()).Warn("could not read inbox file")
			return
		}
		after, err := w.stat(path)
		if err != nil || after.Size() != int64(len(data)) || !after.ModTime().Equal(fi.ModTime()) {
			log.Debug("inbox file changed while reading, retrying")
			continue
		}

		job, err := w.intake.Submit(filepath.Base(path), data)
		if err != nil {
			log.WithField("error", err.Error()).Warn("inbox file rejected")
			return
		}
		if err := os.Remove(path); err != nil {
			log.WithField("error", err.Error()).Warn("could not remove inbox file")
		}
		log.WithField("meeting_id", job.ID).Info("inbox file submitted")
		return
	}
	log.Warn("inbox file kept changing, leaving it in place")
}

// stableStat waits until two consecutive checks agree on size and mtime.
func (w *Watcher) stableStat(ctx context.Context, path string) (os.FileInfo, error) {
	prev, err := w.stat(path)
	if err != nil {
		return nil, err
	}
	for range maxAttempts {
		select {
		case <-time.After(w.Settle):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		cur, err := w.stat(path)
		if err != nil {
			return nil, err
		}
		if cur.Size() == prev.Size() && cur.ModTime().Equal(prev.ModTime()) {
			return cur, nil
		}
		prev = cur
	}
	return nil, errStillWriting
}

func readLimited(path string, n int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, n))
}
