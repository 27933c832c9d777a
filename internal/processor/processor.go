package processor

import (
	"context"
	"errors"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"

	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/pipeline"
	"meeting-insights-go/internal/registry"
	"meeting-insights-go/internal/types"
)

// Processor is the work run for each uploaded meeting.
type Processor interface {
	Process(ctx context.Context, meetingID, audioPath string) (*types.MeetingResult, error)
}

// Runner executes one background task per job on a bounded pool and owns the
// job's status transitions while it runs.
type Runner struct {
	store *registry.Store
	proc  Processor
	sem   *semaphore.Weighted
	wg    sync.WaitGroup
	log   *logger.Logger
}

func NewRunner(store *registry.Store, proc Processor, workers int, log *logger.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		store: store,
		proc:  proc,
		sem:   semaphore.NewWeighted(int64(workers)),
		log:   log.Component("runner"),
	}
}

// Go starts processing in the background and returns immediately.
func (r *Runner) Go(meetingID, audioPath string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(meetingID, audioPath)
	}()
}

func (r *Runner) run(meetingID, audioPath string) {
	log := r.log.WithMeeting(meetingID)
	defer func() {
		if err := os.Remove(audioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithField("error", err.Error()).Warn("failed to remove temp audio")
		}
	}()

	// In-flight external calls are never cancelled.
	ctx := context.Background()
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer r.sem.Release(1)

	if err := r.store.MarkProcessing(meetingID, registry.ProgressProcessing); err != nil {
		log.WithField("error", err.Error()).Warn("job gone before processing started")
		return
	}

	result, err := r.proc.Process(ctx, meetingID, audioPath)
	if err != nil {
		log.WithField("error", err.Error()).WithField("kind", pipeline.KindOf(err)).Error("processing failed")
		if ferr := r.store.Fail(meetingID, err.Error()); ferr != nil {
			log.WithField("error", ferr.Error()).Warn("discarding failure, job no longer tracked")
		}
		return
	}
	if err := r.store.Complete(meetingID, result); err != nil {
		log.WithField("error", err.Error()).Warn("discarding result, job no longer tracked")
		return
	}
	log.Info("job completed")
}

// Wait blocks until all started tasks finish or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
