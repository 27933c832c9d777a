// Package registry keeps the in-memory state of every meeting job.
//
// A Store is created at process start and handed by reference to whatever
// needs it. Each job has one writer (its background task); readers get copies.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"meeting-insights-go/internal/types"
)

var (
	ErrNotFound          = errors.New("meeting not found")
	ErrExists            = errors.New("meeting already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Progress checkpoints reported to pollers.
const (
	ProgressQueued     = 0
	ProgressProcessing = 20
	ProgressDone       = 100
)

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Job struct {
	ID        string               `json:"meeting_id"`
	Filename  string               `json:"filename,omitempty"`
	Status    Status               `json:"status"`
	Progress  int                  `json:"progress"`
	Results   *types.MeetingResult `json:"results,omitempty"`
	Error     string               `json:"error,omitempty"`
	Consented *bool                `json:"consented,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{
		jobs: make(map[string]*Job),
		now:  time.Now,
	}
}

// Create inserts a pending job with zero progress.
func (s *Store) Create(id, filename string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; ok {
		return Job{}, fmt.Errorf("%w: %s", ErrExists, id)
	}
	now := s.now()
	job := &Job{
		ID:        id,
		Filename:  filename,
		Status:    StatusPending,
		Progress:  ProgressQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[id] = job
	return cloneJob(job), nil
}

// Get returns a snapshot of the job.
func (s *Store) Get(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	return cloneJob(job), nil
}

// Update applies fn to the stored job under the write lock. If fn returns an
// error the job is left untouched.
func (s *Store) Update(id string, fn func(*Job) error) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, ErrNotFound
	}
	next := cloneJob(job)
	if err := fn(&next); err != nil {
		return cloneJob(job), err
	}
	next.UpdatedAt = s.now()
	*job = next
	return cloneJob(job), nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return ErrNotFound
	}
	delete(s.jobs, id)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) MarkProcessing(id string, progress int) error {
	_, err := s.Update(id, func(j *Job) error {
		if err := transition(j, StatusProcessing); err != nil {
			return err
		}
		j.Progress = progress
		return nil
	})
	return err
}

// Complete attaches results. The result is shared with readers and must not
// be mutated afterwards.
func (s *Store) Complete(id string, result *types.MeetingResult) error {
	_, err := s.Update(id, func(j *Job) error {
		if err := transition(j, StatusCompleted); err != nil {
			return err
		}
		j.Progress = ProgressDone
		j.Results = result
		j.Error = ""
		return nil
	})
	return err
}

func (s *Store) Fail(id string, msg string) error {
	_, err := s.Update(id, func(j *Job) error {
		if err := transition(j, StatusFailed); err != nil {
			return err
		}
		j.Error = msg
		j.Results = nil
		return nil
	})
	return err
}

// RecordConsent marks the job consented without touching status or results.
func (s *Store) RecordConsent(id string) error {
	_, err := s.Update(id, func(j *Job) error {
		granted := true
		j.Consented = &granted
		return nil
	})
	return err
}

func transition(j *Job, next Status) error {
	if !j.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, next)
	}
	j.Status = next
	return nil
}

func cloneJob(job *Job) Job {
	tmp := *job
	if job.Consented != nil {
		c := *job.Consented
		tmp.Consented = &c
	}
	return tmp
}
