package processor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/registry"
)

var (
	ErrUnsupportedFormat = errors.New("invalid audio format. Supported: mp3, m4a, wav, ogg, webm")
	ErrFileTooLarge      = errors.New("file too large")
)

var allowedExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".ogg":  true,
	".webm": true,
}

// SupportedAudio reports whether filename has an accepted audio extension.
func SupportedAudio(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Service accepts audio uploads: it validates them, stores the bytes, creates
// the job record and hands the job to the runner.
type Service struct {
	store     *registry.Store
	runner    *Runner
	uploadDir string
	maxBytes  int64
	newID     func() string
	log       *logger.Logger
}

func NewService(store *registry.Store, runner *Runner, uploadDir string, maxBytes int64, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		runner:    runner,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
		newID:     func() string { return uuid.New().String() },
		log:       log.Component("intake"),
	}
}

func (s *Service) MaxBytes() int64 { return s.maxBytes }

// CheckSize rejects uploads over the configured ceiling.
func (s *Service) CheckSize(size int64) error {
	if size > s.maxBytes {
		return fmt.Errorf("%w: maximum size is %s", ErrFileTooLarge, humanize.IBytes(uint64(s.maxBytes)))
	}
	return nil
}

// Submit validates and stores an upload, then starts processing it.
func (s *Service) Submit(filename string, data []byte) (registry.Job, error) {
	name := filepath.Base(filename)
	if !SupportedAudio(name) {
		return registry.Job{}, ErrUnsupportedFormat
	}
	if err := s.CheckSize(int64(len(data))); err != nil {
		return registry.Job{}, err
	}

	id := s.newID()
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return registry.Job{}, fmt.Errorf("create upload dir: %w", err)
	}
	audioPath := filepath.Join(s.uploadDir, id+"_"+name)
	if err := os.WriteFile(audioPath, data, 0o600); err != nil {
		return registry.Job{}, fmt.Errorf("save upload: %w", err)
	}

	job, err := s.store.Create(id, name)
	if err != nil {
		_ = os.Remove(audioPath)
		return registry.Job{}, err
	}
	s.log.WithMeeting(id).
		WithField("filename", name).
		WithField("size", humanize.IBytes(uint64(len(data)))).
		Info("meeting accepted")

	s.runner.Go(id, audioPath)
	return job, nil
}
