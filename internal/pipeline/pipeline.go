package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meeting-insights-go/internal/extractor"
	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/report"
	"meeting-insights-go/internal/transcription"
	"meeting-insights-go/internal/types"
)

type Kind string

const (
	KindTranscription Kind = "transcription_failed"
	KindAnalysis      Kind = "analysis_failed"
	KindMalformed     Kind = "malformed_response"
	KindFormatting    Kind = "formatting_failed"
)

// Error reports which stage of the pipeline failed.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or "" if it did not come from a pipeline.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Pipeline runs transcription, analysis and formatting one after another.
type Pipeline struct {
	transcriber transcription.Transcriber
	analyzer    extractor.Analyzer
	writer      *report.Writer
	log         *logger.Logger
}

func New(t transcription.Transcriber, a extractor.Analyzer, w *report.Writer, log *logger.Logger) *Pipeline {
	return &Pipeline{
		transcriber: t,
		analyzer:    a,
		writer:      w,
		log:         log.Component("pipeline"),
	}
}

// Process produces every artifact for one meeting or returns a *Error.
// Nothing is retried.
func (p *Pipeline) Process(ctx context.Context, meetingID, audioPath string) (*types.MeetingResult, error) {
	log := p.log.WithMeeting(meetingID)
	start := time.Now()

	log.Info("starting transcription")
	transcript, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, &Error{Kind: KindTranscription, Err: err}
	}

	log.WithField("words", report.WordCount(transcript)).Info("analyzing meeting content")
	analysis, err := p.analyzer.Analyze(ctx, transcript)
	if err != nil {
		if errors.Is(err, extractor.ErrMalformedResponse) {
			return nil, &Error{Kind: KindMalformed, Err: err}
		}
		return nil, &Error{Kind: KindAnalysis, Err: err}
	}

	result, err := p.writer.Build(meetingID, transcript, analysis)
	if err != nil {
		return nil, &Error{Kind: KindFormatting, Err: err}
	}
	log.WithField("duration_ms", time.Since(start).Milliseconds()).Info("pipeline finished")
	return result, nil
}
