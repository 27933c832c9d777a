package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"meeting-insights-go/internal/config"
	"meeting-insights-go/internal/extractor"
	"meeting-insights-go/internal/httpapi"
	"meeting-insights-go/internal/inbox"
	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/pipeline"
	"meeting-insights-go/internal/processor"
	"meeting-insights-go/internal/registry"
	"meeting-insights-go/internal/report"
	"meeting-insights-go/internal/transcription"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().WithError(err).Fatal("invalid configuration")
	}

	log := logger.New()
	log.WithField("service", "meeting-insights-go").
		WithField("analyzer", cfg.Analyzer.Provider).
		WithField("workers", cfg.Workers).
		Info("starting service")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, err := newAnalyzer(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create analyzer")
	}

	store := registry.NewStore()
	pipe := pipeline.New(newTranscriber(cfg, log), analyzer, report.NewWriter(cfg.Paths.OutputRoot), log)
	runner := processor.NewRunner(store, pipe, cfg.Workers, log)
	intake := processor.NewService(store, runner, cfg.Paths.UploadDir, cfg.MaxUploadBytes(), log)
	srv := httpapi.NewServer(store, intake, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Paths.InboxDir != "" {
		w, err := inbox.New(cfg.Paths.InboxDir, intake, log)
		if err != nil {
			log.WithError(err).Fatal("failed to start inbox watcher")
		}
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
		if err := runner.Wait(shutdownCtx); err != nil {
			log.WithError(err).Warn("jobs still running at exit")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Fatal("service stopped")
	}
	log.Info("service stopped")
}

func newTranscriber(cfg *config.Config, log *logger.Logger) transcription.Transcriber {
	if cfg.Mock.Transcribe {
		log.Warn("using mock transcription")
		return transcription.Mock{}
	}
	return transcription.NewWhisperClient(transcription.Options{
		APIKey:   cfg.OpenAI.APIKey,
		BaseURL:  cfg.OpenAI.BaseURL,
		Model:    cfg.OpenAI.TranscribeModel,
		Language: cfg.OpenAI.TranscribeLanguage,
		Timeout:  time.Duration(cfg.HTTPTimeoutSec) * time.Second,
	}, log)
}

func newAnalyzer(ctx context.Context, cfg *config.Config, log *logger.Logger) (extractor.Analyzer, error) {
	if cfg.Mock.LLM {
		log.Warn("using mock analyzer")
		return extractor.Mock{}, nil
	}
	opts := extractor.Options{
		Temperature: *cfg.Analyzer.Temperature,
		MaxTokens:   cfg.Analyzer.MaxTokens,
		Timeout:     time.Duration(cfg.HTTPTimeoutSec) * time.Second,
	}
	if cfg.Analyzer.Provider == config.ProviderGemini {
		opts.APIKey = cfg.Gemini.APIKey
		opts.Model = cfg.Gemini.Model
		return extractor.NewGeminiAnalyzer(ctx, opts, log)
	}
	opts.APIKey = cfg.OpenAI.APIKey
	opts.BaseURL = cfg.OpenAI.BaseURL
	opts.Model = cfg.OpenAI.AnalysisModel
	return extractor.NewOpenAIAnalyzer(opts, log), nil
}
