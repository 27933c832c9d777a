package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"meeting-insights-go/internal/logger"
)

// Transcriber turns a stored audio file into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

var ErrEmptyTranscript = errors.New("transcription returned no text")

type Options struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

// WhisperClient calls the OpenAI audio transcription endpoint. Failures are
// returned as-is; nothing is retried.
type WhisperClient struct {
	opts       Options
	httpClient *http.Client
	log        *logger.Logger
}

func NewWhisperClient(opts Options, log *logger.Logger) *WhisperClient {
	if opts.Model == "" {
		opts.Model = "whisper-1"
	}
	return &WhisperClient{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		log:        log.Component("transcription"),
	}
}

type transcriptionResponse struct {
	Text  string `json:"text"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	size, err := io.Copy(part, f)
	if err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	_ = w.WriteField("model", c.opts.Model)
	if c.opts.Language != "" {
		_ = w.WriteField("language", c.opts.Language)
	}
	_ = w.Close()

	endpoint := strings.TrimRight(c.opts.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &b)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

	c.log.WithField("audio_bytes", size).WithField("model", c.opts.Model).Info("calling transcription api")
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	var out transcriptionResponse
	if resp.StatusCode >= 300 {
		if json.Unmarshal(body, &out) == nil && out.Error != nil {
			return "", fmt.Errorf("transcription api error: status=%d %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("transcription api error: status=%d body=%s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("json decode error: %v body=%s", err, string(body))
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return "", ErrEmptyTranscript
	}
	c.log.WithField("duration_ms", time.Since(start).Milliseconds()).WithField("chars", len(text)).Info("transcription successful")
	return text, nil
}

// Mock returns a canned transcript. Enabled with USE_MOCK_TRANSCRIBE=true.
type Mock struct {
	Text string
}

const mockTranscript = "MOCK TRANSCRIPT: Alice opened the planning meeting. Bob agreed to draft the launch checklist by Friday. " +
	"Carol raised concerns about the QA timeline and asked for two more testers."

func (m Mock) Transcribe(_ context.Context, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	if m.Text != "" {
		return m.Text, nil
	}
	return mockTranscript, nil
}
