package transcription

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-insights-go/internal/logger"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.m4a")
	require.NoError(t, os.WriteFile(path, []byte("fake-audio-bytes"), 0o644))
	return path
}

func testLogger() *logger.Logger {
	return logger.NewWithOutput(io.Discard)
}

func TestWhisperClientSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		assert.Equal(t, "meeting.m4a", hdr.Filename)
		data, _ := io.ReadAll(f)
		assert.Equal(t, []byte("fake-audio-bytes"), data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  hello team  "}`))
	}))
	defer srv.Close()

	c := NewWhisperClient(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", Language: "en"}, testLogger())
	text, err := c.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "hello team", text)
}

func TestWhisperClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid file format.","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewWhisperClient(Options{APIKey: "sk-test", BaseURL: srv.URL}, testLogger())
	_, err := c.Transcribe(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid file format.")
}

func TestWhisperClientNoRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewWhisperClient(Options{APIKey: "sk-test", BaseURL: srv.URL}, testLogger())
	_, err := c.Transcribe(context.Background(), writeAudio(t))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWhisperClientEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text":"   "}`))
	}))
	defer srv.Close()

	c := NewWhisperClient(Options{APIKey: "sk-test", BaseURL: srv.URL}, testLogger())
	_, err := c.Transcribe(context.Background(), writeAudio(t))
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestWhisperClientMissingFile(t *testing.T) {
	c := NewWhisperClient(Options{APIKey: "sk-test", BaseURL: "http://127.0.0.1:0"}, testLogger())
	_, err := c.Transcribe(context.Background(), filepath.Join(t.TempDir(), "gone.wav"))
	assert.Error(t, err)
}

func TestMock(t *testing.T) {
	text, err := Mock{}.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix([]byte(text), []byte("MOCK TRANSCRIPT")))

	text, err = Mock{Text: "custom"}.Transcribe(context.Background(), writeAudio(t))
	require.NoError(t, err)
	assert.Equal(t, "custom", text)
}
