package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-insights-go/internal/logger"
)

const sampleAnalysis = `{
  "summary": {"brief": "Short.", "detailed": "Long {with braces} inside."},
  "action_items": [
    {"task": "Ship the beta", "owner": "Dana", "due_date": "May 3", "priority": "HIGH"},
    {"task": "Write release notes", "priority": "urgent"}
  ],
  "follow_up_questions": ["Who signs off?", "What about docs?"],
  "key_insights": ["Beta is on track"],
  "topics_discussed": ["beta", "docs"],
  "sentiment": "Positive",
  "meeting_type": "sync"
}`

func testLogger() *logger.Logger {
	return logger.NewWithOutput(io.Discard)
}

func TestParseAnalysisNormalizes(t *testing.T) {
	a, err := ParseAnalysis(sampleAnalysis)
	require.NoError(t, err)

	assert.Equal(t, "Long {with braces} inside.", a.Summary.Detailed)
	require.Len(t, a.ActionItems, 2)
	assert.Equal(t, "Ship the beta", a.ActionItems[0].Task)
	assert.Equal(t, "high", a.ActionItems[0].Priority)
	assert.Equal(t, "medium", a.ActionItems[1].Priority)
	assert.Equal(t, "positive", a.Sentiment)
	assert.Equal(t, "other", a.MeetingType)
	assert.JSONEq(t, sampleAnalysis, string(a.Raw))
}

func TestParseAnalysisFenced(t *testing.T) {
	a, err := ParseAnalysis("Here you go:\n```json\n" + sampleAnalysis + "\n```\nThanks")
	require.NoError(t, err)
	assert.Len(t, a.FollowUpQuestions, 2)
}

func TestParseAnalysisKeepsFencesInsideStrings(t *testing.T) {
	body := `{"summary":{"brief":"Dev pasted ` + "```go fmt```" + ` snippet","detailed":"x"}}`
	for name, in := range map[string]string{
		"bare":   body,
		"fenced": "```json\n" + body + "\n```",
		"crlf":   "```json\r\n" + body + "\r\n```\r\n",
	} {
		t.Run(name, func(t *testing.T) {
			a, err := ParseAnalysis(in)
			require.NoError(t, err)
			assert.Equal(t, "Dev pasted ```go fmt``` snippet", a.Summary.Brief)
		})
	}
}

func TestParseAnalysisEmptyListsNotNil(t *testing.T) {
	a, err := ParseAnalysis(`{"summary":{"brief":"b"},"sentiment":"negative"}`)
	require.NoError(t, err)
	assert.NotNil(t, a.ActionItems)
	assert.Empty(t, a.ActionItems)
	assert.NotNil(t, a.FollowUpQuestions)
	assert.Equal(t, "negative", a.Sentiment)
}

func TestParseAnalysisMalformed(t *testing.T) {
	tests := map[string]string{
		"no json":         "I could not analyze this meeting.",
		"truncated":       `{"summary": {"brief": "cut off`,
		"wrong types":     `{"action_items": "none"}`,
		"task missing":    `{"action_items": [{"owner": "Dana"}]}`,
		"blank task":      `{"action_items": [{"task": "   "}]}`,
		"unbalanced tail": `{"summary": {"brief": "x"}`,
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAnalysis(in)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestOpenAIAnalyzerRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, "gpt-4o", req.Model)
		assert.InDelta(t, 0.3, req.Temperature, 1e-6)
		assert.Equal(t, 2000, req.MaxTokens)
		assert.Equal(t, "json_object", req.ResponseFormat["type"])
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.True(t, strings.Contains(req.Messages[1].Content, "we agreed to ship"))
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": sampleAnalysis}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	a := NewOpenAIAnalyzer(Options{
		APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-4o", Temperature: 0.3, MaxTokens: 2000,
	}, testLogger())
	out, err := a.Analyze(context.Background(), "we agreed to ship")
	require.NoError(t, err)
	assert.Len(t, out.ActionItems, 2)
}

func TestOpenAIAnalyzerServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	a := NewOpenAIAnalyzer(Options{APIKey: "k", BaseURL: srv.URL}, testLogger())
	_, err := a.Analyze(context.Background(), "hi")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformedResponse))
	assert.Contains(t, err.Error(), "status=429")
}

func TestOpenAIAnalyzerMalformedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"not json at all"}}]}`))
	}))
	defer srv.Close()

	a := NewOpenAIAnalyzer(Options{APIKey: "k", BaseURL: srv.URL}, testLogger())
	_, err := a.Analyze(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestOpenAIAnalyzerNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	a := NewOpenAIAnalyzer(Options{APIKey: "k", BaseURL: srv.URL}, testLogger())
	_, err := a.Analyze(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGeminiAnalyzerParsesGenerated(t *testing.T) {
	var prompt string
	a := &GeminiAnalyzer{
		log: testLogger(),
		generate: func(_ context.Context, p string) (string, error) {
			prompt = p
			return sampleAnalysis, nil
		},
	}
	out, err := a.Analyze(context.Background(), "budget review")
	require.NoError(t, err)
	assert.Contains(t, prompt, "budget review")
	assert.Equal(t, "positive", out.Sentiment)
}

func TestGeminiAnalyzerError(t *testing.T) {
	a := &GeminiAnalyzer{
		log: testLogger(),
		generate: func(context.Context, string) (string, error) {
			return "", errors.New("quota exceeded")
		},
	}
	_, err := a.Analyze(context.Background(), "x")
	assert.EqualError(t, err, "quota exceeded")
}

func TestMockAnalyzer(t *testing.T) {
	out, err := Mock{}.Analyze(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotEmpty(t, out.ActionItems)
	assert.Contains(t, sentiments, out.Sentiment)

	_, err = Mock{}.Analyze(context.Background(), " ")
	assert.Error(t, err)
}

func TestBuildMeetingPromptEmbedsTranscript(t *testing.T) {
	p := BuildMeetingPrompt("100% of the budget")
	assert.Contains(t, p, "TRANSCRIPT:\n100% of the budget")
	assert.Contains(t, p, `"meeting_type"`)
}
