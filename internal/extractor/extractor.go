package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/types"
)

// Analyzer turns a transcript into a structured meeting analysis.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (types.Analysis, error)
}

type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// OpenAIAnalyzer uses the chat completions endpoint in JSON mode.
type OpenAIAnalyzer struct {
	opts       Options
	httpClient *http.Client
	log        *logger.Logger
}

func NewOpenAIAnalyzer(opts Options, log *logger.Logger) *OpenAIAnalyzer {
	return &OpenAIAnalyzer{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
		log:        log.Component("extractor-openai"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float32           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, transcript string) (types.Analysis, error) {
	reqBody := chatRequest{
		Model: a.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildMeetingPrompt(transcript)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    a.opts.Temperature,
		MaxTokens:      a.opts.MaxTokens,
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return types.Analysis{}, err
	}

	endpoint := strings.TrimRight(a.opts.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return types.Analysis{}, err
	}
	req.Header.Set("Authorization", "Bearer "+a.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	a.log.WithField("payload_len", len(data)).WithField("model", a.opts.Model).Info("calling analysis api")
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return types.Analysis{}, fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	a.log.WithField("http_status", resp.StatusCode).Debug("llm raw:\n" + string(body))
	if resp.StatusCode >= 300 {
		return types.Analysis{}, fmt.Errorf("llm api error: status=%d body=%s", resp.StatusCode, string(body))
	}

	content, ok := extractContentFromChoices(body)
	if !ok {
		return types.Analysis{}, fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}
	analysis, err := ParseAnalysis(content)
	if err != nil {
		a.log.WithError(err).Warn("could not parse analysis")
		return types.Analysis{}, err
	}
	a.log.WithField("action_items", len(analysis.ActionItems)).Info("parsed analysis")
	return analysis, nil
}

// Mock returns a deterministic analysis. Enabled with USE_MOCK_LLM=true.
type Mock struct{}

func (Mock) Analyze(_ context.Context, transcript string) (types.Analysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return types.Analysis{}, fmt.Errorf("empty transcript")
	}
	return types.Analysis{
		Summary: types.Summary{
			Brief:    "The team reviewed launch readiness and agreed on a checklist owner.",
			Detailed: "Alice opened the planning meeting. Bob will draft the launch checklist by Friday. Carol flagged QA capacity as the main risk.",
		},
		ActionItems: []types.ActionItem{
			{Task: "Draft the launch checklist", Owner: "Bob", DueDate: "Friday", Priority: "high"},
			{Task: "Request two additional QA testers", Owner: "Carol", Priority: "medium"},
		},
		FollowUpQuestions: []string{
			"Who approves the final launch checklist?",
			"Can QA start before the checklist is finished?",
		},
		KeyInsights:     []string{"QA capacity is the main launch risk"},
		TopicsDiscussed: []string{"launch", "QA", "staffing"},
		Sentiment:       "mixed",
		MeetingType:     "planning",
	}, nil
}
