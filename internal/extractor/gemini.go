package extractor

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"meeting-insights-go/internal/logger"
	"meeting-insights-go/internal/types"
)

// GeminiAnalyzer sends the same prompt to Gemini with a JSON response type.
type GeminiAnalyzer struct {
	generate func(ctx context.Context, prompt string) (string, error)
	log      *logger.Logger
}

func NewGeminiAnalyzer(ctx context.Context, opts Options, log *logger.Logger) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(opts.Temperature),
		MaxOutputTokens:   int32(opts.MaxTokens),
		ResponseMIMEType:  "application/json",
	}
	a := &GeminiAnalyzer{log: log.Component("extractor-gemini")}
	a.generate = func(ctx context.Context, prompt string) (string, error) {
		result, err := client.Models.GenerateContent(ctx, opts.Model, genai.Text(prompt), cfg)
		if err != nil {
			return "", fmt.Errorf("generate content: %w", err)
		}
		if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
			return "", fmt.Errorf("%w: empty response from Gemini", ErrMalformedResponse)
		}
		var sb strings.Builder
		for _, part := range result.Candidates[0].Content.Parts {
			if part != nil && part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
		return sb.String(), nil
	}
	return a, nil
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, transcript string) (types.Analysis, error) {
	a.log.Info("calling gemini")
	content, err := a.generate(ctx, BuildMeetingPrompt(transcript))
	if err != nil {
		return types.Analysis{}, err
	}
	analysis, err := ParseAnalysis(content)
	if err != nil {
		a.log.WithError(err).Warn("could not parse analysis")
		return types.Analysis{}, err
	}
	return analysis, nil
}
