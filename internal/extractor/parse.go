package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"meeting-insights-go/internal/types"
)

// ErrMalformedResponse means the model answered but not with the expected JSON shape.
var ErrMalformedResponse = errors.New("malformed analysis response")

var (
	sentiments   = []string{"positive", "neutral", "mixed", "negative"}
	meetingTypes = []string{"brainstorm", "planning", "review", "standup", "other"}
	priorities   = []string{"high", "medium", "low"}
)

// ParseAnalysis decodes model output into an Analysis and normalizes its
// enumerated fields.
func ParseAnalysis(content string) (types.Analysis, error) {
	raw := extractJSON(content)
	if raw == "" {
		return types.Analysis{}, fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
	}
	var a types.Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return types.Analysis{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	for i, item := range a.ActionItems {
		if strings.TrimSpace(item.Task) == "" {
			return types.Analysis{}, fmt.Errorf("%w: action item %d has no task", ErrMalformedResponse, i+1)
		}
	}
	normalize(&a)
	a.Raw = json.RawMessage(raw)
	return a, nil
}

func normalize(a *types.Analysis) {
	a.Sentiment = oneOf(a.Sentiment, sentiments, "neutral")
	a.MeetingType = oneOf(a.MeetingType, meetingTypes, "other")
	for i := range a.ActionItems {
		item := &a.ActionItems[i]
		item.Task = strings.TrimSpace(item.Task)
		item.Owner = strings.TrimSpace(item.Owner)
		item.DueDate = strings.TrimSpace(item.DueDate)
		item.Priority = oneOf(item.Priority, priorities, "medium")
	}
	if a.ActionItems == nil {
		a.ActionItems = []types.ActionItem{}
	}
	if a.FollowUpQuestions == nil {
		a.FollowUpQuestions = []string{}
	}
	if a.KeyInsights == nil {
		a.KeyInsights = []string{}
	}
	if a.TopicsDiscussed == nil {
		a.TopicsDiscussed = []string{}
	}
}

func oneOf(v string, allowed []string, def string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	return def
}

// extractContentFromChoices reads openai-style choices[0].message.content
func extractContentFromChoices(body []byte) (string, bool) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Choices) == 0 {
		return "", false
	}
	return parsed.Choices[0].Message.Content, true
}

// extractJSON finds the first balanced JSON object in a string and returns it
// verbatim. Prose or markdown fences around the object are skipped; nothing
// inside it is rewritten.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(s[start : i+1])
			}
		}
	}
	return ""
}
