package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/abadojack/whatlanggo"

	"meeting-insights-go/internal/types"
)

// WordsPerMinute is the assumed speaking rate behind duration estimates.
const WordsPerMinute = 150

const stampLayout = "2006-01-02 15:04:05"

func WordCount(text string) int {
	return len(strings.Fields(text))
}

// DurationMinutes estimates meeting length from the transcript size.
func DurationMinutes(wordCount int) int {
	return wordCount / WordsPerMinute
}

// DetectLanguage returns the ISO 639-1 code of the transcript, or "" when unsure.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if info.Lang == -1 {
		return ""
	}
	return info.Lang.Iso6391()
}

func rule(ch string, n int) string {
	return strings.Repeat(ch, n)
}

func RenderTranscript(meetingID, transcript string, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MEETING TRANSCRIPT\nMeeting ID: %s\nGenerated: %s\n\n", meetingID, at.Format(stampLayout))
	fmt.Fprintf(&b, "%s\n\n%s\n", rule("=", 50), transcript)
	return b.String()
}

func RenderSummary(meetingID string, a types.Analysis, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MEETING SUMMARY\nMeeting ID: %s\nGenerated: %s\n\n", meetingID, at.Format(stampLayout))
	fmt.Fprintf(&b, "EXECUTIVE SUMMARY\n%s\n%s\n\n", rule("-", 20), orDefault(a.Summary.Brief, "No summary available"))
	fmt.Fprintf(&b, "DETAILED SUMMARY\n%s\n%s\n\n", rule("-", 20), orDefault(a.Summary.Detailed, "No detailed summary available"))
	fmt.Fprintf(&b, "KEY INSIGHTS\n%s\n", rule("-", 20))
	for _, insight := range a.KeyInsights {
		fmt.Fprintf(&b, "• %s\n", insight)
	}
	fmt.Fprintf(&b, "\nTOPICS DISCUSSED: %s", strings.Join(a.TopicsDiscussed, ", "))
	fmt.Fprintf(&b, "\nMEETING TYPE: %s", orDefault(a.MeetingType, "other"))
	fmt.Fprintf(&b, "\nOVERALL SENTIMENT: %s", orDefault(a.Sentiment, "neutral"))
	return b.String()
}

func RenderActionItems(meetingID string, a types.Analysis, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "MEETING ACTION ITEMS\nMeeting ID: %s\nGenerated: %s\n\n", meetingID, at.Format(stampLayout))
	fmt.Fprintf(&b, "ACTION ITEMS\n%s\n\n", rule("=", 50))
	if len(a.ActionItems) == 0 {
		b.WriteString("No action items identified.\n")
	}
	for i, item := range a.ActionItems {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.Task)
		if item.Owner != "" {
			fmt.Fprintf(&b, "   Owner: %s\n", item.Owner)
		}
		if item.DueDate != "" {
			fmt.Fprintf(&b, "   Due: %s\n", item.DueDate)
		}
		fmt.Fprintf(&b, "   Priority: %s\n\n", orDefault(item.Priority, "medium"))
	}
	fmt.Fprintf(&b, "\nFOLLOW-UP QUESTIONS\n%s\n", rule("=", 50))
	for i, q := range a.FollowUpQuestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return b.String()
}

// RenderCombined embeds both reports and the full transcript in one document.
func RenderCombined(meetingID, summary, actions, transcript string, tally PriorityTally, at time.Time) string {
	sep := rule("=", 60)
	var b strings.Builder
	fmt.Fprintf(&b, "MEETING REPORT\nGenerated: %s\nMeeting ID: %s\n", at.Format(stampLayout), meetingID)
	fmt.Fprintf(&b, "Action items: %s\n\n", tally)
	fmt.Fprintf(&b, "%s\n\n%s\n\n", sep, summary)
	fmt.Fprintf(&b, "%s\n\n%s\n\n", sep, actions)
	fmt.Fprintf(&b, "%s\n\nFULL TRANSCRIPT\n%s\n%s\n", sep, rule("-", 20), transcript)
	return b.String()
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
