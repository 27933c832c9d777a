package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"meeting-insights-go/internal/types"
)

// Artifact directories, relative to the writer root.
const (
	TranscriptsDir = "transcripts"
	SummariesDir   = "summaries"
	ActionItemsDir = "action_items"
	OutputsDir     = "outputs"
	ReportsDir     = "reports"
)

// Writer renders and persists every artifact of a completed analysis.
// Files written before a failure are left in place.
type Writer struct {
	root string
	now  func() time.Time
}

func NewWriter(root string) *Writer {
	return &Writer{root: root, now: time.Now}
}

// fullReport mirrors the model's own answer. Analysis holds the raw JSON
// when there is one and the normalized analysis otherwise.
type fullReport struct {
	MeetingID   string    `json:"meeting_id"`
	Analysis    any       `json:"analysis"`
	GeneratedAt time.Time `json:"generated_at"`
}

func reportAnalysis(a types.Analysis) any {
	if json.Valid(a.Raw) {
		return a.Raw
	}
	return a
}

// Build formats the transcript and analysis, writes all artifacts and
// returns the combined result.
func (w *Writer) Build(meetingID, transcript string, a types.Analysis) (*types.MeetingResult, error) {
	now := w.now()
	words := WordCount(transcript)
	minutes := DurationMinutes(words)

	transcriptTxt := RenderTranscript(meetingID, transcript, now)
	summaryTxt := RenderSummary(meetingID, a, now)
	actionsTxt := RenderActionItems(meetingID, a, now)
	combinedTxt := RenderCombined(meetingID, summaryTxt, actionsTxt, transcript, Tally(a.ActionItems), now)

	var paths types.FilePaths
	var err error
	if paths.TranscriptTXT, err = w.writeFile(TranscriptsDir, meetingID+"_transcript.txt", []byte(transcriptTxt)); err != nil {
		return nil, err
	}
	if paths.SummaryTXT, err = w.writeFile(SummariesDir, meetingID+"_summary.txt", []byte(summaryTxt)); err != nil {
		return nil, err
	}
	if paths.ActionItemsTXT, err = w.writeFile(ActionItemsDir, meetingID+"_actions.txt", []byte(actionsTxt)); err != nil {
		return nil, err
	}

	reportJSON, err := json.MarshalIndent(fullReport{MeetingID: meetingID, Analysis: reportAnalysis(a), GeneratedAt: now}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if paths.FullReportJSON, err = w.writeFile(ReportsDir, meetingID+"_full_report.json", reportJSON); err != nil {
		return nil, err
	}

	paths.ActionItemsXLSX = w.path(ActionItemsDir, meetingID+"_actions.xlsx")
	if err := WriteWorkbook(paths.ActionItemsXLSX, meetingID, a); err != nil {
		return nil, err
	}

	if paths.CombinedTXT, err = w.writeFile(OutputsDir, meetingID+"_complete.txt", []byte(combinedTxt)); err != nil {
		return nil, err
	}

	return &types.MeetingResult{
		MeetingID:   meetingID,
		ProcessedAt: now,
		Transcript: types.TranscriptInfo{
			FullText:         transcript,
			WordCount:        words,
			DurationEstimate: fmt.Sprintf("%d minutes", minutes),
			DurationMinutes:  minutes,
			Language:         DetectLanguage(transcript),
		},
		Analysis: a,
		TextOutputs: types.TextOutputs{
			Summary:        summaryTxt,
			ActionItems:    actionsTxt,
			CombinedReport: combinedTxt,
		},
		FilePaths: paths,
	}, nil
}

func (w *Writer) path(dir, name string) string {
	return filepath.Join(w.root, dir, name)
}

func (w *Writer) writeFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Join(w.root, dir), 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	p := w.path(dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	return p, nil
}
