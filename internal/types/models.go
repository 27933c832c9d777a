package types

import (
	"encoding/json"
	"time"
)

// Analysis is the structured view of a meeting returned by the language model.
type Analysis struct {
	Summary           Summary      `json:"summary"`
	ActionItems       []ActionItem `json:"action_items"`
	FollowUpQuestions []string     `json:"follow_up_questions"`
	KeyInsights       []string     `json:"key_insights"`
	TopicsDiscussed   []string     `json:"topics_discussed"`
	Sentiment         string       `json:"sentiment"`
	MeetingType       string       `json:"meeting_type"`

	// Raw is the JSON object exactly as the model produced it, before
	// normalization. Empty for analyses that did not come from a model.
	Raw json.RawMessage `json:"-"`
}

type Summary struct {
	Brief    string `json:"brief"`
	Detailed string `json:"detailed"`
}

type ActionItem struct {
	Task     string `json:"task"`
	Owner    string `json:"owner,omitempty"`
	DueDate  string `json:"due_date,omitempty"`
	Priority string `json:"priority"`
}

// MeetingResult is everything a completed job exposes through the results endpoint.
type MeetingResult struct {
	MeetingID   string         `json:"meeting_id"`
	ProcessedAt time.Time      `json:"processed_at"`
	Transcript  TranscriptInfo `json:"transcript"`
	Analysis    Analysis       `json:"analysis"`
	TextOutputs TextOutputs    `json:"text_outputs"`
	FilePaths   FilePaths      `json:"file_paths"`
}

type TranscriptInfo struct {
	FullText         string `json:"full_text"`
	WordCount        int    `json:"word_count"`
	DurationEstimate string `json:"duration_estimate"`
	DurationMinutes  int    `json:"duration_minutes"`
	Language         string `json:"language,omitempty"`
}

type TextOutputs struct {
	Summary        string `json:"summary"`
	ActionItems    string `json:"action_items"`
	CombinedReport string `json:"combined_report"`
}

type FilePaths struct {
	TranscriptTXT   string `json:"transcript_txt"`
	SummaryTXT      string `json:"summary_txt"`
	ActionItemsTXT  string `json:"action_items_txt"`
	ActionItemsXLSX string `json:"action_items_xlsx"`
	CombinedTXT     string `json:"combined_txt"`
	FullReportJSON  string `json:"full_report_json"`
}
