package extractor

import "fmt"

const systemPrompt = "You are an expert meeting analyst. Provide structured, actionable insights."

const meetingPrompt = `Analyze this meeting transcript and provide a comprehensive analysis.

TRANSCRIPT:
%s

Provide your analysis in the following JSON format:
{
  "summary": {
    "brief": "2-3 sentence executive summary",
    "detailed": "2-3 paragraph detailed summary covering key topics, decisions, and outcomes"
  },
  "action_items": [
    {
      "task": "Clear description of what needs to be done",
      "owner": "Person responsible (if mentioned)",
      "due_date": "Due date (if mentioned)",
      "priority": "high/medium/low based on context"
    }
  ],
  "follow_up_questions": [
    "Question about an unresolved topic",
    "Question that could deepen the discussion",
    "Question about implementation or next steps"
  ],
  "key_insights": ["Important insight or decision"],
  "topics_discussed": ["topic"],
  "sentiment": "positive/neutral/mixed/negative",
  "meeting_type": "brainstorm/planning/review/standup/other"
}

Return between 2 and 4 follow-up questions.
Be specific and actionable. Extract real information from the transcript, not generic observations.
Return ONLY the JSON object.
`

// BuildMeetingPrompt embeds the transcript into the fixed analysis template.
func BuildMeetingPrompt(transcript string) string {
	return fmt.Sprintf(meetingPrompt, transcript)
}
