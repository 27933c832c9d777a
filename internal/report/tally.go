package report

import (
	"fmt"

	"meeting-insights-go/internal/types"
)

// PriorityTally counts action items per priority.
type PriorityTally struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

func Tally(items []types.ActionItem) PriorityTally {
	t := PriorityTally{Total: len(items)}
	for _, it := range items {
		switch it.Priority {
		case "high":
			t.High++
		case "low":
			t.Low++
		default:
			t.Medium++
		}
	}
	return t
}

func (t PriorityTally) String() string {
	if t.Total == 0 {
		return "none"
	}
	return fmt.Sprintf("%d (high %d, medium %d, low %d)", t.Total, t.High, t.Medium, t.Low)
}
