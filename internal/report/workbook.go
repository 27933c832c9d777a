package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"meeting-insights-go/internal/types"
)

const (
	actionsSheet   = "Action Items"
	questionsSheet = "Follow-up Questions"
)

var actionHeader = []string{"#", "Task", "Owner", "Due Date", "Priority"}

// WriteWorkbook saves action items and follow-up questions as an xlsx file.
func WriteWorkbook(path, meetingID string, a types.Analysis) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", actionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(actionsSheet, "A1", &actionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, item := range a.ActionItems {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{i + 1, item.Task, item.Owner, item.DueDate, item.Priority}
		if err := f.SetSheetRow(actionsSheet, cell, &row); err != nil {
			return fmt.Errorf("write action item %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(actionsSheet, "B", "B", 60)
	_ = f.SetColWidth(actionsSheet, "C", "E", 18)

	if _, err := f.NewSheet(questionsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	_ = f.SetCellValue(questionsSheet, "A1", "Meeting ID")
	_ = f.SetCellValue(questionsSheet, "B1", meetingID)
	for i, q := range a.FollowUpQuestions {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{i + 1, q}
		if err := f.SetSheetRow(questionsSheet, cell, &row); err != nil {
			return fmt.Errorf("write question %d: %w", i+1, err)
		}
	}
	_ = f.SetColWidth(questionsSheet, "B", "B", 80)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
