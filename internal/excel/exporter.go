package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/engprogress/pkg/models"
)

// Sheet names of an exported workbook
const (
	OverviewSheet = "Overview"
	TopicsSheet   = "Topics"
	WordsSheet    = "Words"
)

var (
	topicHeader = []interface{}{"Topic", "Mastery", "Score", "Last studied", "Lessons", "Assessments"}
	wordHeader  = []interface{}{"Word", "Translation", "Mastery", "Correct", "Incorrect", "First seen", "Last reviewed"}
)

// ExportProgress writes a user's progress snapshot to an Excel workbook with
// an overview sheet, one row per topic and one row per word.
func ExportProgress(snap *models.ProgressSnapshot, path string) error {
	if snap == nil || snap.Progress == nil {
		return fmt.Errorf("nothing to export")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create export directory: %v", err)
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", OverviewSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %v", err)
	}
	if err := writeOverview(f, snap.Progress); err != nil {
		return err
	}

	if _, err := f.NewSheet(TopicsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %v", err)
	}
	rows := [][]interface{}{topicHeader}
	for _, t := range snap.Topics {
		rows = append(rows, []interface{}{
			t.TopicName,
			t.MasteryLevel.String(),
			t.Score,
			formatTime(&t.LastStudiedAt),
			strings.Join(t.RelatedLessonIDs, ", "),
			strings.Join(t.RelatedAssessmentIDs, ", "),
		})
	}
	if err := writeRows(f, TopicsSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(WordsSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %v", err)
	}
	rows = [][]interface{}{wordHeader}
	for _, w := range snap.Words {
		translation := ""
		if w.Translation != nil {
			translation = *w.Translation
		}
		rows = append(rows, []interface{}{
			w.Word,
			translation,
			w.MasteryLevel.String(),
			w.TimesCorrect,
			w.TimesIncorrect,
			formatTime(&w.FirstSeenAt),
			formatTime(&w.LastReviewedAt),
		})
	}
	if err := writeRows(f, WordsSheet, rows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %v", err)
	}
	return nil
}

func writeOverview(f *excelize.File, p *models.LearningProgress) error {
	score := ""
	if p.OverallScore != nil {
		score = fmt.Sprint(*p.OverallScore)
	}
	return writeRows(f, OverviewSheet, [][]interface{}{
		{"User", p.UserID},
		{"Proficiency", string(p.EstimatedProficiencyLevel)},
		{"Overall score", score},
		{"Trajectory", string(p.LearningTrajectory)},
		{"Strengths", strings.Join(p.Strengths, ", ")},
		{"Weaknesses", strings.Join(p.Weaknesses, ", ")},
		{"Last lesson", formatTime(p.LastLessonCompletedAt)},
		{"Last assessment", formatTime(p.LastAssessmentCompletedAt)},
	})
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %v", sheet, i+1, err)
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
