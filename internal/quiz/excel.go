package quiz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

var excelColumns = []string{"text", "option_a", "option_b", "option_c", "option_d", "correct_answer", "explanation"}

// ImportExcel builds a quiz from an uploaded spreadsheet. The first sheet
// must carry a header row with text, option_a..option_d, correct_answer and
// explanation columns; every data row becomes one question. The whole file
// goes through BulkCreate, so a bad row anywhere means nothing is stored.
func (s *Service) ImportExcel(ctx context.Context, in CreateQuizInput, r io.Reader) (*BulkResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open excel: %v", ErrInvalidInput, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: excel sheet is empty", ErrInvalidInput)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: no data rows found", ErrInvalidInput)
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range excelColumns {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("%w: missing required column: %s", ErrInvalidInput, col)
		}
	}

	questions := make([]BulkQuestionInput, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		get := func(key string) string {
			idx, ok := header[key]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		questions = append(questions, BulkQuestionInput{
			Text:          get("text"),
			Options:       []string{get("option_a"), get("option_b"), get("option_c"), get("option_d")},
			CorrectAnswer: get("correct_answer"),
			Explanation:   get("explanation"),
		})
	}

	return s.BulkCreate(ctx, BulkQuizInput{
		Title:       in.Title,
		Description: in.Description,
		SubjectID:   in.SubjectID,
		UserID:      in.UserID,
		Questions:   questions,
	})
}

// ExportExcel renders a quiz's questions as a spreadsheet, one row per
// question in display order.
func (s *Service) ExportExcel(ctx context.Context, quizID int64) ([]byte, string, error) {
	out, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, h := range excelColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, q := range out.Questions {
		row := i + 2
		values := []any{q.Text}
		for _, opt := range q.Options {
			values = append(values, opt)
		}
		values = append(values, q.CorrectAnswer, q.Explanation)
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	_ = f.SetColWidth(sheet, "A", "G", 28)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("write excel: %w", err)
	}
	filename := fmt.Sprintf("quiz-%d.xlsx", out.ID)
	return buf.Bytes(), filename, nil
}
