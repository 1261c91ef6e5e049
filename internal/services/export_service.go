package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/prepstack/attempt-engine/internal/models"
	"github.com/prepstack/attempt-engine/internal/utils"
)

// ExportService renders a user's attempt history as a downloadable report.
type ExportService interface {
	ExportHistoryToExcel(ctx context.Context) ([]byte, error)
	ExportHistoryToCSV(ctx context.Context) ([]byte, error)
}

type exportService struct {
	completion CompletionService
	logger     utils.Logger
}

func NewExportService(completion CompletionService, logger utils.Logger) ExportService {
	return &exportService{completion: completion, logger: logger}
}

var historyExportHeaders = []string{
	"Test", "Status", "Started At", "Finished At",
	"Score", "Total Marks", "Answered", "Questions", "Time Spent (minutes)",
}

func (s *exportService) ExportHistoryToExcel(ctx context.Context) ([]byte, error) {
	attempts, err := s.completion.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	f := excelize.NewFile()
	sheetName := "History"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	for i, header := range historyExportHeaders {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, attempt := range attempts {
		for colIndex, value := range attemptToExportRow(attempt) {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Exported history to Excel", "attempts", len(attempts))
	return buf.Bytes(), nil
}

func (s *exportService) ExportHistoryToCSV(ctx context.Context) ([]byte, error) {
	attempts, err := s.completion.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(historyExportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, attempt := range attempts {
		row := attemptToExportRow(attempt)
		record := make([]string, len(row))
		for i, value := range row {
			record[i] = fmt.Sprintf("%v", value)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	s.logger.Info("Exported history to CSV", "attempts", len(attempts))
	return buf.Bytes(), nil
}

func attemptToExportRow(attempt *models.TestAttempt) []interface{} {
	spent := 0
	for _, secs := range attempt.TimeSpent {
		spent += secs
	}

	finished := ""
	if !attempt.EndTime.IsZero() {
		finished = attempt.EndTime.Format("2006-01-02 15:04:05")
	}

	return []interface{}{
		attempt.TestTitle,
		string(attempt.Status),
		attempt.StartTime.Format("2006-01-02 15:04:05"),
		finished,
		strconv.FormatFloat(attempt.Score, 'f', 2, 64),
		attempt.TotalMarks,
		attempt.AnsweredCount(),
		len(attempt.Questions),
		spent / 60,
	}
}
