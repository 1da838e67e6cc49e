package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/edustack/question-catalog-service/internal/repositories"
	"github.com/xuri/excelize/v2"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

var exportHeaders = []string{
	"ID", "Question Text", "Subject", "Topic", "Difficulty",
	"Marks", "Exam Type", "College", "Usage Count", "Status", "Last Used",
}

// ExportQuestions writes the filtered question list to an xlsx workbook and
// returns the raw bytes plus a suggested filename.
func (s *exportService) ExportQuestions(ctx context.Context, filters repositories.QuestionFilters) ([]byte, string, error) {
	// Exports ignore pagination and fetch the full filtered set
	filters.Limit = 0
	filters.Offset = 0

	questions, total, err := s.repo.Question().List(ctx, nil, filters)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load questions for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Questions"
	f.SetSheetName("Sheet1", sheet)

	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, "", fmt.Errorf("failed to compute header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	for row, q := range questions {
		topic := ""
		if q.Topic != nil {
			topic = *q.Topic
		}
		lastUsed := ""
		if q.LastUsedAt != nil {
			lastUsed = q.LastUsedAt.Format(time.RFC3339)
		}
		values := []interface{}{
			q.ID, q.Text, q.Subject, topic, string(q.Difficulty),
			q.Marks, q.ExamType, q.College, q.UsageCount, string(q.Status), lastUsed,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return nil, "", fmt.Errorf("failed to compute cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, "", fmt.Errorf("failed to write row %d: %w", row+2, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize workbook: %w", err)
	}

	s.logger.Info("Exported questions", "rows", len(questions), "total_matched", total)

	filename := fmt.Sprintf("questions-%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
