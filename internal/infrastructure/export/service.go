// Package export produces XLSX workbooks of a user's extracted lab values
// and medications, one sheet per entity.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
	"github.com/kirillkom/health-doc-pipeline/internal/core/ports"
)

type Service struct {
	repo   ports.AnalysisRepository
	logger *slog.Logger
}

func NewService(repo ports.AnalysisRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// HealthDataXLSX returns a workbook with the user's lab values and
// medications across every analyzed document.
func (s *Service) HealthDataXLSX(ctx context.Context, userID string) ([]byte, error) {
	start := time.Now()

	labs, err := s.repo.ListLabValuesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query lab values: %w", err)
	}
	meds, err := s.repo.ListMedicationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query medications: %w", err)
	}

	f := excelize.NewFile()
	if err := writeLabSheet(f, labs); err != nil {
		return nil, err
	}
	if err := writeMedicationSheet(f, meds); err != nil {
		return nil, err
	}
	// drop the default sheet created by NewFile
	_ = f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", userID,
		"lab_rows", len(labs),
		"medication_rows", len(meds),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeLabSheet(f *excelize.File, labs []domain.ExtractedLabValue) error {
	const sheet = "Lab Values"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Document ID", "Test", "Value", "Unit", "Abnormal", "Confidence", "Verified"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, lab := range labs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, lab.DocumentID)
		write(2, lab.TestName)
		write(3, lab.Value)
		write(4, lab.Unit)
		write(5, lab.IsAbnormal)
		write(6, lab.Confidence)
		write(7, lab.Verified)
	}

	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "B", 24)
	_ = f.SetColWidth(sheet, "C", "D", 12)
	return nil
}

func writeMedicationSheet(f *excelize.File, meds []domain.ExtractedMedication) error {
	const sheet = "Medications"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Document ID", "Name", "Dose", "Unit", "Confidence", "Verified"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, med := range meds {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, med.DocumentID)
		write(2, med.Name)
		write(3, med.Dose)
		write(4, med.Unit)
		write(5, med.Confidence)
		write(6, med.Verified)
	}

	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "B", 24)
	return nil
}
