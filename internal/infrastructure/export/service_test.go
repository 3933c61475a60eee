package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
	"github.com/kirillkom/health-doc-pipeline/internal/core/ports"
)

type repoFake struct {
	ports.AnalysisRepository
	labs []domain.ExtractedLabValue
	meds []domain.ExtractedMedication
}

func (r *repoFake) ListLabValuesByUser(_ context.Context, _ string) ([]domain.ExtractedLabValue, error) {
	return r.labs, nil
}

func (r *repoFake) ListMedicationsByUser(_ context.Context, _ string) ([]domain.ExtractedMedication, error) {
	return r.meds, nil
}

func TestHealthDataXLSX(t *testing.T) {
	repo := &repoFake{
		labs: []domain.ExtractedLabValue{
			{DocumentID: "doc-1", TestName: "Glucose", Value: 5.4, Unit: "mmol/L", Confidence: 0.8},
		},
		meds: []domain.ExtractedMedication{
			{DocumentID: "doc-1", Name: "Lisinopril", Dose: 10, Unit: "mg", Confidence: 0.8},
		},
	}
	svc := NewService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))

	data, err := svc.HealthDataXLSX(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("HealthDataXLSX: %v", err)
	}

	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer book.Close()

	if got, _ := book.GetCellValue("Lab Values", "B2"); got != "Glucose" {
		t.Errorf("lab cell = %q", got)
	}
	if got, _ := book.GetCellValue("Medications", "B2"); got != "Lisinopril" {
		t.Errorf("medication cell = %q", got)
	}
	for _, sheet := range book.GetSheetList() {
		if sheet == "Sheet1" {
			t.Error("default sheet not removed")
		}
	}
}
