package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*AnalysisRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &AnalysisRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, user_id, file_name").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDeserializesAnalysis(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "file_name", "file_extension", "storage_path", "size_bytes",
		"document_type", "confidence_score", "processing_method", "processing_duration_seconds",
		"text_content", "extracted_metadata", "llm_analysis", "status", "error_message",
		"is_critical", "is_favorite", "created_at", "updated_at",
	}).AddRow(
		"doc-1", "user-1", "ecg.pdf", ".pdf", "doc-1_ecg.pdf", int64(2048),
		"ecg", 0.9, "pdftotext_layout", 1.5,
		"Heart rate: 72", []byte(`{"pages":2}`),
		[]byte(`{"document_type":"ecg_analysis","analysis":"ok","disclaimer":"d","extracted_data":{"heart_rate":72},"key_points":["Diagnosis stable"]}`),
		"completed", "",
		false, false, now, now,
	)
	mock.ExpectQuery("SELECT id, user_id, file_name").
		WithArgs("doc-1").
		WillReturnRows(rows)

	rec, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.DocumentType != domain.TypeECG || rec.Confidence != 0.9 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Analysis == nil || rec.Analysis.ExtractedData["heart_rate"] != 72 {
		t.Errorf("analysis not deserialized: %+v", rec.Analysis)
	}
	if len(rec.Analysis.KeyPoints) != 1 {
		t.Errorf("key points = %v", rec.Analysis.KeyPoints)
	}
	if rec.Metadata["pages"] != float64(2) {
		t.Errorf("metadata = %v", rec.Metadata)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE analysis_records").
		WithArgs("missing", string(domain.StatusFailed), "boom", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusFailed, "boom")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateFlagsWritesBothFlags(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE analysis_records").
		WithArgs("doc-1", true, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateFlags(context.Background(), "doc-1", true, false); err != nil {
		t.Fatalf("UpdateFlags() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCompleteAnalysisWritesChildrenInOneTransaction(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE analysis_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO document_summaries").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO document_tags").
		WithArgs("doc-1", "cardiology", "system").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO document_tags").
		WithArgs("doc-1", "heart", "system").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rec := &domain.AnalysisRecord{
		ID:           "doc-1",
		DocumentType: domain.TypeECG,
		Confidence:   0.9,
		Status:       domain.StatusCompleted,
		Analysis:     &domain.Analysis{DocumentType: "ecg_analysis"},
	}
	summary := &domain.DocumentSummary{DocumentID: "doc-1", ShortSummary: "ok"}
	tags := []domain.DocumentTag{
		{DocumentID: "doc-1", Name: "cardiology", Type: domain.TagSystem},
		{DocumentID: "doc-1", Name: "heart", Type: domain.TagSystem},
	}

	if err := repo.CompleteAnalysis(context.Background(), rec, summary, tags); err != nil {
		t.Fatalf("CompleteAnalysis: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCompleteAnalysisRollsBackOnMissingRecord(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE analysis_records").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	rec := &domain.AnalysisRecord{ID: "missing", Status: domain.StatusCompleted}
	err := repo.CompleteAnalysis(context.Background(), rec, nil, nil)
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAddStructuredDataInsertsAllRows(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO extracted_medications").
		WithArgs("doc-1", "Lisinopril", 10.0, "mg", 0.8, false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO extracted_lab_values").
		WithArgs("doc-1", "Glucose", 5.4, "mmol/L", false, 0.8, false).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	meds := []domain.ExtractedMedication{{Name: "Lisinopril", Dose: 10, Unit: "mg", Confidence: 0.8}}
	labs := []domain.ExtractedLabValue{{TestName: "Glucose", Value: 5.4, Unit: "mmol/L", Confidence: 0.8}}
	if err := repo.AddStructuredData(context.Background(), "doc-1", meds, labs); err != nil {
		t.Fatalf("AddStructuredData: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAddStructuredDataNoRowsIsNoop(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	if err := repo.AddStructuredData(context.Background(), "doc-1", nil, nil); err != nil {
		t.Fatalf("AddStructuredData: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
