package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
	"github.com/kirillkom/health-doc-pipeline/internal/core/ports"
)

// AnalyzeDocumentUseCase sequences the pipeline stages for one stored
// document: validate, extract, classify+score, analyze, persist. Only
// validation and extraction failures abort the run; analysis degrades and
// persistence failures are reported as warnings on an otherwise-successful
// response.
type AnalyzeDocumentUseCase struct {
	repo       ports.AnalysisRepository
	store      ports.FileStore
	extractor  ports.TextExtractor
	classifier ports.DocumentClassifier
	scorer     ports.ConfidenceScorer
	analyzer   ports.DocumentAnalyzer
}

func NewAnalyzeDocumentUseCase(
	repo ports.AnalysisRepository,
	store ports.FileStore,
	extractor ports.TextExtractor,
	classifier ports.DocumentClassifier,
	scorer ports.ConfidenceScorer,
	analyzer ports.DocumentAnalyzer,
) *AnalyzeDocumentUseCase {
	return &AnalyzeDocumentUseCase{
		repo:       repo,
		store:      store,
		extractor:  extractor,
		classifier: classifier,
		scorer:     scorer,
		analyzer:   analyzer,
	}
}

var supportedExtensions = map[string]struct{}{
	".pdf": {}, ".docx": {}, ".doc": {}, ".txt": {}, ".rtf": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".bmp": {}, ".tiff": {}, ".tif": {},
}

func SupportedExtension(ext string) bool {
	_, ok := supportedExtensions[strings.ToLower(ext)]
	return ok
}

func (uc *AnalyzeDocumentUseCase) AnalyzeStored(ctx context.Context, documentID string) (*domain.AnalyzeResponse, error) {
	start := time.Now()

	rec, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return failResponse(fmt.Errorf("fetch document by id: %w", err)), err
	}

	if err := uc.validate(ctx, rec); err != nil {
		return uc.abort(ctx, rec, err)
	}

	extraction := uc.extractor.Extract(ctx, uc.store.Resolve(rec.StoragePath), rec.FileExtension)
	if extraction.Err != nil && extraction.Text == "" {
		return uc.abort(ctx, rec, domain.WrapError(domain.ErrExtraction, "extract document", extraction.Err))
	}

	// Classification and scoring never fail; worst case is a generic
	// category with a low score.
	docType := uc.classifier.Classify(extraction.Text)
	confidence := uc.scorer.Score(extraction, docType)

	analysis := uc.analyzer.Analyze(ctx, extraction.Text, docType, extraction.Metadata)
	summary := uc.analyzer.Summarize(ctx, analysis)

	duration := time.Since(start).Seconds()
	uc.applyResult(rec, extraction, docType, confidence, analysis, duration)

	resp := &domain.AnalyzeResponse{
		DocumentID:         rec.ID,
		ProcessingResult:   &extraction,
		Classification:     &domain.ClassificationResult{DocumentType: docType, Confidence: confidence},
		Analysis:           analysis,
		Summary:            summary,
		ProcessingDuration: duration,
		Success:            true,
	}

	if err := uc.persist(ctx, rec, analysis, summary); err != nil {
		slog.Error("persist_analysis_failed", "document_id", rec.ID, "error", err)
		resp.PersistWarning = err.Error()
	}

	return resp, nil
}

// validate enforces the pre-extraction checks: file present, supported
// extension, size cap. No extraction I/O happens before it passes.
func (uc *AnalyzeDocumentUseCase) validate(ctx context.Context, rec *domain.AnalysisRecord) error {
	if !SupportedExtension(rec.FileExtension) {
		return domain.WrapError(domain.ErrInvalidInput, "validate file",
			fmt.Errorf("unsupported file format: %s", rec.FileExtension))
	}

	size, err := uc.store.Stat(ctx, rec.StoragePath)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate file",
			fmt.Errorf("file does not exist: %w", err))
	}
	if size > domain.MaxFileSizeBytes {
		return domain.WrapError(domain.ErrInvalidInput, "validate file",
			fmt.Errorf("file too large: %.1fMB (max: 50MB)", float64(size)/(1024*1024)))
	}
	return nil
}

func (uc *AnalyzeDocumentUseCase) abort(ctx context.Context, rec *domain.AnalysisRecord, cause error) (*domain.AnalyzeResponse, error) {
	if err := uc.repo.UpdateStatus(ctx, rec.ID, domain.StatusFailed, cause.Error()); err != nil {
		return failResponse(cause), fmt.Errorf("%w; mark failed status: %v", cause, err)
	}
	return failResponse(cause), cause
}

func (uc *AnalyzeDocumentUseCase) applyResult(
	rec *domain.AnalysisRecord,
	extraction domain.ExtractionResult,
	docType domain.DocumentType,
	confidence float64,
	analysis *domain.Analysis,
	duration float64,
) {
	rec.DocumentType = docType
	rec.Confidence = confidence
	rec.Method = extraction.Method
	rec.Duration = duration
	rec.TextContent = extraction.Text
	rec.Metadata = extraction.Metadata
	rec.Analysis = analysis
	rec.Status = domain.StatusCompleted
	rec.UpdatedAt = time.Now().UTC()
}

// persist writes the record update, summary and system tags atomically, then
// the structured rows in a second, explicitly non-critical step.
func (uc *AnalyzeDocumentUseCase) persist(ctx context.Context, rec *domain.AnalysisRecord, analysis *domain.Analysis, summary string) error {
	docSummary := &domain.DocumentSummary{
		DocumentID:      rec.ID,
		ShortSummary:    summary,
		DetailedSummary: analysis.Analysis,
		KeyPoints:       analysis.KeyPoints,
		ActionItems:     analysis.ActionItems,
		ModelUsed:       analysis.ModelUsed,
	}

	tags := make([]domain.DocumentTag, 0, 3)
	for _, name := range SystemTags(rec.DocumentType) {
		tags = append(tags, domain.DocumentTag{DocumentID: rec.ID, Name: name, Type: domain.TagSystem})
	}

	if err := uc.repo.CompleteAnalysis(ctx, rec, docSummary, tags); err != nil {
		return domain.WrapError(domain.ErrStorage, "save analysis results", err)
	}

	if len(analysis.Medications) == 0 && len(analysis.LabValues) == 0 {
		return nil
	}
	if err := uc.repo.AddStructuredData(ctx, rec.ID, analysis.Medications, analysis.LabValues); err != nil {
		// Structured rows are non-critical; the caller still gets the result.
		slog.Warn("store_structured_data_failed", "document_id", rec.ID, "error", err)
	}
	return nil
}

func failResponse(err error) *domain.AnalyzeResponse {
	return &domain.AnalyzeResponse{Success: false, Error: err.Error()}
}

// IsAbortError reports whether a pipeline error belongs to the aborting
// taxonomy (validation or extraction) rather than infrastructure trouble.
func IsAbortError(err error) bool {
	return errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrExtraction)
}
