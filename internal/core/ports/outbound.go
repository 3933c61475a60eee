package ports

import (
	"context"
	"io"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

// AnalysisRepository persists records and their child entities.
// CompleteAnalysis must write the record update, summary and system tags in
// one transaction so partial rows are never visible.
type AnalysisRepository interface {
	Create(ctx context.Context, rec *domain.AnalysisRecord) error
	CompleteAnalysis(ctx context.Context, rec *domain.AnalysisRecord, summary *domain.DocumentSummary, tags []domain.DocumentTag) error
	AddStructuredData(ctx context.Context, documentID string, meds []domain.ExtractedMedication, labs []domain.ExtractedLabValue) error
	UpdateStatus(ctx context.Context, id string, status domain.AnalysisStatus, errMessage string) error
	GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error)
	GetDetails(ctx context.Context, userID, id string) (*domain.DocumentDetails, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AnalysisRecord, error)
	Search(ctx context.Context, userID, query string, docType domain.DocumentType) ([]domain.AnalysisRecord, error)
	Statistics(ctx context.Context, userID string) (*domain.DocumentStatistics, error)
	AddTag(ctx context.Context, tag domain.DocumentTag) error
	UpdateFlags(ctx context.Context, id string, favorite, critical bool) error
	ListLabValuesByUser(ctx context.Context, userID string) ([]domain.ExtractedLabValue, error)
	ListMedicationsByUser(ctx context.Context, userID string) ([]domain.ExtractedMedication, error)
}

// FileStore stores source documents on a locally reachable path. Resolve
// returns an absolute path for engines that shell out (tesseract, pdftotext).
type FileStore interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (int64, error)
	Resolve(key string) string
}

// MessageQueue publishes/consumes analysis job events.
type MessageQueue interface {
	PublishAnalysisRequested(ctx context.Context, documentID string) error
	SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor turns a stored file into text plus extraction metadata.
// A failed extraction is reported through ExtractionResult.Err, not a
// returned error; the caller decides whether partial text is usable.
type TextExtractor interface {
	Extract(ctx context.Context, path, extension string) domain.ExtractionResult
}

// DocumentClassifier assigns a medical category from keyword evidence.
type DocumentClassifier interface {
	Classify(text string) domain.DocumentType
}

// ConfidenceScorer combines extraction and classification signals into a
// single [0,1] score.
type ConfidenceScorer interface {
	Score(extraction domain.ExtractionResult, docType domain.DocumentType) float64
}

// DocumentAnalyzer produces structured findings for extracted text. It must
// degrade rather than fail: backend unavailability yields fallback-shaped
// payloads, never an error.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, text string, docType domain.DocumentType, metadata map[string]any) *domain.Analysis
	Summarize(ctx context.Context, analysis *domain.Analysis) string
	CheckInteractions(medications []string) *domain.InteractionReport
	AssessSymptoms(ctx context.Context, symptoms []string) *domain.SymptomAssessment
	Recommendations(ctx context.Context, profile map[string]any) *domain.HealthRecommendations
}

// CompletionClient is the narrow contract to a live text-generation backend.
// Absence of credentials is an expected runtime condition, not an error.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
	Configured() bool
	Model() string
}
