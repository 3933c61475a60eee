package ports

import (
	"context"
	"io"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, userID, filename string, body io.Reader) (*domain.AnalysisRecord, error)
}

// DocumentAnalysisPipeline runs the full analysis workflow for a stored
// document. Safe to call from any goroutine; no UI-thread affinity.
type DocumentAnalysisPipeline interface {
	AnalyzeStored(ctx context.Context, documentID string) (*domain.AnalyzeResponse, error)
}

// DocumentQueryService is the inbound read model for records and children.
type DocumentQueryService interface {
	Details(ctx context.Context, userID, documentID string) (*domain.DocumentDetails, error)
	List(ctx context.Context, userID string, limit int) ([]domain.AnalysisRecord, error)
	Search(ctx context.Context, userID, query string, docType domain.DocumentType) ([]domain.AnalysisRecord, error)
	Statistics(ctx context.Context, userID string) (*domain.DocumentStatistics, error)
	AddUserTag(ctx context.Context, userID, documentID, tag string) error
	SetFlags(ctx context.Context, userID, documentID string, favorite, critical bool) error
}

// HealthAdvisor covers the assessment operations that do not involve a
// stored document.
type HealthAdvisor interface {
	CheckInteractions(ctx context.Context, medications []string) (*domain.InteractionReport, error)
	AssessSymptoms(ctx context.Context, symptoms []string) (*domain.SymptomAssessment, error)
	Recommendations(ctx context.Context, profile map[string]any) (*domain.HealthRecommendations, error)
}
