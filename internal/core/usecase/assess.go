package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
	"github.com/kirillkom/health-doc-pipeline/internal/core/ports"
)

// AssessUseCase exposes the assessment operations that work on caller
// supplied input instead of a stored document.
type AssessUseCase struct {
	analyzer ports.DocumentAnalyzer
}

func NewAssessUseCase(analyzer ports.DocumentAnalyzer) *AssessUseCase {
	return &AssessUseCase{analyzer: analyzer}
}

func (uc *AssessUseCase) CheckInteractions(_ context.Context, medications []string) (*domain.InteractionReport, error) {
	cleaned := cleanList(medications)
	if len(cleaned) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "check interactions",
			fmt.Errorf("at least one medication is required"))
	}
	return uc.analyzer.CheckInteractions(cleaned), nil
}

func (uc *AssessUseCase) AssessSymptoms(ctx context.Context, symptoms []string) (*domain.SymptomAssessment, error) {
	cleaned := cleanList(symptoms)
	if len(cleaned) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "assess symptoms",
			fmt.Errorf("at least one symptom is required"))
	}
	return uc.analyzer.AssessSymptoms(ctx, cleaned), nil
}

func (uc *AssessUseCase) Recommendations(ctx context.Context, profile map[string]any) (*domain.HealthRecommendations, error) {
	if profile == nil {
		profile = map[string]any{}
	}
	return uc.analyzer.Recommendations(ctx, profile), nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
