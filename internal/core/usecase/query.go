package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
	"github.com/kirillkom/health-doc-pipeline/internal/core/ports"
)

const defaultListLimit = 50

type QueryUseCase struct {
	repo ports.AnalysisRepository
}

func NewQueryUseCase(repo ports.AnalysisRepository) *QueryUseCase {
	return &QueryUseCase{repo: repo}
}

func (uc *QueryUseCase) Details(ctx context.Context, userID, documentID string) (*domain.DocumentDetails, error) {
	details, err := uc.repo.GetDetails(ctx, userID, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document details: %w", err)
	}
	return details, nil
}

func (uc *QueryUseCase) List(ctx context.Context, userID string, limit int) ([]domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	recs, err := uc.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return recs, nil
}

// Search delegates substring matching to the repository and orders the
// result by a simple relevance heuristic: filename hits outrank type hits
// outrank content hits.
func (uc *QueryUseCase) Search(ctx context.Context, userID, query string, docType domain.DocumentType) ([]domain.AnalysisRecord, error) {
	recs, err := uc.repo.Search(ctx, userID, query, docType)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return relevanceScore(recs[i], query) > relevanceScore(recs[j], query)
	})
	return recs, nil
}

func relevanceScore(rec domain.AnalysisRecord, query string) float64 {
	q := strings.ToLower(query)
	score := 0.0
	if strings.Contains(strings.ToLower(rec.FileName), q) {
		score += 0.5
	}
	if strings.Contains(string(rec.DocumentType), q) {
		score += 0.3
	}
	if rec.TextContent != "" && strings.Contains(strings.ToLower(rec.TextContent), q) {
		score += 0.2
	}
	return score
}

func (uc *QueryUseCase) Statistics(ctx context.Context, userID string) (*domain.DocumentStatistics, error) {
	stats, err := uc.repo.Statistics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("document statistics: %w", err)
	}
	return stats, nil
}

func (uc *QueryUseCase) SetFlags(ctx context.Context, userID, documentID string, favorite, critical bool) error {
	// Ownership check before touching flags.
	if _, err := uc.repo.GetDetails(ctx, userID, documentID); err != nil {
		return fmt.Errorf("verify document ownership: %w", err)
	}
	if err := uc.repo.UpdateFlags(ctx, documentID, favorite, critical); err != nil {
		return fmt.Errorf("set document flags: %w", err)
	}
	return nil
}

func (uc *QueryUseCase) AddUserTag(ctx context.Context, userID, documentID, tag string) error {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return domain.WrapError(domain.ErrInvalidInput, "add user tag", fmt.Errorf("empty tag name"))
	}

	// Ownership check before touching tags.
	if _, err := uc.repo.GetDetails(ctx, userID, documentID); err != nil {
		return fmt.Errorf("verify document ownership: %w", err)
	}

	err := uc.repo.AddTag(ctx, domain.DocumentTag{
		DocumentID: documentID,
		Name:       tag,
		Type:       domain.TagUser,
	})
	if err != nil {
		return fmt.Errorf("add user tag: %w", err)
	}
	return nil
}
