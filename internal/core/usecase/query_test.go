package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

type searchRepoFake struct {
	repoFake
	results []domain.AnalysisRecord
}

func (f *searchRepoFake) Search(context.Context, string, string, domain.DocumentType) ([]domain.AnalysisRecord, error) {
	return f.results, nil
}

func TestSearchOrdersByRelevance(t *testing.T) {
	repo := &searchRepoFake{results: []domain.AnalysisRecord{
		{ID: "content-only", FileName: "scan.pdf", DocumentType: domain.TypeReport, TextContent: "glucose level"},
		{ID: "filename-hit", FileName: "glucose_results.pdf", DocumentType: domain.TypeBloodTest},
	}}
	uc := NewQueryUseCase(repo)

	recs, err := uc.Search(context.Background(), "user-1", "glucose", "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 results, got %d", len(recs))
	}
	if recs[0].ID != "filename-hit" {
		t.Fatalf("filename match must rank first, got %s", recs[0].ID)
	}
}

func TestAddUserTagNormalizes(t *testing.T) {
	repo := &repoFake{doc: storedDoc()}
	uc := NewQueryUseCase(repo)

	if err := uc.AddUserTag(context.Background(), "user-1", "doc-1", "  Cardio  "); err != nil {
		t.Fatalf("AddUserTag() error = %v", err)
	}
	if len(repo.userTags) != 1 {
		t.Fatalf("expected one tag, got %d", len(repo.userTags))
	}
	if repo.userTags[0].Name != "cardio" || repo.userTags[0].Type != domain.TagUser {
		t.Fatalf("unexpected tag: %+v", repo.userTags[0])
	}
}

func TestAddUserTagRejectsEmpty(t *testing.T) {
	uc := NewQueryUseCase(&repoFake{doc: storedDoc()})
	err := uc.AddUserTag(context.Background(), "user-1", "doc-1", "   ")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
