package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
	"github.com/kirillkom/health-doc-pipeline/internal/core/ports"
)

type IngestDocumentUseCase struct {
	repo  ports.AnalysisRepository
	store ports.FileStore
	queue ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.AnalysisRepository,
	store ports.FileStore,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:  repo,
		store: store,
		queue: queue,
	}
}

// Upload stores the raw file, creates the record in processing status and
// publishes the analysis job. Extension and size are checked again by the
// pipeline before extraction; here we only reject formats no extractor
// could ever handle.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	userID, filename string,
	body io.Reader,
) (*domain.AnalysisRecord, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !SupportedExtension(ext) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document",
			fmt.Errorf("unsupported file format: %s", ext))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.store.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to file store: %w", err)
	}

	size, err := uc.store.Stat(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("stat stored file: %w", err)
	}

	rec := &domain.AnalysisRecord{
		ID:            id,
		UserID:        userID,
		FileName:      filename,
		FileExtension: ext,
		StoragePath:   storageKey,
		SizeBytes:     size,
		DocumentType:  domain.TypeUnknown,
		Status:        domain.StatusProcessing,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create analysis record: %w", err)
	}

	if err := uc.queue.PublishAnalysisRequested(ctx, rec.ID); err != nil {
		return nil, fmt.Errorf("publish analysis job: %w", err)
	}

	return rec, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
