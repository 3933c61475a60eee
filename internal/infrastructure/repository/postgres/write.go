package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

func (r *AnalysisRepository) Create(ctx context.Context, rec *domain.AnalysisRecord) error {
	metadataJSON, err := json.Marshal(orEmptyMap(rec.Metadata))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO analysis_records (
	id, user_id, file_name, file_extension, storage_path, size_bytes,
	document_type, confidence_score, processing_method, processing_duration_seconds,
	text_content, extracted_metadata, llm_analysis, status, error_message,
	is_critical, is_favorite, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NULL,$13,$14,$15,$16,$17,$18)
`,
		rec.ID, rec.UserID, rec.FileName, rec.FileExtension, rec.StoragePath, rec.SizeBytes,
		string(rec.DocumentType), rec.Confidence, rec.Method, rec.Duration,
		rec.TextContent, metadataJSON, string(rec.Status), rec.Error,
		rec.IsCritical, rec.IsFavorite, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "insert analysis record", err)
	}
	return nil
}

// CompleteAnalysis writes the analyzed record, its summary and system tags
// atomically, so a record in status completed never lacks its children.
func (r *AnalysisRepository) CompleteAnalysis(ctx context.Context, rec *domain.AnalysisRecord, summary *domain.DocumentSummary, tags []domain.DocumentTag) error {
	metadataJSON, err := json.Marshal(orEmptyMap(rec.Metadata))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	var analysisJSON []byte
	if rec.Analysis != nil {
		if analysisJSON, err = json.Marshal(rec.Analysis); err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "begin complete tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
UPDATE analysis_records
SET document_type = $2, confidence_score = $3, processing_method = $4,
	processing_duration_seconds = $5, text_content = $6, extracted_metadata = $7,
	llm_analysis = $8, status = $9, error_message = '', is_critical = $10,
	updated_at = $11
WHERE id = $1
`,
		rec.ID, string(rec.DocumentType), rec.Confidence, rec.Method,
		rec.Duration, rec.TextContent, metadataJSON,
		analysisJSON, string(rec.Status), rec.IsCritical, time.Now().UTC(),
	)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "update analysis record", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("complete analysis: %w: %s", domain.ErrDocumentNotFound, rec.ID)
	}

	if summary != nil {
		keyPointsJSON, err := json.Marshal(orEmptySlice(summary.KeyPoints))
		if err != nil {
			return fmt.Errorf("marshal key points: %w", err)
		}
		actionItemsJSON, err := json.Marshal(orEmptySlice(summary.ActionItems))
		if err != nil {
			return fmt.Errorf("marshal action items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO document_summaries (document_id, short_summary, detailed_summary, key_points, action_items, model_used)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (document_id) DO UPDATE SET
	short_summary = EXCLUDED.short_summary,
	detailed_summary = EXCLUDED.detailed_summary,
	key_points = EXCLUDED.key_points,
	action_items = EXCLUDED.action_items,
	model_used = EXCLUDED.model_used
`,
			rec.ID, summary.ShortSummary, summary.DetailedSummary, keyPointsJSON, actionItemsJSON, summary.ModelUsed,
		); err != nil {
			return domain.WrapError(domain.ErrStorage, "insert summary", err)
		}
	}

	for _, tag := range tags {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO document_tags (document_id, tag_name, tag_type)
VALUES ($1,$2,$3)
ON CONFLICT (document_id, tag_name) DO NOTHING
`, rec.ID, tag.Name, string(tag.Type)); err != nil {
			return domain.WrapError(domain.ErrStorage, "insert tag", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrStorage, "commit complete tx", err)
	}
	return nil
}

// AddStructuredData stores extracted medications and lab values. The caller
// treats failure here as non-critical.
func (r *AnalysisRepository) AddStructuredData(ctx context.Context, documentID string, meds []domain.ExtractedMedication, labs []domain.ExtractedLabValue) error {
	if len(meds) == 0 && len(labs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "begin structured data tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, med := range meds {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO extracted_medications (document_id, name, dose, unit, extracted_confidence, verified)
VALUES ($1,$2,$3,$4,$5,$6)
`, documentID, med.Name, med.Dose, med.Unit, med.Confidence, med.Verified); err != nil {
			return domain.WrapError(domain.ErrStorage, "insert medication", err)
		}
	}
	for _, lab := range labs {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO extracted_lab_values (document_id, test_name, value, unit, is_abnormal, extracted_confidence, verified)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, documentID, lab.TestName, lab.Value, lab.Unit, lab.IsAbnormal, lab.Confidence, lab.Verified); err != nil {
			return domain.WrapError(domain.ErrStorage, "insert lab value", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.WrapError(domain.ErrStorage, "commit structured data tx", err)
	}
	return nil
}

func (r *AnalysisRepository) UpdateStatus(ctx context.Context, id string, status domain.AnalysisStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE analysis_records
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "update record status", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("update status: %w: %s", domain.ErrDocumentNotFound, id)
	}
	return nil
}

func (r *AnalysisRepository) UpdateFlags(ctx context.Context, id string, favorite, critical bool) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE analysis_records
SET is_favorite = $2, is_critical = $3, updated_at = $4
WHERE id = $1
`, id, favorite, critical, time.Now().UTC())
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "update record flags", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("update flags: %w: %s", domain.ErrDocumentNotFound, id)
	}
	return nil
}

func (r *AnalysisRepository) AddTag(ctx context.Context, tag domain.DocumentTag) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO document_tags (document_id, tag_name, tag_type)
VALUES ($1,$2,$3)
ON CONFLICT (document_id, tag_name) DO NOTHING
`, tag.DocumentID, tag.Name, string(tag.Type))
	if err != nil {
		return domain.WrapError(domain.ErrStorage, "insert tag", err)
	}
	return nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
