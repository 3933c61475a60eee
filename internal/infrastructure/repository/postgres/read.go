package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

const recordColumns = `id, user_id, file_name, file_extension, storage_path, size_bytes,
	document_type, confidence_score, processing_method, processing_duration_seconds,
	text_content, extracted_metadata, llm_analysis, status, error_message,
	is_critical, is_favorite, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.AnalysisRecord, error) {
	var rec domain.AnalysisRecord
	var docType, status string
	var method, textContent, errMessage sql.NullString
	var metadataRaw, analysisRaw []byte

	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.FileName, &rec.FileExtension, &rec.StoragePath, &rec.SizeBytes,
		&docType, &rec.Confidence, &method, &rec.Duration,
		&textContent, &metadataRaw, &analysisRaw, &status, &errMessage,
		&rec.IsCritical, &rec.IsFavorite, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.DocumentType = domain.DocumentType(docType)
	rec.Status = domain.AnalysisStatus(status)
	rec.Method = method.String
	rec.TextContent = textContent.String
	rec.Error = errMessage.String

	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	if len(analysisRaw) > 0 {
		rec.Analysis = &domain.Analysis{}
		if err := json.Unmarshal(analysisRaw, rec.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}
	return &rec, nil
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM analysis_records
WHERE id = $1
`, id)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get analysis record: %w: %s", domain.ErrDocumentNotFound, id)
		}
		return nil, domain.WrapError(domain.ErrStorage, "scan analysis record", err)
	}
	return rec, nil
}

func (r *AnalysisRepository) GetDetails(ctx context.Context, userID, id string) (*domain.DocumentDetails, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+recordColumns+`
FROM analysis_records
WHERE id = $1 AND user_id = $2
`, id, userID)

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get document details: %w: %s", domain.ErrDocumentNotFound, id)
		}
		return nil, domain.WrapError(domain.ErrStorage, "scan document details", err)
	}

	details := &domain.DocumentDetails{
		Record:      *rec,
		Tags:        []domain.DocumentTag{},
		Medications: []domain.ExtractedMedication{},
		LabValues:   []domain.ExtractedLabValue{},
	}

	if details.Summary, err = r.summaryFor(ctx, id); err != nil {
		return nil, err
	}
	if details.Tags, err = r.tagsFor(ctx, id); err != nil {
		return nil, err
	}
	if details.Medications, err = r.medicationsFor(ctx, id); err != nil {
		return nil, err
	}
	if details.LabValues, err = r.labValuesFor(ctx, id); err != nil {
		return nil, err
	}
	return details, nil
}

func (r *AnalysisRepository) summaryFor(ctx context.Context, documentID string) (*domain.DocumentSummary, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT document_id, short_summary, detailed_summary, key_points, action_items, model_used
FROM document_summaries
WHERE document_id = $1
`, documentID)

	var s domain.DocumentSummary
	var short, detailed, model sql.NullString
	var keyPointsRaw, actionItemsRaw []byte
	err := row.Scan(&s.DocumentID, &short, &detailed, &keyPointsRaw, &actionItemsRaw, &model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "scan summary", err)
	}
	s.ShortSummary = short.String
	s.DetailedSummary = detailed.String
	s.ModelUsed = model.String
	if len(keyPointsRaw) > 0 {
		if err := json.Unmarshal(keyPointsRaw, &s.KeyPoints); err != nil {
			return nil, fmt.Errorf("unmarshal key points: %w", err)
		}
	}
	if len(actionItemsRaw) > 0 {
		if err := json.Unmarshal(actionItemsRaw, &s.ActionItems); err != nil {
			return nil, fmt.Errorf("unmarshal action items: %w", err)
		}
	}
	return &s, nil
}

func (r *AnalysisRepository) tagsFor(ctx context.Context, documentID string) ([]domain.DocumentTag, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT document_id, tag_name, tag_type
FROM document_tags
WHERE document_id = $1
ORDER BY tag_name
`, documentID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "query tags", err)
	}
	defer rows.Close()

	tags := []domain.DocumentTag{}
	for rows.Next() {
		var tag domain.DocumentTag
		var tagType string
		if err := rows.Scan(&tag.DocumentID, &tag.Name, &tagType); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan tag", err)
		}
		tag.Type = domain.TagType(tagType)
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *AnalysisRepository) medicationsFor(ctx context.Context, documentID string) ([]domain.ExtractedMedication, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT document_id, name, dose, unit, extracted_confidence, verified
FROM extracted_medications
WHERE document_id = $1
ORDER BY id
`, documentID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "query medications", err)
	}
	defer rows.Close()
	return scanMedications(rows)
}

func (r *AnalysisRepository) labValuesFor(ctx context.Context, documentID string) ([]domain.ExtractedLabValue, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT document_id, test_name, value, unit, is_abnormal, extracted_confidence, verified
FROM extracted_lab_values
WHERE document_id = $1
ORDER BY id
`, documentID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "query lab values", err)
	}
	defer rows.Close()
	return scanLabValues(rows)
}

func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.AnalysisRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+recordColumns+`
FROM analysis_records
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "query records", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Search matches the query as a substring of the file name, the extracted
// text or the serialized analysis. Relevance ranking happens in the caller.
func (r *AnalysisRepository) Search(ctx context.Context, userID, query string, docType domain.DocumentType) ([]domain.AnalysisRecord, error) {
	pattern := "%" + query + "%"
	rows, err := r.db.QueryContext(ctx, `
SELECT `+recordColumns+`
FROM analysis_records
WHERE user_id = $1
  AND ($2 = '' OR document_type = $2)
  AND ($3 = '%%' OR file_name ILIKE $3 OR text_content ILIKE $3 OR llm_analysis::text ILIKE $3)
ORDER BY created_at DESC
`, userID, string(docType), pattern)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "search records", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func collectRecords(rows *sql.Rows) ([]domain.AnalysisRecord, error) {
	records := []domain.AnalysisRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan record row", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (r *AnalysisRepository) Statistics(ctx context.Context, userID string) (*domain.DocumentStatistics, error) {
	stats := &domain.DocumentStatistics{DocumentTypes: map[domain.DocumentType]int{}}

	row := r.db.QueryRowContext(ctx, `
SELECT COUNT(*), COALESCE(SUM(size_bytes), 0), COALESCE(AVG(confidence_score), 0)
FROM analysis_records
WHERE user_id = $1
`, userID)
	var totalBytes int64
	if err := row.Scan(&stats.TotalDocuments, &totalBytes, &stats.AvgConfidence); err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "scan statistics", err)
	}
	stats.TotalSizeMB = float64(totalBytes) / (1024 * 1024)

	rows, err := r.db.QueryContext(ctx, `
SELECT document_type, COUNT(*)
FROM analysis_records
WHERE user_id = $1
GROUP BY document_type
`, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "query type counts", err)
	}
	defer rows.Close()

	best := 0
	for rows.Next() {
		var docType string
		var count int
		if err := rows.Scan(&docType, &count); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan type count", err)
		}
		stats.DocumentTypes[domain.DocumentType(docType)] = count
		if count > best {
			best = count
			stats.MostCommonType = domain.DocumentType(docType)
		}
	}
	return stats, rows.Err()
}

func (r *AnalysisRepository) ListMedicationsByUser(ctx context.Context, userID string) ([]domain.ExtractedMedication, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT m.document_id, m.name, m.dose, m.unit, m.extracted_confidence, m.verified
FROM extracted_medications m
JOIN analysis_records rec ON rec.id = m.document_id
WHERE rec.user_id = $1
ORDER BY m.id
`, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "query user medications", err)
	}
	defer rows.Close()
	return scanMedications(rows)
}

func (r *AnalysisRepository) ListLabValuesByUser(ctx context.Context, userID string) ([]domain.ExtractedLabValue, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT v.document_id, v.test_name, v.value, v.unit, v.is_abnormal, v.extracted_confidence, v.verified
FROM extracted_lab_values v
JOIN analysis_records rec ON rec.id = v.document_id
WHERE rec.user_id = $1
ORDER BY v.id
`, userID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "query user lab values", err)
	}
	defer rows.Close()
	return scanLabValues(rows)
}

func scanMedications(rows *sql.Rows) ([]domain.ExtractedMedication, error) {
	meds := []domain.ExtractedMedication{}
	for rows.Next() {
		var m domain.ExtractedMedication
		if err := rows.Scan(&m.DocumentID, &m.Name, &m.Dose, &m.Unit, &m.Confidence, &m.Verified); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan medication", err)
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

func scanLabValues(rows *sql.Rows) ([]domain.ExtractedLabValue, error) {
	labs := []domain.ExtractedLabValue{}
	for rows.Next() {
		var v domain.ExtractedLabValue
		var unit sql.NullString
		if err := rows.Scan(&v.DocumentID, &v.TestName, &v.Value, &unit, &v.IsAbnormal, &v.Confidence, &v.Verified); err != nil {
			return nil, domain.WrapError(domain.ErrStorage, "scan lab value", err)
		}
		v.Unit = unit.String
		labs = append(labs, v)
	}
	return labs, rows.Err()
}
