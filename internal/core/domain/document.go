package domain

import "time"

type AnalysisStatus string

const (
	StatusProcessing AnalysisStatus = "processing"
	StatusCompleted  AnalysisStatus = "completed"
	StatusFailed     AnalysisStatus = "failed"
)

type DocumentType string

const (
	TypeECG             DocumentType = "ecg"
	TypeBloodTest       DocumentType = "blood_test"
	TypePrescription    DocumentType = "prescription"
	TypeRadiology       DocumentType = "radiology"
	TypeLabReport       DocumentType = "lab_report"
	TypeMedicalDocument DocumentType = "medical_document"
	TypeReport          DocumentType = "report"
	TypeGeneralDocument DocumentType = "general_document"
	TypeUnknown         DocumentType = "unknown"
)

// MaxFileSizeBytes is enforced by validation before any extraction I/O.
const MaxFileSizeBytes = 50 * 1024 * 1024

// AnalysisRecord is the durable result of one pipeline run. Child entities
// (summary, tags, medications, lab values) hang off its ID. Records in
// StatusFailed carry no children.
type AnalysisRecord struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	FileName      string         `json:"file_name"`
	FileExtension string         `json:"file_extension"`
	StoragePath   string         `json:"storage_path"`
	SizeBytes     int64          `json:"size_bytes"`
	DocumentType  DocumentType   `json:"document_type"`
	Confidence    float64        `json:"confidence_score"`
	Method        string         `json:"processing_method"`
	Duration      float64        `json:"processing_duration_seconds"`
	TextContent   string         `json:"text_content,omitempty"`
	Metadata      map[string]any `json:"extracted_metadata,omitempty"`
	Analysis      *Analysis      `json:"llm_analysis,omitempty"`
	Status        AnalysisStatus `json:"status"`
	Error         string         `json:"error,omitempty"`
	IsCritical    bool           `json:"is_critical"`
	IsFavorite    bool           `json:"is_favorite"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ExtractionResult is owned by a single pipeline invocation and never shared
// across requests. Metadata is the open bag for engine-specific extras
// (page counts, OCR confidence, chart notes).
type ExtractionResult struct {
	Text     string         `json:"text_content"`
	Method   string         `json:"method"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Err      error          `json:"-"`
}

// OCRConfidence reports the engine confidence attached during image
// extraction, if any.
func (r ExtractionResult) OCRConfidence() (float64, bool) {
	v, ok := r.Metadata["confidence"]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

type ClassificationResult struct {
	DocumentType DocumentType `json:"document_type"`
	Confidence   float64      `json:"confidence_score"`
}

type TagType string

const (
	TagSystem TagType = "system"
	TagUser   TagType = "user"
	TagAI     TagType = "ai"
)

type DocumentTag struct {
	DocumentID string  `json:"document_id"`
	Name       string  `json:"tag_name"`
	Type       TagType `json:"tag_type"`
}

type DocumentSummary struct {
	DocumentID      string   `json:"document_id"`
	ShortSummary    string   `json:"short_summary"`
	DetailedSummary string   `json:"detailed_summary"`
	KeyPoints       []string `json:"key_points"`
	ActionItems     []string `json:"action_items"`
	ModelUsed       string   `json:"model_used"`
}

type ExtractedMedication struct {
	DocumentID string  `json:"document_id"`
	Name       string  `json:"name"`
	Dose       float64 `json:"dose"`
	Unit       string  `json:"unit"`
	Confidence float64 `json:"extracted_confidence"`
	Verified   bool    `json:"verified"`
}

type ExtractedLabValue struct {
	DocumentID string  `json:"document_id"`
	TestName   string  `json:"test"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	IsAbnormal bool    `json:"is_abnormal"`
	Confidence float64 `json:"extracted_confidence"`
	Verified   bool    `json:"verified"`
}

// AnalyzeResponse is what a pipeline run returns to the caller, whether or
// not persistence succeeded.
type AnalyzeResponse struct {
	DocumentID         string                `json:"document_id,omitempty"`
	ProcessingResult   *ExtractionResult     `json:"processing_result,omitempty"`
	Classification     *ClassificationResult `json:"classification,omitempty"`
	Analysis           *Analysis             `json:"llm_analysis,omitempty"`
	Summary            string                `json:"summary,omitempty"`
	ProcessingDuration float64               `json:"processing_duration"`
	Success            bool                  `json:"success"`
	Error              string                `json:"error,omitempty"`
	PersistWarning     string                `json:"persist_warning,omitempty"`
}

// DocumentDetails aggregates a record with all child entities for read paths.
type DocumentDetails struct {
	Record      AnalysisRecord        `json:"document"`
	Summary     *DocumentSummary      `json:"summary,omitempty"`
	Tags        []DocumentTag         `json:"tags"`
	Medications []ExtractedMedication `json:"medications"`
	LabValues   []ExtractedLabValue   `json:"lab_values"`
}

type DocumentStatistics struct {
	TotalDocuments int                  `json:"total_documents"`
	DocumentTypes  map[DocumentType]int `json:"document_types,omitempty"`
	TotalSizeMB    float64              `json:"total_size_mb"`
	AvgConfidence  float64              `json:"average_confidence"`
	MostCommonType DocumentType         `json:"most_common_type,omitempty"`
}
