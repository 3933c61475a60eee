package domain

// Analysis is the payload produced by the analysis backend adapter. Every
// field beyond Analysis and Disclaimer is category-specific and may be empty;
// an empty Analysis string means no AI insight was available, which callers
// must treat as degraded output, not as an error.
type Analysis struct {
	DocumentType   string                `json:"document_type"`
	ModelUsed      string                `json:"model_used,omitempty"`
	Analysis       string                `json:"analysis"`
	Disclaimer     string                `json:"disclaimer"`
	ExtractedData  map[string]int        `json:"extracted_data,omitempty"`
	Medications    []ExtractedMedication `json:"medications,omitempty"`
	LabValues      []ExtractedLabValue   `json:"extracted_values,omitempty"`
	AbnormalFlags  []string              `json:"abnormal_flags,omitempty"`
	KeyPoints      []string              `json:"key_points,omitempty"`
	ActionItems    []string              `json:"action_items,omitempty"`
	MedicalTerms   map[string]string     `json:"medical_terms,omitempty"`
	Interactions   *InteractionReport    `json:"interaction_check,omitempty"`
	AdherenceTips  []string              `json:"adherence_tips,omitempty"`
	KeyFindings    []string              `json:"key_findings,omitempty"`
	Recommendation []string              `json:"recommendations,omitempty"`
}

// InteractionReport lists known dangerous medication pairs found in a set of
// medication names.
type InteractionReport struct {
	Interactions []Interaction `json:"interactions"`
	Warnings     []string      `json:"warnings"`
}

type Interaction struct {
	Medications []string `json:"medications"`
	Interaction string   `json:"interaction"`
	Severity    string   `json:"severity"`
}

// SymptomAssessment is informational guidance, never a diagnosis.
type SymptomAssessment struct {
	Guidance         string `json:"guidance"`
	UrgentCareNeeded bool   `json:"urgent_care_needed"`
	Recommendation   string `json:"recommendation"`
	Disclaimer       string `json:"disclaimer"`
}

type HealthRecommendations struct {
	Recommendations []string `json:"recommendations"`
	Note            string   `json:"note"`
}
