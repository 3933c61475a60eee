package usecase

import "github.com/kirillkom/health-doc-pipeline/internal/core/domain"

// systemTagTable is the fixed document_type → system tag mapping. Tags are
// derived deterministically at persist time, never free-typed.
var systemTagTable = map[domain.DocumentType][]string{
	domain.TypeECG:             {"cardiology", "heart", "diagnostic"},
	domain.TypeBloodTest:       {"laboratory", "blood", "test_results"},
	domain.TypePrescription:    {"medication", "pharmacy", "treatment"},
	domain.TypeRadiology:       {"imaging", "diagnostic", "radiology"},
	domain.TypeLabReport:       {"laboratory", "test_results", "clinical"},
	domain.TypeMedicalDocument: {"medical", "healthcare", "clinical"},
}

var defaultSystemTags = []string{"medical", "document"}

func SystemTags(docType domain.DocumentType) []string {
	if tags, ok := systemTagTable[docType]; ok {
		return tags
	}
	return defaultSystemTags
}
