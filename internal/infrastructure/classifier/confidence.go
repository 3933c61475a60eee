package classifier

import "github.com/kirillkom/health-doc-pipeline/internal/core/domain"

// Scorer turns extraction signals into a heuristic [0,1] quality estimate.
// It is additive and capped, not a probability.
type Scorer struct{}

func NewScorer() *Scorer { return &Scorer{} }

func (Scorer) Score(extraction domain.ExtractionResult, docType domain.DocumentType) float64 {
	score := 0.0

	if extraction.Text != "" {
		score += 0.5
	}

	switch n := len(extraction.Text); {
	case n > 100:
		score += 0.2
	case n > 50:
		score += 0.1
	}

	if docType != domain.TypeUnknown && docType != "" {
		score += 0.2
	}

	if conf, ok := extraction.OCRConfidence(); ok {
		score += conf * 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}
