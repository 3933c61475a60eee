package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

// CheckInteractions checks every unordered pair of medication names against
// the static interaction table. Fewer than two names yields an empty report.
func (a *Analyzer) CheckInteractions(medications []string) *domain.InteractionReport {
	report := &domain.InteractionReport{
		Interactions: []domain.Interaction{},
		Warnings:     []string{},
	}
	if len(medications) < 2 {
		return report
	}

	for i, first := range medications {
		for _, second := range medications[i+1:] {
			rule, ok := a.lookupInteraction(first, second)
			if !ok {
				continue
			}
			report.Interactions = append(report.Interactions, domain.Interaction{
				Medications: []string{first, second},
				Interaction: rule.Effect,
				Severity:    rule.Severity,
			})
		}
	}
	report.Warnings = append(report.Warnings, a.rules.InteractionWarning)
	return report
}

func (a *Analyzer) lookupInteraction(first, second string) (interactionRule, bool) {
	f, s := strings.ToLower(first), strings.ToLower(second)
	for _, rule := range a.rules.Interactions {
		if len(rule.Pair) != 2 {
			continue
		}
		if (rule.Pair[0] == f && rule.Pair[1] == s) || (rule.Pair[0] == s && rule.Pair[1] == f) {
			return rule, true
		}
	}
	return interactionRule{}, false
}

const symptomDisclaimer = "This is not medical advice. Always seek professional medical attention for health concerns."

// AssessSymptoms gives informational guidance only. The urgent-care flag
// comes from the static emergency keyword list in both paths, so a backend
// outage never downgrades an emergency.
func (a *Analyzer) AssessSymptoms(ctx context.Context, symptoms []string) *domain.SymptomAssessment {
	joined := strings.ToLower(strings.Join(symptoms, ", "))
	urgent := false
	for _, keyword := range a.rules.EmergencyKeywords {
		if strings.Contains(joined, keyword) {
			urgent = true
			break
		}
	}

	out := &domain.SymptomAssessment{
		Guidance:         "Symptom information is available",
		UrgentCareNeeded: urgent,
		Recommendation:   "Consult a healthcare professional for proper evaluation",
		Disclaimer:       symptomDisclaimer,
	}
	if !a.client.Configured() {
		return out
	}

	guidance, err := a.client.Complete(ctx, systemPrompt, symptomPrompt(strings.Join(symptoms, ", ")), 500)
	if err != nil {
		a.logger.Warn("symptom assessment backend failed, using static guidance", "error", err)
		return out
	}
	out.Guidance = strings.TrimSpace(guidance)
	return out
}

// Recommendations produces general health tips. The live path feeds the
// profile through the backend; the fallback is a fixed list.
func (a *Analyzer) Recommendations(ctx context.Context, profile map[string]any) *domain.HealthRecommendations {
	fallback := &domain.HealthRecommendations{
		Recommendations: a.rules.Recommendations,
		Note:            a.rules.RecommendationsNote,
	}
	if !a.client.Configured() {
		return fallback
	}

	response, err := a.client.Complete(ctx, systemPrompt, recommendationsPrompt(profileContext(profile)), 600)
	if err != nil {
		a.logger.Warn("recommendations backend failed, using static tips", "error", err)
		return fallback
	}

	var recs []string
	for _, line := range strings.Split(response, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			recs = append(recs, line)
		}
	}
	if len(recs) == 0 {
		return fallback
	}
	return &domain.HealthRecommendations{
		Recommendations: recs,
		Note:            a.rules.RecommendationsNote,
	}
}

func profileContext(profile map[string]any) string {
	if len(profile) == 0 {
		return "No profile information provided."
	}
	parts := make([]string, 0, len(profile))
	for key, value := range profile {
		parts = append(parts, fmt.Sprintf("%s: %v", key, value))
	}
	return strings.Join(parts, "\n")
}
