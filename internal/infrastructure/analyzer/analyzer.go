// Package analyzer routes extracted text to a category-specific analysis.
// With a configured completion backend the analysis text comes from the
// model; without one, or when the backend fails, every category degrades to
// deterministic output. Structured fields are always extracted locally and
// never depend on the backend.
package analyzer

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
	"github.com/kirillkom/health-doc-pipeline/internal/core/ports"
	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/medtext"
)

//go:embed tables.yaml
var tablesYAML []byte

const systemPrompt = "You are a helpful health information assistant. Always emphasize consulting healthcare professionals and never provide medical diagnoses."

// ModelRuleBased marks payloads produced without any backend involvement.
const ModelRuleBased = "rule_based"

type interactionRule struct {
	Pair     []string `yaml:"pair"`
	Effect   string   `yaml:"effect"`
	Severity string   `yaml:"severity"`
}

type ruleTables struct {
	Interactions        []interactionRule `yaml:"interactions"`
	InteractionWarning  string            `yaml:"interaction_warning"`
	EmergencyKeywords   []string          `yaml:"emergency_keywords"`
	Glossary            map[string]string `yaml:"glossary"`
	Recommendations     []string          `yaml:"recommendations"`
	RecommendationsNote string            `yaml:"recommendations_note"`
	AdherenceTips       []string          `yaml:"adherence_tips"`
}

type Analyzer struct {
	client ports.CompletionClient
	logger *slog.Logger
	rules  ruleTables
}

func New(client ports.CompletionClient, logger *slog.Logger) (*Analyzer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var rules ruleTables
	if err := yaml.Unmarshal(tablesYAML, &rules); err != nil {
		return nil, fmt.Errorf("parse analysis rule tables: %w", err)
	}
	return &Analyzer{client: client, logger: logger, rules: rules}, nil
}

// categorySpec bundles everything that differs between document types:
// the prompt, both disclaimers, the token budget and the structured-field
// extraction.
type categorySpec struct {
	analysisType       string
	maxTokens          int
	prompt             func(text string) string
	liveDisclaimer     string
	fallbackAnalysis   func(text string) string
	fallbackDisclaimer string
	fill               func(a *Analyzer, out *domain.Analysis, text string)
}

func (a *Analyzer) categorySpec(docType domain.DocumentType) categorySpec {
	switch docType {
	case domain.TypeECG:
		return categorySpec{
			analysisType:       "ecg_analysis",
			maxTokens:          1000,
			prompt:             ecgPrompt,
			liveDisclaimer:     "This analysis is for informational purposes only. Consult a cardiologist for medical interpretation.",
			fallbackAnalysis:   staticText("ECG document detected. Professional interpretation recommended."),
			fallbackDisclaimer: "Consult a cardiologist for proper ECG interpretation.",
			fill: func(_ *Analyzer, out *domain.Analysis, text string) {
				out.ExtractedData = medtext.ExtractECG(text)
			},
		}
	case domain.TypeBloodTest:
		return categorySpec{
			analysisType:       "blood_test_analysis",
			maxTokens:          1200,
			prompt:             bloodTestPrompt,
			liveDisclaimer:     "Results should be discussed with your healthcare provider for proper medical interpretation.",
			fallbackAnalysis:   staticText("Blood test results detected. Review with healthcare provider."),
			fallbackDisclaimer: "Discuss results with your healthcare provider.",
			fill: func(_ *Analyzer, out *domain.Analysis, text string) {
				out.LabValues = medtext.ExtractLabValues(text)
				out.AbnormalFlags = medtext.AbnormalLines(text)
			},
		}
	case domain.TypePrescription:
		return categorySpec{
			analysisType:       "prescription_analysis",
			maxTokens:          1000,
			prompt:             prescriptionPrompt,
			liveDisclaimer:     "Follow your doctor's instructions. Contact your healthcare provider with any concerns.",
			fallbackAnalysis:   staticText("Prescription document processed."),
			fallbackDisclaimer: "Follow your doctor's instructions exactly.",
			fill: func(a *Analyzer, out *domain.Analysis, text string) {
				meds := medtext.ExtractMedications(text)
				out.Medications = meds
				names := make([]string, len(meds))
				for i, m := range meds {
					names[i] = m.Name
				}
				out.Interactions = a.CheckInteractions(names)
				if len(meds) > 0 {
					out.AdherenceTips = a.rules.AdherenceTips
				}
			},
		}
	case domain.TypeRadiology:
		return categorySpec{
			analysisType:       "radiology_analysis",
			maxTokens:          1000,
			prompt:             radiologyPrompt,
			liveDisclaimer:     "Radiology results should be reviewed with your doctor for proper medical context.",
			fallbackAnalysis:   staticText("Radiology report detected. Review with your doctor."),
			fallbackDisclaimer: "Radiology results should be reviewed with your doctor for proper medical context.",
			fill: func(_ *Analyzer, out *domain.Analysis, text string) {
				out.KeyFindings = medtext.KeyPoints(text)
			},
		}
	case domain.TypeLabReport:
		return categorySpec{
			analysisType:       "lab_report_analysis",
			maxTokens:          1200,
			prompt:             labReportPrompt,
			liveDisclaimer:     "Laboratory results require professional medical interpretation.",
			fallbackAnalysis:   staticText("Laboratory report detected. Professional review recommended."),
			fallbackDisclaimer: "Laboratory results require professional medical interpretation.",
			fill: func(_ *Analyzer, out *domain.Analysis, text string) {
				out.LabValues = medtext.ExtractLabValues(text)
				out.AbnormalFlags = medtext.AbnormalLines(text)
			},
		}
	default:
		return categorySpec{
			analysisType:   "general_medical_analysis",
			maxTokens:      1000,
			prompt:         generalPrompt,
			liveDisclaimer: "This analysis is for informational purposes. Consult your healthcare provider for medical advice.",
			fallbackAnalysis: func(text string) string {
				return fmt.Sprintf("Medical document processed. %d characters extracted.", len(text))
			},
			fallbackDisclaimer: "Consult healthcare providers for medical interpretation.",
			fill: func(a *Analyzer, out *domain.Analysis, text string) {
				out.KeyPoints = medtext.KeyPoints(text)
				out.ActionItems = medtext.ActionItems(text)
				out.MedicalTerms = medtext.FindTerms(text, a.rules.Glossary)
			},
		}
	}
}

// Analyze never returns nil and never fails. An empty Analysis string means
// the backend was configured but unavailable.
func (a *Analyzer) Analyze(ctx context.Context, text string, docType domain.DocumentType, _ map[string]any) *domain.Analysis {
	spec := a.categorySpec(docType)
	out := &domain.Analysis{DocumentType: spec.analysisType}
	spec.fill(a, out, text)

	if !a.client.Configured() {
		out.Analysis = spec.fallbackAnalysis(text)
		out.Disclaimer = spec.fallbackDisclaimer
		out.ModelUsed = ModelRuleBased
		return out
	}

	out.Disclaimer = spec.liveDisclaimer
	out.ModelUsed = a.client.Model()
	response, err := a.client.Complete(ctx, systemPrompt, spec.prompt(text), spec.maxTokens)
	if err != nil {
		a.logger.Warn("analysis backend failed, degrading to empty analysis",
			"document_type", docType,
			"error", err,
		)
		return out
	}
	out.Analysis = response
	return out
}

// Summarize condenses an analysis into a few sentences. Without a backend
// the summary is a deterministic one-liner.
func (a *Analyzer) Summarize(ctx context.Context, analysis *domain.Analysis) string {
	if analysis == nil {
		return ""
	}
	if a.client.Configured() && analysis.Analysis != "" {
		summary, err := a.client.Complete(ctx, systemPrompt, summaryPrompt(analysis), 200)
		if err == nil {
			return strings.TrimSpace(summary)
		}
		a.logger.Warn("summary backend failed, using deterministic summary", "error", err)
	}
	return fmt.Sprintf("Document processed: %s. %d characters of analysis generated.",
		analysis.DocumentType, len(analysis.Analysis))
}

func staticText(s string) func(string) string {
	return func(string) string { return s }
}
