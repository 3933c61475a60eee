package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

type clientFake struct {
	configured bool
	response   string
	err        error
	calls      int
	lastUser   string
}

func (c *clientFake) Complete(_ context.Context, _, userPrompt string, _ int) (string, error) {
	c.calls++
	c.lastUser = userPrompt
	if c.err != nil {
		return "", c.err
	}
	return c.response, nil
}

func (c *clientFake) Configured() bool { return c.configured }
func (c *clientFake) Model() string    { return "test-model" }

func newTestAnalyzer(t *testing.T, client *clientFake) *Analyzer {
	t.Helper()
	a, err := New(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestCheckInteractionsKnownPair(t *testing.T) {
	a := newTestAnalyzer(t, &clientFake{})

	report := a.CheckInteractions([]string{"Warfarin", "Aspirin"})
	if len(report.Interactions) != 1 {
		t.Fatalf("interactions = %+v, want 1", report.Interactions)
	}
	got := report.Interactions[0]
	if got.Interaction != "Increased bleeding risk" || got.Severity != "moderate" {
		t.Errorf("interaction = %+v", got)
	}
	if len(report.Warnings) != 1 {
		t.Errorf("warnings = %v", report.Warnings)
	}
}

func TestCheckInteractionsSingleMedication(t *testing.T) {
	a := newTestAnalyzer(t, &clientFake{})

	report := a.CheckInteractions([]string{"Aspirin"})
	if len(report.Interactions) != 0 || len(report.Warnings) != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}

func TestAnalyzePrescriptionFallback(t *testing.T) {
	a := newTestAnalyzer(t, &clientFake{configured: false})

	out := a.Analyze(context.Background(), "PRESCRIPTION\nLisinopril 10mg daily\nMetformin 500mg twice daily", domain.TypePrescription, nil)
	if out.DocumentType != "prescription_analysis" {
		t.Errorf("DocumentType = %q", out.DocumentType)
	}
	if out.Analysis != "Prescription document processed." {
		t.Errorf("Analysis = %q", out.Analysis)
	}
	if out.ModelUsed != ModelRuleBased {
		t.Errorf("ModelUsed = %q", out.ModelUsed)
	}
	if len(out.Medications) != 2 {
		t.Fatalf("Medications = %+v", out.Medications)
	}
	if out.Interactions == nil {
		t.Error("Interactions missing")
	}
	if len(out.AdherenceTips) == 0 {
		t.Error("AdherenceTips missing")
	}
	if out.Disclaimer == "" {
		t.Error("Disclaimer missing")
	}
}

func TestAnalyzeLiveBackend(t *testing.T) {
	client := &clientFake{configured: true, response: "Your heart rate is within normal limits."}
	a := newTestAnalyzer(t, client)

	out := a.Analyze(context.Background(), "Heart rate: 72", domain.TypeECG, nil)
	if out.Analysis != client.response {
		t.Errorf("Analysis = %q", out.Analysis)
	}
	if out.ModelUsed != "test-model" {
		t.Errorf("ModelUsed = %q", out.ModelUsed)
	}
	if out.ExtractedData["heart_rate"] != 72 {
		t.Errorf("ExtractedData = %v", out.ExtractedData)
	}
	if !strings.Contains(client.lastUser, "Heart rate: 72") {
		t.Errorf("prompt missing document text: %q", client.lastUser)
	}
}

func TestAnalyzeBackendFailureDegrades(t *testing.T) {
	client := &clientFake{configured: true, err: errors.New("backend down")}
	a := newTestAnalyzer(t, client)

	out := a.Analyze(context.Background(), "Glucose: 5.4 mmol/l", domain.TypeBloodTest, nil)
	if out.Analysis != "" {
		t.Errorf("Analysis = %q, want empty on backend failure", out.Analysis)
	}
	if len(out.LabValues) == 0 {
		t.Error("structured extraction must not depend on the backend")
	}
}

func TestAssessSymptomsUrgentKeyword(t *testing.T) {
	a := newTestAnalyzer(t, &clientFake{})

	urgent := a.AssessSymptoms(context.Background(), []string{"sudden Chest Pain", "sweating"})
	if !urgent.UrgentCareNeeded {
		t.Error("chest pain not flagged as urgent")
	}
	mild := a.AssessSymptoms(context.Background(), []string{"runny nose"})
	if mild.UrgentCareNeeded {
		t.Error("runny nose flagged as urgent")
	}
	if mild.Disclaimer == "" {
		t.Error("disclaimer missing")
	}
}

func TestAssessSymptomsUrgentFlagSurvivesBackendFailure(t *testing.T) {
	client := &clientFake{configured: true, err: errors.New("timeout")}
	a := newTestAnalyzer(t, client)

	out := a.AssessSymptoms(context.Background(), []string{"difficulty breathing"})
	if !out.UrgentCareNeeded {
		t.Error("urgent flag lost when backend failed")
	}
}

func TestRecommendationsFallback(t *testing.T) {
	a := newTestAnalyzer(t, &clientFake{})

	out := a.Recommendations(context.Background(), nil)
	if len(out.Recommendations) != 7 {
		t.Errorf("len(Recommendations) = %d, want 7", len(out.Recommendations))
	}
	if out.Note == "" {
		t.Error("note missing")
	}
}

func TestSummarizeWithoutBackend(t *testing.T) {
	a := newTestAnalyzer(t, &clientFake{})

	analysis := &domain.Analysis{DocumentType: "ecg_analysis", Analysis: "abcde"}
	summary := a.Summarize(context.Background(), analysis)
	if summary != "Document processed: ecg_analysis. 5 characters of analysis generated." {
		t.Errorf("summary = %q", summary)
	}
}
