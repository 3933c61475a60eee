package config

import "testing"

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("COMPLETION_MODEL", "")
	t.Setenv("API_RATE_LIMIT_RPS", "")
	t.Setenv("WORKER_JOB_TIMEOUT_SECONDS", "")
	t.Setenv("TESSERACT_LANG", "")

	cfg := Load()
	if cfg.NATSSubject != "documents.analyze" {
		t.Fatalf("expected default subject documents.analyze, got %q", cfg.NATSSubject)
	}
	if cfg.CompletionModel != "gpt-3.5-turbo" {
		t.Fatalf("expected default completion model, got %q", cfg.CompletionModel)
	}
	if cfg.APIRateLimitRPS != 50 {
		t.Fatalf("expected default rate limit 50, got %d", cfg.APIRateLimitRPS)
	}
	if cfg.WorkerJobTimeoutSeconds != 300 {
		t.Fatalf("expected default job timeout 300, got %d", cfg.WorkerJobTimeoutSeconds)
	}
	if cfg.TesseractLang != "eng" {
		t.Fatalf("expected default tesseract lang eng, got %q", cfg.TesseractLang)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("COMPLETION_BASE_URL", "http://localhost:9999/v1")
	t.Setenv("API_MAX_IN_FLIGHT", "8")
	t.Setenv("WORKER_JOB_TIMEOUT_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.CompletionBaseURL != "http://localhost:9999/v1" {
		t.Fatalf("expected base url override, got %q", cfg.CompletionBaseURL)
	}
	if cfg.APIMaxInFlight != 8 {
		t.Fatalf("expected max in flight 8, got %d", cfg.APIMaxInFlight)
	}
	if cfg.WorkerJobTimeoutSeconds != 300 {
		t.Fatalf("expected fallback job timeout on parse error, got %d", cfg.WorkerJobTimeoutSeconds)
	}
}
