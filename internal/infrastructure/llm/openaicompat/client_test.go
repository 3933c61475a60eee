package openaicompat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestClient(url string) *Client {
	return New(Config{
		BaseURL: url,
		APIKey:  "test-key",
		Model:   "test-model",
	}, testExecutor(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func completionResponse(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
}

func TestCompleteReturnsFirstChoice(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		_ = json.NewEncoder(w).Encode(completionResponse("  All values normal.  "))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	out, err := client.Complete(context.Background(), "sys", "user", 500)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "All values normal." {
		t.Errorf("out = %q", out)
	}
	if gotBody["max_tokens"] != float64(500) {
		t.Errorf("max_tokens = %v", gotBody["max_tokens"])
	}
	msgs := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", msgs)
	}
}

func TestCompleteRetriesServerError(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(completionResponse("recovered"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	out, err := client.Complete(context.Background(), "sys", "user", 100)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "recovered" || calls != 2 {
		t.Errorf("out = %q, calls = %d", out, calls)
	}
}

func TestCompleteDoesNotRetryBadRequest(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "bad prompt", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Complete(context.Background(), "sys", "user", 100); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestConfigured(t *testing.T) {
	exec := testExecutor()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if New(Config{APIKey: ""}, exec, logger).Configured() {
		t.Error("empty key reported configured")
	}
	if New(Config{APIKey: placeholderKey}, exec, logger).Configured() {
		t.Error("placeholder key reported configured")
	}
	if !New(Config{APIKey: "sk-real"}, exec, logger).Configured() {
		t.Error("real key reported unconfigured")
	}
}
