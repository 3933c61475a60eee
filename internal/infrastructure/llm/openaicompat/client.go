// Package openaicompat talks to any chat/completions-compatible backend.
// A missing or placeholder API key is a normal runtime condition: the
// client reports itself unconfigured and callers fall back to rule-based
// analysis.
package openaicompat

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/health-doc-pipeline/internal/infrastructure/resilience"
)

// placeholderKey is the sample value shipped in env templates; treating it
// as configured would send garbage credentials on every request.
const placeholderKey = "your_openai_api_key_here"

const defaultTemperature = 0.3

type Config struct {
	BaseURL string // default https://api.openai.com/v1
	APIKey  string
	Model   string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	exec       *resilience.Executor
	logger     *slog.Logger
}

func New(cfg Config, exec *resilience.Executor, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "gpt-3.5-turbo"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		exec:       exec,
		logger:     logger,
	}
}

func (c *Client) Configured() bool {
	key := strings.TrimSpace(c.cfg.APIKey)
	return key != "" && key != placeholderKey
}

func (c *Client) Model() string {
	return c.cfg.Model
}

// Complete sends one system+user exchange and returns the first choice's
// content. Retries and breaker policy come from the shared executor.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	start := time.Now()

	var content string
	err := c.exec.Execute(ctx, "chat_completion", func(ctx context.Context) error {
		out, err := c.postCompletion(ctx, systemPrompt, userPrompt, maxTokens)
		if err != nil {
			return err
		}
		content = out
		return nil
	}, classifyCompletionError)

	if err != nil {
		c.logger.Error("completion failed",
			"model", c.cfg.Model,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", err
	}
	c.logger.Debug("completion ok",
		"model", c.cfg.Model,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return content, nil
}
