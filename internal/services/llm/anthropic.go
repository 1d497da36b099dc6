package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	xhttp "PerpDesk/pkg/http"
	applogger "PerpDesk/pkg/logger"
)

const (
	defaultAnthropicURL = "https://api.anthropic.com/v1/messages"
	anthropicVersion    = "2023-06-01"
)

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	System      string        `json:"system"`
	Messages    []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// AnthropicClient calls the messages endpoint.
type AnthropicClient struct {
	cfg    Config
	url    string
	http   *xhttp.Client
	logger *applogger.Logger
}

func NewAnthropicClient(cfg Config, logger *applogger.Logger) *AnthropicClient {
	url := cfg.URL
	if url == "" {
		url = defaultAnthropicURL
	}
	return &AnthropicClient{
		cfg:    cfg,
		url:    url,
		http:   xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		logger: applogger.OrNop(logger).With("anthropic"),
	}
}

func (c *AnthropicClient) Analyze(ctx context.Context, prompt, system string) (string, error) {
	req := messagesRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		System:      system,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}

	c.logger.Info("calling model", applogger.String("model", c.cfg.Model))
	start := time.Now()

	var resp messagesResponse
	if err := c.http.PostJSON(ctx, c.url, headers, req, &resp); err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}

	c.logger.Info("model replied",
		applogger.Int("input_tokens", resp.Usage.InputTokens),
		applogger.Int("output_tokens", resp.Usage.OutputTokens),
		applogger.Duration("latency", time.Since(start)),
	)
	return sb.String(), nil
}
