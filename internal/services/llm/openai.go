package llm

import (
	"context"
	"fmt"
	"time"

	xhttp "PerpDesk/pkg/http"
	applogger "PerpDesk/pkg/logger"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []chatMessage     `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// OpenAIClient calls the chat completions endpoint in JSON mode.
type OpenAIClient struct {
	cfg    Config
	url    string
	http   *xhttp.Client
	logger *applogger.Logger
}

func NewOpenAIClient(cfg Config, logger *applogger.Logger) *OpenAIClient {
	url := cfg.URL
	if url == "" {
		url = defaultOpenAIURL
	}
	return &OpenAIClient{
		cfg:    cfg,
		url:    url,
		http:   xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		logger: applogger.OrNop(logger).With("openai"),
	}
}

func (c *OpenAIClient) Analyze(ctx context.Context, prompt, system string) (string, error) {
	req := chatRequest{
		Model:          c.cfg.Model,
		Temperature:    c.cfg.Temperature,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	c.logger.Info("calling model", applogger.String("model", c.cfg.Model))
	start := time.Now()

	var resp chatResponse
	if err := c.http.PostJSON(ctx, c.url, headers, req, &resp); err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	c.logger.Info("model replied",
		applogger.Int("prompt_tokens", resp.Usage.PromptTokens),
		applogger.Int("total_tokens", resp.Usage.TotalTokens),
		applogger.Duration("latency", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}
