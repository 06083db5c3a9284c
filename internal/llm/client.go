package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/smartprice/pricelist/internal/common"
)

// Config holds model backend settings.
type Config struct {
	Model       string
	VisionModel string
	APIKey      string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
}

// Client implements ModelClient on the OpenAI chat completions API.
type Client struct {
	api *openai.Client
	cfg Config
	log *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = "gpt-4o"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return &Client{api: openai.NewClientWithConfig(oc), cfg: cfg, log: logger}
}

func (c *Client) ModelName() string { return c.cfg.Model }

// CompleteJSON sends a text-only prompt and returns the raw content of
// the first choice.
func (c *Client) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, c.cfg.Model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
}

// CompleteVisionJSON sends the prompt together with one rasterized page.
func (c *Client) CompleteVisionJSON(ctx context.Context, prompt string, imagePNG []byte) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imagePNG)
	return c.complete(ctx, c.cfg.VisionModel, []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
				},
			},
		},
	})
}

func (c *Client) complete(ctx context.Context, model string, msgs []openai.ChatCompletionMessage) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.log.Debug("llm.request.start", "req_id", rid, "model", model)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: c.cfg.Temperature,
		Messages:    msgs,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		classified := classifyAPIError(err)
		c.log.Error("llm.request.failed",
			"req_id", rid,
			"model", model,
			"elapsed_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return "", classified
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in model response: %w", common.ErrRemoteTransient)
	}

	content := resp.Choices[0].Message.Content
	c.log.Debug("llm.request.ok",
		"req_id", rid,
		"model", model,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"content_bytes", len(content),
	)
	return content, nil
}

// classifyAPIError maps OpenAI client failures onto the shared
// transient/permanent taxonomy before they reach the retry controller.
func classifyAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	// Connection resets, DNS failures and client timeouts are retryable.
	return fmt.Errorf("%w: %w", common.ErrRemoteTransient, err)
}

func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= 500:
		return fmt.Errorf("%w: %w", common.ErrRemoteTransient, err)
	default:
		return fmt.Errorf("%w: %w", common.ErrRemotePermanent, err)
	}
}
