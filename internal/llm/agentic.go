package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/smartprice/pricelist/internal/common"
)

// AgenticConfig holds the hosted document-extraction backend settings.
type AgenticConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// AgenticClient is the alternate remote extraction backend: a hosted
// service that parses a whole document in one call instead of one page
// per model request. Its failures are classified into the same
// transient/permanent taxonomy as the chat/vision client, so the retry
// controller treats both call sites identically.
type AgenticClient struct {
	cfg   AgenticConfig
	httpc *http.Client
	log   *slog.Logger
}

func NewAgenticClient(cfg AgenticConfig, logger *slog.Logger) *AgenticClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &AgenticClient{
		cfg:   cfg,
		httpc: &http.Client{Timeout: cfg.Timeout},
		log:   logger,
	}
}

// Enabled reports whether an endpoint is configured.
func (c *AgenticClient) Enabled() bool { return c.cfg.Endpoint != "" }

// ParseDocument uploads the document with the extraction prompt and
// returns the raw response body (the products JSON contract).
func (c *AgenticClient) ParseDocument(ctx context.Context, path string, pdf []byte, prompt string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	c.log.Debug("agentic.request.start", "req_id", rid, "file", filepath.Base(path))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("document", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("agentic request body: %w", err)
	}
	if _, err := part.Write(pdf); err != nil {
		return "", fmt.Errorf("agentic request body: %w", err)
	}
	if err := mw.WriteField("prompt", prompt); err != nil {
		return "", fmt.Errorf("agentic request body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("agentic request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrRemotePermanent, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Basic "+c.cfg.APIKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", err
		}
		c.log.Error("agentic.request.failed", "req_id", rid, "error", err)
		return "", fmt.Errorf("%w: %w", common.ErrRemoteTransient, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read agentic response: %w", common.ErrRemoteTransient, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Error("agentic.request.failed",
			"req_id", rid,
			"status", resp.StatusCode,
			"body", truncate(string(raw), 200),
		)
		return "", classifyStatus(resp.StatusCode, fmt.Errorf("agentic status %d", resp.StatusCode))
	}

	c.log.Debug("agentic.request.ok",
		"req_id", rid,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"content_bytes", len(raw),
	)
	return string(raw), nil
}
