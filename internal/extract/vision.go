package extract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/llm"
	"github.com/smartprice/pricelist/internal/retry"
)

// Rasterizer renders one PDF page to PNG. Split from PageImager because
// the vision path never runs local OCR.
type Rasterizer interface {
	RasterizePage(ctx context.Context, path string, page int) ([]byte, error)
}

// Vision sends the rendered page image straight to a vision model. Last
// strategy in the fallback order; if this one yields nothing the page is
// reported empty.
type Vision struct {
	raster  Rasterizer
	client  llm.ModelClient
	retrier *retry.Controller
	logger  *slog.Logger
}

func NewVision(raster Rasterizer, client llm.ModelClient, retrier *retry.Controller, logger *slog.Logger) *Vision {
	return &Vision{raster: raster, client: client, retrier: retrier, logger: logger}
}

func (s *Vision) Name() string { return "vision" }

func (s *Vision) Extract(ctx context.Context, doc Document, page int) (PageExtract, error) {
	if doc.Format != constants.PDF {
		return PageExtract{Note: "vision: not a pdf"}, nil
	}

	png, err := s.raster.RasterizePage(ctx, doc.Path, page)
	if err != nil {
		return PageExtract{}, fmt.Errorf("vision: rasterize page %d: %w", page, err)
	}

	prompt := llm.BuildPrompt(llm.PromptRequest{
		SourceFile: doc.Name,
		Page:       page,
		Profile:    doc.Profile,
	})

	var raw string
	err = s.retrier.Do(ctx, "vision.complete", func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.client.CompleteVisionJSON(ctx, prompt, png)
		return callErr
	})
	if err != nil {
		return PageExtract{Image: png}, err
	}

	return finishModelExtract(s.logger, s.client.ModelName(), s.Name(), doc, page, png, raw)
}
