package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/llm"
	"github.com/smartprice/pricelist/internal/retry"
)

// PageImager renders one PDF page and runs OCR over the render.
// *ocr.Tools satisfies it.
type PageImager interface {
	RasterizePage(ctx context.Context, path string, page int) ([]byte, error)
	OCRImage(ctx context.Context, png []byte) (string, error)
}

// OCRModel rasterizes the page, OCRs it locally and asks a text model to
// structure the OCR output. Second strategy in the fallback order.
type OCRModel struct {
	imager  PageImager
	client  llm.ModelClient
	retrier *retry.Controller
	logger  *slog.Logger
}

func NewOCRModel(imager PageImager, client llm.ModelClient, retrier *retry.Controller, logger *slog.Logger) *OCRModel {
	return &OCRModel{imager: imager, client: client, retrier: retrier, logger: logger}
}

func (s *OCRModel) Name() string { return "ocr-model" }

func (s *OCRModel) Extract(ctx context.Context, doc Document, page int) (PageExtract, error) {
	if doc.Format != constants.PDF {
		return PageExtract{Note: "ocr-model: not a pdf"}, nil
	}

	png, err := s.imager.RasterizePage(ctx, doc.Path, page)
	if err != nil {
		return PageExtract{}, fmt.Errorf("ocr-model: rasterize page %d: %w", page, err)
	}
	text, err := s.imager.OCRImage(ctx, png)
	if err != nil {
		return PageExtract{}, fmt.Errorf("ocr-model: ocr page %d: %w", page, err)
	}
	if strings.TrimSpace(text) == "" {
		return PageExtract{Image: png, Note: "ocr-model: empty OCR text"}, nil
	}

	prompt := llm.BuildPrompt(llm.PromptRequest{
		SourceFile: doc.Name,
		Page:       page,
		Profile:    doc.Profile,
		OCRText:    text,
	})

	var raw string
	err = s.retrier.Do(ctx, "ocr-model.complete", func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.client.CompleteJSON(ctx, prompt)
		return callErr
	})
	if err != nil {
		return PageExtract{Image: png}, err
	}

	return finishModelExtract(s.logger, s.client.ModelName(), s.Name(), doc, page, png, raw)
}

// finishModelExtract decodes a model response into raw rows. Parse and
// validation failures are zero-row attempts with a diagnostic note, so
// the orchestrator can fall through or report the page as empty with
// enough context to debug the prompt.
func finishModelExtract(logger *slog.Logger, model, strategy string, doc Document, page int, png []byte, raw string) (PageExtract, error) {
	products, err := llm.ParseProducts(raw)
	if err != nil {
		if logger != nil {
			logger.Warn("model response rejected",
				"strategy", strategy,
				"file", doc.Name,
				"page", page,
				"model", model,
				"error", err)
		}
		return PageExtract{
			Image:       png,
			RawResponse: []byte(raw),
			Note:        fmt.Sprintf("%s: model=%s page=%d response rejected: %v; excerpt: %s", strategy, model, page, err, excerpt(raw)),
		}, nil
	}
	if len(products) == 0 {
		return PageExtract{
			Image:       png,
			RawResponse: []byte(raw),
			Note:        fmt.Sprintf("%s: model=%s page=%d returned no products", strategy, model, page),
		}, nil
	}

	rows := make([]RawRow, 0, len(products))
	for _, p := range products {
		row := RawRow{Page: page, SourceFile: doc.Name}
		row.Set(string(constants.FieldMaterialCode), string(p.MaterialCode))
		row.Set(string(constants.FieldShortCode), string(p.ShortCode))
		row.Set(string(constants.FieldDescription), p.Description)
		row.Set(string(constants.FieldPrice), string(p.Price))
		row.Set(string(constants.FieldCurrency), p.Currency)
		row.Set(string(constants.FieldMainHeading), p.MainHeading)
		row.Set(string(constants.FieldSubHeading), p.SubHeading)
		row.Set(string(constants.FieldSubHeading2), p.SubHeading2)
		rows = append(rows, row)
	}
	return PageExtract{Rows: rows, Image: png, RawResponse: []byte(raw)}, nil
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
