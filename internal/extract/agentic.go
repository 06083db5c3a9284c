package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/llm"
	"github.com/smartprice/pricelist/internal/retry"
)

// DocumentParser parses a whole document remotely in one call.
// *llm.AgenticClient satisfies it.
type DocumentParser interface {
	ParseDocument(ctx context.Context, path string, pdf []byte, prompt string) (string, error)
}

// Agentic sends the whole PDF to the hosted extraction service and
// serves the per-page slices of its answer. Last rung of the fallback
// ladder, wired only when an endpoint is configured. One remote call per
// document: the first page to ask triggers it, later pages read the
// cached result.
type Agentic struct {
	parser  DocumentParser
	retrier *retry.Controller
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]*agenticResult
}

type agenticResult struct {
	byPage map[int][]RawRow
	raw    string
	err    error
}

func NewAgentic(parser DocumentParser, retrier *retry.Controller, logger *slog.Logger) *Agentic {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agentic{parser: parser, retrier: retrier, logger: logger, cache: make(map[string]*agenticResult)}
}

func (s *Agentic) Name() string { return "agentic" }

func (s *Agentic) Extract(ctx context.Context, doc Document, page int) (PageExtract, error) {
	if doc.Format != constants.PDF {
		return PageExtract{Note: "agentic: not a pdf"}, nil
	}

	res := s.parse(ctx, doc)
	if res.err != nil {
		return PageExtract{}, res.err
	}

	rows := res.byPage[page]
	if len(rows) == 0 {
		return PageExtract{
			RawResponse: []byte(res.raw),
			Note:        fmt.Sprintf("agentic: page=%d no rows in service response", page),
		}, nil
	}
	return PageExtract{Rows: rows, RawResponse: []byte(res.raw)}, nil
}

// parse runs the document-level remote call once. Failures are cached
// too, so one broken document costs one retry budget, not one per page.
func (s *Agentic) parse(ctx context.Context, doc Document) *agenticResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.cache[doc.Path]; ok {
		return res
	}

	res := &agenticResult{byPage: make(map[int][]RawRow)}
	s.cache[doc.Path] = res

	pdf, err := os.ReadFile(doc.Path)
	if err != nil {
		res.err = fmt.Errorf("agentic: read %s: %w", doc.Name, err)
		return res
	}

	prompt := llm.BuildPrompt(llm.PromptRequest{
		SourceFile: doc.Name,
		Profile:    doc.Profile,
	})

	var raw string
	err = s.retrier.Do(ctx, "agentic.parse", func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.parser.ParseDocument(ctx, doc.Path, pdf, prompt)
		return callErr
	})
	if err != nil {
		res.err = err
		return res
	}
	res.raw = raw

	products, err := llm.ParseProducts(raw)
	if err != nil {
		s.logger.Warn("service response rejected",
			"strategy", s.Name(),
			"file", doc.Name,
			"error", err)
		return res
	}

	for _, p := range products {
		page := int(p.Page)
		if page < 1 {
			page = 1
		}
		row := RawRow{Page: page, SourceFile: doc.Name}
		row.Set(string(constants.FieldMaterialCode), string(p.MaterialCode))
		row.Set(string(constants.FieldShortCode), string(p.ShortCode))
		row.Set(string(constants.FieldDescription), p.Description)
		row.Set(string(constants.FieldPrice), string(p.Price))
		row.Set(string(constants.FieldCurrency), p.Currency)
		row.Set(string(constants.FieldMainHeading), p.MainHeading)
		row.Set(string(constants.FieldSubHeading), p.SubHeading)
		row.Set(string(constants.FieldSubHeading2), p.SubHeading2)
		res.byPage[page] = append(res.byPage[page], row)
	}
	return res
}
