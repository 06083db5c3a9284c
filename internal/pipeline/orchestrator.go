// Package pipeline drives extraction end to end: strategy selection and
// fallback per page, canonicalization, page-order reassembly and the
// batch-level merge into the master dataset.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/common"
	"github.com/smartprice/pricelist/internal/dataset"
	"github.com/smartprice/pricelist/internal/extract"
	"github.com/smartprice/pricelist/internal/observability"
)

// PageCounter reports the page count of a PDF. *ocr.Tools satisfies it.
type PageCounter interface {
	PageCount(ctx context.Context, path string) (int, error)
}

// ArtifactSink stores per-page diagnostics. *debugart.Store satisfies it.
type ArtifactSink interface {
	SavePage(sourceFile string, page int, image, response []byte) (string, error)
}

// PageReport is the per-page outcome for the batch summary.
type PageReport struct {
	Page     int
	Status   constants.PageStatus
	Strategy string // winning strategy, empty for EMPTY/ERROR pages
	Rows     int
	// Note carries the diagnostic excerpt of an empty page so a human
	// can judge whether a re-run with another strategy is worth it.
	Note string
}

// DocumentResult is one document's complete outcome. A failed document
// never aborts its batch.
type DocumentResult struct {
	Name    string
	State   constants.DocumentState
	Pages   []PageReport
	Records []dataset.Record
	Err     error
}

// Rows counts the canonical rows the document produced.
func (r DocumentResult) Rows() int { return len(r.Records) }

// Orchestrator runs the strategy ladder over every page of a document.
type Orchestrator struct {
	strategies  []extract.Strategy
	canon       *Canonicalizer
	counter     PageCounter
	artifacts   ArtifactSink
	pageWorkers int
	logger      *slog.Logger
}

func NewOrchestrator(strategies []extract.Strategy, canon *Canonicalizer, counter PageCounter, logger *slog.Logger, opts ...OrchestratorOption) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		strategies:  strategies,
		canon:       canon,
		counter:     counter,
		pageWorkers: 5,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

func WithPageWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.pageWorkers = n
		}
	}
}

func WithArtifactSink(s ArtifactSink) OrchestratorOption {
	return func(o *Orchestrator) { o.artifacts = s }
}

// ProcessDocument extracts every page of one document. Pages run on a
// bounded pool and may finish out of order; results are reassembled by
// page number before records are emitted. A permanent remote failure
// aborts this document's remaining pages only.
func (o *Orchestrator) ProcessDocument(ctx context.Context, doc extract.Document) DocumentResult {
	result := DocumentResult{Name: doc.Name, State: constants.DocSelecting}

	pages, err := o.pageCount(ctx, doc)
	if err != nil {
		result.State = constants.DocExhausted
		result.Err = fmt.Errorf("page count: %w", err)
		return result
	}
	if pages == 0 {
		result.State = constants.DocExhausted
		return result
	}
	result.State = constants.DocAttempting

	// A permanent failure on any page cancels the rest of the document.
	docCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type pageOutcome struct {
		report  PageReport
		records []dataset.Record
		err     error
	}
	outcomes := make([]pageOutcome, pages)

	sem := make(chan struct{}, o.pageWorkers)
	var wg sync.WaitGroup
	for page := 1; page <= pages; page++ {
		wg.Add(1)
		go func(page int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			report, recs, err := o.processPage(docCtx, doc, page)
			outcomes[page-1] = pageOutcome{report: report, records: recs, err: err}
			if err != nil && common.IsPermanent(err) {
				cancel()
			}
		}(page)
	}
	wg.Wait()

	// Reassemble in page order regardless of completion order.
	for _, out := range outcomes {
		result.Pages = append(result.Pages, out.report)
		result.Records = append(result.Records, out.records...)
		if out.err != nil && common.IsPermanent(out.err) && result.Err == nil {
			result.Err = out.err
		}
	}

	switch {
	case result.Err != nil:
		result.State = constants.DocExhausted
	case len(result.Records) > 0:
		result.State = constants.DocSucceeded
	default:
		result.State = constants.DocExhausted
	}

	o.logger.Info("document processed",
		"file", doc.Name,
		"state", string(result.State),
		"pages", pages,
		"rows", result.Rows(),
	)
	return result
}

// processPage walks the strategy ladder for one page: fixed order, stop
// at the first strategy yielding rows. A permanent remote error aborts;
// everything else is a failed attempt and the ladder continues.
func (o *Orchestrator) processPage(ctx context.Context, doc extract.Document, page int) (PageReport, []dataset.Record, error) {
	start := time.Now()
	defer func() {
		observability.PageDuration.Observe(time.Since(start).Seconds())
	}()

	var notes []string
	var lastImage, lastResponse []byte

	for _, strategy := range o.strategies {
		if err := ctx.Err(); err != nil {
			return PageReport{Page: page, Status: constants.PageStatusError, Note: "cancelled"}, nil, err
		}

		ext, err := strategy.Extract(ctx, doc, page)
		if err != nil {
			if common.IsPermanent(err) {
				o.logger.Error("page aborted",
					"file", doc.Name, "page", page,
					"strategy", strategy.Name(), "error", err)
				observability.PagesTotal.WithLabelValues(strategy.Name(), string(constants.PageStatusError)).Inc()
				return PageReport{
					Page:   page,
					Status: constants.PageStatusError,
					Note:   err.Error(),
				}, nil, err
			}
			// Retries exhausted on a transient failure: this strategy is
			// done for the page, the next one still gets its turn.
			o.logger.Warn("strategy failed",
				"file", doc.Name, "page", page,
				"strategy", strategy.Name(), "error", err)
			notes = append(notes, fmt.Sprintf("%s: %v", strategy.Name(), err))
			continue
		}

		if len(ext.Image) > 0 {
			lastImage = ext.Image
		}
		if len(ext.RawResponse) > 0 {
			lastResponse = ext.RawResponse
		}

		if len(ext.Rows) == 0 {
			if ext.Note != "" {
				notes = append(notes, ext.Note)
			}
			continue
		}

		imagePath := o.savePage(doc, page, ext.Image, ext.RawResponse)
		records := o.canon.Canonicalize(doc, page, ext.Rows, imagePath)
		if len(records) == 0 {
			notes = append(notes, fmt.Sprintf("%s: %d raw rows, none canonical", strategy.Name(), len(ext.Rows)))
			continue
		}

		observability.PagesTotal.WithLabelValues(strategy.Name(), string(constants.PageStatusSuccess)).Inc()
		observability.RowsExtractedTotal.Add(float64(len(records)))
		return PageReport{
			Page:     page,
			Status:   constants.PageStatusSuccess,
			Strategy: strategy.Name(),
			Rows:     len(records),
		}, records, nil
	}

	// Every strategy came up empty. Keep the artifacts of the last
	// attempt so the page can be debugged offline.
	o.savePage(doc, page, lastImage, lastResponse)
	observability.PagesTotal.WithLabelValues("none", string(constants.PageStatusEmpty)).Inc()
	o.logger.Warn("page empty", "file", doc.Name, "page", page, "note", strings.Join(notes, "; "))
	return PageReport{
		Page:   page,
		Status: constants.PageStatusEmpty,
		Note:   strings.Join(notes, "; "),
	}, nil, nil
}

func (o *Orchestrator) savePage(doc extract.Document, page int, image, response []byte) string {
	if o.artifacts == nil || (len(image) == 0 && len(response) == 0) {
		return ""
	}
	imagePath, err := o.artifacts.SavePage(doc.Name, page, image, response)
	if err != nil {
		o.logger.Warn("artifact save failed", "file", doc.Name, "page", page, "error", err)
		return ""
	}
	return imagePath
}

func (o *Orchestrator) pageCount(ctx context.Context, doc extract.Document) (int, error) {
	switch doc.Format {
	case constants.PDF:
		return o.counter.PageCount(ctx, doc.Path)
	case constants.SPREADSHEET:
		f, err := excelize.OpenFile(doc.Path)
		if err != nil {
			return 0, err
		}
		defer func() { _ = f.Close() }()
		return len(f.GetSheetList()), nil
	default:
		return 0, fmt.Errorf("%w: unsupported format %q", common.ErrInvalidInput, doc.Format)
	}
}
