package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/brand"
	"github.com/smartprice/pricelist/internal/common"
	"github.com/smartprice/pricelist/internal/dataset"
	"github.com/smartprice/pricelist/internal/debugart"
	"github.com/smartprice/pricelist/internal/export"
	"github.com/smartprice/pricelist/internal/extract"
	"github.com/smartprice/pricelist/internal/mirror"
	"github.com/smartprice/pricelist/internal/observability"
)

// BatchSummary reports one Run: every document's outcome plus the merge
// result. Zero-row documents appear with their diagnostic notes, they
// are not errors.
type BatchSummary struct {
	Documents []DocumentResult
	Merge     dataset.Summary
	// Deduped counts records removed by the pre-merge
	// material-code+price duplicate filter.
	Deduped int
	Elapsed time.Duration
}

// Runner wires the orchestrator to the merger, the spreadsheet mirror
// and the optional remote artifact mirror.
type Runner struct {
	orch       *Orchestrator
	merger     *dataset.Merger
	exporter   *export.Service
	remote     *mirror.Client
	artifacts  *debugart.Store
	batchSize  int
	timeout    time.Duration
	mode       constants.MergeMode
	mirrorPath string
	logger     *slog.Logger
}

// RunnerConfig collects the Runner's collaborators; Exporter, Remote and
// Artifacts may be nil.
type RunnerConfig struct {
	Orchestrator *Orchestrator
	Merger       *dataset.Merger
	Exporter     *export.Service
	Remote       *mirror.Client
	Artifacts    *debugart.Store
	BatchSize    int
	Timeout      time.Duration
	Mode         constants.MergeMode
	MirrorPath   string
}

func NewRunner(cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 2
	}
	return &Runner{
		orch:       cfg.Orchestrator,
		merger:     cfg.Merger,
		exporter:   cfg.Exporter,
		remote:     cfg.Remote,
		artifacts:  cfg.Artifacts,
		batchSize:  batch,
		timeout:    cfg.Timeout,
		mode:       cfg.Mode,
		mirrorPath: cfg.MirrorPath,
		logger:     logger,
	}
}

// Run processes a batch of documents on a bounded pool and merges the
// surviving records. Per-document failures are isolated; the batch
// deadline propagates to every outstanding page call while completed
// documents keep their results.
func (r *Runner) Run(ctx context.Context, docs []extract.Document) (BatchSummary, error) {
	start := time.Now()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	results := make([]DocumentResult, len(docs))
	sem := make(chan struct{}, r.batchSize)
	var wg sync.WaitGroup
	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc extract.Document) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = r.orch.ProcessDocument(ctx, doc)
		}(i, doc)
	}
	wg.Wait()

	sum := BatchSummary{Documents: results}

	var records []dataset.Record
	for _, res := range results {
		records = append(records, res.Records...)
	}
	records, sum.Deduped = dedupe(records)

	if len(records) > 0 {
		mergeSum, err := r.merger.Merge(ctx, r.mode, records)
		sum.Merge = mergeSum
		if err != nil {
			sum.Elapsed = time.Since(start)
			return sum, fmt.Errorf("merge: %w", err)
		}
		observability.RecordsMergedTotal.WithLabelValues(string(r.mode)).Add(float64(mergeSum.Inserted()))

		r.regenerateMirror(ctx)
		r.pushArtifacts(ctx, results)
	}

	sum.Elapsed = time.Since(start)
	r.logSummary(sum)
	return sum, nil
}

// regenerateMirror rewrites the XLSX mirror after a successful merge.
// Mirror failures degrade to a logged skip.
func (r *Runner) regenerateMirror(ctx context.Context) {
	if r.exporter == nil || r.mirrorPath == "" {
		return
	}
	if err := r.exporter.WriteMirror(ctx, r.mirrorPath); err != nil {
		r.logger.Warn("mirror regeneration failed", "path", r.mirrorPath, "error", err)
	}
}

// pushArtifacts uploads each processed document's debug artifacts to the
// remote mirror, best effort.
func (r *Runner) pushArtifacts(ctx context.Context, results []DocumentResult) {
	if r.remote == nil || !r.remote.Enabled() || r.artifacts == nil {
		return
	}
	for _, res := range results {
		dir := r.artifacts.SourceDir(res.Name)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		remotePrefix := "LLM_Output_db/" + filepath.Base(dir)
		if err := r.remote.UploadDir(ctx, dir, remotePrefix); err != nil {
			r.logger.Warn("artifact upload skipped", "file", res.Name, "error", err)
		}
	}
}

func (r *Runner) logSummary(sum BatchSummary) {
	for _, res := range sum.Documents {
		if res.Err != nil {
			r.logger.Error("document failed", "file", res.Name, "error", res.Err)
			continue
		}
		for _, p := range res.Pages {
			if p.Status == constants.PageStatusEmpty {
				r.logger.Warn("empty page", "file", res.Name, "page", p.Page, "note", p.Note)
			}
		}
	}
	r.logger.Info("batch complete",
		"documents", len(sum.Documents),
		"rows", sum.Merge.Inserted(),
		"deduped", sum.Deduped,
		"discarded", sum.Merge.Discarded,
		"mode", string(sum.Merge.Mode),
		"elapsed_ms", sum.Elapsed.Milliseconds(),
	)
}

// dedupe drops later records carrying an identical material code and
// printed price, the way resubmitted pages repeat rows.
func dedupe(recs []dataset.Record) ([]dataset.Record, int) {
	type key struct{ code, price string }
	seen := make(map[key]struct{}, len(recs))
	kept := recs[:0]
	dropped := 0
	for _, r := range recs {
		k := key{code: r.MaterialCode, price: r.Price}
		if _, ok := seen[k]; ok {
			dropped++
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, r)
	}
	return kept, dropped
}

// BuildDocuments expands paths (files or directories) into documents
// with their matched brand profiles. Unsupported extensions are skipped
// with a log line; an empty result is the caller's error to raise.
func BuildDocuments(paths []string, profiles *brand.Table, logger *slog.Logger) ([]extract.Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", common.ErrInvalidInput, p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", p, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	sort.Strings(files)

	var docs []extract.Document
	for _, f := range files {
		format := constants.MapExtToFormat(filepath.Ext(f))
		if format == "" {
			logger.Warn("unsupported file skipped", "path", f)
			continue
		}
		name := filepath.Base(f)
		docs = append(docs, extract.Document{
			Path:    f,
			Name:    name,
			Format:  format,
			Profile: profiles.Match(name),
		})
	}
	return docs, nil
}
