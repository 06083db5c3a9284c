package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/brand"
	"github.com/smartprice/pricelist/internal/common"
	"github.com/smartprice/pricelist/internal/dataset"
	"github.com/smartprice/pricelist/internal/debugart"
	"github.com/smartprice/pricelist/internal/export"
	"github.com/smartprice/pricelist/internal/extract"
	"github.com/smartprice/pricelist/internal/headers"
	"github.com/smartprice/pricelist/internal/llm"
	"github.com/smartprice/pricelist/internal/mirror"
	"github.com/smartprice/pricelist/internal/normalize"
	"github.com/smartprice/pricelist/internal/observability"
	"github.com/smartprice/pricelist/internal/ocr"
	"github.com/smartprice/pricelist/internal/pipeline"
	"github.com/smartprice/pricelist/internal/repository"
	"github.com/smartprice/pricelist/internal/retry"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir         = flag.String("dir", "", "directory of price lists to ingest (PDF/XLSX)")
		mode        = flag.String("mode", "", "merge mode: append or update (default from MERGE_MODE)")
		out         = flag.String("out", "", "XLSX mirror path (default from MASTER_XLSX_PATH)")
		metricsPort = flag.String("metrics-port", "", "serve Prometheus metrics on this port (optional)")
	)
	flag.Parse()

	paths := flag.Args()
	if *dir != "" {
		paths = append([]string{*dir}, paths...)
	}
	if len(paths) == 0 {
		printError("Error: pass --dir or at least one file argument\n")
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *mode != "" {
		cfg.Pipeline.MergeMode = *mode
	}
	if *out != "" {
		cfg.Dataset.MirrorXLSXPath = *out
	}
	if *metricsPort != "" {
		observability.Start(*metricsPort)
	}

	profiles, err := brand.Load(cfg.Pipeline.BrandProfile)
	if err != nil {
		logger.Error("failed to load brand profiles", "path", cfg.Pipeline.BrandProfile, "error", err)
		os.Exit(1)
	}

	docs, err := pipeline.BuildDocuments(paths, profiles, logger)
	if err != nil {
		logger.Error("failed to collect documents", "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		printError("Error: no supported price lists found (pdf, xlsx, xls, xlsm)\n")
		os.Exit(1)
	}

	store, err := repository.Open(ctx, cfg.Dataset)
	if err != nil {
		logger.Error("failed to open master dataset", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	tools := ocr.NewTools(ocr.Config{
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)

	client := llm.NewClient(llm.Config{
		Model:       cfg.LLM.Model,
		VisionModel: cfg.LLM.VisionModel,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	retrier := retry.NewController(logger,
		retry.WithMaxRetries(cfg.Pipeline.MaxRetries),
		retry.WithMaxWait(cfg.Pipeline.MaxRetryWait),
	)

	resolver := headers.NewResolver()
	strategies := []extract.Strategy{
		extract.NewDirectText(tools),
		extract.NewSpreadsheet(resolver),
		extract.NewOCRModel(tools, client, retrier, logger),
		extract.NewVision(tools, client, retrier, logger),
	}
	agentic := llm.NewAgenticClient(llm.AgenticConfig{
		Endpoint: cfg.Agentic.Endpoint,
		APIKey:   cfg.Agentic.APIKey,
		Timeout:  cfg.Agentic.Timeout,
	}, logger)
	if agentic.Enabled() {
		strategies = append(strategies, extract.NewAgentic(agentic, retrier, logger))
	}

	artifacts := debugart.NewStore(cfg.Dataset.DebugArtifactDir)
	canon := pipeline.NewCanonicalizer(resolver, normalize.ParseStyle(cfg.Pipeline.PriceStyle), logger)
	orch := pipeline.NewOrchestrator(strategies, canon, tools, logger,
		pipeline.WithPageWorkers(cfg.Pipeline.PageWorkers),
		pipeline.WithArtifactSink(artifacts),
	)

	merger := dataset.NewMerger(store, logger, dataset.WithArtifactPurger(artifacts))
	exporter := export.NewService(store, logger)
	remote := mirror.NewClient(cfg.Mirror.Repo, cfg.Mirror.Token, cfg.Mirror.Branch, logger)

	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Orchestrator: orch,
		Merger:       merger,
		Exporter:     exporter,
		Remote:       remote,
		Artifacts:    artifacts,
		BatchSize:    cfg.Pipeline.BatchSize,
		Timeout:      cfg.Pipeline.BatchTimeout,
		Mode:         constants.ParseMergeMode(cfg.Pipeline.MergeMode),
		MirrorPath:   cfg.Dataset.MirrorXLSXPath,
	}, logger)

	sum, err := runner.Run(ctx, docs)
	printSummary(sum)
	if err != nil {
		logger.Error("batch failed", "error", err)
		os.Exit(1)
	}
}

func printSummary(sum pipeline.BatchSummary) {
	fmt.Printf("Processed %d document(s) in %s\n", len(sum.Documents), sum.Elapsed.Round(10*time.Millisecond))
	for _, doc := range sum.Documents {
		if doc.Err != nil {
			fmt.Printf("  %-40s FAILED: %v\n", doc.Name, doc.Err)
			continue
		}
		var empty []string
		for _, p := range doc.Pages {
			if p.Status == constants.PageStatusEmpty {
				empty = append(empty, fmt.Sprintf("p%d", p.Page))
			}
		}
		line := fmt.Sprintf("  %-40s %d row(s), %d page(s)", doc.Name, doc.Rows(), len(doc.Pages))
		if len(empty) > 0 {
			line += " [empty: " + strings.Join(empty, " ") + "]"
		}
		fmt.Println(line)
	}
	fmt.Printf("Merged %d record(s) (%s mode, %d duplicate(s) dropped, %d discarded)\n",
		sum.Merge.Inserted(), sum.Merge.Mode, sum.Deduped, sum.Merge.Discarded)
}
