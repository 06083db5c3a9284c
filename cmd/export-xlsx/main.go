package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/smartprice/pricelist/internal/common"
	"github.com/smartprice/pricelist/internal/export"
	"github.com/smartprice/pricelist/internal/repository"
)

// Regenerates the XLSX mirror from the master dataset without running an
// ingestion batch.
func main() {
	out := flag.String("out", "", "output XLSX path (default from MASTER_XLSX_PATH)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx := context.Background()

	cfg := common.LoadConfig()
	if *out == "" {
		*out = cfg.Dataset.MirrorXLSXPath
	}

	store, err := repository.Open(ctx, cfg.Dataset)
	if err != nil {
		logger.Error("failed to open master dataset", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	exporter := export.NewService(store, logger)
	if err := exporter.WriteMirror(ctx, *out); err != nil {
		logger.Error("mirror export failed", "path", *out, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Mirror written to %s\n", *out)
}
