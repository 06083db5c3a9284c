// Package export regenerates the flat spreadsheet mirror of the master
// dataset after every successful merge.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/dataset"
)

// DatasetReader is the read side of the master dataset store.
type DatasetReader interface {
	ListRecords(ctx context.Context) ([]dataset.Record, error)
}

// Service produces the XLSX mirror of the master dataset.
type Service struct {
	store  DatasetReader
	logger *slog.Logger
}

func NewService(store DatasetReader, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// MirrorXLSX renders the whole master dataset as XLSX bytes, one row
// per record, columns in the canonical field order plus year and month.
func (s *Service) MirrorXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	recs, err := s.store.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("query master dataset: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Prices"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defaultSheet := f.GetSheetName(0); defaultSheet != sheet {
		_ = f.DeleteSheet(defaultSheet)
	}

	headers := make([]string, 0, len(constants.ExtractionFields)+2)
	for _, field := range constants.ExtractionFields {
		headers = append(headers, string(field))
	}
	headers = append(headers, "Yil", "Ay")
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, r.MaterialCode)
		write(2, r.ShortCode)
		write(3, r.Description)
		write(4, r.Price)
		write(5, r.Currency)
		write(6, r.Brand)
		write(7, r.SourceFile)
		write(8, r.Page)
		write(9, r.RecordCode)
		write(10, r.MainHeading)
		write(11, r.SubHeading)
		write(12, r.SubHeading2)
		write(13, r.ImagePath)
		write(14, r.Year)
		write(15, r.Month)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18) // material code
	_ = f.SetColWidth(sheet, "C", "C", 40) // description
	_ = f.SetColWidth(sheet, "G", "G", 28) // source file

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	s.logger.Info("export.mirror",
		"rows", len(recs),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// WriteMirror regenerates the mirror file in place.
func (s *Service) WriteMirror(ctx context.Context, path string) error {
	data, err := s.MirrorXLSX(ctx)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create mirror dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}
	return nil
}
