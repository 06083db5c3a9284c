package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/headers"
)

// Spreadsheet reads xlsx/xls workbooks directly. Sheets map onto pages:
// page N is the Nth visible sheet. The header row is the first row where
// a price column and a code or description column are both recognizable
// through the synonym resolver.
type Spreadsheet struct {
	resolver *headers.Resolver
}

func NewSpreadsheet(resolver *headers.Resolver) *Spreadsheet {
	return &Spreadsheet{resolver: resolver}
}

func (s *Spreadsheet) Name() string { return "spreadsheet" }

func (s *Spreadsheet) Extract(ctx context.Context, doc Document, page int) (PageExtract, error) {
	if doc.Format != constants.SPREADSHEET {
		return PageExtract{Note: "spreadsheet: not a workbook"}, nil
	}
	if err := ctx.Err(); err != nil {
		return PageExtract{}, err
	}

	f, err := excelize.OpenFile(doc.Path)
	if err != nil {
		return PageExtract{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if page < 1 || page > len(sheets) {
		return PageExtract{Note: fmt.Sprintf("spreadsheet: sheet %d out of range", page)}, nil
	}
	rows, err := f.GetRows(sheets[page-1])
	if err != nil {
		return PageExtract{}, fmt.Errorf("read sheet %q: %w", sheets[page-1], err)
	}

	headerIdx, header := s.findHeaderRow(rows)
	if headerIdx < 0 {
		return PageExtract{Note: "spreadsheet: no recognizable header row"}, nil
	}

	var out []RawRow
	for _, cells := range rows[headerIdx+1:] {
		if isBlank(cells) {
			continue
		}
		row := RawRow{Page: page, SourceFile: doc.Name}
		for i, h := range header {
			if h == "" {
				continue
			}
			v := ""
			if i < len(cells) {
				v = strings.TrimSpace(cells[i])
			}
			row.Set(h, v)
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return PageExtract{Note: "spreadsheet: header found but no data rows"}, nil
	}
	return PageExtract{Rows: out}, nil
}

// findHeaderRow scans the first rows for one that names both a price
// column and a code/description column.
func (s *Spreadsheet) findHeaderRow(rows [][]string) (int, []string) {
	limit := len(rows)
	if limit > 10 {
		limit = 10
	}
	for i := 0; i < limit; i++ {
		havePrice, haveProduct := false, false
		for _, cell := range rows[i] {
			field, ok := s.resolver.Resolve(cell)
			if !ok {
				continue
			}
			switch field {
			case constants.FieldPrice:
				havePrice = true
			case constants.FieldMaterialCode, constants.FieldShortCode, constants.FieldDescription:
				haveProduct = true
			}
		}
		if havePrice && haveProduct {
			header := make([]string, len(rows[i]))
			for j, cell := range rows[i] {
				header[j] = strings.TrimSpace(cell)
			}
			return i, header
		}
	}
	return -1, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
