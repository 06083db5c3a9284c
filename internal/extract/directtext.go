package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/smartprice/pricelist/constants"
	"github.com/smartprice/pricelist/internal/normalize"
)

// TextSource yields the embedded text of every page. *ocr.Tools
// satisfies it; tests plug in canned pages.
type TextSource interface {
	ExtractText(ctx context.Context, path string) ([]string, error)
}

// Line shapes seen across vendor PDFs with an embedded text layer. The
// trailing currency token is optional in all of them.
var linePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.*?)\s{2,}([\d.,]+)\s*(?:TL|TRY|EUR|USD|\$|€)?$`),
	regexp.MustCompile(`(?i)^([A-Z0-9ÇĞİÖŞÜ][A-Z0-9ÇĞİÖŞÜ\-\s/]{4,49})\s+([\d.,]+)\s*(?:TL|TRY|EUR|USD|\$|€)?$`),
	regexp.MustCompile(`(?i)Item Code:\s*(.*?)\s*Price:\s*([\d.,]+)`),
	regexp.MustCompile(`(?i)Ürün No:\s*(.*?)\s*Birim Fiyat:\s*([\d.,]+)`),
}

// DirectText reads the embedded text layout of a digital PDF. It is the
// first strategy tried and succeeds only when at least one row carries a
// product-code-like token; otherwise it reports zero rows so the
// orchestrator falls through to the model-backed strategies.
type DirectText struct {
	tools TextSource

	mu    sync.Mutex
	cache map[string][]string // path -> page texts, one pdftotext run per document
}

func NewDirectText(tools TextSource) *DirectText {
	return &DirectText{tools: tools, cache: make(map[string][]string)}
}

func (s *DirectText) Name() string { return "direct-text" }

func (s *DirectText) Extract(ctx context.Context, doc Document, page int) (PageExtract, error) {
	if doc.Format != constants.PDF {
		return PageExtract{Note: "direct-text: not a pdf"}, nil
	}
	pages, err := s.pages(ctx, doc.Path)
	if err != nil {
		return PageExtract{}, fmt.Errorf("direct-text: %w", err)
	}
	if page < 1 || page > len(pages) {
		return PageExtract{Note: fmt.Sprintf("direct-text: page %d out of range", page)}, nil
	}

	var rows []RawRow
	codeLike := false
	for _, line := range strings.Split(pages[page-1], "\n") {
		line = strings.TrimSpace(line)
		if len(line) < 5 {
			continue
		}
		for _, pat := range linePatterns {
			m := pat.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			product := strings.Join(strings.Fields(m[1]), " ")
			priceRaw := m[2]
			if product == "" || priceRaw == "" {
				break
			}
			row := RawRow{Page: page, SourceFile: doc.Name}
			row.Set("Açıklama", product)
			row.Set("Fiyat", priceRaw)
			if cur := normalize.NormalizeCurrency(normalize.DetectCurrency(line)); cur != "" {
				row.Set("Para Birimi", cur)
			}
			rows = append(rows, row)
			if code, _ := normalize.SplitCodeDescription(product); code != "" && hasDigit(code) {
				codeLike = true
			}
			break // first matching pattern wins for a line
		}
	}

	if !codeLike {
		// Text layer exists but nothing resembles a product code: treat
		// as a failed attempt so OCR/vision get their turn.
		return PageExtract{Note: fmt.Sprintf("direct-text: %d lines matched, no code-like token", len(rows))}, nil
	}
	return PageExtract{Rows: rows}, nil
}

func (s *DirectText) pages(ctx context.Context, path string) ([]string, error) {
	s.mu.Lock()
	if pages, ok := s.cache[path]; ok {
		s.mu.Unlock()
		return pages, nil
	}
	s.mu.Unlock()

	pages, err := s.tools.ExtractText(ctx, path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cache[path] = pages
	s.mu.Unlock()
	return pages, nil
}

func hasDigit(s string) bool {
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
