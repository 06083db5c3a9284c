package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Config holds tool paths and rasterization settings.
type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // if empty -> "pdftoppm"
	Tesseract string // if empty -> "tesseract"

	TesseractLang string // default "tur+eng"
	TessdataDir   string
	DPI           int // rasterization DPI, default 150
	MaxPages      int // 0 = no limit
}

// Tools runs the external PDF/OCR commands.
type Tools struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTools(cfg Config, logger *slog.Logger) *Tools {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "tur+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 150
	}
	return &Tools{cfg: cfg, runner: execRunner{}, logger: logger}
}

// ExtractText returns the embedded text of every page. Pages are split
// on the form-feed separator pdftotext emits.
func (t *Tools) ExtractText(ctx context.Context, path string) ([]string, error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := t.runner.Run(ctx, t.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, truncate(string(errb), 512))
	}
	pages := strings.Split(string(out), "\f")
	// pdftotext terminates the last page with a trailing \f
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	if t.cfg.MaxPages > 0 && len(pages) > t.cfg.MaxPages {
		pages = pages[:t.cfg.MaxPages]
	}
	return pages, nil
}

// PageCount reports the number of pages via the embedded text layer.
func (t *Tools) PageCount(ctx context.Context, path string) (int, error) {
	pages, err := t.ExtractText(ctx, path)
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// RasterizePage renders one page to PNG bytes.
func (t *Tools) RasterizePage(ctx context.Context, path string, page int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "sp-pp-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			t.logger.Warn("temp dir cleanup failed", "dir", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -f N -l N -r <dpi> -png <in.pdf> <tmp/page>
	_, errb, err := t.runner.Run(ctx, t.cfg.Pdftoppm,
		"-f", fmt.Sprintf("%d", page),
		"-l", fmt.Sprintf("%d", page),
		"-r", fmt.Sprintf("%d", t.cfg.DPI),
		"-png", path, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm rendered no image for page %d", page)
	}
	return os.ReadFile(matches[0])
}

// OCRImage runs tesseract over PNG bytes and returns the recognized text.
func (t *Tools) OCRImage(ctx context.Context, png []byte) (string, error) {
	tmp, err := os.CreateTemp("", "sp-ocr-*.png")
	if err != nil {
		return "", err
	}
	defer func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil {
			t.logger.Warn("temp file cleanup failed", "file", tmp.Name(), "error", err)
		}
	}()
	if _, err := tmp.Write(png); err != nil {
		return "", err
	}

	args := []string{tmp.Name(), "stdout", "-l", t.cfg.TesseractLang}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	// tesseract <file> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}
