package constants

import "strings"

// Document formats accepted by the pipeline.
const (
	PDF         = "PDF"
	SPREADSHEET = "SPREADSHEET"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the document format for a normalized extension,
// or "" when the extension is not supported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "xlsx", "xls", "xlsm":
		return SPREADSHEET
	default:
		return ""
	}
}
