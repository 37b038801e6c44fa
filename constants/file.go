package constants

import "strings"

// AllowedExtensions holds the file extensions accepted for roll ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// IgnoreKeywords marks roll files that must never be ingested: provisional
// rolls, removal lists and termination notices. Matching is case-insensitive
// against the file name.
var IgnoreKeywords = []string{
	"Provisório",
	"Eliminados",
	"Elimnado",
	"Eliminado",
	"Termo",
}

// XLSXExtension is the suffix of mirrored spreadsheet files.
const XLSXExtension = ".xlsx"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// HasIgnoredKeyword reports whether the file name contains one of the
// ignore keywords, compared case-insensitively.
func HasIgnoredKeyword(filename string) bool {
	lower := strings.ToLower(filename)
	for _, kw := range IgnoreKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
