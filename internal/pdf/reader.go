package pdf

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page holds the extracted text of one PDF page: the plain text used for
// header matching and the layout rows the field parser walks.
type Page struct {
	Number int
	Text   string
	Rows   []string
}

// Document is the text content of one roll PDF.
type Document struct {
	Path      string
	PageCount int
	Pages     []Page
	Warnings  []string
}

// Reader handles PDF file reading operations
type Reader struct {
	maxFileSize int64
}

// NewReader creates a new PDF reader with the specified size constraint
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		maxFileSize: maxFileSize,
	}
}

// ReadFile extracts per-page text and rows from a PDF file. The file is
// preflighted first so structurally broken PDFs fail before any page is
// parsed.
func (r *Reader) ReadFile(path string) (*Document, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	if err := r.validatePDFFile(path, fileInfo); err != nil {
		return nil, err
	}

	pageCount, err := Preflight(path)
	if err != nil {
		return nil, fmt.Errorf("pdf failed validation: %w", err)
	}

	f, pdfReader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	doc := &Document{
		Path:      path,
		PageCount: pageCount,
	}

	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("page %d: text: %v", pageNum, err))
			continue
		}

		rows, err := extractRows(page)
		if err != nil {
			doc.Warnings = append(doc.Warnings, fmt.Sprintf("page %d: rows: %v", pageNum, err))
		}

		doc.Pages = append(doc.Pages, Page{
			Number: pageNum,
			Text:   text,
			Rows:   rows,
		})
	}

	return doc, nil
}

// validatePDFFile performs basic validation on a PDF file
func (r *Reader) validatePDFFile(path string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", path)
	}

	if r.maxFileSize > 0 && fileInfo.Size() > r.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), r.maxFileSize)
	}

	return nil
}

// extractRows turns one page into top-to-bottom text rows.
func extractRows(page pdf.Page) ([]string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(rows))
	for _, row := range rows {
		line := joinRow(row.Content)
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}

// wordGap is the horizontal distance, in points, treated as a word boundary
// between adjacent text runs on the same row.
const wordGap = 1.0

func joinRow(words []pdf.Text) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 {
			prev := words[i-1]
			if w.X-(prev.X+prev.W) > wordGap {
				b.WriteString(" ")
			}
		}
		b.WriteString(w.S)
	}
	return b.String()
}
