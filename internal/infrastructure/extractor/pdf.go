package extractor

import (
	"context"
	"fmt"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"
)

// pdftotextLayout extracts via docconv, which shells out to pdftotext and
// keeps the page layout. Pages arrive separated by form feeds; they are
// re-joined with a blank line and counted.
func (r *Registry) pdftotextLayout(_ context.Context, path string) (string, map[string]any, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", nil, fmt.Errorf("pdftotext convert: %w", err)
	}
	pages := strings.Split(res.Body, "\f")
	for i, p := range pages {
		pages[i] = strings.TrimSpace(p)
	}
	text := strings.TrimSpace(strings.Join(pages, "\n\n"))
	meta := map[string]any{"pages": len(pages)}
	return text, meta, nil
}

// pdfBasic is the pure-Go fallback: page-by-page plain text, blank-line
// joined. Layout is not preserved.
func (r *Registry) pdfBasic(_ context.Context, path string) (_ string, _ map[string]any, err error) {
	defer func() {
		// the pdf package panics on some malformed files
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf parse: %v", rec)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("pdf open: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", nil, fmt.Errorf("pdf page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(content))
	}
	text := strings.TrimSpace(strings.Join(pages, "\n\n"))
	meta := map[string]any{"pages": total}
	return text, meta, nil
}
