package extractor

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"code.sajari.com/docconv"
)

// docconvWord handles .docx natively and .doc through wvText when present.
// The converter's meta block is surfaced as a warning count.
func (r *Registry) docconvWord(_ context.Context, path string) (string, map[string]any, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", nil, fmt.Errorf("docconv convert: %w", err)
	}
	text := strings.TrimSpace(res.Body)
	meta := map[string]any{"warnings": len(res.Meta)}
	if v, ok := res.Meta["ModifiedDate"]; ok {
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			meta["modified_unix"] = ts
		}
	}
	return text, meta, nil
}

// wordDocument mirrors the fragment of the OOXML main document part we
// care about: paragraphs and their text runs.
type wordDocument struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Text string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// docxFallback walks word/document.xml directly. Only .docx archives are
// readable this way.
func (r *Registry) docxFallback(_ context.Context, path string) (string, map[string]any, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".docx") {
		return "", nil, fmt.Errorf("docx fallback: not a docx archive")
	}

	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", nil, fmt.Errorf("docx open: %w", err)
	}
	defer archive.Close()

	var doc wordDocument
	found := false
	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", nil, fmt.Errorf("docx document part: %w", err)
		}
		err = xml.NewDecoder(rc).Decode(&doc)
		rc.Close()
		if err != nil {
			return "", nil, fmt.Errorf("docx parse: %w", err)
		}
		found = true
		break
	}
	if !found {
		return "", nil, fmt.Errorf("docx fallback: word/document.xml missing")
	}

	var paragraphs []string
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, run := range p.Runs {
			b.WriteString(run.Text)
		}
		if text := strings.TrimSpace(b.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	text := strings.Join(paragraphs, "\n\n")
	meta := map[string]any{"paragraphs": len(paragraphs)}
	return text, meta, nil
}
