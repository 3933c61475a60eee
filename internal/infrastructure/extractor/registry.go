// Package extractor turns stored files into raw text. Each format family
// carries a ranked list of strategies assembled at startup from a capability
// probe, so a missing external binary degrades extraction instead of
// breaking it.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

// Extraction method names recorded on every result.
const (
	MethodDirectRead          = "direct_read"
	MethodPdftotextLayout     = "pdftotext_layout"
	MethodPDFBasic            = "pdf_basic"
	MethodDocconv             = "docconv"
	MethodDocxFallback        = "docx_fallback"
	MethodTesseractConfidence = "tesseract_confidence"
	MethodTesseractFallback   = "tesseract_fallback"
)

type Config struct {
	Tesseract     string // binary name or absolute path; empty -> "tesseract"
	TesseractLang string // default "eng"
}

type strategy struct {
	name string
	run  func(ctx context.Context, path string) (string, map[string]any, error)
}

type Registry struct {
	cfg    Config
	runner Runner
	logger *slog.Logger

	pdf   []strategy
	word  []strategy
	text  []strategy
	image []strategy
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".bmp": true, ".tiff": true, ".tif": true,
}

func New(cfg Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return newRegistry(cfg, execRunner{logger: logger}, logger)
}

// NewWithRunner exists for tests that stub external commands.
func NewWithRunner(cfg Config, runner Runner, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return newRegistry(cfg, runner, logger)
}

func newRegistry(cfg Config, runner Runner, logger *slog.Logger) *Registry {
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	r := &Registry{cfg: cfg, runner: runner, logger: logger}

	hasPdftotext := binaryAvailable("pdftotext")
	hasTesseract := binaryAvailable(cfg.Tesseract)
	logger.Info("extraction capability probe",
		"pdftotext", hasPdftotext,
		"tesseract", hasTesseract,
	)

	if hasPdftotext {
		r.pdf = append(r.pdf, strategy{MethodPdftotextLayout, r.pdftotextLayout})
	}
	r.pdf = append(r.pdf, strategy{MethodPDFBasic, r.pdfBasic})

	r.word = append(r.word,
		strategy{MethodDocconv, r.docconvWord},
		strategy{MethodDocxFallback, r.docxFallback},
	)

	r.text = append(r.text, strategy{MethodDirectRead, r.directRead})

	if hasTesseract {
		r.image = append(r.image,
			strategy{MethodTesseractConfidence, r.tesseractConfidence},
			strategy{MethodTesseractFallback, r.tesseractWhitelist},
		)
	}
	return r
}

func binaryAvailable(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Extract routes by extension and walks the family's strategy chain until
// one succeeds. When every strategy fails, the result carries the first
// failure as its cause and no text.
func (r *Registry) Extract(ctx context.Context, path, extension string) domain.ExtractionResult {
	ext := strings.ToLower(extension)

	var chain []strategy
	var family string
	switch {
	case ext == ".pdf":
		chain, family = r.pdf, "pdf"
	case ext == ".docx" || ext == ".doc":
		chain, family = r.word, "word"
	case ext == ".txt" || ext == ".rtf":
		chain, family = r.text, "text"
	case imageExtensions[ext]:
		chain, family = r.image, "image"
	default:
		return domain.ExtractionResult{
			Err: domain.WrapError(domain.ErrExtraction, "route extraction",
				fmt.Errorf("unsupported extension %q", extension)),
		}
	}

	if len(chain) == 0 {
		return domain.ExtractionResult{
			Err: domain.WrapError(domain.ErrExtraction, family+" extraction",
				fmt.Errorf("no engine available for %s", family)),
		}
	}

	var firstErr error
	for _, s := range chain {
		text, meta, err := s.run(ctx, path)
		if err != nil {
			r.logger.Warn("extraction strategy failed",
				"method", s.name,
				"path", path,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		return domain.ExtractionResult{Text: text, Method: s.name, Metadata: meta}
	}
	return domain.ExtractionResult{
		Err: domain.WrapError(domain.ErrExtraction, family+" extraction", firstErr),
	}
}
