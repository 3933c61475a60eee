package extractor

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"sort"
	"strconv"
	"strings"

	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// wordConfidenceThreshold drops low-certainty words from the joined text.
// The reported confidence still averages over every word.
const wordConfidenceThreshold = 0.5

const ocrWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789.,:;()-/% "

const chartAdvisoryNote = "image resembles a medical chart or waveform; automated chart interpretation is not available, request clinician review"

// tesseractConfidence runs the TSV mode for per-word confidences, keeps
// words above the threshold and errors when nothing legible remains so the
// whitelist fallback gets its turn.
func (r *Registry) tesseractConfidence(ctx context.Context, path string) (string, map[string]any, error) {
	prep, meta, err := r.preprocess(path)
	if err != nil {
		return "", nil, err
	}
	defer os.Remove(prep)

	args := []string{prep, "stdout", "-l", r.cfg.TesseractLang, "tsv"}
	out, _, err := r.runner.Run(ctx, r.cfg.Tesseract, args...)
	if err != nil {
		return "", nil, fmt.Errorf("tesseract tsv: %w", err)
	}

	var kept []string
	var sum float64
	var n int
	for i, line := range strings.Split(string(out), "\n") {
		if i == 0 || line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		conf /= 100
		sum += conf
		n++
		word := strings.TrimSpace(cols[11])
		if conf > wordConfidenceThreshold && word != "" {
			kept = append(kept, word)
		}
	}

	text := strings.Join(kept, " ")
	if text == "" {
		return "", nil, fmt.Errorf("tesseract tsv: no legible text")
	}
	if n > 0 {
		meta["confidence"] = sum / float64(n)
	}
	return text, meta, nil
}

// tesseractWhitelist is the constrained fallback pass: plain stdout output
// with the character set limited to alphanumerics and common punctuation.
func (r *Registry) tesseractWhitelist(ctx context.Context, path string) (string, map[string]any, error) {
	prep, meta, err := r.preprocess(path)
	if err != nil {
		return "", nil, err
	}
	defer os.Remove(prep)

	args := []string{
		prep, "stdout",
		"-l", r.cfg.TesseractLang,
		"-c", "tessedit_char_whitelist=" + ocrWhitelist,
	}
	out, _, err := r.runner.Run(ctx, r.cfg.Tesseract, args...)
	if err != nil {
		return "", nil, fmt.Errorf("tesseract whitelist: %w", err)
	}
	return strings.TrimSpace(string(out)), meta, nil
}

// preprocess decodes the image, cleans it up for OCR and writes the result
// to a temporary PNG the OCR binary can read. The caller removes the file.
// Returned metadata records source dimensions and the chart advisory when
// the heuristic triggers.
func (r *Registry) preprocess(path string) (string, map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return "", nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	meta := map[string]any{
		"width":    bounds.Dx(),
		"height":   bounds.Dy(),
		"channels": channelCount(src.ColorModel()),
	}

	gray := toGray(src)
	gray = medianDenoise(gray)
	gray = contrastStretch(gray)
	binary := otsuBinarize(gray)

	if looksLikeChart(binary) {
		meta["chart_analysis"] = chartAdvisoryNote
	}

	tmp, err := os.CreateTemp("", "ocr-*.png")
	if err != nil {
		return "", nil, fmt.Errorf("temp image: %w", err)
	}
	if err := png.Encode(tmp, binary); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("encode preprocessed image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}
	return tmp.Name(), meta, nil
}

func channelCount(m color.Model) int {
	switch m {
	case color.GrayModel, color.Gray16Model:
		return 1
	case color.RGBAModel, color.RGBA64Model, color.NRGBAModel, color.NRGBA64Model:
		return 4
	default:
		return 3
	}
}

func toGray(src image.Image) *image.Gray {
	bounds := src.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, src.At(x, y))
		}
	}
	return gray
}

// medianDenoise replaces each pixel with the median of its 3x3
// neighborhood. Border pixels are kept as-is.
func medianDenoise(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	copy(out.Pix, src.Pix)

	var window [9]byte
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			i := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window[i] = src.GrayAt(x+dx, y+dy).Y
					i++
				}
			}
			neighborhood := window[:]
			sort.Slice(neighborhood, func(a, b int) bool { return neighborhood[a] < neighborhood[b] })
			out.SetGray(x, y, color.Gray{Y: neighborhood[4]})
		}
	}
	return out
}

// contrastStretch maps the observed intensity range onto the full 0..255
// scale. A flat image is returned unchanged.
func contrastStretch(src *image.Gray) *image.Gray {
	min, max := byte(255), byte(0)
	for _, v := range src.Pix {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min >= max {
		return src
	}

	out := image.NewGray(src.Bounds())
	scale := 255.0 / float64(max-min)
	for i, v := range src.Pix {
		out.Pix[i] = byte(float64(v-min) * scale)
	}
	return out
}

// otsuBinarize thresholds with Otsu's method: the split that maximizes
// between-class variance of the intensity histogram.
func otsuBinarize(src *image.Gray) *image.Gray {
	var hist [256]int
	for _, v := range src.Pix {
		hist[v]++
	}
	total := len(src.Pix)

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i) * float64(c)
	}

	var sumBg, weightBg float64
	var bestVariance float64
	threshold := 0
	for t := 0; t < 256; t++ {
		weightBg += float64(hist[t])
		if weightBg == 0 {
			continue
		}
		weightFg := float64(total) - weightBg
		if weightFg == 0 {
			break
		}
		sumBg += float64(t) * float64(hist[t])
		meanBg := sumBg / weightBg
		meanFg := (sumAll - sumBg) / weightFg
		variance := weightBg * weightFg * (meanBg - meanFg) * (meanBg - meanFg)
		if variance > bestVariance {
			bestVariance = variance
			threshold = t
		}
	}

	out := image.NewGray(src.Bounds())
	for i, v := range src.Pix {
		if int(v) > threshold {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

// looksLikeChart flags grid-heavy images: enough edge transitions overall
// plus at least ten long straight runs in either direction, the signature
// of ruled ECG paper and plotted waveforms.
func looksLikeChart(img *image.Gray) bool {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 2 || h < 2 {
		return false
	}

	edges := 0
	for y := 0; y < h; y++ {
		for x := 1; x < w; x++ {
			if img.GrayAt(x, y).Y != img.GrayAt(x-1, y).Y {
				edges++
			}
		}
	}
	density := float64(edges) / float64(w*h)
	if density < 0.02 {
		return false
	}

	lines := 0
	for y := 0; y < h; y++ {
		dark := 0
		for x := 0; x < w; x++ {
			if img.GrayAt(x, y).Y == 0 {
				dark++
			}
		}
		if float64(dark) >= 0.6*float64(w) {
			lines++
		}
	}
	for x := 0; x < w; x++ {
		dark := 0
		for y := 0; y < h; y++ {
			if img.GrayAt(x, y).Y == 0 {
				dark++
			}
		}
		if float64(dark) >= 0.6*float64(h) {
			lines++
		}
	}
	return lines >= 10
}
