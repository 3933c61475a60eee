// Package medtext pulls structured medical entities out of free text with
// fixed regex and keyword rules. Every function is best-effort: no match
// means an empty result, never an error.
package medtext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

// extractedConfidence is attached to every regex-derived entity until a
// human reviewer verifies it.
const extractedConfidence = 0.8

var (
	reHeartRate  = regexp.MustCompile(`(?i)heart rate[:\s]*(\d+)`)
	rePRInterval = regexp.MustCompile(`(?i)PR[:\s]*(?:interval[:\s]*)?(\d+)`)
	reQRS        = regexp.MustCompile(`(?i)QRS[:\s]*(\d+)`)

	reLabWithUnit = regexp.MustCompile(`(\w+)[:\s]*([\d.]+)\s*([a-zA-Z/]+)`)
	reLabBare     = regexp.MustCompile(`(\w+)[:\s]*([\d.]+)`)

	reMedInline = regexp.MustCompile(`(?i)(\w+)\s*(\d+(?:\.\d+)?)\s*(mg|g|ml|mcg)`)
	reMedDashed = regexp.MustCompile(`(?i)(\w+)\s*-\s*(\d+)\s*(mg|g|ml|mcg)`)
)

// ExtractECG pulls heart rate, PR interval and QRS duration as integers.
// Missing measurements are simply absent from the map.
func ExtractECG(text string) map[string]int {
	data := map[string]int{}
	if m := reHeartRate.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			data["heart_rate"] = v
		}
	}
	if m := rePRInterval.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			data["pr_interval"] = v
		}
	}
	if m := reQRS.FindStringSubmatch(text); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			data["qrs_duration"] = v
		}
	}
	return data
}

// ExtractLabValues runs the name:value-unit pattern followed by the bare
// name:value pattern. Values matched by both passes appear twice; consumers
// rely on the duplicates, so they are not removed here.
func ExtractLabValues(text string) []domain.ExtractedLabValue {
	var values []domain.ExtractedLabValue

	for _, m := range reLabWithUnit.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		values = append(values, domain.ExtractedLabValue{
			TestName:   m[1],
			Value:      v,
			Unit:       m[3],
			Confidence: extractedConfidence,
		})
	}
	for _, m := range reLabBare.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		values = append(values, domain.ExtractedLabValue{
			TestName:   m[1],
			Value:      v,
			Confidence: extractedConfidence,
		})
	}
	return values
}

// ExtractMedications matches "name dose unit" and "name - dose unit" forms
// with units restricted to mg/g/ml/mcg.
func ExtractMedications(text string) []domain.ExtractedMedication {
	var meds []domain.ExtractedMedication
	for _, re := range []*regexp.Regexp{reMedInline, reMedDashed} {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			dose, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			meds = append(meds, domain.ExtractedMedication{
				Name:       m[1],
				Dose:       dose,
				Unit:       strings.ToLower(m[3]),
				Confidence: extractedConfidence,
			})
		}
	}
	return meds
}

var abnormalWords = []string{"high", "low", "abnormal", "elevated", "decreased"}
var abnormalFlags = []string{"*", "H", "L"}

// AbnormalLines returns, trimmed, every line flagged as out of range. Word
// indicators match case-insensitively; the single-character flags match
// literally.
func AbnormalLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		flagged := false
		for _, w := range abnormalWords {
			if strings.Contains(lower, w) {
				flagged = true
				break
			}
		}
		if !flagged {
			for _, f := range abnormalFlags {
				if strings.Contains(line, f) {
					flagged = true
					break
				}
			}
		}
		if flagged {
			out = append(out, strings.TrimSpace(line))
		}
	}
	return out
}

var keyPointKeywords = []string{"diagnosis", "treatment", "medication", "follow-up", "recommendation"}
var actionKeywords = []string{"follow up", "schedule", "return", "contact", "monitor", "continue", "stop"}

const maxKeyPoints = 5

// KeyPoints keeps at most five sentences that mention a clinical keyword.
func KeyPoints(text string) []string {
	return keywordSentences(text, keyPointKeywords, maxKeyPoints)
}

// ActionItems keeps every sentence that reads like a follow-up instruction.
func ActionItems(text string) []string {
	return keywordSentences(text, actionKeywords, 0)
}

func keywordSentences(text string, keywords []string, limit int) []string {
	var out []string
	for _, sentence := range strings.Split(text, ".") {
		lower := strings.ToLower(sentence)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				out = append(out, strings.TrimSpace(sentence))
				break
			}
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// FindTerms looks up glossary terms appearing in the text (substring match
// on lowercased text) and returns term → definition.
func FindTerms(text string, glossary map[string]string) map[string]string {
	lower := strings.ToLower(text)
	found := map[string]string{}
	for term, definition := range glossary {
		if strings.Contains(lower, term) {
			found[term] = definition
		}
	}
	return found
}
