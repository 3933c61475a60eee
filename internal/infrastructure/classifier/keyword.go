// Package classifier scores extracted text against fixed keyword tables to
// assign a medical document category. Matching is substring containment on
// lowercased text, not word-boundary matching; downstream consumers depend
// on that (e.g. "mg" firing inside "10mg").
package classifier

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/health-doc-pipeline/internal/core/domain"
)

//go:embed categories.yaml
var categoriesYAML []byte

type categoryRule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

type ruleTable struct {
	Categories []categoryRule `yaml:"categories"`
	Generic    []categoryRule `yaml:"generic"`
}

type Keyword struct {
	categories []categoryRule
	generic    []categoryRule
}

func NewKeyword() (*Keyword, error) {
	var table ruleTable
	if err := yaml.Unmarshal(categoriesYAML, &table); err != nil {
		return nil, fmt.Errorf("parse category table: %w", err)
	}
	if len(table.Categories) == 0 {
		return nil, fmt.Errorf("category table is empty")
	}
	return &Keyword{categories: table.Categories, generic: table.Generic}, nil
}

// Classify picks the category with the strictly greatest keyword score. Ties
// resolve to the earliest declared category; zero scores fall through to the
// generic sets and finally to general_document.
func (k *Keyword) Classify(text string) domain.DocumentType {
	lower := strings.ToLower(text)

	best := ""
	bestScore := 0
	for _, cat := range k.categories {
		score := 0
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best = cat.Name
			bestScore = score
		}
	}
	if bestScore > 0 {
		return domain.DocumentType(best)
	}

	for _, cat := range k.generic {
		for _, kw := range cat.Keywords {
			if strings.Contains(lower, kw) {
				return domain.DocumentType(cat.Name)
			}
		}
	}
	return domain.TypeGeneralDocument
}
