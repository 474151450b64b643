// Package categorize suggests a category for a merchant from keyword rules and
// the user's own categorisation history.
package categorize

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// MinSimilarity is the lowest history match accepted.
const MinSimilarity = 0.75

// Suggestion sources.
const (
	SourceRule     = "rule"
	SourceHistory  = "history"
	SourceFallback = "fallback"
)

// Rule maps merchant keywords to a category.
type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// RuleSet is the rules file.
type RuleSet struct {
	Fallback string `yaml:"fallback"`
	Rules    []Rule `yaml:"rules"`
}

// Suggestion is a proposed category for one merchant.
type Suggestion struct {
	Category   string  `json:"category"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// Categorizer holds a parsed rule set.
type Categorizer struct {
	rules RuleSet
}

// New returns a Categorizer using the embedded default rules.
func New() *Categorizer {
	c, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("categorize: embedded rules: %v", err))
	}
	return c
}

// Load reads a rules file from disk.
func Load(path string) (*Categorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Load: reading rules: %w", err)
	}
	return Parse(data)
}

// Parse builds a Categorizer from YAML rules.
func Parse(data []byte) (*Categorizer, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("Parse: %w", err)
	}
	if rs.Fallback == "" {
		rs.Fallback = "misc"
	}
	for i, r := range rs.Rules {
		if r.Category == "" || len(r.Keywords) == 0 {
			return nil, fmt.Errorf("Parse: rule %d needs a category and keywords", i)
		}
		for j, k := range r.Keywords {
			rs.Rules[i].Keywords[j] = strings.ToLower(strings.TrimSpace(k))
		}
	}
	return &Categorizer{rules: rs}, nil
}

// Suggest proposes a category for merchant. Keyword rules win; otherwise the
// closest merchant in known (lower-cased merchant -> category) is used when it is
// similar enough; otherwise the fallback category.
func (c *Categorizer) Suggest(merchant string, known map[string]string) Suggestion {
	m := strings.ToLower(strings.TrimSpace(merchant))

	for _, r := range c.rules.Rules {
		for _, k := range r.Keywords {
			if strings.Contains(m, k) {
				return Suggestion{Category: r.Category, Source: SourceRule, Confidence: 1}
			}
		}
	}

	var (
		best      string
		bestScore float64
	)
	for name, category := range known {
		if score := Similarity(m, name); score > bestScore {
			best, bestScore = category, score
		}
	}
	if bestScore >= MinSimilarity {
		return Suggestion{Category: best, Source: SourceHistory, Confidence: bestScore}
	}

	return Suggestion{Category: c.rules.Fallback, Source: SourceFallback}
}

// Similarity is 1 minus the normalised edit distance of the lower-cased inputs.
func Similarity(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
