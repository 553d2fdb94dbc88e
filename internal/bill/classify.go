package bill

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fold prepares free text for root matching: diacritics are stripped and the
// result lower-cased, so "educaç" matches "educacional" and NFD input matches
// NFC roots.
func fold(s string) string {
	// Transformers and Casers keep state; build them per call so fold is safe to share.
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(strip, s)
	if err != nil {
		stripped = s
	}
	return cases.Lower(language.BrazilianPortuguese).String(stripped)
}

func containsAny(text string, roots []string) bool {
	for _, root := range roots {
		if strings.Contains(text, root) {
			return true
		}
	}
	return false
}

// CategoryRule maps a set of truncated keyword roots to a category.
type CategoryRule struct {
	Category Category
	Roots    []string
}

// DefaultRules returns a copy of the rule table used by Classify. Order is
// significant: the first matching rule wins.
func DefaultRules() []CategoryRule {
	return []CategoryRule{
		{CategoryHealth, []string{"saúde", "médic", "hospital", "sus"}},
		{CategoryEducation, []string{"educaç", "escola", "ensino", "universidade"}},
		{CategoryEnvironment, []string{"ambiente", "clima", "energia", "sustentável"}},
		{CategorySecurity, []string{"segurança", "polícia", "crime"}},
		{CategoryEconomy, []string{"economia", "imposto", "fiscal", "tributar"}},
		{CategoryLabor, []string{"trabalho", "emprego", "salário"}},
		{CategoryTransparency, []string{"transpar", "corrupção", "público"}},
	}
}

// Classifier assigns categories from an ordered rule table.
type Classifier struct {
	rules []CategoryRule
}

// NewClassifier builds a classifier over rules. Roots are folded once here so
// rule tables may be written in any case.
func NewClassifier(rules []CategoryRule) *Classifier {
	folded := make([]CategoryRule, len(rules))
	for i, r := range rules {
		roots := make([]string, len(r.Roots))
		for j, root := range r.Roots {
			roots[j] = fold(root)
		}
		folded[i] = CategoryRule{Category: r.Category, Roots: roots}
	}
	return &Classifier{rules: folded}
}

// Classify returns the category of the first rule whose roots occur in
// summary+keywords, or CategoryGeneral.
func (c *Classifier) Classify(summary, keywords string) Category {
	text := fold(summary + " " + keywords)
	for _, r := range c.rules {
		if containsAny(text, r.Roots) {
			return r.Category
		}
	}
	return CategoryGeneral
}

var defaultClassifier = NewClassifier(DefaultRules())

// Classify categorizes a bill using the default rule table.
func Classify(summary, keywords string) Category {
	return defaultClassifier.Classify(summary, keywords)
}
