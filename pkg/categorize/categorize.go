// Package categorize assigns spending categories to statement concepts, first
// from what the user taught it and then from keyword rules.
package categorize

import (
	"strings"

	"github.com/yurifrl/gastos/pkg/models"
)

type Engine struct {
	rules []Rule
}

// New returns an engine using rules, or DefaultRules when none are given.
func New(rules ...Rule) *Engine {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Engine{rules: rules}
}

// Categorize returns the category for a concept. Learned mappings win over
// rules; an unknown concept has no category.
func (e *Engine) Categorize(concept string, learned *models.Mappings) (string, bool) {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return "", false
	}

	if category, ok := learned.Lookup(concept); ok {
		return category, true
	}

	lower := strings.ToLower(concept)
	for _, rule := range e.rules {
		for _, re := range rule.Patterns {
			if re.MatchString(lower) {
				return rule.Category, true
			}
		}
	}
	return "", false
}

// Labels is the closed set of categories a transaction may carry.
func (e *Engine) Labels() []string {
	labels := make([]string, 0, len(e.rules)+2)
	for _, r := range e.rules {
		labels = append(labels, r.Category)
	}
	return append(labels, models.CategoryIncome, models.CategoryOthers)
}

func (e *Engine) Valid(label string) bool {
	for _, l := range e.Labels() {
		if l == label {
			return true
		}
	}
	return false
}

// Correction is a category chosen by the user for a suggested one.
type Correction struct {
	Concept   string
	Suggested string
	Chosen    string
}

// Corrections keeps the edits worth learning: a real change to a category
// other than Others.
func Corrections(edits []Correction) *models.Mappings {
	out := models.NewMappings()
	for _, c := range edits {
		concept := strings.TrimSpace(c.Concept)
		chosen := strings.TrimSpace(c.Chosen)
		if concept == "" || chosen == "" || chosen == models.CategoryOthers {
			continue
		}
		if chosen == strings.TrimSpace(c.Suggested) {
			continue
		}
		out.Set(concept, chosen)
	}
	return out
}
