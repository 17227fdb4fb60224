package filter

import (
	"fmt"
	"regexp"

	"github.com/groundwatch/sentinel/pkg/enrich"
)

// SpecificRule is one configured flight/category pattern match.
type SpecificRule struct {
	Field       string // "flight" | "category"
	Pattern     string
	Category    string
	Description string

	compiled *regexp.Regexp
}

// specificCategoryPriority orders the categories the specific filter
// recognizes, lowest value = most important, used for Sort.
var specificCategoryPriority = map[string]int{
	"royalty":             0,
	"government":          1,
	"emergency-services":  2,
	"military-transport":  3,
	"special-ops":         4,
	"vip":                 5,
	"survey":              6,
	"special-interest":    7,
	"test":                8,
}

// SpecificData is the per-aircraft record the specific filter writes.
type SpecificData struct {
	Rule SpecificRule
}

// SpecificFilter matches a configured list of flight/category patterns
// against each aircraft (spec.md §4.7 "specific", priority 3). Regex
// compile errors are returned from Configure as fatal config errors,
// matching the source's "compile once, fail fast" behaviour.
type SpecificFilter struct {
	rules []SpecificRule
}

func NewSpecificFilter() *SpecificFilter { return &SpecificFilter{} }

func (f *SpecificFilter) ID() string    { return "specific" }
func (f *SpecificFilter) Priority() int { return 3 }

// SetRules installs the configured rule list, compiling every pattern.
func (f *SpecificFilter) SetRules(rules []SpecificRule) error {
	compiled := make([]SpecificRule, len(rules))
	for i, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("specific filter: rule %d pattern %q: %w", i, r.Pattern, err)
		}
		r.compiled = re
		compiled[i] = r
	}
	f.rules = compiled
	return nil
}

// Configure parses the `flights` rule list out of cfg (spec.md §6's
// `filters.specific.flights[]`) and compiles every pattern.
func (f *SpecificFilter) Configure(cfg map[string]interface{}, ctx *Context) error {
	raw, ok := cfg["flights"].([]interface{})
	if !ok {
		return nil
	}

	rules := make([]SpecificRule, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rules = append(rules, SpecificRule{
			Field:       stringField(m, "field"),
			Pattern:     stringField(m, "pattern"),
			Category:    stringField(m, "category"),
			Description: stringField(m, "description"),
		})
	}
	return f.SetRules(rules)
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

func (f *SpecificFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {
	for _, rule := range f.rules {
		var value string
		switch rule.Field {
		case "flight":
			if ac.Raw.Flight == nil {
				continue
			}
			value = *ac.Raw.Flight
		case "category":
			if ac.Raw.Category == nil {
				continue
			}
			value = *ac.Raw.Category
		default:
			continue
		}
		if rule.compiled.MatchString(value) {
			ac.Calculated.FilterData[f.ID()] = SpecificData{Rule: rule}
			return
		}
	}
}

func (f *SpecificFilter) Evaluate(ac *enrich.Aircraft) bool {
	_, ok := ac.Calculated.FilterData[f.ID()].(SpecificData)
	return ok
}

func (f *SpecificFilter) Sort(a, b *enrich.Aircraft) bool {
	da, _ := a.Calculated.FilterData[f.ID()].(SpecificData)
	db, _ := b.Calculated.FilterData[f.ID()].(SpecificData)
	return specificCategoryPriority[da.Rule.Category] < specificCategoryPriority[db.Rule.Category]
}

func (f *SpecificFilter) Format(ac *enrich.Aircraft) Result {
	d, _ := ac.Calculated.FilterData[f.ID()].(SpecificData)
	return Result{
		Warn:     true,
		Severity: Medium,
		Text:     fmt.Sprintf("specific: %s (%s)", d.Rule.Description, d.Rule.Category),
		Extra:    map[string]interface{}{"category": d.Rule.Category, "description": d.Rule.Description},
	}
}
