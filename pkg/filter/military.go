package filter

import (
	"regexp"
	"strings"

	"github.com/groundwatch/sentinel/pkg/enrich"
)

// militaryCallsignPattern matches four letters followed by two digits,
// a common NATO tactical-callsign shape (e.g. "ABCD12").
var militaryCallsignPattern = regexp.MustCompile(`^[A-Z]{4}[0-9]{2}$`)

var defaultMilitaryPrefixes = []string{
	"RRR", "NATO", "CFC", "IAM", "ASCOT", "RCH", "REACH", "TANKER",
}

// MilitaryFilter fires for callsigns that look military: a known
// prefix, or the `[A-Z]{4}[0-9]{2}` tactical pattern (spec.md §4.7
// "military", priority 6).
type MilitaryFilter struct {
	prefixes []string
}

func NewMilitaryFilter() *MilitaryFilter {
	return &MilitaryFilter{prefixes: defaultMilitaryPrefixes}
}

func (f *MilitaryFilter) ID() string    { return "military" }
func (f *MilitaryFilter) Priority() int { return 6 }

func (f *MilitaryFilter) Configure(cfg map[string]interface{}, ctx *Context) error {
	if prefixes := cfgStringSlice(cfg, "prefixes"); prefixes != nil {
		f.prefixes = prefixes
	}
	return nil
}

func (f *MilitaryFilter) Preprocess(ac *enrich.Aircraft, ctx *Context) {}

func (f *MilitaryFilter) Evaluate(ac *enrich.Aircraft) bool {
	if ac.Raw.Flight == nil {
		return false
	}
	flight := strings.TrimSpace(*ac.Raw.Flight)
	if flight == "" {
		return false
	}
	for _, prefix := range f.prefixes {
		if strings.HasPrefix(flight, prefix) {
			return true
		}
	}
	return militaryCallsignPattern.MatchString(flight)
}

func (f *MilitaryFilter) Sort(a, b *enrich.Aircraft) bool { return distanceLess(*a, *b) }

func (f *MilitaryFilter) Format(ac *enrich.Aircraft) Result {
	flight := ""
	if ac.Raw.Flight != nil {
		flight = *ac.Raw.Flight
	}
	return Result{
		Warn:     true,
		Severity: Medium,
		Text:     "military: " + strings.TrimSpace(flight),
	}
}
