// Package squawks loads and indexes the transponder squawk-code table
// (spec.md §6 "Squawks data"): ranged codes exploded into a per-code
// octal lookup plus a lookup by category type.
package squawks

import (
	"encoding/json"
	"fmt"
	"io"
)

// Code describes one squawk range as loaded from the source document.
type Code struct {
	Begin       string   `json:"begin"`
	End         string   `json:"end,omitempty"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Details     []string `json:"details,omitempty"`
}

// document is the top-level shape of the squawks JSON source.
type document struct {
	Codes []Code `json:"codes"`
}

// Registry answers squawk lookups by exact 4-digit octal code or by
// category type.
type Registry struct {
	byCode map[string]Code
	byType map[string][]Code
}

// Load parses a squawks document from r and explodes every range into
// its individual octal codes.
func Load(r io.Reader) (*Registry, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("squawks: decode: %w", err)
	}
	return build(doc.Codes)
}

// LoadCodes builds a Registry directly from an in-memory code list,
// for tests and for the empty fallback table cmd/sentinel uses when
// the squawks file cannot be read.
func LoadCodes(codes []Code) (*Registry, error) {
	return build(codes)
}

func build(codes []Code) (*Registry, error) {
	reg := &Registry{
		byCode: make(map[string]Code),
		byType: make(map[string][]Code),
	}

	for _, c := range codes {
		begin, err := octalToInt(c.Begin)
		if err != nil {
			return nil, fmt.Errorf("squawks: invalid begin code %q: %w", c.Begin, err)
		}
		end := begin
		if c.End != "" {
			end, err = octalToInt(c.End)
			if err != nil {
				return nil, fmt.Errorf("squawks: invalid end code %q: %w", c.End, err)
			}
		}
		if end < begin {
			return nil, fmt.Errorf("squawks: range %s-%s has end before begin", c.Begin, c.End)
		}

		for v := begin; v <= end; v++ {
			code := fmt.Sprintf("%04o", v)
			reg.byCode[code] = c
		}
		reg.byType[c.Type] = append(reg.byType[c.Type], c)
	}

	return reg, nil
}

// octalToInt parses a 4-digit octal squawk string in [0000, 7777].
func octalToInt(s string) (int, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("expected 4 digits, got %q", s)
	}
	v := 0
	for _, r := range s {
		if r < '0' || r > '7' {
			return 0, fmt.Errorf("not a valid octal digit: %q", s)
		}
		v = v*8 + int(r-'0')
	}
	return v, nil
}

// Lookup returns the Code entry for an exact 4-digit octal squawk, if any.
func (r *Registry) Lookup(squawk string) (Code, bool) {
	if r == nil {
		return Code{}, false
	}
	c, ok := r.byCode[squawk]
	return c, ok
}

// ByType returns every range registered under the given type.
func (r *Registry) ByType(t string) []Code {
	if r == nil {
		return nil
	}
	return r.byType[t]
}

// Len returns the number of exploded individual codes held (test helper).
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.byCode)
}
