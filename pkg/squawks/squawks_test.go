package squawks

import (
	"strings"
	"testing"
)

func TestLoadExplodesRange(t *testing.T) {
	doc := `{"codes":[{"begin":"0100","end":"0103","type":"nato","description":"NATO common"}]}`
	reg, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 4 {
		t.Fatalf("expected 4 exploded codes, got %d", reg.Len())
	}
	for _, code := range []string{"0100", "0101", "0102", "0103"} {
		if _, ok := reg.Lookup(code); !ok {
			t.Errorf("expected %s to be present", code)
		}
	}
	if _, ok := reg.Lookup("0104"); ok {
		t.Error("expected 0104 to be out of range")
	}
}

func TestLoadSingleCodeNoEnd(t *testing.T) {
	reg, err := LoadCodes([]Code{{Begin: "7500", Type: "emergency", Description: "hijack"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, ok := reg.Lookup("7500")
	if !ok || c.Type != "emergency" {
		t.Errorf("expected emergency lookup for 7500, got %+v ok=%v", c, ok)
	}
}

func TestByType(t *testing.T) {
	reg, _ := LoadCodes([]Code{
		{Begin: "7500", Type: "emergency", Description: "hijack"},
		{Begin: "7600", Type: "emergency", Description: "radio failure"},
	})
	if got := len(reg.ByType("emergency")); got != 2 {
		t.Errorf("expected 2 emergency ranges, got %d", got)
	}
}

func TestLoadRejectsInvalidOctal(t *testing.T) {
	_, err := LoadCodes([]Code{{Begin: "7800", Type: "bad"}})
	if err == nil {
		t.Fatal("expected error for non-octal digit")
	}
}

func TestLoadRejectsEndBeforeBegin(t *testing.T) {
	_, err := LoadCodes([]Code{{Begin: "0200", End: "0100", Type: "bad"}})
	if err == nil {
		t.Fatal("expected error when end < begin")
	}
}

func TestNilRegistrySafe(t *testing.T) {
	var reg *Registry
	if _, ok := reg.Lookup("7500"); ok {
		t.Error("expected nil registry lookup to report not found")
	}
	if reg.Len() != 0 {
		t.Error("expected nil registry Len to be 0")
	}
}
