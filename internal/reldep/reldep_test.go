package reldep

import "testing"

func TestParseAndString(t *testing.T) {
	rd, err := Parse("foo >= 1.2-3")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if rd.Name != "foo" || rd.EVR != "1.2-3" || rd.Flags != GE() {
		t.Fatalf("Parse = %+v", rd)
	}
	if got := rd.String(); got != "foo >= 1.2-3" {
		t.Errorf("String() = %q", got)
	}

	bare, err := Parse("foo")
	if err != nil {
		t.Fatalf("Parse bare: %v", err)
	}
	if bare.Name != "foo" || bare.EVR != "" {
		t.Fatalf("Parse bare = %+v", bare)
	}
}

func TestReldepMatches(t *testing.T) {
	rd, _ := Parse("foo >= 1.0-1")
	if !rd.Matches("foo", "1.0-1") {
		t.Error("expected exact EVR to match >=")
	}
	if !rd.Matches("foo", "2.0-1") {
		t.Error("expected newer EVR to match >=")
	}
	if rd.Matches("foo", "0.9-1") {
		t.Error("expected older EVR not to match >=")
	}
	if rd.Matches("bar", "1.0-1") {
		t.Error("expected name mismatch not to match")
	}

	bare, _ := Parse("foo")
	if !bare.Matches("foo", "anything-1") {
		t.Error("expected bare reldep to match any EVR of the same name")
	}
}

func TestConstraint(t *testing.T) {
	rd, _ := Parse("foo <= 2.0-1")
	c := NewConstraint(rd)
	if !c.Matches("1.0-1") {
		t.Error("expected 1.0-1 to satisfy <= 2.0-1")
	}
	if c.Matches("3.0-1") {
		t.Error("expected 3.0-1 to violate <= 2.0-1")
	}
	if !Any.Matches("whatever") {
		t.Error("expected Any to match everything")
	}
}
