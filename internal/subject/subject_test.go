package subject

import "testing"

func TestParseNEVRA(t *testing.T) {
	poss := Parse("foo-1.2-3.x86_64")
	found := false
	for _, p := range poss {
		if p.Name == "foo" && p.Version == "1.2" && p.Release == "3" && p.Arch == "x86_64" {
			found = true
		}
	}
	if !found {
		t.Errorf("Parse(foo-1.2-3.x86_64) = %+v, expected a full NEVRA possibility", poss)
	}
}

func TestParseBareName(t *testing.T) {
	poss := Parse("foo")
	if len(poss) == 0 {
		t.Fatal("expected at least one possibility")
	}
	last := poss[len(poss)-1]
	if last.Name != "foo" || last.Arch != "" || last.Version != "" {
		t.Errorf("last possibility = %+v, want bare name foo", last)
	}
}

func TestParseReldepForm(t *testing.T) {
	poss := Parse("foo >= 1.0-1")
	var found bool
	for _, p := range poss {
		if p.IsReldep && p.Reldep.Name == "foo" && p.Reldep.EVR == "1.0-1" {
			found = true
		}
	}
	if !found {
		t.Errorf("Parse(foo >= 1.0-1) = %+v, expected a reldep possibility", poss)
	}
}

func TestParseNoDuplicates(t *testing.T) {
	poss := Parse("foo")
	seen := make(map[Possibility]bool)
	for _, p := range poss {
		if seen[p] {
			t.Fatalf("Parse produced a duplicate possibility: %+v", p)
		}
		seen[p] = true
	}
}
