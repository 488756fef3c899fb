package pool

import (
	"testing"

	"github.com/rpmsack/rpmsack/internal/reldep"
)

func TestMemPoolAddAndLookup(t *testing.T) {
	p := NewMemPool()
	id := p.Add(&Solvable{Name: "foo", EVR: "1-1", Version: "1", Release: "1", Arch: "x86_64", RepoName: "base"})

	sv, ok := p.Id2Solvable(id)
	if !ok || sv.Name != "foo" {
		t.Fatalf("Id2Solvable(%d) = %v, %v", id, sv, ok)
	}

	got, ok := p.Str2Id("foo")
	if !ok || got != id {
		t.Errorf("Str2Id(foo) = %v, %v, want %v, true", got, ok, id)
	}

	if _, ok := p.Id2Solvable(NoId); ok {
		t.Errorf("expected NoId to resolve to nothing")
	}
}

func TestMemPoolForRepoAndPkgSolvables(t *testing.T) {
	p := NewMemPool()
	a := p.Add(&Solvable{Name: "a", RepoName: "r1"})
	b := p.Add(&Solvable{Name: "b", RepoName: "r2"})

	all := p.ForPkgSolvables()
	if len(all) != 2 {
		t.Fatalf("ForPkgSolvables = %v, want 2 entries", all)
	}

	r1 := p.ForRepo("r1")
	if len(r1) != 1 || r1[0] != a {
		t.Errorf("ForRepo(r1) = %v, want [%d]", r1, a)
	}
	_ = b
}

func TestMemPoolWhatProvides(t *testing.T) {
	p := NewMemPool()
	libID := p.Add(&Solvable{Name: "libfoo", EVR: "1-1",
		Provides: reldep.List{{Name: "libfoo", EVR: "1-1", Flags: reldep.EQ}, {Name: "libfoo(x86-64)"}}})

	byName := p.WhatProvides(reldep.Reldep{Name: "libfoo"})
	if len(byName) != 1 || byName[0] != libID {
		t.Errorf("WhatProvides(libfoo) = %v, want [%d]", byName, libID)
	}

	byAlias := p.WhatProvides(reldep.Reldep{Name: "libfoo(x86-64)"})
	if len(byAlias) != 1 || byAlias[0] != libID {
		t.Errorf("WhatProvides(libfoo(x86-64)) = %v, want [%d]", byAlias, libID)
	}

	none := p.WhatProvides(reldep.Reldep{Name: "nothing-provides-this"})
	if len(none) != 0 {
		t.Errorf("WhatProvides(nothing) = %v, want empty", none)
	}
}

func TestMemPoolWhatUpgradesDowngrades(t *testing.T) {
	p := NewMemPool()
	old := p.Add(&Solvable{Name: "pkg", EVR: "1-1"})
	newer := p.Add(&Solvable{Name: "pkg", EVR: "2-1"})
	older := p.Add(&Solvable{Name: "pkg", EVR: "0-1"})

	ups := p.WhatUpgrades(old)
	if len(ups) != 1 || ups[0] != newer {
		t.Errorf("WhatUpgrades = %v, want [%d]", ups, newer)
	}

	downs := p.WhatDowngrades(old)
	if len(downs) != 1 || downs[0] != older {
		t.Errorf("WhatDowngrades = %v, want [%d]", downs, older)
	}
}

func TestMemPoolNamesWithPrefix(t *testing.T) {
	p := NewMemPool()
	p.Add(&Solvable{Name: "libfoo"})
	p.Add(&Solvable{Name: "libfoo-devel"})
	p.Add(&Solvable{Name: "bar"})

	names := p.NamesWithPrefix("libfoo")
	if len(names) != 2 {
		t.Errorf("NamesWithPrefix(libfoo) = %v, want 2 matches", names)
	}
}

func TestSolvableNEVRA(t *testing.T) {
	epoch := int64(1)
	sv := &Solvable{Name: "foo", Epoch: &epoch, Version: "1.2", Release: "3", Arch: "x86_64"}
	if got, want := sv.NEVRA(), "foo-1:1.2-3.x86_64"; got != want {
		t.Errorf("NEVRA() = %q, want %q", got, want)
	}
}
