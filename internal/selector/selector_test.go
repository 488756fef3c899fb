package selector

import (
	"testing"

	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/sack"
)

func TestSelectorValid(t *testing.T) {
	if New().Valid() {
		t.Error("empty selector should be invalid")
	}
	if !New().SetName("foo").Valid() {
		t.Error("name-set selector should be valid")
	}
	if !New().SetProvides("foo").Valid() {
		t.Error("provides-set selector should be valid")
	}
	if New().SetArch("x86_64").Valid() {
		t.Error("arch-only selector should not be valid")
	}
}

func TestSelectorResolve(t *testing.T) {
	sk, err := sack.New("", "x86_64", "/", sack.Options{})
	if err != nil {
		t.Fatalf("sack.New: %v", err)
	}
	mp := sk.Pool().(*pool.MemPool)
	foo := mp.Add(&pool.Solvable{Name: "foo", EVR: "1-1", Arch: "x86_64"})
	mp.Add(&pool.Solvable{Name: "foo", EVR: "1-1", Arch: "noarch"})

	sel := New().SetName("foo").SetArch("x86_64")
	ids, err := sel.Resolve(sk)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(ids) != 1 || ids[0] != foo {
		t.Errorf("Resolve() = %v, want [%d]", ids, foo)
	}
}

func TestSelectorInvalidErrors(t *testing.T) {
	sk, _ := sack.New("", "x86_64", "/", sack.Options{})
	_, err := New().ToQuery(sk)
	if err == nil {
		t.Fatal("expected error for an empty selector")
	}
}
