package query

import (
	"testing"

	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/reldep"
	"github.com/rpmsack/rpmsack/internal/sack"
)

func mustSack(t *testing.T) (*sack.Sack, *pool.MemPool) {
	t.Helper()
	sk, err := sack.New("", "x86_64", "/", sack.Options{})
	if err != nil {
		t.Fatalf("sack.New: %v", err)
	}
	return sk, sk.Pool().(*pool.MemPool)
}

func TestFilterByNameEquals(t *testing.T) {
	sk, mp := mustSack(t)
	foo := mp.Add(&pool.Solvable{Name: "foo", EVR: "1-1"})
	mp.Add(&pool.Solvable{Name: "bar", EVR: "1-1"})

	q := New(sk, 0)
	if err := q.Filter(NAME, reldep.EQ, "foo"); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	ids, err := q.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ids) != 1 || ids[0] != foo {
		t.Errorf("Run() = %v, want [%d]", ids, foo)
	}
}

func TestFilterGlob(t *testing.T) {
	sk, mp := mustSack(t)
	mp.Add(&pool.Solvable{Name: "libfoo-devel", EVR: "1-1"})
	mp.Add(&pool.Solvable{Name: "bar", EVR: "1-1"})

	q := New(sk, 0)
	if err := q.Filter(NAME, reldep.GLOB, "libfoo-*"); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	ids, err := q.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("Run() = %v, want 1 match", ids)
	}
}

func TestFilterLatest(t *testing.T) {
	sk, mp := mustSack(t)
	mp.Add(&pool.Solvable{Name: "pkg", EVR: "1-1"})
	newer := mp.Add(&pool.Solvable{Name: "pkg", EVR: "2-1"})

	q := New(sk, 0)
	q.FilterLatest(true)
	ids, err := q.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ids) != 1 || ids[0] != newer {
		t.Errorf("Run() = %v, want [%d]", ids, newer)
	}
}

func TestFilterEmpty(t *testing.T) {
	sk, mp := mustSack(t)
	mp.Add(&pool.Solvable{Name: "pkg", EVR: "1-1"})

	q := New(sk, 0)
	q.FilterEmpty()
	ids, err := q.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("Run() = %v, want empty", ids)
	}
}

func TestQuerySetAlgebra(t *testing.T) {
	sk, mp := mustSack(t)
	foo := mp.Add(&pool.Solvable{Name: "foo", EVR: "1-1"})
	bar := mp.Add(&pool.Solvable{Name: "bar", EVR: "1-1"})

	q1 := New(sk, 0)
	q1.Filter(NAME, reldep.EQ, "foo")
	q2 := New(sk, 0)
	q2.Filter(NAME, reldep.EQ, "bar")

	u, err := q1.Union(q2)
	if err != nil {
		t.Fatalf("Union: %v", err)
	}
	ids, _ := u.Run()
	if len(ids) != 2 {
		t.Errorf("Union Run() = %v, want both %d and %d", ids, foo, bar)
	}
}

func TestRequiresFilter(t *testing.T) {
	sk, mp := mustSack(t)
	app := mp.Add(&pool.Solvable{Name: "app", EVR: "1-1", Requires: reldep.List{{Name: "libfoo"}}})
	mp.Add(&pool.Solvable{Name: "other", EVR: "1-1"})

	q := New(sk, 0)
	if err := q.Filter(REQUIRES, reldep.EQ, reldep.Reldep{Name: "libfoo"}); err != nil {
		t.Fatalf("Filter: %v", err)
	}
	ids, err := q.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ids) != 1 || ids[0] != app {
		t.Errorf("Run() = %v, want [%d]", ids, app)
	}
}
