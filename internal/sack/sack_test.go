package sack

import (
	"context"
	"testing"

	"github.com/rpmsack/rpmsack/internal/pkgset"
	"github.com/rpmsack/rpmsack/internal/pool"
)

func TestNewRejectsUnknownArch(t *testing.T) {
	if _, err := New("", "made-up-arch", "/", Options{}); err == nil {
		t.Fatal("expected error for unrecognised arch")
	}
}

func TestLoadSystemRepoAndRepos(t *testing.T) {
	sk, err := New("", "x86_64", "/", Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = sk.LoadSystemRepo([]*pool.Solvable{{Name: "glibc", EVR: "1-1"}})
	if err != nil {
		t.Fatalf("LoadSystemRepo: %v", err)
	}

	repos := sk.Repos()
	if len(repos) != 1 || repos[0].Name != SystemRepoName {
		t.Fatalf("Repos() = %v, want [@System]", repos)
	}

	ids := sk.Pool().ForRepo(SystemRepoName)
	if len(ids) != 1 {
		t.Fatalf("ForRepo(@System) = %v, want 1 entry", ids)
	}
}

func TestLoadRepoRejectsSystemName(t *testing.T) {
	sk, _ := New("", "x86_64", "/", Options{})
	err := sk.LoadRepo(context.Background(), Repository{Name: SystemRepoName}, nil)
	if err == nil {
		t.Fatal("expected error loading a repo named @System")
	}
}

func TestConsideredAppliesExcludesAndIncludes(t *testing.T) {
	sk, _ := New("", "x86_64", "/", Options{})
	mp := sk.Pool().(*pool.MemPool)
	a := mp.Add(&pool.Solvable{Name: "a"})
	b := mp.Add(&pool.Solvable{Name: "b"})

	considered := sk.Considered()
	if considered.Len() != 2 {
		t.Fatalf("Considered() before excludes = %d, want 2", considered.Len())
	}

	sk.AddExcludes(pkgset.FromIds(pkgset.Id(a)))
	considered = sk.Considered()
	if considered.Len() != 1 || considered.Contains(pkgset.Id(a)) {
		t.Fatalf("Considered() after excluding a = %v, want only b", considered.Ids())
	}

	sk.AddIncludes(pkgset.FromIds(pkgset.Id(b)))
	considered = sk.Considered()
	if considered.Len() != 1 || !considered.Contains(pkgset.Id(b)) {
		t.Fatalf("Considered() after including only b = %v, want only b", considered.Ids())
	}
}

func TestKnows(t *testing.T) {
	sk, _ := New("", "x86_64", "/", Options{})
	mp := sk.Pool().(*pool.MemPool)
	mp.Add(&pool.Solvable{Name: "foo", Version: "1.0"})

	if got := sk.Knows("foo", "", KnowsOpts{}); got != 1 {
		t.Errorf("Knows(foo) = %d, want 1", got)
	}
	if got := sk.Knows("nope", "", KnowsOpts{}); got != 0 {
		t.Errorf("Knows(nope) = %d, want 0", got)
	}
	if got := sk.Knows("FOO", "", KnowsOpts{ICase: true}); got != 1 {
		t.Errorf("Knows(FOO, icase) = %d, want 1", got)
	}
}

func TestEvrCmp(t *testing.T) {
	sk, _ := New("", "x86_64", "/", Options{})
	if sk.EvrCmp("1-1", "1-1") != 0 {
		t.Error("expected equal EVRs to compare 0")
	}
}
