package goal

import (
	"testing"

	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/reldep"
	"github.com/rpmsack/rpmsack/internal/sack"
	"github.com/rpmsack/rpmsack/internal/selector"
)

func mustSack(t *testing.T) *sack.Sack {
	t.Helper()
	sk, err := sack.New("", "x86_64", "/", sack.Options{})
	if err != nil {
		t.Fatalf("sack.New: %v", err)
	}
	return sk
}

func addPkg(t *testing.T, sk *sack.Sack, repo, name, evr string, requires ...string) pool.Id {
	t.Helper()
	mp, ok := sk.Pool().(*pool.MemPool)
	if !ok {
		t.Fatalf("expected MemPool")
	}
	var reqs reldep.List
	for _, r := range requires {
		reqs = append(reqs, reldep.Reldep{Name: r})
	}
	sv := &pool.Solvable{Name: name, EVR: evr, Version: evr, RepoName: repo, Requires: reqs,
		Provides: reldep.List{{Name: name, EVR: evr, Flags: reldep.EQ}}}
	return mp.Add(sv)
}

func TestGoalInstallByIdPullsDependency(t *testing.T) {
	sk := mustSack(t)
	sk.Repos() // no-op sanity

	mp := sk.Pool().(*pool.MemPool)
	_ = mp
	libID := addPkg(t, sk, "base", "libfoo", "1-1")
	appID := addPkg(t, sk, "base", "app", "1-1", "libfoo")

	g := New(sk, nil)
	g.InstallPackage(appID)
	if err := g.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	installs := g.ListInstalls()
	got := map[pool.Id]bool{}
	for _, id := range installs {
		got[id] = true
	}
	if !got[appID] {
		t.Errorf("expected app %d among installs, got %v", appID, installs)
	}
	if !got[libID] {
		t.Errorf("expected libfoo %d pulled in as a dependency, got %v", libID, installs)
	}

	if reason, ok := g.Reason(appID); !ok || reason != RuleJob {
		t.Errorf("app reason = %v,%v, want RuleJob", reason, ok)
	}
	if reason, ok := g.Reason(libID); !ok || reason != RuleDep {
		t.Errorf("libfoo reason = %v,%v, want RuleDep", reason, ok)
	}
}

func TestGoalEraseProtected(t *testing.T) {
	sk := mustSack(t)
	id := addPkg(t, sk, sack.SystemRepoName, "glibc", "1-1")

	g := New(sk, nil)
	g.Protect(id)

	sel := selector.New().SetName("glibc")
	if err := g.Erase(sel, false); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	err := g.Run()
	if err == nil {
		t.Fatalf("expected NoSolution error removing a protected package")
	}
	if g.CountProblems() != 1 {
		t.Fatalf("CountProblems = %d, want 1", g.CountProblems())
	}
	msg, err := g.DescribeProblem(0)
	if err != nil || msg == "" {
		t.Fatalf("DescribeProblem(0) = %q, %v", msg, err)
	}
}

func TestGoalRunningKernelAutoProtected(t *testing.T) {
	sk := mustSack(t)
	kernelID := addPkg(t, sk, sack.SystemRepoName, "kernel", "1-1")

	// No g.Protect call: the running kernel must be wired in by New itself
	// (spec §4.4 "the running kernel (if any) is always added to protected").
	g := New(sk, nil)

	sel := selector.New().SetName("kernel")
	if err := g.Erase(sel, false); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if err := g.Run(); err == nil {
		t.Fatalf("expected NoSolution error erasing the auto-protected running kernel")
	}
	if g.CountProblems() != 1 {
		t.Fatalf("CountProblems = %d, want 1", g.CountProblems())
	}
	msg, err := g.DescribeProblem(0)
	if err != nil || msg == "" {
		t.Fatalf("DescribeProblem(0) = %q, %v", msg, err)
	}
	if len(g.ListErasures()) != 0 {
		t.Errorf("ListErasures = %v, want empty after a rejected protected removal", g.ListErasures())
	}
	_ = kernelID
}

func TestGoalInstallonlyLimitErasesOldestKeepsRunningKernel(t *testing.T) {
	sk := mustSack(t)

	// kernel-2 is added first, so Sack.RunningKernel("")'s first-match
	// heuristic (internal/sack/sack.go) picks it as the running kernel,
	// even though it is not the oldest installed version.
	runningID := addPkg(t, sk, sack.SystemRepoName, "kernel", "2-1")
	oldID := addPkg(t, sk, sack.SystemRepoName, "kernel", "1-1")
	newID := addPkg(t, sk, "updates", "kernel", "3-1")

	sk.SetInstallonly([]string{"kernel"})
	sk.SetInstallonlyLimit(2)

	g := New(sk, nil)
	g.InstallPackage(newID)
	if err := g.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	installs := map[pool.Id]bool{}
	for _, id := range g.ListInstalls() {
		installs[id] = true
	}
	erasures := map[pool.Id]bool{}
	for _, id := range g.ListErasures() {
		erasures[id] = true
	}

	if !installs[newID] {
		t.Errorf("expected kernel-3 (%d) among installs, got %v", newID, g.ListInstalls())
	}
	if !erasures[oldID] {
		t.Errorf("expected kernel-1 (%d) erased as the oldest excess install-only version, got %v", oldID, g.ListErasures())
	}
	if erasures[runningID] {
		t.Errorf("running kernel (%d) must never be erased, got erasures %v", runningID, g.ListErasures())
	}

	// Install-only-limit invariant (spec §8): exactly one erase (the
	// oldest excess version) and one install (the newly staged version),
	// so at most `limit` kernel providers remain installed afterward.
	if len(g.ListErasures()) != 1 {
		t.Errorf("ListErasures = %v, want exactly 1 erase", g.ListErasures())
	}
	if len(g.ListInstalls()) != 1 {
		t.Errorf("ListInstalls = %v, want exactly 1 install", g.ListInstalls())
	}
}

func TestGoalUpgradeAll(t *testing.T) {
	sk := mustSack(t)
	oldID := addPkg(t, sk, sack.SystemRepoName, "pkg", "1-1")
	newID := addPkg(t, sk, "updates", "pkg", "2-1")

	g := New(sk, nil)
	g.UpgradeAll()
	if err := g.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ups := g.ListUpgrades()
	if len(ups) != 1 || ups[0] != newID {
		t.Errorf("ListUpgrades = %v, want [%d]", ups, newID)
	}
	_ = oldID
}
