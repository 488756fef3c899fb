package txn

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rpmsack/rpmsack/internal/goal"
	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/reason"
	"github.com/rpmsack/rpmsack/internal/reldep"
	"github.com/rpmsack/rpmsack/internal/sack"
)

func mustSack(t *testing.T) *sack.Sack {
	t.Helper()
	sk, err := sack.New("", "x86_64", "/", sack.Options{})
	if err != nil {
		t.Fatalf("sack.New: %v", err)
	}
	return sk
}

func addPkg(t *testing.T, sk *sack.Sack, repo, name, evr string) pool.Id {
	t.Helper()
	mp := sk.Pool().(*pool.MemPool)
	return mp.Add(&pool.Solvable{Name: name, EVR: evr, Version: evr, RepoName: repo,
		Provides: reldep.List{{Name: name, EVR: evr, Flags: reldep.EQ}}})
}

func TestCommitMetadataOnlyInstall(t *testing.T) {
	sk := mustSack(t)
	appID := addPkg(t, sk, "base", "app", "1-1")

	g := goal.New(sk, nil)
	g.InstallPackage(appID)
	if err := g.Run(); err != nil {
		t.Fatalf("goal.Run: %v", err)
	}

	dir := t.TempDir()
	var phases []Phase
	d := New(sk, g, Options{
		Root:     dir,
		LockPath: filepath.Join(dir, "commit.lock"),
		Reasons:  reason.New(),
		Progress: func(p Phase, s ProgressState) { phases = append(phases, p) },
	})

	if err := d.Commit(context.Background()); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(phases) == 0 {
		t.Fatalf("expected progress callbacks")
	}
	if phases[0] != PhaseInstall {
		t.Errorf("first phase = %v, want PhaseInstall", phases[0])
	}
}

func TestCommitRequiresSolvedTransaction(t *testing.T) {
	sk := mustSack(t)
	g := goal.New(sk, nil)
	dir := t.TempDir()
	d := New(sk, g, Options{Root: dir, LockPath: filepath.Join(dir, "commit.lock")})

	if err := d.Commit(context.Background()); err == nil {
		t.Fatalf("expected error committing before Goal.Run")
	}
}

func TestCommitGPGRejectsUnverifiedPayload(t *testing.T) {
	sk := mustSack(t)
	mp := sk.Pool().(*pool.MemPool)
	appID := mp.Add(&pool.Solvable{Name: "app", EVR: "1-1", Version: "1-1", RepoName: "secure"})
	sk.LoadRepo(context.Background(), sack.Repository{Name: "secure", Enabled: true, GPGCheck: true}, nil)

	g := goal.New(sk, nil)
	g.InstallPackage(appID)
	if err := g.Run(); err != nil {
		t.Fatalf("goal.Run: %v", err)
	}

	dir := t.TempDir()
	d := New(sk, g, Options{
		Root:       dir,
		LockPath:   filepath.Join(dir, "commit.lock"),
		RequireGPG: true,
	})
	if err := d.Commit(context.Background()); err == nil {
		t.Fatalf("expected GPG verification failure")
	}
}
