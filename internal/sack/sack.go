// Package sack implements the Sack (spec §4.1/C2): the package universe
// built from installed-system metadata plus loaded repository archives,
// indexed for fast lookup. Structurally grounded in the teacher's
// SourceManager (source_manager.go): a long-lived owner of cached state
// that mutating operations (load_repo, add_excludes/includes) invalidate
// lazily, and that a caller must serialize access to (spec §5: "No two
// operations on the same sack may execute concurrently").
package sack

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sdboyer/constext"

	"github.com/rpmsack/rpmsack/internal/pkgset"
	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/reldep"
	"github.com/rpmsack/rpmsack/internal/rpmerr"
	"github.com/rpmsack/rpmsack/internal/rpmlog"
)

// recognisedArches is the set of arch values Sack.New accepts, standing in
// for the real pool's architecture-compatibility table.
var recognisedArches = map[string]bool{
	"x86_64": true, "i686": true, "aarch64": true, "ppc64le": true,
	"s390x": true, "armv7hl": true, "noarch": true,
}

// Options configures Sack.New, mirroring the "named parameters" sack
// constructor contract in spec §6 (cachedir, arch, rootdir, make_cache_dir,
// logfile, pkgcls, pkginitval).
type Options struct {
	MakeCacheDir bool
	Logfile      string
	Logger       *rpmlog.Logger
	// Pool lets a host supply its own Pool (e.g. a libsolv/hawkey-backed
	// one); nil selects pool.NewMemPool(), the library's reference
	// adapter (spec §9 "Custom package wrapping").
	Pool pool.Pool
	// WrapPackage is the "pkgcls"/"pkginitval" hook (spec §9): a function
	// invoked whenever the sack hands a package id across the API
	// boundary, letting a host wrap ids in a richer record.
	WrapPackage func(pool.Id) interface{}
}

// Sack owns the pool, the set of loaded repositories, the excludes/includes
// packagesets, the install-only policy, and the cached considered bitmap
// (spec §3 "Sack").
type Sack struct {
	cachedir, arch, rootdir string
	log                     *rpmlog.Logger
	wrapPackage             func(pool.Id) interface{}

	pool  pool.Pool
	mem   *pool.MemPool // non-nil only when pool.Pool == *pool.MemPool; used for Add paths
	repos map[string]*Repository

	excludes *pkgset.Set
	includes *pkgset.Set

	installonlyNames []string
	installonlyLimit int

	consideredDirty bool
	considered      *pkgset.Set

	runningKernel   pool.Id
	runningKernelOK bool
}

// New constructs a Sack rooted at rootdir, indexing packages for arch, with
// cachedir used for on-disk metadata caches (spec §4.1 Sack.new).
func New(cachedir, arch, rootdir string, opts Options) (*Sack, error) {
	if arch == "" || !recognisedArches[arch] {
		return nil, rpmerr.New(rpmerr.InvalidArchitecture, "unrecognised arch %q", arch)
	}

	log := opts.Logger
	if log == nil {
		if opts.Logfile != "" {
			var err error
			log, err = rpmlog.NewFile(opts.Logfile)
			if err != nil {
				return nil, errors.Wrap(err, "sack: opening logfile")
			}
		} else {
			log = rpmlog.NewDiscard()
		}
	}

	if opts.MakeCacheDir && cachedir != "" {
		if err := os.MkdirAll(cachedir, 0o755); err != nil {
			return nil, rpmerr.New(rpmerr.FileInvalid, "cachedir %q: %v", cachedir, err)
		}
	}

	mp := opts.Pool
	var mem *pool.MemPool
	if mp == nil {
		m := pool.NewMemPool()
		mp, mem = m, m
	} else if m, ok := mp.(*pool.MemPool); ok {
		mem = m
	}

	s := &Sack{
		cachedir: cachedir,
		arch:     arch,
		rootdir:  rootdir,
		log:      log,
		wrapPackage: opts.WrapPackage,
		pool:     mp,
		mem:      mem,
		repos:    make(map[string]*Repository),
		excludes: pkgset.New(),
		includes: pkgset.New(),
		consideredDirty: true,
	}
	return s, nil
}

// Pool exposes the underlying capability set, e.g. for Query to read
// solvables.
func (s *Sack) Pool() pool.Pool { return s.pool }

// Arch returns the sack's configured architecture.
func (s *Sack) Arch() string { return s.arch }

// SetInstallonly configures the list of install-only package names (spec
// §4.1 "Install-only name"), e.g. {"kernel", "kernel-core"}.
func (s *Sack) SetInstallonly(names []string) {
	s.installonlyNames = append([]string(nil), names...)
}

// SetInstallonlyLimit sets the maximum number of concurrently installed
// versions for install-only names. 0 disables the policy (spec §4.1).
func (s *Sack) SetInstallonlyLimit(n int) { s.installonlyLimit = n }

// InstallonlyNames returns the configured install-only names.
func (s *Sack) InstallonlyNames() []string { return append([]string(nil), s.installonlyNames...) }

// InstallonlyLimit returns the configured limit, or 0 if disabled.
func (s *Sack) InstallonlyLimit() int { return s.installonlyLimit }

// AddExcludes accumulates packages to exclude from the considered set,
// invalidating the considered cache (spec §4.1).
func (s *Sack) AddExcludes(set *pkgset.Set) {
	s.excludes.UnionInPlace(set)
	s.consideredDirty = true
}

// AddIncludes accumulates the (only) packages to include, invalidating the
// considered cache.
func (s *Sack) AddIncludes(set *pkgset.Set) {
	s.includes.UnionInPlace(set)
	s.consideredDirty = true
}

// RepoEnabled toggles a loaded repository's enabled flag, invalidating the
// considered cache since ForRepo-scoped queries depend on it.
func (s *Sack) RepoEnabled(name string, enabled bool) error {
	r, ok := s.repos[name]
	if !ok {
		return rpmerr.New(rpmerr.FileNotFound, "no such repo %q", name)
	}
	r.Enabled = enabled
	s.consideredDirty = true
	return nil
}

// LoadSystemRepo registers the distinguished @System repo from a
// pre-parsed list of installed solvables. Metadata parsing itself is an
// external concern (spec §1): the caller is expected to have already
// turned rpmdb records into pool.Solvable values.
func (s *Sack) LoadSystemRepo(pkgs []*pool.Solvable) error {
	if s.mem == nil {
		return rpmerr.New(rpmerr.InternalError, "LoadSystemRepo requires the in-memory pool adapter")
	}
	s.repos[SystemRepoName] = &Repository{Name: SystemRepoName, Enabled: true}
	for _, p := range pkgs {
		p.RepoName = SystemRepoName
		s.mem.Add(p)
	}
	s.consideredDirty = true
	s.runningKernelOK = false
	return nil
}

// LoadRepo loads a remote repository's metadata (already parsed into
// Solvables by the caller) under repo.Name. ctx is composed via
// sdboyer/constext with context.Background(), so no internal deadline is
// added; the load is refused only if ctx's own deadline has already passed
// when LoadRepo is called, and a cancellation after that point is not
// observed.
func (s *Sack) LoadRepo(ctx context.Context, repo Repository, pkgs []*pool.Solvable) error {
	if s.mem == nil {
		return rpmerr.New(rpmerr.InternalError, "LoadRepo requires the in-memory pool adapter")
	}
	cctx, cancel := constext.Cons(ctx, context.Background())
	defer cancel()

	deadline, hasDeadline := cctx.Deadline()
	if hasDeadline && time.Now().After(deadline) {
		return errors.Wrap(cctx.Err(), "sack: load_repo deadline exceeded")
	}

	if repo.Name == "" || repo.Name == SystemRepoName {
		return rpmerr.New(rpmerr.FileInvalid, "invalid repo name %q", repo.Name)
	}
	rc := repo
	s.repos[rc.Name] = &rc
	for _, p := range pkgs {
		p.RepoName = rc.Name
		s.mem.Add(p)
	}
	s.consideredDirty = true
	return nil
}

// Repos returns the currently loaded repositories.
func (s *Sack) Repos() []*Repository {
	out := make([]*Repository, 0, len(s.repos))
	for _, r := range s.repos {
		out = append(out, r)
	}
	return out
}

// EvrCmp implements spec's evr_cmp: total order over EVR strings.
func (s *Sack) EvrCmp(a, b string) int { return reldep.CompareEVR(a, b) }

// KnowsOpts configures Knows (spec §4.1 knows()).
type KnowsOpts struct {
	NameOnly bool
	ICase    bool
	Glob     bool
}

// Knows is a cheap existence probe: 0 unknown, 1 known as a package name,
// 2 known only as a provider (spec §4.1 knows()).
func (s *Sack) Knows(name, version string, opts KnowsOpts) int {
	if name == "" {
		return 0
	}
	considered := s.Considered()
	found := 0
	for _, id := range s.pool.ForPkgSolvables() {
		if !considered.Contains(pkgset.Id(id)) {
			continue
		}
		sv, ok := s.pool.Id2Solvable(id)
		if !ok {
			continue
		}
		if nameMatches(sv.Name, name, opts) {
			if version == "" || reldep.CompareEVR(sv.Version, version) == 0 {
				return 1
			}
			found = 1
		}
		if !opts.NameOnly {
			for _, pr := range sv.Provides {
				if pr.Name == name {
					if found == 0 {
						found = 2
					}
				}
			}
		}
	}
	return found
}

func nameMatches(candidate, want string, opts KnowsOpts) bool {
	c, w := candidate, want
	if opts.ICase {
		c, w = strings.ToLower(c), strings.ToLower(w)
	}
	if opts.Glob {
		ok, _ := globMatch(w, c)
		return ok
	}
	return c == w
}

// globMatch is a tiny shell-glob matcher (*, ?) used by Knows (the Query
// engine keeps its own copy in internal/query), since no glob library appears anywhere in the
// pack (see DESIGN.md) — this is intentionally the one stdlib-only corner.
func globMatch(pattern, s string) (bool, error) {
	return matchGlob(pattern, s), nil
}

func matchGlob(pattern, s string) bool {
	return matchGlobAt(pattern, s)
}

func matchGlobAt(p, s string) bool {
	if p == "" {
		return s == ""
	}
	switch p[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if matchGlobAt(p[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return matchGlobAt(p[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return matchGlobAt(p[1:], s[1:])
	}
}

// RunningKernel heuristically identifies the currently-booted kernel
// package among installed packages by matching installonly kernel-ish
// names against uname-style release strings (spec §4.1 running_kernel()).
func (s *Sack) RunningKernel(unameRelease string) (pool.Id, bool) {
	if s.runningKernelOK {
		return s.runningKernel, s.runningKernel != pool.NoId
	}
	s.runningKernelOK = true
	for _, id := range s.pool.ForRepo(SystemRepoName) {
		sv, ok := s.pool.Id2Solvable(id)
		if !ok {
			continue
		}
		if sv.Name != "kernel" && sv.Name != "kernel-core" {
			continue
		}
		if unameRelease == "" || strings.Contains(unameRelease, sv.Version+"-"+sv.Release) {
			s.runningKernel = id
			return id, true
		}
	}
	return pool.NoId, false
}

// RecomputeConsidered lazily (re)computes the considered bitmap per spec
// §4.1: "considered = (all_packages − excludes) ∩ (includes-or-all)". It
// is idempotent: a call when nothing is dirty is a no-op.
func (s *Sack) RecomputeConsidered() {
	if !s.consideredDirty {
		return
	}
	all := pkgset.FromIds()
	for _, id := range s.pool.ForPkgSolvables() {
		all.Add(pkgset.Id(id))
	}

	considered := all
	if !s.excludes.IsEmpty() {
		considered = considered.Difference(s.excludes)
	}
	if !s.includes.IsEmpty() {
		considered = considered.Intersection(s.includes)
	}
	s.considered = considered
	s.consideredDirty = false
}

// Considered returns the effective subset of the sack after excludes and
// includes have been applied, recomputing first if stale.
func (s *Sack) Considered() *pkgset.Set {
	s.RecomputeConsidered()
	return s.considered
}

// WrapPackage invokes the host's pkgcls hook, if any, else returns id.
func (s *Sack) WrapPackage(id pool.Id) interface{} {
	if s.wrapPackage == nil {
		return id
	}
	return s.wrapPackage(id)
}

// Logger exposes the sack's injected logger to cooperating subsystems
// (Query, Goal, txn) so none of them needs its own global sink.
func (s *Sack) Logger() *rpmlog.Logger { return s.log }

func (s *Sack) String() string {
	return fmt.Sprintf("Sack{arch=%s, repos=%d}", s.arch, len(s.repos))
}
