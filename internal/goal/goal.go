package goal

import (
	"github.com/rpmsack/rpmsack/internal/pkgset"
	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/query"
	"github.com/rpmsack/rpmsack/internal/reldep"
	"github.com/rpmsack/rpmsack/internal/rpmerr"
	"github.com/rpmsack/rpmsack/internal/sack"
	"github.com/rpmsack/rpmsack/internal/selector"
)

// action is one staged user request (spec §4.4 "Staging"), kept distinct
// from Job because a single staged action (e.g. install a Selector that
// matches several arches) may expand into more than one job, and because
// staging needs to remember enough to re-describe itself for
// describe_problem().
type action struct {
	install, upgrade, erase, distupgrade, downgrade, upgradeAll, distupgradeAll bool
	ids                                                                        []pool.Id
	sel                                                                        *selector.Selector
	allowUninstall, forceBest, multiversion, cleanDeps                         bool
}

// Goal stages install/upgrade/erase/distupgrade requests against a Sack,
// then drives Solver.Solve to produce a Transaction (spec §3/§4.4
// "Goal"). Grounded in the teacher's solver.go: Goal.run plays the role
// of Solver.Solve there, staged actions play the role of the root
// manifest's declared dependencies, and Goal's resulting Transaction
// plays the role of a resolved lock.Lock.
type Goal struct {
	sk     *sack.Sack
	solver Solver

	actions   []action
	protected map[pool.Id]bool

	txn      *Transaction
	problems []Problem
}

// New stages against sk. A nil solver selects NewSimpleSolver seeded from
// the sack's currently installed (@System) ids and its configured
// install-only names, the same "supply your own or get the reference one"
// contract pool.Pool/sack.Options.Pool use. The running kernel, if the
// sack can identify one, is always added to protected (spec §4.4
// "Protected packages": "the running kernel (if any) is always added to
// protected") — no caller opt-in required.
func New(sk *sack.Sack, solver Solver) *Goal {
	if solver == nil {
		solver = NewSimpleSolver(sk.Pool(), sk.Pool().ForRepo(sack.SystemRepoName), sk.InstallonlyNames())
	}
	g := &Goal{sk: sk, solver: solver, protected: make(map[pool.Id]bool)}
	if id, ok := sk.RunningKernel(""); ok {
		g.Protect(id)
	}
	return g
}

// Protect marks ids as protected: the solver may never stage their
// removal (spec §4.4 "Protected-removal check"). The running kernel and
// any package a host names (e.g. the package providing "kernel" or
// "glibc") are typical inputs.
func (g *Goal) Protect(ids ...pool.Id) {
	for _, id := range ids {
		g.protected[id] = true
	}
}

// Install stages an install-by-selector job (spec §4.4 "install(selector)").
func (g *Goal) Install(sel *selector.Selector) error {
	if !sel.Valid() {
		return rpmerr.New(rpmerr.BadSelector, "install: selector addresses nothing")
	}
	g.actions = append(g.actions, action{install: true, sel: sel})
	return nil
}

// InstallPackage stages an install-by-id job, the direct analog used once
// a caller already has a concrete solvable (e.g. from a Query.Run()).
func (g *Goal) InstallPackage(id pool.Id) {
	g.actions = append(g.actions, action{install: true, ids: []pool.Id{id}})
}

// Upgrade stages an upgrade-by-selector job (spec §4.4 "upgrade(selector)").
func (g *Goal) Upgrade(sel *selector.Selector) error {
	if !sel.Valid() {
		return rpmerr.New(rpmerr.BadSelector, "upgrade: selector addresses nothing")
	}
	g.actions = append(g.actions, action{upgrade: true, sel: sel})
	return nil
}

// UpgradeAll stages "update all installed packages to their best
// available candidate" (spec §4.4 "upgrade_all()").
func (g *Goal) UpgradeAll() { g.actions = append(g.actions, action{upgradeAll: true}) }

// Erase stages an erase-by-selector job (spec §4.4 "erase(selector)").
// cleanDeps, when true, asks the solver to also remove dependencies this
// removal orphans (spec's CLEANDEPS flag); SimpleSolver does not
// implement orphan sweeping and records the flag only for a pluggable
// solver to honor.
func (g *Goal) Erase(sel *selector.Selector, cleanDeps bool) error {
	if !sel.Valid() {
		return rpmerr.New(rpmerr.BadSelector, "erase: selector addresses nothing")
	}
	g.actions = append(g.actions, action{erase: true, sel: sel, cleanDeps: cleanDeps})
	return nil
}

// Distupgrade stages a distro-synchronization job for a selector, which
// unlike Upgrade also permits downgrades to match the target repo exactly
// (spec §4.4 "distupgrade(selector)").
func (g *Goal) Distupgrade(sel *selector.Selector) error {
	if !sel.Valid() {
		return rpmerr.New(rpmerr.BadSelector, "distupgrade: selector addresses nothing")
	}
	g.actions = append(g.actions, action{distupgrade: true, sel: sel})
	return nil
}

// DistupgradeAll stages a job across every installed package (spec §4.4
// "distupgrade_all()"). It builds the same job as UpgradeAll: each installed
// package moves to its highest-EVR candidate, and no package is downgraded.
func (g *Goal) DistupgradeAll() { g.actions = append(g.actions, action{distupgradeAll: true}) }

// buildJobs translates staged actions into the solver's flat Job queue
// (spec §4.4 "Job construction": "a staged Selector action is translated
// via Selector.ToQuery ... each matched id becomes one job"), honoring
// the install-only-limit re-solve described below in Run.
func (g *Goal) buildJobs() ([]Job, error) {
	var jobs []Job
	for _, a := range g.actions {
		switch {
		case a.upgradeAll, a.distupgradeAll:
			jobs = append(jobs, Job{Flags: JobInstall | JobSolvableAll})

		case len(a.ids) > 0:
			for _, id := range a.ids {
				jobs = append(jobs, Job{Flags: jobFlagsFor(a), Operand: id})
			}

		case a.sel != nil:
			ids, err := resolveSelectorIds(g.sk, a)
			if err != nil {
				return nil, err
			}
			for _, id := range ids {
				jobs = append(jobs, Job{Flags: jobFlagsFor(a), Operand: id})
			}
		}
	}
	return jobs, nil
}

func jobFlagsFor(a action) JobFlag {
	var f JobFlag
	switch {
	case a.install, a.upgrade, a.distupgrade:
		f |= JobInstall
	case a.erase:
		f |= JobErase
	}
	if a.cleanDeps {
		f |= JobCleanDeps
	}
	if a.allowUninstall {
		f |= JobAllowUninstall
	}
	if a.forceBest {
		f |= JobForceBest
	}
	if a.multiversion {
		f |= JobMultiversion
	}
	return f
}

// resolveSelectorIds runs the action's selector query and, for erase,
// narrows the match to installed packages only (spec §4.4: "erase only
// ever targets @System packages; a selector matching both an installed
// and an available package resolves to the installed one for erase").
// For upgrade it keeps only the highest-EVR match per name, so an upgrade
// never stages an older version than one already matched.
func resolveSelectorIds(sk *sack.Sack, a action) ([]pool.Id, error) {
	q, err := a.sel.ToQuery(sk)
	if err != nil {
		return nil, err
	}
	if a.erase {
		if err := q.Filter(query.REPONAME, reldep.EQ, sack.SystemRepoName); err != nil {
			return nil, err
		}
	}
	if a.upgrade {
		q.FilterLatest(true)
	}
	return q.Run()
}

// Run constructs the job queue, invokes the solver, enforces the
// protected-removal check, and enforces the install-only limit with a
// single re-solve, storing the result for the List*/Reason/Problem
// accessors below (spec §4.4 "run()").
func (g *Goal) Run() error {
	jobs, err := g.buildJobs()
	if err != nil {
		return err
	}

	txn, problems, err := g.solver.Solve(jobs, g.protected)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		g.problems = problems
		return rpmerr.ErrNoSolution
	}

	txn, err = g.enforceInstallonlyLimit(txn)
	if err != nil {
		return err
	}

	removedProtected := ""
	for _, st := range txn.Steps {
		if (st.Type == StepErase || st.Type == StepObsoleted) && g.protected[st.Id] {
			if sv, ok := g.sk.Pool().Id2Solvable(st.Id); ok {
				removedProtected += " " + sv.NEVRA()
			}
		}
	}
	if removedProtected != "" {
		g.problems = []Problem{{Text: "would remove protected:" + removedProtected}}
		return rpmerr.ErrRemovalOfProtectedPkg
	}

	g.txn = txn
	g.problems = nil
	return nil
}

// enforceInstallonlyLimit implements spec §4.4 "Install-only limit
// enforcement": after a solve, for each install-only name with more
// installed-or-staged versions than the sack's configured limit, stage
// erase jobs for the oldest excess versions and re-solve exactly once
// (never recursively), so a limit that can't be satisfied in one more
// pass surfaces as a Problem instead of looping.
func (g *Goal) enforceInstallonlyLimit(txn *Transaction) (*Transaction, error) {
	limit := g.sk.InstallonlyLimit()
	if limit <= 0 {
		return txn, nil
	}
	names := g.sk.InstallonlyNames()
	if len(names) == 0 {
		return txn, nil
	}
	nameSet := make(map[string]bool, len(names))
	for _, n := range names {
		nameSet[n] = true
	}

	byName := make(map[string][]pool.Id)
	for _, st := range txn.Steps {
		if st.Type != StepInstall && st.Type != StepReinstall {
			continue
		}
		sv, ok := g.sk.Pool().Id2Solvable(st.Id)
		if !ok || !nameSet[sv.Name] {
			continue
		}
		byName[sv.Name] = append(byName[sv.Name], st.Id)
	}
	for _, id := range g.sk.Pool().ForRepo(sack.SystemRepoName) {
		sv, ok := g.sk.Pool().Id2Solvable(id)
		if ok && nameSet[sv.Name] {
			byName[sv.Name] = append(byName[sv.Name], id)
		}
	}

	var extraErase []Job
	for _, ids := range byName {
		if len(ids) <= limit {
			continue
		}
		sortByEVRAscending(g.sk.Pool(), ids)
		for _, id := range ids[:len(ids)-limit] {
			extraErase = append(extraErase, Job{Flags: JobErase, Operand: id})
		}
	}
	if len(extraErase) == 0 {
		return txn, nil
	}

	jobs, err := g.buildJobs()
	if err != nil {
		return nil, err
	}
	jobs = append(jobs, extraErase...)
	txn2, problems, err := g.solver.Solve(jobs, g.protected)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		g.problems = problems
		return nil, rpmerr.ErrNoSolution
	}
	return txn2, nil
}

func sortByEVRAscending(p pool.Pool, ids []pool.Id) {
	less := func(i, j int) bool {
		si, _ := p.Id2Solvable(ids[i])
		sj, _ := p.Id2Solvable(ids[j])
		return reldep.CompareEVR(si.EVR, sj.EVR) < 0
	}
	insertionSort(ids, less)
}

func insertionSort(ids []pool.Id, less func(i, j int) bool) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

// CountProblems returns the number of problems from the last failed Run
// (spec §4.4 "count_problems()").
func (g *Goal) CountProblems() int { return len(g.problems) }

// DescribeProblem renders the i'th problem's text (spec §4.4
// "describe_problem(i)").
func (g *Goal) DescribeProblem(i int) (string, error) {
	if i < 0 || i >= len(g.problems) {
		return "", rpmerr.New(rpmerr.InternalError, "describe_problem: index %d out of range [0,%d)", i, len(g.problems))
	}
	return g.problems[i].Text, nil
}

func (g *Goal) stepsOfType(types ...StepType) []pool.Id {
	want := make(map[StepType]bool, len(types))
	for _, t := range types {
		want[t] = true
	}
	var out []pool.Id
	if g.txn == nil {
		return out
	}
	for _, st := range g.txn.Steps {
		if want[st.Type] {
			out = append(out, st.Id)
		}
	}
	return out
}

// ListInstalls returns packages the transaction newly installs (spec
// §4.4 "list_installs()").
func (g *Goal) ListInstalls() []pool.Id { return g.stepsOfType(StepInstall) }

// ListErasures returns packages the transaction removes (spec §4.4
// "list_erasures()").
func (g *Goal) ListErasures() []pool.Id { return g.stepsOfType(StepErase) }

// ListUpgrades returns the new versions installed as upgrades (spec §4.4
// "list_upgrades()").
func (g *Goal) ListUpgrades() []pool.Id { return g.stepsOfType(StepUpgrade) }

// ListDowngrades returns the new versions installed as downgrades (spec
// §4.4 "list_downgrades()").
func (g *Goal) ListDowngrades() []pool.Id { return g.stepsOfType(StepDowngrade) }

// ListReinstalls returns packages reinstalled at the same EVR (spec §4.4
// "list_reinstalls()").
func (g *Goal) ListReinstalls() []pool.Id { return g.stepsOfType(StepReinstall) }

// ListObsoleted returns packages removed because something else obsoletes
// them (spec §4.4 "list_obsoleted()"). SimpleSolver does not evaluate
// Obsoletes relations, so this always returns empty; a Solver that does
// should emit StepObsoleted steps for ListObsoleted to surface.
func (g *Goal) ListObsoleted() []pool.Id { return g.stepsOfType(StepObsoleted) }

// ListUnneeded returns packages the transaction leaves installed but that
// a clean-deps sweep would remove (spec §4.4 "list_unneeded()"). Left
// empty for the same reason as ListObsoleted: orphan detection belongs to
// a Solver that tracks CLEANDEPS, which SimpleSolver does not.
func (g *Goal) ListUnneeded() []pool.Id { return nil }

// ObsoletedByPackage returns the id, if any, that obsoletes erasedID in
// the solved transaction (spec §4.4 "obsoleted_by_package(pkg)").
func (g *Goal) ObsoletedByPackage(erasedID pool.Id) (pool.Id, bool) {
	if g.txn == nil {
		return pool.NoId, false
	}
	for _, st := range g.txn.Steps {
		if st.Type == StepObsoleted && st.Id == erasedID {
			return st.Replaces, true
		}
	}
	return pool.NoId, false
}

// Reason reports why id is present in the solved transaction's installed
// set: RuleJob for a directly staged package, RuleDep for one pulled in
// to satisfy a Requires (spec §4.4 "Reason of a decision"). The second
// return is false if id wasn't a decision the solver recorded.
func (g *Goal) Reason(id pool.Id) (ReasonRuleClass, bool) {
	r, ok := g.solver.Decisions()[id]
	return r, ok
}

// Transaction exposes the last successful Run's result directly, for
// callers (e.g. the txn package) that need the full ordered step list
// rather than one of the typed List* views.
func (g *Goal) Transaction() *Transaction { return g.txn }

// packagesetOf turns a Goal listing into a pkgset.Set, e.g. for
// intersecting against a Query result. Nothing in this module calls it yet.
func packagesetOf(ids []pool.Id) *pkgset.Set {
	s := pkgset.New()
	for _, id := range ids {
		s.Add(pkgset.Id(id))
	}
	return s
}
