package goal

import (
	"fmt"
	"sort"

	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/reldep"
)

// SimpleSolver is the library's reference Solver (spec §6): a greedy,
// deterministic stand-in for the real SAT-style search the teacher's
// solver.go performs via backtracking + conflict-driven clause learning
// over a VersionQueue per project. Where solver.go explores the version
// lattice with unsat-core-guided backjumping, SimpleSolver instead walks
// the dependency graph once, breadth-first, honoring explicit job
// decisions first and then propagating Requires via WhatProvides exactly
// as solver.go's bestConstraint/selectVersion propagates ProjectConstraints
// drawn from a dependency's manifest. It has no backtracking and no
// conflict detection: when two install jobs name the same package (not an
// install-only name), the later job replaces the earlier one, and a
// Requires is treated as met by any installed package of that name,
// whatever its EVR. The only Problems it reports are an erase of a
// protected package and a Requires that nothing provides. This is the
// trade-off a caller accepts by using the reference solver instead of
// supplying its own (spec §9 "Solver is pluggable").
//
// The working "installed" set is modeled per-id, not per-name: a regular
// package name has at most one installed id at a time (install/upgrade/
// downgrade/reinstall replace it), but an install-only name (spec §4.1
// "install-only names...multiple concurrent versions") can have any
// number of ids installed simultaneously, which is exactly what
// Goal.enforceInstallonlyLimit relies on to erase one excess kernel
// version while another stays installed.
type SimpleSolver struct {
	p pool.Pool

	installonly map[string]bool

	installedIDs    map[pool.Id]bool
	installedByName map[string][]pool.Id
	decisions       map[pool.Id]ReasonRuleClass
}

// NewSimpleSolver builds a solver bound to p, with installed scanned from
// the @System repo ids the caller passes in (mirrors solver.go's use of a
// lockfile's already-selected versions to seed its search). installonlyNames
// names the packages allowed multiple concurrent installed versions (spec
// §4.1 "install-only names"); without it the solver cannot tell two
// installed kernel versions apart from a genuine conflict.
func NewSimpleSolver(p pool.Pool, installed []pool.Id, installonlyNames []string) *SimpleSolver {
	s := &SimpleSolver{
		p:               p,
		installonly:     make(map[string]bool, len(installonlyNames)),
		installedIDs:    make(map[pool.Id]bool, len(installed)),
		installedByName: make(map[string][]pool.Id),
		decisions:       make(map[pool.Id]ReasonRuleClass),
	}
	for _, n := range installonlyNames {
		s.installonly[n] = true
	}
	for _, id := range installed {
		if sv, ok := p.Id2Solvable(id); ok {
			s.installedIDs[id] = true
			s.installedByName[sv.Name] = append(s.installedByName[sv.Name], id)
		}
	}
	return s
}

func (s *SimpleSolver) Decisions() map[pool.Id]ReasonRuleClass { return s.decisions }

// Solve implements Solver (spec §4.4 "the staged job queue is handed to
// the solver").
func (s *SimpleSolver) Solve(jobs []Job, protected map[pool.Id]bool) (*Transaction, []Problem, error) {
	// installedIDs/byName track the working "currently installed" set,
	// mutated as jobs are applied, mirroring solver.go's sel.constraint()
	// accumulation across a single solve pass.
	installedIDs := make(map[pool.Id]bool, len(s.installedIDs))
	for id := range s.installedIDs {
		installedIDs[id] = true
	}
	byName := make(map[string][]pool.Id, len(s.installedByName))
	for n, ids := range s.installedByName {
		byName[n] = append([]pool.Id(nil), ids...)
	}

	var steps []Step
	var problems []Problem
	queue := make([]pool.Id, 0) // ids whose Requires still need propagation

	addStep := func(id pool.Id, t StepType, replaces pool.Id) {
		steps = append(steps, Step{Id: id, Type: t, Replaces: replaces})
	}

	removeFromName := func(name string, id pool.Id) {
		ids := byName[name]
		for i, x := range ids {
			if x == id {
				byName[name] = append(ids[:i], ids[i+1:]...)
				return
			}
		}
	}

	markInstall := func(id pool.Id, rule ReasonRuleClass) error {
		sv, ok := s.p.Id2Solvable(id)
		if !ok {
			return fmt.Errorf("goal: unknown solvable id %d", id)
		}
		if installedIDs[id] {
			s.decisions[id] = rule
			return nil
		}
		if s.installonly[sv.Name] {
			// Always a fresh concurrent install, never a replace: an
			// install-only name's existing versions are left alone here
			// and only trimmed later by Goal.enforceInstallonlyLimit.
			addStep(id, StepInstall, pool.NoId)
			installedIDs[id] = true
			byName[sv.Name] = append(byName[sv.Name], id)
			s.decisions[id] = rule
			queue = append(queue, id)
			return nil
		}
		if existing := byName[sv.Name]; len(existing) > 0 {
			prev := existing[0]
			c := reldep.CompareEVR(sv.EVR, mustEVR(s.p, prev))
			switch {
			case c > 0:
				addStep(prev, StepUpgraded, id)
				addStep(id, StepUpgrade, prev)
			case c < 0:
				addStep(prev, StepDowngraded, id)
				addStep(id, StepDowngrade, prev)
			default:
				addStep(id, StepReinstall, prev)
			}
			delete(installedIDs, prev)
			removeFromName(sv.Name, prev)
		} else {
			addStep(id, StepInstall, pool.NoId)
		}
		installedIDs[id] = true
		byName[sv.Name] = append(byName[sv.Name], id)
		s.decisions[id] = rule
		queue = append(queue, id)
		return nil
	}

	markErase := func(id pool.Id) error {
		sv, ok := s.p.Id2Solvable(id)
		if !ok {
			return fmt.Errorf("goal: unknown solvable id %d", id)
		}
		if protected[id] {
			problems = append(problems, Problem{Text: fmt.Sprintf("problem: cannot remove protected package %s", sv.NEVRA())})
			return nil
		}
		if installedIDs[id] {
			addStep(id, StepErase, pool.NoId)
			delete(installedIDs, id)
			removeFromName(sv.Name, id)
		}
		return nil
	}

	// Explicit job decisions, in staged order (spec §4.4 "jobs are applied
	// in staging order"). Snapshot the id list before iterating so a
	// mid-loop install/erase (which mutates installedIDs) can't perturb
	// the set being walked.
	for _, j := range jobs {
		switch {
		case j.Flags&JobInstall != 0 && j.Flags&JobSolvableAll != 0:
			// update_all / distupgrade_all: every installed id upgraded to
			// its best available candidate.
			for _, id := range sortedIds(installedIDs) {
				cands := s.p.WhatUpgrades(id)
				if len(cands) == 0 {
					continue
				}
				best := bestByEVR(s.p, cands)
				if err := markInstall(best, RuleJob); err != nil {
					return nil, nil, err
				}
			}

		case j.Flags&JobInstall != 0:
			if err := markInstall(j.Operand, RuleJob); err != nil {
				return nil, nil, err
			}

		case j.Flags&JobErase != 0 && j.Flags&JobSolvableAll != 0:
			for _, id := range sortedIds(installedIDs) {
				if err := markErase(id); err != nil {
					return nil, nil, err
				}
			}

		case j.Flags&JobErase != 0:
			if err := markErase(j.Operand); err != nil {
				return nil, nil, err
			}

		case j.Flags&JobVerify != 0:
			// No-op: verification doesn't alter the transaction.
		}
	}

	// Dependency propagation: BFS over Requires via WhatProvides, exactly
	// the shape of solver.go's main loop popping one unresolved
	// ProjectConstraint at a time and selecting a version for it.
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		sv, ok := s.p.Id2Solvable(id)
		if !ok {
			continue
		}
		for _, req := range sv.Requires {
			satisfied := false
			for _, cid := range byName[req.Name] {
				if installedIDs[cid] {
					satisfied = true
					break
				}
			}
			if satisfied {
				continue
			}
			cands := s.p.WhatProvides(req)
			if len(cands) == 0 {
				problems = append(problems, Problem{Text: fmt.Sprintf("nothing provides %s needed by %s", req.String(), sv.NEVRA())})
				continue
			}
			best := bestByEVR(s.p, cands)
			if err := markInstall(best, RuleDep); err != nil {
				return nil, nil, err
			}
		}
	}

	return &Transaction{Steps: steps}, problems, nil
}

func mustEVR(p pool.Pool, id pool.Id) string {
	sv, ok := p.Id2Solvable(id)
	if !ok {
		return ""
	}
	return sv.EVR
}

func bestByEVR(p pool.Pool, ids []pool.Id) pool.Id {
	best := ids[0]
	bestEVR := mustEVR(p, best)
	for _, id := range ids[1:] {
		if e := mustEVR(p, id); reldep.CompareEVR(e, bestEVR) > 0 {
			best, bestEVR = id, e
		}
	}
	return best
}

func sortedIds(m map[pool.Id]bool) []pool.Id {
	out := make([]pool.Id, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
