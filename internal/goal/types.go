// Package goal implements the Goal/Transaction engine (spec §4.4/C8): the
// staging of user actions, job-queue construction, solver invocation,
// protected-package enforcement, install-only-limit enforcement, and
// result listing. Grounded in the teacher's solver.go (a CDCL-style
// constraint solver driven by a staged SolveParameters/job list) and
// selection.go/types.go (the atom/dependency bookkeeping a solve produces).
// The actual SAT-style search is an external collaborator per spec §1
// ("The SAT-style dependency solver itself ... accepts a job queue of
// (action-flag, operand-id) pairs and returns a transaction"); Solver
// below is that capability's Go interface, and SimpleSolver is the
// library's reference implementation, the same relationship MemPool has
// to Pool.
package goal

import "github.com/rpmsack/rpmsack/internal/pool"

// JobFlag is the solver-flag bitmask staged per job (spec §4.4 "Staging").
type JobFlag uint32

const (
	JobSolvable JobFlag = 1 << iota
	JobSolvableAll
	JobSolvableProvides
	JobInstall
	JobErase
	JobUpdate
	JobDistupgrade
	JobWeak
	JobCleanDeps
	JobMultiversion
	JobAllowUninstall
	JobVerify
	JobForceBest
)

// Job is one staged (flag, operand) pair (spec §3 "Goal...staging job
// queue").
type Job struct {
	Flags   JobFlag
	Operand pool.Id
	// ProvidesName carries the install-only / multiversion provides name
	// for JobSolvableProvides jobs, which don't address a specific id.
	ProvidesName string
}

// StepType enumerates a transaction step's kind (spec §3 "Transaction
// driver state" / §4.4 listing accessors).
type StepType int

const (
	StepInstall StepType = iota
	StepErase
	StepUpgrade
	StepUpgraded // replaced-by-an-upgrade
	StepDowngrade
	StepDowngraded
	StepReinstall
	StepObsoleted
	StepObsoletes
	StepCleanup
)

// Step is one entry in a solved Transaction.
type Step struct {
	Id   pool.Id
	Type StepType
	// Replaces links the two sides of a replacement, when applicable: on
	// StepUpgrade/StepDowngrade/StepReinstall it is the predecessor this
	// step's package replaces; on StepUpgraded/StepDowngraded/StepObsoleted
	// it is the package that replaces this one (used by
	// ObsoletedByPackage).
	Replaces pool.Id
}

// Transaction is the solver's ordered output (spec §3 "Sack" note: the
// solver "returns a transaction as an ordered list of (solvable-id,
// transaction-step-type) steps").
type Transaction struct {
	Steps []Step
}

// ReasonRuleClass records which solver rule produced a decision, used by
// Goal.Reason (spec §4.4 "Reason of a decision").
type ReasonRuleClass int

const (
	RuleJob ReasonRuleClass = iota
	RuleCleanDepsErase
	RuleWeakDep
	RuleDep
)

// Problem is a single human-readable solver failure (spec §4.4
// describe_problem()).
type Problem struct {
	Text string
}

// Solver is the external SAT-style dependency solver capability (spec
// §6). Solve receives the fully constructed job queue (after Goal.run's
// job-construction step) and the protected-package set, in case a solver
// implementation wants to bias search away from removing them, though
// Goal itself re-checks protection independently after the fact (spec
// §4.4 "Protected-removal check").
type Solver interface {
	Solve(jobs []Job, protected map[pool.Id]bool) (*Transaction, []Problem, error)
	// Decisions returns, for each installed id the solver decided to keep
	// or newly install, the ReasonRuleClass backing that decision (used
	// by Goal.Reason).
	Decisions() map[pool.Id]ReasonRuleClass
}
