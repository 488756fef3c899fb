// Package query implements the Query engine (spec §4.2/C5): composable,
// lazy, set-algebra filter pipelines over solvables. Grounded in the
// teacher's satisfy.go (checkProject: a pipeline of independent
// satisfiability checks folded into one accept/reject decision) and
// solver.go's selection bookkeeping, re-themed from "does this atom
// satisfy active dependencies" to "does this solvable satisfy this
// filter."
package query

import "github.com/rpmsack/rpmsack/internal/reldep"

// Keyname enumerates the filterable solvable attributes (spec §4.2 table).
type Keyname int

const (
	NAME Keyname = iota
	ARCH
	SUMMARY
	DESCRIPTION
	URL
	EVR
	VERSION
	RELEASE
	EPOCH
	LOCATION
	SOURCERPM
	NEVRA
	REPONAME
	FILE
	PKG
	OBSOLETES
	REQUIRES
	PROVIDES
	CONFLICTS
	ENHANCES
	RECOMMENDS
	SUGGESTS
	SUPPLEMENTS
	ADVISORY
	ADVISORYBUG
	ADVISORYCVE
	ADVISORYKIND
	ADVISORYSEVERITY
	ALL
)

// MatchType is the runtime discriminant every match in a Filter shares
// (spec §3 invariant: "match_type is uniform within a filter's matches").
type MatchType int

const (
	MatchString MatchType = iota
	MatchNumber
	MatchReldep
	MatchPackageset
)

// reldepKeynames is the set of keynames whose matches are Reldeps (spec
// §4.2 table row "reldep keynames").
var reldepKeynames = map[Keyname]bool{
	REQUIRES: true, PROVIDES: true, CONFLICTS: true, OBSOLETES: true,
	ENHANCES: true, RECOMMENDS: true, SUGGESTS: true, SUPPLEMENTS: true,
}

var advisoryKeynames = map[Keyname]bool{
	ADVISORY: true, ADVISORYBUG: true, ADVISORYCVE: true,
	ADVISORYKIND: true, ADVISORYSEVERITY: true,
}

var stringScalarKeynames = map[Keyname]bool{
	NAME: true, ARCH: true, SUMMARY: true, URL: true, DESCRIPTION: true, FILE: true,
}

// validateFilter enforces the spec §4.2 filter-validity table, returning
// an error if the (keyname, cmp_type, match_type) triple is disallowed.
func validateFilter(k Keyname, cmp reldep.CmpFlag, mt MatchType) error {
	bare := cmp &^ (reldep.ICASE | reldep.NOT)

	switch {
	case stringScalarKeynames[k]:
		if mt != MatchString {
			return errBadQuery("keyname %v requires a string match", k)
		}
		if bare&^(reldep.EQ|reldep.SUBSTR|reldep.GLOB) != 0 {
			return errBadQuery("keyname %v allows only EQ|SUBSTR|GLOB", k)
		}
	case k == LOCATION || k == SOURCERPM:
		if mt != MatchString || bare != reldep.EQ {
			return errBadQuery("keyname %v allows only EQ on a string", k)
		}
	case k == EPOCH:
		if mt != MatchNumber || bare&^(reldep.EQ|reldep.GT|reldep.LT) != 0 {
			return errBadQuery("EPOCH allows only EQ|GT|LT on a number")
		}
	case k == PKG || (k == OBSOLETES && mt == MatchPackageset):
		if mt != MatchPackageset || bare&^(reldep.EQ|reldep.NEQ) != 0 {
			return errBadQuery("keyname %v as a packageset allows only EQ|NEQ", k)
		}
	case reldepKeynames[k]:
		if mt == MatchReldep {
			if bare != reldep.EQ {
				return errBadQuery("keyname %v with a reldep match allows only EQ", k)
			}
		} else if mt == MatchString {
			if bare&^reldep.GLOB != 0 {
				return errBadQuery("keyname %v with a string match allows only GLOB", k)
			}
		} else {
			return errBadQuery("keyname %v requires a reldep or string match", k)
		}
	case advisoryKeynames[k]:
		if mt != MatchString || bare != reldep.EQ {
			return errBadQuery("advisory keyname %v allows only EQ on a string", k)
		}
	case k == NEVRA:
		if mt != MatchString || bare&^(reldep.EQ|reldep.GLOB) != 0 {
			return errBadQuery("NEVRA allows only EQ|GLOB")
		}
	case k == EVR:
		if mt != MatchString || bare&^(reldep.EQ|reldep.GT|reldep.LT) != 0 {
			return errBadQuery("EVR allows only EQ|GT|LT")
		}
	case k == VERSION || k == RELEASE:
		if mt != MatchString || bare&^(reldep.EQ|reldep.GT|reldep.LT|reldep.GLOB) != 0 {
			return errBadQuery("%v allows only EQ|GT|LT|GLOB", k)
		}
	case k == REPONAME:
		if mt != MatchString || bare != reldep.EQ {
			return errBadQuery("REPONAME allows only EQ")
		}
	case k == ALL:
		if mt != MatchNumber || bare != reldep.EQ {
			return errBadQuery("ALL allows only EQ with a sentinel number")
		}
	default:
		return errBadQuery("unknown keyname %v", k)
	}
	return nil
}
