package reldep

import (
	"fmt"
	"regexp"
	"strings"
)

// CmpFlag is the comparison-type bitmask shared by Reldep relations and
// Query filters (spec §3, Filter.cmp_type).
type CmpFlag uint16

const (
	EQ CmpFlag = 1 << iota
	GT
	LT
	NEQ
	SUBSTR
	GLOB
	ICASE
	NOT
)

func (f CmpFlag) String() string {
	var parts []string
	for flag, name := range map[CmpFlag]string{
		EQ: "EQ", GT: "GT", LT: "LT", NEQ: "NEQ",
		SUBSTR: "SUBSTR", GLOB: "GLOB", ICASE: "ICASE", NOT: "NOT",
	} {
		if f&flag != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// Has reports whether flag is set.
func (f CmpFlag) Has(flag CmpFlag) bool { return f&flag != 0 }

// Reldep is a parsed "name [OP evr]" relational dependency expression
// (spec §3 "Reldep"). An empty EVR with Flags==0 denotes a bare name
// dependency ("requires: foo").
type Reldep struct {
	Name  string
	Flags CmpFlag // subset of {EQ, GT, LT} when EVR != "", else 0
	EVR   string
}

func (r Reldep) String() string {
	if r.EVR == "" {
		return r.Name
	}
	return fmt.Sprintf("%s %s %s", r.Name, opString(r.Flags), r.EVR)
}

func opString(f CmpFlag) string {
	switch {
	case f == GE():
		return ">="
	case f == LE():
		return "<="
	case f == EQ:
		return "="
	case f == GT:
		return ">"
	case f == LT:
		return "<"
	default:
		return "="
	}
}

// GE and LE are the composite flags for ">=" and "<=", kept as functions
// rather than package-level composite constants. Compare a relation against
// them with ==: Has(GE()) is true when either GT or EQ alone is set.
func GE() CmpFlag { return GT | EQ }
func LE() CmpFlag { return LT | EQ }

var reldepRe = regexp.MustCompile(`^\s*(\S+)\s*(?:(>=|<=|=|>|<)\s*(\S+))?\s*$`)

// Parse parses a string like "foo >= 1.2-3" or a bare "foo" into a Reldep.
// Grounded in the teacher's NewSemverConstraint-style string-to-structured
// parse (constraints.go), re-themed to RPM's relational operators.
func Parse(s string) (Reldep, error) {
	m := reldepRe.FindStringSubmatch(s)
	if m == nil {
		return Reldep{}, fmt.Errorf("reldep: cannot parse %q", s)
	}
	rd := Reldep{Name: m[1]}
	if m[2] != "" {
		rd.EVR = m[3]
		switch m[2] {
		case ">=":
			rd.Flags = GE()
		case "<=":
			rd.Flags = LE()
		case "=":
			rd.Flags = EQ
		case ">":
			rd.Flags = GT
		case "<":
			rd.Flags = LT
		}
	}
	return rd, nil
}

// Matches reports whether a candidate package whose name is pkgName and EVR
// is pkgEVR satisfies this Reldep, i.e. is a valid "provider" of it. A bare
// name-only Reldep matches any EVR of the same name.
func (r Reldep) Matches(pkgName, pkgEVR string) bool {
	if r.Name != pkgName {
		return false
	}
	if r.EVR == "" {
		return true
	}
	c := CompareEVR(pkgEVR, r.EVR)
	switch {
	case r.Flags == GE():
		return c >= 0
	case r.Flags == LE():
		return c <= 0
	case r.Flags == EQ:
		return c == 0
	case r.Flags == GT:
		return c > 0
	case r.Flags == LT:
		return c < 0
	default:
		return false
	}
}

// Intersects reports whether r and other — both reldeps on the same
// dependency name — admit at least one EVR in common: rpm's
// "rangesOverlap" semantics behind the `pool_match_dep` capability spec §6
// lists, which spec §4.2 calls "dep-matches" ("any entry dep-matches any
// match reldep"). An unversioned side (a bare name dependency, or a match
// reldep with no EVR) is an existence check with no range to narrow, so it
// always overlaps.
func (r Reldep) Intersects(other Reldep) bool {
	if r.Name != other.Name {
		return false
	}
	if r.Flags == 0 || other.Flags == 0 || r.EVR == "" || other.EVR == "" {
		return true
	}
	switch sense := CompareEVR(r.EVR, other.EVR); {
	case sense < 0:
		return r.Flags.Has(GT) || other.Flags.Has(LT)
	case sense > 0:
		return r.Flags.Has(LT) || other.Flags.Has(GT)
	default:
		return (r.Flags.Has(EQ) && other.Flags.Has(EQ)) ||
			(r.Flags.Has(GT) && other.Flags.Has(GT)) ||
			(r.Flags.Has(LT) && other.Flags.Has(LT))
	}
}

// List is an ordered, owning list of Reldeps (spec §3: "Lists of reldeps
// are ordered, owning").
type List []Reldep

func (l List) String() string {
	parts := make([]string, len(l))
	for i, r := range l {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}

// Constraint is a structured limitation on admissible EVRs, shaped like the
// teacher's Constraint interface (constraints.go) but over RPM EVR strings
// rather than semver.Version.
type Constraint interface {
	fmt.Stringer
	Matches(evr string) bool
}

// reldepConstraint adapts a single Reldep into a Constraint.
type reldepConstraint struct{ rd Reldep }

// NewConstraint builds a Constraint from a Reldep's comparison flags/EVR,
// ignoring the Name field (constraints operate purely on EVR ordering).
func NewConstraint(rd Reldep) Constraint { return reldepConstraint{rd: rd} }

func (c reldepConstraint) String() string { return c.rd.String() }

func (c reldepConstraint) Matches(evr string) bool {
	if c.rd.EVR == "" {
		return true
	}
	cmp := CompareEVR(evr, c.rd.EVR)
	switch {
	case c.rd.Flags == GE():
		return cmp >= 0
	case c.rd.Flags == LE():
		return cmp <= 0
	case c.rd.Flags == EQ:
		return cmp == 0
	case c.rd.Flags == GT:
		return cmp > 0
	case c.rd.Flags == LT:
		return cmp < 0
	default:
		return false
	}
}

// Any is the always-true Constraint, used as the zero value when a
// dependency carries no version restriction (mirrors the teacher's `any`
// sentinel constraint in constraints.go).
type anyConstraint struct{}

func (anyConstraint) String() string    { return "any" }
func (anyConstraint) Matches(string) bool { return true }

// Any is the shared always-matching Constraint instance.
var Any Constraint = anyConstraint{}
