package query

import (
	"fmt"

	"github.com/rpmsack/rpmsack/internal/pkgset"
	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/reldep"
)

// evalFilter computes the per-filter bitmap m for a single staged Filter,
// OR-combining across its matches (spec §4.2 "Per-keyname producers").
func (q *Query) evalFilter(f Filter) (*pkgset.Set, error) {
	p := q.sack.Pool()
	m := pkgset.New()

	switch f.Keyname {
	case NAME, ARCH, SUMMARY, DESCRIPTION, URL:
		for _, id := range p.ForPkgSolvables() {
			sv, ok := p.Id2Solvable(id)
			if !ok {
				continue
			}
			if strMatches(f.CmpType, stringAttr(sv, f.Keyname), f.Strings) {
				m.Add(pkgset.Id(id))
			}
		}

	case FILE:
		for _, id := range p.ForPkgSolvables() {
			sv, ok := p.Id2Solvable(id)
			if !ok {
				continue
			}
			for _, file := range sv.Files {
				if strMatches(f.CmpType, file, f.Strings) {
					m.Add(pkgset.Id(id))
					break
				}
			}
		}

	case EPOCH:
		for _, id := range p.ForPkgSolvables() {
			sv, ok := p.Id2Solvable(id)
			if !ok {
				continue
			}
			e := int64(0)
			if sv.Epoch != nil {
				e = *sv.Epoch
			}
			for _, n := range f.Numbers {
				if numMatches(f.CmpType, e, n) {
					m.Add(pkgset.Id(id))
					break
				}
			}
		}

	case EVR:
		for _, id := range p.ForPkgSolvables() {
			sv, ok := p.Id2Solvable(id)
			if !ok {
				continue
			}
			for _, match := range f.Strings {
				c := reldep.CompareEVR(sv.EVR, match)
				if cmpMatches(f.CmpType, c) {
					m.Add(pkgset.Id(id))
					break
				}
			}
		}

	case VERSION:
		for _, id := range p.ForPkgSolvables() {
			sv, ok := p.Id2Solvable(id)
			if !ok {
				continue
			}
			for _, match := range f.Strings {
				if f.CmpType.Has(reldep.GLOB) {
					if ok, _ := globMatchExported(match, sv.Version); ok {
						m.Add(pkgset.Id(id))
						break
					}
					continue
				}
				// Anchor on the release field per spec: compare "v-0"
				// against "match-0".
				c := reldep.CompareEVR(sv.Version+"-0", match+"-0")
				if cmpMatches(f.CmpType, c) {
					m.Add(pkgset.Id(id))
					break
				}
			}
		}

	case RELEASE:
		for _, id := range p.ForPkgSolvables() {
			sv, ok := p.Id2Solvable(id)
			if !ok {
				continue
			}
			for _, match := range f.Strings {
				if f.CmpType.Has(reldep.GLOB) {
					if ok, _ := globMatchExported(match, sv.Release); ok {
						m.Add(pkgset.Id(id))
						break
					}
					continue
				}
				c := reldep.CompareEVR("0-"+sv.Release, "0-"+match)
				if cmpMatches(f.CmpType, c) {
					m.Add(pkgset.Id(id))
					break
				}
			}
		}

	case SOURCERPM:
		for _, id := range p.ForPkgSolvables() {
			sv, ok := p.Id2Solvable(id)
			if !ok {
				continue
			}
			for _, match := range f.Strings {
				if sv.SourceRPM == match {
					m.Add(pkgset.Id(id))
					break
				}
			}
		}

	case LOCATION:
		for _, id := range p.ForPkgSolvables() {
			sv, ok := p.Id2Solvable(id)
			if !ok {
				continue
			}
			for _, match := range f.Strings {
				if sv.Location == match {
					m.Add(pkgset.Id(id))
					break
				}
			}
		}

	case NEVRA:
		for _, id := range p.ForPkgSolvables() {
			sv, ok := p.Id2Solvable(id)
			if !ok {
				continue
			}
			n := sv.NEVRA()
			for _, match := range f.Strings {
				if f.CmpType.Has(reldep.GLOB) {
					if ok, _ := globMatchExported(match, n); ok {
						m.Add(pkgset.Id(id))
						break
					}
				} else if n == match {
					m.Add(pkgset.Id(id))
					break
				}
			}
		}

	case REPONAME:
		matched := make(map[string]bool, len(f.Strings))
		for _, s := range f.Strings {
			matched[s] = true
		}
		for _, id := range p.ForPkgSolvables() {
			sv, ok := p.Id2Solvable(id)
			if ok && matched[sv.RepoName] {
				m.Add(pkgset.Id(id))
			}
		}

	case PKG:
		if f.Packageset != nil {
			m = f.Packageset.Clone()
		}

	case OBSOLETES:
		if f.MatchType == MatchPackageset {
			target := f.Packageset
			for _, id := range p.ForPkgSolvables() {
				sv, ok := p.Id2Solvable(id)
				if !ok {
					continue
				}
				for _, ob := range sv.Obsoletes {
					for _, provID := range p.WhatProvides(ob) {
						if target.Contains(pkgset.Id(provID)) {
							m.Add(pkgset.Id(id))
						}
					}
				}
			}
		} else {
			m = evalReldepKey(p, f.Keyname, f.Reldeps, f.Strings, f.CmpType)
		}

	case PROVIDES:
		for _, rd := range f.Reldeps {
			for _, id := range p.WhatProvides(rd) {
				m.Add(pkgset.Id(id))
			}
		}
		if f.MatchType == MatchString {
			m.UnionInPlace(evalReldepKey(p, f.Keyname, nil, f.Strings, f.CmpType))
		}

	case REQUIRES, CONFLICTS, ENHANCES, RECOMMENDS, SUGGESTS, SUPPLEMENTS:
		m = evalReldepKey(p, f.Keyname, f.Reldeps, f.Strings, f.CmpType)

	case ADVISORY, ADVISORYBUG, ADVISORYCVE, ADVISORYKIND, ADVISORYSEVERITY:
		m = evalAdvisory(p, f)

	case ALL:
		// spec: EQ with sentinel -1 always produces empty.

	default:
		return nil, fmt.Errorf("query: unhandled keyname %v", f.Keyname)
	}

	return m, nil
}

func stringAttr(sv *pool.Solvable, k Keyname) string {
	switch k {
	case NAME:
		return sv.Name
	case ARCH:
		return sv.Arch
	case SUMMARY:
		return sv.Summary
	case DESCRIPTION:
		return sv.Description
	case URL:
		return sv.URL
	default:
		return ""
	}
}

func numMatches(cmp reldep.CmpFlag, have, want int64) bool {
	switch {
	case cmp.Has(reldep.EQ) && have == want:
		return true
	case cmp.Has(reldep.GT) && have > want:
		return true
	case cmp.Has(reldep.LT) && have < want:
		return true
	}
	return false
}

func cmpMatches(cmp reldep.CmpFlag, c int) bool {
	switch {
	case cmp.Has(reldep.EQ) && c == 0:
		return true
	case cmp.Has(reldep.GT) && c > 0:
		return true
	case cmp.Has(reldep.LT) && c < 0:
		return true
	}
	return false
}

// relationOf returns the per-solvable reldep.List for a relational
// keyname.
func relationOf(sv *pool.Solvable, k Keyname) reldep.List {
	switch k {
	case REQUIRES:
		return sv.Requires
	case PROVIDES:
		return sv.Provides
	case CONFLICTS:
		return sv.Conflicts
	case OBSOLETES:
		return sv.Obsoletes
	case ENHANCES:
		return sv.Enhances
	case RECOMMENDS:
		return sv.Recommends
	case SUGGESTS:
		return sv.Suggests
	case SUPPLEMENTS:
		return sv.Supplements
	default:
		return nil
	}
}

// evalReldepKey implements the generic "for each package in result, does
// any entry in its relation dep-match any match reldep" producer (spec
// §4.2), plus the GLOB-over-string-to-reldep-list variant. "dep-matches"
// is EVR-range intersection (reldep.Reldep.Intersects), not a bare name
// compare: a REQUIRES filter for "foo >= 2.0" does not match a package
// whose actual requirement is "foo < 1.0", since those ranges do not overlap.
func evalReldepKey(p pool.Pool, k Keyname, matches []reldep.Reldep, globs []string, cmp reldep.CmpFlag) *pkgset.Set {
	m := pkgset.New()
	for _, id := range p.ForPkgSolvables() {
		sv, ok := p.Id2Solvable(id)
		if !ok {
			continue
		}
		rel := relationOf(sv, k)
		for _, rd := range matches {
			for _, entry := range rel {
				if entry.Intersects(rd) {
					m.Add(pkgset.Id(id))
					break
				}
			}
		}
		for _, g := range globs {
			for _, entry := range rel {
				if ok, _ := globMatchExported(g, entry.String()); ok {
					m.Add(pkgset.Id(id))
					break
				}
			}
		}
	}
	return m
}

// evalAdvisory iterates advisories attached to solvables, matching on the
// requested sub-key, and dedupes collected NEVRAs across matches before
// marking solvables (spec §9 Open Question: "the spec treats each filter
// as OR-of-matches and dedupes the collected NEVRAs", correcting the
// source's failure to reset the collected list between matches).
func evalAdvisory(p pool.Pool, f Filter) *pkgset.Set {
	collected := make(map[string]bool)
	for _, id := range p.ForPkgSolvables() {
		sv, ok := p.Id2Solvable(id)
		if !ok {
			continue
		}
		for _, adv := range sv.Advisories {
			if advisoryMatches(adv, f) {
				for _, n := range adv.PkgNEVRAs {
					collected[n] = true
				}
			}
		}
	}

	m := pkgset.New()
	for _, id := range p.ForPkgSolvables() {
		sv, ok := p.Id2Solvable(id)
		if ok && collected[sv.NEVRA()] {
			m.Add(pkgset.Id(id))
		}
	}
	return m
}

func advisoryMatches(adv pool.Advisory, f Filter) bool {
	for _, match := range f.Strings {
		switch f.Keyname {
		case ADVISORY:
			if adv.ID == match {
				return true
			}
		case ADVISORYBUG:
			for _, b := range adv.Bugs {
				if b == match {
					return true
				}
			}
		case ADVISORYCVE:
			for _, c := range adv.CVEs {
				if c == match {
					return true
				}
			}
		case ADVISORYKIND:
			if adv.Kind == match {
				return true
			}
		case ADVISORYSEVERITY:
			if adv.Severity == match {
				return true
			}
		}
	}
	return false
}
