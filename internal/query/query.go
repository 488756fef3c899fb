package query

import (
	"sort"
	"strings"

	"github.com/rpmsack/rpmsack/internal/pkgset"
	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/reldep"
	"github.com/rpmsack/rpmsack/internal/rpmerr"
	"github.com/rpmsack/rpmsack/internal/sack"
)

func errBadQuery(format string, args ...interface{}) error {
	return rpmerr.New(rpmerr.BadQuery, format, args...)
}

// Flags configures Query.New (spec §4.2 "flags may include IGNORE_EXCLUDES").
type Flags uint8

const (
	IgnoreExcludes Flags = 1 << iota
)

// Filter is one staged predicate (spec §3 "Query... an ordered list of
// filters").
type Filter struct {
	Keyname   Keyname
	CmpType   reldep.CmpFlag
	MatchType MatchType

	Strings    []string
	Numbers    []int64
	Reldeps    []reldep.Reldep
	Packageset *pkgset.Set
}

// Query owns a sack reference, staged filters, the applied result bitmap,
// and modifier flags (spec §3 "Query").
type Query struct {
	sack    *sack.Sack
	flags   Flags
	applied bool
	result  *pkgset.Set
	filters []Filter

	downgrades, downgradable bool
	updates, updatable       bool
	latest, latestPerArch    bool
}

// New creates a Query over s (spec §4.2 create()).
func New(s *sack.Sack, flags Flags) *Query {
	return &Query{sack: s, flags: flags}
}

// Filter appends a filter predicate. match must be a string, []string,
// int64, []int64, reldep.Reldep, []reldep.Reldep, or *pkgset.Set,
// consistent with the keyname's row in the validity table (spec §4.2);
// any other combination returns BadQuery.
func (q *Query) Filter(keyname Keyname, cmp reldep.CmpFlag, match interface{}) error {
	f := Filter{Keyname: keyname, CmpType: cmp}
	switch v := match.(type) {
	case string:
		f.MatchType, f.Strings = MatchString, []string{v}
	case []string:
		f.MatchType, f.Strings = MatchString, v
	case int64:
		f.MatchType, f.Numbers = MatchNumber, []int64{v}
	case int:
		f.MatchType, f.Numbers = MatchNumber, []int64{int64(v)}
	case []int64:
		f.MatchType, f.Numbers = MatchNumber, v
	case reldep.Reldep:
		f.MatchType, f.Reldeps = MatchReldep, []reldep.Reldep{v}
	case []reldep.Reldep:
		f.MatchType, f.Reldeps = MatchReldep, v
	case *pkgset.Set:
		f.MatchType, f.Packageset = MatchPackageset, v
	default:
		return errBadQuery("unsupported match value type %T", match)
	}

	if err := validateFilter(keyname, cmp, f.MatchType); err != nil {
		return err
	}

	q.filters = append(q.filters, f)
	q.applied = false
	return nil
}

// FilterEmpty forces an empty result regardless of other filters (spec
// §4.2 filter_empty()).
func (q *Query) FilterEmpty() {
	q.filters = append(q.filters, Filter{Keyname: ALL, CmpType: reldep.EQ, MatchType: MatchNumber, Numbers: []int64{-1}})
	q.applied = false
}

// FilterLatest and FilterLatestPerArch are mutually exclusive: setting one
// clears the other (spec §3 invariant).
func (q *Query) FilterLatest(v bool) {
	q.latest = v
	if v {
		q.latestPerArch = false
	}
}

func (q *Query) FilterLatestPerArch(v bool) {
	q.latestPerArch = v
	if v {
		q.latest = false
	}
}

func (q *Query) FilterUpgrades(v bool)    { q.updates = v }
func (q *Query) FilterUpgradable(v bool)  { q.updatable = v }
func (q *Query) FilterDowngrades(v bool)  { q.downgrades = v }
func (q *Query) FilterDowngradable(v bool) { q.downgradable = v }

// Clone deep-copies the query, including pending filters (spec §4.2
// clone()).
func (q *Query) Clone() *Query {
	nq := *q
	nq.filters = append([]Filter(nil), q.filters...)
	if q.result != nil {
		nq.result = q.result.Clone()
	}
	return &nq
}

// Apply evaluates all staged filters into the result bitmap (spec §4.2
// apply()). Idempotent, and clears the staged filter list afterward.
func (q *Query) Apply() error {
	if q.applied {
		return nil
	}

	result := pkgset.New()
	considered := q.sack.Considered()
	for _, id := range q.sack.Pool().ForPkgSolvables() {
		if q.flags&IgnoreExcludes != 0 || considered.Contains(pkgset.Id(id)) {
			result.Add(pkgset.Id(id))
		}
	}

	for _, f := range q.filters {
		m, err := q.evalFilter(f)
		if err != nil {
			return err
		}
		if f.CmpType&reldep.NOT != 0 {
			result.SubtractInPlace(m)
		} else {
			result.IntersectInPlace(m)
		}
	}

	q.applyModifiers(result)

	q.result = result
	q.applied = true
	q.filters = nil
	return nil
}

// applyModifiers runs the fixed-order modifier pipeline (spec §4.2 "applied
// in this fixed order after filters").
func (q *Query) applyModifiers(result *pkgset.Set) {
	p := q.sack.Pool()

	if q.downgradable {
		keep := pkgset.New()
		result.Each(func(id pkgset.Id) bool {
			if len(p.WhatDowngrades(pool.Id(id))) > 0 {
				keep.Add(id)
			}
			return true
		})
		*result = *keep
	}
	if q.downgrades {
		keep := pkgset.New()
		result.Each(func(id pkgset.Id) bool {
			sv, ok := p.Id2Solvable(pool.Id(id))
			if ok && sv.RepoName != sack.SystemRepoName {
				for _, instID := range p.ForRepo(sack.SystemRepoName) {
					for _, down := range p.WhatDowngrades(instID) {
						if down == pool.Id(id) {
							keep.Add(id)
						}
					}
				}
			}
			return true
		})
		*result = *keep
	}
	if q.updatable {
		keep := pkgset.New()
		result.Each(func(id pkgset.Id) bool {
			if len(p.WhatUpgrades(pool.Id(id))) > 0 {
				keep.Add(id)
			}
			return true
		})
		*result = *keep
	}
	if q.updates {
		keep := pkgset.New()
		result.Each(func(id pkgset.Id) bool {
			sv, ok := p.Id2Solvable(pool.Id(id))
			if ok && sv.RepoName != sack.SystemRepoName {
				for _, instID := range p.ForRepo(sack.SystemRepoName) {
					for _, up := range p.WhatUpgrades(instID) {
						if up == pool.Id(id) {
							keep.Add(id)
						}
					}
				}
			}
			return true
		})
		*result = *keep
	}

	if q.latest || q.latestPerArch {
		latestOnly(result, p, q.latestPerArch)
	}
}

// latestOnly partitions result by name (and by (name,arch) if perArch),
// keeping only the highest-EVR solvable per group, tie-broken by ascending
// solvable id (spec §4.2 item 5, and §9's Open Question resolving the
// "filter_latest_sortcmp" bug: tie-break by id ascending, keep the highest
// EVR after sort), so of two equal-EVR solvables the higher id is kept.
func latestOnly(result *pkgset.Set, p pool.Pool, perArch bool) {
	type key struct{ name, arch string }
	groups := make(map[key][]pool.Id)
	result.Each(func(id pkgset.Id) bool {
		sv, ok := p.Id2Solvable(pool.Id(id))
		if !ok {
			return true
		}
		k := key{name: sv.Name}
		if perArch {
			k.arch = sv.Arch
		}
		groups[k] = append(groups[k], pool.Id(id))
		return true
	})

	keep := pkgset.New()
	for _, ids := range groups {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		best := ids[0]
		bestEVR, _ := evrOf(p, best)
		for _, id := range ids[1:] {
			evr, _ := evrOf(p, id)
			if reldep.CompareEVR(evr, bestEVR) >= 0 {
				best, bestEVR = id, evr
			}
		}
		keep.Add(pkgset.Id(best))
	}
	*result = *keep
}

func evrOf(p pool.Pool, id pool.Id) (string, bool) {
	sv, ok := p.Id2Solvable(id)
	if !ok {
		return "", false
	}
	return sv.EVR, true
}

// Run materializes matching packages as solvable ids (spec §4.2 run()).
func (q *Query) Run() ([]pool.Id, error) {
	if err := q.Apply(); err != nil {
		return nil, err
	}
	ids := q.result.Ids()
	out := make([]pool.Id, len(ids))
	for i, id := range ids {
		out[i] = pool.Id(id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// RunSet materializes the result as a Packageset (spec §4.2 run_set()).
func (q *Query) RunSet() (*pkgset.Set, error) {
	if err := q.Apply(); err != nil {
		return nil, err
	}
	return q.result.Clone(), nil
}

// Union, Intersection, and Difference apply both sides first, then
// combine their result bitmaps; the receiver's bitmap is replaced, and
// q.applied remains true (spec §4.2 "Set-algebra between queries").
func (q *Query) Union(other *Query) (*Query, error) {
	return q.combine(other, (*pkgset.Set).Union)
}

func (q *Query) Intersection(other *Query) (*Query, error) {
	return q.combine(other, (*pkgset.Set).Intersection)
}

func (q *Query) Difference(other *Query) (*Query, error) {
	return q.combine(other, (*pkgset.Set).Difference)
}

func (q *Query) combine(other *Query, op func(*pkgset.Set, *pkgset.Set) *pkgset.Set) (*Query, error) {
	if err := q.Apply(); err != nil {
		return nil, err
	}
	if err := other.Apply(); err != nil {
		return nil, err
	}
	q.result = op(q.result, other.result)
	q.applied = true
	return q, nil
}

// strMatches applies the EQ|SUBSTR|GLOB(+ICASE)(+NOT handled by caller)
// comparison semantics shared by the data-iterator string filters.
func strMatches(cmp reldep.CmpFlag, candidate string, matches []string) bool {
	icase := cmp.Has(reldep.ICASE)
	c := candidate
	if icase {
		c = strings.ToLower(c)
	}
	for _, m := range matches {
		mm := m
		if icase {
			mm = strings.ToLower(mm)
		}
		switch {
		case cmp.Has(reldep.GLOB):
			if ok, _ := globMatchExported(mm, c); ok {
				return true
			}
		case cmp.Has(reldep.SUBSTR):
			if strings.Contains(c, mm) {
				return true
			}
		default: // EQ
			if c == mm {
				return true
			}
		}
	}
	return false
}
