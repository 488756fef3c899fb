// Package selector implements the Selector (spec §4.3/C6): a narrow
// name+provides+file+arch+evr+reponame filter bundle addressing a single
// logical package, translated into a solver job by the Goal engine.
package selector

import (
	"github.com/rpmsack/rpmsack/internal/pool"
	"github.com/rpmsack/rpmsack/internal/query"
	"github.com/rpmsack/rpmsack/internal/reldep"
	"github.com/rpmsack/rpmsack/internal/rpmerr"
	"github.com/rpmsack/rpmsack/internal/sack"
)

// Selector holds at most one filter per axis (spec §3 "Selector").
type Selector struct {
	Name, Provides, File, Arch, Evr, Reponame *string
}

// New returns an empty Selector, with builder-style setters below so
// callers can chain SetName(...).SetArch(...).
func New() *Selector { return &Selector{} }

func ptr(s string) *string { return &s }

func (s *Selector) SetName(v string) *Selector     { s.Name = ptr(v); return s }
func (s *Selector) SetProvides(v string) *Selector  { s.Provides = ptr(v); return s }
func (s *Selector) SetFile(v string) *Selector      { s.File = ptr(v); return s }
func (s *Selector) SetArch(v string) *Selector      { s.Arch = ptr(v); return s }
func (s *Selector) SetEvr(v string) *Selector       { s.Evr = ptr(v); return s }
func (s *Selector) SetReponame(v string) *Selector  { s.Reponame = ptr(v); return s }

// Valid reports whether the Selector can address a package: at least one
// of {name, provides, file} must be set (spec §3 "Selector").
func (s *Selector) Valid() bool {
	return s.Name != nil || s.Provides != nil || s.File != nil
}

// ToQuery builds the Query this Selector resolves to (spec §4.3
// "sltr2job builds the job by applying name (or provides or file) as the
// base selection, then successively ANDing arch, evr, reponame"). The
// Goal engine calls this when translating a staged Selector into a solver
// job.
func (s *Selector) ToQuery(sk *sack.Sack) (*query.Query, error) {
	if !s.Valid() {
		return nil, rpmerr.New(rpmerr.BadSelector, "selector has none of name/provides/file set")
	}

	q := query.New(sk, 0)
	switch {
	case s.Name != nil:
		if err := q.Filter(query.NAME, reldep.EQ, *s.Name); err != nil {
			return nil, err
		}
	case s.Provides != nil:
		rd, err := reldep.Parse(*s.Provides)
		if err != nil {
			return nil, rpmerr.New(rpmerr.BadSelector, "invalid provides %q: %v", *s.Provides, err)
		}
		if err := q.Filter(query.PROVIDES, reldep.EQ, rd); err != nil {
			return nil, err
		}
	case s.File != nil:
		if err := q.Filter(query.FILE, reldep.EQ, *s.File); err != nil {
			return nil, err
		}
	}

	if s.Arch != nil {
		if err := q.Filter(query.ARCH, reldep.EQ, *s.Arch); err != nil {
			return nil, err
		}
	}
	if s.Evr != nil {
		if err := q.Filter(query.EVR, reldep.EQ, *s.Evr); err != nil {
			return nil, err
		}
	}
	if s.Reponame != nil {
		if err := q.Filter(query.REPONAME, reldep.EQ, *s.Reponame); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// Resolve runs ToQuery and returns the matched solvable ids, a convenience
// used by callers that just want "the" package(s) this selector names.
func (s *Selector) Resolve(sk *sack.Sack) ([]pool.Id, error) {
	q, err := s.ToQuery(sk)
	if err != nil {
		return nil, err
	}
	return q.Run()
}
