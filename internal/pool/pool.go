// Package pool implements the Pool adapter (spec §4.1/C1): uniform access
// to solvables and their typed attributes, shielded behind a capability
// set. It plays the role the teacher's bridge.go plays for its external
// SourceManager: bridge.go wraps external, possibly-slow calls
// (ListVersions, RevisionPresentIn, ...) behind a local, cached adapter
// (sourceBridge) so the solver never talks to the raw source manager
// directly. Here Pool is that capability set, and MemPool is the
// reference/default adapter over an in-memory solvable store (spec §1
// treats the real metadata store as an external collaborator "specified
// only through the interfaces the core uses" — MemPool is the concrete
// stand-in a caller gets unless it supplies its own Pool).
package pool

import (
	"strings"

	radix "github.com/armon/go-radix"

	"github.com/rpmsack/rpmsack/internal/reldep"
)

// Id is the dense solvable id, numbered the same way as pkgset.Id; it is a
// separate type, so values are converted when moving between the two.
type Id uint32

const (
	// NoId is the "none" sentinel (spec §3).
	NoId Id = 0
	// SystemId is the reserved "system solvable" id (spec §3).
	SystemId Id = 1
)

// Solvable is a single package candidate, installed or not (spec §3).
type Solvable struct {
	Id    Id
	Name  string
	Epoch *int64 // nil means absent, distinguished from 0 (spec §3)
	Version, Release, Arch string
	EVR   string // interned concatenation used for total ordering

	RepoName string
	Kind     Kind

	Summary, Description, URL, Location, SourceRPM string
	Files []string

	Provides, Requires, Conflicts, Obsoletes     reldep.List
	Recommends, Suggests, Enhances, Supplements reldep.List

	// Advisories referencing this solvable's NEVRA, populated when the repo
	// carried updateinfo data (spec §4.2 "Advisory keys").
	Advisories []Advisory
}

// Kind distinguishes ordinary packages from the distinguished system
// solvable and any future non-package solvable kinds.
type Kind uint8

const (
	KindPackage Kind = iota
	KindSystem
)

// Advisory is a minimal errata/advisory record, enough to support the
// ADVISORY* query keynames (spec §4.2).
type Advisory struct {
	ID, Kind, Severity string
	Bugs, CVEs         []string
	PkgNEVRAs          []string
}

// NEVRA renders the canonical Name-Epoch-Version-Release-Arch string.
func (s *Solvable) NEVRA() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('-')
	b.WriteString(reldep.JoinEVR(s.Epoch, s.Version, s.Release))
	b.WriteByte('.')
	b.WriteString(s.Arch)
	return b.String()
}

// Pool is the capability set the rest of the library consumes (spec §6):
// lookup by id/name, EVR comparisons, dependency matching and provides
// resolution, and iteration over package-kind solvables and per-repo
// membership.
type Pool interface {
	Id2Solvable(id Id) (*Solvable, bool)
	Str2Id(name string) (Id, bool)

	// ForPkgSolvables yields every package-kind solvable id, installed or
	// not (spec's FOR_PKG_SOLVABLES).
	ForPkgSolvables() []Id
	// ForRepo yields the solvable ids belonging to the named repository.
	ForRepo(repoName string) []Id

	// WhatProvides returns every solvable id that provides dep (spec's
	// FOR_PROVIDES / pool_match_dep), OR'd across the reldep's matches.
	WhatProvides(dep reldep.Reldep) []Id
	// WhatUpgrades/WhatDowngrades return, for an installed package id,
	// the ids of non-installed packages that would upgrade/downgrade it
	// (spec's what_upgrades/what_downgrades).
	WhatUpgrades(installed Id) []Id
	WhatDowngrades(installed Id) []Id

	// NamesWithPrefix returns every known package name starting with
	// prefix, without a full table scan.
	NamesWithPrefix(prefix string) []string
}

// MemPool is the reference in-memory Pool implementation: every Solvable
// lives in a slice indexed by id, with a radix-tree name index for O(len
// prefix) lookups, mirroring the teacher's use of armon/go-radix in
// deduce.go/rootdata.go for project-root prefix matching.
type MemPool struct {
	solvables []*Solvable // index 0 unused, 1 is the reserved system slot
	byName    *radix.Tree // set of known names (values unused); ids per name live in nameIds
	nameIds   map[string][]Id
	byRepo    map[string][]Id
}

// NewMemPool returns an empty MemPool with the system solvable slot
// reserved at id 1.
func NewMemPool() *MemPool {
	return &MemPool{
		solvables: make([]*Solvable, 2), // [0]=nil, [1]=system (filled by sack)
		byName:    radix.New(),
		nameIds:   make(map[string][]Id),
		byRepo:    make(map[string][]Id),
	}
}

// Add inserts a new solvable, assigning it the next dense id, and returns
// that id.
func (p *MemPool) Add(s *Solvable) Id {
	id := Id(len(p.solvables))
	s.Id = id
	p.solvables = append(p.solvables, s)
	p.nameIds[s.Name] = append(p.nameIds[s.Name], id)
	p.byName.Insert(s.Name, struct{}{})
	p.byRepo[s.RepoName] = append(p.byRepo[s.RepoName], id)
	return id
}

// SetSystemSolvable installs the reserved system (id 1) solvable, used by
// Sack.load_system_repo to seed the @System repo's anchor record.
func (p *MemPool) SetSystemSolvable(s *Solvable) {
	s.Id = SystemId
	p.solvables[SystemId] = s
	p.nameIds[s.Name] = append(p.nameIds[s.Name], SystemId)
	p.byRepo[s.RepoName] = append(p.byRepo[s.RepoName], SystemId)
}

func (p *MemPool) Id2Solvable(id Id) (*Solvable, bool) {
	if int(id) <= 0 || int(id) >= len(p.solvables) || p.solvables[id] == nil {
		return nil, false
	}
	return p.solvables[id], true
}

func (p *MemPool) Str2Id(name string) (Id, bool) {
	ids, ok := p.nameIds[name]
	if !ok || len(ids) == 0 {
		return NoId, false
	}
	return ids[0], true
}

func (p *MemPool) ForPkgSolvables() []Id {
	out := make([]Id, 0, len(p.solvables))
	for id := 1; id < len(p.solvables); id++ {
		if p.solvables[id] != nil {
			out = append(out, Id(id))
		}
	}
	return out
}

func (p *MemPool) ForRepo(repoName string) []Id {
	return append([]Id(nil), p.byRepo[repoName]...)
}

func (p *MemPool) WhatProvides(dep reldep.Reldep) []Id {
	var out []Id
	for id := 1; id < len(p.solvables); id++ {
		s := p.solvables[id]
		if s == nil {
			continue
		}
		if dep.Matches(s.Name, s.EVR) {
			out = append(out, Id(id))
			continue
		}
		for _, pr := range s.Provides {
			if pr.Name == dep.Name && (dep.EVR == "" || dep.Matches(pr.Name, pr.EVR)) {
				out = append(out, Id(id))
				break
			}
		}
	}
	return out
}

func (p *MemPool) WhatUpgrades(installed Id) []Id {
	return p.relatedByName(installed, 1)
}

func (p *MemPool) WhatDowngrades(installed Id) []Id {
	return p.relatedByName(installed, -1)
}

// relatedByName returns non-installed same-named solvables whose EVR
// compares as `sign` relative to the installed package's EVR.
func (p *MemPool) relatedByName(installed Id, sign int) []Id {
	base, ok := p.Id2Solvable(installed)
	if !ok {
		return nil
	}
	var out []Id
	for _, id := range p.nameIds[base.Name] {
		if id == installed {
			continue
		}
		cand, ok := p.Id2Solvable(id)
		if !ok || cand.Kind == KindSystem || cand.RepoName == "@System" {
			continue
		}
		c := reldep.CompareEVR(cand.EVR, base.EVR)
		if (sign > 0 && c > 0) || (sign < 0 && c < 0) {
			out = append(out, id)
		}
	}
	return out
}

func (p *MemPool) NamesWithPrefix(prefix string) []string {
	var out []string
	p.byName.WalkPrefix(prefix, func(s string, _ interface{}) bool {
		out = append(out, s)
		return false
	})
	return out
}
