// Package reldep implements the RPM relational-dependency model: parsed
// "name OP evr" expressions (spec §3 "Reldep"), EVR total ordering per the
// RPM comparison rules, and a Constraint interface shaped like the teacher's
// own Constraint (constraints.go): a small closed set of implementations
// (exact, range-ish via CmpFlag, any) with Matches/String methods, rather
// than a generic semver constraint grammar — RPM's epoch:version-release
// ordering is not semver-compatible (no dot-separated numeric-only fields,
// explicit epoch, tilde/caret pre-release markers), so the comparison
// algorithm itself (rpmVerCmp below) is hand-rolled domain logic rather
// than an import of github.com/Masterminds/semver — see DESIGN.md.
package reldep

import (
	"strconv"
	"strings"
)

// CompareEVR implements the three-way RPM EVR comparison: epoch compared
// numerically (an absent epoch compares as 0, so "1.0-1" and "0:1.0-1" are
// equal here), then version, then release, each split into alternating
// alpha/digit segments per rpmVerCmp.
func CompareEVR(a, b string) int {
	ae, av, ar := SplitEVR(a)
	be, bv, br := SplitEVR(b)

	if c := compareEpoch(ae, be); c != 0 {
		return c
	}
	if c := rpmVerCmp(av, bv); c != 0 {
		return c
	}
	return rpmVerCmp(ar, br)
}

func compareEpoch(a, b *int64) int {
	av, bv := int64(0), int64(0)
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	default:
		return 0
	}
}

// SplitEVR splits a "[epoch:]version[-release]" string into its three
// components. A missing epoch is returned as nil, distinguished from an
// explicit "0" per spec §3 ("epoch ... -1/absent distinguished from 0").
func SplitEVR(evr string) (epoch *int64, version, release string) {
	rest := evr
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		if n, err := strconv.ParseInt(rest[:idx], 10, 64); err == nil {
			epoch = &n
		}
		rest = rest[idx+1:]
	}
	if idx := strings.LastIndexByte(rest, '-'); idx >= 0 {
		version = rest[:idx]
		release = rest[idx+1:]
	} else {
		version = rest
	}
	return epoch, version, release
}

// JoinEVR is the inverse of SplitEVR, used when rendering a canonical NEVRA.
func JoinEVR(epoch *int64, version, release string) string {
	var b strings.Builder
	if epoch != nil {
		b.WriteString(strconv.FormatInt(*epoch, 10))
		b.WriteByte(':')
	}
	b.WriteString(version)
	if release != "" {
		b.WriteByte('-')
		b.WriteString(release)
	}
	return b.String()
}

func isAlphaSeg(r byte) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigitSeg(r byte) bool {
	return r >= '0' && r <= '9'
}

// rpmVerCmp is the classic RPM version/release comparator: strip matching
// leading runs of non-alphanumeric separator characters, then compare
// alternating runs of digits (numeric compare, ignoring leading zeros) and
// runs of letters (lexical compare); a numeric segment always outranks an
// alphabetic one; once one side runs out of segments, the side with anything
// left wins, whether its remaining segment is digits or letters.
func rpmVerCmp(a, b string) int {
	if a == b {
		return 0
	}
	for len(a) > 0 || len(b) > 0 {
		for len(a) > 0 && !isAlphaSeg(a[0]) && !isDigitSeg(a[0]) {
			a = a[1:]
		}
		for len(b) > 0 && !isAlphaSeg(b[0]) && !isDigitSeg(b[0]) {
			b = b[1:]
		}
		if len(a) == 0 || len(b) == 0 {
			break
		}

		var aSeg, bSeg string
		var numeric bool
		if isDigitSeg(a[0]) {
			aSeg, a = takeWhile(a, isDigitSeg)
			bSeg, b = takeWhile(b, isDigitSeg)
			numeric = true
			if bSeg == "" {
				// digits beat alpha/empty on the other side
				return 1
			}
		} else {
			aSeg, a = takeWhile(a, isAlphaSeg)
			bSeg, b = takeWhile(b, isAlphaSeg)
			if bSeg == "" {
				return -1
			}
		}

		if numeric {
			aSeg = strings.TrimLeft(aSeg, "0")
			bSeg = strings.TrimLeft(bSeg, "0")
			if len(aSeg) != len(bSeg) {
				if len(aSeg) > len(bSeg) {
					return 1
				}
				return -1
			}
		}
		if aSeg != bSeg {
			if aSeg < bSeg {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a) == len(b):
		return 0
	case len(a) > 0:
		return 1
	default:
		return -1
	}
}

func takeWhile(s string, pred func(byte) bool) (taken, rest string) {
	i := 0
	for i < len(s) && pred(s[i]) {
		i++
	}
	return s[:i], s[i:]
}
