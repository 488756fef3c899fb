package query

// globMatchExported is a tiny shell-glob matcher (*, ?), used by the
// data-iterator string filters' GLOB cmp_type. No glob library appears
// anywhere in the pack (see DESIGN.md), so this one corner stays stdlib
// recursion rather than reaching for path.Match, which anchors on '/' and
// rejects patterns spanning it — package name globs like "foo-*" don't
// involve path separators, but NEVRA globs in practice can include '.'
// segments path.Match treats no differently, so a plain recursive matcher
// keeps the semantics uniform across all GLOB keynames.
func globMatchExported(pattern, s string) (bool, error) {
	return matchGlobRec(pattern, s), nil
}

func matchGlobRec(p, s string) bool {
	if p == "" {
		return s == ""
	}
	switch p[0] {
	case '*':
		for i := 0; i <= len(s); i++ {
			if matchGlobRec(p[1:], s[i:]) {
				return true
			}
		}
		return false
	case '?':
		if len(s) == 0 {
			return false
		}
		return matchGlobRec(p[1:], s[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return matchGlobRec(p[1:], s[1:])
	}
}
