package restcat

import (
	"regexp"
	"strconv"
	"strings"
)

// IsPassthrough reports whether a declared parameter name is the catalog's
// "accept any additional key" marker, such as <arbitrary_key> or <key_name>.
func IsPassthrough(name string) bool {
	if name == "*" {
		return true
	}
	return len(name) > 2 &&
		strings.HasPrefix(name, "<") &&
		strings.HasSuffix(name, ">") &&
		!strings.ContainsAny(name[1:len(name)-1], "<>.")
}

// family is a compiled parameter-family pattern: one declared name standing
// for many concrete names (action.*, whitelist.0, whitelist.0..9,
// action.<name>).
type family struct {
	name string
	key  string
	re   *regexp.Regexp
	// literal counts the non-wildcard characters; more literal wins when
	// several families match the same concrete name.
	literal int
	ranged  bool
	lo, hi  int
}

// IsFamily reports whether a declared parameter name denotes a family.
func IsFamily(name string) bool {
	_, ok := compileFamily(name)
	return ok
}

// FamilyKey returns the canonical form of a family name with every wildcard
// segment written as "*", so whitelist.0, whitelist.0..9 and whitelist.*
// share the key whitelist.*. Non-family names are returned unchanged.
func FamilyKey(name string) string {
	if f, ok := compileFamily(name); ok {
		return f.key
	}
	return name
}

func compileFamily(name string) (*family, bool) {
	if IsPassthrough(name) {
		return nil, false
	}
	segs := splitFamilySegments(name)
	if len(segs) < 2 {
		return nil, false
	}

	f := &family{name: name}
	var (
		pattern  strings.Builder
		keySegs  = make([]string, len(segs))
		wildcard bool
	)
	pattern.WriteByte('^')
	for i, seg := range segs {
		last := i == len(segs)-1
		if i > 0 {
			pattern.WriteString(`\.`)
		}
		switch {
		case seg == "*":
			wildcard = true
			keySegs[i] = "*"
			if last {
				pattern.WriteString(`.+`)
			} else {
				pattern.WriteString(`[^.]+`)
			}
		case len(seg) > 2 && seg[0] == '<' && seg[len(seg)-1] == '>':
			wildcard = true
			keySegs[i] = "*"
			if last {
				pattern.WriteString(`.+`)
			} else {
				pattern.WriteString(`[^.]+`)
			}
		case last && isDigits(seg):
			wildcard = true
			keySegs[i] = "*"
			pattern.WriteString(`(\d+)`)
		case last && isRange(seg):
			wildcard = true
			keySegs[i] = "*"
			lo, hi, _ := parseRange(seg)
			f.ranged, f.lo, f.hi = true, lo, hi
			pattern.WriteString(`(\d+)`)
		default:
			keySegs[i] = seg
			f.literal += len(seg)
			pattern.WriteString(regexp.QuoteMeta(seg))
		}
	}
	if !wildcard {
		return nil, false
	}
	pattern.WriteByte('$')
	f.re = regexp.MustCompile(pattern.String())
	f.key = strings.Join(keySegs, ".")
	return f, true
}

// match reports whether a concrete parameter name belongs to the family.
func (f *family) match(name string) bool {
	m := f.re.FindStringSubmatch(name)
	if m == nil {
		return false
	}
	if f.ranged {
		n, err := strconv.Atoi(m[len(m)-1])
		if err != nil || n < f.lo || n > f.hi {
			return false
		}
	}
	return true
}

var rangeSuffixRe = regexp.MustCompile(`^(.+)\.(\d+\.\.\d+)$`)

// splitFamilySegments splits on dots but keeps a trailing N..M range whole.
func splitFamilySegments(name string) []string {
	if m := rangeSuffixRe.FindStringSubmatch(name); m != nil {
		return append(strings.Split(m[1], "."), m[2])
	}
	return strings.Split(name, ".")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isRange(s string) bool {
	_, _, ok := parseRange(s)
	return ok
}

func parseRange(s string) (lo, hi int, ok bool) {
	a, b, found := strings.Cut(s, "..")
	if !found || !isDigits(a) || !isDigits(b) {
		return 0, 0, false
	}
	lo, _ = strconv.Atoi(a)
	hi, _ = strconv.Atoi(b)
	if lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}
