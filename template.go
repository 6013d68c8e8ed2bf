package restcat

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// PathMode controls how supplied path values without a matching placeholder
// are treated.
type PathMode int

const (
	// PathStrict reports extra path values as UnknownPlaceholder violations.
	PathStrict PathMode = iota
	// PathLenient silently ignores extra path values.
	PathLenient
)

func (m PathMode) String() string {
	if m == PathLenient {
		return "lenient"
	}
	return "strict"
}

// ParsePathMode parses "strict" or "lenient". The empty string is strict.
func ParsePathMode(s string) (PathMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return PathStrict, nil
	case "lenient":
		return PathLenient, nil
	default:
		return PathStrict, fmt.Errorf("unknown path mode %q", s)
	}
}

// WildcardSegment is the catalog's "match anything" path segment, as in
// fired_alerts/-. It is emitted verbatim.
const WildcardSegment = "-"

var placeholderRe = regexp.MustCompile(`\{[^{}]*\}`)

// templateToken is either literal text or a named placeholder.
type templateToken struct {
	literal     string
	placeholder string
}

// Template is a parsed URL template such as data/inputs/monitor/{name}.
type Template struct {
	raw    string
	tokens []templateToken
}

// ParseTemplate tokenizes a URL template into literal text and {name}
// placeholders. Leading and trailing slashes are dropped.
func ParseTemplate(s string) (Template, error) {
	raw := normalizeTemplate(s)
	t := Template{raw: raw}

	var lit strings.Builder
	for i := 0; i < len(raw); i++ {
		switch c := raw[i]; c {
		case '{':
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return Template{}, fmt.Errorf("unterminated placeholder at offset %d", i)
			}
			name := strings.TrimSpace(raw[i+1 : i+1+end])
			if name == "" {
				return Template{}, fmt.Errorf("empty placeholder at offset %d", i)
			}
			if strings.ContainsAny(name, "{/") {
				return Template{}, fmt.Errorf("malformed placeholder %q", name)
			}
			if lit.Len() > 0 {
				t.tokens = append(t.tokens, templateToken{literal: lit.String()})
				lit.Reset()
			}
			t.tokens = append(t.tokens, templateToken{placeholder: name})
			i += end + 1
		case '}':
			return Template{}, fmt.Errorf("unmatched '}' at offset %d", i)
		default:
			lit.WriteByte(c)
		}
	}
	if lit.Len() > 0 {
		t.tokens = append(t.tokens, templateToken{literal: lit.String()})
	}
	return t, nil
}

// MustParseTemplate is like ParseTemplate but panics on error.
func MustParseTemplate(s string) Template {
	t, err := ParseTemplate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Template) String() string { return t.raw }

// Placeholders returns the distinct placeholder names in template order.
func (t Template) Placeholders() []string {
	var names []string
	seen := make(map[string]bool)
	for _, tok := range t.tokens {
		if tok.placeholder != "" && !seen[tok.placeholder] {
			seen[tok.placeholder] = true
			names = append(names, tok.placeholder)
		}
	}
	return names
}

// collapsedSegments returns the path segments with every placeholder
// replaced by "{}", so {name} and {app} compare equal.
func (t Template) collapsedSegments() []string {
	if t.raw == "" {
		return nil
	}
	segs := strings.Split(t.raw, "/")
	for i, s := range segs {
		segs[i] = placeholderRe.ReplaceAllString(s, "{}")
	}
	return segs
}

// Resolve substitutes values into the template. Values are percent-encoded
// with path-segment rules. A placeholder that is required (or undeclared in
// params) and has no non-empty value yields a MissingPathParameter violation;
// an optional one resolves to WildcardSegment.
func (t Template) Resolve(values map[string]string, params map[string]URLParam, mode PathMode) (string, []Violation) {
	var (
		b          strings.Builder
		violations []Violation
		seen       = make(map[string]bool)
		missing    = make(map[string]bool)
	)
	for _, tok := range t.tokens {
		if tok.placeholder == "" {
			b.WriteString(tok.literal)
			continue
		}
		name := tok.placeholder
		seen[name] = true
		v, ok := values[name]
		if !ok || v == "" {
			required := true
			if p, declared := params[name]; declared {
				required = p.Required
			}
			if required {
				if !missing[name] {
					missing[name] = true
					violations = append(violations, Violation{
						Param:   name,
						Code:    MissingPathParameter,
						Message: fmt.Sprintf("missing required path parameter %q", name),
					})
				}
				continue
			}
			v = WildcardSegment
		}
		b.WriteString(escapeSegment(v))
	}

	if mode == PathStrict {
		extra := make([]string, 0)
		for name := range values {
			if !seen[name] {
				extra = append(extra, name)
			}
		}
		sort.Strings(extra)
		for _, name := range extra {
			violations = append(violations, Violation{
				Param:   name,
				Code:    UnknownPlaceholder,
				Message: fmt.Sprintf("path parameter %q has no placeholder in %s", name, t.raw),
				Value:   values[name],
			})
		}
	}

	if len(violations) > 0 {
		return "", violations
	}
	return b.String(), nil
}

func escapeSegment(v string) string {
	if v == WildcardSegment {
		return v
	}
	// "." and ".." would be collapsed by path normalization on the server.
	if strings.Trim(v, ".") == "" {
		return strings.Repeat("%2E", len(v))
	}
	return url.PathEscape(v)
}
