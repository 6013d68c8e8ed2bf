package restcat

import (
	"errors"
	"regexp"
	"strings"
)

var enumPhraseRe = regexp.MustCompile(`(?i)valid values\s*(?:are)?\s*:?\s*`)

var errNoEnumList = errors.New(`"Valid values:" is not followed by a (a | b) list`)

// EnumValues returns the allowed values documented in an Enum summary by
// its first "Valid values: (a | b | c)" fragment. It returns nil when the
// summary has no such fragment or it cannot be parsed; an Enum without a
// readable set is then unconstrained.
func EnumValues(summary string) []string {
	values, _, _ := parseEnum(summary)
	return values
}

// parseEnum reports whether the summary mentions valid values at all and,
// if so, whether the list after it is well formed.
func parseEnum(summary string) (values []string, present bool, err error) {
	loc := enumPhraseRe.FindStringIndex(summary)
	if loc == nil {
		return nil, false, nil
	}
	rest := summary[loc[1]:]
	if !strings.HasPrefix(rest, "(") {
		return nil, true, errNoEnumList
	}
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return nil, true, errNoEnumList
	}
	for _, part := range strings.Split(rest[1:end], "|") {
		v := strings.Trim(strings.TrimSpace(part), `"'`)
		if v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return nil, true, errNoEnumList
	}
	return values, true, nil
}
