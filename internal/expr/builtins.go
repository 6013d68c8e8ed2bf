package expr

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

type builtin struct {
	arity int
	fn    func(args []Value) Value
}

// builtins maps function names to implementations. match is listed for
// arity checking only; eval handles it because its first argument is
// resolved by name.
var builtins = map[string]builtin{
	"isint":          {1, predicate(isInt)},
	"is_bool":        {1, predicate(isBool)},
	"is_pos_int":     {1, predicate(isPosInt)},
	"is_nonneg_int":  {1, predicate(isNonnegInt)},
	"is_index":       {1, predicate(isIndex)},
	"is_time_format": {1, predicate(IsTimeFormat)},
	"match":          {2, nil},
	"len":            {1, func(a []Value) Value { return Number(float64(utf8.RuneCountInString(a[0].Text()))) }},
	"trim":           {1, func(a []Value) Value { return String(strings.TrimSpace(a[0].Text())) }},
	"lower":          {1, func(a []Value) Value { return String(strings.ToLower(a[0].Text())) }},
	"upper":          {1, func(a []Value) Value { return String(strings.ToUpper(a[0].Text())) }},
}

func predicate(f func(string) bool) func([]Value) Value {
	return func(a []Value) Value { return Boolean(f(a[0].Text())) }
}

var (
	intRe   = regexp.MustCompile(`^[+-]?\d+$`)
	indexRe = regexp.MustCompile(`^_?[a-z0-9][a-z0-9_-]*$`)
)

func isInt(s string) bool { return intRe.MatchString(strings.TrimSpace(s)) }

func isBool(s string) bool {
	_, ok := ParseBool(strings.TrimSpace(s))
	return ok
}

func isPosInt(s string) bool {
	n, ok := parseInt(s)
	return ok && n > 0
}

func isNonnegInt(s string) bool {
	n, ok := parseInt(s)
	return ok && n >= 0
}

func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if !intRe.MatchString(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

// maxIndexNameLen bounds index names accepted by is_index.
const maxIndexNameLen = 2048

func isIndex(s string) bool { return len(s) <= maxIndexNameLen && indexRe.MatchString(s) }

// strftime conversions accepted by is_time_format, including the
// subsecond extensions (%Q, %N, %3N and so on) log timestamps use.
const timeConversions = "aAbBcCdDeFgGhHIjklmMnNpPqQrRsStTuUVwWxXyYzZfL+"

// IsTimeFormat reports whether s is a strftime-style format with at least
// one known conversion. Flags, field widths and the E and O modifiers are
// accepted; %% is a literal percent sign.
func IsTimeFormat(s string) bool {
	conversions := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '%' {
			continue
		}
		i++
		if i >= len(s) {
			return false
		}
		if s[i] == '%' {
			continue
		}
		for i < len(s) && strings.IndexByte("-_0^#", s[i]) >= 0 {
			i++
		}
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
		if i < len(s) && (s[i] == 'E' || s[i] == 'O') {
			i++
		}
		if i >= len(s) || strings.IndexByte(timeConversions, s[i]) < 0 {
			return false
		}
		conversions++
	}
	return conversions > 0
}
