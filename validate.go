package restcat

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/broady/restcat/internal/expr"
)

// ViolationCode is a machine-readable reason a parameter was rejected.
type ViolationCode string

const (
	MissingParameter     ViolationCode = "missing_parameter"
	NotANumber           ViolationCode = "not_a_number"
	NotABoolean          ViolationCode = "not_a_boolean"
	NotInEnum            ViolationCode = "not_in_enum"
	ConstraintFailed     ViolationCode = "constraint_failed"
	UnknownParameter     ViolationCode = "unknown_parameter"
	MissingPathParameter ViolationCode = "missing_path_parameter"
	UnknownPlaceholder   ViolationCode = "unknown_placeholder"
)

// Violation is one rejected parameter.
type Violation struct {
	Param   string        `json:"param"`
	Code    ViolationCode `json:"code"`
	Message string        `json:"message"`
	Value   string        `json:"value,omitempty"`
}

// ValidationError aggregates every violation found in one request.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Param + ": " + v.Message
	}
	return fmt.Sprintf("%d invalid parameter(s): %s", len(e.Violations), strings.Join(msgs, "; "))
}

// Has reports whether a violation with the given code was recorded for param.
func (e *ValidationError) Has(param string, code ViolationCode) bool {
	for _, v := range e.Violations {
		if v.Param == param && v.Code == code {
			return true
		}
	}
	return false
}

var fieldValidator = validator.New()

func defaultConstraintMessage(name string) string {
	return fmt.Sprintf("Value of argument '%s' is invalid", name)
}

// validate checks params against a resolved schema and collects every
// violation. A non-nil error means the catalog itself is broken.
func (e *Engine) validate(s *Schema, params url.Values) (url.Values, []Violation, error) {
	var (
		out        = make(url.Values, len(params))
		violations []Violation
		supplied   = make(map[*ParamSpec]bool)
		env        = make(expr.Env, len(params))
	)
	for name, vs := range params {
		if len(vs) > 0 {
			env[name] = vs[0]
		}
	}

	names := lo.Keys(params)
	sort.Strings(names)

	for _, name := range names {
		values := params[name]
		spec, ok := s.Lookup(name)
		if !ok {
			if s.Passthrough() || e.allowUnknown {
				out[name] = values
				continue
			}
			violations = append(violations, Violation{
				Param:   name,
				Code:    UnknownParameter,
				Message: fmt.Sprintf("parameter %q is not accepted by %s %s", name, s.Method, s.Template),
				Value:   first(values),
			})
			continue
		}
		if hasValue(values) {
			supplied[spec] = true
		}
		v, err := e.checkValues(s, name, spec, values, env)
		if err != nil {
			return nil, nil, err
		}
		if v != nil {
			violations = append(violations, *v)
			continue
		}
		out[name] = values
	}

	for _, name := range s.Names() {
		spec := s.Params[name]
		if supplied[spec] {
			continue
		}
		switch {
		case spec.Required:
			if _, ok := s.family(name); ok {
				violations = append(violations, Violation{
					Param:   name,
					Code:    MissingParameter,
					Message: fmt.Sprintf("at least one %q parameter is required", name),
				})
				continue
			}
			if len(params[name]) > 0 {
				// Supplied but empty: leave it out of the result.
				delete(out, name)
			}
			violations = append(violations, Violation{
				Param:   name,
				Code:    MissingParameter,
				Message: fmt.Sprintf("missing required parameter %q", name),
			})
		case e.applyDefaults && spec.Default != "" && len(params[name]) == 0:
			if _, ok := s.family(name); !ok {
				out.Set(name, spec.Default)
			}
		}
	}
	return out, violations, nil
}

// checkValues validates each non-empty value of one concrete parameter and
// returns the first problem, so a parameter yields at most one violation.
func (e *Engine) checkValues(s *Schema, name string, spec *ParamSpec, values []string, env expr.Env) (*Violation, error) {
	for _, v := range values {
		if v == "" {
			continue
		}
		switch spec.Kind() {
		case DatatypeNumber:
			if err := fieldValidator.Var(strings.TrimSpace(v), "numeric"); err != nil {
				return &Violation{Param: name, Code: NotANumber, Message: fmt.Sprintf("%q is not a number", v), Value: v}, nil
			}
		case DatatypeBoolean:
			if _, ok := expr.ParseBool(strings.TrimSpace(v)); !ok {
				return &Violation{Param: name, Code: NotABoolean, Message: fmt.Sprintf("%q is not a boolean (1, 0, true, false)", v), Value: v}, nil
			}
		case DatatypeEnum:
			if set := EnumValues(spec.Summary); set != nil && !lo.Contains(set, v) {
				return &Violation{
					Param:   name,
					Code:    NotInEnum,
					Message: fmt.Sprintf("%q is not one of: %s", v, strings.Join(set, ", ")),
					Value:   v,
				}, nil
			}
		}

		if spec.Validation == "" {
			continue
		}
		prog, err := e.exprs.Parse(spec.Validation)
		if err != nil {
			e.logger.Error("invalid validation expression",
				"template", s.Template, "method", s.Method, "param", spec.Name, "error", err)
			return nil, &CatalogIntegrityError{
				Kind:     MalformedExpression,
				Template: s.Template,
				Method:   s.Method,
				Param:    spec.Name,
				Reason:   err.Error(),
			}
		}
		local := make(expr.Env, len(env)+2)
		for k, val := range env {
			local[k] = val
		}
		local[spec.Name] = v
		local[name] = v
		failed, err := prog.Eval(local)
		if err != nil || failed != nil {
			msg := defaultConstraintMessage(name)
			if failed != nil && failed.Message != "" {
				msg = failed.Message
			}
			return &Violation{Param: name, Code: ConstraintFailed, Message: msg, Value: v}, nil
		}
	}
	return nil, nil
}

func hasValue(values []string) bool {
	for _, v := range values {
		if v != "" {
			return true
		}
	}
	return false
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
