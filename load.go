package restcat

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"sigs.k8s.io/yaml"
)

// looseString accepts JSON strings, booleans, numbers and null. Catalogs
// written by hand mix "true", True and true freely.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	if string(b) == "null" {
		*s = ""
		return nil
	}
	*s = looseString(strings.TrimSpace(string(b)))
	return nil
}

type wireEndpoint struct {
	Summary looseString           `json:"summary"`
	Methods map[string]wireMethod `json:"methods"`
}

type wireMethod struct {
	Summary   looseString             `json:"summary"`
	Config    looseString             `json:"config"`
	Request   looseString             `json:"request"`
	Response  looseString             `json:"response"`
	URLParams map[string]wireURLParam `json:"urlParams"`
	Params    map[string]wireParam    `json:"params"`
	Returns   map[string]wireReturn   `json:"returns"`
}

type wireURLParam struct {
	Required looseString `json:"required"`
	Summary  looseString `json:"summary"`
}

type wireParam struct {
	Datatype   looseString `json:"datatype"`
	Default    looseString `json:"default"`
	Required   looseString `json:"required"`
	Summary    looseString `json:"summary"`
	Validation looseString `json:"validation"`
}

type wireReturn struct {
	Summary looseString `json:"summary"`
}

// UnmarshalJSON accepts both {"summary": "..."} and a bare string.
func (r *wireReturn) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &r.Summary)
	}
	type plain wireReturn
	return json.Unmarshal(b, (*plain)(r))
}

// LoadFile reads and parses a catalog file. JSON and YAML are both accepted.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a catalog from JSON or YAML bytes. Structural problems with
// templates or returns tables are reported as *CatalogIntegrityError values,
// all of them joined with errors.Join.
func Parse(data []byte) (*Catalog, error) {
	var wire map[string]wireEndpoint
	if err := yaml.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}

	var problems []error
	endpoints := make(map[string]*Endpoint, len(wire))
	rawTemplates := lo.Keys(wire)
	sort.Strings(rawTemplates)
	for _, rawTemplate := range rawTemplates {
		we := wire[rawTemplate]
		tmpl, err := ParseTemplate(rawTemplate)
		if err != nil {
			problems = append(problems, &CatalogIntegrityError{
				Kind:     MalformedTemplate,
				Template: rawTemplate,
				Reason:   err.Error(),
			})
			continue
		}
		key := tmpl.String()
		if _, dup := endpoints[key]; dup {
			problems = append(problems, &CatalogIntegrityError{
				Kind:     MalformedTemplate,
				Template: rawTemplate,
				Reason:   "duplicate template after normalization",
			})
			continue
		}

		ep := &Endpoint{
			Template: tmpl,
			Summary:  string(we.Summary),
			Methods:  make(map[string]*MethodDescriptor, len(we.Methods)),
		}
		for rawMethod, wm := range we.Methods {
			method := strings.ToUpper(strings.TrimSpace(rawMethod))
			md, errs := buildMethod(key, method, wm)
			problems = append(problems, errs...)
			ep.Methods[method] = md
		}
		endpoints[key] = ep
	}
	if len(problems) > 0 {
		sort.Slice(problems, func(i, j int) bool { return problems[i].Error() < problems[j].Error() })
		return nil, errors.Join(problems...)
	}
	return newCatalog(endpoints), nil
}

func buildMethod(template, method string, wm wireMethod) (*MethodDescriptor, []error) {
	md := &MethodDescriptor{
		Method:    method,
		Summary:   string(wm.Summary),
		Config:    string(wm.Config),
		Request:   string(wm.Request),
		Response:  string(wm.Response),
		URLParams: make(map[string]URLParam, len(wm.URLParams)),
		Params:    make(map[string]*ParamSpec, len(wm.Params)),
		Returns:   make(map[int]Return, len(wm.Returns)),
	}
	for name, up := range wm.URLParams {
		required, _ := ParseFlag(string(up.Required))
		md.URLParams[name] = URLParam{Required: required, Summary: string(up.Summary)}
	}
	for name, wp := range wm.Params {
		required, _ := ParseFlag(string(wp.Required))
		md.Params[name] = &ParamSpec{
			Name:        name,
			Datatype:    strings.TrimSpace(string(wp.Datatype)),
			Default:     string(wp.Default),
			Required:    required,
			RequiredRaw: strings.TrimSpace(string(wp.Required)),
			Summary:     string(wp.Summary),
			Validation:  strings.TrimSpace(string(wp.Validation)),
		}
	}
	var problems []error
	for code, wr := range wm.Returns {
		status, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil || status < 100 || status > 599 {
			problems = append(problems, &CatalogIntegrityError{
				Kind:     MalformedReturns,
				Template: template,
				Method:   method,
				Reason:   fmt.Sprintf("invalid status code %q", code),
			})
			continue
		}
		md.Returns[status] = Return{Summary: string(wr.Summary)}
	}
	return md, problems
}
