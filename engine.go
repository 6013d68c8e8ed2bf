package restcat

import (
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/broady/restcat/internal/expr"
)

// Engine binds one immutable catalog to the resolver, validator, builder
// and classifier. It is safe for concurrent use once configured; the With*
// methods must be called before the engine is shared.
type Engine struct {
	cat           *Catalog
	logger        *slog.Logger
	pathMode      PathMode
	allowUnknown  bool
	applyDefaults bool

	exprs         expr.Cache
	schemas       sync.Map // schemaKey -> *Schema
	params        sync.Map // paramKey -> *ParamSpec
	ancestorCache sync.Map // template -> []*Endpoint
}

// New creates an engine over cat.
func New(cat *Catalog) *Engine {
	return &Engine{
		cat:    cat,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger. If not set, slog.Default() is used.
// It returns the engine for chaining.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// WithPathMode sets how extra path values are treated. Default is PathStrict.
func (e *Engine) WithPathMode(m PathMode) *Engine {
	e.pathMode = m
	return e
}

// WithUnknownParams accepts parameters the endpoint does not declare instead
// of reporting them as UnknownParameter.
func (e *Engine) WithUnknownParams() *Engine {
	e.allowUnknown = true
	return e
}

// WithDefaults fills missing optional parameters that declare a default.
func (e *Engine) WithDefaults() *Engine {
	e.applyDefaults = true
	return e
}

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *Catalog { return e.cat }

// ResolvePath expands the endpoint's template with values.
func (e *Engine) ResolvePath(template, method string, values map[string]string) (string, error) {
	md, err := e.cat.Method(template, method)
	if err != nil {
		return "", err
	}
	ep, _ := e.cat.Endpoint(template)
	path, violations := ep.Template.Resolve(values, md.URLParams, e.pathMode)
	if len(violations) > 0 {
		return "", &ValidationError{Violations: violations}
	}
	return path, nil
}

// Validate checks params against the resolved schema of a method and
// returns the accepted values. Rejections are reported together as a
// *ValidationError; a *CatalogIntegrityError means the catalog is broken.
func (e *Engine) Validate(template, method string, params url.Values) (url.Values, error) {
	s, err := e.Schema(template, method)
	if err != nil {
		return nil, err
	}
	out, violations, err := e.validate(s, params)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	return out, nil
}

// Prepare resolves the path, validates params and builds the request. Path
// and parameter violations are reported together and no request is built.
func (e *Engine) Prepare(template, method string, pathValues map[string]string, params url.Values) (*Request, error) {
	md, err := e.cat.Method(template, method)
	if err != nil {
		return nil, err
	}
	ep, _ := e.cat.Endpoint(template)
	s, err := e.Schema(template, method)
	if err != nil {
		return nil, err
	}

	path, violations := ep.Template.Resolve(pathValues, md.URLParams, e.pathMode)
	out, pviolations, err := e.validate(s, params)
	if err != nil {
		return nil, err
	}
	violations = append(violations, pviolations...)
	if len(violations) > 0 {
		e.logger.Debug("request rejected",
			"template", s.Template, "method", s.Method, "violations", len(violations))
		return nil, &ValidationError{Violations: violations}
	}
	return Build(md.Method, path, out), nil
}

// Classify maps a response status for a method to an outcome using its
// documented returns table.
func (e *Engine) Classify(template, method string, status int) (Classification, error) {
	md, err := e.cat.Method(template, method)
	if err != nil {
		return Classification{}, err
	}
	return Classify(status, md.Returns), nil
}

// ParamInfo is one resolved parameter as shown to a user.
type ParamInfo struct {
	Name        string   `json:"name"`
	Datatype    string   `json:"datatype"`
	Required    bool     `json:"required"`
	Default     string   `json:"default,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Validation  string   `json:"validation,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Family      bool     `json:"family,omitempty"`
	Inherited   bool     `json:"inherited,omitempty"`
	Passthrough bool     `json:"passthrough,omitempty"`
}

// Description is the resolved contract of one endpoint method.
type Description struct {
	Template  string            `json:"template"`
	Method    string            `json:"method"`
	Summary   string            `json:"summary,omitempty"`
	PathVars  []PathVarInfo     `json:"path_vars,omitempty"`
	Params    []ParamInfo       `json:"params"`
	Returns   map[int]string    `json:"returns,omitempty"`
	Documents map[string]string `json:"documents,omitempty"`
}

// PathVarInfo describes a path placeholder.
type PathVarInfo struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Summary  string `json:"summary,omitempty"`
}

// Describe returns the resolved contract of a method in display order.
func (e *Engine) Describe(template, method string) (*Description, error) {
	md, err := e.cat.Method(template, method)
	if err != nil {
		return nil, err
	}
	ep, _ := e.cat.Endpoint(template)
	s, err := e.Schema(template, method)
	if err != nil {
		return nil, err
	}

	d := &Description{
		Template: s.Template,
		Method:   s.Method,
		Summary:  summaryOf(ep, md),
	}
	for _, name := range ep.Template.Placeholders() {
		required := true
		summary := ""
		if up, ok := md.URLParams[name]; ok {
			required, summary = up.Required, up.Summary
		}
		d.PathVars = append(d.PathVars, PathVarInfo{Name: name, Required: required, Summary: summary})
	}
	for _, name := range s.Names() {
		p := s.Params[name]
		_, family := s.family(name)
		var enum []string
		if p.Kind() == DatatypeEnum {
			enum = EnumValues(p.Summary)
		}
		d.Params = append(d.Params, ParamInfo{
			Name:       name,
			Datatype:   p.Kind(),
			Required:   p.Required,
			Default:    p.Default,
			Summary:    p.Summary,
			Validation: p.Validation,
			Enum:       enum,
			Family:     family,
			Inherited:  md.Params[name].IsInherited(),
		})
	}
	if s.Passthrough() {
		d.Params = append(d.Params, ParamInfo{Name: "*", Datatype: DatatypeString, Passthrough: true})
	}
	if len(md.Returns) > 0 {
		d.Returns = make(map[int]string, len(md.Returns))
		for code, r := range md.Returns {
			d.Returns[code] = r.Summary
		}
	}
	for k, v := range map[string]string{"config": md.Config, "request": md.Request, "response": md.Response} {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if d.Documents == nil {
			d.Documents = make(map[string]string)
		}
		d.Documents[k] = v
	}
	return d, nil
}
