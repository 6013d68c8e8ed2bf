package restcat

import (
	"net/http"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Schema is the effective parameter set of one endpoint method, with every
// INHERITED entry replaced by the spec it resolves to.
type Schema struct {
	Template string
	Method   string
	// Params holds the resolved specs keyed by declared name. Family names
	// (whitelist.*, action.<name>) appear as declared; passthrough markers
	// do not appear at all.
	Params map[string]*ParamSpec

	families    []familySpec
	passthrough bool
}

type familySpec struct {
	*family
	spec *ParamSpec
}

// Passthrough reports whether the endpoint accepts arbitrary extra keys.
func (s *Schema) Passthrough() bool { return s.passthrough }

// Names returns the declared parameter names in sorted order.
func (s *Schema) Names() []string {
	names := lo.Keys(s.Params)
	sort.Strings(names)
	return names
}

// Lookup returns the spec governing a concrete parameter name: an exact
// declaration first, otherwise the most literal matching family.
func (s *Schema) Lookup(name string) (*ParamSpec, bool) {
	if p, ok := s.Params[name]; ok {
		return p, true
	}
	var best *familySpec
	for i := range s.families {
		f := &s.families[i]
		if !f.match(name) {
			continue
		}
		if best == nil || f.literal > best.literal {
			best = f
		}
	}
	if best == nil {
		return nil, false
	}
	return best.spec, true
}

func (s *Schema) family(declared string) (*family, bool) {
	for _, f := range s.families {
		if f.name == declared {
			return f.family, true
		}
	}
	return nil, false
}

type schemaKey struct {
	template string
	method   string
}

type paramKey struct {
	template string
	method   string
	param    string
}

// Schema returns the resolved parameter schema for a method on a template.
// Results are cached; the returned value must not be modified.
func (e *Engine) Schema(template, method string) (*Schema, error) {
	key := schemaKey{normalizeTemplate(template), strings.ToUpper(method)}
	if s, ok := e.schemas.Load(key); ok {
		return s.(*Schema), nil
	}

	md, err := e.cat.Method(template, method)
	if err != nil {
		return nil, err
	}
	ep, _ := e.cat.Endpoint(template)

	s := &Schema{
		Template: key.template,
		Method:   key.method,
		Params:   make(map[string]*ParamSpec, len(md.Params)),
	}
	for name, spec := range md.Params {
		if IsPassthrough(name) {
			s.passthrough = true
			continue
		}
		resolved := spec
		if spec.IsInherited() {
			resolved, err = e.resolveParam(ep, key.method, spec)
			if err != nil {
				return nil, err
			}
		}
		s.Params[name] = resolved
		if f, ok := compileFamily(name); ok {
			s.families = append(s.families, familySpec{family: f, spec: resolved})
		}
	}
	sort.Slice(s.families, func(i, j int) bool { return s.families[i].name < s.families[j].name })

	actual, _ := e.schemas.LoadOrStore(key, s)
	return actual.(*Schema), nil
}

// resolveParam resolves an INHERITED spec declared on ep against ep's
// ancestors, nearest first.
func (e *Engine) resolveParam(ep *Endpoint, method string, spec *ParamSpec) (*ParamSpec, error) {
	key := paramKey{ep.Template.String(), method, spec.Name}
	if p, ok := e.params.Load(key); ok {
		return p.(*ParamSpec), nil
	}
	e.logger.Debug("resolving inherited parameter",
		"template", key.template, "method", method, "param", spec.Name)

	for _, anc := range e.ancestors(ep.Template) {
		for _, m := range ancestorMethods(anc, method) {
			aspec := declaredSpec(anc.Methods[m].Params, spec.Name)
			if aspec == nil {
				continue
			}
			base := aspec
			if aspec.IsInherited() {
				var err error
				base, err = e.resolveParam(anc, m, aspec)
				if err != nil {
					continue
				}
			}
			resolved := mergeInherited(spec, base)
			actual, _ := e.params.LoadOrStore(key, resolved)
			return actual.(*ParamSpec), nil
		}
	}

	e.logger.Error("unresolved inherited parameter",
		"template", key.template, "method", method, "param", spec.Name)
	return nil, &CatalogIntegrityError{
		Kind:     UnresolvedInheritance,
		Template: key.template,
		Method:   method,
		Param:    spec.Name,
		Reason:   "no ancestor endpoint declares a concrete spec",
	}
}

// ancestorMethods orders the methods of anc searched for an inherited
// parameter: the inheriting method itself, then POST, then the rest sorted.
func ancestorMethods(anc *Endpoint, method string) []string {
	var out []string
	if _, ok := anc.Methods[method]; ok {
		out = append(out, method)
	}
	if _, ok := anc.Methods[http.MethodPost]; ok && method != http.MethodPost {
		out = append(out, http.MethodPost)
	}
	for _, m := range anc.MethodNames() {
		if m != method && m != http.MethodPost {
			out = append(out, m)
		}
	}
	return out
}

// declaredSpec finds name among an ancestor's params, exactly or through a
// family with the same canonical key.
func declaredSpec(params map[string]*ParamSpec, name string) *ParamSpec {
	if p, ok := params[name]; ok {
		return p
	}
	if !IsFamily(name) {
		return nil
	}
	key := FamilyKey(name)
	candidates := lo.Keys(params)
	sort.Strings(candidates)
	for _, c := range candidates {
		if FamilyKey(c) == key {
			return params[c]
		}
	}
	return nil
}

// mergeInherited overlays the fields restated on an inheriting entry onto
// the ancestor's concrete spec.
func mergeInherited(inline, base *ParamSpec) *ParamSpec {
	out := *base
	out.Name = inline.Name
	if inline.Summary != "" {
		out.Summary = inline.Summary
	}
	if inline.Default != "" {
		out.Default = inline.Default
	}
	if inline.RequiredRaw != "" {
		out.Required = inline.Required
		out.RequiredRaw = inline.RequiredRaw
	}
	if inline.Validation != "" {
		out.Validation = inline.Validation
	}
	return &out
}

// ancestors returns the endpoints whose templates are strict segment
// prefixes of t, placeholders compared by position only, nearest first.
func (e *Engine) ancestors(t Template) []*Endpoint {
	if a, ok := e.ancestorCache.Load(t.String()); ok {
		return a.([]*Endpoint)
	}

	segs := t.collapsedSegments()
	var found []*Endpoint
	for _, name := range e.cat.templates {
		cand := e.cat.endpoints[name]
		csegs := cand.Template.collapsedSegments()
		if len(csegs) == 0 || len(csegs) >= len(segs) {
			continue
		}
		if isSegmentPrefix(csegs, segs) {
			found = append(found, cand)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return len(found[i].Template.collapsedSegments()) > len(found[j].Template.collapsedSegments())
	})

	actual, _ := e.ancestorCache.LoadOrStore(t.String(), found)
	return actual.([]*Endpoint)
}

func isSegmentPrefix(prefix, segs []string) bool {
	for i, s := range prefix {
		if segs[i] != s {
			return false
		}
	}
	return true
}
