package restcat

import (
	"sort"
	"strings"

	"github.com/broady/restcat/internal/expr"
	"github.com/samber/lo"
)

// Datatype sentinels and the datatypes the validator understands.
const (
	DatatypeString    = "String"
	DatatypeNumber    = "Number"
	DatatypeBoolean   = "Boolean"
	DatatypeEnum      = "Enum"
	DatatypeInherited = "INHERITED"
	DatatypeUndone    = "UNDONE"
)

// Catalog is an immutable, loaded endpoint catalog. It is safe for concurrent
// use; nothing in this module mutates a Catalog after Load returns it, and
// callers must not modify the values reachable from it either.
type Catalog struct {
	endpoints map[string]*Endpoint
	templates []string
}

// Endpoint is a URL template plus its per-method contracts.
type Endpoint struct {
	Template Template
	Summary  string
	Methods  map[string]*MethodDescriptor
}

// MethodDescriptor documents one HTTP method on an endpoint.
type MethodDescriptor struct {
	Method    string
	Summary   string
	Config    string
	Request   string
	Response  string
	URLParams map[string]URLParam
	Params    map[string]*ParamSpec
	Returns   map[int]Return
}

// URLParam documents a path placeholder.
type URLParam struct {
	Required bool
	Summary  string
}

// Return documents one status code.
type Return struct {
	Summary string
}

// ParamSpec is the declared contract of a single request parameter.
type ParamSpec struct {
	Name     string
	Datatype string
	Default  string
	// Required is the parsed form of RequiredRaw. RequiredRaw is kept so an
	// inheriting entry that never restated the flag can be told apart from
	// one that restated it as false.
	Required    bool
	RequiredRaw string
	Summary     string
	Validation  string
}

// IsInherited reports whether the spec defers to an ancestor endpoint.
func (p *ParamSpec) IsInherited() bool {
	return strings.EqualFold(strings.TrimSpace(p.Datatype), DatatypeInherited)
}

// Kind returns the normalized datatype used for validation: one of
// DatatypeString, DatatypeNumber, DatatypeBoolean, DatatypeEnum or
// DatatypeInherited. Unrecognized datatypes (including UNDONE and n/a) are
// reported as DatatypeString, which carries no constraint beyond presence.
func (p *ParamSpec) Kind() string {
	switch strings.ToLower(strings.TrimSpace(p.Datatype)) {
	case "number":
		return DatatypeNumber
	case "boolean", "bool":
		return DatatypeBoolean
	case "enum":
		return DatatypeEnum
	case "inherited":
		return DatatypeInherited
	default:
		return DatatypeString
	}
}

// ParseFlag parses the catalog's stringly-typed booleans ("true", "True",
// "false", "1", "0"). ok is false when raw is empty or unrecognized.
func ParseFlag(raw string) (value, ok bool) {
	return expr.ParseBool(strings.TrimSpace(raw))
}

func newCatalog(endpoints map[string]*Endpoint) *Catalog {
	templates := lo.Keys(endpoints)
	sort.Strings(templates)
	return &Catalog{endpoints: endpoints, templates: templates}
}

// Len returns the number of endpoints.
func (c *Catalog) Len() int {
	return len(c.endpoints)
}

// Templates returns every URL template in sorted order.
func (c *Catalog) Templates() []string {
	return append([]string(nil), c.templates...)
}

// Endpoint returns the endpoint for a URL template. Leading and trailing
// slashes are ignored.
func (c *Catalog) Endpoint(template string) (*Endpoint, bool) {
	ep, ok := c.endpoints[normalizeTemplate(template)]
	return ep, ok
}

// Method returns the descriptor of one method on one endpoint.
func (c *Catalog) Method(template, method string) (*MethodDescriptor, error) {
	ep, ok := c.Endpoint(template)
	if !ok {
		return nil, &lookupError{sentinel: ErrUnknownEndpoint, template: template}
	}
	md, ok := ep.Methods[strings.ToUpper(method)]
	if !ok {
		return nil, &lookupError{sentinel: ErrUnknownMethod, template: template, method: strings.ToUpper(method)}
	}
	return md, nil
}

// MethodNames returns the documented methods of an endpoint in sorted order.
func (ep *Endpoint) MethodNames() []string {
	names := lo.Keys(ep.Methods)
	sort.Strings(names)
	return names
}

// EndpointSummary is a compact listing entry.
type EndpointSummary struct {
	Template string `json:"template"`
	Method   string `json:"method"`
	Summary  string `json:"summary"`
}

// Filter lists endpoint methods whose template starts with prefix and whose
// method equals method. Empty filters match everything.
func (c *Catalog) Filter(prefix, method string) []EndpointSummary {
	prefix = normalizeTemplate(prefix)
	method = strings.ToUpper(method)

	var results []EndpointSummary
	for _, t := range c.templates {
		if prefix != "" && !strings.HasPrefix(t, prefix) {
			continue
		}
		ep := c.endpoints[t]
		for _, m := range ep.MethodNames() {
			if method != "" && m != method {
				continue
			}
			results = append(results, EndpointSummary{
				Template: t,
				Method:   m,
				Summary:  summaryOf(ep, ep.Methods[m]),
			})
		}
	}
	return results
}

// Search returns endpoint methods whose template, endpoint summary, method
// summary or parameter names contain query, case-insensitively.
func (c *Catalog) Search(query string) []EndpointSummary {
	query = strings.ToLower(strings.TrimSpace(query))
	var results []EndpointSummary
	for _, t := range c.templates {
		ep := c.endpoints[t]
		for _, m := range ep.MethodNames() {
			md := ep.Methods[m]
			if query != "" && !matches(query, t, ep, md) {
				continue
			}
			results = append(results, EndpointSummary{
				Template: t,
				Method:   m,
				Summary:  summaryOf(ep, md),
			})
		}
	}
	return results
}

func matches(query, template string, ep *Endpoint, md *MethodDescriptor) bool {
	if strings.Contains(strings.ToLower(template), query) {
		return true
	}
	if strings.Contains(strings.ToLower(ep.Summary), query) {
		return true
	}
	if strings.Contains(strings.ToLower(md.Summary), query) {
		return true
	}
	for name := range md.Params {
		if strings.Contains(strings.ToLower(name), query) {
			return true
		}
	}
	return false
}

func summaryOf(ep *Endpoint, md *MethodDescriptor) string {
	if md.Summary != "" {
		return md.Summary
	}
	return ep.Summary
}

func normalizeTemplate(t string) string {
	return strings.Trim(strings.TrimSpace(t), "/")
}
