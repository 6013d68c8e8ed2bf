package restcat

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSchemaConcreteIdentity(t *testing.T) {
	eng := newTestEngine(t)
	md, err := eng.Catalog().Method("auth/login", "POST")
	if err != nil {
		t.Fatalf("Method: %v", err)
	}
	s, err := eng.Schema("auth/login", "POST")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if diff := cmp.Diff(md.Params, s.Params); diff != "" {
		t.Errorf("concrete params should resolve to themselves (-want +got):\n%s", diff)
	}
}

func TestSchemaInheritedFromParent(t *testing.T) {
	eng := newTestEngine(t)
	s, err := eng.Schema("apps/local/{name}", "POST")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}

	desc := s.Params["description"]
	if desc.IsInherited() {
		t.Fatal("description still carries the INHERITED marker")
	}
	want := &ParamSpec{
		Name:        "description",
		Datatype:    "String",
		Required:    false,
		RequiredRaw: "false",
		Summary:     "Short explanatory string displayed underneath the app's title in Launcher.",
	}
	if diff := cmp.Diff(want, desc); diff != "" {
		t.Errorf("description mismatch (-want +got):\n%s", diff)
	}

	visible := s.Params["visible"]
	if visible.Kind() != DatatypeBoolean {
		t.Errorf("expected visible to resolve to Boolean, got %s", visible.Datatype)
	}
	if visible.Summary != "Show the app in Launcher." {
		t.Errorf("inline summary should win, got %q", visible.Summary)
	}
	if visible.Default != "true" {
		t.Errorf("ancestor default should be kept, got %q", visible.Default)
	}

	if v := s.Params["version"].Validation; v == "" {
		t.Error("expected version to inherit its validation expression")
	}
}

func TestSchemaFamilyInheritance(t *testing.T) {
	eng := newTestEngine(t)
	s, err := eng.Schema("deployment/serverclass/{name}", "POST")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	spec, ok := s.Lookup("whitelist.5")
	if !ok {
		t.Fatal("expected whitelist.5 to match the whitelist.0 family")
	}
	if spec.Kind() != DatatypeString || spec.Summary == "" {
		t.Errorf("expected family to resolve through whitelist.*, got %+v", spec)
	}
}

func TestSchemaLookupPrefersExact(t *testing.T) {
	eng := newTestEngine(t)
	s, err := eng.Schema("saved/searches", "POST")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	exact, _ := s.Lookup("action.email.to")
	if exact.Name != "action.email.to" {
		t.Errorf("expected exact declaration, got %s", exact.Name)
	}
	fam, ok := s.Lookup("action.script.filename")
	if !ok || fam.Name != "action.*" {
		t.Errorf("expected action.* family, got %+v", fam)
	}
	if _, ok := s.Lookup("dispatch.other"); ok {
		t.Error("dispatch.other should not match anything")
	}
}

func TestSchemaPassthrough(t *testing.T) {
	eng := newTestEngine(t)
	s, err := eng.Schema("properties/{file}/{stanza}", "POST")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if !s.Passthrough() {
		t.Error("expected passthrough schema")
	}
	if len(s.Params) != 0 {
		t.Errorf("passthrough marker should not be a named param, got %v", s.Names())
	}
}

func TestSchemaRecursiveInheritance(t *testing.T) {
	cat := mustParse(t, `{
		"a": {"methods": {"POST": {"params": {"p": {"datatype": "Number", "summary": "root"}}}}},
		"a/{x}": {"methods": {"POST": {"params": {"p": {"datatype": "INHERITED"}}}}},
		"a/{y}/b": {"methods": {"POST": {"params": {"p": {"datatype": "INHERITED", "required": "true"}}}}}
	}`)
	eng := New(cat).WithLogger(discardLogger())
	s, err := eng.Schema("a/{y}/b", "POST")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	p := s.Params["p"]
	if p.Kind() != DatatypeNumber || p.Summary != "root" || !p.Required {
		t.Errorf("unexpected resolution: %+v", p)
	}
}

func TestSchemaInheritsAcrossMethods(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "collection declares it only under POST",
			src: `{
				"things": {"methods": {"POST": {"params": {"mode": {"datatype": "Boolean"}}}}},
				"things/{name}": {"methods": {"GET": {"params": {"mode": {"datatype": "INHERITED"}}}}}
			}`,
			want: DatatypeBoolean,
		},
		{
			name: "same method wins",
			src: `{
				"things": {"methods": {
					"GET": {"params": {"mode": {"datatype": "Number"}}},
					"POST": {"params": {"mode": {"datatype": "Boolean"}}}
				}},
				"things/{name}": {"methods": {"GET": {"params": {"mode": {"datatype": "INHERITED"}}}}}
			}`,
			want: DatatypeNumber,
		},
		{
			name: "POST before other methods",
			src: `{
				"things": {"methods": {
					"DELETE": {"params": {"mode": {"datatype": "Number"}}},
					"POST": {"params": {"mode": {"datatype": "Boolean"}}}
				}},
				"things/{name}": {"methods": {"GET": {"params": {"mode": {"datatype": "INHERITED"}}}}}
			}`,
			want: DatatypeBoolean,
		},
		{
			name: "other methods sorted",
			src: `{
				"things": {"methods": {
					"PUT": {"params": {"mode": {"datatype": "Boolean"}}},
					"DELETE": {"params": {"mode": {"datatype": "Number"}}}
				}},
				"things/{name}": {"methods": {"GET": {"params": {"mode": {"datatype": "INHERITED"}}}}}
			}`,
			want: DatatypeNumber,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := New(mustParse(t, tt.src)).WithLogger(discardLogger())
			s, err := eng.Schema("things/{name}", "GET")
			if err != nil {
				t.Fatalf("Schema: %v", err)
			}
			if got := s.Params["mode"].Kind(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestSchemaUnresolvedInheritance(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{
			name: "no ancestor",
			src:  `{"a/{x}": {"methods": {"POST": {"params": {"p": {"datatype": "INHERITED"}}}}}}`,
		},
		{
			name: "ancestor lacks param under every method",
			src: `{
				"a": {"methods": {"GET": {"params": {"q": {"datatype": "Number"}}}}},
				"a/{x}": {"methods": {"POST": {"params": {"p": {"datatype": "INHERITED"}}}}}
			}`,
		},
		{
			name: "ancestor lacks param",
			src: `{
				"a": {"methods": {"POST": {"params": {"q": {"datatype": "Number"}}}}},
				"a/{x}": {"methods": {"POST": {"params": {"p": {"datatype": "INHERITED"}}}}}
			}`,
		},
		{
			name: "sibling is not an ancestor",
			src: `{
				"b/{x}": {"methods": {"POST": {"params": {"p": {"datatype": "Number"}}}}},
				"a/{x}": {"methods": {"POST": {"params": {"p": {"datatype": "INHERITED"}}}}}
			}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := New(mustParse(t, tt.src)).WithLogger(discardLogger())
			_, err := eng.Schema("a/{x}", "POST")
			if err == nil {
				t.Fatal("expected unresolved inheritance")
			}
			var cerr *CatalogIntegrityError
			if !errors.As(err, &cerr) {
				t.Fatalf("expected *CatalogIntegrityError, got %T", err)
			}
			want := CatalogIntegrityError{
				Kind:     UnresolvedInheritance,
				Template: "a/{x}",
				Method:   "POST",
				Param:    "p",
				Reason:   cerr.Reason,
			}
			if diff := cmp.Diff(want, *cerr); diff != "" {
				t.Errorf("error mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSchemaCached(t *testing.T) {
	eng := newTestEngine(t)
	s1, err := eng.Schema("apps/local/{name}", "POST")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	s2, _ := eng.Schema("/apps/local/{name}", "post")
	if s1 != s2 {
		t.Error("expected the cached schema to be returned")
	}
}

func TestSchemaLookupErrors(t *testing.T) {
	eng := newTestEngine(t)
	if _, err := eng.Schema("no/such/thing", "GET"); !errors.Is(err, ErrUnknownEndpoint) {
		t.Errorf("expected ErrUnknownEndpoint, got %v", err)
	}
	if _, err := eng.Schema("auth/login", "GET"); !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestAncestorsNearestFirst(t *testing.T) {
	cat := mustParse(t, `{
		"a": {"methods": {}},
		"a/{x}": {"methods": {}},
		"a/{x}/b": {"methods": {}},
		"a/{x}/b/{y}": {"methods": {}},
		"a/z/b": {"methods": {}}
	}`)
	eng := New(cat)
	var got []string
	for _, ep := range eng.ancestors(MustParseTemplate("a/{q}/b/{y}")) {
		got = append(got, ep.Template.String())
	}
	want := []string{"a/{x}/b", "a/{x}", "a"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ancestors mismatch (-want +got):\n%s", diff)
	}
}
