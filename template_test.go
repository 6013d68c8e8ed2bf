package restcat

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		holders []string
		wantErr bool
	}{
		{in: "apps/local", want: "apps/local"},
		{in: "/apps/local/{name}/", want: "apps/local/{name}", holders: []string{"name"}},
		{in: "properties/{file}/{stanza}", want: "properties/{file}/{stanza}", holders: []string{"file", "stanza"}},
		{in: "storage/{ns}-{name}/{ns}", want: "storage/{ns}-{name}/{ns}", holders: []string{"ns", "name"}},
		{in: "apps/{name", wantErr: true},
		{in: "apps/{}", wantErr: true},
		{in: "apps/name}", wantErr: true},
		{in: "apps/{a/b}", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			tmpl, err := ParseTemplate(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTemplate: %v", err)
			}
			if tmpl.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, tmpl.String())
			}
			if diff := cmp.Diff(tt.holders, tmpl.Placeholders()); diff != "" {
				t.Errorf("placeholders mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTemplateResolve(t *testing.T) {
	required := map[string]URLParam{"name": {Required: true}}
	optional := map[string]URLParam{"name": {Required: false}}

	tests := []struct {
		name      string
		template  string
		values    map[string]string
		params    map[string]URLParam
		mode      PathMode
		want      string
		wantCodes []ViolationCode
	}{
		{
			name:     "wildcard segment kept verbatim",
			template: "data/inputs/monitor/{name}",
			values:   map[string]string{"name": "-"},
			params:   required,
			want:     "data/inputs/monitor/-",
		},
		{
			name:     "space escaped",
			template: "data/inputs/monitor/{name}",
			values:   map[string]string{"name": "a b"},
			params:   required,
			want:     "data/inputs/monitor/a%20b",
		},
		{
			name:     "slash escaped",
			template: "data/inputs/monitor/{name}",
			values:   map[string]string{"name": "/var/log"},
			params:   required,
			want:     "data/inputs/monitor/%2Fvar%2Flog",
		},
		{
			name:     "dot segment escaped",
			template: "data/inputs/monitor/{name}",
			values:   map[string]string{"name": "."},
			params:   required,
			want:     "data/inputs/monitor/%2E",
		},
		{
			name:     "parent segment escaped",
			template: "data/inputs/monitor/{name}",
			values:   map[string]string{"name": ".."},
			params:   required,
			want:     "data/inputs/monitor/%2E%2E",
		},
		{
			name:     "dots inside a name kept",
			template: "data/inputs/monitor/{name}",
			values:   map[string]string{"name": "..log"},
			params:   required,
			want:     "data/inputs/monitor/..log",
		},
		{
			name:      "required missing",
			template:  "data/inputs/monitor/{name}",
			values:    nil,
			params:    required,
			wantCodes: []ViolationCode{MissingPathParameter},
		},
		{
			name:      "required empty",
			template:  "data/inputs/monitor/{name}",
			values:    map[string]string{"name": ""},
			params:    required,
			wantCodes: []ViolationCode{MissingPathParameter},
		},
		{
			name:      "undeclared placeholder is required",
			template:  "data/inputs/monitor/{name}",
			params:    nil,
			wantCodes: []ViolationCode{MissingPathParameter},
		},
		{
			name:     "optional missing becomes wildcard",
			template: "alerts/fired_alerts/{name}",
			params:   optional,
			want:     "alerts/fired_alerts/-",
		},
		{
			name:      "strict rejects extra values",
			template:  "apps/local/{name}",
			values:    map[string]string{"name": "search", "owner": "admin"},
			params:    required,
			mode:      PathStrict,
			wantCodes: []ViolationCode{UnknownPlaceholder},
		},
		{
			name:     "lenient ignores extra values",
			template: "apps/local/{name}",
			values:   map[string]string{"name": "search", "owner": "admin"},
			params:   required,
			mode:     PathLenient,
			want:     "apps/local/search",
		},
		{
			name:      "all problems reported",
			template:  "properties/{file}/{stanza}",
			values:    map[string]string{"extra": "x"},
			mode:      PathStrict,
			wantCodes: []ViolationCode{MissingPathParameter, MissingPathParameter, UnknownPlaceholder},
		},
		{
			name:     "placeholder inside a segment",
			template: "storage/{ns}-{name}",
			values:   map[string]string{"ns": "nobody", "name": "kv store"},
			want:     "storage/nobody-kv%20store",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, violations := MustParseTemplate(tt.template).Resolve(tt.values, tt.params, tt.mode)
			var codes []ViolationCode
			for _, v := range violations {
				codes = append(codes, v.Code)
			}
			if diff := cmp.Diff(tt.wantCodes, codes); diff != "" {
				t.Fatalf("violation codes mismatch (-want +got):\n%s", diff)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParsePathMode(t *testing.T) {
	for in, want := range map[string]PathMode{"": PathStrict, "strict": PathStrict, " Lenient ": PathLenient} {
		got, err := ParsePathMode(in)
		if err != nil || got != want {
			t.Errorf("ParsePathMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParsePathMode("loose"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestCollapsedSegments(t *testing.T) {
	a := MustParseTemplate("apps/local/{name}").collapsedSegments()
	b := MustParseTemplate("apps/local/{app}").collapsedSegments()
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("placeholders should collapse (-a +b):\n%s", diff)
	}
}
