package restcat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestNewError(t *testing.T) {
	err := NewError(CodeNotFound, "resource not found")
	if err.Code != CodeNotFound {
		t.Errorf("expected code %s, got %s", CodeNotFound, err.Code)
	}
	if err.Message != "resource not found" {
		t.Errorf("expected message 'resource not found', got %s", err.Message)
	}
}

func TestErrorf(t *testing.T) {
	err := Errorf(CodeInvalidArgument, "invalid field: %s", "template")
	if err.Message != "invalid field: template" {
		t.Errorf("expected formatted message, got %s", err.Message)
	}
	if got, want := err.Error(), "invalid_argument: invalid field: template"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestErrorWithDetails(t *testing.T) {
	base := NewError(CodeConflict, "exists")
	withOne := base.WithDetail("template", "apps/local")
	if base.Details != nil {
		t.Error("WithDetail must not modify the receiver")
	}
	merged := withOne.WithDetails(map[string]any{"method": "POST"})
	if merged.Details["template"] != "apps/local" || merged.Details["method"] != "POST" {
		t.Errorf("unexpected details: %v", merged.Details)
	}
	if same := withOne.WithDetails(nil); same != withOne {
		t.Error("WithDetails(nil) should return the receiver")
	}
}

func TestCatalogIntegrityError(t *testing.T) {
	err := &CatalogIntegrityError{
		Kind:     UnresolvedInheritance,
		Template: "apps/local/{name}",
		Method:   "POST",
		Param:    "description",
		Reason:   "no ancestor",
	}
	want := `unresolved_inheritance: POST apps/local/{name} param "description": no ancestor`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
	if !errors.Is(err, ErrCatalogIntegrity) {
		t.Error("expected errors.Is(err, ErrCatalogIntegrity)")
	}
	if !errors.Is(fmt.Errorf("loading: %w", err), ErrCatalogIntegrity) {
		t.Error("expected wrapped error to match ErrCatalogIntegrity")
	}
}

func TestDefaultErrorTransformer(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		wantCode ErrorCode
		wantMsg  string
	}{
		{
			name:     "nil error",
			input:    nil,
			wantCode: "",
			wantMsg:  "",
		},
		{
			name:     "service error passthrough",
			input:    NewError(CodeNotFound, "not found"),
			wantCode: CodeNotFound,
			wantMsg:  "not found",
		},
		{
			name:     "unknown endpoint",
			input:    &lookupError{sentinel: ErrUnknownEndpoint, template: "nope"},
			wantCode: CodeNotFound,
			wantMsg:  "unknown endpoint: nope",
		},
		{
			name:     "unknown method",
			input:    &lookupError{sentinel: ErrUnknownMethod, template: "auth/login", method: "GET"},
			wantCode: CodeMethodNotAllowed,
			wantMsg:  "method not documented for endpoint: GET auth/login",
		},
		{
			name:     "catalog integrity",
			input:    &CatalogIntegrityError{Kind: MalformedEnum, Template: "a", Method: "GET", Param: "p"},
			wantCode: CodeCatalogIntegrity,
			wantMsg:  `malformed_enum: GET a param "p"`,
		},
		{
			name:     "context deadline exceeded",
			input:    context.DeadlineExceeded,
			wantCode: CodeDeadlineExceeded,
			wantMsg:  "request timeout",
		},
		{
			name:     "context canceled",
			input:    context.Canceled,
			wantCode: CodeCanceled,
			wantMsg:  "context canceled",
		},
		{
			name:     "generic error",
			input:    errors.New("something failed"),
			wantCode: CodeInternal,
			wantMsg:  "something failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DefaultErrorTransformer(tt.input)
			if tt.input == nil {
				if result != nil {
					t.Errorf("expected nil for nil input, got %v", result)
				}
				return
			}
			if result.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, result.Code)
			}
			if result.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, result.Message)
			}
		})
	}
}

func TestDefaultErrorTransformer_Violations(t *testing.T) {
	verr := &ValidationError{Violations: []Violation{
		{Param: "password", Code: MissingParameter, Message: `missing required parameter "password"`},
	}}
	result := DefaultErrorTransformer(fmt.Errorf("prepare: %w", verr))
	if result.Code != CodeInvalidArgument {
		t.Errorf("expected code %s, got %s", CodeInvalidArgument, result.Code)
	}
	got, ok := result.Details["violations"].([]Violation)
	if !ok || len(got) != 1 || got[0].Param != "password" {
		t.Errorf("expected violations in details, got %v", result.Details)
	}
}

func TestDefaultErrorTransformer_ValidationErrors(t *testing.T) {
	type TestStruct struct {
		Template string `validate:"required"`
		Limit    int    `validate:"gte=0,lte=500"`
	}

	err := validator.New().Struct(TestStruct{Limit: -1})

	result := DefaultErrorTransformer(err)
	if result.Code != CodeInvalidArgument {
		t.Errorf("expected code %s, got %s", CodeInvalidArgument, result.Code)
	}
	if result.Message != "Template: required; Limit: failed gte=0 validation" {
		t.Errorf("unexpected message %q", result.Message)
	}
	if _, ok := result.Details["Template"]; !ok {
		t.Error("expected Template field in details")
	}
	if _, ok := result.Details["Limit"]; !ok {
		t.Error("expected Limit field in details")
	}
}

func TestDefaultErrorTransformer_MultiError(t *testing.T) {
	err1 := &CatalogIntegrityError{Kind: MalformedExpression, Template: "a", Method: "GET", Param: "x"}
	err2 := errors.New("error 2")

	result := DefaultErrorTransformer(errors.Join(err1, err2))
	if result.Code != CodeCatalogIntegrity {
		t.Errorf("expected code from first error %s, got %s", CodeCatalogIntegrity, result.Code)
	}
	if result.Message != err1.Error()+"; error 2" {
		t.Errorf("expected combined message, got %q", result.Message)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{CodeInvalidArgument, http.StatusBadRequest},
		{CodeUnauthenticated, http.StatusUnauthorized},
		{CodePermissionDenied, http.StatusForbidden},
		{CodeNotFound, http.StatusNotFound},
		{CodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{CodeConflict, http.StatusConflict},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeDeadlineExceeded, http.StatusGatewayTimeout},
		{CodeCanceled, 499},
		{CodeCatalogIntegrity, http.StatusInternalServerError},
		{CodeInternal, http.StatusInternalServerError},
		{ErrorCode("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if status := tt.code.HTTPStatus(); status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, status)
			}
		})
	}
}
