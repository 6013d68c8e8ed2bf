package restcat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	CodeInvalidArgument  ErrorCode = "invalid_argument"
	CodeUnauthenticated  ErrorCode = "unauthenticated"
	CodePermissionDenied ErrorCode = "permission_denied"
	CodeNotFound         ErrorCode = "not_found"
	CodeMethodNotAllowed ErrorCode = "method_not_allowed"
	CodeConflict         ErrorCode = "conflict"
	CodeCanceled         ErrorCode = "canceled"
	CodeCatalogIntegrity ErrorCode = "catalog_integrity"
	CodeInternal         ErrorCode = "internal"
	CodeUnavailable      ErrorCode = "unavailable"
	CodeDeadlineExceeded ErrorCode = "deadline_exceeded"
)

var (
	// ErrCatalogIntegrity is wrapped by every *CatalogIntegrityError.
	ErrCatalogIntegrity = errors.New("catalog integrity error")

	// ErrUnknownEndpoint is returned when a template is not in the catalog.
	ErrUnknownEndpoint = errors.New("unknown endpoint")

	// ErrUnknownMethod is returned when an endpoint does not document a method.
	ErrUnknownMethod = errors.New("method not documented for endpoint")
)

// Error is the standard JSON error envelope.
type Error struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new error with the given code.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a new error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WithDetail returns a new Error with the key-value pair added to details.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// WithDetails returns a new Error with the provided map merged into details.
func (e *Error) WithDetails(details map[string]any) *Error {
	if len(details) == 0 {
		return e
	}
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: merged,
	}
}

// lookupError wraps a sentinel lookup error with the endpoint it concerns.
type lookupError struct {
	sentinel error
	template string
	method   string
}

func (e *lookupError) Error() string {
	if e.method == "" {
		return fmt.Sprintf("%v: %s", e.sentinel, e.template)
	}
	return fmt.Sprintf("%v: %s %s", e.sentinel, e.method, e.template)
}

func (e *lookupError) Unwrap() error { return e.sentinel }

// IntegrityKind names the class of catalog defect.
type IntegrityKind string

const (
	UnresolvedInheritance IntegrityKind = "unresolved_inheritance"
	MalformedTemplate     IntegrityKind = "malformed_template"
	MalformedEnum         IntegrityKind = "malformed_enum"
	MalformedExpression   IntegrityKind = "malformed_expression"
	MalformedReturns      IntegrityKind = "malformed_returns"
)

// CatalogIntegrityError reports a defect in the catalog itself. It is not
// retryable: the catalog has to be fixed.
type CatalogIntegrityError struct {
	Kind     IntegrityKind
	Template string
	Method   string
	Param    string
	Reason   string
}

func (e *CatalogIntegrityError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	if e.Method != "" {
		b.WriteString(e.Method)
		b.WriteByte(' ')
	}
	b.WriteString(e.Template)
	if e.Param != "" {
		fmt.Fprintf(&b, " param %q", e.Param)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	return b.String()
}

func (e *CatalogIntegrityError) Unwrap() error { return ErrCatalogIntegrity }

// ErrorTransformer maps an application error to an *Error.
// If it returns nil, DefaultErrorTransformer is applied.
type ErrorTransformer func(error) *Error

// DefaultErrorTransformer maps engine and standard Go errors to *Error.
func DefaultErrorTransformer(err error) *Error {
	if err == nil {
		return nil
	}

	// errors.Join: the first error decides the code, all messages are kept.
	if u, ok := err.(interface{ Unwrap() []error }); ok {
		errs := u.Unwrap()
		if len(errs) > 0 {
			firstMapped := DefaultErrorTransformer(errs[0])
			msgs := make([]string, len(errs))
			for i, e := range errs {
				msgs[i] = e.Error()
			}
			return &Error{
				Code:    firstMapped.Code,
				Message: strings.Join(msgs, "; "),
				Details: firstMapped.Details,
			}
		}
	}

	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return &Error{
			Code:    CodeInvalidArgument,
			Message: verr.Error(),
			Details: map[string]any{"violations": verr.Violations},
		}
	}

	var cerr *CatalogIntegrityError
	if errors.As(err, &cerr) {
		details := map[string]any{"kind": string(cerr.Kind), "template": cerr.Template}
		if cerr.Method != "" {
			details["method"] = cerr.Method
		}
		if cerr.Param != "" {
			details["param"] = cerr.Param
		}
		return &Error{
			Code:    CodeCatalogIntegrity,
			Message: err.Error(),
			Details: details,
		}
	}

	if errors.Is(err, ErrUnknownEndpoint) {
		return NewError(CodeNotFound, err.Error())
	}

	if errors.Is(err, ErrUnknownMethod) {
		return NewError(CodeMethodNotAllowed, err.Error())
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CodeDeadlineExceeded, "request timeout")
	}

	if errors.Is(err, context.Canceled) {
		return NewError(CodeCanceled, "context canceled")
	}

	var valErrs validator.ValidationErrors
	if errors.As(err, &valErrs) {
		details := make(map[string]any)
		messages := make([]string, 0, len(valErrs))
		for _, ve := range valErrs {
			msg := formatValidationError(ve)
			details[ve.Field()] = msg
			messages = append(messages, ve.Field()+": "+msg)
		}
		return &Error{
			Code:    CodeInvalidArgument,
			Message: strings.Join(messages, "; "),
			Details: details,
		}
	}

	return NewError(CodeInternal, err.Error())
}

// HTTPStatus maps an ErrorCode to an HTTP status code.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeConflict:
		return http.StatusConflict
	case CodeCanceled:
		return 499 // Client Closed Request (Nginx standard)
	case CodeCatalogIntegrity, CodeInternal:
		return http.StatusInternalServerError
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// formatValidationError converts a validator.FieldError to a human-readable message.
func formatValidationError(ve validator.FieldError) string {
	switch ve.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must be at least %s", ve.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", ve.Param())
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", ve.Param())
	default:
		if ve.Param() != "" {
			return fmt.Sprintf("failed %s=%s validation", ve.Tag(), ve.Param())
		}
		return fmt.Sprintf("failed %s validation", ve.Tag())
	}
}
