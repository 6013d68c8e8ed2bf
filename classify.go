package restcat

// Outcome is the coarse meaning of a response status.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeRedirect        Outcome = "redirect"
	OutcomeValidationError Outcome = "validation_error"
	OutcomeAuthError       Outcome = "auth_error"
	OutcomePermissionError Outcome = "permission_error"
	OutcomeNotFound        Outcome = "not_found"
	OutcomeConflict        Outcome = "conflict"
	OutcomeClientError     Outcome = "client_error"
	OutcomeServerError     Outcome = "server_error"
	OutcomeFeatureDisabled Outcome = "feature_disabled"
	OutcomeUnknown         Outcome = "unknown"
)

// Classification describes a response status in terms of the endpoint's
// documented returns table.
type Classification struct {
	Status  int     `json:"status"`
	Outcome Outcome `json:"outcome"`
	// Summary is the documented text for Status, empty when undocumented.
	Summary    string `json:"summary,omitempty"`
	Documented bool   `json:"documented"`
}

// Classify maps a status code to an outcome. A code listed in returns
// carries its documented summary; any other code falls back to its class.
func Classify(status int, returns map[int]Return) Classification {
	c := Classification{Status: status, Outcome: outcomeFor(status)}
	if r, ok := returns[status]; ok {
		c.Summary = r.Summary
		c.Documented = true
	}
	return c
}

func outcomeFor(status int) Outcome {
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case status >= 300 && status < 400:
		return OutcomeRedirect
	case status == 400:
		return OutcomeValidationError
	case status == 401:
		return OutcomeAuthError
	case status == 403:
		return OutcomePermissionError
	case status == 404:
		return OutcomeNotFound
	case status == 409:
		return OutcomeConflict
	case status >= 400 && status < 500:
		return OutcomeClientError
	case status == 503:
		return OutcomeFeatureDisabled
	case status >= 500 && status < 600:
		return OutcomeServerError
	default:
		return OutcomeUnknown
	}
}

// Retryable reports whether the outcome may succeed on a later attempt
// without changing the request.
func (o Outcome) Retryable() bool {
	return o == OutcomeServerError || o == OutcomeFeatureDisabled
}
