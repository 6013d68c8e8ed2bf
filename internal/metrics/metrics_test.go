package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/broady/restcat"
)

func TestObserveValidation(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m.ObserveValidation(nil)
	m.ObserveValidation([]restcat.Violation{
		{Param: "password", Code: restcat.MissingParameter},
		{Param: "sort_dir", Code: restcat.NotInEnum},
	})
	m.ObserveValidation([]restcat.Violation{{Param: "username", Code: restcat.MissingParameter}})

	if got := testutil.ToFloat64(m.validations.WithLabelValues("ok")); got != 1 {
		t.Errorf("expected 1 ok validation, got %v", got)
	}
	if got := testutil.ToFloat64(m.validations.WithLabelValues("invalid")); got != 2 {
		t.Errorf("expected 2 invalid validations, got %v", got)
	}
	if got := testutil.ToFloat64(m.violations.WithLabelValues(string(restcat.MissingParameter))); got != 2 {
		t.Errorf("expected 2 missing_parameter violations, got %v", got)
	}
}

func TestObserveCall(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.ObserveCall("GET", restcat.OutcomeSuccess, 20*time.Millisecond)
	m.ObserveCall("POST", restcat.OutcomeNotFound, time.Second)
	m.ObserveCallError("POST", time.Second)

	if got := testutil.ToFloat64(m.calls.WithLabelValues("not_found")); got != 1 {
		t.Errorf("expected 1 not_found call, got %v", got)
	}
	if got := testutil.ToFloat64(m.calls.WithLabelValues("transport_error")); got != 1 {
		t.Errorf("expected 1 transport error, got %v", got)
	}
	if got := testutil.CollectAndCount(m.callDuration); got != 2 {
		t.Errorf("expected histograms for 2 methods, got %d", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ObserveValidation(nil)
	m.ObserveCall("GET", restcat.OutcomeSuccess, time.Millisecond)
	m.ObserveCallError("GET", time.Millisecond)
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Error("expected registering twice on one registry to fail")
	}
}
