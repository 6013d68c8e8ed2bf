package testutil_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/broady/restcat"
	"github.com/broady/restcat/testutil"
)

// echo answers with the envelope shapes the explorer API uses.
var echo = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Method", r.Method)
	if r.URL.Query().Get("fail") != "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": restcat.DefaultErrorTransformer(&restcat.ValidationError{
			Violations: []restcat.Violation{{Param: "password", Code: restcat.MissingParameter, Message: "missing"}},
		})})
		return
	}
	var body any
	json.NewDecoder(r.Body).Decode(&body)
	json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{
		"query": r.URL.Query(),
		"body":  body,
		"token": r.Header.Get("Authorization"),
	}})
})

func TestRequestBuilder(t *testing.T) {
	w := testutil.NewRequest().
		POST("/api/prepare").
		WithJSON(map[string]string{"template": "auth/login"}).
		WithHeader("Authorization", "Bearer t").
		WithQuery("field", "a").
		WithQuery("field", "b").
		Do(echo)

	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertHeader(t, w, "X-Method", "POST")
	testutil.AssertResult(t, w, map[string]any{
		"query": map[string][]string{"field": {"a", "b"}},
		"body":  map[string]string{"template": "auth/login"},
		"token": "Bearer t",
	})
}

func TestDecodeResult(t *testing.T) {
	w := testutil.NewRequest().GET("/api/endpoints").WithQuery("q", "alerts").Do(echo)
	var res struct {
		Query map[string][]string `json:"query"`
	}
	testutil.DecodeResult(t, w, &res)
	if res.Query["q"][0] != "alerts" {
		t.Errorf("unexpected query %v", res.Query)
	}
}

func TestAssertError(t *testing.T) {
	w := testutil.NewRequest().Method("GET", "/api/prepare").WithQuery("fail", "1").Do(echo)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	e := testutil.AssertError(t, w, restcat.CodeInvalidArgument)
	testutil.AssertViolation(t, e, "password", restcat.MissingParameter)
}

func TestParseCatalog(t *testing.T) {
	cat := testutil.ParseCatalog(t, `{"auth/login": {"methods": {"POST": {"params": {}}}}}`)
	if cat.Len() != 1 {
		t.Errorf("expected 1 endpoint, got %d", cat.Len())
	}
	if testutil.LoadCatalog(t, "../testdata/catalog.json").Len() != 11 {
		t.Error("expected the shared fixture to have 11 endpoints")
	}
}
