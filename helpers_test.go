package restcat

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

const fixturePath = "testdata/catalog.json"

// loadFixture loads the shared test catalog.
func loadFixture(t *testing.T) *Catalog {
	t.Helper()
	cat, err := LoadFile(fixturePath)
	if err != nil {
		t.Fatalf("loading fixture: %v", err)
	}
	return cat
}

// newTestEngine returns a quiet engine over the shared test catalog.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(loadFixture(t)).WithLogger(discardLogger())
}

// mustParse parses an inline catalog.
func mustParse(t *testing.T, src string) *Catalog {
	t.Helper()
	cat, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cat
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// violationsOf extracts the violations from a *ValidationError.
func violationsOf(t *testing.T, err error) []Violation {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T: %v", err, err)
	}
	return verr.Violations
}

func integrityKind(t *testing.T, err error) IntegrityKind {
	t.Helper()
	var cerr *CatalogIntegrityError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *CatalogIntegrityError, got %T: %v", err, err)
	}
	return cerr.Kind
}
