// # internal/cerrors/cerrors_test.go
package cerrors

import (
	"errors"
	"strings"
	"testing"
)

func TestDomainErrorFormatting(t *testing.T) {
	err := New(CodeValidationError, "bad pattern")
	if !strings.Contains(err.Error(), "[VALIDATION_ERROR] bad pattern") {
		t.Errorf("unexpected message: %s", err.Error())
	}

	wrapped := Wrap(errors.New("boom"), CodeStorage, "open history")
	if !strings.Contains(wrapped.Error(), "boom") {
		t.Errorf("expected cause in message: %s", wrapped.Error())
	}
}

func TestAddContext(t *testing.T) {
	err := Wrap(errors.New("boom"), CodeParseError, "parse file")
	err = AddContext(err, CtxPath, "pkg/mod.py")
	err = AddContext(err, CtxOperation, "bind")

	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("expected a DomainError")
	}
	if de.Context[CtxPath] != "pkg/mod.py" {
		t.Errorf("missing path context: %v", de.Context)
	}
	if de.Context[CtxOperation] != "bind" {
		t.Errorf("missing operation context: %v", de.Context)
	}

	// Non-domain errors are wrapped on first context attach.
	plain := AddContext(errors.New("plain"), CtxModule, "lib")
	if !errors.As(plain, &de) {
		t.Fatal("expected plain error to be wrapped")
	}
	if de.Code != CodeInternal {
		t.Errorf("expected internal code, got %s", de.Code)
	}
}

func TestIsCodeAndUnwrap(t *testing.T) {
	cause := errors.New("root")
	err := Wrap(cause, CodeNotFound, "missing module")

	if !IsCode(err, CodeNotFound) {
		t.Error("expected code to match")
	}
	if IsCode(err, CodeStorage) {
		t.Error("expected mismatched code to fail")
	}
	if IsCode(errors.New("plain"), CodeNotFound) {
		t.Error("expected plain error not to match")
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to reach the cause")
	}
}
