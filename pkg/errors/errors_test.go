package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeOutOfStock, http.StatusConflict},
		{CodeBelowMinimum, http.StatusBadRequest},
		{CodeUsageExceeded, http.StatusConflict},
		{CodeSignatureMismatch, http.StatusUnauthorized},
		{CodeCancellationForbidden, http.StatusUnprocessableEntity},
		{CodeInvalidTransition, http.StatusUnprocessableEntity},
		{CodeAlreadySettled, http.StatusConflict},
	}
	for _, tc := range cases {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Errorf("MetadataFor(%s).HTTPStatus = %d, want %d", tc.code, got, tc.status)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected fallback status %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "reserve stock")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped error should match its cause")
	}
	typed := As(err)
	if typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("unexpected typed error: %v", typed)
	}
	if typed.Message() != "reserve stock" {
		t.Fatalf("unexpected message %q", typed.Message())
	}
}

func TestAsReturnsNilForForeignErrors(t *testing.T) {
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for non-coded error")
	}
	if As(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeOutOfStock, "insufficient stock for product").
		WithDetails(map[string]any{"product": "Linen Kurta", "requested": 3})
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("unexpected details type %T", err.Details())
	}
	if details["product"] != "Linen Kurta" {
		t.Fatalf("unexpected details %v", details)
	}
}
