package domain

import (
	"errors"
	"testing"
)

func TestErrorKindFatal(t *testing.T) {
	if !KindAuth.Fatal() {
		t.Error("Expected KindAuth to be fatal")
	}

	nonFatal := []ErrorKind{KindNetwork, KindRateLimit, KindIO, KindParse}
	for _, k := range nonFatal {
		if k.Fatal() {
			t.Errorf("Expected %s to not be fatal", k)
		}
	}
}

func TestResourceError(t *testing.T) {
	cause := errors.New("connection reset by peer")
	err := &ResourceError{
		Resource: `file 123 "syllabus.pdf"`,
		Kind:     KindNetwork,
		Err:      cause,
	}

	expected := `file 123 "syllabus.pdf": network: connection reset by peer`
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}

	if !errors.Is(err, cause) {
		t.Error("Expected errors.Is to find the wrapped cause")
	}
}
