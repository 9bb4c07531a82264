package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinels_AreDistinctAndWrappable(t *testing.T) {
	all := []error{ErrorNotFound, ErrRemoteWrite, ErrReferenceNotFound, ErrValidation, ErrInvalidToken, ErrTokenExpired, ErrUnauthorized}

	for i, a := range all {
		wrapped := fmt.Errorf("op failed: %w", a)
		if !errors.Is(wrapped, a) {
			t.Fatalf("wrapped %v does not match its sentinel", a)
		}
		for j, b := range all {
			if i != j && errors.Is(a, b) {
				t.Fatalf("%v unexpectedly matches %v", a, b)
			}
		}
	}
}
