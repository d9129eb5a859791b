package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfClassifiedError(t *testing.T) {
	err := New(UserCancelled, "mint.sign", "signature request dismissed")
	if got := KindOf(err); got != UserCancelled {
		t.Fatalf("expected user_cancelled, got %s", got)
	}
	wrapped := fmt.Errorf("run mint: %w", err)
	if got := KindOf(wrapped); got != UserCancelled {
		t.Fatalf("kind lost through wrapping: %s", got)
	}
}

func TestKindOfUnclassifiedDefaultsToNetwork(t *testing.T) {
	if got := KindOf(errors.New("connection refused")); got != Network {
		t.Fatalf("expected network for bare error, got %s", got)
	}
}

func TestWrapPreservesInnerKind(t *testing.T) {
	inner := New(ExecutionReverted, "chain.mint", "transaction reverted")
	outer := Wrap(Network, "mint.run", inner, "mint failed")
	if outer.Kind != ExecutionReverted {
		t.Fatalf("wrap must keep the inner kind, got %s", outer.Kind)
	}
	if !errors.Is(outer, outer) || outer.Unwrap() != inner {
		t.Fatalf("unwrap chain broken")
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{Validation, false},
		{UserCancelled, false},
		{Network, true},
		{RemoteRejection, true},
		{ExecutionReverted, true},
	}
	for _, tc := range cases {
		err := New(tc.kind, "op", "msg")
		if got := Retryable(err); got != tc.want {
			t.Fatalf("Retryable(%s): got %v want %v", tc.kind, got, tc.want)
		}
	}
}
