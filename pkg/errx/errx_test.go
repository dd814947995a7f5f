package errx_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Abraxas-365/hybridparse/pkg/errx"
)

var (
	testRegistry = errx.NewRegistry("TEST")
	codeUpstream = testRegistry.Register("UPSTREAM", errx.TypeExternal, 0, "upstream failed")
	codeBadInput = testRegistry.Register("BAD_INPUT", errx.TypeValidation, 0, "bad input")
)

func TestRegistryPrefixesCodes(t *testing.T) {
	err := testRegistry.New(codeUpstream)
	if err.Code != "TEST_UPSTREAM" {
		t.Fatalf("code = %q", err.Code)
	}
	if err.HTTPStatus != 502 {
		t.Fatalf("status = %d", err.HTTPStatus)
	}
	if got := testRegistry.Codes(); len(got) != 2 || got[0] != "TEST_BAD_INPUT" {
		t.Fatalf("codes = %v", got)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), true},
		{"cancelled", fmt.Errorf("call: %w", context.Canceled), false},
		{"external default", testRegistry.New(codeUpstream), true},
		{"validation default", testRegistry.New(codeBadInput), false},
		{"explicit non retryable", testRegistry.New(codeUpstream).NonRetryable(), false},
		{"explicit retryable", testRegistry.New(codeBadInput).Retryable(), true},
		{"wrapped flag wins", errx.Wrap(testRegistry.New(codeUpstream).NonRetryable(), "outer", errx.TypeExternal), false},
		{"outer flag wins", testRegistry.NewWithCause(codeUpstream, testRegistry.New(codeBadInput)).Retryable(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errx.IsRetryable(tt.err); got != tt.want {
				t.Fatalf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestHasCodeWalksChain(t *testing.T) {
	inner := testRegistry.New(codeBadInput)
	outer := testRegistry.NewWithCause(codeUpstream, fmt.Errorf("ctx: %w", inner))
	if !errx.HasCode(outer, codeBadInput) {
		t.Fatal("expected inner code to be found")
	}
	if errx.CodeOf(outer) != codeUpstream.Code {
		t.Fatalf("CodeOf = %q", errx.CodeOf(outer))
	}
}
