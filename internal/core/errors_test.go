package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainErrorError(t *testing.T) {
	err := ErrInvalidRequest(CodeEmptyPrompt, "request prompt is empty")
	want := "[validation] EMPTY_PROMPT: request prompt is empty"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := ErrExpertInvocation("reviewer", errors.New("exit status 1"))
	if got := wrapped.Error(); got != "[execution] EXPERT_INVOCATION_FAILED: expert reviewer invocation failed (exit status 1)" {
		t.Errorf("Error() with cause = %q", got)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrExpertInvocation("architect", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *DomainError
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{"invalid request", ErrInvalidRequest(CodeEmptyPrompt, "m"), ErrCatValidation, CodeEmptyPrompt, false},
		{"expert timeout", ErrExpertTimeout("tester"), ErrCatTimeout, CodeExpertTimeout, true},
		{"expert invocation", ErrExpertInvocation("tester", nil), ErrCatExecution, CodeExpertInvocation, true},
		{"all experts failed", ErrAllExpertsFailed(6), ErrCatConsensus, CodeAllExpertsFailed, false},
		{"rate limit", ErrRateLimit("gemini"), ErrCatRateLimit, CodeRateLimited, true},
		{"not found", ErrNotFound("expert", "x"), ErrCatNotFound, "NOT_FOUND", false},
		{"storage", ErrStorage(CodeHistoryWrite, "m"), ErrCatStorage, CodeHistoryWrite, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Category != tt.category {
				t.Errorf("Category = %s, want %s", tt.err.Category, tt.category)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.code)
			}
			if tt.err.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", tt.err.Retryable, tt.retryable)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(ErrExpertTimeout("a")) {
		t.Error("expert timeout should be retryable")
	}
	if IsRetryable(ErrAllExpertsFailed(3)) {
		t.Error("all-experts-failed should not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}

func TestGetCategory(t *testing.T) {
	if got := GetCategory(ErrExpertTimeout("a")); got != ErrCatTimeout {
		t.Errorf("GetCategory = %s, want %s", got, ErrCatTimeout)
	}

	// Wrapped errors are still classified.
	wrapped := fmt.Errorf("dispatch: %w", ErrAllExpertsFailed(2))
	if got := GetCategory(wrapped); got != ErrCatConsensus {
		t.Errorf("GetCategory(wrapped) = %s, want %s", got, ErrCatConsensus)
	}

	if got := GetCategory(errors.New("plain")); got != ErrCatInternal {
		t.Errorf("GetCategory(plain) = %s, want %s", got, ErrCatInternal)
	}
}

func TestIsAllExpertsFailed(t *testing.T) {
	if !IsAllExpertsFailed(ErrAllExpertsFailed(6)) {
		t.Error("direct all-experts-failed not recognized")
	}
	if !IsAllExpertsFailed(fmt.Errorf("engine: %w", ErrAllExpertsFailed(6))) {
		t.Error("wrapped all-experts-failed not recognized")
	}
	if IsAllExpertsFailed(ErrExpertTimeout("a")) {
		t.Error("timeout misclassified as all-experts-failed")
	}
}

func TestDomainErrorIs(t *testing.T) {
	a := ErrExpertTimeout("x")
	b := ErrExpertTimeout("y")
	if !errors.Is(a, b) {
		t.Error("same category+code should match via errors.Is")
	}
	if errors.Is(a, ErrAllExpertsFailed(1)) {
		t.Error("different code should not match")
	}
}

func TestWithDetail(t *testing.T) {
	err := ErrInvalidRequest(CodeInvalidThreshold, "m").WithDetail("consensus_threshold", 1.5)
	if err.Details["consensus_threshold"] != 1.5 {
		t.Errorf("Details = %v, want consensus_threshold=1.5", err.Details)
	}
}
