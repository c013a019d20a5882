package diag

import (
	"strings"
	"testing"
)

func TestReporter_AccumulatesMultipleDiagnostics(t *testing.T) {
	r := New()
	if r.HasErrors() {
		t.Fatal("fresh Reporter should have no errors")
	}

	r.Report(1, "'x'", "Expect expression.")
	r.Report(2, "end", "Unterminated string.")

	if !r.HasErrors() {
		t.Fatal("expected HasErrors after two reports")
	}

	err := r.Err()
	if err == nil {
		t.Fatal("expected a non-nil summary error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Expect expression.") || !strings.Contains(msg, "Unterminated string.") {
		t.Fatalf("expected summary to mention both diagnostics, got %q", msg)
	}
}

func TestReporter_Reset(t *testing.T) {
	r := New()
	r.Report(1, "'x'", "Expect expression.")
	if !r.HasErrors() {
		t.Fatal("expected HasErrors before Reset")
	}
	r.Reset()
	if r.HasErrors() {
		t.Fatal("expected no errors after Reset")
	}
	if r.Err() != nil {
		t.Fatal("expected nil Err() after Reset")
	}
}
