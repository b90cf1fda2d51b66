package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func testConfig() *Config {
	return &Config{
		Name:             "test",
		MaxFailures:      3,
		FailureThreshold: 0.5,
		Timeout:          50 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	}
}

func fail() error    { return errUpstream }
func succeed() error { return nil }

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := cb.Execute(ctx, fail); !errors.Is(err, errUpstream) {
			t.Fatalf("Execute() error = %v, want upstream error", err)
		}
	}

	if cb.GetState() != StateOpen {
		t.Fatalf("state = %s, want open", cb.GetState())
	}
	if err := cb.Execute(ctx, succeed); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Execute() error = %v, want ErrCircuitOpen", err)
	}
}

func TestSuccessResetsConsecutiveCount(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	ctx := context.Background()

	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)
	cb.Execute(ctx, succeed)
	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)

	// Never hit three in a row, and the failure rate (4/5) only counts once
	// the call volume threshold is met.
	if cb.GetState() != StateOpen {
		// 5 calls with 4 failures crosses the 0.5 rate threshold.
		t.Fatalf("state = %s, want open from failure rate", cb.GetState())
	}
}

func TestHalfOpenRecovery(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, fail)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %s, want open", cb.GetState())
	}

	time.Sleep(60 * time.Millisecond)

	// Two successful probes close the circuit.
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe 1 error = %v", err)
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Fatalf("probe 2 error = %v", err)
	}

	if cb.GetState() != StateClosed {
		t.Errorf("state = %s, want closed after recovery", cb.GetState())
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, fail)
	}
	time.Sleep(60 * time.Millisecond)

	if err := cb.Execute(ctx, fail); !errors.Is(err, errUpstream) {
		t.Fatalf("probe error = %v, want upstream error", err)
	}
	if cb.GetState() != StateOpen {
		t.Errorf("state = %s, want open after failed probe", cb.GetState())
	}
}

func TestReset(t *testing.T) {
	cb := NewCircuitBreaker(testConfig())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		cb.Execute(ctx, fail)
	}
	cb.Reset()

	if cb.GetState() != StateClosed {
		t.Fatalf("state = %s, want closed after reset", cb.GetState())
	}
	if err := cb.Execute(ctx, succeed); err != nil {
		t.Errorf("Execute() after reset error = %v", err)
	}
	if stats := cb.GetStats(); stats.ConsecutiveFails != 0 {
		t.Errorf("ConsecutiveFails = %d, want 0 after reset", stats.ConsecutiveFails)
	}
}
