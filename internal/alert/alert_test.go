package alert

import (
	"testing"
	"time"
)

func TestEscalationLadder(t *testing.T) {
	a := Alert{Priority: PriorityInfo}
	want := []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical, PriorityEmergency}
	for i, expected := range want {
		if !a.Escalate() {
			t.Fatalf("step %d: Escalate returned false", i+1)
		}
		if a.Priority != expected {
			t.Fatalf("step %d: priority=%s, want %s", i+1, a.Priority, expected)
		}
	}
	// Sixth call is a no-op at the top of the ladder.
	if a.Escalate() {
		t.Fatalf("escalation past emergency should report false")
	}
	if a.Priority != PriorityEmergency {
		t.Fatalf("priority changed at top of ladder: %s", a.Priority)
	}
}

func TestEscalateNeverSkips(t *testing.T) {
	a := Alert{Priority: PriorityMedium}
	a.Escalate()
	if a.Priority != PriorityHigh {
		t.Fatalf("expected one-step escalation to high, got %s", a.Priority)
	}
}

func TestPriorityOrder(t *testing.T) {
	if !PriorityEmergency.AtLeast(PriorityCritical) {
		t.Fatalf("emergency should rank at least critical")
	}
	if PriorityLow.AtLeast(PriorityHigh) {
		t.Fatalf("low should not rank at least high")
	}
	if Priority("nonsense").Rank() != -1 {
		t.Fatalf("unknown priority should rank -1")
	}
}

func TestResolveIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := Alert{Priority: PriorityHigh}
	a.Resolve(now)
	if !a.Resolved || a.ResolvedAt == nil || !a.ResolvedAt.Equal(now) {
		t.Fatalf("resolve did not stick: %+v", a)
	}
	later := now.Add(time.Hour)
	a.Resolve(later)
	if !a.ResolvedAt.Equal(now) {
		t.Fatalf("second resolve should be a no-op, ResolvedAt=%v", a.ResolvedAt)
	}
}

func TestAcknowledgeFirstWins(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := Alert{Priority: PriorityHigh}
	a.Acknowledge("user-1", now)
	a.Acknowledge("user-2", now.Add(time.Minute))
	if a.AcknowledgedBy != "user-1" || !a.AcknowledgedAt.Equal(now) {
		t.Fatalf("acknowledge not idempotent: %+v", a)
	}
}
