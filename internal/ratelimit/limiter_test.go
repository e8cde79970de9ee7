package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAdmitThreshold(t *testing.T) {
	l := NewLimiter(NewMemory())
	ctx := context.Background()

	// Calls 1..4 admitted with the running count.
	for i := uint64(1); i <= 4; i++ {
		res, err := l.Admit(ctx, "u1", "arm_system")
		if err != nil {
			t.Fatalf("Admit %d: %v", i, err)
		}
		if !res.Admitted || res.Count != i {
			t.Fatalf("call %d: got admitted=%v count=%d", i, res.Admitted, res.Count)
		}
	}

	// Call 5 trips the limit; the counter still advances.
	res, err := l.Admit(ctx, "u1", "arm_system")
	if err != nil {
		t.Fatalf("Admit 5: %v", err)
	}
	if res.Admitted || res.Count != 5 {
		t.Fatalf("call 5: got admitted=%v count=%d", res.Admitted, res.Count)
	}

	// Calls 6+ stay limited until reset.
	for i := uint64(6); i <= 8; i++ {
		res, err := l.Admit(ctx, "u1", "arm_system")
		if err != nil {
			t.Fatalf("Admit %d: %v", i, err)
		}
		if res.Admitted || res.Count != i {
			t.Fatalf("call %d: got admitted=%v count=%d", i, res.Admitted, res.Count)
		}
	}
}

func TestAdmitKeysAreIndependent(t *testing.T) {
	l := NewLimiter(NewMemory())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := l.Admit(ctx, "u1", "arm_system"); err != nil {
			t.Fatalf("Admit: %v", err)
		}
	}
	if res, _ := l.Admit(ctx, "u1", "arm_system"); res.Admitted {
		t.Fatalf("u1/arm_system should be limited")
	}
	if res, _ := l.Admit(ctx, "u1", "disarm_system"); !res.Admitted {
		t.Fatalf("different operation should have a fresh window")
	}
	if res, _ := l.Admit(ctx, "u2", "arm_system"); !res.Admitted {
		t.Fatalf("different user should have a fresh window")
	}
}

func TestResetClearsWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(NewMemory(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if _, err := l.Admit(ctx, "u1", "verify_pin"); err != nil {
			t.Fatalf("Admit: %v", err)
		}
	}
	if err := l.Reset(ctx, "u1", "verify_pin"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	w, err := l.Status(ctx, "u1", "verify_pin")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if w.Count != 0 || w.Limited || !w.WindowStart.Equal(now) {
		t.Fatalf("window not reset: %+v", w)
	}
	if res, _ := l.Admit(ctx, "u1", "verify_pin"); !res.Admitted || res.Count != 1 {
		t.Fatalf("post-reset call should be admitted with count 1, got %+v", res)
	}
}

func TestLimitedCarriesWindowEnd(t *testing.T) {
	mem := NewMemory()
	l := NewLimiter(mem)
	ctx := context.Background()

	end := time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC)
	_, err := mem.MutateOrCreate(ctx, Key{UserID: "u1", Operation: "op"},
		func() *Window { return &Window{UserID: "u1", Operation: "op", WindowStart: end.Add(-time.Hour)} },
		func(w *Window) error { w.WindowEnd = &end; return nil })
	if err != nil {
		t.Fatalf("seed window: %v", err)
	}

	var res Result
	for i := 0; i < 5; i++ {
		if res, err = l.Admit(ctx, "u1", "op"); err != nil {
			t.Fatalf("Admit: %v", err)
		}
	}
	if res.Admitted {
		t.Fatalf("expected limited")
	}
	if res.ResetAt == nil || !res.ResetAt.Equal(end) {
		t.Fatalf("ResetAt=%v, want %v", res.ResetAt, end)
	}
}

func TestAdmitConcurrentRace(t *testing.T) {
	l := NewLimiter(NewMemory())
	ctx := context.Background()

	const callers = 10
	results := make([]Result, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			res, err := l.Admit(ctx, "u1", "unlock_door")
			if err != nil {
				t.Errorf("Admit: %v", err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, res := range results {
		if res.Admitted {
			admitted++
		}
	}
	if admitted != 4 {
		t.Fatalf("admitted=%d, want exactly 4 of %d concurrent calls", admitted, callers)
	}
}

func TestStatusNotFound(t *testing.T) {
	l := NewLimiter(NewMemory())
	if _, err := l.Status(context.Background(), "u1", "never_called"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdmitRejectsEmptyKey(t *testing.T) {
	l := NewLimiter(NewMemory())
	if _, err := l.Admit(context.Background(), "", "op"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
