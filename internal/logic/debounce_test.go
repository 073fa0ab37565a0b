package logic

import (
	"math/rand"
	"testing"
	"time"
)

func TestDebouncerAcceptsHeldChange(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(10 * time.Millisecond)
	d.Seed(false, now)

	// Raw goes high and holds: stable must follow exactly at the window.
	if got := d.Update(true, now.Add(1*time.Millisecond)); got {
		t.Error("stable changed immediately on raw change")
	}
	if got := d.Update(true, now.Add(9*time.Millisecond)); got {
		t.Error("stable changed before debounce window elapsed")
	}
	if got := d.Update(true, now.Add(11*time.Millisecond)); !got {
		t.Error("stable did not follow raw after debounce window")
	}
}

func TestDebouncerTimerResetsOnFlicker(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(10 * time.Millisecond)
	d.Seed(false, now)

	// Bounce at 5ms restarts the hold timer.
	d.Update(true, now.Add(1*time.Millisecond))
	d.Update(false, now.Add(5*time.Millisecond))
	d.Update(true, now.Add(6*time.Millisecond))

	if got := d.Update(true, now.Add(12*time.Millisecond)); got {
		t.Error("stable changed although raw only held since 6ms")
	}
	if got := d.Update(true, now.Add(16*time.Millisecond)); !got {
		t.Error("stable did not change after raw held for full window")
	}
}

func TestDebouncerStableSignalNoLatency(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(10 * time.Millisecond)
	d.Seed(true, now)

	// A signal that was already stable reports with no added delay.
	for i := 0; i < 20; i++ {
		if got := d.Update(true, now.Add(time.Duration(i)*time.Millisecond)); !got {
			t.Fatalf("t=%dms: stable dropped on unchanged raw", i)
		}
	}
}

// TestDebouncerRejectsRandomBounce drives the debouncer with random
// flicker bursts, every one shorter than the window, and checks the
// stable state never moves.
func TestDebouncerRejectsRandomBounce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(10 * time.Millisecond)
	d.Seed(false, now)

	elapsed := time.Duration(0)
	for burst := 0; burst < 200; burst++ {
		// Quiet period at the resting level, long enough to settle.
		for i := 0; i < 15; i++ {
			elapsed += time.Millisecond
			if got := d.Update(false, now.Add(elapsed)); got {
				t.Fatalf("burst %d: stable flipped during quiet period", burst)
			}
		}
		// Flicker high for 1..9ms, always back low before 10ms.
		hold := time.Duration(1+rng.Intn(9)) * time.Millisecond
		start := elapsed
		for elapsed-start < hold {
			elapsed += time.Millisecond
			if got := d.Update(true, now.Add(elapsed)); got {
				t.Fatalf("burst %d: %v flicker promoted to stable", burst, hold)
			}
		}
	}
}

func TestDebouncerSeedOnFirstUpdate(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	d := NewDebouncer(10 * time.Millisecond)

	// Without an explicit Seed, the first sample becomes the baseline
	// immediately rather than being treated as a transition.
	if got := d.Update(true, now); !got {
		t.Error("first sample did not seed the stable state")
	}
}
