package adc

import (
	"errors"
	"testing"
)

func TestFakeReaderSequence(t *testing.T) {
	f := NewFakeReader([]int{100, 200, 300})

	for i, want := range []int{100, 200, 300} {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if got != want {
			t.Errorf("read %d: got %d, want %d", i, got, want)
		}
	}

	// Exhausted samples repeat the last value.
	got, err := f.Read()
	if err != nil {
		t.Fatalf("read after exhaustion: %v", err)
	}
	if got != 300 {
		t.Errorf("read after exhaustion: got %d, want 300", got)
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader(nil)
	if _, err := f.Read(); err == nil {
		t.Error("expected error with no samples configured")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([]int{100})
	f.ReadError = errors.New("bus stuck")
	if _, err := f.Read(); err == nil {
		t.Error("expected configured read error")
	}
}

func TestFakeReaderCloseAndReset(t *testing.T) {
	f := NewFakeReader([]int{1, 2})
	f.Read()
	f.Close()
	if !f.Closed {
		t.Error("expected Closed=true")
	}
	f.Reset()
	if f.Closed {
		t.Error("expected Closed=false after Reset")
	}
	got, _ := f.Read()
	if got != 1 {
		t.Errorf("after Reset: got %d, want 1", got)
	}
}
