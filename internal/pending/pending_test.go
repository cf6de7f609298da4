package pending

import (
	"testing"
	"time"
)

func TestPutTake(t *testing.T) {
	c := New[string]()
	c.Put("tok-1", "value")

	got, ok := c.Take("tok-1")
	if !ok || got != "value" {
		t.Fatalf("Take() = (%q, %v), want (value, true)", got, ok)
	}

	// A token is single use.
	if _, ok := c.Take("tok-1"); ok {
		t.Error("Take() succeeded twice for the same token")
	}
}

func TestTakeUnknownToken(t *testing.T) {
	c := New[int]()
	if v, ok := c.Take("missing"); ok || v != 0 {
		t.Errorf("Take() = (%d, %v), want zero value and false", v, ok)
	}
}

func TestEntriesExpire(t *testing.T) {
	c := NewWithTTL[string](8, 20*time.Millisecond)
	c.Put("tok-1", "value")

	deadline := time.After(5 * time.Second)
	for {
		if _, ok := c.Take("tok-1"); !ok {
			return
		}
		// Taking removed it; park it again until the TTL kicks in.
		c.Put("tok-1", "value")
		select {
		case <-deadline:
			t.Fatal("entry never expired")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestOverwriteSameToken(t *testing.T) {
	c := New[string]()
	c.Put("tok-1", "first")
	c.Put("tok-1", "second")

	got, ok := c.Take("tok-1")
	if !ok || got != "second" {
		t.Errorf("Take() = (%q, %v), want latest value", got, ok)
	}
}
