package ratelimit

import "testing"

func TestAllowConsumesTokens(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("client", 3, 0) {
			t.Fatalf("call %d should be allowed", i)
		}
	}
	if l.Allow("client", 3, 0) {
		t.Fatal("bucket should be empty")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("a", 1, 0) {
		t.Fatal("first key should be allowed")
	}
	if l.Allow("a", 1, 0) {
		t.Fatal("first key should be exhausted")
	}
	if !l.Allow("b", 1, 0) {
		t.Fatal("second key should have its own bucket")
	}
}

func TestRemaining(t *testing.T) {
	l := New()
	if got := l.Remaining("fresh", 5); got != 5 {
		t.Fatalf("untouched key should report capacity, got %d", got)
	}
	l.Allow("fresh", 5, 0)
	l.Allow("fresh", 5, 0)
	if got := l.Remaining("fresh", 5); got != 3 {
		t.Fatalf("expected 3 remaining, got %d", got)
	}
}
