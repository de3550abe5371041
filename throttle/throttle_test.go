package throttle

import "testing"

func TestAllowUnderLimit(t *testing.T) {
	th := New(3, 10)
	for i := 0; i < 3; i++ {
		if !th.Allow("10.0.0.1") {
			t.Fatalf("want allowed on attempt %d", i)
		}
	}
}

func TestAllowRejectsOverLimit(t *testing.T) {
	th := New(2, 10)
	th.Allow("10.0.0.1")
	th.Allow("10.0.0.1")
	if th.Allow("10.0.0.1") {
		t.Fatal("want third packet in the same window to be rejected")
	}
}

func TestAllowTracksClientsIndependently(t *testing.T) {
	th := New(1, 10)
	if !th.Allow("10.0.0.1") {
		t.Fatal("want first client's first packet allowed")
	}
	if !th.Allow("10.0.0.2") {
		t.Fatal("want second client's first packet allowed independently of the first")
	}
	if th.Allow("10.0.0.1") {
		t.Fatal("want first client's second packet rejected")
	}
}

func TestDisabledWhenLimitNonPositive(t *testing.T) {
	th := New(0, 10)
	for i := 0; i < 100; i++ {
		if !th.Allow("10.0.0.1") {
			t.Fatal("want throttle disabled when limit <= 0")
		}
	}
}

func TestMaxTrackedClientsEvictsLRU(t *testing.T) {
	th := New(1, 2)
	th.Allow("10.0.0.1")
	th.Allow("10.0.0.2")
	th.Allow("10.0.0.3") // evicts 10.0.0.1, the least recently used

	if !th.Allow("10.0.0.1") {
		t.Fatal("want 10.0.0.1's window to have reset after eviction")
	}
}
