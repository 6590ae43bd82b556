package model

import "testing"

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusSending, StatusSent, StatusDelivered, StatusRead} {
		if !s.Valid() {
			t.Fatalf("%s should be valid", s)
		}
	}
	if Status("seen").Valid() {
		t.Fatal("unknown state must be invalid")
	}
}

func TestStatusForwardOnly(t *testing.T) {
	if !StatusSent.CanTransition(StatusRead) {
		t.Fatal("forward transition should be allowed")
	}
	if !StatusSent.CanTransition(StatusSent) {
		t.Fatal("self transition should be allowed")
	}
	if StatusRead.CanTransition(StatusSent) {
		t.Fatal("status must never regress")
	}
}

func TestStatusAdvance(t *testing.T) {
	if got := StatusSent.Advance(StatusRead); got != StatusRead {
		t.Fatalf("advance = %s", got)
	}
	if got := StatusRead.Advance(StatusDelivered); got != StatusRead {
		t.Fatalf("regression attempt must keep the later state, got %s", got)
	}
	if got := StatusSent.Advance(Status("bogus")); got != StatusSent {
		t.Fatalf("invalid target keeps current state, got %s", got)
	}
}
