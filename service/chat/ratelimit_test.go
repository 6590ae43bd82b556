package chat

import (
	"testing"
	"time"
)

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 20; i++ {
		if !rl.Check(EvtSendMessage) {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if rl.Check(EvtSendMessage) {
		t.Fatal("21st send within the window should be rejected")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	now := time.Now()
	rl := newRateLimiterWithClock(func() time.Time { return now })

	for i := 0; i < 10; i++ {
		if !rl.Check(EvtStartTyping) {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if rl.Check(EvtStartTyping) {
		t.Fatal("over-limit request should be rejected")
	}

	now = now.Add(61 * time.Second)
	if !rl.Check(EvtStartTyping) {
		t.Fatal("request after the window expired should pass")
	}
}

func TestRateLimiterRejectionDoesNotConsume(t *testing.T) {
	now := time.Now()
	rl := newRateLimiterWithClock(func() time.Time { return now })

	for i := 0; i < 10; i++ {
		rl.Check(EvtEditMessage)
	}
	// Rejected attempts must not extend the window.
	for i := 0; i < 5; i++ {
		if rl.Check(EvtEditMessage) {
			t.Fatal("expected rejection")
		}
	}

	now = now.Add(61 * time.Second)
	if !rl.Check(EvtEditMessage) {
		t.Fatal("window should have fully reset despite rejected attempts")
	}
}

func TestRateLimiterUnlistedKindAlwaysPasses(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 1000; i++ {
		if !rl.Check(EvtJoinRoom) {
			t.Fatal("unlisted event kinds must never be limited")
		}
	}
}

func TestRateLimiterKindsAreIndependent(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 20; i++ {
		rl.Check(EvtSendMessage)
	}
	if rl.Check(EvtSendMessage) {
		t.Fatal("send should be exhausted")
	}
	if !rl.Check(EvtAddReaction) {
		t.Fatal("reaction budget must be independent of send budget")
	}
}

func TestRateLimiterClear(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < 20; i++ {
		rl.Check(EvtSendMessage)
	}
	rl.Clear()
	if !rl.Check(EvtSendMessage) {
		t.Fatal("Clear should reset all windows")
	}
}
