package chat

import (
	"sync"
	"time"
)

// Rate-limited event kinds and their windows. Unlisted kinds always pass.
type rateRule struct {
	Limit  int
	Window time.Duration
}

// rateMarkRead covers both mark_room_read and mark_messages_read.
const rateMarkRead = "mark_read"

var defaultRateRules = map[string]rateRule{
	EvtSendMessage:   {Limit: 20, Window: time.Minute},
	EvtStartTyping:   {Limit: 10, Window: time.Minute},
	rateMarkRead:     {Limit: 30, Window: time.Minute},
	EvtAddReaction:   {Limit: 50, Window: time.Minute},
	EvtEditMessage:   {Limit: 10, Window: time.Minute},
	EvtDeleteMessage: {Limit: 10, Window: time.Minute},
}

// RateLimiter keeps a sliding window of request timestamps per event kind.
// One instance per connection; state is process-local and resets on
// reconnect, which bounds abuse without cross-process coordination.
type RateLimiter struct {
	mu    sync.Mutex
	rules map[string]rateRule
	seen  map[string][]time.Time
	clock func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return newRateLimiterWithClock(time.Now)
}

func newRateLimiterWithClock(clock func() time.Time) *RateLimiter {
	return &RateLimiter{
		rules: defaultRateRules,
		seen:  make(map[string][]time.Time),
		clock: clock,
	}
}

// Check prunes entries older than the kind's window, then rejects when the
// remaining count has reached the limit, otherwise records this request.
func (r *RateLimiter) Check(event string) bool {
	rule, ok := r.rules[event]
	if !ok {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	requests := r.seen[event]

	valid := requests[:0]
	for _, t := range requests {
		if now.Sub(t) < rule.Window {
			valid = append(valid, t)
		}
	}

	if len(valid) >= rule.Limit {
		r.seen[event] = valid
		return false
	}

	r.seen[event] = append(valid, now)
	return true
}

func (r *RateLimiter) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = make(map[string][]time.Time)
}
