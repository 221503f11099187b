package runtime

import (
	"sync"
	"time"
)

// Rule bounds one action to Limit occurrences per Period.
type Rule struct {
	Limit  int
	Period time.Duration
}

// DefaultRules covers the abusable operations. Typing is high frequency and
// not persisted, so it gets the widest budget.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"send_message": {Limit: 20, Period: 10 * time.Second},
		"typing":       {Limit: 50, Period: 10 * time.Second},
		"add_contact":  {Limit: 10, Period: 60 * time.Second},
		"connect":      {Limit: 10, Period: 60 * time.Second},
	}
}

// RateLimiter is a sliding-window counter keyed by (action, identity).
// Windows are pruned lazily on each check; there is no background cleanup.
type RateLimiter struct {
	mu      sync.Mutex
	rules   map[string]Rule
	windows map[string][]time.Time
	now     func() time.Time
}

func NewRateLimiter(rules map[string]Rule) *RateLimiter {
	return &RateLimiter{
		rules:   rules,
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records an occurrence and reports whether it fits the window.
// Actions without a rule are always allowed.
func (l *RateLimiter) Allow(action, identity string) bool {
	rule, ok := l.rules[action]
	if !ok {
		return true
	}

	now := l.now()
	cutoff := now.Add(-rule.Period)
	key := action + "|" + identity

	l.mu.Lock()
	defer l.mu.Unlock()

	window := l.windows[key]
	kept := window[:0]
	for _, ts := range window {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= rule.Limit {
		l.windows[key] = kept
		return false
	}

	l.windows[key] = append(kept, now)
	return true
}
