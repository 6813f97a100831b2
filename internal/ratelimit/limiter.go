// Package ratelimit implements the gateway's admission control: a
// fixed-window counter per caller key with separate ceilings for
// authenticated and anonymous traffic.
//
// Design:
//   - A Store holds the counters and performs the atomic increment; the
//     in-memory store serves single-process deployments, the Redis store
//     enforces a shared ceiling across gateway replicas.
//   - Windows expire lazily: a counter whose window has passed is simply
//     replaced on the next increment, no sweeper goroutine required.
//   - Counters are best-effort state. A store failure admits the request
//     (and is logged by the caller); losing counters on restart is
//     acceptable, losing increments under concurrency is not.
package ratelimit

import (
	"context"
	"time"
)

// Policy is the admission policy for one window class pair.
// Authenticated callers get a materially higher ceiling (10x by default
// configuration) because they are attributable.
type Policy struct {
	Window       time.Duration
	MaxAuthed    int
	MaxAnonymous int
}

// Decision is the outcome of one admission check, including the metadata
// surfaced to clients via X-RateLimit-* and Retry-After headers.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Store persists window counters. Incr atomically increments the counter
// for (key, window containing now) and returns the post-increment count
// together with the window's reset time. Implementations must be safe for
// concurrent use; a lost increment is a correctness bug.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration, now time.Time) (count int64, resetAt time.Time, err error)
}

// Limiter applies a Policy against a Store.
type Limiter struct {
	store  Store
	policy Policy
	now    func() time.Time
}

// New constructs a Limiter. The clock defaults to time.Now.
func New(store Store, policy Policy) *Limiter {
	return &Limiter{store: store, policy: policy, now: time.Now}
}

// WithClock returns a copy of the limiter using the supplied clock.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	return &Limiter{store: l.store, policy: l.policy, now: now}
}

// Allow records one request for key and decides whether to admit it.
// authenticated selects which ceiling applies. The counter is incremented
// even for rejected requests: a rejected caller keeps consuming its window.
func (l *Limiter) Allow(ctx context.Context, key string, authenticated bool) (Decision, error) {
	limit := l.policy.MaxAnonymous
	if authenticated {
		limit = l.policy.MaxAuthed
	}

	now := l.now()
	count, resetAt, err := l.store.Incr(ctx, key, l.policy.Window, now)
	if err != nil {
		// Fail open: admission control is best-effort.
		return Decision{Allowed: true, Limit: limit, Remaining: 0, ResetAt: now.Add(l.policy.Window)}, err
	}

	d := Decision{
		Limit:   limit,
		ResetAt: resetAt,
	}
	if count <= int64(limit) {
		d.Allowed = true
		d.Remaining = limit - int(count)
	} else {
		d.Allowed = false
		d.Remaining = 0
		d.RetryAfter = resetAt.Sub(now)
		if d.RetryAfter < 0 {
			d.RetryAfter = 0
		}
	}
	return d, nil
}
