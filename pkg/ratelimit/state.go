// Package ratelimit implements server backpressure tracking and request gating.
// It records Retry-After hints from 429 and 503 responses in Redis so that
// every client sharing the server namespace backs off together.
package ratelimit

import (
	"time"
)

// Redis key suffixes for backpressure state storage.
// Full keys are "<namespace>:backpressure:<suffix>".
const (
	keyRetryAt    = "retry_at"
	keyThrottles  = "throttles"
	keyLastUpdate = "last_update"
)

// Backpressure tuning.
const (
	// ThrottleThreshold starts throttling once this many backpressure
	// responses arrived within ThrottleWindow.
	ThrottleThreshold = 3

	// ThrottleWindow is how long a backpressure response counts towards throttling.
	ThrottleWindow = 60 * time.Second

	// ThrottleDelay is the pause applied to each request while throttling.
	ThrottleDelay = 1 * time.Second

	// DefaultRetryAfter is used when a 429/503 carries no usable Retry-After.
	DefaultRetryAfter = 5 * time.Second

	// MaxRetryAfter caps what a server may ask for.
	MaxRetryAfter = 5 * time.Minute
)

// State represents the current backpressure state of one server.
// This state is shared across all client instances via Redis.
type State struct {
	// RetryAt is when the server said requests may resume.
	// Zero when the server has not asked us to back off.
	RetryAt time.Time `json:"retry_at"`

	// Throttles counts backpressure responses within ThrottleWindow.
	Throttles int `json:"throttles"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsBlock returns true while the server's Retry-After window is open.
func (s *State) NeedsBlock() bool {
	return s.TimeUntilRetry() > 0
}

// NeedsThrottling returns true after repeated backpressure once the
// Retry-After window has passed.
func (s *State) NeedsThrottling() bool {
	return s.Throttles >= ThrottleThreshold && !s.NeedsBlock()
}

// IsHealthy reports whether no restriction applies.
func (s *State) IsHealthy() bool {
	return !s.NeedsBlock() && !s.NeedsThrottling()
}

// TimeUntilRetry returns the duration until requests may resume.
// Returns 0 if the retry time has already passed.
func (s *State) TimeUntilRetry() time.Duration {
	if s.RetryAt.IsZero() {
		return 0
	}
	d := time.Until(s.RetryAt)
	if d < 0 {
		return 0
	}
	return d
}
