// Package ratelimit implements per-client token buckets. Two backends share
// the Limiter interface: a bounded in-process map and a Redis script for
// deployments with several replicas.
package ratelimit

import (
	"context"
	"time"
)

// Policy is the bucket shape: Capacity tokens, refilled continuously at
// RefillTokens per RefillInterval.
type Policy struct {
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
}

// DefaultPolicy allows bursts of 10 and refills 10 tokens per minute.
var DefaultPolicy = Policy{Capacity: 10, RefillTokens: 10, RefillInterval: time.Minute}

func (p Policy) normalized() Policy {
	if p.Capacity < 1 {
		p.Capacity = 1
	}
	if p.RefillTokens < 1 {
		p.RefillTokens = 1
	}
	if p.RefillInterval <= 0 {
		p.RefillInterval = time.Minute
	}
	return p
}

// tokenInterval is the time needed to regain one token.
func (p Policy) tokenInterval() time.Duration {
	return p.RefillInterval / time.Duration(p.RefillTokens)
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter consumes one token from the bucket identified by key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
