package ratelimit

import "context"

// RateLimiter throttles provider calls per channel. Wait blocks until a slot
// is available or the context is done.
type RateLimiter interface {
	Allow(ctx context.Context, channel string) (bool, error)
	Wait(ctx context.Context, channel string) error
}
