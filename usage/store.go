package usage

import (
	"context"

	"github.com/xraph/plans/id"
)

// Store persists usage counters. Increment and Decrement are the only
// write paths for the Used column and must be atomic per
// (subscription, code): two concurrent increments may not both pass a
// ceiling check against the same stale value.
type Store interface {
	// Get returns the counter for (subID, code), or a not-found error
	// when no consumption has been recorded yet.
	Get(ctx context.Context, subID id.SubscriptionID, code string) (*Counter, error)
	// List returns all counters for a subscription.
	List(ctx context.Context, subID id.SubscriptionID) ([]*Counter, error)
	// Increment adds amount to the counter, creating it at zero first if
	// needed. When ceiling >= 0 and the result would exceed it, nothing
	// is written and ErrLimitExceeded is returned alongside the current
	// (unchanged) value. A negative ceiling means unbounded. Returns the
	// counter value after the increment.
	Increment(ctx context.Context, subID id.SubscriptionID, code string, amount, ceiling int64) (int64, error)
	// Decrement subtracts amount from the counter, clamping at zero.
	// Creates the row at zero if needed. Returns the value after the
	// decrement.
	Decrement(ctx context.Context, subID id.SubscriptionID, code string, amount int64) (int64, error)
	// DeleteForSubscription removes every counter owned by a
	// subscription. Used when a due subscription is replaced.
	DeleteForSubscription(ctx context.Context, subID id.SubscriptionID) error
}
