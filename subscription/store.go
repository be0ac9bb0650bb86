package subscription

import (
	"context"

	"github.com/xraph/plans/id"
)

// Order controls result ordering for List queries.
type Order string

const (
	OrderStartsOnAsc  Order = "starts_on_asc"
	OrderStartsOnDesc Order = "starts_on_desc"
)

// Filter narrows a subject's subscriptions. Nil pointer fields mean
// "don't care"; all set fields must match.
type Filter struct {
	Paid          *bool   // Active (paid) flag
	Cancelled     *bool   // CancelledOn set / unset
	Recurring     *bool
	Expired       *bool   // ExpiresOn strictly before now
	PaymentMethod *string // exact payment-method tag
	Order         Order
	Limit         int
	Offset        int
}

type Store interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	// List returns the subject's subscriptions matching the filter.
	List(ctx context.Context, subject SubjectRef, f Filter) ([]*Subscription, error)
	// Count returns how many subscriptions the subject has, ignoring state.
	Count(ctx context.Context, subject SubjectRef) (int, error)
	Update(ctx context.Context, s *Subscription) error
	// Delete removes a subscription row. Usage counters cascade separately.
	Delete(ctx context.Context, subID id.SubscriptionID) error
}

// Bool is a convenience for building Filter pointer fields.
func Bool(v bool) *bool { return &v }

// String is a convenience for building Filter pointer fields.
func String(v string) *string { return &v }
