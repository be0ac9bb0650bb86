package subscription

import (
	"fmt"
	"time"

	"github.com/xraph/plans/id"
	"github.com/xraph/plans/types"
)

// SubjectRef identifies the entity that holds subscriptions: a user, a
// team, an organization. Kind scopes the ID namespace so different
// subject types never collide.
type SubjectRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (r SubjectRef) String() string {
	return r.Kind + ":" + r.ID
}

// IsZero reports whether the ref is empty.
func (r SubjectRef) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// Validate checks that both components are present.
func (r SubjectRef) Validate() error {
	if r.Kind == "" || r.ID == "" {
		return fmt.Errorf("subscription: subject ref requires kind and id, got %q", r.String())
	}
	return nil
}

// Subscription binds a subject to a plan over a time window. Its
// lifecycle state is derived from the timestamps at read time rather
// than stored as a status enum, so a row never goes stale.
type Subscription struct {
	types.Entity
	ID                id.SubscriptionID `json:"id"`
	Subject           SubjectRef        `json:"subject"`
	PlanID            id.PlanID         `json:"plan_id"`
	PaymentMethod     string            `json:"payment_method,omitempty"`
	Active            bool              `json:"active"`
	ChargingPrice     types.Money       `json:"charging_price"`
	Recurring         bool              `json:"recurring"`
	RecurringEachDays int               `json:"recurring_each_days"`
	StartsOn          time.Time         `json:"starts_on"`
	ExpiresOn         time.Time         `json:"expires_on"`
	CancelledOn       *time.Time        `json:"cancelled_on,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// HasStarted reports whether the subscription window has begun.
func (s *Subscription) HasStarted() bool {
	return !time.Now().Before(s.StartsOn)
}

// HasExpired reports whether the subscription window has ended.
func (s *Subscription) HasExpired() bool {
	return time.Now().After(s.ExpiresOn)
}

// IsActive reports whether now falls inside [StartsOn, ExpiresOn].
// It deliberately ignores the Active (paid) flag and cancellation: a
// cancelled subscription stays active until its window ends. Callers
// that need paid-and-uncancelled semantics use the store filters.
func (s *Subscription) IsActive() bool {
	return s.HasStarted() && !s.HasExpired()
}

// IsCancelled reports whether the subscription has ever been cancelled.
func (s *Subscription) IsCancelled() bool {
	return s.CancelledOn != nil
}

// IsPendingCancellation reports whether the subscription was cancelled
// but its window has not yet ended.
func (s *Subscription) IsPendingCancellation() bool {
	return s.IsCancelled() && s.IsActive()
}

// RemainingDays returns the number of whole days until expiry, or 0
// once expired. Partial days truncate toward zero.
func (s *Subscription) RemainingDays() int {
	if s.HasExpired() {
		return 0
	}
	return int(time.Until(s.ExpiresOn).Hours() / 24)
}

// Cancel records the cancellation timestamp and stops recurrence.
// It does not end the subscription window.
func (s *Subscription) Cancel() {
	now := time.Now()
	s.CancelledOn = &now
	s.Recurring = false
	s.Touch()
}
