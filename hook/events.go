package hook

import (
	"time"

	"github.com/xraph/plans/plan"
	"github.com/xraph/plans/subscription"
)

// Event payloads carried to hooks. Each command on the subject manager
// emits exactly one of these after its writes succeed. Payloads are
// snapshots; hooks must not mutate them.

// NewSubscription is emitted when a subject subscribes to a plan for a
// duration in days.
type NewSubscription struct {
	Subject      subscription.SubjectRef
	Subscription *subscription.Subscription
}

// NewSubscriptionUntil is emitted when a subject subscribes to a plan
// until an explicit expiry date.
type NewSubscriptionUntil struct {
	Subject      subscription.SubjectRef
	Subscription *subscription.Subscription
	ExpiresOn    time.Time
}

// ExtendSubscription is emitted when the current subscription is
// extended by a duration. Successor is nil when the extension was
// applied in place (startFromNow); otherwise it is the follow-up
// subscription covering the added window.
type ExtendSubscription struct {
	Subject      subscription.SubjectRef
	Subscription *subscription.Subscription
	StartFromNow bool
	Successor    *subscription.Subscription
}

// ExtendSubscriptionUntil is emitted when the current subscription is
// extended to an explicit date.
type ExtendSubscriptionUntil struct {
	Subject      subscription.SubjectRef
	Subscription *subscription.Subscription
	ExpiresOn    time.Time
	StartFromNow bool
	Successor    *subscription.Subscription
}

// UpgradeSubscription is emitted when the current subscription moves to
// a different plan. OldPlan and NewPlan are equal-ID when the "upgrade"
// only extended the window.
type UpgradeSubscription struct {
	Subject      subscription.SubjectRef
	Subscription *subscription.Subscription
	StartFromNow bool
	OldPlan      *plan.Plan
	NewPlan      *plan.Plan
}

// UpgradeSubscriptionUntil is the date-bounded variant of
// UpgradeSubscription.
type UpgradeSubscriptionUntil struct {
	Subject      subscription.SubjectRef
	Subscription *subscription.Subscription
	ExpiresOn    time.Time
	StartFromNow bool
	OldPlan      *plan.Plan
	NewPlan      *plan.Plan
}

// CancelSubscription is emitted when the active subscription is
// cancelled. The subscription stays active until its window ends.
type CancelSubscription struct {
	Subject      subscription.SubjectRef
	Subscription *subscription.Subscription
}

// FeatureConsumed is emitted after a successful consume. Remaining is
// -1 for unlimited features.
type FeatureConsumed struct {
	Subscription *subscription.Subscription
	Feature      plan.Feature
	Amount       int64
	Remaining    int64
}

// FeatureUnconsumed is emitted after a successful unconsume.
type FeatureUnconsumed struct {
	Subscription *subscription.Subscription
	Feature      plan.Feature
	Amount       int64
	Remaining    int64
}

// LimitExceeded is emitted when a consume attempt is rejected because
// it would pass the feature's limit. No state was changed.
type LimitExceeded struct {
	Subscription *subscription.Subscription
	Feature      plan.Feature
	Requested    int64
	Used         int64
	Limit        int64
}
