// Package hook provides an extensible hook system for the plans engine.
// Hooks subscribe to subscription-lifecycle and feature-usage events
// and run out of band: a failing or slow hook never fails the command
// that triggered it.
package hook

import "context"

// Hook is the base interface that all hooks must implement.
type Hook interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine is initialized.
type OnInit interface {
	Hook
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine is shutting down.
type OnShutdown interface {
	Hook
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnNewSubscription is called when a subject subscribes to a plan.
type OnNewSubscription interface {
	Hook
	OnNewSubscription(ctx context.Context, e NewSubscription) error
}

// OnNewSubscriptionUntil is called when a subject subscribes until a date.
type OnNewSubscriptionUntil interface {
	Hook
	OnNewSubscriptionUntil(ctx context.Context, e NewSubscriptionUntil) error
}

// OnExtendSubscription is called when a subscription is extended by a duration.
type OnExtendSubscription interface {
	Hook
	OnExtendSubscription(ctx context.Context, e ExtendSubscription) error
}

// OnExtendSubscriptionUntil is called when a subscription is extended to a date.
type OnExtendSubscriptionUntil interface {
	Hook
	OnExtendSubscriptionUntil(ctx context.Context, e ExtendSubscriptionUntil) error
}

// OnUpgradeSubscription is called when a subscription changes plan.
type OnUpgradeSubscription interface {
	Hook
	OnUpgradeSubscription(ctx context.Context, e UpgradeSubscription) error
}

// OnUpgradeSubscriptionUntil is called when a subscription changes plan
// with a date-bounded extension.
type OnUpgradeSubscriptionUntil interface {
	Hook
	OnUpgradeSubscriptionUntil(ctx context.Context, e UpgradeSubscriptionUntil) error
}

// OnCancelSubscription is called when a subscription is cancelled.
type OnCancelSubscription interface {
	Hook
	OnCancelSubscription(ctx context.Context, e CancelSubscription) error
}

// ──────────────────────────────────────────────────
// Feature usage hooks
// ──────────────────────────────────────────────────

// OnFeatureConsumed is called after feature usage is recorded.
type OnFeatureConsumed interface {
	Hook
	OnFeatureConsumed(ctx context.Context, e FeatureConsumed) error
}

// OnFeatureUnconsumed is called after feature usage is released.
type OnFeatureUnconsumed interface {
	Hook
	OnFeatureUnconsumed(ctx context.Context, e FeatureUnconsumed) error
}

// OnLimitExceeded is called when a consume attempt is rejected.
type OnLimitExceeded interface {
	Hook
	OnLimitExceeded(ctx context.Context, e LimitExceeded) error
}
