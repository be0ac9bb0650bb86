// Package observability provides a metrics hook for the plans engine
// that records lifecycle event counts via a pluggable MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/plans/hook"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ hook.Hook                       = (*MetricsExtension)(nil)
	_ hook.OnInit                     = (*MetricsExtension)(nil)
	_ hook.OnNewSubscription          = (*MetricsExtension)(nil)
	_ hook.OnNewSubscriptionUntil     = (*MetricsExtension)(nil)
	_ hook.OnExtendSubscription       = (*MetricsExtension)(nil)
	_ hook.OnExtendSubscriptionUntil  = (*MetricsExtension)(nil)
	_ hook.OnUpgradeSubscription      = (*MetricsExtension)(nil)
	_ hook.OnUpgradeSubscriptionUntil = (*MetricsExtension)(nil)
	_ hook.OnCancelSubscription       = (*MetricsExtension)(nil)
	_ hook.OnFeatureConsumed          = (*MetricsExtension)(nil)
	_ hook.OnFeatureUnconsumed        = (*MetricsExtension)(nil)
	_ hook.OnLimitExceeded            = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine hook to automatically track subscription metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Subscription metrics
	SubscriptionCreated   Counter
	SubscriptionExtended  Counter
	SubscriptionUpgraded  Counter
	SubscriptionCancelled Counter

	// Usage metrics
	FeatureConsumed   Counter
	FeatureUnconsumed Counter
	ConsumeAmount     Histogram
	LimitExceeded     Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Subscription metrics
		SubscriptionCreated:   factory.Counter("plans.subscription.created"),
		SubscriptionExtended:  factory.Counter("plans.subscription.extended"),
		SubscriptionUpgraded:  factory.Counter("plans.subscription.upgraded"),
		SubscriptionCancelled: factory.Counter("plans.subscription.cancelled"),

		// Usage metrics
		FeatureConsumed:   factory.Counter("plans.feature.consumed"),
		FeatureUnconsumed: factory.Counter("plans.feature.unconsumed"),
		ConsumeAmount:     factory.Histogram("plans.feature.consume.amount"),
		LimitExceeded:     factory.Counter("plans.feature.limit_exceeded"),
	}
}

// Name implements hook.Hook.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements hook.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnNewSubscription implements hook.OnNewSubscription.
func (m *MetricsExtension) OnNewSubscription(_ context.Context, _ hook.NewSubscription) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// OnNewSubscriptionUntil implements hook.OnNewSubscriptionUntil.
func (m *MetricsExtension) OnNewSubscriptionUntil(_ context.Context, _ hook.NewSubscriptionUntil) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// OnExtendSubscription implements hook.OnExtendSubscription.
func (m *MetricsExtension) OnExtendSubscription(_ context.Context, _ hook.ExtendSubscription) error {
	m.SubscriptionExtended.Inc()
	return nil
}

// OnExtendSubscriptionUntil implements hook.OnExtendSubscriptionUntil.
func (m *MetricsExtension) OnExtendSubscriptionUntil(_ context.Context, _ hook.ExtendSubscriptionUntil) error {
	m.SubscriptionExtended.Inc()
	return nil
}

// OnUpgradeSubscription implements hook.OnUpgradeSubscription.
func (m *MetricsExtension) OnUpgradeSubscription(_ context.Context, _ hook.UpgradeSubscription) error {
	m.SubscriptionUpgraded.Inc()
	return nil
}

// OnUpgradeSubscriptionUntil implements hook.OnUpgradeSubscriptionUntil.
func (m *MetricsExtension) OnUpgradeSubscriptionUntil(_ context.Context, _ hook.UpgradeSubscriptionUntil) error {
	m.SubscriptionUpgraded.Inc()
	return nil
}

// OnCancelSubscription implements hook.OnCancelSubscription.
func (m *MetricsExtension) OnCancelSubscription(_ context.Context, _ hook.CancelSubscription) error {
	m.SubscriptionCancelled.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Feature usage hooks
// ──────────────────────────────────────────────────

// OnFeatureConsumed implements hook.OnFeatureConsumed.
func (m *MetricsExtension) OnFeatureConsumed(_ context.Context, e hook.FeatureConsumed) error {
	m.FeatureConsumed.Inc()
	m.ConsumeAmount.Observe(float64(e.Amount))
	return nil
}

// OnFeatureUnconsumed implements hook.OnFeatureUnconsumed.
func (m *MetricsExtension) OnFeatureUnconsumed(_ context.Context, _ hook.FeatureUnconsumed) error {
	m.FeatureUnconsumed.Inc()
	return nil
}

// OnLimitExceeded implements hook.OnLimitExceeded.
func (m *MetricsExtension) OnLimitExceeded(_ context.Context, _ hook.LimitExceeded) error {
	m.LimitExceeded.Inc()
	return nil
}
