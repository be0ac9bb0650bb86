// Package audithook bridges plans lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// an audit library directly. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/plans/hook"
)

// Compile-time interface checks.
var (
	_ hook.Hook                       = (*Extension)(nil)
	_ hook.OnNewSubscription          = (*Extension)(nil)
	_ hook.OnNewSubscriptionUntil     = (*Extension)(nil)
	_ hook.OnExtendSubscription       = (*Extension)(nil)
	_ hook.OnExtendSubscriptionUntil  = (*Extension)(nil)
	_ hook.OnUpgradeSubscription      = (*Extension)(nil)
	_ hook.OnUpgradeSubscriptionUntil = (*Extension)(nil)
	_ hook.OnCancelSubscription       = (*Extension)(nil)
	_ hook.OnFeatureConsumed          = (*Extension)(nil)
	_ hook.OnFeatureUnconsumed        = (*Extension)(nil)
	_ hook.OnLimitExceeded            = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that this package does not depend on a
// concrete audit library — callers inject the backend at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges plans lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hook.Hook.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnNewSubscription implements hook.OnNewSubscription.
func (e *Extension) OnNewSubscription(ctx context.Context, evt hook.NewSubscription) error {
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.Subscription.ID.String(), CategorySubscription, nil,
		"subject", evt.Subject.String(),
		"plan_id", evt.Subscription.PlanID.String(),
	)
}

// OnNewSubscriptionUntil implements hook.OnNewSubscriptionUntil.
func (e *Extension) OnNewSubscriptionUntil(ctx context.Context, evt hook.NewSubscriptionUntil) error {
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.Subscription.ID.String(), CategorySubscription, nil,
		"subject", evt.Subject.String(),
		"plan_id", evt.Subscription.PlanID.String(),
		"expires_on", evt.ExpiresOn,
	)
}

// OnExtendSubscription implements hook.OnExtendSubscription.
func (e *Extension) OnExtendSubscription(ctx context.Context, evt hook.ExtendSubscription) error {
	return e.record(ctx, ActionSubscriptionExtended, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.Subscription.ID.String(), CategorySubscription, nil,
		"subject", evt.Subject.String(),
		"start_from_now", evt.StartFromNow,
	)
}

// OnExtendSubscriptionUntil implements hook.OnExtendSubscriptionUntil.
func (e *Extension) OnExtendSubscriptionUntil(ctx context.Context, evt hook.ExtendSubscriptionUntil) error {
	return e.record(ctx, ActionSubscriptionExtended, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.Subscription.ID.String(), CategorySubscription, nil,
		"subject", evt.Subject.String(),
		"start_from_now", evt.StartFromNow,
		"expires_on", evt.ExpiresOn,
	)
}

// OnUpgradeSubscription implements hook.OnUpgradeSubscription.
func (e *Extension) OnUpgradeSubscription(ctx context.Context, evt hook.UpgradeSubscription) error {
	return e.record(ctx, ActionSubscriptionUpgraded, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.Subscription.ID.String(), CategorySubscription, nil,
		"subject", evt.Subject.String(),
		"old_plan_id", evt.OldPlan.ID.String(),
		"new_plan_id", evt.NewPlan.ID.String(),
	)
}

// OnUpgradeSubscriptionUntil implements hook.OnUpgradeSubscriptionUntil.
func (e *Extension) OnUpgradeSubscriptionUntil(ctx context.Context, evt hook.UpgradeSubscriptionUntil) error {
	return e.record(ctx, ActionSubscriptionUpgraded, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.Subscription.ID.String(), CategorySubscription, nil,
		"subject", evt.Subject.String(),
		"old_plan_id", evt.OldPlan.ID.String(),
		"new_plan_id", evt.NewPlan.ID.String(),
		"expires_on", evt.ExpiresOn,
	)
}

// OnCancelSubscription implements hook.OnCancelSubscription.
func (e *Extension) OnCancelSubscription(ctx context.Context, evt hook.CancelSubscription) error {
	return e.record(ctx, ActionSubscriptionCancelled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.Subscription.ID.String(), CategorySubscription, nil,
		"subject", evt.Subject.String(),
	)
}

// ──────────────────────────────────────────────────
// Feature usage hooks
// ──────────────────────────────────────────────────

// OnFeatureConsumed implements hook.OnFeatureConsumed.
func (e *Extension) OnFeatureConsumed(ctx context.Context, evt hook.FeatureConsumed) error {
	return e.record(ctx, ActionFeatureConsumed, SeverityInfo, OutcomeSuccess,
		ResourceFeature, evt.Feature.Code, CategoryUsage, nil,
		"subscription_id", evt.Subscription.ID.String(),
		"amount", evt.Amount,
		"remaining", evt.Remaining,
	)
}

// OnFeatureUnconsumed implements hook.OnFeatureUnconsumed.
func (e *Extension) OnFeatureUnconsumed(ctx context.Context, evt hook.FeatureUnconsumed) error {
	return e.record(ctx, ActionFeatureUnconsumed, SeverityInfo, OutcomeSuccess,
		ResourceFeature, evt.Feature.Code, CategoryUsage, nil,
		"subscription_id", evt.Subscription.ID.String(),
		"amount", evt.Amount,
		"remaining", evt.Remaining,
	)
}

// OnLimitExceeded implements hook.OnLimitExceeded.
func (e *Extension) OnLimitExceeded(ctx context.Context, evt hook.LimitExceeded) error {
	return e.record(ctx, ActionLimitExceeded, SeverityWarning, OutcomeFailure,
		ResourceFeature, evt.Feature.Code, CategoryAccess, nil,
		"subscription_id", evt.Subscription.ID.String(),
		"requested", evt.Requested,
		"used", evt.Used,
		"limit", evt.Limit,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
