package plans

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/plans/hook"
	"github.com/xraph/plans/plan"
	"github.com/xraph/plans/subscription"
)

// Feature accounting. All four operations resolve the subscription's
// plan, require the feature to be meterable (a limit-kind feature on
// that plan), and delegate the counter mutation to the store's atomic
// primitives. Concurrent consumes on the same (subscription, code) are
// safe; the ceiling check and the write are one atomic step.

// ConsumeFeature records amount units of usage against a metered
// feature. Returns the remaining allowance after the consume, -1 for
// unlimited features. Fails with ErrLimitExceeded, without recording
// anything, when the consume would pass the feature's limit.
func (e *Engine) ConsumeFeature(ctx context.Context, sub *subscription.Subscription, code string, amount int64) (int64, error) {
	f, err := e.meterableFeature(ctx, sub, code)
	if err != nil {
		return 0, err
	}

	ceiling := int64(-1)
	if !f.IsUnlimited() {
		ceiling = f.Limit
	}

	used, err := e.store.IncrementUsage(ctx, sub.ID, code, amount, ceiling)
	if err != nil {
		if errors.Is(err, ErrLimitExceeded) {
			e.hooks.EmitLimitExceeded(ctx, hook.LimitExceeded{
				Subscription: sub,
				Feature:      *f,
				Requested:    amount,
				Used:         used,
				Limit:        f.Limit,
			})
		}

		return 0, err
	}

	remaining := f.Remaining(used)

	e.hooks.EmitFeatureConsumed(ctx, hook.FeatureConsumed{
		Subscription: sub,
		Feature:      *f,
		Amount:       amount,
		Remaining:    remaining,
	})

	return remaining, nil
}

// UnconsumeFeature releases amount units of usage from a metered
// feature. The counter clamps at zero, so releasing more than was
// consumed restores the full allowance. Returns the remaining
// allowance after the release, -1 for unlimited features.
func (e *Engine) UnconsumeFeature(ctx context.Context, sub *subscription.Subscription, code string, amount int64) (int64, error) {
	f, err := e.meterableFeature(ctx, sub, code)
	if err != nil {
		return 0, err
	}

	used, err := e.store.DecrementUsage(ctx, sub.ID, code, amount)
	if err != nil {
		return 0, err
	}

	remaining := f.Remaining(used)

	e.hooks.EmitFeatureUnconsumed(ctx, hook.FeatureUnconsumed{
		Subscription: sub,
		Feature:      *f,
		Amount:       amount,
		Remaining:    remaining,
	})

	return remaining, nil
}

// UsageOf returns how much of a metered feature has been consumed on
// this subscription. Zero when nothing was consumed yet.
func (e *Engine) UsageOf(ctx context.Context, sub *subscription.Subscription, code string) (int64, error) {
	if _, err := e.meterableFeature(ctx, sub, code); err != nil {
		return 0, err
	}

	c, err := e.store.GetUsage(ctx, sub.ID, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}

		return 0, err
	}

	return c.Used, nil
}

// RemainingOf returns how much of a metered feature's allowance is
// left on this subscription, -1 for unlimited features.
func (e *Engine) RemainingOf(ctx context.Context, sub *subscription.Subscription, code string) (int64, error) {
	f, err := e.meterableFeature(ctx, sub, code)
	if err != nil {
		return 0, err
	}

	if f.IsUnlimited() {
		return -1, nil
	}

	used, err := e.UsageOf(ctx, sub, code)
	if err != nil {
		return 0, err
	}

	return f.Limit - used, nil
}

// meterableFeature resolves the subscription's plan and returns the
// feature for code when usage can be recorded against it.
func (e *Engine) meterableFeature(ctx context.Context, sub *subscription.Subscription, code string) (*plan.Feature, error) {
	p, err := e.store.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	f := p.FindFeature(code)
	if f == nil || !f.IsMeterable() {
		return nil, fmt.Errorf("%w: %q on plan %s", ErrFeatureNotMeterable, code, p.ID.String())
	}

	return f, nil
}
