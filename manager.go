package plans

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/plans/hook"
	"github.com/xraph/plans/id"
	"github.com/xraph/plans/plan"
	"github.com/xraph/plans/subscription"
	"github.com/xraph/plans/types"
)

// Manager binds the engine to one subject and carries its subscription
// lifecycle: subscribe, extend, upgrade, cancel, renew, plus the
// derived-state queries those commands rely on.
//
// Commands on the same subject must be serialized by the caller; two
// concurrent SubscribeTo calls can both pass the already-subscribed
// check. Feature accounting on the Engine does not have this
// restriction.
type Manager struct {
	engine  *Engine
	subject subscription.SubjectRef
}

// Subject returns the subject this manager is bound to.
func (m *Manager) Subject() subscription.SubjectRef {
	return m.subject
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// HasSubscriptions reports whether the subject ever subscribed.
func (m *Manager) HasSubscriptions(ctx context.Context) (bool, error) {
	n, err := m.engine.store.CountSubscriptions(ctx, m.subject)
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

// ActiveSubscription returns the subscription currently in force: paid,
// not cancelled, and inside its window. When several overlap, the one
// that started earliest wins. Fails with ErrNoActiveSubscription.
func (m *Manager) ActiveSubscription(ctx context.Context) (*subscription.Subscription, error) {
	subs, err := m.engine.store.ListSubscriptions(ctx, m.subject, subscription.Filter{
		Paid:      subscription.Bool(true),
		Cancelled: subscription.Bool(false),
		Expired:   subscription.Bool(false),
		Order:     subscription.OrderStartsOnAsc,
	})
	if err != nil {
		return nil, err
	}

	for _, s := range subs {
		if s.IsActive() {
			return s, nil
		}
	}

	return nil, ErrNoActiveSubscription
}

// HasActiveSubscription reports whether ActiveSubscription would succeed.
func (m *Manager) HasActiveSubscription(ctx context.Context) (bool, error) {
	_, err := m.ActiveSubscription(ctx)
	if errors.Is(err, ErrNoActiveSubscription) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// LastSubscription returns the most recently started subscription in
// any state. Fails with ErrNoSubscriptions.
func (m *Manager) LastSubscription(ctx context.Context) (*subscription.Subscription, error) {
	subs, err := m.engine.store.ListSubscriptions(ctx, m.subject, subscription.Filter{
		Order: subscription.OrderStartsOnDesc,
		Limit: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrNoSubscriptions
	}

	return subs[0], nil
}

// LastActiveSubscription returns the active subscription if one exists,
// otherwise the most recently started paid, uncancelled one. Fails with
// ErrNoActiveSubscription when the subject never had a qualifying
// subscription.
func (m *Manager) LastActiveSubscription(ctx context.Context) (*subscription.Subscription, error) {
	active, err := m.ActiveSubscription(ctx)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, ErrNoActiveSubscription) {
		return nil, err
	}

	subs, err := m.engine.store.ListSubscriptions(ctx, m.subject, subscription.Filter{
		Paid:      subscription.Bool(true),
		Cancelled: subscription.Bool(false),
		Order:     subscription.OrderStartsOnDesc,
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrNoActiveSubscription
	}

	return subs[0], nil
}

// LastUnpaidSubscription returns the most recently started unpaid,
// uncancelled subscription. Fails with ErrSubscriptionNotFound.
func (m *Manager) LastUnpaidSubscription(ctx context.Context) (*subscription.Subscription, error) {
	subs, err := m.engine.store.ListSubscriptions(ctx, m.subject, subscription.Filter{
		Paid:      subscription.Bool(false),
		Cancelled: subscription.Bool(false),
		Order:     subscription.OrderStartsOnDesc,
		Limit:     1,
	})
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrSubscriptionNotFound
	}

	return subs[0], nil
}

// LastDueSubscription returns the subscription awaiting payment: the
// subject has subscriptions, none is active, and the latest qualifying
// one differs from the latest overall. Fails with
// ErrSubscriptionNotFound when nothing is due.
func (m *Manager) LastDueSubscription(ctx context.Context) (*subscription.Subscription, error) {
	has, err := m.HasSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrSubscriptionNotFound
	}

	if active, err := m.HasActiveSubscription(ctx); err != nil {
		return nil, err
	} else if active {
		return nil, ErrSubscriptionNotFound
	}

	last, err := m.LastSubscription(ctx)
	if err != nil {
		return nil, err
	}

	lastActive, err := m.LastActiveSubscription(ctx)
	if err != nil && !errors.Is(err, ErrNoActiveSubscription) {
		return nil, err
	}
	if lastActive != nil && lastActive.ID == last.ID {
		return nil, ErrSubscriptionNotFound
	}

	due, err := m.LastUnpaidSubscription(ctx)
	if err != nil {
		return nil, err
	}

	return due, nil
}

// HasDueSubscription reports whether LastDueSubscription would succeed.
func (m *Manager) HasDueSubscription(ctx context.Context) (bool, error) {
	_, err := m.LastDueSubscription(ctx)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

// Subscriptions returns the subject's subscriptions matching the filter.
func (m *Manager) Subscriptions(ctx context.Context, f subscription.Filter) ([]*subscription.Subscription, error) {
	return m.engine.store.ListSubscriptions(ctx, m.subject, f)
}

// ──────────────────────────────────────────────────
// Commands
// ──────────────────────────────────────────────────

// SubscribeTo subscribes the subject to a plan for durationDays days.
// A pending due subscription is replaced together with its usage
// counters. The window opens one second in the past so the new
// subscription is active immediately. Fails with ErrInvalidDuration or
// ErrAlreadySubscribed.
func (m *Manager) SubscribeTo(ctx context.Context, p *plan.Plan, durationDays int, isRecurring bool) (*subscription.Subscription, error) {
	if durationDays < 1 {
		return nil, ErrInvalidDuration
	}

	if err := m.ensureNotSubscribed(ctx); err != nil {
		return nil, err
	}

	if err := m.replaceDueSubscription(ctx); err != nil {
		return nil, err
	}

	now := time.Now()
	sub, err := m.createSubscription(ctx, p, now.Add(-time.Second), now.AddDate(0, 0, durationDays), durationDays, isRecurring)
	if err != nil {
		return nil, err
	}

	m.engine.hooks.EmitNewSubscription(ctx, hook.NewSubscription{
		Subject:      m.subject,
		Subscription: sub,
	})

	return sub, nil
}

// SubscribeToUntil subscribes the subject to a plan until an explicit
// expiry date. The recurrence period becomes the whole number of days
// in the window. Fails with ErrInvalidTargetDate when date is not in
// the future.
func (m *Manager) SubscribeToUntil(ctx context.Context, p *plan.Plan, date time.Time, isRecurring bool) (*subscription.Subscription, error) {
	now := time.Now()
	if !date.After(now) {
		return nil, ErrInvalidTargetDate
	}

	if err := m.ensureNotSubscribed(ctx); err != nil {
		return nil, err
	}

	if err := m.replaceDueSubscription(ctx); err != nil {
		return nil, err
	}

	starts := now.Add(-time.Second)
	sub, err := m.createSubscription(ctx, p, starts, date, daysBetween(starts, date), isRecurring)
	if err != nil {
		return nil, err
	}

	m.engine.hooks.EmitNewSubscriptionUntil(ctx, hook.NewSubscriptionUntil{
		Subject:      m.subject,
		Subscription: sub,
		ExpiresOn:    date,
	})

	return sub, nil
}

// ExtendCurrentSubscriptionWith lengthens the current subscription by
// durationDays. With startFromNow the active window is stretched in
// place; otherwise a successor subscription on the same plan covers
// the added days. Without an active subscription this falls back to a
// fresh SubscribeTo on the last active plan, or the first stored plan.
func (m *Manager) ExtendCurrentSubscriptionWith(ctx context.Context, durationDays int, startFromNow, isRecurring bool) (*subscription.Subscription, error) {
	if durationDays < 1 {
		return nil, ErrInvalidDuration
	}

	active, err := m.ActiveSubscription(ctx)
	if errors.Is(err, ErrNoActiveSubscription) {
		p, ferr := m.fallbackPlan(ctx)
		if ferr != nil {
			return nil, ferr
		}

		return m.SubscribeTo(ctx, p, durationDays, isRecurring)
	}
	if err != nil {
		return nil, err
	}

	if startFromNow {
		active.ExpiresOn = active.ExpiresOn.AddDate(0, 0, durationDays)
		active.Touch()
		if err := m.engine.store.UpdateSubscription(ctx, active); err != nil {
			return nil, err
		}

		m.engine.hooks.EmitExtendSubscription(ctx, hook.ExtendSubscription{
			Subject:      m.subject,
			Subscription: active,
			StartFromNow: true,
		})

		return active, nil
	}

	successor, err := m.createSuccessor(ctx, active, active.ExpiresOn.AddDate(0, 0, durationDays), durationDays, isRecurring)
	if err != nil {
		return nil, err
	}

	m.engine.hooks.EmitExtendSubscription(ctx, hook.ExtendSubscription{
		Subject:      m.subject,
		Subscription: active,
		StartFromNow: false,
		Successor:    successor,
	})

	return successor, nil
}

// ExtendCurrentSubscriptionUntil lengthens the current subscription to
// an explicit date. With startFromNow the date must be in the future;
// on the successor path it must not precede the active expiry.
func (m *Manager) ExtendCurrentSubscriptionUntil(ctx context.Context, date time.Time, startFromNow, isRecurring bool) (*subscription.Subscription, error) {
	active, err := m.ActiveSubscription(ctx)
	if errors.Is(err, ErrNoActiveSubscription) {
		p, ferr := m.fallbackPlan(ctx)
		if ferr != nil {
			return nil, ferr
		}

		return m.SubscribeToUntil(ctx, p, date, isRecurring)
	}
	if err != nil {
		return nil, err
	}

	if startFromNow {
		if !date.After(time.Now()) {
			return nil, ErrInvalidTargetDate
		}

		active.ExpiresOn = date
		active.Touch()
		if err := m.engine.store.UpdateSubscription(ctx, active); err != nil {
			return nil, err
		}

		m.engine.hooks.EmitExtendSubscriptionUntil(ctx, hook.ExtendSubscriptionUntil{
			Subject:      m.subject,
			Subscription: active,
			ExpiresOn:    date,
			StartFromNow: true,
		})

		return active, nil
	}

	if active.ExpiresOn.After(date) {
		return nil, fmt.Errorf("%w: expires %s, target %s",
			ErrDateBeforeExpiry, active.ExpiresOn.Format(time.RFC3339), date.Format(time.RFC3339))
	}

	successor, err := m.createSuccessor(ctx, active, date, daysBetween(active.ExpiresOn, date), isRecurring)
	if err != nil {
		return nil, err
	}

	m.engine.hooks.EmitExtendSubscriptionUntil(ctx, hook.ExtendSubscriptionUntil{
		Subject:      m.subject,
		Subscription: active,
		ExpiresOn:    date,
		StartFromNow: false,
		Successor:    successor,
	})

	return successor, nil
}

// UpgradeCurrentPlanTo moves the subject to a different plan, extending
// the subscription by durationDays in the process. Without an active
// subscription this is a plain SubscribeTo. The extension and the plan
// reassignment are one logical change: the returned subscription
// already carries the new plan.
func (m *Manager) UpgradeCurrentPlanTo(ctx context.Context, newPlan *plan.Plan, durationDays int, startFromNow, isRecurring bool) (*subscription.Subscription, error) {
	active, err := m.ActiveSubscription(ctx)
	if errors.Is(err, ErrNoActiveSubscription) {
		return m.SubscribeTo(ctx, newPlan, durationDays, isRecurring)
	}
	if err != nil {
		return nil, err
	}

	oldPlan, err := m.engine.store.GetPlan(ctx, active.PlanID)
	if err != nil {
		return nil, err
	}

	target, err := m.ExtendCurrentSubscriptionWith(ctx, durationDays, startFromNow, isRecurring)
	if err != nil {
		return nil, err
	}

	if err := m.reassignPlan(ctx, target, newPlan); err != nil {
		return nil, err
	}

	m.engine.hooks.EmitUpgradeSubscription(ctx, hook.UpgradeSubscription{
		Subject:      m.subject,
		Subscription: target,
		StartFromNow: startFromNow,
		OldPlan:      oldPlan,
		NewPlan:      newPlan,
	})

	return target, nil
}

// UpgradeCurrentPlanToUntil moves the subject to a different plan with
// a date-bounded extension. Without an active subscription this is a
// plain SubscribeToUntil.
func (m *Manager) UpgradeCurrentPlanToUntil(ctx context.Context, newPlan *plan.Plan, date time.Time, startFromNow, isRecurring bool) (*subscription.Subscription, error) {
	active, err := m.ActiveSubscription(ctx)
	if errors.Is(err, ErrNoActiveSubscription) {
		return m.SubscribeToUntil(ctx, newPlan, date, isRecurring)
	}
	if err != nil {
		return nil, err
	}

	oldPlan, err := m.engine.store.GetPlan(ctx, active.PlanID)
	if err != nil {
		return nil, err
	}

	target, err := m.ExtendCurrentSubscriptionUntil(ctx, date, startFromNow, isRecurring)
	if err != nil {
		return nil, err
	}

	if err := m.reassignPlan(ctx, target, newPlan); err != nil {
		return nil, err
	}

	m.engine.hooks.EmitUpgradeSubscriptionUntil(ctx, hook.UpgradeSubscriptionUntil{
		Subject:      m.subject,
		Subscription: target,
		ExpiresOn:    date,
		StartFromNow: startFromNow,
		OldPlan:      oldPlan,
		NewPlan:      newPlan,
	})

	return target, nil
}

// CancelCurrentSubscription cancels the subscription currently in its
// window. The subscription stays usable until it expires but will not
// recur. Fails with ErrNoActiveSubscription, ErrPendingCancellation on
// a repeat cancel, or ErrAlreadyCancelled.
func (m *Manager) CancelCurrentSubscription(ctx context.Context) (*subscription.Subscription, error) {
	cur, err := m.currentWindowSubscription(ctx)
	if err != nil {
		return nil, err
	}

	if cur.IsPendingCancellation() {
		return nil, ErrPendingCancellation
	}
	if cur.IsCancelled() {
		return nil, ErrAlreadyCancelled
	}

	cur.Cancel()
	if err := m.engine.store.UpdateSubscription(ctx, cur); err != nil {
		return nil, err
	}

	m.engine.hooks.EmitCancelSubscription(ctx, hook.CancelSubscription{
		Subject:      m.subject,
		Subscription: cur,
	})

	return cur, nil
}

// RenewSubscription starts a fresh period on the plan of the last
// active subscription, using its recurrence length. It only applies
// when every period has lapsed: an active subscription, a cancelled or
// non-recurring last period, or one still awaiting payment all fail
// with the matching sentinel.
func (m *Manager) RenewSubscription(ctx context.Context) (*subscription.Subscription, error) {
	has, err := m.HasSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, ErrNoSubscriptions
	}

	if active, err := m.HasActiveSubscription(ctx); err != nil {
		return nil, err
	} else if active {
		return nil, ErrAlreadySubscribed
	}

	last, err := m.LastActiveSubscription(ctx)
	if err != nil {
		return nil, err
	}

	if !last.Recurring {
		return nil, ErrNotRecurring
	}
	if last.IsCancelled() {
		return nil, ErrAlreadyCancelled
	}
	if last.PaymentMethod != "" && !last.Active {
		return nil, ErrAwaitingPayment
	}

	p, err := m.engine.store.GetPlan(ctx, last.PlanID)
	if err != nil {
		return nil, err
	}

	return m.SubscribeTo(ctx, p, last.RecurringEachDays, true)
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

// currentWindowSubscription returns the paid subscription whose window
// contains now, regardless of cancellation.
func (m *Manager) currentWindowSubscription(ctx context.Context) (*subscription.Subscription, error) {
	subs, err := m.engine.store.ListSubscriptions(ctx, m.subject, subscription.Filter{
		Paid:    subscription.Bool(true),
		Expired: subscription.Bool(false),
		Order:   subscription.OrderStartsOnAsc,
	})
	if err != nil {
		return nil, err
	}

	for _, s := range subs {
		if s.IsActive() {
			return s, nil
		}
	}

	return nil, ErrNoActiveSubscription
}

func (m *Manager) ensureNotSubscribed(ctx context.Context) error {
	active, err := m.HasActiveSubscription(ctx)
	if err != nil {
		return err
	}
	if active {
		return ErrAlreadySubscribed
	}

	return nil
}

// replaceDueSubscription deletes a due subscription and its usage
// counters before a new one is created.
func (m *Manager) replaceDueSubscription(ctx context.Context) error {
	due, err := m.LastDueSubscription(ctx)
	if errors.Is(err, ErrSubscriptionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := m.engine.store.DeleteUsageForSubscription(ctx, due.ID); err != nil {
		return err
	}
	if err := m.engine.store.DeleteSubscription(ctx, due.ID); err != nil {
		return err
	}

	m.engine.logger.Debug("due subscription replaced",
		"subject", m.subject.String(),
		"subscription_id", due.ID.String(),
	)

	return nil
}

func (m *Manager) createSubscription(ctx context.Context, p *plan.Plan, starts, expires time.Time, recurringEachDays int, isRecurring bool) (*subscription.Subscription, error) {
	sub := &subscription.Subscription{
		Entity:            types.NewEntity(),
		ID:                id.NewSubscriptionID(),
		Subject:           m.subject,
		PlanID:            p.ID,
		Active:            true,
		ChargingPrice:     p.Price,
		Recurring:         isRecurring,
		RecurringEachDays: recurringEachDays,
		StartsOn:          starts,
		ExpiresOn:         expires,
	}

	if err := m.engine.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// createSuccessor opens a follow-up subscription on the active plan,
// starting where the active window ends.
func (m *Manager) createSuccessor(ctx context.Context, active *subscription.Subscription, expires time.Time, recurringEachDays int, isRecurring bool) (*subscription.Subscription, error) {
	p, err := m.engine.store.GetPlan(ctx, active.PlanID)
	if err != nil {
		return nil, err
	}

	sub := &subscription.Subscription{
		Entity:            types.NewEntity(),
		ID:                id.NewSubscriptionID(),
		Subject:           m.subject,
		PlanID:            active.PlanID,
		Active:            true,
		ChargingPrice:     p.Price,
		Recurring:         isRecurring,
		RecurringEachDays: recurringEachDays,
		StartsOn:          active.ExpiresOn,
		ExpiresOn:         expires,
	}

	if err := m.engine.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	return sub, nil
}

// fallbackPlan is the extend target when nothing is active: the plan of
// the last active subscription, else the first stored plan.
func (m *Manager) fallbackPlan(ctx context.Context) (*plan.Plan, error) {
	last, err := m.LastActiveSubscription(ctx)
	if err == nil {
		return m.engine.store.GetPlan(ctx, last.PlanID)
	}
	if !errors.Is(err, ErrNoActiveSubscription) {
		return nil, err
	}

	return m.engine.store.FirstPlan(ctx)
}

// reassignPlan moves a subscription to a different plan. No-op when the
// plan is unchanged.
func (m *Manager) reassignPlan(ctx context.Context, sub *subscription.Subscription, newPlan *plan.Plan) error {
	if sub.PlanID == newPlan.ID {
		return nil
	}

	sub.PlanID = newPlan.ID
	sub.Touch()

	return m.engine.store.UpdateSubscription(ctx, sub)
}

// daysBetween returns the whole number of days from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
