// Package memory provides an in-memory store driver. It is the
// reference implementation of the store semantics and what the test
// suites run against.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/plans"
	"github.com/xraph/plans/id"
	"github.com/xraph/plans/plan"
	"github.com/xraph/plans/subscription"
	"github.com/xraph/plans/types"
	"github.com/xraph/plans/usage"
)

type Store struct {
	mu sync.RWMutex

	plans         map[string]*plan.Plan
	subscriptions map[string]*subscription.Subscription

	// usage counters keyed by subscription ID + feature code
	counters map[string]*usage.Counter
}

func New() *Store {
	return &Store{
		plans:         make(map[string]*plan.Plan),
		subscriptions: make(map[string]*subscription.Subscription),
		counters:      make(map[string]*usage.Counter),
	}
}

func counterKey(subID id.SubscriptionID, code string) string {
	return subID.String() + "/" + code
}

// clonePlan guards stored rows against caller mutation.
func clonePlan(p *plan.Plan) *plan.Plan {
	c := *p
	c.Features = make([]plan.Feature, len(p.Features))
	copy(c.Features, p.Features)
	return &c
}

func cloneSubscription(s *subscription.Subscription) *subscription.Subscription {
	c := *s
	if s.CancelledOn != nil {
		t := *s.CancelledOn
		c.CancelledOn = &t
	}
	return &c
}

// ──────────────────────────────────────────────────
// Plans
// ──────────────────────────────────────────────────

func (s *Store) CreatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[p.ID.String()]; exists {
		return plans.ErrAlreadyExists
	}
	s.plans[p.ID.String()] = clonePlan(p)
	return nil
}

func (s *Store) GetPlan(_ context.Context, planID id.PlanID) (*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.plans[planID.String()]; ok {
		return clonePlan(p), nil
	}
	return nil, plans.ErrPlanNotFound
}

func (s *Store) FirstPlan(ctx context.Context) (*plan.Plan, error) {
	all, err := s.ListPlans(ctx, plan.ListOpts{})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, plans.ErrNoPlans
	}
	return all[0], nil
}

func (s *Store) ListPlans(_ context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*plan.Plan, 0, len(s.plans))
	for _, p := range s.plans {
		result = append(result, clonePlan(p))
	}

	// Oldest first; ID breaks creation-time ties deterministically.
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID.String() < result[j].ID.String()
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdatePlan(_ context.Context, p *plan.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[p.ID.String()]; !exists {
		return plans.ErrPlanNotFound
	}
	s.plans[p.ID.String()] = clonePlan(p)
	return nil
}

func (s *Store) DeletePlan(_ context.Context, planID id.PlanID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.plans, planID.String())
	return nil
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; exists {
		return plans.ErrAlreadyExists
	}
	s.subscriptions[sub.ID.String()] = cloneSubscription(sub)
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[subID.String()]; ok {
		return cloneSubscription(sub), nil
	}
	return nil, plans.ErrSubscriptionNotFound
}

func (s *Store) ListSubscriptions(_ context.Context, subject subscription.SubjectRef, f subscription.Filter) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subscriptions {
		if sub.Subject != subject {
			continue
		}
		if f.Paid != nil && sub.Active != *f.Paid {
			continue
		}
		if f.Cancelled != nil && (sub.CancelledOn != nil) != *f.Cancelled {
			continue
		}
		if f.Recurring != nil && sub.Recurring != *f.Recurring {
			continue
		}
		if f.Expired != nil && now.After(sub.ExpiresOn) != *f.Expired {
			continue
		}
		if f.PaymentMethod != nil && sub.PaymentMethod != *f.PaymentMethod {
			continue
		}
		result = append(result, cloneSubscription(sub))
	}

	desc := f.Order == subscription.OrderStartsOnDesc
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartsOn.Equal(result[j].StartsOn) {
			if desc {
				return result[i].ID.String() > result[j].ID.String()
			}
			return result[i].ID.String() < result[j].ID.String()
		}
		if desc {
			return result[i].StartsOn.After(result[j].StartsOn)
		}
		return result[i].StartsOn.Before(result[j].StartsOn)
	})

	return paginate(result, f.Offset, f.Limit), nil
}

func (s *Store) CountSubscriptions(_ context.Context, subject subscription.SubjectRef) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, sub := range s.subscriptions {
		if sub.Subject == subject {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.subscriptions[sub.ID.String()]; !exists {
		return plans.ErrSubscriptionNotFound
	}
	s.subscriptions[sub.ID.String()] = cloneSubscription(sub)
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, subID id.SubscriptionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.subscriptions, subID.String())
	return nil
}

// ──────────────────────────────────────────────────
// Usage counters
// ──────────────────────────────────────────────────

func (s *Store) GetUsage(_ context.Context, subID id.SubscriptionID, code string) (*usage.Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.counters[counterKey(subID, code)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, plans.ErrNotFound
}

func (s *Store) ListUsage(_ context.Context, subID id.SubscriptionID) ([]*usage.Counter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*usage.Counter, 0)
	for _, c := range s.counters {
		if c.SubscriptionID == subID {
			cp := *c
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return result, nil
}

func (s *Store) IncrementUsage(_ context.Context, subID id.SubscriptionID, code string, amount, ceiling int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ensureCounter(subID, code)
	if ceiling >= 0 && c.Used+amount > ceiling {
		return c.Used, plans.ErrLimitExceeded
	}

	c.Used += amount
	c.Touch()
	return c.Used, nil
}

func (s *Store) DecrementUsage(_ context.Context, subID id.SubscriptionID, code string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ensureCounter(subID, code)
	c.Used -= amount
	if c.Used < 0 {
		c.Used = 0
	}
	c.Touch()
	return c.Used, nil
}

func (s *Store) DeleteUsageForSubscription(_ context.Context, subID id.SubscriptionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, c := range s.counters {
		if c.SubscriptionID == subID {
			delete(s.counters, key)
		}
	}
	return nil
}

// ensureCounter lazily creates the zero counter. Caller holds the lock.
func (s *Store) ensureCounter(subID id.SubscriptionID, code string) *usage.Counter {
	key := counterKey(subID, code)
	if c, ok := s.counters[key]; ok {
		return c
	}

	c := &usage.Counter{
		Entity:         types.NewEntity(),
		ID:             id.NewUsageID(),
		SubscriptionID: subID,
		Code:           code,
	}
	s.counters[key] = c
	return c
}

// ──────────────────────────────────────────────────
// Store management
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
