package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/plans"
	"github.com/xraph/plans/id"
	"github.com/xraph/plans/plan"
	"github.com/xraph/plans/subscription"
	"github.com/xraph/plans/types"
)

func newPlan(name string) *plan.Plan {
	return &plan.Plan{
		Entity:       types.NewEntity(),
		ID:           id.NewPlanID(),
		Name:         name,
		Price:        types.USD(999),
		DurationDays: 30,
	}
}

func newSub(subject subscription.SubjectRef, starts time.Time, paid bool) *subscription.Subscription {
	return &subscription.Subscription{
		Entity:    types.NewEntity(),
		ID:        id.NewSubscriptionID(),
		Subject:   subject,
		PlanID:    id.NewPlanID(),
		Active:    paid,
		StartsOn:  starts,
		ExpiresOn: starts.AddDate(0, 0, 30),
	}
}

func TestPlanCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := newPlan("Basic")
	if err := s.CreatePlan(ctx, p); err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}
	if err := s.CreatePlan(ctx, p); !errors.Is(err, plans.ErrAlreadyExists) {
		t.Errorf("duplicate create: got %v, want ErrAlreadyExists", err)
	}

	got, err := s.GetPlan(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if got.Name != "Basic" {
		t.Errorf("wrong plan: %+v", got)
	}

	if _, err := s.GetPlan(ctx, id.NewPlanID()); !errors.Is(err, plans.ErrPlanNotFound) {
		t.Errorf("missing plan: got %v, want ErrPlanNotFound", err)
	}

	if err := s.DeletePlan(ctx, p.ID); err != nil {
		t.Fatalf("DeletePlan failed: %v", err)
	}
	if _, err := s.GetPlan(ctx, p.ID); !errors.Is(err, plans.ErrPlanNotFound) {
		t.Errorf("after delete: got %v, want ErrPlanNotFound", err)
	}
}

func TestFirstPlanOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.FirstPlan(ctx); !errors.Is(err, plans.ErrNoPlans) {
		t.Errorf("empty store: got %v, want ErrNoPlans", err)
	}

	oldest := newPlan("Oldest")
	oldest.CreatedAt = time.Now().Add(-time.Hour)
	newest := newPlan("Newest")

	if err := s.CreatePlan(ctx, newest); err != nil {
		t.Fatal(err)
	}
	if err := s.CreatePlan(ctx, oldest); err != nil {
		t.Fatal(err)
	}

	first, err := s.FirstPlan(ctx)
	if err != nil {
		t.Fatalf("FirstPlan failed: %v", err)
	}
	if first.Name != "Oldest" {
		t.Errorf("FirstPlan: got %q, want Oldest", first.Name)
	}
}

func TestStoredRowsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := New()

	p := newPlan("Basic")
	p.Features = []plan.Feature{{ID: id.NewFeatureID(), Code: "seats", Kind: plan.KindLimit, Limit: 5}}
	if err := s.CreatePlan(ctx, p); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's copy must not affect the stored row.
	p.Features[0].Limit = 999
	got, err := s.GetPlan(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Features[0].Limit != 5 {
		t.Errorf("stored row was mutated through caller reference: limit=%d", got.Features[0].Limit)
	}
}

func TestListSubscriptionFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	subject := subscription.SubjectRef{Kind: "user", ID: "u1"}
	other := subscription.SubjectRef{Kind: "user", ID: "u2"}
	now := time.Now()

	paid := newSub(subject, now.Add(-time.Hour), true)
	unpaid := newSub(subject, now.Add(-2*time.Hour), false)
	expired := newSub(subject, now.AddDate(0, 0, -90), true)
	cancelled := newSub(subject, now.Add(-3*time.Hour), true)
	cancelledAt := now.Add(-time.Minute)
	cancelled.CancelledOn = &cancelledAt
	stripe := newSub(subject, now.Add(-4*time.Hour), true)
	stripe.PaymentMethod = "stripe"
	foreign := newSub(other, now, true)

	for _, sub := range []*subscription.Subscription{paid, unpaid, expired, cancelled, stripe, foreign} {
		if err := s.CreateSubscription(ctx, sub); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name   string
		filter subscription.Filter
		want   []id.SubscriptionID
	}{
		{
			"all for subject, ascending",
			subscription.Filter{Order: subscription.OrderStartsOnAsc},
			[]id.SubscriptionID{expired.ID, stripe.ID, cancelled.ID, unpaid.ID, paid.ID},
		},
		{
			"unpaid only",
			subscription.Filter{Paid: subscription.Bool(false)},
			[]id.SubscriptionID{unpaid.ID},
		},
		{
			"cancelled only",
			subscription.Filter{Cancelled: subscription.Bool(true)},
			[]id.SubscriptionID{cancelled.ID},
		},
		{
			"expired only",
			subscription.Filter{Expired: subscription.Bool(true)},
			[]id.SubscriptionID{expired.ID},
		},
		{
			"payment method tag",
			subscription.Filter{PaymentMethod: subscription.String("stripe")},
			[]id.SubscriptionID{stripe.ID},
		},
		{
			"latest first, limit 1",
			subscription.Filter{Order: subscription.OrderStartsOnDesc, Limit: 1},
			[]id.SubscriptionID{paid.ID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListSubscriptions(ctx, subject, tt.filter)
			if err != nil {
				t.Fatalf("ListSubscriptions failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d subscriptions, want %d", len(got), len(tt.want))
			}
			for i, sub := range got {
				if sub.ID != tt.want[i] {
					t.Errorf("position %d: got %s, want %s", i, sub.ID.String(), tt.want[i].String())
				}
			}
		})
	}

	n, err := s.CountSubscriptions(ctx, subject)
	if err != nil {
		t.Fatalf("CountSubscriptions failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Count: got %d, want 5", n)
	}
}

func TestUsageIncrementCeiling(t *testing.T) {
	ctx := context.Background()
	s := New()
	subID := id.NewSubscriptionID()

	used, err := s.IncrementUsage(ctx, subID, "builds", 3, 10)
	if err != nil {
		t.Fatalf("IncrementUsage failed: %v", err)
	}
	if used != 3 {
		t.Errorf("used: got %d, want 3", used)
	}

	// Exactly hitting the ceiling is allowed.
	if used, err = s.IncrementUsage(ctx, subID, "builds", 7, 10); err != nil {
		t.Fatalf("IncrementUsage to ceiling failed: %v", err)
	}
	if used != 10 {
		t.Errorf("used: got %d, want 10", used)
	}

	// Passing it is not, and leaves the counter untouched.
	used, err = s.IncrementUsage(ctx, subID, "builds", 1, 10)
	if !errors.Is(err, plans.ErrLimitExceeded) {
		t.Errorf("over ceiling: got %v, want ErrLimitExceeded", err)
	}
	if used != 10 {
		t.Errorf("used after rejection: got %d, want 10", used)
	}

	// Negative ceiling means unbounded.
	if _, err := s.IncrementUsage(ctx, subID, "builds", 1000, -1); err != nil {
		t.Fatalf("unbounded increment failed: %v", err)
	}
}

func TestUsageDecrementClamps(t *testing.T) {
	ctx := context.Background()
	s := New()
	subID := id.NewSubscriptionID()

	if _, err := s.IncrementUsage(ctx, subID, "builds", 5, -1); err != nil {
		t.Fatal(err)
	}

	used, err := s.DecrementUsage(ctx, subID, "builds", 100)
	if err != nil {
		t.Fatalf("DecrementUsage failed: %v", err)
	}
	if used != 0 {
		t.Errorf("used: got %d, want 0 (clamped)", used)
	}

	// Decrement on a fresh counter lazily creates it at zero.
	used, err = s.DecrementUsage(ctx, subID, "storage", 2)
	if err != nil {
		t.Fatalf("DecrementUsage failed: %v", err)
	}
	if used != 0 {
		t.Errorf("fresh counter: got %d, want 0", used)
	}
}

func TestDeleteUsageForSubscription(t *testing.T) {
	ctx := context.Background()
	s := New()
	subID := id.NewSubscriptionID()
	otherID := id.NewSubscriptionID()

	if _, err := s.IncrementUsage(ctx, subID, "builds", 5, -1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.IncrementUsage(ctx, subID, "storage", 2, -1); err != nil {
		t.Fatal(err)
	}
	if _, err := s.IncrementUsage(ctx, otherID, "builds", 1, -1); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteUsageForSubscription(ctx, subID); err != nil {
		t.Fatalf("DeleteUsageForSubscription failed: %v", err)
	}

	if _, err := s.GetUsage(ctx, subID, "builds"); !errors.Is(err, plans.ErrNotFound) {
		t.Errorf("deleted counter: got %v, want ErrNotFound", err)
	}
	if _, err := s.GetUsage(ctx, otherID, "builds"); err != nil {
		t.Errorf("other subscription's counter should survive: %v", err)
	}
}
