package plans_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/xraph/plans"
	"github.com/xraph/plans/plan"
	"github.com/xraph/plans/store/memory"
	"github.com/xraph/plans/subscription"
	"github.com/xraph/plans/types"
)

// TestDocumentationExamples verifies that the examples in the documentation compile and run
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		eng := plans.New(store,
			plans.WithLogger(slog.Default()),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Create a plan
		p := &plan.Plan{
			Name:         "Pro Plan",
			Price:        types.USD(4900), // $49.00
			DurationDays: 30,
			Features: []plan.Feature{
				{
					Code:  "build.minutes",
					Name:  "Build minutes",
					Kind:  plan.KindLimit,
					Limit: 3000,
				},
				{
					Code: "sso",
					Name: "Single sign-on",
					Kind: plan.KindFeature,
				},
			},
		}

		if err := eng.CreatePlan(ctx, p); err != nil {
			t.Fatal(err)
		}

		// Subscribe a subject to the plan
		user := eng.Subject(subscription.SubjectRef{Kind: "user", ID: "u_42"})
		sub, err := user.SubscribeTo(ctx, p, 30, true)
		if err != nil {
			t.Fatal(err)
		}

		// Consume a metered feature
		remaining, err := eng.ConsumeFeature(ctx, sub, "build.minutes", 25)
		if err != nil {
			t.Fatal(err)
		}
		if remaining != 2975 {
			t.Errorf("remaining: got %d, want 2975", remaining)
		}

		// The quota check is atomic; blowing past the limit fails cleanly.
		if _, err := eng.ConsumeFeature(ctx, sub, "build.minutes", 1_000_000); !errors.Is(err, plans.ErrLimitExceeded) {
			t.Errorf("over-consume: got %v, want ErrLimitExceeded", err)
		}
	})

	// Test Money type examples
	t.Run("MoneyExamples", func(t *testing.T) {
		// Constructors
		_ = types.USD(4900)   // $49.00
		_ = types.EUR(9900)   // 99.00 EUR
		_ = types.Zero("usd") // $0.00

		// Arithmetic
		m1 := types.USD(100)
		m2 := types.USD(200)
		sum := m1.Add(m2) // $3.00
		if sum.Amount != 300 {
			t.Errorf("Add: got %d, want 300", sum.Amount)
		}

		// Formatting
		if got := m1.String(); got != "$1.00" {
			t.Errorf("String: got %q, want $1.00", got)
		}
		if got := m1.FormatMajor(); got != "1.00" {
			t.Errorf("FormatMajor: got %q, want 1.00", got)
		}
	})
}
