package plans_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/plans"
	"github.com/xraph/plans/plan"
	"github.com/xraph/plans/subscription"
)

// meteredFixture subscribes a subject to a plan carrying one metered
// feature (build.minutes, limit as given), one boolean feature (sso),
// and one unlimited metered feature (api.calls).
func meteredFixture(t *testing.T, eng *plans.Engine, limit int64) *subscription.Subscription {
	t.Helper()

	p := mustCreatePlan(t, eng, "Pro", 30,
		plan.Feature{Code: "build.minutes", Name: "Build minutes", Kind: plan.KindLimit, Limit: limit},
		plan.Feature{Code: "sso", Name: "Single sign-on", Kind: plan.KindFeature},
		plan.Feature{Code: "api.calls", Name: "API calls", Kind: plan.KindLimit, Limit: -1},
	)

	sub, err := eng.Subject(testSubject()).SubscribeTo(context.Background(), p, 30, true)
	if err != nil {
		t.Fatalf("SubscribeTo failed: %v", err)
	}

	return sub
}

func TestConsumeFeature(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	sub := meteredFixture(t, eng, 10)

	remaining, err := eng.ConsumeFeature(ctx, sub, "build.minutes", 3)
	if err != nil {
		t.Fatalf("ConsumeFeature failed: %v", err)
	}
	if remaining != 7 {
		t.Errorf("remaining = %d, want 7", remaining)
	}

	used, err := eng.UsageOf(ctx, sub, "build.minutes")
	if err != nil {
		t.Fatalf("UsageOf failed: %v", err)
	}
	if used != 3 {
		t.Errorf("used = %d, want 3", used)
	}

	// Consuming exactly up to the limit is allowed.
	remaining, err = eng.ConsumeFeature(ctx, sub, "build.minutes", 7)
	if err != nil {
		t.Fatalf("ConsumeFeature at boundary failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}

	// One more unit passes the limit and records nothing.
	_, err = eng.ConsumeFeature(ctx, sub, "build.minutes", 1)
	if !errors.Is(err, plans.ErrLimitExceeded) {
		t.Fatalf("over-limit error = %v, want ErrLimitExceeded", err)
	}
	if !plans.IsQuotaError(err) {
		t.Error("ErrLimitExceeded should be a quota error")
	}

	used, err = eng.UsageOf(ctx, sub, "build.minutes")
	if err != nil {
		t.Fatalf("UsageOf failed: %v", err)
	}
	if used != 10 {
		t.Errorf("used after rejected consume = %d, want 10", used)
	}
}

func TestUnconsumeFeature(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	sub := meteredFixture(t, eng, 10)

	if _, err := eng.ConsumeFeature(ctx, sub, "build.minutes", 5); err != nil {
		t.Fatalf("ConsumeFeature failed: %v", err)
	}

	remaining, err := eng.UnconsumeFeature(ctx, sub, "build.minutes", 2)
	if err != nil {
		t.Fatalf("UnconsumeFeature failed: %v", err)
	}
	if remaining != 7 {
		t.Errorf("remaining = %d, want 7", remaining)
	}

	// Releasing more than was consumed clamps the counter at zero.
	remaining, err = eng.UnconsumeFeature(ctx, sub, "build.minutes", 100)
	if err != nil {
		t.Fatalf("UnconsumeFeature failed: %v", err)
	}
	if remaining != 10 {
		t.Errorf("remaining after clamp = %d, want 10", remaining)
	}

	used, err := eng.UsageOf(ctx, sub, "build.minutes")
	if err != nil {
		t.Fatalf("UsageOf failed: %v", err)
	}
	if used != 0 {
		t.Errorf("used after clamp = %d, want 0", used)
	}
}

func TestUnlimitedFeature(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	sub := meteredFixture(t, eng, 10)

	remaining, err := eng.ConsumeFeature(ctx, sub, "api.calls", 1_000_000)
	if err != nil {
		t.Fatalf("ConsumeFeature failed: %v", err)
	}
	if remaining != -1 {
		t.Errorf("remaining = %d, want -1 for unlimited", remaining)
	}

	if got, err := eng.RemainingOf(ctx, sub, "api.calls"); err != nil || got != -1 {
		t.Errorf("RemainingOf = %d, %v, want -1, nil", got, err)
	}

	// Usage is still tracked even when it never hits a ceiling.
	used, err := eng.UsageOf(ctx, sub, "api.calls")
	if err != nil {
		t.Fatalf("UsageOf failed: %v", err)
	}
	if used != 1_000_000 {
		t.Errorf("used = %d, want 1000000", used)
	}
}

func TestNotMeterableFeatures(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	sub := meteredFixture(t, eng, 10)

	for _, code := range []string{"sso", "no.such.feature"} {
		if _, err := eng.ConsumeFeature(ctx, sub, code, 1); !errors.Is(err, plans.ErrFeatureNotMeterable) {
			t.Errorf("ConsumeFeature(%q) error = %v, want ErrFeatureNotMeterable", code, err)
		}
		if _, err := eng.UnconsumeFeature(ctx, sub, code, 1); !errors.Is(err, plans.ErrFeatureNotMeterable) {
			t.Errorf("UnconsumeFeature(%q) error = %v, want ErrFeatureNotMeterable", code, err)
		}
		if _, err := eng.UsageOf(ctx, sub, code); !errors.Is(err, plans.ErrFeatureNotMeterable) {
			t.Errorf("UsageOf(%q) error = %v, want ErrFeatureNotMeterable", code, err)
		}
		if _, err := eng.RemainingOf(ctx, sub, code); !errors.Is(err, plans.ErrFeatureNotMeterable) {
			t.Errorf("RemainingOf(%q) error = %v, want ErrFeatureNotMeterable", code, err)
		}
	}
}

func TestUsageOfUntouchedFeature(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)
	sub := meteredFixture(t, eng, 10)

	used, err := eng.UsageOf(ctx, sub, "build.minutes")
	if err != nil {
		t.Fatalf("UsageOf failed: %v", err)
	}
	if used != 0 {
		t.Errorf("used = %d, want 0 for untouched feature", used)
	}

	if got, err := eng.RemainingOf(ctx, sub, "build.minutes"); err != nil || got != 10 {
		t.Errorf("RemainingOf = %d, %v, want 10, nil", got, err)
	}
}

func TestUsageHooks(t *testing.T) {
	ctx := context.Background()
	capture := &captureHook{}
	eng, _ := newTestEngine(t, capture)
	sub := meteredFixture(t, eng, 10)

	if _, err := eng.ConsumeFeature(ctx, sub, "build.minutes", 4); err != nil {
		t.Fatalf("ConsumeFeature failed: %v", err)
	}
	if _, err := eng.UnconsumeFeature(ctx, sub, "build.minutes", 1); err != nil {
		t.Fatalf("UnconsumeFeature failed: %v", err)
	}
	if _, err := eng.ConsumeFeature(ctx, sub, "build.minutes", 20); !errors.Is(err, plans.ErrLimitExceeded) {
		t.Fatalf("over-limit error = %v, want ErrLimitExceeded", err)
	}

	capture.mu.Lock()
	defer capture.mu.Unlock()

	if len(capture.consumed) != 1 {
		t.Fatalf("got %d consumed events, want 1", len(capture.consumed))
	}
	if evt := capture.consumed[0]; evt.Amount != 4 || evt.Remaining != 6 {
		t.Errorf("consumed event = amount %d remaining %d, want 4/6", evt.Amount, evt.Remaining)
	}

	if len(capture.unconsumed) != 1 {
		t.Fatalf("got %d unconsumed events, want 1", len(capture.unconsumed))
	}
	if evt := capture.unconsumed[0]; evt.Amount != 1 || evt.Remaining != 7 {
		t.Errorf("unconsumed event = amount %d remaining %d, want 1/7", evt.Amount, evt.Remaining)
	}

	if len(capture.exceeded) != 1 {
		t.Fatalf("got %d limit-exceeded events, want 1", len(capture.exceeded))
	}
	if evt := capture.exceeded[0]; evt.Requested != 20 || evt.Used != 3 || evt.Limit != 10 {
		t.Errorf("limit event = requested %d used %d limit %d, want 20/3/10", evt.Requested, evt.Used, evt.Limit)
	}
}
