package plans_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/plans"
	"github.com/xraph/plans/plan"
	"github.com/xraph/plans/subscription"
	"github.com/xraph/plans/types"
)

func TestCreatePlanValidation(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	tests := []struct {
		name      string
		plan      *plan.Plan
		wantField string
	}{
		{
			"empty name",
			&plan.Plan{DurationDays: 30},
			"name",
		},
		{
			"zero duration",
			&plan.Plan{Name: "Starter"},
			"duration_days",
		},
		{
			"feature without code",
			&plan.Plan{
				Name:         "Starter",
				DurationDays: 30,
				Features:     []plan.Feature{{Name: "SSO", Kind: plan.KindFeature}},
			},
			"features.code",
		},
		{
			"duplicate feature code",
			&plan.Plan{
				Name:         "Starter",
				DurationDays: 30,
				Features: []plan.Feature{
					{Code: "sso", Kind: plan.KindFeature},
					{Code: "sso", Kind: plan.KindFeature},
				},
			},
			"features.code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eng.CreatePlan(ctx, tt.plan)
			var verr plans.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("CreatePlan error = %v, want ValidationError", err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", verr.Field, tt.wantField)
			}
		})
	}
}

func TestCreatePlanAssignsIDs(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	p := &plan.Plan{
		Name:         "Pro",
		Price:        types.USD(2900),
		DurationDays: 30,
		Features: []plan.Feature{
			{Code: "build.minutes", Name: "Build minutes", Kind: plan.KindLimit, Limit: 3000},
			{Code: "sso", Name: "Single sign-on", Kind: plan.KindFeature},
		},
	}
	if err := eng.CreatePlan(ctx, p); err != nil {
		t.Fatalf("CreatePlan failed: %v", err)
	}

	if p.ID.IsNil() {
		t.Error("plan ID should be assigned")
	}
	for i := range p.Features {
		if p.Features[i].ID.IsNil() {
			t.Errorf("feature %q ID should be assigned", p.Features[i].Code)
		}
	}

	got, err := eng.GetPlan(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPlan failed: %v", err)
	}
	if got.Name != p.Name || len(got.Features) != 2 {
		t.Errorf("GetPlan = %q with %d features, want %q with 2", got.Name, len(got.Features), p.Name)
	}
	if f := got.FindFeature("build.minutes"); f == nil || f.Limit != 3000 {
		t.Errorf("FindFeature(build.minutes) = %v, want limit 3000", f)
	}
}

func TestPlanCatalog(t *testing.T) {
	ctx := context.Background()
	eng, _ := newTestEngine(t)

	if _, err := eng.FirstPlan(ctx); !errors.Is(err, plans.ErrNoPlans) {
		t.Fatalf("FirstPlan on empty catalog error = %v, want ErrNoPlans", err)
	}

	first := mustCreatePlan(t, eng, "Basic", 30)
	mustCreatePlan(t, eng, "Pro", 30)

	got, err := eng.FirstPlan(ctx)
	if err != nil {
		t.Fatalf("FirstPlan failed: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("FirstPlan = %s, want oldest plan %s", got.ID, first.ID)
	}

	all, err := eng.ListPlans(ctx, plan.ListOpts{})
	if err != nil {
		t.Fatalf("ListPlans failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("got %d plans, want 2", len(all))
	}

	if err := eng.DeletePlan(ctx, first.ID); err != nil {
		t.Fatalf("DeletePlan failed: %v", err)
	}
	if _, err := eng.GetPlan(ctx, first.ID); !errors.Is(err, plans.ErrPlanNotFound) {
		t.Errorf("GetPlan after delete error = %v, want ErrPlanNotFound", err)
	}
}

func TestRenewExpired(t *testing.T) {
	ctx := context.Background()
	eng, s := newTestEngine(t)
	p := mustCreatePlan(t, eng, "Starter", 30)

	active := subscription.SubjectRef{Kind: "user", ID: "u_active"}
	fresh := subscription.SubjectRef{Kind: "user", ID: "u_fresh"}
	lapsed := subscription.SubjectRef{Kind: "user", ID: "u_lapsed"}

	if _, err := eng.Subject(active).SubscribeTo(ctx, p, 30, true); err != nil {
		t.Fatalf("SubscribeTo failed: %v", err)
	}
	seedSubscription(t, s, &subscription.Subscription{
		Subject:           lapsed,
		PlanID:            p.ID,
		Active:            true,
		Recurring:         true,
		RecurringEachDays: 30,
		StartsOn:          time.Now().AddDate(0, 0, -60),
		ExpiresOn:         time.Now().AddDate(0, 0, -30),
	})

	renewed, err := eng.RenewExpired(ctx, active, fresh, lapsed)
	if err != nil {
		t.Fatalf("RenewExpired failed: %v", err)
	}

	// Only the lapsed recurring subject qualifies; the active one and
	// the never-subscribed one are skipped.
	if len(renewed) != 1 || renewed[0] != lapsed {
		t.Fatalf("renewed = %v, want [%v]", renewed, lapsed)
	}

	got, err := eng.Subject(lapsed).ActiveSubscription(ctx)
	if err != nil {
		t.Fatalf("ActiveSubscription after renew failed: %v", err)
	}
	if got.PlanID != p.ID {
		t.Errorf("renewed PlanID = %s, want %s", got.PlanID, p.ID)
	}
}
