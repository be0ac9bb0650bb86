package plan

import (
	"testing"

	"github.com/xraph/plans/id"
	"github.com/xraph/plans/types"
)

func testPlan() *Plan {
	return &Plan{
		ID:           id.NewPlanID(),
		Name:         "Pro",
		Description:  "Professional plan",
		Price:        types.USD(4900),
		DurationDays: 30,
		Features: []Feature{
			{ID: id.NewFeatureID(), Code: "sso", Name: "Single sign-on", Kind: KindFeature},
			{ID: id.NewFeatureID(), Code: "build.minutes", Name: "Build minutes", Kind: KindLimit, Limit: 3000},
			{ID: id.NewFeatureID(), Code: "api.calls", Name: "API calls", Kind: KindLimit, Limit: -1},
		},
	}
}

func TestFindFeature(t *testing.T) {
	p := testPlan()

	f := p.FindFeature("build.minutes")
	if f == nil {
		t.Fatal("expected feature, got nil")
	}
	if f.Name != "Build minutes" {
		t.Errorf("wrong feature: %+v", f)
	}

	if got := p.FindFeature("nonexistent"); got != nil {
		t.Errorf("expected nil for unknown code, got %+v", got)
	}

	if !p.HasFeature("sso") {
		t.Error("expected HasFeature(sso) to be true")
	}
	if p.HasFeature("nonexistent") {
		t.Error("expected HasFeature(nonexistent) to be false")
	}
}

func TestFeatureKinds(t *testing.T) {
	tests := []struct {
		name      string
		feature   Feature
		meterable bool
		unlimited bool
	}{
		{"boolean feature", Feature{Code: "sso", Kind: KindFeature}, false, false},
		{"bounded limit", Feature{Code: "build.minutes", Kind: KindLimit, Limit: 3000}, true, false},
		{"unlimited limit", Feature{Code: "api.calls", Kind: KindLimit, Limit: -1}, true, true},
		{"zero limit", Feature{Code: "seats", Kind: KindLimit, Limit: 0}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.feature.IsMeterable(); got != tt.meterable {
				t.Errorf("IsMeterable: got %v, want %v", got, tt.meterable)
			}
			if got := tt.feature.IsUnlimited(); got != tt.unlimited {
				t.Errorf("IsUnlimited: got %v, want %v", got, tt.unlimited)
			}
		})
	}
}

func TestFeatureRemaining(t *testing.T) {
	tests := []struct {
		name     string
		feature  Feature
		used     int64
		expected int64
	}{
		{"untouched", Feature{Kind: KindLimit, Limit: 100}, 0, 100},
		{"partially used", Feature{Kind: KindLimit, Limit: 100}, 30, 70},
		{"fully used", Feature{Kind: KindLimit, Limit: 100}, 100, 0},
		{"unlimited", Feature{Kind: KindLimit, Limit: -1}, 500, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.feature.Remaining(tt.used); got != tt.expected {
				t.Errorf("Remaining(%d): got %d, want %d", tt.used, got, tt.expected)
			}
		})
	}
}
