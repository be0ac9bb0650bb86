package plan

import (
	"github.com/xraph/plans/id"
	"github.com/xraph/plans/types"
)

// Plan describes a subscribable offering: a price, a duration in days,
// and a set of features that subscriptions to this plan are entitled to.
type Plan struct {
	types.Entity
	ID           id.PlanID         `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Price        types.Money       `json:"price"`
	DurationDays int               `json:"duration_days"`
	Features     []Feature         `json:"features"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Feature is a capability granted by a plan. Features are either simple
// flags (KindFeature) or metered allowances with a limit (KindLimit).
type Feature struct {
	types.Entity
	ID          id.FeatureID      `json:"id"`
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Kind        Kind              `json:"kind"`
	Limit       int64             `json:"limit"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Kind classifies a feature.
type Kind string

const (
	// KindFeature is a boolean capability with no usage tracking.
	KindFeature Kind = "feature"
	// KindLimit is a metered allowance tracked against Limit.
	KindLimit Kind = "limit"
)

// FindFeature returns the feature with the given code, or nil when the
// plan carries no such feature.
func (p *Plan) FindFeature(code string) *Feature {
	for i := range p.Features {
		if p.Features[i].Code == code {
			return &p.Features[i]
		}
	}
	return nil
}

// HasFeature reports whether the plan carries a feature with the given code.
func (p *Plan) HasFeature(code string) bool {
	return p.FindFeature(code) != nil
}

// IsMeterable reports whether usage can be consumed against this feature.
func (f *Feature) IsMeterable() bool {
	return f.Kind == KindLimit
}

// IsUnlimited reports whether the feature allows unbounded consumption.
// Any negative limit means unlimited.
func (f *Feature) IsUnlimited() bool {
	return f.Limit < 0
}

// Remaining returns how much of the allowance is left given current usage.
// Unlimited features always report -1.
func (f *Feature) Remaining(used int64) int64 {
	if f.IsUnlimited() {
		return -1
	}
	return f.Limit - used
}
