package plan

import (
	"context"

	"github.com/xraph/plans/id"
)

type Store interface {
	Create(ctx context.Context, p *Plan) error
	Get(ctx context.Context, planID id.PlanID) (*Plan, error)
	// First returns the oldest stored plan. Used as the fallback target
	// when extending a subject that has no active subscription.
	First(ctx context.Context) (*Plan, error)
	List(ctx context.Context, opts ListOpts) ([]*Plan, error)
	Update(ctx context.Context, p *Plan) error
	Delete(ctx context.Context, planID id.PlanID) error
}

type ListOpts struct {
	Limit  int
	Offset int
}
