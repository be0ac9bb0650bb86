package store

import (
	"context"

	"github.com/xraph/plans/id"
	"github.com/xraph/plans/plan"
	"github.com/xraph/plans/subscription"
	"github.com/xraph/plans/usage"
)

// Store is the unified storage interface for all plans entities.
// Instead of embedding the sub-interfaces, we explicitly declare all
// methods to avoid naming conflicts.
type Store interface {
	// Plan methods
	CreatePlan(ctx context.Context, p *plan.Plan) error
	GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error)
	FirstPlan(ctx context.Context) (*plan.Plan, error)
	ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error)
	UpdatePlan(ctx context.Context, p *plan.Plan) error
	DeletePlan(ctx context.Context, planID id.PlanID) error

	// Subscription methods
	CreateSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error)
	ListSubscriptions(ctx context.Context, subject subscription.SubjectRef, f subscription.Filter) ([]*subscription.Subscription, error)
	CountSubscriptions(ctx context.Context, subject subscription.SubjectRef) (int, error)
	UpdateSubscription(ctx context.Context, s *subscription.Subscription) error
	DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error

	// Usage counter methods
	GetUsage(ctx context.Context, subID id.SubscriptionID, code string) (*usage.Counter, error)
	ListUsage(ctx context.Context, subID id.SubscriptionID) ([]*usage.Counter, error)
	IncrementUsage(ctx context.Context, subID id.SubscriptionID, code string, amount, ceiling int64) (int64, error)
	DecrementUsage(ctx context.Context, subID id.SubscriptionID, code string, amount int64) (int64, error)
	DeleteUsageForSubscription(ctx context.Context, subID id.SubscriptionID) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
