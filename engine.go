package plans

import (
	"context"
	"log/slog"

	"github.com/xraph/plans/hook"
	"github.com/xraph/plans/id"
	"github.com/xraph/plans/plan"
	"github.com/xraph/plans/store"
	"github.com/xraph/plans/subscription"
	"github.com/xraph/plans/types"
)

// Engine is the entry point of the library. It owns the store and the
// hook registry, manages the plan catalog, and hands out subject-bound
// Managers for subscription commands.
type Engine struct {
	store  store.Store
	hooks  *hook.Registry
	logger *slog.Logger
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		hooks:  hook.NewRegistry(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.hooks.WithLogger(logger)
	}
}

// WithHook registers a hook.
func WithHook(h hook.Hook) Option {
	return func(e *Engine) {
		_ = e.hooks.Register(h) //nolint:errcheck // best-effort hook registration during init
	}
}

// Start migrates the store and initializes hooks.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.hooks.EmitInit(ctx, e)

	e.logger.Info("plans engine started")

	return nil
}

// Stop shuts down the engine.
func (e *Engine) Stop() error {
	e.hooks.EmitShutdown(context.Background())

	return e.store.Close()
}

// Hooks returns the hook registry for late registration.
func (e *Engine) Hooks() *hook.Registry {
	return e.hooks
}

// Subject returns a Manager bound to the given subject. Commands on
// one subject must not run concurrently; serialize them per subject.
func (e *Engine) Subject(ref subscription.SubjectRef) *Manager {
	return &Manager{engine: e, subject: ref}
}

// ──────────────────────────────────────────────────
// Plan Management
// ──────────────────────────────────────────────────

// CreatePlan stores a new plan. Missing plan and feature IDs are
// assigned. Plans should be treated as immutable once subscriptions
// reference them.
func (e *Engine) CreatePlan(ctx context.Context, p *plan.Plan) error {
	if p.Name == "" {
		return ValidationError{Field: "name", Message: "must not be empty"}
	}
	if p.DurationDays < 1 {
		return ValidationError{Field: "duration_days", Message: "must be at least 1"}
	}

	seen := make(map[string]bool, len(p.Features))
	for i := range p.Features {
		f := &p.Features[i]
		if f.Code == "" {
			return ValidationError{Field: "features.code", Message: "must not be empty"}
		}
		if seen[f.Code] {
			return ValidationError{Field: "features.code", Message: "duplicate code " + f.Code}
		}
		seen[f.Code] = true

		if f.ID.IsNil() {
			f.ID = id.NewFeatureID()
		}
		f.Entity = types.NewEntity()
	}

	if p.ID.IsNil() {
		p.ID = id.NewPlanID()
	}
	p.Entity = types.NewEntity()

	if err := e.store.CreatePlan(ctx, p); err != nil {
		return err
	}

	e.logger.Debug("plan created", "plan_id", p.ID.String(), "name", p.Name)

	return nil
}

// GetPlan retrieves a plan by ID.
func (e *Engine) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	return e.store.GetPlan(ctx, planID)
}

// FirstPlan retrieves the oldest stored plan.
func (e *Engine) FirstPlan(ctx context.Context) (*plan.Plan, error) {
	return e.store.FirstPlan(ctx)
}

// ListPlans retrieves stored plans.
func (e *Engine) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	return e.store.ListPlans(ctx, opts)
}

// DeletePlan removes a plan from the catalog. Existing subscriptions
// keep their PlanID; resolving it afterwards fails with ErrPlanNotFound.
func (e *Engine) DeletePlan(ctx context.Context, planID id.PlanID) error {
	return e.store.DeletePlan(ctx, planID)
}

// ──────────────────────────────────────────────────
// Maintenance
// ──────────────────────────────────────────────────

// RenewExpired runs RenewSubscription for each subject, collecting the
// subjects that were actually renewed. Subjects whose state forbids a
// renewal are skipped silently; other errors abort the sweep. Intended
// to be run periodically by the host application.
func (e *Engine) RenewExpired(ctx context.Context, refs ...subscription.SubjectRef) ([]subscription.SubjectRef, error) {
	var renewed []subscription.SubjectRef

	for _, ref := range refs {
		_, err := e.Subject(ref).RenewSubscription(ctx)
		switch {
		case err == nil:
			renewed = append(renewed, ref)
		case IsLifecycleError(err):
			e.logger.Debug("renew skipped", "subject", ref.String(), "reason", err)
		default:
			return renewed, err
		}
	}

	return renewed, nil
}
