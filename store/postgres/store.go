package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/plans"
	"github.com/xraph/plans/id"
	"github.com/xraph/plans/plan"
	planstore "github.com/xraph/plans/store"
	"github.com/xraph/plans/subscription"
	"github.com/xraph/plans/usage"
)

// compile-time interface check
var _ planstore.Store = (*Store)(nil)

// casMaxRetries bounds the optimistic-lock loop on usage counters.
const casMaxRetries = 8

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("plans/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("plans/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Plan Store ====================

func (s *Store) CreatePlan(ctx context.Context, p *plan.Plan) error {
	m := toPlanModel(p)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	m := new(planModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", planID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, plans.ErrPlanNotFound
		}
		return nil, err
	}
	return fromPlanModel(m)
}

func (s *Store) FirstPlan(ctx context.Context) (*plan.Plan, error) {
	m := new(planModel)
	err := s.pg.NewSelect(m).
		OrderExpr("created_at ASC, id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, plans.ErrNoPlans
		}
		return nil, err
	}
	return fromPlanModel(m)
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	var models []planModel
	q := s.pg.NewSelect(&models)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*plan.Plan, len(models))
	for i := range models {
		p, err := fromPlanModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) UpdatePlan(ctx context.Context, p *plan.Plan) error {
	m := toPlanModel(p)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return plans.ErrPlanNotFound
	}
	return nil
}

func (s *Store) DeletePlan(ctx context.Context, planID id.PlanID) error {
	res, err := s.pg.NewDelete((*planModel)(nil)).
		Where("id = $1", planID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return plans.ErrPlanNotFound
	}
	return nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", subID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, plans.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) ListSubscriptions(ctx context.Context, subject subscription.SubjectRef, f subscription.Filter) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models).
		Where("subject_kind = $1", subject.Kind).
		Where("subject_id = $2", subject.ID)

	argIdx := 2
	if f.Paid != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("active = $%d", argIdx), *f.Paid)
	}
	if f.Cancelled != nil {
		if *f.Cancelled {
			q = q.Where("cancelled_on IS NOT NULL")
		} else {
			q = q.Where("cancelled_on IS NULL")
		}
	}
	if f.Recurring != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("recurring = $%d", argIdx), *f.Recurring)
	}
	if f.Expired != nil {
		argIdx++
		if *f.Expired {
			q = q.Where(fmt.Sprintf("expires_on < $%d", argIdx), now())
		} else {
			q = q.Where(fmt.Sprintf("expires_on >= $%d", argIdx), now())
		}
	}
	if f.PaymentMethod != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("payment_method = $%d", argIdx), *f.PaymentMethod)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Order == subscription.OrderStartsOnDesc {
		q = q.OrderExpr("starts_on DESC, id DESC")
	} else {
		q = q.OrderExpr("starts_on ASC, id ASC")
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) CountSubscriptions(ctx context.Context, subject subscription.SubjectRef) (int, error) {
	var n int
	err := s.pg.NewRaw(`
		SELECT COUNT(*) FROM plans_subscriptions
		WHERE subject_kind = $1 AND subject_id = $2
	`, subject.Kind, subject.ID).Scan(ctx, &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return plans.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error {
	_, err := s.pg.NewDelete((*subscriptionModel)(nil)).
		Where("id = $1", subID.String()).
		Exec(ctx)
	return err
}

// ==================== Usage counter Store ====================

func (s *Store) GetUsage(ctx context.Context, subID id.SubscriptionID, code string) (*usage.Counter, error) {
	m := new(usageCounterModel)
	err := s.pg.NewSelect(m).
		Where("subscription_id = $1", subID.String()).
		Where("code = $2", code).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, plans.ErrNotFound
		}
		return nil, err
	}
	return fromUsageCounterModel(m)
}

func (s *Store) ListUsage(ctx context.Context, subID id.SubscriptionID) ([]*usage.Counter, error) {
	var models []usageCounterModel
	err := s.pg.NewSelect(&models).
		Where("subscription_id = $1", subID.String()).
		OrderExpr("code ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*usage.Counter, len(models))
	for i := range models {
		c, err := fromUsageCounterModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

// IncrementUsage adds amount to the counter with an optimistic lock on
// the previous value: the UPDATE only lands when `used` still holds
// what the SELECT read, so two racing increments cannot both pass the
// ceiling check. Lost races retry up to casMaxRetries.
func (s *Store) IncrementUsage(ctx context.Context, subID id.SubscriptionID, code string, amount, ceiling int64) (int64, error) {
	for attempt := 0; attempt < casMaxRetries; attempt++ {
		m := new(usageCounterModel)
		err := s.pg.NewSelect(m).
			Where("subscription_id = $1", subID.String()).
			Where("code = $2", code).
			Scan(ctx)
		if isNoRows(err) {
			if ceiling >= 0 && amount > ceiling {
				return 0, plans.ErrLimitExceeded
			}
			if insErr := s.insertCounter(ctx, subID, code, amount); insErr != nil {
				// Unique index collision means someone else created
				// the row first; re-read and retry.
				continue
			}
			return amount, nil
		}
		if err != nil {
			return 0, err
		}

		if ceiling >= 0 && m.Used+amount > ceiling {
			return m.Used, plans.ErrLimitExceeded
		}

		newUsed := m.Used + amount
		landed, err := s.casCounter(ctx, m.ID, m.Used, newUsed)
		if err != nil {
			return 0, err
		}
		if landed {
			return newUsed, nil
		}
	}

	return 0, plans.ErrConflict
}

// DecrementUsage subtracts amount from the counter, clamping at zero,
// with the same optimistic-lock scheme as IncrementUsage.
func (s *Store) DecrementUsage(ctx context.Context, subID id.SubscriptionID, code string, amount int64) (int64, error) {
	for attempt := 0; attempt < casMaxRetries; attempt++ {
		m := new(usageCounterModel)
		err := s.pg.NewSelect(m).
			Where("subscription_id = $1", subID.String()).
			Where("code = $2", code).
			Scan(ctx)
		if isNoRows(err) {
			if insErr := s.insertCounter(ctx, subID, code, 0); insErr != nil {
				continue
			}
			return 0, nil
		}
		if err != nil {
			return 0, err
		}

		newUsed := m.Used - amount
		if newUsed < 0 {
			newUsed = 0
		}
		landed, err := s.casCounter(ctx, m.ID, m.Used, newUsed)
		if err != nil {
			return 0, err
		}
		if landed {
			return newUsed, nil
		}
	}

	return 0, plans.ErrConflict
}

func (s *Store) DeleteUsageForSubscription(ctx context.Context, subID id.SubscriptionID) error {
	_, err := s.pg.NewDelete((*usageCounterModel)(nil)).
		Where("subscription_id = $1", subID.String()).
		Exec(ctx)
	return err
}

func (s *Store) insertCounter(ctx context.Context, subID id.SubscriptionID, code string, used int64) error {
	t := now()
	m := &usageCounterModel{
		ID:             id.NewUsageID().String(),
		SubscriptionID: subID.String(),
		Code:           code,
		Used:           used,
		CreatedAt:      t,
		UpdatedAt:      t,
	}
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

// casCounter writes newUsed only if the row still holds oldUsed.
func (s *Store) casCounter(ctx context.Context, counterID string, oldUsed, newUsed int64) (bool, error) {
	res, err := s.pg.NewUpdate((*usageCounterModel)(nil)).
		Set("used = $1", newUsed).
		Set("updated_at = $2", now()).
		Where("id = $3", counterID).
		Where("used = $4", oldUsed).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
