package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/plans"
	"github.com/xraph/plans/id"
	"github.com/xraph/plans/plan"
	planstore "github.com/xraph/plans/store"
	"github.com/xraph/plans/subscription"
	"github.com/xraph/plans/usage"
)

// Collection name constants.
const (
	colPlans         = "plans_plans"
	colSubscriptions = "plans_subscriptions"
	colUsageCounters = "plans_usage_counters"
)

// compile-time interface check
var _ planstore.Store = (*Store)(nil)

// casMaxRetries bounds the optimistic-lock loop on usage counters.
const casMaxRetries = 8

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("plans/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("plans/mongo: create plan: %w", err)
	}
	return nil
}

func (s *Store) GetPlan(ctx context.Context, planID id.PlanID) (*plan.Plan, error) {
	var m planModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": planID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, plans.ErrPlanNotFound
		}
		return nil, fmt.Errorf("plans/mongo: get plan: %w", err)
	}
	return fromPlanModel(&m)
}

func (s *Store) FirstPlan(ctx context.Context) (*plan.Plan, error) {
	var m planModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, plans.ErrNoPlans
		}
		return nil, fmt.Errorf("plans/mongo: first plan: %w", err)
	}
	return fromPlanModel(&m)
}

func (s *Store) ListPlans(ctx context.Context, opts plan.ListOpts) ([]*plan.Plan, error) {
	var models []planModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("plans/mongo: list plans: %w", err)
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

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("plans/mongo: update plan: %w", err)
	}
	if res.MatchedCount() == 0 {
		return plans.ErrPlanNotFound
	}
	return nil
}

func (s *Store) DeletePlan(ctx context.Context, planID id.PlanID) error {
	res, err := s.mdb.NewDelete((*planModel)(nil)).
		Filter(bson.M{"_id": planID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("plans/mongo: delete plan: %w", err)
	}
	if res.DeletedCount() == 0 {
		return plans.ErrPlanNotFound
	}
	return nil
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("plans/mongo: create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, plans.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("plans/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) ListSubscriptions(ctx context.Context, subject subscription.SubjectRef, f subscription.Filter) ([]*subscription.Subscription, error) {
	var models []subscriptionModel

	filter := bson.M{"subject_kind": subject.Kind, "subject_id": subject.ID}
	if f.Paid != nil {
		filter["active"] = *f.Paid
	}
	if f.Cancelled != nil {
		if *f.Cancelled {
			filter["cancelled_on"] = bson.M{"$ne": nil}
		} else {
			filter["cancelled_on"] = nil
		}
	}
	if f.Recurring != nil {
		filter["recurring"] = *f.Recurring
	}
	if f.Expired != nil {
		if *f.Expired {
			filter["expires_on"] = bson.M{"$lt": now()}
		} else {
			filter["expires_on"] = bson.M{"$gte": now()}
		}
	}
	if f.PaymentMethod != nil {
		filter["payment_method"] = *f.PaymentMethod
	}

	dir := 1
	if f.Order == subscription.OrderStartsOnDesc {
		dir = -1
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "starts_on", Value: dir}, {Key: "_id", Value: dir}})

	if f.Limit > 0 {
		q = q.Limit(int64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Skip(int64(f.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("plans/mongo: list subscriptions: %w", err)
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
	n, err := s.mdb.Collection(colSubscriptions).CountDocuments(ctx, bson.M{
		"subject_kind": subject.Kind,
		"subject_id":   subject.ID,
	})
	if err != nil {
		return 0, fmt.Errorf("plans/mongo: count subscriptions: %w", err)
	}
	return int(n), nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("plans/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return plans.ErrSubscriptionNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error {
	_, err := s.mdb.NewDelete((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": subID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("plans/mongo: delete subscription: %w", err)
	}
	return nil
}

// ==================== Usage counter Store ====================

func (s *Store) GetUsage(ctx context.Context, subID id.SubscriptionID, code string) (*usage.Counter, error) {
	var m usageCounterModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"subscription_id": subID.String(), "code": code}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, plans.ErrNotFound
		}
		return nil, fmt.Errorf("plans/mongo: get usage: %w", err)
	}
	return fromUsageCounterModel(&m)
}

func (s *Store) ListUsage(ctx context.Context, subID id.SubscriptionID) ([]*usage.Counter, error) {
	var models []usageCounterModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"subscription_id": subID.String()}).
		Sort(bson.D{{Key: "code", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("plans/mongo: list usage: %w", err)
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
// the previous value: the update only matches when `used` still holds
// what the read returned, so two racing increments cannot both pass the
// ceiling check. Lost races retry up to casMaxRetries.
func (s *Store) IncrementUsage(ctx context.Context, subID id.SubscriptionID, code string, amount, ceiling int64) (int64, error) {
	for attempt := 0; attempt < casMaxRetries; attempt++ {
		var m usageCounterModel
		err := s.mdb.NewFind(&m).
			Filter(bson.M{"subscription_id": subID.String(), "code": code}).
			Scan(ctx)
		if isNoDocuments(err) {
			if ceiling >= 0 && amount > ceiling {
				return 0, plans.ErrLimitExceeded
			}
			if insErr := s.insertCounter(ctx, subID, code, amount); insErr != nil {
				// Unique index collision means someone else created
				// the document first; re-read and retry.
				if mongo.IsDuplicateKeyError(insErr) {
					continue
				}
				return 0, insErr
			}
			return amount, nil
		}
		if err != nil {
			return 0, fmt.Errorf("plans/mongo: increment usage: %w", err)
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
		var m usageCounterModel
		err := s.mdb.NewFind(&m).
			Filter(bson.M{"subscription_id": subID.String(), "code": code}).
			Scan(ctx)
		if isNoDocuments(err) {
			if insErr := s.insertCounter(ctx, subID, code, 0); insErr != nil {
				if mongo.IsDuplicateKeyError(insErr) {
					continue
				}
				return 0, insErr
			}
			return 0, nil
		}
		if err != nil {
			return 0, fmt.Errorf("plans/mongo: decrement usage: %w", err)
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
	_, err := s.mdb.NewDelete((*usageCounterModel)(nil)).
		Filter(bson.M{"subscription_id": subID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("plans/mongo: delete usage: %w", err)
	}
	return nil
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	return err
}

// casCounter writes newUsed only if the document still holds oldUsed.
func (s *Store) casCounter(ctx context.Context, counterID string, oldUsed, newUsed int64) (bool, error) {
	res, err := s.mdb.NewUpdate((*usageCounterModel)(nil)).
		Filter(bson.M{"_id": counterID, "used": oldUsed}).
		Set("used", newUsed).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("plans/mongo: cas counter: %w", err)
	}
	return res.MatchedCount() == 1, nil
}

// ==================== Helpers ====================

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPlans: {
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colSubscriptions: {
			{Keys: bson.D{{Key: "subject_kind", Value: 1}, {Key: "subject_id", Value: 1}, {Key: "starts_on", Value: 1}}},
			{Keys: bson.D{{Key: "plan_id", Value: 1}}},
			{Keys: bson.D{{Key: "expires_on", Value: 1}}},
		},
		colUsageCounters: {
			{
				Keys:    bson.D{{Key: "subscription_id", Value: 1}, {Key: "code", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
}
