package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/plans/id"
	"github.com/xraph/plans/plan"
	"github.com/xraph/plans/subscription"
	"github.com/xraph/plans/types"
	"github.com/xraph/plans/usage"
)

// ==================== Plan models ====================

type planModel struct {
	grove.BaseModel `grove:"table:plans_plans"`

	ID               string            `grove:"id,pk"`
	Name             string            `grove:"name"`
	Description      string            `grove:"description"`
	PriceAmountCents int64             `grove:"price_amount_cents"`
	PriceCurrency    string            `grove:"price_currency"`
	DurationDays     int               `grove:"duration_days"`
	Features         json.RawMessage   `grove:"features,type:jsonb"`
	Metadata         map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt        time.Time         `grove:"created_at"`
	UpdatedAt        time.Time         `grove:"updated_at"`
}

func toPlanModel(p *plan.Plan) *planModel {
	features, _ := json.Marshal(p.Features) //nolint:errcheck // best-effort

	return &planModel{
		ID:               p.ID.String(),
		Name:             p.Name,
		Description:      p.Description,
		PriceAmountCents: p.Price.Amount,
		PriceCurrency:    p.Price.Currency,
		DurationDays:     p.DurationDays,
		Features:         features,
		Metadata:         p.Metadata,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func fromPlanModel(m *planModel) (*plan.Plan, error) {
	planID, err := id.ParsePlanID(m.ID)
	if err != nil {
		return nil, err
	}

	var features []plan.Feature
	if len(m.Features) > 0 {
		_ = json.Unmarshal(m.Features, &features) //nolint:errcheck // best-effort
	}

	return &plan.Plan{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           planID,
		Name:         m.Name,
		Description:  m.Description,
		Price:        types.Money{Amount: m.PriceAmountCents, Currency: m.PriceCurrency},
		DurationDays: m.DurationDays,
		Features:     features,
		Metadata:     m.Metadata,
	}, nil
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:plans_subscriptions"`

	ID                 string            `grove:"id,pk"`
	SubjectKind        string            `grove:"subject_kind"`
	SubjectID          string            `grove:"subject_id"`
	PlanID             string            `grove:"plan_id"`
	PaymentMethod      string            `grove:"payment_method"`
	Active             bool              `grove:"active"`
	ChargingPriceCents int64             `grove:"charging_price_cents"`
	ChargingCurrency   string            `grove:"charging_currency"`
	Recurring          bool              `grove:"recurring"`
	RecurringEachDays  int               `grove:"recurring_each_days"`
	StartsOn           time.Time         `grove:"starts_on"`
	ExpiresOn          time.Time         `grove:"expires_on"`
	CancelledOn        *time.Time        `grove:"cancelled_on"`
	Metadata           map[string]string `grove:"metadata,type:jsonb"`
	CreatedAt          time.Time         `grove:"created_at"`
	UpdatedAt          time.Time         `grove:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:                 s.ID.String(),
		SubjectKind:        s.Subject.Kind,
		SubjectID:          s.Subject.ID,
		PlanID:             s.PlanID.String(),
		PaymentMethod:      s.PaymentMethod,
		Active:             s.Active,
		ChargingPriceCents: s.ChargingPrice.Amount,
		ChargingCurrency:   s.ChargingPrice.Currency,
		Recurring:          s.Recurring,
		RecurringEachDays:  s.RecurringEachDays,
		StartsOn:           s.StartsOn,
		ExpiresOn:          s.ExpiresOn,
		CancelledOn:        s.CancelledOn,
		Metadata:           s.Metadata,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, err
	}
	planID, err := id.ParsePlanID(m.PlanID)
	if err != nil {
		return nil, err
	}

	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                subID,
		Subject:           subscription.SubjectRef{Kind: m.SubjectKind, ID: m.SubjectID},
		PlanID:            planID,
		PaymentMethod:     m.PaymentMethod,
		Active:            m.Active,
		ChargingPrice:     types.Money{Amount: m.ChargingPriceCents, Currency: m.ChargingCurrency},
		Recurring:         m.Recurring,
		RecurringEachDays: m.RecurringEachDays,
		StartsOn:          m.StartsOn,
		ExpiresOn:         m.ExpiresOn,
		CancelledOn:       m.CancelledOn,
		Metadata:          m.Metadata,
	}, nil
}

// ==================== Usage counter models ====================

type usageCounterModel struct {
	grove.BaseModel `grove:"table:plans_usage_counters"`

	ID             string    `grove:"id,pk"`
	SubscriptionID string    `grove:"subscription_id"`
	Code           string    `grove:"code"`
	Used           int64     `grove:"used"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
}

func fromUsageCounterModel(m *usageCounterModel) (*usage.Counter, error) {
	counterID, err := id.ParseUsageID(m.ID)
	if err != nil {
		return nil, err
	}
	subID, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, err
	}

	return &usage.Counter{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             counterID,
		SubscriptionID: subID,
		Code:           m.Code,
		Used:           m.Used,
	}, nil
}
