package mongo

import (
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

	ID               string            `grove:"id,pk"              bson:"_id"`
	Name             string            `grove:"name"               bson:"name"`
	Description      string            `grove:"description"        bson:"description"`
	PriceAmountCents int64             `grove:"price_amount_cents" bson:"price_amount_cents"`
	PriceCurrency    string            `grove:"price_currency"     bson:"price_currency"`
	DurationDays     int               `grove:"duration_days"      bson:"duration_days"`
	Features         []featureModel    `grove:"features"           bson:"features"`
	Metadata         map[string]string `grove:"metadata"           bson:"metadata,omitempty"`
	CreatedAt        time.Time         `grove:"created_at"         bson:"created_at"`
	UpdatedAt        time.Time         `grove:"updated_at"         bson:"updated_at"`
}

type featureModel struct {
	ID          string            `bson:"id"`
	Code        string            `bson:"code"`
	Name        string            `bson:"name"`
	Description string            `bson:"description"`
	Kind        string            `bson:"kind"`
	Limit       int64             `bson:"limit"`
	Metadata    map[string]string `bson:"metadata,omitempty"`
	CreatedAt   time.Time         `bson:"created_at"`
	UpdatedAt   time.Time         `bson:"updated_at"`
}

func toPlanModel(p *plan.Plan) *planModel {
	features := make([]featureModel, len(p.Features))
	for i, f := range p.Features {
		features[i] = featureModel{
			ID:          f.ID.String(),
			Code:        f.Code,
			Name:        f.Name,
			Description: f.Description,
			Kind:        string(f.Kind),
			Limit:       f.Limit,
			Metadata:    f.Metadata,
			CreatedAt:   f.CreatedAt,
			UpdatedAt:   f.UpdatedAt,
		}
	}

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

	features := make([]plan.Feature, len(m.Features))
	for i, f := range m.Features {
		featureID, err := id.ParseFeatureID(f.ID)
		if err != nil {
			return nil, err
		}
		features[i] = plan.Feature{
			Entity: types.Entity{
				CreatedAt: f.CreatedAt,
				UpdatedAt: f.UpdatedAt,
			},
			ID:          featureID,
			Code:        f.Code,
			Name:        f.Name,
			Description: f.Description,
			Kind:        plan.Kind(f.Kind),
			Limit:       f.Limit,
			Metadata:    f.Metadata,
		}
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

	ID                 string            `grove:"id,pk"                bson:"_id"`
	SubjectKind        string            `grove:"subject_kind"         bson:"subject_kind"`
	SubjectID          string            `grove:"subject_id"           bson:"subject_id"`
	PlanID             string            `grove:"plan_id"              bson:"plan_id"`
	PaymentMethod      string            `grove:"payment_method"       bson:"payment_method"`
	Active             bool              `grove:"active"               bson:"active"`
	ChargingPriceCents int64             `grove:"charging_price_cents" bson:"charging_price_cents"`
	ChargingCurrency   string            `grove:"charging_currency"    bson:"charging_currency"`
	Recurring          bool              `grove:"recurring"            bson:"recurring"`
	RecurringEachDays  int               `grove:"recurring_each_days"  bson:"recurring_each_days"`
	StartsOn           time.Time         `grove:"starts_on"            bson:"starts_on"`
	ExpiresOn          time.Time         `grove:"expires_on"           bson:"expires_on"`
	CancelledOn        *time.Time        `grove:"cancelled_on"         bson:"cancelled_on,omitempty"`
	Metadata           map[string]string `grove:"metadata"             bson:"metadata,omitempty"`
	CreatedAt          time.Time         `grove:"created_at"           bson:"created_at"`
	UpdatedAt          time.Time         `grove:"updated_at"           bson:"updated_at"`
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

	ID             string    `grove:"id,pk"           bson:"_id"`
	SubscriptionID string    `grove:"subscription_id" bson:"subscription_id"`
	Code           string    `grove:"code"            bson:"code"`
	Used           int64     `grove:"used"            bson:"used"`
	CreatedAt      time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"      bson:"updated_at"`
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
