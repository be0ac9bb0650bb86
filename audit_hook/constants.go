package audithook

// Action constants for audit events.
const (
	// Subscription actions
	ActionSubscriptionCreated   = "subscription.created"
	ActionSubscriptionExtended  = "subscription.extended"
	ActionSubscriptionUpgraded  = "subscription.upgraded"
	ActionSubscriptionCancelled = "subscription.cancelled"

	// Usage actions
	ActionFeatureConsumed   = "feature.consumed"
	ActionFeatureUnconsumed = "feature.unconsumed"
	ActionLimitExceeded     = "limit.exceeded"
)

// Resource constants for audit events.
const (
	ResourceSubscription = "subscription"
	ResourceFeature      = "feature"
)

// Category constants for audit events.
const (
	CategorySubscription = "subscription"
	CategoryUsage        = "usage"
	CategoryAccess       = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
