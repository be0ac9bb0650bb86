package plans

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("plans: not found")
	ErrAlreadyExists = errors.New("plans: already exists")
	ErrInvalidInput  = errors.New("plans: invalid input")
	ErrConflict      = errors.New("plans: conflicting concurrent update")

	// Plan errors
	ErrPlanNotFound    = errors.New("plans: plan not found")
	ErrFeatureNotFound = errors.New("plans: feature not found")
	ErrNoPlans         = errors.New("plans: no plans stored")

	// Subscription lifecycle errors
	ErrSubscriptionNotFound = errors.New("plans: subscription not found")
	ErrNoSubscriptions      = errors.New("plans: subject has no subscriptions")
	ErrNoActiveSubscription = errors.New("plans: no active subscription")
	ErrAlreadySubscribed    = errors.New("plans: subject already has an active subscription")
	ErrAlreadyCancelled     = errors.New("plans: subscription already cancelled")
	ErrPendingCancellation  = errors.New("plans: subscription is pending cancellation")
	ErrNotRecurring         = errors.New("plans: subscription is not recurring")
	ErrAwaitingPayment      = errors.New("plans: subscription awaiting payment confirmation")
	ErrInvalidDuration      = errors.New("plans: duration must be at least one day")
	ErrInvalidTargetDate    = errors.New("plans: target date must be in the future")
	ErrDateBeforeExpiry     = errors.New("plans: target date precedes current expiry")

	// Feature usage errors
	ErrFeatureNotMeterable = errors.New("plans: feature is not meterable")
	ErrLimitExceeded       = errors.New("plans: feature limit exceeded")

	// Store errors
	ErrStoreClosed     = errors.New("plans: store is closed")
	ErrMigrationFailed = errors.New("plans: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("plans: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrFeatureNotFound)
}

// IsLifecycleError returns true if the error reports a subscription
// state that forbids the attempted command.
func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrAlreadySubscribed) ||
		errors.Is(err, ErrNoActiveSubscription) ||
		errors.Is(err, ErrNoSubscriptions) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		errors.Is(err, ErrPendingCancellation) ||
		errors.Is(err, ErrNotRecurring) ||
		errors.Is(err, ErrAwaitingPayment)
}

// IsQuotaError returns true if the error is related to feature limits.
func IsQuotaError(err error) bool {
	return errors.Is(err, ErrLimitExceeded) ||
		errors.Is(err, ErrFeatureNotMeterable)
}
