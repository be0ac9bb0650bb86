package subscription

import (
	"testing"
	"time"

	"github.com/xraph/plans/id"
)

func sub(starts, expires time.Time) *Subscription {
	return &Subscription{
		ID:       id.NewSubscriptionID(),
		Subject:  SubjectRef{Kind: "user", ID: "u1"},
		PlanID:   id.NewPlanID(),
		Active:   true,
		StartsOn: starts,
		ExpiresOn: expires,
	}
}

func TestSubjectRefValidate(t *testing.T) {
	tests := []struct {
		name    string
		ref     SubjectRef
		wantErr bool
	}{
		{"valid", SubjectRef{Kind: "user", ID: "u1"}, false},
		{"missing kind", SubjectRef{ID: "u1"}, true},
		{"missing id", SubjectRef{Kind: "user"}, true},
		{"empty", SubjectRef{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ref.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPredicates(t *testing.T) {
	now := time.Now()
	cancelledAt := now.Add(-time.Hour)

	tests := []struct {
		name                  string
		sub                   *Subscription
		started               bool
		expired               bool
		active                bool
		cancelled             bool
		pendingCancel         bool
	}{
		{
			name:    "pending (starts tomorrow)",
			sub:     sub(now.Add(24*time.Hour), now.Add(30*24*time.Hour)),
			started: false, expired: false, active: false,
		},
		{
			name:    "active (mid-window)",
			sub:     sub(now.Add(-24*time.Hour), now.Add(29*24*time.Hour)),
			started: true, expired: false, active: true,
		},
		{
			name:    "expired",
			sub:     sub(now.Add(-60*24*time.Hour), now.Add(-30*24*time.Hour)),
			started: true, expired: true, active: false,
		},
		{
			name: "cancelled and expired",
			sub: func() *Subscription {
				s := sub(now.Add(-60*24*time.Hour), now.Add(-30*24*time.Hour))
				s.CancelledOn = &cancelledAt
				return s
			}(),
			started: true, expired: true, active: false,
			cancelled: true, pendingCancel: false,
		},
		{
			name: "pending cancellation (cancelled mid-window)",
			sub: func() *Subscription {
				s := sub(now.Add(-24*time.Hour), now.Add(29*24*time.Hour))
				s.CancelledOn = &cancelledAt
				return s
			}(),
			started: true, expired: false, active: true,
			cancelled: true, pendingCancel: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.HasStarted(); got != tt.started {
				t.Errorf("HasStarted: got %v, want %v", got, tt.started)
			}
			if got := tt.sub.HasExpired(); got != tt.expired {
				t.Errorf("HasExpired: got %v, want %v", got, tt.expired)
			}
			if got := tt.sub.IsActive(); got != tt.active {
				t.Errorf("IsActive: got %v, want %v", got, tt.active)
			}
			if got := tt.sub.IsCancelled(); got != tt.cancelled {
				t.Errorf("IsCancelled: got %v, want %v", got, tt.cancelled)
			}
			if got := tt.sub.IsPendingCancellation(); got != tt.pendingCancel {
				t.Errorf("IsPendingCancellation: got %v, want %v", got, tt.pendingCancel)
			}
		})
	}
}

func TestIsActiveIgnoresCancellation(t *testing.T) {
	now := time.Now()
	s := sub(now.Add(-time.Hour), now.Add(14*24*time.Hour))
	s.Cancel()

	if !s.IsActive() {
		t.Error("cancelled subscription should stay active until the window ends")
	}
	if !s.IsCancelled() {
		t.Error("expected IsCancelled after Cancel")
	}
	if s.Recurring {
		t.Error("Cancel should stop recurrence")
	}
}

func TestRemainingDays(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		sub      *Subscription
		expected int
	}{
		{"14 days left", sub(now.Add(-time.Hour), now.Add(14*24*time.Hour).Add(time.Hour)), 14},
		{"partial day truncates", sub(now.Add(-time.Hour), now.Add(36*time.Hour)), 1},
		{"under a day", sub(now.Add(-time.Hour), now.Add(6*time.Hour)), 0},
		{"expired", sub(now.Add(-48*time.Hour), now.Add(-time.Hour)), 0},
		{"long expired", sub(now.Add(-400*24*time.Hour), now.Add(-370*24*time.Hour)), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.RemainingDays(); got != tt.expected {
				t.Errorf("RemainingDays: got %d, want %d", got, tt.expected)
			}
		})
	}
}
