package hook

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered hooks and provides efficient dispatch.
// It uses type-cached discovery so emitting an event only touches the
// hooks that subscribe to it.
type Registry struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger

	// Type-cached hook lists for efficient dispatch
	onInit                     []OnInit
	onShutdown                 []OnShutdown
	onNewSubscription          []OnNewSubscription
	onNewSubscriptionUntil     []OnNewSubscriptionUntil
	onExtendSubscription       []OnExtendSubscription
	onExtendSubscriptionUntil  []OnExtendSubscriptionUntil
	onUpgradeSubscription      []OnUpgradeSubscription
	onUpgradeSubscriptionUntil []OnUpgradeSubscriptionUntil
	onCancelSubscription       []OnCancelSubscription
	onFeatureConsumed          []OnFeatureConsumed
	onFeatureUnconsumed        []OnFeatureUnconsumed
	onLimitExceeded            []OnLimitExceeded
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a hook to the registry and caches its interfaces.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.hooks {
		if existing.Name() == h.Name() {
			return fmt.Errorf("hook: duplicate registration: %s", h.Name())
		}
	}

	r.hooks = append(r.hooks, h)

	// Type-switch to cache interfaces
	if v, ok := h.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := h.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := h.(OnNewSubscription); ok {
		r.onNewSubscription = append(r.onNewSubscription, v)
	}
	if v, ok := h.(OnNewSubscriptionUntil); ok {
		r.onNewSubscriptionUntil = append(r.onNewSubscriptionUntil, v)
	}
	if v, ok := h.(OnExtendSubscription); ok {
		r.onExtendSubscription = append(r.onExtendSubscription, v)
	}
	if v, ok := h.(OnExtendSubscriptionUntil); ok {
		r.onExtendSubscriptionUntil = append(r.onExtendSubscriptionUntil, v)
	}
	if v, ok := h.(OnUpgradeSubscription); ok {
		r.onUpgradeSubscription = append(r.onUpgradeSubscription, v)
	}
	if v, ok := h.(OnUpgradeSubscriptionUntil); ok {
		r.onUpgradeSubscriptionUntil = append(r.onUpgradeSubscriptionUntil, v)
	}
	if v, ok := h.(OnCancelSubscription); ok {
		r.onCancelSubscription = append(r.onCancelSubscription, v)
	}
	if v, ok := h.(OnFeatureConsumed); ok {
		r.onFeatureConsumed = append(r.onFeatureConsumed, v)
	}
	if v, ok := h.(OnFeatureUnconsumed); ok {
		r.onFeatureUnconsumed = append(r.onFeatureUnconsumed, v)
	}
	if v, ok := h.(OnLimitExceeded); ok {
		r.onLimitExceeded = append(r.onLimitExceeded, v)
	}

	r.logger.Info("hook registered",
		"name", h.Name(),
		"interfaces", r.getImplementedInterfaces(h),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the hook.
func (r *Registry) getImplementedInterfaces(h Hook) []string {
	var interfaces []string
	v := reflect.TypeOf(h)

	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnNewSubscription)(nil)).Elem(), "OnNewSubscription")
	checkInterface(reflect.TypeOf((*OnNewSubscriptionUntil)(nil)).Elem(), "OnNewSubscriptionUntil")
	checkInterface(reflect.TypeOf((*OnExtendSubscription)(nil)).Elem(), "OnExtendSubscription")
	checkInterface(reflect.TypeOf((*OnExtendSubscriptionUntil)(nil)).Elem(), "OnExtendSubscriptionUntil")
	checkInterface(reflect.TypeOf((*OnUpgradeSubscription)(nil)).Elem(), "OnUpgradeSubscription")
	checkInterface(reflect.TypeOf((*OnUpgradeSubscriptionUntil)(nil)).Elem(), "OnUpgradeSubscriptionUntil")
	checkInterface(reflect.TypeOf((*OnCancelSubscription)(nil)).Elem(), "OnCancelSubscription")
	checkInterface(reflect.TypeOf((*OnFeatureConsumed)(nil)).Elem(), "OnFeatureConsumed")
	checkInterface(reflect.TypeOf((*OnFeatureUnconsumed)(nil)).Elem(), "OnFeatureUnconsumed")
	checkInterface(reflect.TypeOf((*OnLimitExceeded)(nil)).Elem(), "OnLimitExceeded")

	return interfaces
}

// Get returns a hook by name.
func (r *Registry) Get(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.hooks {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// List returns all registered hooks.
func (r *Registry) List() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Hook, len(r.hooks))
	copy(result, r.hooks)
	return result
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all hooks that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("hook OnInit failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all hooks that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("hook OnShutdown failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitNewSubscription emits a new-subscription event.
func (r *Registry) EmitNewSubscription(ctx context.Context, e NewSubscription) {
	r.mu.RLock()
	hooks := r.onNewSubscription
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnNewSubscription(ctx, e)
		}); err != nil {
			r.logger.Warn("hook OnNewSubscription failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitNewSubscriptionUntil emits a new-subscription-until event.
func (r *Registry) EmitNewSubscriptionUntil(ctx context.Context, e NewSubscriptionUntil) {
	r.mu.RLock()
	hooks := r.onNewSubscriptionUntil
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnNewSubscriptionUntil(ctx, e)
		}); err != nil {
			r.logger.Warn("hook OnNewSubscriptionUntil failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitExtendSubscription emits an extend-subscription event.
func (r *Registry) EmitExtendSubscription(ctx context.Context, e ExtendSubscription) {
	r.mu.RLock()
	hooks := r.onExtendSubscription
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnExtendSubscription(ctx, e)
		}); err != nil {
			r.logger.Warn("hook OnExtendSubscription failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitExtendSubscriptionUntil emits an extend-subscription-until event.
func (r *Registry) EmitExtendSubscriptionUntil(ctx context.Context, e ExtendSubscriptionUntil) {
	r.mu.RLock()
	hooks := r.onExtendSubscriptionUntil
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnExtendSubscriptionUntil(ctx, e)
		}); err != nil {
			r.logger.Warn("hook OnExtendSubscriptionUntil failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitUpgradeSubscription emits an upgrade-subscription event.
func (r *Registry) EmitUpgradeSubscription(ctx context.Context, e UpgradeSubscription) {
	r.mu.RLock()
	hooks := r.onUpgradeSubscription
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnUpgradeSubscription(ctx, e)
		}); err != nil {
			r.logger.Warn("hook OnUpgradeSubscription failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitUpgradeSubscriptionUntil emits an upgrade-subscription-until event.
func (r *Registry) EmitUpgradeSubscriptionUntil(ctx context.Context, e UpgradeSubscriptionUntil) {
	r.mu.RLock()
	hooks := r.onUpgradeSubscriptionUntil
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnUpgradeSubscriptionUntil(ctx, e)
		}); err != nil {
			r.logger.Warn("hook OnUpgradeSubscriptionUntil failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitCancelSubscription emits a cancel-subscription event.
func (r *Registry) EmitCancelSubscription(ctx context.Context, e CancelSubscription) {
	r.mu.RLock()
	hooks := r.onCancelSubscription
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnCancelSubscription(ctx, e)
		}); err != nil {
			r.logger.Warn("hook OnCancelSubscription failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitFeatureConsumed emits a feature-consumed event.
func (r *Registry) EmitFeatureConsumed(ctx context.Context, e FeatureConsumed) {
	r.mu.RLock()
	hooks := r.onFeatureConsumed
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnFeatureConsumed(ctx, e)
		}); err != nil {
			r.logger.Warn("hook OnFeatureConsumed failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitFeatureUnconsumed emits a feature-unconsumed event.
func (r *Registry) EmitFeatureUnconsumed(ctx context.Context, e FeatureUnconsumed) {
	r.mu.RLock()
	hooks := r.onFeatureUnconsumed
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnFeatureUnconsumed(ctx, e)
		}); err != nil {
			r.logger.Warn("hook OnFeatureUnconsumed failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitLimitExceeded emits a limit-exceeded event.
func (r *Registry) EmitLimitExceeded(ctx context.Context, e LimitExceeded) {
	r.mu.RLock()
	hooks := r.onLimitExceeded
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnLimitExceeded(ctx, e)
		}); err != nil {
			r.logger.Warn("hook OnLimitExceeded failed", "hook", h.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a hook function with a timeout.
// Hooks should never block the command that emitted the event.
func (r *Registry) callWithTimeout(ctx context.Context, hookName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("hook timeout: %s", hookName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
