// Package plans provides a subscription and plan entitlement engine for Go
// applications.
//
// Plans is designed as a library, not a service. Import it directly into your
// Go application and bring your own storage driver. It provides:
//
//   - Plan catalogs with boolean and metered features
//   - Day-granular subscription windows with extend, upgrade, cancel and renew
//   - Atomic feature consumption against per-subscription counters
//   - Recurring billing cycles with due-subscription replacement
//   - Lifecycle hooks for every subscription and usage event
//   - Drivers for memory, PostgreSQL, SQLite and MongoDB via Grove ORM
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/xraph/plans"
//	    "github.com/xraph/plans/store/memory"
//	)
//
//	eng := plans.New(memory.New())
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Plans define what features are available and at what limits:
//
//	p := &plan.Plan{
//	    Name:         "Pro",
//	    Price:        plans.USD(4900),
//	    DurationDays: 30,
//	    Features: []plan.Feature{
//	        {Code: "build.minutes", Name: "Build minutes", Kind: plan.KindLimit, Limit: 3000},
//	        {Code: "sso", Name: "Single sign-on", Kind: plan.KindFeature},
//	    },
//	}
//	err := eng.CreatePlan(ctx, p)
//
// Subjects are anything that can hold a subscription (a user, a team, an
// organization). All subscription operations hang off a subject-scoped
// manager:
//
//	user := eng.Subject(subscription.SubjectRef{Kind: "user", ID: "u_42"})
//	sub, err := user.SubscribeTo(ctx, p, 30, true)
//
// Metered features are consumed against the active subscription:
//
//	remaining, err := eng.ConsumeFeature(ctx, sub, "build.minutes", 25)
//	if errors.Is(err, plans.ErrLimitExceeded) {
//	    // quota exhausted for this cycle
//	}
//
// # Money
//
// All monetary amounts use integer arithmetic to avoid floating-point
// precision issues. The Money type represents amounts in the smallest
// currency unit (cents for USD, pence for GBP, etc).
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	plan_01h2xcejqtf2nbrexx3vqjhp41  // Plan ID
//	sub_01h2xcejqtf2nbrexx3vqjhp41   // Subscription ID
//	use_01h455vb4pex5vsknk084sn02q   // Usage counter ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package plans
