package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the plans store (SQLite).
var Migrations = migrate.NewGroup("plans")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_plans_plans",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS plans_plans (
    id                 TEXT PRIMARY KEY,
    name               TEXT NOT NULL DEFAULT '',
    description        TEXT NOT NULL DEFAULT '',
    price_amount_cents INTEGER NOT NULL DEFAULT 0,
    price_currency     TEXT NOT NULL DEFAULT '',
    duration_days      INTEGER NOT NULL DEFAULT 0,
    features           TEXT NOT NULL DEFAULT '[]',
    metadata           TEXT NOT NULL DEFAULT '{}',
    created_at         TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at         TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_plans_plans_created ON plans_plans (created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS plans_plans`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_plans_subscriptions",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS plans_subscriptions (
    id                   TEXT PRIMARY KEY,
    subject_kind         TEXT NOT NULL DEFAULT '',
    subject_id           TEXT NOT NULL DEFAULT '',
    plan_id              TEXT NOT NULL DEFAULT '',
    payment_method       TEXT NOT NULL DEFAULT '',
    active               INTEGER NOT NULL DEFAULT 0,
    charging_price_cents INTEGER NOT NULL DEFAULT 0,
    charging_currency    TEXT NOT NULL DEFAULT '',
    recurring            INTEGER NOT NULL DEFAULT 0,
    recurring_each_days  INTEGER NOT NULL DEFAULT 0,
    starts_on            TEXT NOT NULL DEFAULT (datetime('now')),
    expires_on           TEXT NOT NULL DEFAULT (datetime('now')),
    cancelled_on         TEXT,
    metadata             TEXT NOT NULL DEFAULT '{}',
    created_at           TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at           TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_plans_subs_subject ON plans_subscriptions (subject_kind, subject_id);
CREATE INDEX IF NOT EXISTS idx_plans_subs_subject_starts ON plans_subscriptions (subject_kind, subject_id, starts_on);
CREATE INDEX IF NOT EXISTS idx_plans_subs_plan ON plans_subscriptions (plan_id);
CREATE INDEX IF NOT EXISTS idx_plans_subs_expires ON plans_subscriptions (expires_on);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS plans_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_plans_usage_counters",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS plans_usage_counters (
    id              TEXT PRIMARY KEY,
    subscription_id TEXT NOT NULL DEFAULT '',
    code            TEXT NOT NULL DEFAULT '',
    used            INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at      TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_plans_usage_sub_code ON plans_usage_counters (subscription_id, code);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS plans_usage_counters`)
				return err
			},
		},
	)
}
