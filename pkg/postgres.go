package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"rallypoint-bot/internal/models/config"
)

// NewPostgres opens and pings the PostgreSQL connection.
func NewPostgres(cfg *config.Config) (*sqlx.DB, error) {
	c := cfg.Database

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.Username,
		c.Password,
		c.Name,
		c.SSLMode,
	)

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return db, nil
}

// The two unique indexes below are load-bearing: the partial index on
// (template_id, start_at) is the materialization idempotence guard, and
// (event_id, offset_minutes) stops reminder rows from stacking on re-runs.
const schema = `
CREATE TABLE IF NOT EXISTS event_templates (
	id             BIGSERIAL PRIMARY KEY,
	guild_id       TEXT NOT NULL,
	channel_id     TEXT NOT NULL,
	name           TEXT NOT NULL,
	notes          TEXT,
	timezone       TEXT NOT NULL,
	hour           INT NOT NULL,
	minute         INT NOT NULL,
	weekdays       TEXT NOT NULL,
	horizon_weeks  INT NOT NULL,
	enabled        BOOLEAN NOT NULL DEFAULT TRUE,
	remind_offsets INTEGER[] NOT NULL DEFAULT '{}',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS events (
	id          BIGSERIAL PRIMARY KEY,
	template_id BIGINT REFERENCES event_templates(id) ON DELETE SET NULL,
	channel_id  TEXT NOT NULL,
	name        TEXT NOT NULL,
	notes       TEXT,
	start_at    TIMESTAMPTZ NOT NULL,
	status      TEXT NOT NULL DEFAULT 'ACTIVE',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_events_template_start
	ON events (template_id, start_at) WHERE template_id IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_events_status_start
	ON events (status, start_at);

CREATE TABLE IF NOT EXISTS event_reminders (
	id             BIGSERIAL PRIMARY KEY,
	event_id       BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	offset_minutes INT NOT NULL,
	fire_at        TIMESTAMPTZ NOT NULL,
	fired          BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (event_id, offset_minutes)
);

CREATE INDEX IF NOT EXISTS idx_reminders_due
	ON event_reminders (fire_at) WHERE NOT fired;

CREATE TABLE IF NOT EXISTS event_rsvps (
	event_id   BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	choice     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (event_id, user_id)
);
`

// Migrate applies the schema. Every statement is idempotent, so running it on
// each startup is safe.
func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}
