package models

import (
	"time"

	"github.com/lib/pq"
)

// EventTemplate is a recurring-event definition: a weekday pattern with a
// wall-clock time-of-day in an IANA timezone, materialized HorizonWeeks weeks
// ahead. Disabling a template stops future generation; occurrences already
// materialized from it keep working on their own.
type EventTemplate struct {
	ID            int64         `db:"id"`
	GuildID       string        `db:"guild_id"`
	ChannelID     string        `db:"channel_id"`
	Name          string        `db:"name"`
	Notes         *string       `db:"notes"`
	Timezone      string        `db:"timezone"`
	Hour          int           `db:"hour"`
	Minute        int           `db:"minute"`
	Weekdays      string        `db:"weekdays"` // canonical CSV, e.g. "mon,wed,sun"
	HorizonWeeks  int           `db:"horizon_weeks"`
	Enabled       bool          `db:"enabled"`
	RemindOffsets pq.Int64Array `db:"remind_offsets"` // minutes before start, largest first
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}
