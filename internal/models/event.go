package models

import "time"

const (
	EventStatusActive = "ACTIVE"
	EventStatusEnded  = "ENDED"
)

// Event is one concrete, dated occurrence, either standalone or materialized
// from a template. For materialized events the (TemplateID, StartAt) pair is
// unique, which is the only guard against double materialization.
// Status moves ACTIVE -> ENDED exactly once and never back.
type Event struct {
	ID         int64     `db:"id"`
	TemplateID *int64    `db:"template_id"` // nil for one-off events
	ChannelID  string    `db:"channel_id"`
	Name       string    `db:"name"`
	Notes      *string   `db:"notes"`
	StartAt    time.Time `db:"start_at"` // UTC
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
}
