package models

import "time"

// Reminder is one scheduled notification for one event and one lead-time
// offset. (EventID, OffsetMinutes) is unique so recomputing reminders after
// an edit cannot stack duplicate rows. Fired only ever flips false -> true.
type Reminder struct {
	ID            int64     `db:"id"`
	EventID       int64     `db:"event_id"`
	OffsetMinutes int       `db:"offset_minutes"`
	FireAt        time.Time `db:"fire_at"` // StartAt - OffsetMinutes
	Fired         bool      `db:"fired"`
}

// DueReminder is a reminder joined with the event fields needed to deliver it.
type DueReminder struct {
	ID            int64     `db:"id"`
	EventID       int64     `db:"event_id"`
	OffsetMinutes int       `db:"offset_minutes"`
	FireAt        time.Time `db:"fire_at"`
	ChannelID     string    `db:"channel_id"`
	EventName     string    `db:"event_name"`
	StartAt       time.Time `db:"start_at"`
	Notes         *string   `db:"notes"`
}
