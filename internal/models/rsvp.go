package models

import "time"

const (
	RSVPYes   = "YES"
	RSVPNo    = "NO"
	RSVPMaybe = "MAYBE"
)

// RSVP is one user's attendance response for one event. (EventID, UserID) is
// the primary key: a repeated response overwrites the previous choice instead
// of stacking rows.
type RSVP struct {
	EventID   int64     `db:"event_id"`
	UserID    string    `db:"user_id"`
	Choice    string    `db:"choice"`
	UpdatedAt time.Time `db:"updated_at"`
}

// RSVPCounts aggregates one event's responses per choice.
type RSVPCounts struct {
	Yes   int `db:"yes"`
	No    int `db:"no"`
	Maybe int `db:"maybe"`
}
