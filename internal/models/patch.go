package models

import "time"

// TemplatePatch is the explicit allowed-fields contract for template edits.
// Nil fields are left untouched. Weekdays must already be in canonical CSV
// form; the service layer validates before a patch reaches the repository.
type TemplatePatch struct {
	Name          *string
	Notes         *string
	Timezone      *string
	Hour          *int
	Minute        *int
	Weekdays      *string
	HorizonWeeks  *int
	RemindOffsets *[]int64
}

func (p TemplatePatch) IsZero() bool {
	return p.Name == nil && p.Notes == nil && p.Timezone == nil &&
		p.Hour == nil && p.Minute == nil && p.Weekdays == nil &&
		p.HorizonWeeks == nil && p.RemindOffsets == nil
}

// EventPatch is the allowed-fields contract for event edits. Status is
// deliberately absent: the only status transition is EndEvent.
type EventPatch struct {
	Name    *string
	Notes   *string
	StartAt *time.Time
}

func (p EventPatch) IsZero() bool {
	return p.Name == nil && p.Notes == nil && p.StartAt == nil
}
