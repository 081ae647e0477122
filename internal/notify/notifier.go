package notify

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Target is a resolved, sendable destination.
type Target struct {
	ChatID int64
}

// Notification is the payload derived from an event for one reminder.
type Notification struct {
	EventID       int64
	Name          string
	StartAt       time.Time
	Notes         *string
	MinutesBefore int
}

// Notifier is the delivery collaborator. Resolve may fail (dead or unknown
// destination); Send may fail and is never retried by callers.
type Notifier interface {
	Resolve(ctx context.Context, destination string) (*Target, error)
	Send(ctx context.Context, target *Target, n Notification) error
}

const maxNotesLen = 900

// FormatNotification renders the plain-text reminder message.
func FormatNotification(n Notification) string {
	lines := []string{
		fmt.Sprintf("Reminder: %s (Event #%d)", n.Name, n.EventID),
		fmt.Sprintf("Starts in %d min.", n.MinutesBefore),
		"Start: " + n.StartAt.UTC().Format("2006-01-02 15:04 MST"),
	}
	if n.Notes != nil && *n.Notes != "" {
		lines = append(lines, "Notes: "+truncate(*n.Notes, maxNotesLen))
	}
	return strings.Join(lines, "\n")
}

// truncate cuts on a rune boundary: Telegram rejects messages that are not
// valid UTF-8, so the cut must never land inside a multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max - 1
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
