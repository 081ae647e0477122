package notify

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNotification(t *testing.T) {
	notes := "bring snacks"
	got := FormatNotification(Notification{
		EventID:       42,
		Name:          "raid night",
		StartAt:       time.Date(2024, time.June, 1, 23, 0, 0, 0, time.UTC),
		Notes:         &notes,
		MinutesBefore: 15,
	})

	want := "Reminder: raid night (Event #42)\n" +
		"Starts in 15 min.\n" +
		"Start: 2024-06-01 23:00 UTC\n" +
		"Notes: bring snacks"
	assert.Equal(t, want, got)
}

func TestFormatNotificationOmitsEmptyNotes(t *testing.T) {
	empty := ""
	for _, notes := range []*string{nil, &empty} {
		got := FormatNotification(Notification{
			EventID:       1,
			Name:          "raid night",
			StartAt:       time.Date(2024, time.June, 1, 23, 0, 0, 0, time.UTC),
			Notes:         notes,
			MinutesBefore: 5,
		})
		assert.NotContains(t, got, "Notes:")
	}
}

func TestFormatNotificationTruncatesLongNotes(t *testing.T) {
	long := strings.Repeat("x", 2000)
	got := FormatNotification(Notification{
		EventID:       1,
		Name:          "raid night",
		StartAt:       time.Date(2024, time.June, 1, 23, 0, 0, 0, time.UTC),
		Notes:         &long,
		MinutesBefore: 5,
	})

	lines := strings.Split(got, "\n")
	last := lines[len(lines)-1]
	assert.True(t, strings.HasPrefix(last, "Notes: "))
	body := strings.TrimPrefix(last, "Notes: ")
	assert.LessOrEqual(t, len(body), 902, "truncated to the cap plus the ellipsis rune")
	assert.True(t, strings.HasSuffix(body, "…"))
}

func TestFormatNotificationTruncatesOnRuneBoundary(t *testing.T) {
	// A two-byte rune straddling the byte cap must go entirely, not be cut
	// in half.
	notes := strings.Repeat("x", 898) + "é" + strings.Repeat("y", 100)
	got := FormatNotification(Notification{
		EventID:       1,
		Name:          "raid night",
		StartAt:       time.Date(2024, time.June, 1, 23, 0, 0, 0, time.UTC),
		Notes:         &notes,
		MinutesBefore: 5,
	})

	require.True(t, utf8.ValidString(got))
	assert.True(t, strings.HasSuffix(got, "x…"), "the straddling rune is dropped whole")
}
