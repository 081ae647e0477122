package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rallypoint-bot/internal/models"
)

func TestSetClausesEmptyPatch(t *testing.T) {
	sets, args := SetClauses(models.EventPatch{})
	assert.Empty(t, sets)
	assert.Empty(t, args)
}

func TestSetClausesNormalizesStartToUTC(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	start := time.Date(2024, time.June, 1, 18, 0, 0, 0, loc)

	sets, args := SetClauses(models.EventPatch{StartAt: &start})

	require.Equal(t, []string{"start_at = $1"}, sets)
	require.Len(t, args, 1)
	stored, ok := args[0].(time.Time)
	require.True(t, ok)
	assert.Equal(t, time.UTC, stored.Location())
	assert.True(t, stored.Equal(start))
}

func TestSetClausesAllFields(t *testing.T) {
	name := "moved session"
	notes := "bring snacks"
	start := time.Date(2024, time.June, 1, 23, 0, 0, 0, time.UTC)

	sets, _ := SetClauses(models.EventPatch{
		Name:    &name,
		Notes:   &notes,
		StartAt: &start,
	})

	assert.Equal(t, []string{"name = $1", "notes = $2", "start_at = $3"}, sets)
}
