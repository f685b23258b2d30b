package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextReadsExpressionInUTC(t *testing.T) {
	s, err := Parse("0 0 * * *")
	require.NoError(t, err)

	beijing := time.FixedZone("CST", 8*3600)
	now := time.Date(2026, 10, 19, 9, 30, 0, 0, beijing) // 01:30 UTC

	next := s.Next(now)
	assert.Equal(t, time.Date(2026, 10, 20, 8, 0, 0, 0, beijing).Unix(), next.Unix())
	assert.Equal(t, beijing, next.Location())
}

func TestParseDescriptorAndExplicitZone(t *testing.T) {
	s, err := Parse("@daily")
	require.NoError(t, err)
	assert.Equal(t, "@daily", s.String())

	s, err = Parse("CRON_TZ=UTC 30 0 * * 1-5")
	require.NoError(t, err)
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) // Saturday
	next := s.Next(now)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 19, next.Day())
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 30, next.Minute())
}

func TestParseRejectsBadExpressions(t *testing.T) {
	for _, expr := range []string{"", "   ", "every day", "61 * * * *"} {
		_, err := Parse(expr)
		assert.Error(t, err, expr)
	}
}
