package backend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	want := time.Date(2024, time.March, 2, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		in string
		ok bool
	}{
		{"2024-03-02T10:00:00Z", true},
		{"2024-03-02T10:00:00+00:00", true},
		{"2024-03-02T10:00:00.000000", true},
		{"2024-03-02 10:00:00+00", true},
		{"2024-03-02 10:00:00", true},
		{"yesterday", false},
		{"", false},
	}
	for _, tt := range tests {
		got, err := ParseTime(tt.in)
		if !tt.ok {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.True(t, want.Equal(got), "%s parsed as %v", tt.in, got)
	}
}

func TestMapSnapshot_BadTimestamp(t *testing.T) {
	snap := MapSnapshot("h1", Rows{Runs: []RunRow{{ID: "r1", ExecutedAt: "n/a", Status: "submitted"}}}, time.Now())
	require.Len(t, snap.Runs, 1)
	assert.True(t, snap.Runs[0].ExecutedAt.IsZero())
	assert.Equal(t, "h1", snap.Runs[0].HotelID)
	assert.NotNil(t, snap.Answers, "empty collections are not nil")
}
