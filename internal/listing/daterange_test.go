package listing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayRange(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	r, err := DayRange("2024-03-01", "2024-03-02", ist)
	require.NoError(t, err)

	assert.True(t, r.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, ist)))
	assert.True(t, r.Contains(time.Date(2024, 3, 2, 23, 59, 59, 0, ist)))
	assert.False(t, r.Contains(time.Date(2024, 3, 3, 0, 0, 0, 0, ist)))
	assert.False(t, r.Contains(time.Date(2024, 2, 29, 23, 59, 0, 0, ist)))

	open, err := DayRange("", "", ist)
	require.NoError(t, err)
	assert.True(t, open.IsZero())

	_, err = DayRange("03/01/2024", "", ist)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestPreset(t *testing.T) {
	now := time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		from     time.Time
		to       time.Time
		wantOpen bool
	}{
		{name: PresetAll, wantOpen: true},
		{name: PresetToday, from: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), to: time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)},
		{name: PresetYesterday, from: time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), to: time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{name: PresetWeek, from: time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC), to: time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)},
		{name: PresetMonth, from: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), to: time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Preset(tt.name, now)
			require.NoError(t, err)
			if tt.wantOpen {
				assert.True(t, r.IsZero())
				return
			}
			assert.Equal(t, tt.from, r.From)
			assert.Equal(t, tt.to.Add(-time.Nanosecond), r.To)
		})
	}

	_, err := Preset("quarter", now)
	assert.ErrorIs(t, err, ErrUnknownPreset)
}
