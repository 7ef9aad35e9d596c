package dateutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFull(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "lookback", input: "2020-01-01 00:00:00", want: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "surrounding spaces", input: " 2021-06-01 13:45:10 ", want: time.Date(2021, 6, 1, 13, 45, 10, 0, time.UTC)},
		{name: "date only", input: "2021-06-01", wantErr: true},
		{name: "european order", input: "01.06.2021 00:00:00", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFull(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), DateLayoutFull)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestFormatFullRoundTrip(t *testing.T) {
	ts := time.Date(2019, 12, 31, 23, 59, 58, 0, time.UTC)
	s := FormatFull(ts)
	assert.Equal(t, "2019-12-31 23:59:58", s)

	back, err := ParseFull(s)
	require.NoError(t, err)
	assert.True(t, ts.Equal(back))
}

func TestShiftHours(t *testing.T) {
	base := time.Date(2021, 3, 1, 2, 0, 0, 0, time.UTC)

	assert.Equal(t, base, ShiftHours(base, 0))
	assert.Equal(t, "2021-02-28 21:00:00", FormatFull(ShiftHours(base, -5)))
	assert.Equal(t, "2021-03-01 10:00:00", FormatFull(ShiftHours(base, 8)))
	assert.Equal(t, "2021-02-28", ToISODate(ShiftHours(base, -5)))
}
