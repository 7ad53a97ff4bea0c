package stagedomain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSegmentTime(t *testing.T) {
	tests := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "1:02.345", want: time.Minute + 2*time.Second + 345*time.Millisecond},
		{raw: "0:59.9", want: 59*time.Second + 900*time.Millisecond},
		{raw: "12:00", want: 12 * time.Minute},
		{raw: "42.5", want: 42*time.Second + 500*time.Millisecond},
		{raw: "42.50049", want: 42*time.Second + 500*time.Millisecond},
		{raw: "4000", want: 4 * time.Second},
		{raw: "  950 ", want: 950 * time.Millisecond},
		{raw: "", wantErr: true},
		{raw: "0", wantErr: true},
		{raw: "-100", wantErr: true},
		{raw: "0:00.000", wantErr: true},
		{raw: "1:60.000", wantErr: true},
		{raw: "1:xx", wantErr: true},
		{raw: "12.", wantErr: true},
		{raw: ".5", wantErr: true},
		{raw: "1.2.3", wantErr: true},
		{raw: "DNF", wantErr: true},
		{raw: "86400000", want: MaxSegmentTime},
		{raw: "1440:00.000", want: MaxSegmentTime},
		{raw: "86400000.001", wantErr: true},
		{raw: "86400001", wantErr: true},
		{raw: "1440:00.001", wantErr: true},
		{raw: "18446744073710", wantErr: true},
		{raw: "9223372036854775807", wantErr: true},
		{raw: "99999999999999999999", wantErr: true},
		{raw: "153722867280:00", wantErr: true},
		{raw: "9223372036.854", wantErr: true},
		{raw: "+5", wantErr: true},
		{raw: "+1:00.000", wantErr: true},
		{raw: "1:+5.000", wantErr: true},
		{raw: "+42.5", wantErr: true},
		{raw: "-1:00.000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseSegmentTime(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidSegmentTime)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatSegmentTimeRoundTrips(t *testing.T) {
	for _, d := range []time.Duration{
		950 * time.Millisecond,
		62*time.Second + 345*time.Millisecond,
		11*time.Minute + 5*time.Millisecond,
	} {
		got, err := ParseSegmentTime(FormatSegmentTime(d))
		require.NoError(t, err)
		assert.Equal(t, d, got)
	}
}
