package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"string", `"15s"`, 15 * time.Second, false},
		{"minutes", `"2m"`, 2 * time.Minute, false},
		{"nanoseconds", `1000000000`, time.Second, false},
		{"bad string", `"soon"`, 0, true},
		{"bool", `true`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 90 * time.Second})
	require.NoError(t, err)
	assert.JSONEq(t, `"1m30s"`, string(b))
}

func TestParseTimestamp(t *testing.T) {
	loc := time.FixedZone("X", 2*60*60)

	got, err := ParseTimestamp("2030-05-01T10:00:00.000Z", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2030, 5, 1, 10, 0, 0, 0, time.UTC)))

	got, err = ParseTimestamp("2030-05-01T10:00:00+02:00", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2030, 5, 1, 8, 0, 0, 0, time.UTC)))

	got, err = ParseTimestamp("2030-05-01T10:00", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2030, 5, 1, 8, 0, 0, 0, time.UTC)))

	_, err = ParseTimestamp("tomorrow", loc)
	assert.Error(t, err)

	_, err = ParseTimestamp("", loc)
	assert.Error(t, err)
}
