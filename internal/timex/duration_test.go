package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalStringAndNumber(t *testing.T) {
	var v struct {
		A Duration `json:"a"`
		B Duration `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"30s","b":1000000000}`), &v))
	require.Equal(t, 30*time.Second, v.A.Duration)
	require.Equal(t, time.Second, v.B.Duration)
}

func TestDuration_UnmarshalInvalid(t *testing.T) {
	var d Duration
	require.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	require.Error(t, json.Unmarshal([]byte(`true`), &d))
}

func TestDuration_MarshalRoundTrip(t *testing.T) {
	b, err := json.Marshal(Duration{3 * time.Minute})
	require.NoError(t, err)
	require.JSONEq(t, `"3m0s"`, string(b))
}

func TestNowMillis_IsMillisecondEpoch(t *testing.T) {
	before := time.Now().UnixMilli()
	got := NowMillis()
	require.GreaterOrEqual(t, got, before)
	require.Less(t, got-before, int64(time.Minute/time.Millisecond))
}
