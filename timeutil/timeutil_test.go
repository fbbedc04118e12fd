package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RFC3339(t *testing.T) {
	got, err := Parse("2024-03-01T08:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), got)
}

func TestParse_OffsetNormalizedToUTC(t *testing.T) {
	got, err := Parse("2024-03-01T16:30:00+08:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), got)
}

func TestParse_NaiveStringIsUTC(t *testing.T) {
	got, err := Parse("2024-03-01T08:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), got)
}

func TestParse_UnixSeconds(t *testing.T) {
	got, err := Parse(1709281800)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), got)
}

func TestParse_UnixMilliseconds(t *testing.T) {
	got, err := Parse(1709281800000.0)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), got)
}

func TestParse_NumericString(t *testing.T) {
	got, err := Parse("1709281800")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), got)
}

func TestParse_TimeValuePassthrough(t *testing.T) {
	sg := time.FixedZone("SGT", 8*3600)
	got, err := Parse(time.Date(2024, 3, 1, 16, 30, 0, 0, sg))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), got)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse("not a time")
	assert.Error(t, err)
	_, err = Parse(struct{}{})
	assert.Error(t, err)
}

func TestOutputLocation(t *testing.T) {
	utc, err := OutputLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, utc)

	offset, err := OutputLocation("-480")
	require.NoError(t, err)
	ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC).In(offset)
	assert.Equal(t, 0, ts.Hour())

	iana, err := OutputLocation("Asia/Singapore")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Singapore", iana.String())

	_, err = OutputLocation("Not/AZone")
	assert.Error(t, err)
}

func TestNewTimeRange(t *testing.T) {
	r, err := NewTimeRange("2024-03-01T00:00:00Z", "2024-03-02T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, r.Contains(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.True(t, r.Contains(r.Start))
	assert.False(t, r.Contains(r.End))

	_, err = NewTimeRange("2024-03-02T00:00:00Z", "2024-03-01T00:00:00Z")
	assert.Error(t, err)
	_, err = NewTimeRange("2024-03-01T00:00:00Z", "2024-03-01T00:00:00Z")
	assert.Error(t, err)
}
