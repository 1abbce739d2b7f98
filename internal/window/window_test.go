package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanes/tibber-graph/internal/series"
)

func hourlyPoints(start time.Time, n int) []series.Point {
	points := make([]series.Point, n)
	for i := range points {
		points[i] = series.Point{Time: start.Add(time.Duration(i) * time.Hour), Price: 1.0}
	}
	return points
}

func TestParseAnchor(t *testing.T) {
	for s, want := range map[string]Anchor{
		"midnight":     AnchorMidnight,
		"current_hour": AnchorCurrentHour,
		"show_all":     AnchorShowAll,
	} {
		got, err := ParseAnchor(s)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, s, got.String())
	}

	_, err := ParseAnchor("yesterday")
	assert.Error(t, err)
}

func TestComputeMidnight(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)
	points := hourlyPoints(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 36)

	w := Compute(now, AnchorMidnight, 0, points)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, points[len(points)-1].Time, w.End)
	assert.True(t, w.NowVisible)
}

func TestComputeMidnightHoursCap(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)
	points := hourlyPoints(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 48)

	w := Compute(now, AnchorMidnight, 24, points)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), w.End)
}

func TestComputeCurrentHour(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	points := hourlyPoints(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 24)

	w := Compute(now, AnchorCurrentHour, 0, points)
	assert.Equal(t, time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC), w.Start, "window starts one hour back")
	assert.Equal(t, points[23].Time, w.End)
	assert.True(t, w.NowVisible)
}

func TestComputeCurrentHourMinimumSpan(t *testing.T) {
	// Data that ends before the window start still yields a drawable span.
	now := time.Date(2024, 3, 10, 23, 45, 0, 0, time.UTC)
	points := hourlyPoints(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 12)

	w := Compute(now, AnchorCurrentHour, 0, points)
	assert.Equal(t, time.Date(2024, 3, 10, 22, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, w.Start.Add(2*time.Hour), w.End)
}

func TestComputeShowAll(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	points := hourlyPoints(time.Date(2024, 3, 9, 18, 0, 0, 0, time.UTC), 30)

	w := Compute(now, AnchorShowAll, 0, points)
	assert.Equal(t, points[0].Time, w.Start)
	assert.Equal(t, points[29].Time, w.End)

	capped := Compute(now, AnchorShowAll, 6, points)
	assert.Equal(t, points[0].Time.Add(6*time.Hour), capped.End)
}

func TestComputeEmptySeries(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)

	w := Compute(now, AnchorCurrentHour, 0, nil)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), w.Start, "empty data falls back to midnight")
	assert.Equal(t, w.Start.Add(24*time.Hour), w.End)
}

func TestNowVisible(t *testing.T) {
	points := hourlyPoints(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 24)

	past := Compute(time.Date(2024, 3, 12, 6, 0, 0, 0, time.UTC), AnchorShowAll, 0, points)
	assert.False(t, past.NowVisible)
}

func TestCalcStart(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 42, 0, 0, time.UTC)
	points := hourlyPoints(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 24)

	w := Compute(now, AnchorCurrentHour, 0, points)
	assert.Equal(t, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), CalcStart(now, AnchorCurrentHour, w),
		"statistics skip the cosmetic lookback hour")

	w = Compute(now, AnchorMidnight, 0, points)
	assert.Equal(t, w.Start, CalcStart(now, AnchorMidnight, w))
}

func TestTruncHourWallClock(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	got := TruncHour(time.Date(2024, 3, 10, 12, 42, 17, 0, loc))
	assert.Equal(t, time.Date(2024, 3, 10, 12, 0, 0, 0, loc), got)
}
