package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolve_DailyBucketStability(t *testing.T) {
	// Any two timestamps on the same calendar day resolve to the same bucket.
	t1 := time.Date(2023, 11, 8, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2023, 11, 8, 12, 30, 45, 123456789, time.UTC)
	t3 := time.Date(2023, 11, 8, 23, 59, 59, 999000000, time.UTC)

	p1 := Resolve(t1, Daily)
	p2 := Resolve(t2, Daily)
	p3 := Resolve(t3, Daily)

	require.True(t, p1.Equal(p2))
	require.True(t, p2.Equal(p3))

	require.Equal(t, time.Date(2023, 11, 8, 0, 0, 0, 0, time.UTC), p1.Start)
	require.Equal(t, time.Date(2023, 11, 8, 23, 59, 59, 999000000, time.UTC), p1.End)
}

func TestResolve_ContainsItsInput(t *testing.T) {
	inputs := []time.Time{
		time.Date(2023, 11, 8, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 11, 8, 12, 0, 0, 0, time.UTC),
		time.Date(2023, 11, 8, 23, 59, 59, 999000000, time.UTC),
		time.Date(2024, 2, 29, 6, 15, 0, 0, time.UTC), // leap day
	}

	for _, in := range inputs {
		require.True(t, Resolve(in, Daily).Contains(in), "daily bucket must contain %s", in)
		require.True(t, Resolve(in, Hourly).Contains(in), "hourly bucket must contain %s", in)
	}
}

func TestResolve_DailyAcrossDSTTransitions(t *testing.T) {
	nyc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Fall-back day: 25 wall-clock hours. A late-evening timestamp must still
	// land inside its own bucket, and the bucket must end at 23:59:59.999.
	fallBack := time.Date(2025, 11, 2, 23, 30, 0, 0, nyc)
	p := Resolve(fallBack, Daily)
	require.True(t, p.Contains(fallBack))
	require.Equal(t, time.Date(2025, 11, 2, 23, 59, 59, 999000000, nyc), p.End)

	// Spring-forward day: 23 wall-clock hours. The bucket must not spill into
	// the following day.
	springFwd := time.Date(2025, 3, 9, 12, 0, 0, 0, nyc)
	nextDay := Resolve(time.Date(2025, 3, 10, 0, 0, 0, 0, nyc), Daily)
	require.True(t, Resolve(springFwd, Daily).Contains(springFwd))
	require.False(t, Resolve(springFwd, Daily).Overlaps(nextDay))

	// Same calendar day on either side of the transition shares one bucket.
	beforeShift := time.Date(2025, 11, 2, 0, 30, 0, 0, nyc)
	require.True(t, Resolve(beforeShift, Daily).Equal(p))
}

func TestResolve_AdjacentDaysDontOverlap(t *testing.T) {
	day1 := Resolve(time.Date(2023, 11, 8, 12, 0, 0, 0, time.UTC), Daily)
	day2 := Resolve(time.Date(2023, 11, 9, 12, 0, 0, 0, time.UTC), Daily)

	require.False(t, day1.Equal(day2))
	require.False(t, day1.Overlaps(day2))
	require.False(t, day1.Contains(day2.Start))
}

func TestResolve_Hourly(t *testing.T) {
	p := Resolve(time.Date(2023, 11, 8, 14, 37, 12, 0, time.UTC), Hourly)

	require.Equal(t, time.Date(2023, 11, 8, 14, 0, 0, 0, time.UTC), p.Start)
	require.Equal(t, time.Date(2023, 11, 8, 14, 59, 59, 999000000, time.UTC), p.End)
}

func TestNew_RejectsInvertedInterval(t *testing.T) {
	start := time.Date(2023, 11, 8, 0, 0, 0, 0, time.UTC)

	_, err := New(start, start.Add(-time.Hour), Daily)
	require.Error(t, err)

	p, err := New(start, start, Daily)
	require.NoError(t, err)
	require.True(t, p.Contains(start))
}

func TestPeriod_Overlaps(t *testing.T) {
	mk := func(h1, h2 int) Period {
		return Period{
			Start:       time.Date(2023, 11, 8, h1, 0, 0, 0, time.UTC),
			End:         time.Date(2023, 11, 8, h2, 0, 0, 0, time.UTC),
			Granularity: Hourly,
		}
	}

	require.True(t, mk(1, 5).Overlaps(mk(4, 8)))
	require.True(t, mk(1, 5).Overlaps(mk(5, 8))) // closed interval: shared endpoint overlaps
	require.False(t, mk(1, 5).Overlaps(mk(6, 8)))
}
