package period

import (
	"fmt"
	"time"
)

// Granularity identifies the bucketing scheme for a Period.
type Granularity string

const (
	// Daily buckets span local midnight through 23:59:59.999 of the same day.
	Daily Granularity = "daily"
	// Hourly buckets span the top of the hour through :59:59.999.
	Hourly Granularity = "hourly"
)

// Period is a closed time interval [Start, End] tagged with its granularity.
// It is part of a report's identity: any two timestamps in the same bucket
// must resolve to identical Period values.
type Period struct {
	Start       time.Time   `json:"start"`
	End         time.Time   `json:"end"`
	Granularity Granularity `json:"granularity"`
}

// New constructs a Period from explicit bounds.
// Resolve can never produce an inverted interval, but externally constructed
// periods (e.g. query filters) are validated here.
func New(start, end time.Time, g Granularity) (Period, error) {
	if start.After(end) {
		return Period{}, fmt.Errorf("period start %s is after end %s", start, end)
	}
	return Period{Start: start, End: end, Granularity: g}, nil
}

// Resolve maps a timestamp to its bucket. Pure and total: every timestamp
// falls in exactly one bucket per granularity, and the bucket contains it.
func Resolve(t time.Time, g Granularity) Period {
	switch g {
	case Hourly:
		start := t.Truncate(time.Hour)
		return Period{
			Start:       start,
			End:         start.Add(time.Hour - time.Millisecond),
			Granularity: Hourly,
		}
	default:
		// Calendar bounds, not start+24h: a DST transition makes the wall-clock
		// day 23 or 25 hours long, and the bucket must still cover all of it.
		y, m, d := t.Date()
		return Period{
			Start:       time.Date(y, m, d, 0, 0, 0, 0, t.Location()),
			End:         time.Date(y, m, d, 23, 59, 59, 999000000, t.Location()),
			Granularity: Daily,
		}
	}
}

// Contains reports whether t falls inside the closed interval.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Overlaps reports whether the two closed intervals share any instant.
func (p Period) Overlaps(other Period) bool {
	return !p.Start.After(other.End) && !p.End.Before(other.Start)
}

// Equal reports whether two periods describe the same bucket.
func (p Period) Equal(other Period) bool {
	return p.Start.Equal(other.Start) && p.End.Equal(other.End) && p.Granularity == other.Granularity
}

func (p Period) String() string {
	return fmt.Sprintf("%s[%s, %s]", p.Granularity, p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339))
}
