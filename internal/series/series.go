package series

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// Point is one entry of the normalized price series.
type Point struct {
	Time  time.Time
	Price float64
}

// Options controls how raw records are normalized into a price series.
type Options struct {
	// TimeFields and PriceFields are prioritized alias lists; the first
	// field present in a record wins.
	TimeFields  []string
	PriceFields []string

	// TimeLayout overrides RFC 3339 timestamp parsing when non-empty.
	TimeLayout string

	// Factor is applied before Offset: price*Factor + Offset.
	// A zero Factor means no scaling (treated as 1).
	Factor float64
	Offset float64

	// Hourly aggregates sub-hourly points into hourly averages.
	Hourly bool

	Location *time.Location
}

// DefaultOptions returns the alias lists understood by the stock price
// entity formats.
func DefaultOptions() Options {
	return Options{
		TimeFields:  []string{"start_time", "start", "startsAt"},
		PriceFields: []string{"price", "price_per_kwh", "total"},
	}
}

func (o Options) location() *time.Location {
	if o.Location != nil {
		return o.Location
	}
	return time.Local
}

// Normalize turns heterogeneous raw records into a sorted, de-duplicated
// price series. Bad records are dropped and counted, never fatal.
func Normalize(records []map[string]any, opts Options) []Point {
	loc := opts.location()
	factor := opts.Factor
	if factor == 0 {
		factor = 1
	}

	var (
		points      []Point
		missing     int
		parseErrors int
		firstBad    any
	)
	for _, rec := range records {
		tsRaw, ok := firstField(rec, opts.TimeFields)
		if !ok {
			missing++
			if firstBad == nil {
				firstBad = rec
			}
			continue
		}
		priceRaw, ok := firstField(rec, opts.PriceFields)
		if !ok {
			missing++
			if firstBad == nil {
				firstBad = rec
			}
			continue
		}

		ts, err := parseTime(tsRaw, opts.TimeLayout, loc)
		if err != nil {
			parseErrors++
			if firstBad == nil {
				firstBad = tsRaw
			}
			continue
		}
		price, err := parsePrice(priceRaw)
		if err != nil {
			parseErrors++
			if firstBad == nil {
				firstBad = priceRaw
			}
			continue
		}

		points = append(points, Point{Time: ts, Price: price*factor + opts.Offset})
	}

	if missing+parseErrors > 0 {
		logrus.Warnf("Dropped %d price record(s) (%d missing fields, %d parse errors), first offending value: %v",
			missing+parseErrors, missing, parseErrors, firstBad)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	points = dedupe(points)

	if opts.Hourly {
		points = aggregateHourly(points, loc)
	}
	logrus.Debugf("Normalized %d price points from %d raw records", len(points), len(records))
	return points
}

func firstField(rec map[string]any, aliases []string) (any, bool) {
	for _, name := range aliases {
		if v, ok := rec[name]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func parseTime(v any, layout string, loc *time.Location) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.In(loc), nil
	case string:
		if layout != "" {
			parsed, err := time.ParseInLocation(layout, t, loc)
			if err != nil {
				return time.Time{}, fmt.Errorf("parse timestamp %q: %w", t, err)
			}
			return parsed.In(loc), nil
		}
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			// Timestamps without zone info assume the local zone.
			parsed, err = time.ParseInLocation("2006-01-02T15:04:05", t, loc)
			if err != nil {
				return time.Time{}, fmt.Errorf("parse timestamp %q: %w", t, err)
			}
		}
		return parsed.In(loc), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func parsePrice(v any) (float64, error) {
	switch p := v.(type) {
	case float64:
		return p, nil
	case float32:
		return float64(p), nil
	case int:
		return float64(p), nil
	case int64:
		return float64(p), nil
	case string:
		var f float64
		if _, err := fmt.Sscanf(p, "%f", &f); err != nil {
			return 0, fmt.Errorf("parse price %q: %w", p, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("unsupported price type %T", v)
	}
}

// dedupe keeps the first point for each timestamp. Input must be sorted.
func dedupe(points []Point) []Point {
	if len(points) < 2 {
		return points
	}
	out := points[:1]
	for _, p := range points[1:] {
		if !p.Time.Equal(out[len(out)-1].Time) {
			out = append(out, p)
		}
	}
	return out
}

// aggregateHourly groups points by the top of their containing hour and
// replaces each group with its arithmetic mean. Input must be sorted so
// grouping is stable regardless of the original record order.
func aggregateHourly(points []Point, loc *time.Location) []Point {
	if len(points) == 0 {
		return points
	}
	truncHour := func(t time.Time) time.Time {
		t = t.In(loc)
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
	}
	var out []Point
	var sum float64
	var n int
	hour := truncHour(points[0].Time)
	flush := func() {
		if n > 0 {
			out = append(out, Point{Time: hour, Price: sum / float64(n)})
		}
	}
	for _, p := range points {
		h := truncHour(p.Time)
		if !h.Equal(hour) {
			flush()
			hour, sum, n = h, 0, 0
		}
		sum += p.Price
		n++
	}
	flush()
	return out
}

// Interval infers the period length between points, defaulting to one hour
// when the series is too short to tell.
func Interval(points []Point) time.Duration {
	if len(points) >= 2 {
		if d := points[1].Time.Sub(points[0].Time); d > 0 {
			return d
		}
	}
	return time.Hour
}

// PlotSeries appends one synthetic trailing point so a step chart can render
// its final segment. The synthetic point is never used for statistics.
func PlotSeries(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	last := points[len(points)-1]
	out := make([]Point, len(points), len(points)+1)
	copy(out, points)
	return append(out, Point{Time: last.Time.Add(Interval(points)), Price: last.Price})
}

// CurrentIndex returns the index of the point whose period contains now:
// the rightmost insertion point minus one, clamped into range. Returns -1
// for an empty series.
func CurrentIndex(points []Point, now time.Time) int {
	if len(points) == 0 {
		return -1
	}
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].Time.After(now)
	}) - 1
	if idx < 0 {
		return 0
	}
	return idx
}
