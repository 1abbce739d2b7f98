// Package window selects the visible time range of the chart from the
// configured anchor mode and the available data.
package window

import (
	"fmt"
	"time"

	"github.com/stefanes/tibber-graph/internal/series"
)

// Anchor is the policy determining where the visible window begins.
type Anchor int

const (
	// AnchorMidnight starts the window at local midnight of today.
	AnchorMidnight Anchor = iota
	// AnchorCurrentHour starts one hour before the current hour; the
	// lookback hour is cosmetic padding excluded from statistics.
	AnchorCurrentHour
	// AnchorShowAll shows everything the series covers.
	AnchorShowAll
)

func ParseAnchor(s string) (Anchor, error) {
	switch s {
	case "midnight":
		return AnchorMidnight, nil
	case "current_hour":
		return AnchorCurrentHour, nil
	case "show_all":
		return AnchorShowAll, nil
	default:
		return AnchorShowAll, fmt.Errorf("unknown start_graph_at value %q", s)
	}
}

func (a Anchor) String() string {
	switch a {
	case AnchorMidnight:
		return "midnight"
	case AnchorCurrentHour:
		return "current_hour"
	default:
		return "show_all"
	}
}

// Window is the visible [Start, End] range of the chart.
type Window struct {
	Start      time.Time
	End        time.Time
	NowVisible bool
}

// Compute derives the visible window. hoursToShow caps the span when > 0.
// End never exceeds the last data point, except that current_hour mode
// enforces a minimum two-hour span.
func Compute(now time.Time, anchor Anchor, hoursToShow int, points []series.Point) Window {
	if len(points) == 0 {
		start := midnight(now)
		return finish(start, start.Add(24*time.Hour), now)
	}
	first := points[0].Time
	last := points[len(points)-1].Time

	var start, end time.Time
	switch anchor {
	case AnchorMidnight:
		start = midnight(now)
		end = last
		if hoursToShow > 0 {
			end = earlier(end, start.Add(time.Duration(hoursToShow)*time.Hour))
		}
	case AnchorCurrentHour:
		start = TruncHour(now).Add(-time.Hour)
		end = last
		if hoursToShow > 0 {
			end = earlier(end, start.Add(time.Duration(hoursToShow)*time.Hour))
		}
		if !end.After(start) {
			end = start.Add(2 * time.Hour)
		}
	default: // AnchorShowAll
		start = first
		end = last
		if hoursToShow > 0 {
			end = earlier(end, start.Add(time.Duration(hoursToShow)*time.Hour))
		}
	}
	if end.Before(start) {
		end = start
	}
	return finish(start, end, now)
}

// CalcStart is where statistics begin. In current_hour mode the cosmetic
// lookback hour is excluded so min/max/average cover the current hour
// onwards; other modes calculate over the full visible window.
func CalcStart(now time.Time, anchor Anchor, w Window) time.Time {
	if anchor == AnchorCurrentHour {
		return TruncHour(now)
	}
	return w.Start
}

// TruncHour truncates to the top of the wall-clock hour in t's zone.
func TruncHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

func finish(start, end, now time.Time) Window {
	return Window{
		Start:      start,
		End:        end,
		NowVisible: !now.Before(start) && !now.After(end),
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func earlier(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
