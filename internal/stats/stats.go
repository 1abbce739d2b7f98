// Package stats computes min/max/average prices and cheap-period selection.
//
// Three subsets of the series are kept distinct throughout:
//
//   - the calculation subset (calcStart..window end) drives the average and
//     the Y-axis tick extremes;
//   - the candidate subset drives min/max labeling and excludes past points
//     in current_hour mode (strictly after now);
//   - the visible subset (window start..end) is only used by the layout for
//     Y-axis limits and is not computed here.
package stats

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stefanes/tibber-graph/internal/series"
	"github.com/stefanes/tibber-graph/internal/window"
)

// Params are the statistics-relevant knobs of the render configuration.
type Params struct {
	Anchor         window.Anchor
	PerDayMinMax   bool
	CheapPoints    int
	CheapThreshold float64
	Location       *time.Location
}

// Result holds everything downstream layers need. Indices refer to the
// normalized series passed to Compute.
type Result struct {
	// Average over the calculation subset; HasAverage is false when that
	// subset is empty and dependent features must degrade.
	Average    float64
	HasAverage bool

	// TickMin/TickMax are the extremes of the calculation subset, used for
	// Y-axis tick values.
	TickMin  float64
	TickMax  float64
	HasTicks bool

	// MinIdx/MaxIdx are the candidate-subset extremes for labeling, -1 when
	// there are no candidates. First occurrence wins on ties.
	MinIdx int
	MaxIdx int

	// PerDayMin/PerDayMax are populated instead of MinIdx/MaxIdx labels when
	// per-day mode is active: one index per calendar day whose extreme falls
	// inside the candidate subset.
	PerDayMin []int
	PerDayMax []int

	// Cheap is the set of cheap-period indices over the full series.
	Cheap map[int]bool
}

// Compute derives statistics for the series. calcStart comes from
// window.CalcStart; points must be sorted ascending.
func Compute(points []series.Point, w window.Window, calcStart, now time.Time, p Params) Result {
	res := Result{MinIdx: -1, MaxIdx: -1, Cheap: map[int]bool{}}

	var calc, candidates []int
	for i, pt := range points {
		if pt.Time.Before(calcStart) || pt.Time.After(w.End) {
			continue
		}
		calc = append(calc, i)
		if p.Anchor == window.AnchorCurrentHour && !pt.Time.After(now) {
			continue
		}
		candidates = append(candidates, i)
	}

	if len(calc) > 0 {
		res.HasAverage = true
		res.HasTicks = true
		sum := 0.0
		res.TickMin = points[calc[0]].Price
		res.TickMax = points[calc[0]].Price
		for _, i := range calc {
			sum += points[i].Price
			if points[i].Price < res.TickMin {
				res.TickMin = points[i].Price
			}
			if points[i].Price > res.TickMax {
				res.TickMax = points[i].Price
			}
		}
		res.Average = sum / float64(len(calc))
	}

	if len(candidates) > 0 {
		res.MinIdx = candidates[0]
		res.MaxIdx = candidates[0]
		for _, i := range candidates[1:] {
			if points[i].Price < points[res.MinIdx].Price {
				res.MinIdx = i
			}
			if points[i].Price > points[res.MaxIdx].Price {
				res.MaxIdx = i
			}
		}
	}

	if p.PerDayMinMax {
		res.PerDayMin, res.PerDayMax = perDayExtremes(points, candidates, p.location())
	}

	res.Cheap = cheapIndices(points, p)
	logrus.Debugf("Statistics: calc=%d candidates=%d cheap=%d avg=%v",
		len(calc), len(candidates), len(res.Cheap), res.HasAverage)
	return res
}

func (p Params) location() *time.Location {
	if p.Location != nil {
		return p.Location
	}
	return time.Local
}

// perDayExtremes partitions the FULL series by calendar date and finds each
// day's min and max. A day's extreme is reported only when it also falls in
// the candidate subset; it is never substituted by another in-window point.
func perDayExtremes(points []series.Point, candidates []int, loc *time.Location) (mins, maxs []int) {
	inCandidates := make(map[int]bool, len(candidates))
	for _, i := range candidates {
		inCandidates[i] = true
	}

	type extremes struct{ min, max int }
	byDay := map[string]*extremes{}
	var order []string
	for i, pt := range points {
		day := pt.Time.In(loc).Format("2006-01-02")
		e, ok := byDay[day]
		if !ok {
			byDay[day] = &extremes{min: i, max: i}
			order = append(order, day)
			continue
		}
		if pt.Price < points[e.min].Price {
			e.min = i
		}
		if pt.Price > points[e.max].Price {
			e.max = i
		}
	}
	for _, day := range order {
		e := byDay[day]
		if inCandidates[e.min] {
			mins = append(mins, e.min)
		}
		if inCandidates[e.max] {
			maxs = append(maxs, e.max)
		}
	}
	return mins, maxs
}

// cheapIndices selects, per calendar day of the full series, up to
// CheapPoints cheapest points, unioned with every point strictly below
// CheapThreshold. Either criterion admits a point.
func cheapIndices(points []series.Point, p Params) map[int]bool {
	cheap := map[int]bool{}
	if p.CheapPoints <= 0 && p.CheapThreshold <= 0 {
		return cheap
	}
	loc := p.location()

	byDay := map[string][]int{}
	var order []string
	for i, pt := range points {
		day := pt.Time.In(loc).Format("2006-01-02")
		if _, ok := byDay[day]; !ok {
			order = append(order, day)
		}
		byDay[day] = append(byDay[day], i)
	}

	for _, day := range order {
		idxs := byDay[day]
		if p.CheapPoints > 0 {
			ranked := append([]int(nil), idxs...)
			sort.SliceStable(ranked, func(a, b int) bool {
				return points[ranked[a]].Price < points[ranked[b]].Price
			})
			n := p.CheapPoints
			if n > len(ranked) {
				n = len(ranked)
			}
			for _, i := range ranked[:n] {
				cheap[i] = true
			}
		}
		if p.CheapThreshold > 0 {
			for _, i := range idxs {
				if points[i].Price < p.CheapThreshold {
					cheap[i] = true
				}
			}
		}
	}
	return cheap
}
