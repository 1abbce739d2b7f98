package layout

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"

	"github.com/stefanes/tibber-graph/internal/config"
	"github.com/stefanes/tibber-graph/internal/gradient"
	"github.com/stefanes/tibber-graph/internal/series"
	"github.com/stefanes/tibber-graph/internal/stats"
	"github.com/stefanes/tibber-graph/internal/theme"
	"github.com/stefanes/tibber-graph/internal/window"
)

const (
	labelGap     = 6.0  // px between data point and its label block
	lineSpacing  = 1.25 // label line height multiplier
	markerRadius = 4.0
	dimAlpha     = 0.45 // alpha multiplier for the past half of the line
	yTickPad     = 8.0  // px between axis and tick label
)

// SecondRowOffset is the height of an extra X tick row as a multiple of the
// label font size. The renderer offsets row 1 by it; the layout reserves the
// same amount of bottom margin when the comfy mode needs the row.
const SecondRowOffset = 1.6

// Input carries everything Build needs. Raw is the normalized series, Plot
// the step series with the synthetic trailing point.
type Input struct {
	Raw       []series.Point
	Plot      []series.Point
	Now       time.Time
	Idx       int // current price index into Raw, -1 when unknown
	Currency  string
	Window    window.Window
	CalcStart time.Time
	Stats     stats.Result
	Cfg       config.RenderConfig
	Theme     theme.Theme
	Metrics   Metrics
	Width     int
	Height    int
}

type builder struct {
	Input
	plan     *Plan
	interval time.Duration
	palette  palette
}

type palette struct {
	label, labelMin, labelMax, labelAvg       colorful.Color
	axisLabel, tick, tickLine, grid           colorful.Color
	priceLine, below, near, above             colorful.Color
	cheap, cheapLine, avgLine, nowLine, spine colorful.Color
}

// Build computes the full render plan. It fails only on unparseable theme
// colors; every data-dependent degenerate case degrades to a smaller plan.
func Build(in Input) (*Plan, error) {
	if len(in.Plot) < 2 || len(in.Raw) < 1 {
		return nil, fmt.Errorf("not enough points to lay out (%d)", len(in.Plot))
	}
	b := &builder{Input: in, interval: series.Interval(in.Raw)}
	if err := b.resolvePalette(); err != nil {
		return nil, err
	}
	b.geometry()
	b.cheapSpans()
	b.xAxis()
	b.yAxis()
	b.refLines()
	b.priceLine()
	b.nowMarker()
	b.pointLabels()
	b.header()
	return b.plan, nil
}

func (b *builder) resolvePalette() error {
	th := b.Theme
	cols := []struct {
		spec string
		dst  *colorful.Color
	}{
		{th.LabelColor, &b.palette.label},
		{th.LabelColorMin, &b.palette.labelMin},
		{th.LabelColorMax, &b.palette.labelMax},
		{th.LabelColorAvg, &b.palette.labelAvg},
		{th.AxisLabelColor, &b.palette.axisLabel},
		{th.TickColor, &b.palette.tick},
		{th.TicklineColor, &b.palette.tickLine},
		{th.GridColor, &b.palette.grid},
		{th.PriceLineColor, &b.palette.priceLine},
		{th.PriceLineColorBelowAvg, &b.palette.below},
		{th.PriceLineColorNearAvg, &b.palette.near},
		{th.PriceLineColorAboveAvg, &b.palette.above},
		{th.CheapPriceColor, &b.palette.cheap},
		{th.CheaplineColor, &b.palette.cheapLine},
		{th.AvglineColor, &b.palette.avgLine},
		{th.NowlineColor, &b.palette.nowLine},
		{th.SpineColor, &b.palette.spine},
	}
	for _, c := range cols {
		parsed, _, err := theme.ParseColor(c.spec)
		if err != nil {
			return err
		}
		*c.dst = parsed
	}
	return nil
}

func (b *builder) headerMode() bool {
	return b.Cfg.LabelCurrent == config.CurrentLabelHeader ||
		b.Cfg.LabelCurrent == config.CurrentLabelHeaderPriceOnly
}

func (b *builder) geometry() {
	w, h := float64(b.Width), float64(b.Height)
	topFrac := 0.05
	if b.headerMode() {
		topFrac = b.Cfg.HeaderPadding
	}
	bottom := h * b.Cfg.BottomMargin
	if b.Cfg.CheapLabelMode == config.CheapLabelsComfy {
		// The second tick row needs its own line height under the plot.
		bottom += b.Cfg.LabelFontSize * SecondRowOffset
	}
	proj := Projection{
		Width: b.Width, Height: b.Height,
		PlotX: w * b.Cfg.LeftMargin,
		PlotY: h * topFrac,
		PlotW: w * (1 - 2*b.Cfg.LeftMargin),
		PlotH: h - h*topFrac - bottom,
		Start: b.Window.Start,
		End:   b.Window.End,
	}

	// Y limits come from the plotted points inside the window, padded so
	// the line never touches the plot edges.
	var visible []float64
	for _, pt := range b.Plot {
		if !pt.Time.Before(b.Window.Start) && !pt.Time.After(b.Window.End) {
			visible = append(visible, pt.Price)
		}
	}
	if len(visible) == 0 {
		for _, pt := range b.Plot {
			visible = append(visible, pt.Price)
		}
	}
	lo, hi := visible[0], visible[0]
	for _, v := range visible {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	proj.YMin = lo - 0.005
	proj.YMax = hi + 0.0075

	logrus.Tracef("Plot area x=%.1f y=%.1f w=%.1f h=%.1f yrange=[%.4f,%.4f]",
		proj.PlotX, proj.PlotY, proj.PlotW, proj.PlotH, proj.YMin, proj.YMax)
	b.plan = &Plan{Proj: proj}
}

// spanX returns the window-clipped pixel range of one price period, or
// ok=false when the period lies fully outside the window.
func (b *builder) spanX(start time.Time) (x1, x2 float64, ok bool) {
	end := start.Add(b.interval)
	if end.Before(b.Window.Start) || start.After(b.Window.End) {
		return 0, 0, false
	}
	if start.Before(b.Window.Start) {
		start = b.Window.Start
	}
	if end.After(b.Window.End) {
		end = b.Window.End
	}
	if !end.After(start) {
		return 0, 0, false
	}
	return b.plan.Proj.X(start), b.plan.Proj.X(end), true
}

func (b *builder) cheapSpans() {
	if len(b.Stats.Cheap) == 0 {
		return
	}
	idxs := make([]int, 0, len(b.Stats.Cheap))
	for i := range b.Stats.Cheap {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	var spans []Span
	for _, i := range idxs {
		x1, x2, ok := b.spanX(b.Raw[i].Time)
		if !ok {
			continue
		}
		if n := len(spans); n > 0 && x1 <= spans[n-1].X2+0.5 {
			spans[n-1].X2 = x2
			continue
		}
		spans = append(spans, Span{X1: x1, X2: x2})
	}
	b.plan.CheapSpans = spans
}

func (b *builder) xAxis() {
	proj := b.plan.Proj
	step := b.Cfg.TickStep()

	var regular []time.Time
	for t := b.Window.Start; !t.After(b.Window.End); t = t.Add(step) {
		regular = append(regular, t)
	}

	boundaries := b.cheapBoundaries(step)
	mode := b.Cfg.CheapLabelMode
	if len(b.Stats.Cheap) == 0 {
		mode = config.CheapLabelsOff
	}

	for _, t := range regular {
		if mode == config.CheapLabelsCompact && nearAny(t, boundaries, step) {
			continue
		}
		// A boundary tick on the exact same time replaces the regular one.
		if mode != config.CheapLabelsOff && coincides(t, boundaries) {
			continue
		}
		x := proj.X(t)
		b.plan.XTicks = append(b.plan.XTicks, XTick{
			X: x, Label: t.Format("15:04"), Color: b.palette.axisLabel,
		})
		if b.Cfg.ShowVerticalGrid {
			b.plan.VGrid = append(b.plan.VGrid, x)
		}
	}

	if mode == config.CheapLabelsOff {
		return
	}
	row := 0
	if mode == config.CheapLabelsComfy {
		row = 1
	}
	for _, t := range boundaries {
		b.plan.XTicks = append(b.plan.XTicks, XTick{
			X:         proj.X(t),
			Label:     t.Format("15:04"),
			Color:     b.palette.cheap,
			Row:       row,
			Bold:      b.Cfg.CheapLabelBold,
			Underline: b.Cfg.CheapLabelUnderline,
			Boundary:  true,
		})
	}
}

// cheapBoundaries merges future cheap periods (entirely after now) into
// ranges, bridging gaps of at most one hour, and emits the tick times that
// mark the range edges: every sub-range start, the internal gap edges, and
// the range end when the range lasts at least one tick step.
func (b *builder) cheapBoundaries(step time.Duration) []time.Time {
	if b.Cfg.CheapLabelMode == config.CheapLabelsOff || len(b.Stats.Cheap) == 0 {
		return nil
	}
	var idxs []int
	for i := range b.Stats.Cheap {
		if b.Raw[i].Time.After(b.Now) {
			idxs = append(idxs, i)
		}
	}
	if len(idxs) == 0 {
		return nil
	}
	sort.Ints(idxs)

	type srange struct{ start, end time.Time }
	var subs []srange
	for _, i := range idxs {
		start := b.Raw[i].Time
		end := start.Add(b.interval)
		if n := len(subs); n > 0 && !start.After(subs[n-1].end) {
			subs[n-1].end = end
			continue
		}
		subs = append(subs, srange{start, end})
	}

	seen := map[time.Time]bool{}
	var out []time.Time
	add := func(t time.Time) {
		if t.Before(b.Window.Start) || t.After(b.Window.End) || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}

	for g := 0; g < len(subs); {
		end := g
		for end+1 < len(subs) && subs[end+1].start.Sub(subs[end].end) <= time.Hour {
			end++
		}
		add(subs[g].start)
		for j := g + 1; j <= end; j++ { // internal gap edges
			add(subs[j-1].end)
			add(subs[j].start)
		}
		if subs[end].end.Sub(subs[g].start) >= step {
			add(subs[end].end)
		}
		g = end + 1
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	logrus.Tracef("Cheap boundary ticks: %d from %d future cheap periods", len(out), len(idxs))
	return out
}

func coincides(t time.Time, boundaries []time.Time) bool {
	for _, bt := range boundaries {
		if t.Equal(bt) {
			return true
		}
	}
	return false
}

func nearAny(t time.Time, boundaries []time.Time, step time.Duration) bool {
	for _, bt := range boundaries {
		d := t.Sub(bt)
		if d < 0 {
			d = -d
		}
		if d < step {
			return true
		}
	}
	return false
}

func (b *builder) yAxis() {
	if !b.Cfg.ShowYAxis {
		return
	}
	proj := b.plan.Proj

	lo, hi := b.Stats.TickMin, b.Stats.TickMax
	if !b.Stats.HasTicks {
		lo, hi = proj.YMin, proj.YMax
	}

	type tick struct {
		v     float64
		color colorful.Color
	}
	plain := b.palette.tick
	cMin, cMax, cAvg := plain, plain, plain
	if b.Cfg.YTickUseColors {
		cMin, cMax, cAvg = b.palette.labelMin, b.palette.labelMax, b.palette.labelAvg
	}

	count := b.Cfg.YTickCount
	if count <= 0 {
		count = 3
	}
	var ticks []tick
	switch {
	case count == 1:
		if b.Stats.HasAverage {
			ticks = []tick{{b.Stats.Average, cAvg}}
		}
	case count == 2:
		ticks = []tick{{lo, cMin}, {hi, cMax}}
	case count == 3:
		ticks = []tick{{lo, cMin}}
		if b.Stats.HasAverage {
			ticks = append(ticks, tick{b.Stats.Average, cAvg})
		}
		ticks = append(ticks, tick{hi, cMax})
	default:
		ticks = []tick{{lo, cMin}}
		stepV := (hi - lo) / float64(count-1)
		for i := 1; i < count-1; i++ {
			ticks = append(ticks, tick{lo + stepV*float64(i), plain})
		}
		ticks = append(ticks, tick{hi, cMax})
	}

	for _, t := range ticks {
		y := proj.Y(t.v)
		b.plan.YTicks = append(b.plan.YTicks, YTick{
			Y:     y,
			Label: b.formatPrice(t.v, false),
			Color: t.color,
		})
		if b.Cfg.ShowHorizontalGrid {
			b.plan.HGrid = append(b.plan.HGrid, y)
		}
	}
}

func (b *builder) refLines() {
	proj := b.plan.Proj
	if b.Cfg.ShowAveragePriceLine && b.Stats.HasAverage {
		b.plan.AvgLine = &RefLine{
			Y:      proj.Y(b.Stats.Average),
			Color:  b.palette.avgLine,
			Dashes: theme.Dashes(b.Theme.AvglineStyle),
		}
	}
	if b.Cfg.CheapPriceThreshold > 0 {
		b.plan.CheapLine = &RefLine{
			Y:      proj.Y(b.Cfg.CheapPriceThreshold),
			Color:  b.palette.cheapLine,
			Dashes: theme.Dashes(b.Theme.CheaplineStyle),
		}
	}
}

// lineColor picks the color for the period starting at Raw[i].
func (b *builder) lineColor(i int) colorful.Color {
	if !b.Cfg.ColorPriceLineByAverage || !b.Stats.HasAverage {
		return b.palette.priceLine
	}
	return gradient.PriceColor(b.Raw[i].Price, b.Stats.Average, b.Cfg.NearAverageThreshold,
		b.palette.below, b.palette.near, b.palette.above)
}

func (b *builder) segAlpha(end time.Time) float64 {
	if b.Window.NowVisible && !end.After(b.Now) {
		return dimAlpha
	}
	return 1
}

func (b *builder) priceLine() {
	proj := b.plan.Proj
	subSegs := b.Cfg.GradientSubSegments
	if subSegs <= 0 {
		subSegs = gradient.DefaultSubSegments
	}

	var outline []Pt
	for i := 0; i+1 < len(b.Plot); i++ {
		start, next := b.Plot[i].Time, b.Plot[i+1].Time
		cs, ce := start, next
		if ce.Before(b.Window.Start) || cs.After(b.Window.End) {
			continue
		}
		if cs.Before(b.Window.Start) {
			cs = b.Window.Start
		}
		if ce.After(b.Window.End) {
			ce = b.Window.End
		}
		if !ce.After(cs) {
			continue
		}

		y := proj.Y(b.Plot[i].Price)
		x1, x2 := proj.X(cs), proj.X(ce)
		color := b.lineColor(min(i, len(b.Raw)-1)) // synthetic point reuses the last raw color

		// Split the horizontal run at "now" so the past half can dim.
		if b.Window.NowVisible && cs.Before(b.Now) && ce.After(b.Now) {
			xn := proj.X(b.Now)
			b.addSegment(Segment{X1: x1, Y1: y, X2: xn, Y2: y, Color: color, Alpha: dimAlpha})
			b.addSegment(Segment{X1: xn, Y1: y, X2: x2, Y2: y, Color: color, Alpha: 1})
		} else {
			b.addSegment(Segment{X1: x1, Y1: y, X2: x2, Y2: y, Color: color, Alpha: b.segAlpha(ce)})
		}
		if len(outline) == 0 {
			outline = append(outline, Pt{x1, proj.Bottom()})
		}
		outline = append(outline, Pt{x1, y}, Pt{x2, y})

		// Vertical riser to the next step, as blended sub-segments.
		if next.Before(b.Window.Start) || next.After(b.Window.End) {
			continue
		}
		yNext := proj.Y(b.Plot[i+1].Price)
		if math.Abs(yNext-y) < 0.01 {
			continue
		}
		to := b.lineColor(min(i+1, len(b.Raw)-1))
		x := proj.X(next)
		alpha := b.segAlpha(next)
		steps := gradient.Blend(color, to, subSegs+1)
		for s := 0; s < subSegs; s++ {
			sy1 := y + (yNext-y)*float64(s)/float64(subSegs)
			sy2 := y + (yNext-y)*float64(s+1)/float64(subSegs)
			b.addSegment(Segment{X1: x, Y1: sy1, X2: x, Y2: sy2, Color: steps[s], Alpha: alpha})
		}
	}
	if len(outline) > 1 {
		outline = append(outline, Pt{outline[len(outline)-1].X, proj.Bottom()})
		b.plan.FillOutline = outline
	}
}

func (b *builder) addSegment(s Segment) {
	b.plan.Segments = append(b.plan.Segments, s)
}

func (b *builder) nowMarker() {
	if !b.Window.NowVisible {
		return
	}
	proj := b.plan.Proj
	x := proj.X(b.Now)
	b.plan.NowX = &x
	if idx := b.currentIdx(); idx >= 0 {
		b.plan.Glow = &Glow{X: x, Y: proj.Y(b.Raw[idx].Price), Color: b.lineColor(idx)}
	}
}

// currentIdx is Idx when the current point is inside the window, else -1.
func (b *builder) currentIdx() int {
	if b.Idx < 0 || b.Idx >= len(b.Raw) {
		return -1
	}
	t := b.Raw[b.Idx].Time
	if t.Before(b.Window.Start) || t.After(b.Window.End) {
		return -1
	}
	return b.Idx
}

func (b *builder) pointLabels() {
	cur := b.currentIdx()
	skipDup := func(i int) bool {
		return b.Cfg.LabelCurrent != config.CurrentLabelOff && cur >= 0 && i == cur
	}

	var mins, maxs []int
	if b.Cfg.LabelMinMaxPerDay {
		mins, maxs = b.Stats.PerDayMin, b.Stats.PerDayMax
	} else {
		if b.Stats.MinIdx >= 0 {
			mins = []int{b.Stats.MinIdx}
		}
		if b.Stats.MaxIdx >= 0 {
			maxs = []int{b.Stats.MaxIdx}
		}
	}

	if b.Cfg.LabelMin {
		for _, i := range mins {
			if !skipDup(i) {
				b.addPointLabel(i, b.labelColor(b.palette.labelMin), true, false)
			}
		}
	}
	if b.Cfg.LabelMax {
		above := !(b.Cfg.LabelMaxBelowPoint || b.headerMode())
		for _, i := range maxs {
			if !skipDup(i) {
				b.addPointLabel(i, b.labelColor(b.palette.labelMax), above, false)
			}
		}
	}
	if b.Cfg.LabelCurrent == config.CurrentLabelInGraph && cur >= 0 {
		b.addPointLabel(cur, b.palette.label, true, true)
	}
}

func (b *builder) labelColor(c colorful.Color) colorful.Color {
	if b.Cfg.LabelUseColors {
		return c
	}
	return b.palette.label
}

func (b *builder) addPointLabel(i int, color colorful.Color, above, isCurrent bool) {
	pt := b.Raw[i]
	proj := b.plan.Proj

	when := pt.Time
	if isCurrent {
		when = b.Now
	}
	var lines []string
	showPrice := isCurrent || b.Cfg.LabelMinMaxShowPrice
	if showPrice {
		lines = []string{b.formatPrice(pt.Price, b.Cfg.LabelShowCurrency), "at " + when.Format("15:04")}
	} else {
		lines = []string{when.Format("15:04")}
	}

	// Measure the block and flip the vertical anchor when it would leave
	// the plot area. This is the only overlap-prevention mechanism.
	var blockW, blockH float64
	for _, line := range lines {
		w, h := b.Metrics.Measure(line, b.Cfg.LabelFontSize, b.Cfg.LabelFontBold)
		blockW = math.Max(blockW, w)
		blockH += h * lineSpacing
	}
	x := proj.X(pt.Time)
	y := proj.Y(pt.Price)
	if above && y-labelGap-blockH < proj.PlotY {
		above = false
		logrus.Tracef("Flipping label at %s below its point (top overflow)", pt.Time.Format("15:04"))
	} else if !above && y+labelGap+blockH > proj.Bottom() {
		above = true
		logrus.Tracef("Flipping label at %s above its point (bottom overflow)", pt.Time.Format("15:04"))
	}
	if x-blockW/2 < proj.PlotX {
		x = proj.PlotX + blockW/2
	} else if x+blockW/2 > proj.PlotX+proj.PlotW {
		x = proj.PlotX + proj.PlotW - blockW/2
	}

	b.plan.Labels = append(b.plan.Labels, TextLabel{
		Lines: lines,
		X:     x,
		Y:     y,
		Above: above,
		Color: color,
		Size:  b.Cfg.LabelFontSize,
		Bold:  b.Cfg.LabelFontBold,
	})
	if !isCurrent {
		b.plan.Markers = append(b.plan.Markers, Marker{
			X: proj.X(pt.Time), Y: y, R: markerRadius, Color: color,
		})
	}
}

// header lays out the composite header string: current price, separator,
// average, separator, percent-to-average. Widths come from a measuring pass
// so the whole composite centers over the plot area.
func (b *builder) header() {
	if !b.headerMode() {
		return
	}
	cur := b.currentIdx()
	if cur < 0 {
		return
	}
	mainSize := b.Cfg.LabelFontSize + 3
	sepSize := b.Cfg.LabelFontSize

	segs := []HeaderSegment{{
		Text: b.formatPrice(b.Raw[cur].Price, b.Cfg.LabelShowCurrency),
		Size: mainSize, Bold: b.Cfg.HeaderFontBold, Color: b.palette.label,
	}}
	// A zero average (possible with negative spot prices) has no meaningful
	// percentage; the header degrades to the price-only form.
	if b.Cfg.LabelCurrent == config.CurrentLabelHeader && b.Stats.HasAverage && b.Stats.Average != 0 {
		pct := int(math.Round((b.Raw[cur].Price - b.Stats.Average) / b.Stats.Average * 100))
		segs = append(segs,
			HeaderSegment{Text: " | ", Size: sepSize, Color: b.palette.axisLabel},
			HeaderSegment{Text: b.formatPrice(b.Stats.Average, b.Cfg.LabelShowCurrency),
				Size: mainSize, Bold: b.Cfg.HeaderFontBold, Color: b.palette.labelAvg},
			HeaderSegment{Text: " | ", Size: sepSize, Color: b.palette.axisLabel},
			HeaderSegment{Text: fmt.Sprintf("%d%%", pct), Size: mainSize,
				Bold: b.Cfg.HeaderFontBold, Color: b.palette.label},
		)
	}

	var total float64
	for i := range segs {
		w, _ := b.Metrics.Measure(segs[i].Text, segs[i].Size, segs[i].Bold)
		segs[i].Width = w
		total += w
	}
	proj := b.plan.Proj
	b.plan.Header = segs
	b.plan.HeaderX = proj.PlotX + (proj.PlotW-total)/2
	b.plan.HeaderY = proj.PlotY / 2
}

func (b *builder) formatPrice(v float64, withCurrency bool) string {
	s := fmt.Sprintf("%.*f", b.Cfg.Decimals(), v*b.Cfg.PriceScale())
	if withCurrency && b.Currency != "" {
		s += " " + b.Currency
	}
	return s
}
