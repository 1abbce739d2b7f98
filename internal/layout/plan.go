// Package layout turns series, statistics and configuration into a render
// plan: pure pixel-space geometry with no drawing. The raster renderer
// consumes the plan verbatim.
package layout

import (
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// Metrics measures rendered text so the layout can avoid overlap. The
// raster renderer provides a real implementation; tests may fake it.
type Metrics interface {
	Measure(text string, size float64, bold bool) (w, h float64)
}

// Projection maps data coordinates onto the plot rectangle.
type Projection struct {
	Width, Height int
	PlotX, PlotY  float64
	PlotW, PlotH  float64
	Start, End    time.Time
	YMin, YMax    float64
}

func (p Projection) X(t time.Time) float64 {
	span := p.End.Sub(p.Start).Seconds()
	if span <= 0 {
		return p.PlotX
	}
	return p.PlotX + t.Sub(p.Start).Seconds()/span*p.PlotW
}

func (p Projection) Y(v float64) float64 {
	span := p.YMax - p.YMin
	if span <= 0 {
		return p.PlotY + p.PlotH/2
	}
	return p.PlotY + (p.YMax-v)/span*p.PlotH
}

// Bottom is the pixel Y of the plot floor.
func (p Projection) Bottom() float64 { return p.PlotY + p.PlotH }

// Segment is one piece of the price line.
type Segment struct {
	X1, Y1, X2, Y2 float64
	Color          colorful.Color
	Alpha          float64
}

// Span is a highlighted horizontal range of the plot.
type Span struct {
	X1, X2 float64
}

// Pt is a pixel coordinate.
type Pt struct {
	X, Y float64
}

// TextLabel is an in-graph label anchored to a data point.
type TextLabel struct {
	Lines []string
	X, Y  float64 // anchor point in pixels (the data point)
	Above bool    // stack lines above the point; below otherwise
	Color colorful.Color
	Size  float64
	Bold  bool
}

// HeaderSegment is one piece of the composite header string.
type HeaderSegment struct {
	Text  string
	Size  float64
	Bold  bool
	Color colorful.Color
	Width float64
}

// XTick is an X-axis tick label. Row 1 is the secondary cheap-boundary row
// used by the comfy labeling mode.
type XTick struct {
	X         float64
	Label     string
	Color     colorful.Color
	Row       int
	Bold      bool
	Underline bool
	Boundary  bool
}

// YTick is a Y-axis tick label.
type YTick struct {
	Y     float64
	Label string
	Color colorful.Color
}

// Marker is a filled dot at a labeled data point.
type Marker struct {
	X, Y, R float64
	Color   colorful.Color
}

// Glow is the emphasis marker at the current price point, drawn as three
// concentric low-alpha circles.
type Glow struct {
	X, Y  float64
	Color colorful.Color
}

// RefLine is a horizontal reference line (average or cheap threshold).
type RefLine struct {
	Y      float64
	Color  colorful.Color
	Dashes []float64
}

// Plan is the complete drawable description of one chart.
type Plan struct {
	Proj Projection

	CheapSpans []Span
	VGrid      []float64
	HGrid      []float64
	AvgLine    *RefLine
	CheapLine  *RefLine

	FillOutline []Pt
	Segments    []Segment

	NowX    *float64
	Glow    *Glow
	Markers []Marker
	Labels  []TextLabel

	Header  []HeaderSegment
	HeaderX float64
	HeaderY float64

	XTicks []XTick
	YTicks []YTick
}
