// Package render draws a layout plan onto a gg canvas and atomically
// publishes the PNG. A failed render never touches the previous output.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"

	"github.com/stefanes/tibber-graph/internal/config"
	"github.com/stefanes/tibber-graph/internal/layout"
	"github.com/stefanes/tibber-graph/internal/theme"
)

const (
	cheapSpanAlpha = 0.18
	tickMarkLen    = 4.0
	strokeAlpha    = 0.5
)

// Render draws the plan and writes the PNG to outPath via a temp file in
// the same directory, renaming over the destination only on success.
func Render(plan *layout.Plan, th theme.Theme, cfg config.RenderConfig, outPath string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panicked: %v", r)
		}
		if err != nil {
			logrus.Warnf("Failed to render chart to %s: %v", outPath, err)
		}
	}()

	dc, err := draw(plan, th, cfg)
	if err != nil {
		return err
	}
	return publish(dc, outPath)
}

func draw(plan *layout.Plan, th theme.Theme, cfg config.RenderConfig) (*gg.Context, error) {
	proj := plan.Proj
	dc := gg.NewContext(proj.Width, proj.Height)

	bg, transparent, err := theme.ParseColor(th.BackgroundColor)
	if err != nil {
		return nil, err
	}
	fill, _, err := theme.ParseColor(th.FillColor)
	if err != nil {
		return nil, err
	}
	spine, _, err := theme.ParseColor(th.SpineColor)
	if err != nil {
		return nil, err
	}
	tickCol, _, err := theme.ParseColor(th.TickColor)
	if err != nil {
		return nil, err
	}
	tickLine, _, err := theme.ParseColor(th.TicklineColor)
	if err != nil {
		return nil, err
	}
	grid, _, err := theme.ParseColor(th.GridColor)
	if err != nil {
		return nil, err
	}
	nowLine, _, err := theme.ParseColor(th.NowlineColor)
	if err != nil {
		return nil, err
	}
	cheap, _, err := theme.ParseColor(th.CheapPriceColor)
	if err != nil {
		return nil, err
	}

	if !transparent && !cfg.TransparentBackground {
		logrus.Debug("Drawing background")
		dc.SetRGB(bg.R, bg.G, bg.B)
		dc.Clear()
	}

	// Z-order: spans, grid, reference lines, fill, price line, now marker,
	// glow, point markers, labels, header, axis labels.
	for _, s := range plan.CheapSpans {
		dc.SetRGBA(cheap.R, cheap.G, cheap.B, cheapSpanAlpha)
		dc.DrawRectangle(s.X1, proj.PlotY, s.X2-s.X1, proj.PlotH)
		dc.Fill()
	}

	logrus.Debug("Drawing grid")
	dc.SetLineWidth(1.5)
	dc.SetRGB(tickLine.R, tickLine.G, tickLine.B)
	for _, x := range plan.VGrid {
		dc.DrawLine(x, proj.PlotY, x, proj.Bottom())
		dc.Stroke()
	}
	dc.SetLineWidth(1)
	dc.SetRGBA(grid.R, grid.G, grid.B, th.GridAlpha)
	for _, y := range plan.HGrid {
		dc.DrawLine(proj.PlotX, y, proj.PlotX+proj.PlotW, y)
		dc.Stroke()
	}

	for _, ref := range []*layout.RefLine{plan.AvgLine, plan.CheapLine} {
		if ref == nil {
			continue
		}
		dc.SetRGB(ref.Color.R, ref.Color.G, ref.Color.B)
		dc.SetLineWidth(1.5)
		if len(ref.Dashes) > 0 {
			dc.SetDash(ref.Dashes...)
		}
		dc.DrawLine(proj.PlotX, ref.Y, proj.PlotX+proj.PlotW, ref.Y)
		dc.Stroke()
		dc.SetDash()
	}

	if len(plan.FillOutline) > 2 {
		logrus.Debug("Drawing fill under the price line")
		dc.SetRGBA(fill.R, fill.G, fill.B, th.FillAlpha)
		dc.MoveTo(plan.FillOutline[0].X, plan.FillOutline[0].Y)
		for _, p := range plan.FillOutline[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.ClosePath()
		dc.Fill()
	}

	logrus.Debugf("Drawing price line (%d segments)", len(plan.Segments))
	dc.SetLineWidth(th.PlotLinewidth)
	dc.SetLineCapRound()
	for _, s := range plan.Segments {
		dc.SetRGBA(s.Color.R, s.Color.G, s.Color.B, s.Alpha)
		dc.DrawLine(s.X1, s.Y1, s.X2, s.Y2)
		dc.Stroke()
	}

	if plan.NowX != nil {
		dc.SetRGBA(nowLine.R, nowLine.G, nowLine.B, th.NowlineAlpha)
		dc.SetLineWidth(1.5)
		dc.DrawLine(*plan.NowX, proj.PlotY, *plan.NowX, proj.Bottom())
		dc.Stroke()
	}

	if g := plan.Glow; g != nil {
		for _, ring := range []struct {
			r, a float64
		}{{12, 0.10}, {8, 0.16}, {5, 0.25}} {
			dc.SetRGBA(g.Color.R, g.Color.G, g.Color.B, ring.a)
			dc.DrawCircle(g.X, g.Y, ring.r)
			dc.Fill()
		}
		dc.SetRGBA(g.Color.R, g.Color.G, g.Color.B, 1)
		dc.DrawCircle(g.X, g.Y, 3)
		dc.Fill()
	}

	for _, m := range plan.Markers {
		dc.SetRGB(m.Color.R, m.Color.G, m.Color.B)
		dc.DrawCircle(m.X, m.Y, m.R)
		dc.Fill()
	}

	drawLabels(dc, plan, th)
	drawHeader(dc, plan, th)
	drawAxes(dc, plan, th, cfg, spine, tickCol)
	return dc, nil
}

func drawLabels(dc *gg.Context, plan *layout.Plan, th theme.Theme) {
	const spacing = 1.25
	for _, l := range plan.Labels {
		dc.SetFontFace(Face(l.Size, l.Bold))
		var heights []float64
		var total float64
		for _, line := range l.Lines {
			_, h := dc.MeasureString(line)
			heights = append(heights, h*spacing)
			total += h * spacing
		}
		top := l.Y + 6
		if l.Above {
			top = l.Y - 6 - total
		}
		y := top
		for i, line := range l.Lines {
			y += heights[i]
			drawString(dc, line, l.X, y, 0.5, 0, l.Color, th.LabelStroke)
		}
	}
}

func drawHeader(dc *gg.Context, plan *layout.Plan, th theme.Theme) {
	if len(plan.Header) == 0 {
		return
	}
	logrus.Debug("Drawing header label")
	x := plan.HeaderX
	for _, seg := range plan.Header {
		dc.SetFontFace(Face(seg.Size, seg.Bold))
		drawString(dc, seg.Text, x, plan.HeaderY, 0, 0.5, seg.Color, th.LabelStroke)
		x += seg.Width
	}
}

func drawAxes(dc *gg.Context, plan *layout.Plan, th theme.Theme, cfg config.RenderConfig, spine, tickCol colorful.Color) {
	proj := plan.Proj

	if cfg.ShowYAxis {
		axisX := proj.PlotX
		if cfg.YAxisSide == config.YAxisRight {
			axisX = proj.PlotX + proj.PlotW
		}
		dc.SetRGB(spine.R, spine.G, spine.B)
		dc.SetLineWidth(1)
		dc.DrawLine(axisX, proj.PlotY, axisX, proj.Bottom())
		dc.Stroke()
		dc.DrawLine(proj.PlotX, proj.Bottom(), proj.PlotX+proj.PlotW, proj.Bottom())
		dc.Stroke()

		dc.SetFontFace(Face(cfg.LabelFontSize, false))
		for _, t := range plan.YTicks {
			if cfg.ShowYAxisTicks {
				dc.SetRGB(tickCol.R, tickCol.G, tickCol.B)
				if cfg.YAxisSide == config.YAxisRight {
					dc.DrawLine(axisX, t.Y, axisX+tickMarkLen, t.Y)
				} else {
					dc.DrawLine(axisX-tickMarkLen, t.Y, axisX, t.Y)
				}
				dc.Stroke()
			}
			if cfg.YAxisSide == config.YAxisRight {
				drawString(dc, t.Label, axisX+8, t.Y, 0, 0.5, t.Color, false)
			} else {
				drawString(dc, t.Label, axisX-8, t.Y, 1, 0.5, t.Color, false)
			}
		}
	}

	baseY := proj.Bottom() + cfg.XAxisLabelYOffset*float64(proj.Height)
	rowOffset := cfg.LabelFontSize * layout.SecondRowOffset
	for _, t := range plan.XTicks {
		if cfg.ShowXTicks {
			dc.SetRGB(tickCol.R, tickCol.G, tickCol.B)
			dc.SetLineWidth(1)
			dc.DrawLine(t.X, proj.Bottom(), t.X, proj.Bottom()+tickMarkLen)
			dc.Stroke()
		}
		dc.SetFontFace(Face(cfg.LabelFontSize, t.Bold))
		y := baseY + float64(t.Row)*rowOffset
		drawString(dc, t.Label, t.X, y, 0.5, 1, t.Color, th.LabelStroke)
		if t.Underline {
			w, h := dc.MeasureString(t.Label)
			dc.SetRGB(t.Color.R, t.Color.G, t.Color.B)
			dc.SetLineWidth(1)
			dc.DrawLine(t.X-w/2, y+h+2, t.X+w/2, y+h+2)
			dc.Stroke()
		}
	}
}

// drawString draws anchored text with an optional dark stroke behind it.
func drawString(dc *gg.Context, s string, x, y, ax, ay float64, c colorful.Color, stroke bool) {
	if stroke {
		dc.SetRGBA(0, 0, 0, strokeAlpha)
		for _, d := range [][2]float64{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			dc.DrawStringAnchored(s, x+d[0], y+d[1], ax, ay)
		}
	}
	dc.SetRGB(c.R, c.G, c.B)
	dc.DrawStringAnchored(s, x, y, ax, ay)
}

// publish encodes to a hidden temp file next to outPath and renames it over
// the destination. On any failure the temp file is removed and the previous
// output is left untouched.
func publish(dc *gg.Context, outPath string) error {
	dir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(outPath)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := dc.EncodePNG(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("encode png: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish %s: %w", outPath, err)
	}
	logrus.Debugf("Published chart to %s", outPath)
	return nil
}
