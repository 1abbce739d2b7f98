// Package tibbergraph renders electricity spot prices as a PNG chart.
//
// The engine is a pure function of its inputs (raw price records, a
// configuration snapshot, and "now") with a single side effect: atomically
// writing the output image. Scheduling, throttling and data fetching are
// caller concerns (see internal/refresh and internal/source).
package tibbergraph

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stefanes/tibber-graph/internal/config"
	"github.com/stefanes/tibber-graph/internal/layout"
	"github.com/stefanes/tibber-graph/internal/render"
	"github.com/stefanes/tibber-graph/internal/series"
	"github.com/stefanes/tibber-graph/internal/stats"
	"github.com/stefanes/tibber-graph/internal/theme"
	"github.com/stefanes/tibber-graph/internal/window"
)

// Engine renders price charts for one configuration snapshot.
type Engine struct {
	cfg     config.RenderConfig
	metrics *render.TextMetrics
}

func New(cfg config.RenderConfig) *Engine {
	return &Engine{cfg: cfg, metrics: render.NewTextMetrics()}
}

// Request is one render invocation.
type Request struct {
	Records  []map[string]any
	Currency string // from the data source; may be overridden by config
	Now      time.Time
	Width    int // requested size; ignored when the config forces a fixed size
	Height   int
	OutPath  string
}

// Render runs the full pipeline: normalize, window, statistics, layout,
// raster. Insufficient data and drawing failures are logged, never fatal,
// and leave any previous output file untouched.
func (e *Engine) Render(req Request) error {
	cfg := e.cfg
	now := req.Now.In(cfg.Loc())

	opts := series.DefaultOptions()
	opts.TimeLayout = cfg.TimeLayout
	opts.Factor = cfg.PriceFactor
	opts.Offset = cfg.PriceOffset
	opts.Hourly = cfg.UseHourlyPrices
	opts.Location = cfg.Loc()
	points := series.Normalize(req.Records, opts)
	if len(points) < 2 {
		logrus.Warnf("Insufficient price data (%d points) to render chart", len(points))
		return nil
	}

	w := window.Compute(now, cfg.StartGraphAt, cfg.HoursToShow, points)
	calcStart := window.CalcStart(now, cfg.StartGraphAt, w)
	logrus.Debugf("Window %s → %s (now visible: %v), calculation start %s",
		w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), w.NowVisible,
		calcStart.Format(time.RFC3339))

	res := stats.Compute(points, w, calcStart, now, stats.Params{
		Anchor:         cfg.StartGraphAt,
		PerDayMinMax:   cfg.LabelMinMaxPerDay,
		CheapPoints:    cfg.CheapPricePoints,
		CheapThreshold: cfg.CheapPriceThreshold,
		Location:       cfg.Loc(),
	})

	width, height := cfg.CanvasWidth, cfg.CanvasHeight
	if !cfg.ForceFixedSize {
		if req.Width > 0 {
			width = req.Width
		}
		if req.Height > 0 {
			height = req.Height
		}
	}

	th := theme.Get(cfg.Theme, cfg.CustomTheme)
	plan, err := layout.Build(layout.Input{
		Raw:       points,
		Plot:      series.PlotSeries(points),
		Now:       now,
		Idx:       series.CurrentIndex(points, now),
		Currency:  e.currency(req.Currency),
		Window:    w,
		CalcStart: calcStart,
		Stats:     res,
		Cfg:       cfg,
		Theme:     th,
		Metrics:   e.metrics,
		Width:     width,
		Height:    height,
	})
	if err != nil {
		logrus.Warnf("Failed to lay out chart: %v", err)
		return err
	}

	return render.Render(plan, th, cfg, req.OutPath)
}

// currency resolves the display currency: explicit override, then the cent
// sign in cents mode, then whatever the data source reports.
func (e *Engine) currency(fromSource string) string {
	if e.cfg.CurrencyOverride != "" {
		return e.cfg.CurrencyOverride
	}
	if e.cfg.UseCents {
		return "¢"
	}
	return fromSource
}
