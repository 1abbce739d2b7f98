// Package config defines the immutable per-render configuration snapshot.
// The engine never consults globals; callers resolve one RenderConfig and
// pass it in.
package config

import (
	"fmt"
	"time"

	"github.com/stefanes/tibber-graph/internal/window"
)

// CurrentLabelMode says where (and whether) the current price is labeled.
type CurrentLabelMode int

const (
	// CurrentLabelOff hides the current price label.
	CurrentLabelOff CurrentLabelMode = iota
	// CurrentLabelHeader centers "price | average | pct" above the plot.
	CurrentLabelHeader
	// CurrentLabelHeaderPriceOnly centers only the current price above the plot.
	CurrentLabelHeaderPriceOnly
	// CurrentLabelInGraph anchors the label to the current price point.
	CurrentLabelInGraph
)

func ParseCurrentLabelMode(s string) (CurrentLabelMode, error) {
	switch s {
	case "off":
		return CurrentLabelOff, nil
	case "header":
		return CurrentLabelHeader, nil
	case "header_price_only":
		return CurrentLabelHeaderPriceOnly, nil
	case "in_graph":
		return CurrentLabelInGraph, nil
	default:
		return CurrentLabelOff, fmt.Errorf("unknown label_current value %q", s)
	}
}

// CheapLabelMode controls the cheap-period X-axis labeling style.
type CheapLabelMode int

const (
	// CheapLabelsOff draws no boundary labels (spans still highlight).
	CheapLabelsOff CheapLabelMode = iota
	// CheapLabelsCompact replaces regular ticks near a boundary tick.
	CheapLabelsCompact
	// CheapLabelsComfy adds boundary ticks on a second row below the
	// regular tick row.
	CheapLabelsComfy
	// CheapLabelsInline colors boundary ticks on the regular row without
	// suppressing anything.
	CheapLabelsInline
)

func ParseCheapLabelMode(s string) (CheapLabelMode, error) {
	switch s {
	case "off":
		return CheapLabelsOff, nil
	case "compact":
		return CheapLabelsCompact, nil
	case "comfy":
		return CheapLabelsComfy, nil
	case "inline":
		return CheapLabelsInline, nil
	default:
		return CheapLabelsOff, fmt.Errorf("unknown cheap_label_mode value %q", s)
	}
}

// YAxisSide is the side the Y axis is drawn on.
type YAxisSide int

const (
	YAxisLeft YAxisSide = iota
	YAxisRight
)

func ParseYAxisSide(s string) (YAxisSide, error) {
	switch s {
	case "left":
		return YAxisLeft, nil
	case "right":
		return YAxisRight, nil
	default:
		return YAxisLeft, fmt.Errorf("unknown y_axis_side value %q", s)
	}
}

// RenderConfig is the full display configuration for one render call.
type RenderConfig struct {
	// General
	Theme                 string
	CustomTheme           map[string]any
	TransparentBackground bool
	CanvasWidth           int
	CanvasHeight          int
	ForceFixedSize        bool
	BottomMargin          float64 // fraction of canvas height
	LeftMargin            float64 // fraction of canvas width

	// X axis
	ShowXTicks        bool
	StartGraphAt      window.Anchor
	XTickStepHours    int
	HoursToShow       int // 0 = all available data
	ShowVerticalGrid  bool
	XAxisLabelYOffset float64 // fraction of canvas height below the plot

	// Y axis
	ShowYAxis            bool
	ShowYAxisTicks       bool
	ShowHorizontalGrid   bool
	ShowAveragePriceLine bool
	CheapPricePoints     int
	CheapPriceThreshold  float64
	CheapLabelMode       CheapLabelMode
	CheapLabelBold       bool
	CheapLabelUnderline  bool
	YAxisSide            YAxisSide
	YTickCount           int // 0 = automatic (min/avg/max)
	YTickUseColors       bool

	// Price display and labels
	UseHourlyPrices         bool
	UseCents                bool
	CurrencyOverride        string
	PriceDecimals           int // -1 = auto: 0 in cents mode, else 2
	LabelCurrent            CurrentLabelMode
	HeaderFontBold          bool
	HeaderPadding           float64 // fraction reserved above the plot
	LabelFontSize           float64
	LabelFontBold           bool
	LabelMin                bool
	LabelMax                bool
	LabelMaxBelowPoint      bool
	LabelMinMaxShowPrice    bool
	LabelMinMaxPerDay       bool
	LabelShowCurrency       bool
	LabelUseColors          bool
	ColorPriceLineByAverage bool
	NearAverageThreshold    float64
	GradientSubSegments     int

	// Normalizer inputs
	TimeLayout  string
	PriceFactor float64
	PriceOffset float64

	Location *time.Location
}

// Default mirrors the shipped defaults.
func Default() RenderConfig {
	return RenderConfig{
		Theme:                 "dark",
		TransparentBackground: false,
		CanvasWidth:           1180,
		CanvasHeight:          820,
		ForceFixedSize:        true,
		BottomMargin:          0.14,
		LeftMargin:            0.12,

		ShowXTicks:        false,
		StartGraphAt:      window.AnchorShowAll,
		XTickStepHours:    3,
		HoursToShow:       0,
		ShowVerticalGrid:  true,
		XAxisLabelYOffset: 0.05,

		ShowYAxis:            true,
		ShowYAxisTicks:       false,
		ShowHorizontalGrid:   false,
		ShowAveragePriceLine: true,
		CheapPricePoints:     0,
		CheapPriceThreshold:  0,
		CheapLabelMode:       CheapLabelsOff,
		YAxisSide:            YAxisLeft,
		YTickCount:           0,
		YTickUseColors:       false,

		UseHourlyPrices:         false,
		UseCents:                false,
		PriceDecimals:           -1,
		LabelCurrent:            CurrentLabelHeader,
		HeaderFontBold:          true,
		HeaderPadding:           0.09,
		LabelFontSize:           11,
		LabelMin:                true,
		LabelMax:                true,
		LabelMinMaxShowPrice:    true,
		LabelShowCurrency:       true,
		ColorPriceLineByAverage: true,
		NearAverageThreshold:    0.25,
		GradientSubSegments:     8,
	}
}

// Decimals resolves the auto price-decimals mode.
func (c RenderConfig) Decimals() int {
	if c.PriceDecimals >= 0 {
		return c.PriceDecimals
	}
	if c.UseCents {
		return 0
	}
	return 2
}

// PriceScale is the display multiplier (100 in cents mode).
func (c RenderConfig) PriceScale() float64 {
	if c.UseCents {
		return 100
	}
	return 1
}

// TickStep returns the X tick step, defaulting to 3 hours.
func (c RenderConfig) TickStep() time.Duration {
	if c.XTickStepHours <= 0 {
		return 3 * time.Hour
	}
	return time.Duration(c.XTickStepHours) * time.Hour
}

// Loc returns the configured location, defaulting to the system zone.
func (c RenderConfig) Loc() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return time.Local
}
