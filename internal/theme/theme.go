// Package theme holds the chart color schemes. A theme is a flat set of 26
// required keys; custom themes overlay a built-in base so omitted keys
// inherit their base value.
package theme

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Theme is a resolved color scheme. Colors are hex strings ("#rrggbb" or
// "#rgb") or "none" for fully transparent; styles are line-style names
// (solid, dashed, dotted, dashdot).
type Theme struct {
	AvglineColor           string  `yaml:"avgline_color"`
	AvglineStyle           string  `yaml:"avgline_style"`
	AxisLabelColor         string  `yaml:"axis_label_color"`
	BackgroundColor        string  `yaml:"background_color"`
	CheapPriceColor        string  `yaml:"cheap_price_color"`
	CheaplineColor         string  `yaml:"cheapline_color"`
	CheaplineStyle         string  `yaml:"cheapline_style"`
	FillAlpha              float64 `yaml:"fill_alpha"`
	FillColor              string  `yaml:"fill_color"`
	GridAlpha              float64 `yaml:"grid_alpha"`
	GridColor              string  `yaml:"grid_color"`
	LabelColor             string  `yaml:"label_color"`
	LabelColorAvg          string  `yaml:"label_color_avg"`
	LabelColorMax          string  `yaml:"label_color_max"`
	LabelColorMin          string  `yaml:"label_color_min"`
	LabelStroke            bool    `yaml:"label_stroke"`
	NowlineAlpha           float64 `yaml:"nowline_alpha"`
	NowlineColor           string  `yaml:"nowline_color"`
	PlotLinewidth          float64 `yaml:"plot_linewidth"`
	PriceLineColor         string  `yaml:"price_line_color"`
	PriceLineColorAboveAvg string  `yaml:"price_line_color_above_avg"`
	PriceLineColorBelowAvg string  `yaml:"price_line_color_below_avg"`
	PriceLineColorNearAvg  string  `yaml:"price_line_color_near_avg"`
	SpineColor             string  `yaml:"spine_color"`
	TickColor              string  `yaml:"tick_color"`
	TicklineColor          string  `yaml:"tickline_color"`
}

var builtins = map[string]Theme{
	"dark": {
		AvglineColor:           "#ffb347",
		AvglineStyle:           "dotted",
		AxisLabelColor:         "#dcdcdc",
		BackgroundColor:        "#1c1c1e",
		CheapPriceColor:        "#73bf69",
		CheaplineColor:         "#73bf69",
		CheaplineStyle:         "dashed",
		FillAlpha:              0.18,
		FillColor:              "#6973bf",
		GridAlpha:              0.25,
		GridColor:              "#707070",
		LabelColor:             "#f2f2f2",
		LabelColorAvg:          "#eab839",
		LabelColorMax:          "#f2495c",
		LabelColorMin:          "#73bf69",
		LabelStroke:            true,
		NowlineAlpha:           0.6,
		NowlineColor:           "#dcdcdc",
		PlotLinewidth:          3,
		PriceLineColor:         "#dcdcdc",
		PriceLineColorAboveAvg: "#f2495c",
		PriceLineColorBelowAvg: "#6973bf",
		PriceLineColorNearAvg:  "#eab839",
		SpineColor:             "#707070",
		TickColor:              "#dcdcdc",
		TicklineColor:          "#3a3a3c",
	},
	"light": {
		AvglineColor:           "#b8860b",
		AvglineStyle:           "dotted",
		AxisLabelColor:         "#333333",
		BackgroundColor:        "#fafafa",
		CheapPriceColor:        "#2e8b57",
		CheaplineColor:         "#2e8b57",
		CheaplineStyle:         "dashed",
		FillAlpha:              0.15,
		FillColor:              "#4a54a8",
		GridAlpha:              0.35,
		GridColor:              "#b0b0b0",
		LabelColor:             "#1c1c1e",
		LabelColorAvg:          "#b8860b",
		LabelColorMax:          "#c4162a",
		LabelColorMin:          "#2e8b57",
		LabelStroke:            false,
		NowlineAlpha:           0.6,
		NowlineColor:           "#333333",
		PlotLinewidth:          3,
		PriceLineColor:         "#333333",
		PriceLineColorAboveAvg: "#c4162a",
		PriceLineColorBelowAvg: "#4a54a8",
		PriceLineColorNearAvg:  "#b8860b",
		SpineColor:             "#b0b0b0",
		TickColor:              "#333333",
		TicklineColor:          "#d9d9d9",
	},
}

// Names lists the built-in theme names.
func Names() []string {
	return []string{"dark", "light"}
}

// Get resolves a theme by name and overlays optional custom overrides on
// top of it. An unknown name falls back to "dark" with a warning so a bad
// configuration value never breaks rendering.
func Get(name string, overrides map[string]any) Theme {
	base, ok := builtins[name]
	if !ok {
		logrus.Warnf("Theme %q not found, falling back to 'dark'", name)
		base = builtins["dark"]
	}
	if len(overrides) == 0 {
		return base
	}
	if err := Validate(overrides); err != nil {
		logrus.Warnf("Ignoring invalid custom theme: %v", err)
		return base
	}
	merged, err := overlay(base, overrides)
	if err != nil {
		logrus.Warnf("Ignoring custom theme overlay: %v", err)
		return base
	}
	logrus.Debugf("Applied %d custom theme override(s) on top of %q", len(overrides), name)
	return merged
}

func overlay(base Theme, overrides map[string]any) (Theme, error) {
	raw, err := yaml.Marshal(base)
	if err != nil {
		return base, err
	}
	var asMap map[string]any
	if err := yaml.Unmarshal(raw, &asMap); err != nil {
		return base, err
	}
	for k, v := range overrides {
		asMap[k] = v
	}
	merged, err := yaml.Marshal(asMap)
	if err != nil {
		return base, err
	}
	var out Theme
	if err := yaml.Unmarshal(merged, &out); err != nil {
		return base, err
	}
	return out, nil
}

var knownKeys = func() map[string]bool {
	raw, _ := yaml.Marshal(builtins["dark"])
	var m map[string]any
	_ = yaml.Unmarshal(raw, &m)
	keys := make(map[string]bool, len(m))
	for k := range m {
		keys[k] = true
	}
	return keys
}()

var lineStyles = map[string][]float64{
	"solid":   nil,
	"dashed":  {6, 4},
	"dotted":  {2, 4},
	"dashdot": {6, 3, 2, 3},
}

// Validate checks custom theme overrides: only known keys, valid colors,
// alpha ranges and line styles.
func Validate(overrides map[string]any) error {
	for key, val := range overrides {
		if !knownKeys[key] {
			return fmt.Errorf("unknown theme property %q", key)
		}
		switch {
		case strings.HasSuffix(key, "_color"):
			s, ok := val.(string)
			if !ok {
				return fmt.Errorf("invalid color value for %q: %v", key, val)
			}
			if _, _, err := ParseColor(s); err != nil {
				return fmt.Errorf("invalid color value for %q: %w", key, err)
			}
		case strings.HasSuffix(key, "_alpha"):
			f, ok := toFloat(val)
			if !ok || f < 0 || f > 1 {
				return fmt.Errorf("invalid alpha value for %q: %v (must be 0.0-1.0)", key, val)
			}
		case strings.HasSuffix(key, "_style"):
			s, ok := val.(string)
			if !ok {
				return fmt.Errorf("invalid line style for %q: %v", key, val)
			}
			if _, found := lineStyles[s]; !found {
				return fmt.Errorf("invalid line style for %q: %v", key, val)
			}
		case key == "label_stroke":
			if _, ok := val.(bool); !ok {
				return fmt.Errorf("invalid boolean value for %q: %v", key, val)
			}
		case key == "plot_linewidth":
			f, ok := toFloat(val)
			if !ok || f < 0 {
				return fmt.Errorf("invalid numeric value for %q: %v", key, val)
			}
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch f := v.(type) {
	case float64:
		return f, true
	case int:
		return float64(f), true
	}
	return 0, false
}

// ParseColor parses "#rrggbb", "#rgb" or "none". The bool reports full
// transparency.
func ParseColor(s string) (colorful.Color, bool, error) {
	if strings.EqualFold(s, "none") {
		return colorful.Color{}, true, nil
	}
	if len(s) == 4 && s[0] == '#' {
		s = fmt.Sprintf("#%c%c%c%c%c%c", s[1], s[1], s[2], s[2], s[3], s[3])
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return colorful.Color{}, false, fmt.Errorf("parse color %q: %w", s, err)
	}
	return c, false, nil
}

// Dashes maps a line-style name onto a gg dash pattern; nil means solid.
func Dashes(style string) []float64 {
	if d, ok := lineStyles[style]; ok {
		return d
	}
	logrus.Warnf("Unknown line style %q, drawing solid", style)
	return nil
}
