package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/stefanes/tibber-graph/internal/config"
	"github.com/stefanes/tibber-graph/internal/source"
	"github.com/stefanes/tibber-graph/internal/window"
)

// serverConfig is the YAML config for the preview server, with environment
// variable overrides for deployment secrets.
type serverConfig struct {
	HTTPPort string `yaml:"http_port"`
	LogLevel string `yaml:"log_level"`
	OutPath  string `yaml:"out_path"`

	Source struct {
		File     string `yaml:"file"`
		Currency string `yaml:"currency"`
		Influx   struct {
			URL    string `yaml:"url"`
			Token  string `yaml:"token"`
			Org    string `yaml:"org"`
			Bucket string `yaml:"bucket"`
			Area   string `yaml:"area"`
		} `yaml:"influx"`
	} `yaml:"source"`

	Refresh struct {
		Auto              bool `yaml:"auto"`
		IntervalMinutes   int  `yaml:"interval_minutes"`
		MinRedrawSeconds  int  `yaml:"min_redraw_seconds"`
		StaggerMaxSeconds int  `yaml:"stagger_max_seconds"`
	} `yaml:"refresh"`

	RenderRaw struct {
		Theme               string         `yaml:"theme"`
		CustomTheme         map[string]any `yaml:"custom_theme"`
		Transparent         bool           `yaml:"transparent_background"`
		StartGraphAt        string         `yaml:"start_graph_at"`
		HoursToShow         int            `yaml:"hours_to_show"`
		UseHourlyPrices     bool           `yaml:"use_hourly_prices"`
		UseCents            bool           `yaml:"use_cents"`
		CurrencyOverride    string         `yaml:"currency_override"`
		CheapPricePoints    int            `yaml:"cheap_price_points"`
		CheapPriceThreshold float64        `yaml:"cheap_price_threshold"`
		CheapLabelMode      string         `yaml:"cheap_label_mode"`
		YTickCount          int            `yaml:"y_tick_count"`
		YTickUseColors      bool           `yaml:"y_tick_use_colors"`
		YAxisSide           string         `yaml:"y_axis_side"`
		LabelCurrent        string         `yaml:"label_current"`
		LabelMinMaxPerDay   bool           `yaml:"label_minmax_per_day"`
		LabelUseColors      bool           `yaml:"label_use_colors"`
		CanvasWidth         int            `yaml:"canvas_width"`
		CanvasHeight        int            `yaml:"canvas_height"`
		ForceFixedSize      *bool          `yaml:"force_fixed_size"`
	} `yaml:"render"`

	Render config.RenderConfig `yaml:"-"`
}

func loadConfig(path string) (*serverConfig, error) {
	cfg := &serverConfig{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("HTTP_PORT"); v != "" {
		cfg.HTTPPort = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("INFLUXDB_URL"); v != "" {
		cfg.Source.Influx.URL = v
	}
	if v := os.Getenv("INFLUXDB_TOKEN"); v != "" {
		cfg.Source.Influx.Token = v
	}
	if v := os.Getenv("INFLUXDB_ORG"); v != "" {
		cfg.Source.Influx.Org = v
	}
	if v := os.Getenv("INFLUXDB_BUCKET"); v != "" {
		cfg.Source.Influx.Bucket = v
	}

	// Defaults
	if cfg.HTTPPort == "" {
		logrus.Debugf("No http_port specified, defaulting to: %s", defaultHTTPPort)
		cfg.HTTPPort = defaultHTTPPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.OutPath == "" {
		cfg.OutPath = defaultOutPath
	}
	if cfg.Refresh.IntervalMinutes == 0 {
		cfg.Refresh.IntervalMinutes = 10
	}
	if cfg.Refresh.MinRedrawSeconds == 0 {
		cfg.Refresh.MinRedrawSeconds = 60
	}

	cfg.Render = cfg.resolveRender()
	return cfg, nil
}

// resolveRender overlays the YAML render options onto the defaults. Bad
// enum values fall back with a warning; a bad config never stops the
// server.
func (c *serverConfig) resolveRender() config.RenderConfig {
	r := config.Default()
	raw := c.RenderRaw

	if raw.Theme != "" {
		r.Theme = raw.Theme
	}
	r.CustomTheme = raw.CustomTheme
	r.TransparentBackground = raw.Transparent
	if raw.StartGraphAt != "" {
		if a, err := window.ParseAnchor(raw.StartGraphAt); err == nil {
			r.StartGraphAt = a
		} else {
			logrus.Warnf("Ignoring invalid option: %v", err)
		}
	}
	r.HoursToShow = raw.HoursToShow
	r.UseHourlyPrices = raw.UseHourlyPrices
	r.UseCents = raw.UseCents
	r.CurrencyOverride = raw.CurrencyOverride
	r.CheapPricePoints = raw.CheapPricePoints
	r.CheapPriceThreshold = raw.CheapPriceThreshold
	if raw.CheapLabelMode != "" {
		if m, err := config.ParseCheapLabelMode(raw.CheapLabelMode); err == nil {
			r.CheapLabelMode = m
		} else {
			logrus.Warnf("Ignoring invalid option: %v", err)
		}
	}
	r.YTickCount = raw.YTickCount
	r.YTickUseColors = raw.YTickUseColors
	if raw.YAxisSide != "" {
		if s, err := config.ParseYAxisSide(raw.YAxisSide); err == nil {
			r.YAxisSide = s
		} else {
			logrus.Warnf("Ignoring invalid option: %v", err)
		}
	}
	if raw.LabelCurrent != "" {
		if m, err := config.ParseCurrentLabelMode(raw.LabelCurrent); err == nil {
			r.LabelCurrent = m
		} else {
			logrus.Warnf("Ignoring invalid option: %v", err)
		}
	}
	r.LabelMinMaxPerDay = raw.LabelMinMaxPerDay
	r.LabelUseColors = raw.LabelUseColors
	if raw.CanvasWidth > 0 {
		r.CanvasWidth = raw.CanvasWidth
	}
	if raw.CanvasHeight > 0 {
		r.CanvasHeight = raw.CanvasHeight
	}
	if raw.ForceFixedSize != nil {
		r.ForceFixedSize = *raw.ForceFixedSize
	}
	return r
}

func (c *serverConfig) buildSource() source.Source {
	if c.Source.File != "" {
		logrus.Infof("Using price file source: %s", c.Source.File)
		return &source.FileSource{Path: c.Source.File, Currency: c.Source.Currency}
	}
	logrus.Infof("Using InfluxDB source: %s", c.Source.Influx.URL)
	return &source.InfluxSource{
		URL:       c.Source.Influx.URL,
		Token:     c.Source.Influx.Token,
		Org:       c.Source.Influx.Org,
		Bucket:    c.Source.Influx.Bucket,
		PriceArea: c.Source.Influx.Area,
		Currency:  c.Source.Currency,
	}
}
