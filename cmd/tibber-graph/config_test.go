package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanes/tibber-graph/internal/config"
	"github.com/stefanes/tibber-graph/internal/source"
	"github.com/stefanes/tibber-graph/internal/window"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tibber-graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err, "a missing config file falls back to defaults")

	assert.Equal(t, defaultHTTPPort, cfg.HTTPPort)
	assert.Equal(t, defaultLogLevel, cfg.LogLevel)
	assert.Equal(t, defaultOutPath, cfg.OutPath)
	assert.Equal(t, 10, cfg.Refresh.IntervalMinutes)
	assert.Equal(t, 60, cfg.Refresh.MinRedrawSeconds)
	assert.Equal(t, config.Default().CanvasWidth, cfg.Render.CanvasWidth)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
http_port: "9090"
log_level: DEBUG
out_path: /tmp/chart.png
refresh:
  auto: true
  interval_minutes: 5
render:
  theme: light
  start_graph_at: midnight
  cheap_price_points: 4
  cheap_label_mode: comfy
  label_current: in_graph
  y_axis_side: right
  canvas_width: 800
  canvas_height: 600
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.True(t, cfg.Refresh.Auto)
	assert.Equal(t, 5, cfg.Refresh.IntervalMinutes)

	r := cfg.Render
	assert.Equal(t, "light", r.Theme)
	assert.Equal(t, window.AnchorMidnight, r.StartGraphAt)
	assert.Equal(t, 4, r.CheapPricePoints)
	assert.Equal(t, config.CheapLabelsComfy, r.CheapLabelMode)
	assert.Equal(t, config.CurrentLabelInGraph, r.LabelCurrent)
	assert.Equal(t, config.YAxisRight, r.YAxisSide)
	assert.Equal(t, 800, r.CanvasWidth)
	assert.Equal(t, 600, r.CanvasHeight)
}

func TestLoadConfigInvalidEnumsFallBack(t *testing.T) {
	path := writeConfig(t, `
render:
  start_graph_at: nonsense
  cheap_label_mode: wat
`)
	cfg, err := loadConfig(path)
	require.NoError(t, err, "bad option values warn instead of failing startup")

	def := config.Default()
	assert.Equal(t, def.StartGraphAt, cfg.Render.StartGraphAt)
	assert.Equal(t, def.CheapLabelMode, cfg.Render.CheapLabelMode)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
http_port: "9090"
source:
  influx:
    url: http://file-configured:8086
`)
	t.Setenv("HTTP_PORT", "7070")
	t.Setenv("INFLUXDB_URL", "http://env-configured:8086")
	t.Setenv("INFLUXDB_TOKEN", "secret")

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.HTTPPort)
	assert.Equal(t, "http://env-configured:8086", cfg.Source.Influx.URL)
	assert.Equal(t, "secret", cfg.Source.Influx.Token)
}

func TestLoadConfigBadYAML(t *testing.T) {
	_, err := loadConfig(writeConfig(t, "{{nope"))
	assert.Error(t, err)
}

func TestBuildSource(t *testing.T) {
	cfg := &serverConfig{}
	cfg.Source.File = "prices.json"
	cfg.Source.Currency = "kr"
	src := cfg.buildSource()
	fs, ok := src.(*source.FileSource)
	require.True(t, ok)
	assert.Equal(t, "prices.json", fs.Path)
	assert.Equal(t, "kr", fs.CurrencySymbol())

	cfg = &serverConfig{}
	cfg.Source.Influx.URL = "http://localhost:8086"
	cfg.Source.Influx.Bucket = "energy"
	cfg.Source.Influx.Area = "SE3"
	src = cfg.buildSource()
	is, ok := src.(*source.InfluxSource)
	require.True(t, ok)
	assert.Equal(t, "energy", is.Bucket)
	assert.Equal(t, "SE3", is.PriceArea)
}
