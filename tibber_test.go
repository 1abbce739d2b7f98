package tibbergraph

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanes/tibber-graph/internal/config"
	"github.com/stefanes/tibber-graph/internal/window"
)

func dayRecords(start time.Time, n int) []map[string]any {
	records := make([]map[string]any, n)
	for i := range records {
		records[i] = map[string]any{
			"start_time": start.Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
			"price":      1.0 + float64(i)*0.05,
		}
	}
	return records
}

func testConfig() config.RenderConfig {
	cfg := config.Default()
	cfg.CanvasWidth = 400
	cfg.CanvasHeight = 300
	cfg.Location = time.UTC
	return cfg
}

func TestRenderFullPipeline(t *testing.T) {
	out := filepath.Join(t.TempDir(), "chart.png")
	engine := New(testConfig())

	err := engine.Render(Request{
		Records:  dayRecords(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 24),
		Currency: "kr",
		Now:      time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC),
		OutPath:  out,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestRenderIdempotent(t *testing.T) {
	dir := t.TempDir()
	engine := New(testConfig())
	req := Request{
		Records:  dayRecords(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 24),
		Currency: "kr",
		Now:      time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC),
	}

	var outputs [][]byte
	for i := 0; i < 2; i++ {
		req.OutPath = filepath.Join(dir, fmt.Sprintf("chart%d.png", i))
		require.NoError(t, engine.Render(req))
		data, err := os.ReadFile(req.OutPath)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}
	assert.Equal(t, outputs[0], outputs[1], "identical requests produce byte-identical images")
}

func TestRenderInsufficientDataIsNoOp(t *testing.T) {
	out := filepath.Join(t.TempDir(), "chart.png")
	engine := New(testConfig())
	req := Request{
		Records: dayRecords(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 24),
		Now:     time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		OutPath: out,
	}
	require.NoError(t, engine.Render(req))
	prev, err := os.ReadFile(out)
	require.NoError(t, err)

	req.Records = dayRecords(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 1)
	assert.NoError(t, engine.Render(req), "too little data is not an error")

	after, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, prev, after, "the previous chart stays in place")
}

func TestRenderBadRecordsDropped(t *testing.T) {
	out := filepath.Join(t.TempDir(), "chart.png")
	engine := New(testConfig())

	records := dayRecords(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 24)
	records = append(records, map[string]any{"start_time": "garbage", "price": 1.0})
	records = append(records, map[string]any{"price": 1.0})

	err := engine.Render(Request{
		Records: records,
		Now:     time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		OutPath: out,
	})
	require.NoError(t, err)
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestRenderRequestedSize(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.ForceFixedSize = false
	engine := New(cfg)
	req := Request{
		Records: dayRecords(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 24),
		Now:     time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		Width:   640,
		Height:  480,
		OutPath: filepath.Join(dir, "sized.png"),
	}
	require.NoError(t, engine.Render(req))

	fixed := New(testConfig()) // ForceFixedSize on: requested size is ignored
	req.OutPath = filepath.Join(dir, "fixed.png")
	require.NoError(t, fixed.Render(req))

	sized, err := os.ReadFile(filepath.Join(dir, "sized.png"))
	require.NoError(t, err)
	fixedData, err := os.ReadFile(filepath.Join(dir, "fixed.png"))
	require.NoError(t, err)
	assert.NotEqual(t, sized, fixedData)
}

func TestRenderAnchorModes(t *testing.T) {
	dir := t.TempDir()
	for _, anchor := range []window.Anchor{window.AnchorMidnight, window.AnchorCurrentHour, window.AnchorShowAll} {
		cfg := testConfig()
		cfg.StartGraphAt = anchor
		engine := New(cfg)

		out := filepath.Join(dir, anchor.String()+".png")
		err := engine.Render(Request{
			Records: dayRecords(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), 36),
			Now:     time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC),
			OutPath: out,
		})
		require.NoError(t, err, "anchor %s", anchor)
		_, err = os.Stat(out)
		assert.NoError(t, err)
	}
}

func TestCurrencyResolution(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "kr", New(cfg).currency("kr"))

	cfg.UseCents = true
	assert.Equal(t, "¢", New(cfg).currency("kr"), "cents mode shows the cent sign")

	cfg.CurrencyOverride = "EUR"
	assert.Equal(t, "EUR", New(cfg).currency("kr"), "an explicit override always wins")
}
