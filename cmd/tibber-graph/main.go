// Command tibber-graph serves a periodically re-rendered spot price chart
// over HTTP, for dashboards and local inspection.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	tibbergraph "github.com/stefanes/tibber-graph"
	"github.com/stefanes/tibber-graph/internal/refresh"
	"github.com/stefanes/tibber-graph/internal/source"
)

const (
	defaultHTTPPort = "8080"
	defaultLogLevel = "INFO"
	defaultOutPath  = "tibber_graph.png"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests processed, labeled by status code and method.",
		},
		[]string{"code", "method"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests.",
		},
		[]string{"handler", "method"},
	)
	renderCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tibber_graph_renders_total",
			Help: "Total number of chart renders.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, renderCounter)
}

type server struct {
	cfg      *serverConfig
	engine   *tibbergraph.Engine
	src      source.Source
	throttle *refresh.Throttle
}

func main() {
	cfgPath := "tibber-graph.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Fatalf("Invalid log level: %s", cfg.LogLevel)
	}

	srv := &server{
		cfg:    cfg,
		engine: tibbergraph.New(cfg.Render),
		src:    cfg.buildSource(),
		throttle: &refresh.Throttle{
			MinInterval: time.Duration(cfg.Refresh.MinRedrawSeconds) * time.Second,
			StaggerMax:  time.Duration(cfg.Refresh.StaggerMaxSeconds) * time.Second,
		},
	}

	if cfg.Refresh.Auto {
		sched, err := refresh.Start(cfg.Refresh.IntervalMinutes, func() {
			if err := srv.render(0, 0, time.Now()); err != nil {
				logrus.Warnf("Auto-refresh render failed: %v", err)
			}
		})
		if err != nil {
			logrus.Fatalf("Failed to start auto-refresh: %v", err)
		}
		defer sched.Stop()
	}

	http.Handle("/monitoring/metrics", promhttp.Handler())
	http.HandleFunc("/monitoring/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})
	http.Handle("/graph", promhttp.InstrumentHandlerDuration(
		httpDuration.MustCurryWith(prometheus.Labels{"handler": "graph"}),
		promhttp.InstrumentHandlerCounter(httpRequests, http.HandlerFunc(srv.handleGraph)),
	))

	logrus.Infof("Starting server on port: %s", cfg.HTTPPort)
	logrus.Fatal(http.ListenAndServe(":"+cfg.HTTPPort, nil))
}

func (s *server) handleGraph(w http.ResponseWriter, r *http.Request) {
	width, err := dimensionParam(r, "width", 200, 4000)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	height, err := dimensionParam(r, "height", 100, 4000)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	now := time.Now()
	if v := r.URL.Query().Get("debugNow"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02T15:04", v, time.Local)
		if err != nil {
			http.Error(w, "invalid 'debugNow' parameter format, expected YYYY-MM-DDTHH:mm", http.StatusBadRequest)
			return
		}
		logrus.Debug("Overriding current time with debugNow parameter")
		now = parsed
	}

	if err := s.render(width, height, now); err != nil {
		logrus.Warnf("Render failed: %v", err)
		// Serve the previous chart if one exists; stale beats broken.
	}
	if _, err := os.Stat(s.cfg.OutPath); err != nil {
		http.Error(w, "no chart rendered yet", http.StatusServiceUnavailable)
		return
	}
	addExpiryHeader(w, s.cfg.Refresh.IntervalMinutes)
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, s.cfg.OutPath)
}

func (s *server) render(width, height int, now time.Time) error {
	return s.throttle.Do(func() error {
		records, err := s.src.FetchRawRecords(context.Background())
		if err != nil {
			renderCounter.WithLabelValues("fetch_error").Inc()
			return err
		}
		err = s.engine.Render(tibbergraph.Request{
			Records:  records,
			Currency: s.src.CurrencySymbol(),
			Now:      now,
			Width:    width,
			Height:   height,
			OutPath:  s.cfg.OutPath,
		})
		if err != nil {
			renderCounter.WithLabelValues("error").Inc()
			return err
		}
		renderCounter.WithLabelValues("ok").Inc()
		return nil
	})
}

func dimensionParam(r *http.Request, name string, lo, hi int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid '%s' query parameter", name)
	}
	logrus.Tracef("Overriding %s to: %d", name, n)
	return n, nil
}

// addExpiryHeader tells caches to hold the image until the next refresh
// boundary.
func addExpiryHeader(w http.ResponseWriter, intervalMinutes int) {
	if intervalMinutes < 1 {
		intervalMinutes = 10
	}
	now := time.Now().UTC()
	next := now.Truncate(time.Duration(intervalMinutes) * time.Minute).
		Add(time.Duration(intervalMinutes) * time.Minute)
	w.Header().Set("Expires", next.Format(http.TimeFormat))
}
