// Package metrics exports gauge state and sentiment analysis statistics to
// Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rewired-gh/pulsegauge/internal/models"
)

const namespace = "pulsegauge"

// Exporter holds the collectors. Create one per registry.
type Exporter struct {
	gaugeValue    *prometheus.GaugeVec
	trend         *prometheus.GaugeVec
	updates       *prometheus.CounterVec
	historyPoints *prometheus.GaugeVec

	analysisConfidence prometheus.Histogram
	sentiment          *prometheus.GaugeVec
	articles           *prometheus.CounterVec
	biasFlags          *prometheus.CounterVec
	shifts             *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates an Exporter and registers its collectors with reg. A nil reg
// uses a fresh private registry.
func New(reg *prometheus.Registry) *Exporter {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	e := &Exporter{
		gaugeValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gauge_value",
				Help:      "Gauge values by category and field (current, smoothed, baseline_7d, baseline_30d, confidence, trend_strength)",
			},
			[]string{"category", "field"},
		),
		trend: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gauge_trend",
				Help:      "Trend direction by category: 1 up, 0 stable, -1 down",
			},
			[]string{"category"},
		),
		updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gauge_updates_total",
				Help:      "Total committed gauge updates",
			},
			[]string{"category"},
		),
		historyPoints: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "gauge_history_points",
				Help:      "Number of retained history points",
			},
			[]string{"category"},
		),
		analysisConfidence: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_confidence",
				Help:      "Confidence of sentiment analysis runs",
				Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
			},
		),
		sentiment: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "analysis_sentiment",
				Help:      "Sentiment of the latest analysis run (raw or overall)",
			},
			[]string{"kind"},
		),
		articles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analysis_articles_total",
				Help:      "Articles submitted for analysis by outcome",
			},
			[]string{"outcome"},
		),
		biasFlags: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analysis_bias_flags_total",
				Help:      "Bias flags raised by analysis runs",
			},
			[]string{"flag"},
		),
		shifts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "shifts_total",
				Help:      "Gauge shifts detected by category and direction",
			},
			[]string{"category", "direction"},
		),
		gatherer: reg,
	}

	reg.MustRegister(
		e.gaugeValue,
		e.trend,
		e.updates,
		e.historyPoints,
		e.analysisConfidence,
		e.sentiment,
		e.articles,
		e.biasFlags,
		e.shifts,
	)
	return e
}

// ObserveGauge records a committed gauge state.
func (e *Exporter) ObserveGauge(g models.GaugeData) {
	e.SeedGauge(g)
	e.updates.WithLabelValues(string(g.Category)).Inc()
}

// SeedGauge sets the gauge series from g without counting an update. Used for
// state that existed before the exporter started, such as restored gauges.
func (e *Exporter) SeedGauge(g models.GaugeData) {
	c := string(g.Category)
	e.gaugeValue.WithLabelValues(c, "current").Set(g.CurrentValue)
	e.gaugeValue.WithLabelValues(c, "smoothed").Set(g.SmoothedValue)
	e.gaugeValue.WithLabelValues(c, "baseline_7d").Set(g.Baseline7d)
	e.gaugeValue.WithLabelValues(c, "baseline_30d").Set(g.Baseline30d)
	e.gaugeValue.WithLabelValues(c, "confidence").Set(g.Confidence)
	e.gaugeValue.WithLabelValues(c, "trend_strength").Set(g.TrendStrength)
	e.trend.WithLabelValues(c).Set(trendValue(g.TrendDirection))
	e.historyPoints.WithLabelValues(c).Set(float64(len(g.History)))
}

// ObserveAnalysis records an analysis run. submitted is the batch size before
// unanalysable items were dropped.
func (e *Exporter) ObserveAnalysis(result models.SentimentResult, submitted int) {
	e.analysisConfidence.Observe(result.Confidence)
	e.sentiment.WithLabelValues("raw").Set(result.RawSentiment)
	e.sentiment.WithLabelValues("overall").Set(result.OverallSentiment)
	e.articles.WithLabelValues("analyzed").Add(float64(result.ArticleCount))
	if dropped := submitted - result.ArticleCount; dropped > 0 {
		e.articles.WithLabelValues("dropped").Add(float64(dropped))
	}
	for _, f := range result.BiasReport.Flags {
		e.biasFlags.WithLabelValues(string(f)).Inc()
	}
}

// ObserveShift counts a detected shift.
func (e *Exporter) ObserveShift(s models.Shift) {
	e.shifts.WithLabelValues(string(s.Category), string(s.Direction)).Inc()
}

// Run records every gauge state received until ctx is done or updates closes.
func (e *Exporter) Run(ctx context.Context, updates <-chan models.GaugeData) {
	for {
		select {
		case <-ctx.Done():
			return
		case g, ok := <-updates:
			if !ok {
				return
			}
			e.ObserveGauge(g)
		}
	}
}

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{})
}

func trendValue(d models.TrendDirection) float64 {
	switch d {
	case models.TrendUp:
		return 1
	case models.TrendDown:
		return -1
	default:
		return 0
	}
}
