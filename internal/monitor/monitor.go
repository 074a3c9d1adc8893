// Package monitor is the entry point callers use to feed and read gauges.
//
// It wraps the gauge store and the sentiment analyzer behind the four public
// operations (UpdateValue, GetGaugeData, GetAllGauges,
// AnalyzeArticlesSentiment) and watches committed gauge states for shifts:
//
//	shift = trend != stable
//	      ∧ |current − baseline_7d| / range_width ≥ deviation_threshold
//	      ∧ trend_strength ≥ min_trend_strength
//	      ∧ confidence ≥ min_confidence
//
// A shift already reported for the same category and direction is suppressed
// for the cooldown period unless its deviation escalates past twice the
// threshold. Surviving shifts are handed to every Notifier.
package monitor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/pulsegauge/internal/gauge"
	"github.com/rewired-gh/pulsegauge/internal/logger"
	"github.com/rewired-gh/pulsegauge/internal/models"
	"github.com/rewired-gh/pulsegauge/internal/sentiment"
)

// SentimentSource tags gauge updates produced by article analysis.
const SentimentSource = "sentiment_analysis"

// Notifier delivers detected shifts somewhere outside the process.
type Notifier interface {
	Notify(ctx context.Context, shifts []models.Shift) error
}

// AnalysisObserver is told about every analysis run and how many items were
// submitted for it.
type AnalysisObserver func(result models.SentimentResult, submitted int)

// ShiftObserver is told about every shift that survives the cooldown, whether
// or not it is delivered.
type ShiftObserver func(shift models.Shift)

// Config holds the shift detection thresholds.
type Config struct {
	DeviationThreshold float64
	MinConfidence      float64
	MinTrendStrength   float64
	Cooldown           time.Duration
}

// notifiedRecord tracks a previously sent shift for cooldown deduplication.
type notifiedRecord struct {
	Deviation float64
	SentAt    time.Time
}

// Monitor exposes the gauge operations and detects shifts.
type Monitor struct {
	store    *gauge.Store
	analyzer *sentiment.Analyzer
	cfg      Config

	notifiers []Notifier
	observers []AnalysisObserver
	onShift   []ShiftObserver
	now       func() time.Time

	mu       sync.Mutex
	notified map[string]notifiedRecord // key = category/direction
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithNotifiers adds shift notifiers.
func WithNotifiers(n ...Notifier) Option {
	return func(m *Monitor) {
		m.notifiers = append(m.notifiers, n...)
	}
}

// WithAnalysisObserver registers a hook run after every analysis.
func WithAnalysisObserver(o AnalysisObserver) Option {
	return func(m *Monitor) {
		m.observers = append(m.observers, o)
	}
}

// WithShiftObserver registers a hook run for every reported shift.
func WithShiftObserver(o ShiftObserver) Option {
	return func(m *Monitor) {
		m.onShift = append(m.onShift, o)
	}
}

// WithClock replaces time.Now for cooldown bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// New creates a Monitor.
func New(store *gauge.Store, analyzer *sentiment.Analyzer, cfg Config, opts ...Option) *Monitor {
	m := &Monitor{
		store:    store,
		analyzer: analyzer,
		cfg:      cfg,
		now:      time.Now,
		notified: make(map[string]notifiedRecord),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// UpdateValue feeds a scalar observation into a category's gauge. Fire and
// forget: bad input is logged and dropped or clamped, never returned.
func (m *Monitor) UpdateValue(category models.Category, value float64, meta models.Metadata) {
	m.store.UpdateValue(category, value, meta)
}

// GetGaugeData returns a category's current gauge, or the default gauge when
// the category is unknown.
func (m *Monitor) GetGaugeData(category models.Category) models.GaugeData {
	return m.store.GetGaugeData(category)
}

// GetAllGauges snapshots every registered gauge.
func (m *Monitor) GetAllGauges() map[models.Category]models.GaugeData {
	return m.store.GetAllGauges()
}

// AnalyzeArticlesSentiment scores a batch of articles and feeds the result into
// the sentiment gauge, using the analysis confidence as update metadata. A
// batch with nothing analysable leaves the gauge untouched.
func (m *Monitor) AnalyzeArticlesSentiment(items []models.RawItem) models.SentimentResult {
	result := m.analyzer.Analyze(items)

	if result.ArticleCount > 0 {
		m.store.UpdateValue(models.CategorySentiment, result.OverallSentiment, models.Metadata{
			Confidence: result.Confidence,
			Source:     SentimentSource,
		})
	} else {
		logger.Debug("Sentiment batch of %d items had nothing to analyse, gauge not updated", len(items))
	}

	for _, o := range m.observers {
		o(result, len(items))
	}
	return result
}

// DetectShift reports whether g qualifies as a shift.
func (m *Monitor) DetectShift(g models.GaugeData) (models.Shift, bool) {
	if g.TrendDirection == models.TrendStable {
		return models.Shift{}, false
	}
	if g.TrendStrength < m.cfg.MinTrendStrength || g.Confidence < m.cfg.MinConfidence {
		return models.Shift{}, false
	}

	deviation := Deviation(g)
	if deviation < m.cfg.DeviationThreshold {
		return models.Shift{}, false
	}

	return models.Shift{
		ID:            uuid.New().String(),
		Category:      g.Category,
		Direction:     g.TrendDirection,
		Value:         g.CurrentValue,
		Baseline7d:    g.Baseline7d,
		Deviation:     deviation,
		TrendStrength: g.TrendStrength,
		Confidence:    g.Confidence,
		DetectedAt:    g.LastUpdated,
	}, true
}

// Deviation is |current − baseline_7d| as a fraction of the range width,
// capped at 1.
func Deviation(g models.GaugeData) float64 {
	width := g.ValueRange.Max - g.ValueRange.Min
	if width <= 0 {
		return 0
	}
	return math.Min(math.Abs(g.CurrentValue-g.Baseline7d)/width, 1)
}

func shiftKey(s models.Shift) string {
	return fmt.Sprintf("%s/%s", s.Category, s.Direction)
}

// FilterRecentlySent drops shifts reported for the same category and direction
// within the cooldown, unless the deviation has just escalated past twice the
// threshold. Returns a non-nil slice.
func (m *Monitor) FilterRecentlySent(shifts []models.Shift) []models.Shift {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	escalation := 2 * m.cfg.DeviationThreshold
	result := []models.Shift{}

	for _, s := range shifts {
		rec, exists := m.notified[shiftKey(s)]
		if exists && now.Sub(rec.SentAt) < m.cfg.Cooldown {
			escalated := s.Deviation >= escalation && rec.Deviation < escalation
			if !escalated {
				continue
			}
		}
		result = append(result, s)
	}
	return result
}

// RecordNotified starts the cooldown for the given shifts.
func (m *Monitor) RecordNotified(shifts []models.Shift) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, s := range shifts {
		m.notified[shiftKey(s)] = notifiedRecord{
			Deviation: s.Deviation,
			SentAt:    now,
		}
	}
}

// Run watches committed gauge states until ctx is done or updates is closed.
func (m *Monitor) Run(ctx context.Context, updates <-chan models.GaugeData) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case g, ok := <-updates:
			if !ok {
				return nil
			}
			m.handle(ctx, g)
		}
	}
}

func (m *Monitor) handle(ctx context.Context, g models.GaugeData) {
	shift, ok := m.DetectShift(g)
	if !ok {
		return
	}

	pending := m.FilterRecentlySent([]models.Shift{shift})
	if len(pending) == 0 {
		logger.Debug("Shift %s %s suppressed by cooldown", shift.Category, shift.Direction)
		return
	}

	logger.Info("Shift detected: %s %s value=%.4f baseline_7d=%.4f deviation=%.2f confidence=%.2f",
		shift.Category, shift.Direction, shift.Value, shift.Baseline7d, shift.Deviation, shift.Confidence)
	for _, o := range m.onShift {
		o(shift)
	}

	if m.dispatch(ctx, pending) {
		m.RecordNotified(pending)
	}
}

// dispatch sends shifts to every notifier. It reports whether the shifts count
// as delivered: at least one notifier succeeded, or there are none.
func (m *Monitor) dispatch(ctx context.Context, shifts []models.Shift) bool {
	if len(m.notifiers) == 0 {
		return true
	}

	delivered := false
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, shifts); err != nil {
			logger.Error("Failed to deliver %d shift(s): %v", len(shifts), err)
			continue
		}
		delivered = true
	}
	return delivered
}
