package gauge

import (
	"math"
	"sort"
	"time"

	"github.com/rewired-gh/pulsegauge/internal/models"
)

// Baseline windows.
const (
	Window7d  = 7 * 24 * time.Hour
	Window30d = 30 * 24 * time.Hour
)

// Config tunes the update pipeline.
type Config struct {
	// SmoothingFactor is α in smoothed = α·new + (1−α)·smoothed. Higher reacts
	// faster but is noisier.
	SmoothingFactor  float64
	MaxHistoryPoints int
	HistoryRetention time.Duration
	// TrendWindow is the number of most recent points regressed for the trend.
	TrendWindow    int
	TrendThreshold float64
	// HoldEmptyBaseline keeps the previous baseline when its window has no
	// points instead of resetting it to 0.
	HoldEmptyBaseline bool
	SubscriberBuffer  int
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		SmoothingFactor:  0.3,
		MaxHistoryPoints: 1000,
		HistoryRetention: Window30d,
		TrendWindow:      10,
		TrendThreshold:   0.01,
		SubscriberBuffer: 64,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SmoothingFactor <= 0 || c.SmoothingFactor > 1 {
		c.SmoothingFactor = d.SmoothingFactor
	}
	if c.MaxHistoryPoints <= 0 {
		c.MaxHistoryPoints = d.MaxHistoryPoints
	}
	if c.HistoryRetention <= 0 {
		c.HistoryRetention = d.HistoryRetention
	}
	if c.TrendWindow < 2 {
		c.TrendWindow = d.TrendWindow
	}
	if c.TrendThreshold <= 0 {
		c.TrendThreshold = d.TrendThreshold
	}
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = d.SubscriberBuffer
	}
	return c
}

// Apply is the gauge state transition for one observation. It never mutates
// prev: the returned gauge owns a freshly allocated history slice, so snapshots
// handed out earlier keep observing the pre-update history.
func Apply(prev models.GaugeData, raw float64, meta models.Metadata, now time.Time, cfg Config) models.GaugeData {
	next := prev

	normalized := prev.ValueRange.Clamp(raw)
	next.CurrentValue = normalized
	next.SmoothedValue = prev.ValueRange.Clamp(
		cfg.SmoothingFactor*normalized + (1-cfg.SmoothingFactor)*prev.SmoothedValue,
	)

	history := make([]models.HistoryPoint, 0, len(prev.History)+1)
	history = append(history, models.HistoryPoint{Timestamp: now, Value: normalized})
	history = append(history, prev.History...)
	next.History = PruneHistory(history, now, cfg.HistoryRetention, cfg.MaxHistoryPoints)

	next.Baseline7d, next.Baseline30d = recomputeBaselines(prev, next.History, now, cfg)
	next.TrendDirection, next.TrendStrength = Trend(next.History, cfg.TrendWindow, cfg.TrendThreshold)
	next.Confidence = Confidence(len(next.History), now.Sub(prev.LastUpdated), meta.Confidence)
	next.LastUpdated = now

	return next
}

// Recalculate refreshes only the baselines of g against the current time.
func Recalculate(g models.GaugeData, now time.Time, cfg Config) models.GaugeData {
	g.Baseline7d, g.Baseline30d = recomputeBaselines(g, g.History, now, cfg)
	return g
}

func recomputeBaselines(prev models.GaugeData, history []models.HistoryPoint, now time.Time, cfg Config) (float64, float64) {
	b7, ok7 := Baseline(history, now, Window7d)
	b30, ok30 := Baseline(history, now, Window30d)
	if cfg.HoldEmptyBaseline {
		if !ok7 {
			b7 = prev.Baseline7d
		}
		if !ok30 {
			b30 = prev.Baseline30d
		}
	}
	return b7, b30
}

// PruneHistory drops points older than retention and keeps at most max points.
// history must be newest first; the result is too.
func PruneHistory(history []models.HistoryPoint, now time.Time, retention time.Duration, max int) []models.HistoryPoint {
	cutoff := now.Add(-retention)
	kept := history[:0:0]
	for _, p := range history {
		if len(kept) >= max {
			break
		}
		if p.Timestamp.Before(cutoff) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// SortHistory orders points newest first.
func SortHistory(history []models.HistoryPoint) {
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.After(history[j].Timestamp)
	})
}

// Baseline is the mean of values within window of now. ok is false when the
// window is empty, in which case the mean is reported as 0.
func Baseline(history []models.HistoryPoint, now time.Time, window time.Duration) (mean float64, ok bool) {
	cutoff := now.Add(-window)
	var sum float64
	n := 0
	for _, p := range history {
		if p.Timestamp.Before(cutoff) {
			continue
		}
		sum += p.Value
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Trend regresses the window most recent points against their chronological
// position (oldest = 0), so values rising over time yield TrendUp.
// strength = min(|slope|·10, 1). Fewer than window points is stable/0.
func Trend(history []models.HistoryPoint, window int, threshold float64) (models.TrendDirection, float64) {
	if window < 2 || len(history) < window {
		return models.TrendStable, 0
	}

	recent := history[:window]
	n := float64(window)
	var sumX, sumY float64
	for i, p := range recent {
		sumX += float64(window - 1 - i)
		sumY += p.Value
	}
	meanX, meanY := sumX/n, sumY/n

	var num, den float64
	for i, p := range recent {
		dx := float64(window-1-i) - meanX
		num += dx * (p.Value - meanY)
		den += dx * dx
	}
	slope := num / den

	strength := math.Min(math.Abs(slope)*10, 1.0)
	switch {
	case slope > threshold:
		return models.TrendUp, strength
	case slope < -threshold:
		return models.TrendDown, strength
	default:
		return models.TrendStable, strength
	}
}

// Confidence combines history depth, recency of the previous point and the
// caller's own confidence:
//
//	min(1, 0.5 + min(n/100, 1)·0.3 + max(0, (24 − hours)/24)·0.2 + meta·0.2)
func Confidence(historyLen int, sinceLast time.Duration, metaConfidence float64) float64 {
	data := math.Min(float64(historyLen)/100, 1) * 0.3

	hours := sinceLast.Hours()
	if hours < 0 {
		hours = 0
	}
	recency := math.Max(0, (24-hours)/24) * 0.2

	if math.IsNaN(metaConfidence) {
		metaConfidence = 0
	}
	meta := math.Max(0, math.Min(metaConfidence, 1)) * 0.2

	return math.Min(1.0, 0.5+data+recency+meta)
}
