package models

import (
	"errors"
	"fmt"
	"time"
)

// TrendDirection is the sign of the recent regression slope.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// HistoryPoint is a single normalized observation. Immutable once created.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"normalized_value"`
}

// ValueRange bounds every value a gauge may hold.
type ValueRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Clamp limits v to [Min, Max].
func (r ValueRange) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains reports whether v lies within the range.
func (r ValueRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// GaugeData is the long-lived state of one category's gauge.
//
// History is ordered newest first and bounded both by age and by count.
type GaugeData struct {
	Category       Category       `json:"category"`
	CurrentValue   float64        `json:"current_value"`
	SmoothedValue  float64        `json:"smoothed_value"`
	Baseline7d     float64        `json:"baseline_7d"`
	Baseline30d    float64        `json:"baseline_30d"`
	TrendDirection TrendDirection `json:"trend_direction"`
	TrendStrength  float64        `json:"trend_strength"` // 0–1
	Confidence     float64        `json:"confidence"`     // 0–1
	ValueRange     ValueRange     `json:"value_range"`
	LastUpdated    time.Time      `json:"last_updated"`
	History        []HistoryPoint `json:"history"`
}

// Metadata accompanies a raw observation. Confidence is the caller's own
// confidence in the value (0–1); zero means none was supplied.
type Metadata struct {
	Confidence float64 `json:"confidence,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// DefaultGauge builds the cold-start state for a category. The same defaults are
// used when a category is unknown, so callers never see two different notions
// of "no data yet". Registered categories start at confidence 0.5, unknown
// ones at 0.3.
func DefaultGauge(spec CategorySpec, registered bool, now time.Time) GaugeData {
	confidence := 0.3
	if registered {
		confidence = 0.5
	}
	mid := spec.Midpoint()
	return GaugeData{
		Category:       spec.Name,
		CurrentValue:   mid,
		SmoothedValue:  mid,
		Baseline7d:     mid,
		Baseline30d:    mid,
		TrendDirection: TrendStable,
		TrendStrength:  0,
		Confidence:     confidence,
		ValueRange:     ValueRange{Min: spec.Min, Max: spec.Max},
		LastUpdated:    now,
		History:        []HistoryPoint{},
	}
}

// Clone returns a deep copy so snapshots handed to readers never alias the
// store's history slice.
func (g GaugeData) Clone() GaugeData {
	out := g
	out.History = make([]HistoryPoint, len(g.History))
	copy(out.History, g.History)
	return out
}

// Validate checks the gauge invariants.
func (g *GaugeData) Validate() error {
	if g.Category == "" {
		return errors.New("gauge category must not be empty")
	}
	if g.ValueRange.Min >= g.ValueRange.Max {
		return errors.New("value range min must be < max")
	}
	if !g.ValueRange.Contains(g.CurrentValue) {
		return fmt.Errorf("current value %.4f outside range [%.4f, %.4f]", g.CurrentValue, g.ValueRange.Min, g.ValueRange.Max)
	}
	if !g.ValueRange.Contains(g.SmoothedValue) {
		return fmt.Errorf("smoothed value %.4f outside range [%.4f, %.4f]", g.SmoothedValue, g.ValueRange.Min, g.ValueRange.Max)
	}
	if g.Confidence < 0.0 || g.Confidence > 1.0 {
		return errors.New("confidence must be between 0.0 and 1.0")
	}
	if g.TrendStrength < 0.0 || g.TrendStrength > 1.0 {
		return errors.New("trend strength must be between 0.0 and 1.0")
	}
	switch g.TrendDirection {
	case TrendUp, TrendDown, TrendStable:
	default:
		return fmt.Errorf("invalid trend direction %q", g.TrendDirection)
	}
	for i := 1; i < len(g.History); i++ {
		if g.History[i].Timestamp.After(g.History[i-1].Timestamp) {
			return errors.New("history must be ordered newest first")
		}
	}
	return nil
}
