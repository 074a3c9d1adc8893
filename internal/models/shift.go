package models

import (
	"errors"
	"time"
)

// Shift represents a significant, confident move of a gauge away from its
// 7-day baseline.
type Shift struct {
	ID            string         `json:"id"`
	Category      Category       `json:"category"`
	Direction     TrendDirection `json:"direction"` // up or down
	Value         float64        `json:"value"`
	Baseline7d    float64        `json:"baseline_7d"`
	Deviation     float64        `json:"deviation"` // |value - baseline| / range width
	TrendStrength float64        `json:"trend_strength"`
	Confidence    float64        `json:"confidence"`
	DetectedAt    time.Time      `json:"detected_at"`
}

// Validate checks that all shift fields are valid
func (s *Shift) Validate() error {
	if s.ID == "" {
		return errors.New("shift ID must not be empty")
	}
	if s.Category == "" {
		return errors.New("category must not be empty")
	}
	if s.Direction != TrendUp && s.Direction != TrendDown {
		return errors.New("direction must be 'up' or 'down'")
	}
	if s.Deviation < 0.0 || s.Deviation > 1.0 {
		return errors.New("deviation must be between 0.0 and 1.0")
	}
	if s.TrendStrength < 0.0 || s.TrendStrength > 1.0 {
		return errors.New("trend strength must be between 0.0 and 1.0")
	}
	if s.Confidence < 0.0 || s.Confidence > 1.0 {
		return errors.New("confidence must be between 0.0 and 1.0")
	}
	if s.DetectedAt.After(time.Now()) {
		return errors.New("detected at must not be in the future")
	}
	return nil
}
