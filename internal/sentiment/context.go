package sentiment

import (
	"sort"
	"time"

	"github.com/rewired-gh/pulsegauge/internal/models"
)

// TemporalOffset is added to the aggregate when the analysis hour falls in
// [StartHour, EndHour).
type TemporalOffset struct {
	StartHour int     `mapstructure:"start_hour"`
	EndHour   int     `mapstructure:"end_hour"`
	Offset    float64 `mapstructure:"offset"`
}

// DefaultTemporalOffsets counter the diurnal negativity of overnight wire copy.
func DefaultTemporalOffsets() []TemporalOffset {
	return []TemporalOffset{
		{StartHour: 0, EndHour: 6, Offset: 0.05},
		{StartHour: 6, EndHour: 12, Offset: 0.0},
		{StartHour: 12, EndHour: 18, Offset: 0.02},
		{StartHour: 18, EndHour: 24, Offset: 0.03},
	}
}

// DefaultRegionalBaselines are the offsets applied when a batch focuses on a
// region whose coverage runs structurally negative.
func DefaultRegionalBaselines() map[string]float64 {
	return map[string]float64{
		models.RegionMiddleEast:   -0.05,
		models.RegionAfrica:       -0.03,
		models.RegionLatinAmerica: -0.02,
	}
}

// ContextAdjuster applies the geographic-focus and time-of-day passes to an
// aggregate score.
type ContextAdjuster struct {
	regional map[string]float64
	temporal []TemporalOffset
}

// NewContextAdjuster creates an adjuster. Nil arguments select the defaults.
func NewContextAdjuster(regional map[string]float64, temporal []TemporalOffset) *ContextAdjuster {
	if regional == nil {
		regional = DefaultRegionalBaselines()
	}
	if temporal == nil {
		temporal = DefaultTemporalOffsets()
	}
	return &ContextAdjuster{regional: regional, temporal: temporal}
}

// Geographic returns the offset for the most frequent content region among items.
func (c *ContextAdjuster) Geographic(items []models.AnalyzedItem) float64 {
	return c.regional[DominantContentRegion(items)]
}

// Temporal returns the offset for the hour of t; zero if no bucket covers it.
func (c *ContextAdjuster) Temporal(t time.Time) float64 {
	hour := t.Hour()
	for _, b := range c.temporal {
		if hour >= b.StartHour && hour < b.EndHour {
			return b.Offset
		}
	}
	return 0
}

// DominantContentRegion returns the most frequent content region, breaking
// ties alphabetically. Empty input yields "".
func DominantContentRegion(items []models.AnalyzedItem) string {
	counts := make(map[string]int)
	for _, it := range items {
		counts[it.ContentRegion]++
	}

	regions := make([]string, 0, len(counts))
	for r := range counts {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	best, bestCount := "", 0
	for _, r := range regions {
		if counts[r] > bestCount {
			best, bestCount = r, counts[r]
		}
	}
	return best
}
