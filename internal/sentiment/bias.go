package sentiment

import (
	"math"

	"github.com/rewired-gh/pulsegauge/internal/models"
)

// Skew thresholds, as fractions of the analysed items.
const (
	englishDominanceShare  = 0.70
	westernSourceShare     = 0.75
	singleRegionFocusShare = 0.60
)

// Confidence model for an aggregation call.
const (
	baseConfidence     = 0.7
	minConfidence      = 0.1
	biasPenaltyPerFlag = 0.1
)

// BiasReporter describes the input distributions of a batch and flags skew.
// It is purely descriptive; nothing it computes feeds back into the score.
type BiasReporter struct{}

// NewBiasReporter creates a reporter.
func NewBiasReporter() *BiasReporter {
	return &BiasReporter{}
}

// Report fills the distributions and flags for items. Adjustments, ID and
// GeneratedAt are left for the caller.
func (b *BiasReporter) Report(items []models.AnalyzedItem) models.BiasReport {
	report := models.BiasReport{
		LanguageDistribution:      make(map[string]int),
		SourceRegionDistribution:  make(map[string]int),
		ContentRegionDistribution: make(map[string]int),
		Flags:                     []models.BiasFlag{},
	}

	if len(items) == 0 {
		report.Flags = append(report.Flags, models.FlagInsufficientData)
		return report
	}

	for _, it := range items {
		report.LanguageDistribution[it.Language]++
		report.SourceRegionDistribution[it.SourceRegion]++
		report.ContentRegionDistribution[it.ContentRegion]++
	}

	total := float64(len(items))

	if float64(report.LanguageDistribution[LangEnglish])/total > englishDominanceShare {
		report.Flags = append(report.Flags, models.FlagEnglishDominance)
	}

	western := report.SourceRegionDistribution[models.RegionNorthAmerica] + report.SourceRegionDistribution[models.RegionEurope]
	if float64(western)/total > westernSourceShare {
		report.Flags = append(report.Flags, models.FlagWesternSourceBias)
	}

	for region, n := range report.ContentRegionDistribution {
		// Items with no detected focus are not a regional skew.
		if region == models.RegionGlobal {
			continue
		}
		if float64(n)/total > singleRegionFocusShare {
			report.Flags = append(report.Flags, models.FlagSingleRegionFocus)
			break
		}
	}

	if len(report.Flags) == 0 {
		report.Flags = append(report.Flags, models.FlagBalancedCoverage)
	}
	return report
}

// Confidence scores an aggregation from its flags and sample size, floored at 0.1.
// An empty batch always scores the floor.
func (b *BiasReporter) Confidence(report models.BiasReport, sampleSize int) float64 {
	if sampleSize == 0 {
		return minConfidence
	}

	biasPenalty := 0.0
	if !report.HasFlag(models.FlagBalancedCoverage) {
		biasPenalty = biasPenaltyPerFlag * float64(len(report.Flags))
	}

	return math.Max(minConfidence, baseConfidence-biasPenalty-samplePenalty(sampleSize))
}

func samplePenalty(n int) float64 {
	switch {
	case n < 10:
		return 0.3
	case n < 50:
		return 0.2
	case n < 100:
		return 0.1
	default:
		return 0
	}
}
