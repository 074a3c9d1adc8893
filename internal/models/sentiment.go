package models

import "time"

// RawItem is an upstream article or post. Importance is optional (>= 0).
type RawItem struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Source      string  `json:"source"`
	Importance  float64 `json:"importance,omitempty"`
}

// Text returns title and description joined for analysis.
func (r RawItem) Text() string {
	switch {
	case r.Title == "":
		return r.Description
	case r.Description == "":
		return r.Title
	default:
		return r.Title + " " + r.Description
	}
}

// Region names used by the classifiers and the bias report.
const (
	RegionNorthAmerica = "north_america"
	RegionLatinAmerica = "latin_america"
	RegionEurope       = "europe"
	RegionMiddleEast   = "middle_east"
	RegionAfrica       = "africa"
	RegionAsia         = "asia"
	RegionOceania      = "oceania"
	RegionGlobal       = "global"  // no geographic focus detected in the text
	RegionUnknown      = "unknown" // source not in the lookup table
)

// AnalyzedItem is the per-item result of language, region and polarity scoring.
// Produced per analysis call, never persisted.
type AnalyzedItem struct {
	Index            int     `json:"index"` // position in the input batch
	Language         string  `json:"language"`
	ContentRegion    string  `json:"content_region"`
	SourceRegion     string  `json:"source_region"`
	RawPolarity      float64 `json:"raw_polarity"`
	AdjustedPolarity float64 `json:"adjusted_polarity"`
	ImportanceWeight float64 `json:"importance_weight"`
}

// BiasFlag names a detected skew in the analysed batch.
type BiasFlag string

const (
	FlagEnglishDominance  BiasFlag = "english_dominance"
	FlagWesternSourceBias BiasFlag = "western_source_bias"
	FlagSingleRegionFocus BiasFlag = "single_region_focus"
	FlagBalancedCoverage  BiasFlag = "balanced_coverage"
	FlagInsufficientData  BiasFlag = "insufficient_data"
)

// Adjustments records how far each correction stage moved the score.
type Adjustments struct {
	DiversityBalancing float64 `json:"diversity_balancing"`
	CulturalContext    float64 `json:"cultural_context"`
	Geographic         float64 `json:"geographic"`
	Temporal           float64 `json:"temporal"`
	Total              float64 `json:"total"`
}

// BiasReport is the transparency record of one aggregation call.
type BiasReport struct {
	ID                        string         `json:"id"`
	LanguageDistribution      map[string]int `json:"language_distribution"`
	SourceRegionDistribution  map[string]int `json:"source_region_distribution"`
	ContentRegionDistribution map[string]int `json:"content_region_distribution"`
	Adjustments               Adjustments    `json:"adjustments"`
	Flags                     []BiasFlag     `json:"flags"`
	GeneratedAt               time.Time      `json:"generated_at"`
}

// HasFlag reports whether f was raised.
func (b *BiasReport) HasFlag(f BiasFlag) bool {
	for _, flag := range b.Flags {
		if flag == f {
			return true
		}
	}
	return false
}

// SentimentResult is the output of analysing a batch of articles.
type SentimentResult struct {
	OverallSentiment float64    `json:"overall_sentiment"` // -1..1
	RawSentiment     float64    `json:"raw_sentiment"`
	BiasReport       BiasReport `json:"bias_report"`
	Confidence       float64    `json:"confidence"`
	ArticleCount     int        `json:"article_count"`
}
