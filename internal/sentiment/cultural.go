package sentiment

import "github.com/rewired-gh/pulsegauge/internal/models"

// CulturalRule corrects polarity for one (language, region) pair. Positive
// scores are multiplied by PositiveFactor, negative ones by NegativeFactor,
// then Offset is added.
type CulturalRule struct {
	Language       string  `mapstructure:"language"`
	Region         string  `mapstructure:"region"`
	PositiveFactor float64 `mapstructure:"positive_factor"`
	NegativeFactor float64 `mapstructure:"negative_factor"`
	Offset         float64 `mapstructure:"offset"`
}

// DefaultCulturalRules is the hand-curated correction table.
func DefaultCulturalRules() []CulturalRule {
	return []CulturalRule{
		// Stability news carries more weight where instability is the baseline.
		{Language: LangArabic, Region: models.RegionMiddleEast, PositiveFactor: 1.2, NegativeFactor: 0.9},
		{Language: LangSpanish, Region: models.RegionLatinAmerica, PositiveFactor: 1.1, NegativeFactor: 0.95},
		// US headline register runs hot in both directions.
		{Language: LangEnglish, Region: models.RegionNorthAmerica, PositiveFactor: 0.9, NegativeFactor: 0.9},
	}
}

type ruleKey struct {
	language string
	region   string
}

// CulturalAdjuster applies CulturalRules to raw polarity scores.
type CulturalAdjuster struct {
	rules map[ruleKey]CulturalRule
}

// NewCulturalAdjuster indexes rules; a later rule for the same pair wins.
func NewCulturalAdjuster(rules []CulturalRule) *CulturalAdjuster {
	a := &CulturalAdjuster{rules: make(map[ruleKey]CulturalRule, len(rules))}
	for _, r := range rules {
		a.rules[ruleKey{r.Language, r.Region}] = r
	}
	return a
}

// Adjust returns score corrected for (language, region), clamped to [-1, 1].
// Pairs without a rule pass through unchanged.
func (a *CulturalAdjuster) Adjust(score float64, language, region string) float64 {
	rule, ok := a.rules[ruleKey{language, region}]
	if !ok {
		return score
	}
	switch {
	case score > 0:
		score *= rule.PositiveFactor
	case score < 0:
		score *= rule.NegativeFactor
	}
	return clamp(score+rule.Offset, -1, 1)
}
