// Package sentiment turns batches of multi-lingual articles into a single
// bias-mitigated sentiment score.
//
// Each item is scored independently (language, regions, keyword polarity,
// cultural correction), then the batch is reduced once:
//
//	overall = diversity_balanced(adjusted, by source region) + geographic + temporal
//
// The scorer is a deterministic keyword heuristic built for auditability: every
// stage's effect on the result is reported in the BiasReport adjustments.
package sentiment

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/pulsegauge/internal/diversity"
	"github.com/rewired-gh/pulsegauge/internal/logger"
	"github.com/rewired-gh/pulsegauge/internal/models"
)

// importanceFloor keeps zero-importance items in their region's mean.
const importanceFloor = 0.1

// defaultWorkers bounds per-item analysis goroutines when Options.Workers is unset.
const defaultWorkers = 8

// ErrEmptyText marks an item with nothing to analyse.
var ErrEmptyText = errors.New("item has no text")

// Options configures an Analyzer. Zero values select defaults.
type Options struct {
	MaxGroupShare     float64
	Workers           int
	CulturalRules     []CulturalRule
	RegionalBaselines map[string]float64
	TemporalOffsets   []TemporalOffset
	Now               func() time.Time
}

// Analyzer scores article batches.
type Analyzer struct {
	languages  *LanguageDetector
	regions    *RegionClassifier
	scorer     *PolarityScorer
	cultural   *CulturalAdjuster
	contextual *ContextAdjuster
	reporter   *BiasReporter

	maxGroupShare float64
	workers       int
	now           func() time.Time
}

// NewAnalyzer creates an Analyzer with the built-in tables.
func NewAnalyzer(opts Options) *Analyzer {
	if opts.MaxGroupShare <= 0 {
		opts.MaxGroupShare = diversity.DefaultMaxGroupShare
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.CulturalRules == nil {
		opts.CulturalRules = DefaultCulturalRules()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Analyzer{
		languages:     NewLanguageDetector(),
		regions:       NewRegionClassifier(),
		scorer:        NewPolarityScorer(),
		cultural:      NewCulturalAdjuster(opts.CulturalRules),
		contextual:    NewContextAdjuster(opts.RegionalBaselines, opts.TemporalOffsets),
		reporter:      NewBiasReporter(),
		maxGroupShare: opts.MaxGroupShare,
		workers:       opts.Workers,
		now:           opts.Now,
	}
}

// Analyze scores a batch. It never fails: items that cannot be analysed are
// dropped and an empty batch is a valid, low-confidence result.
func (a *Analyzer) Analyze(items []models.RawItem) models.SentimentResult {
	analyzed := a.analyzeAll(items)
	now := a.now()

	report := a.reporter.Report(analyzed)
	report.ID = uuid.New().String()
	report.GeneratedAt = now

	result := models.SentimentResult{
		BiasReport:   report,
		Confidence:   a.reporter.Confidence(report, len(analyzed)),
		ArticleCount: len(analyzed),
	}
	if len(analyzed) == 0 {
		return result
	}

	var rawSum, adjustedSum float64
	scored := make([]diversity.Item, len(analyzed))
	for i, it := range analyzed {
		rawSum += it.RawPolarity
		adjustedSum += it.AdjustedPolarity
		scored[i] = diversity.Item{
			Value:  it.AdjustedPolarity,
			Weight: it.ImportanceWeight + importanceFloor,
			Group:  it.SourceRegion,
		}
	}
	n := float64(len(analyzed))
	raw := rawSum / n
	adjusted := adjustedSum / n

	balanced := diversity.Aggregate(scored, a.maxGroupShare)
	geographic := a.contextual.Geographic(analyzed)
	temporal := a.contextual.Temporal(now)
	overall := clamp(balanced+geographic+temporal, -1, 1)

	result.OverallSentiment = overall
	result.RawSentiment = raw
	result.BiasReport.Adjustments = models.Adjustments{
		DiversityBalancing: balanced - adjusted,
		CulturalContext:    adjusted - raw,
		Geographic:         geographic,
		Temporal:           temporal,
		Total:              overall - raw,
	}

	logger.Debug("Sentiment batch: %d/%d items, raw=%.3f overall=%.3f confidence=%.2f flags=%v",
		len(analyzed), len(items), raw, overall, result.Confidence, report.Flags)

	return result
}

// analyzeAll fans the per-item stages out over a bounded set of goroutines and
// waits for all of them. Input order is preserved in the output.
func (a *Analyzer) analyzeAll(items []models.RawItem) []models.AnalyzedItem {
	results := make([]models.AnalyzedItem, len(items))
	errs := make([]error, len(items))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			results[i], errs[i] = a.analyzeItem(i, item)
			return nil // never fail the group - errors are per item
		})
	}
	_ = g.Wait()

	analyzed := make([]models.AnalyzedItem, 0, len(items))
	for i, err := range errs {
		switch {
		case err == nil:
			analyzed = append(analyzed, results[i])
		case errors.Is(err, ErrEmptyText):
			logger.Debug("Dropping item %d: %v", i, err)
		default:
			logger.Warn("Dropping item %d: %v", i, err)
		}
	}
	return analyzed
}

// analyzeItem runs language, region, polarity and cultural stages for one item.
// A panic in any stage is converted into an error so one bad item cannot take
// the batch down.
func (a *Analyzer) analyzeItem(index int, item models.RawItem) (out models.AnalyzedItem, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis panicked: %v", r)
		}
	}()

	text := strings.TrimSpace(item.Text())
	if text == "" {
		return out, ErrEmptyText
	}

	tokens := tokenize(text)
	lang := a.languages.detectTokens(tokens)
	contentRegion := a.regions.contentRegionTokens(tokens)
	sourceRegion := a.regions.SourceRegion(item.Source)
	raw, _ := a.scorer.scoreTokens(lang, text, tokens)

	// Cultural rules key on what the text is about; fall back to where it
	// comes from when the text names no region.
	region := contentRegion
	if region == models.RegionGlobal {
		region = sourceRegion
	}

	importance := item.Importance
	if importance < 0 || math.IsNaN(importance) || math.IsInf(importance, 0) {
		importance = 0
	}

	return models.AnalyzedItem{
		Index:            index,
		Language:         lang,
		ContentRegion:    contentRegion,
		SourceRegion:     sourceRegion,
		RawPolarity:      raw,
		AdjustedPolarity: a.cultural.Adjust(raw, lang, region),
		ImportanceWeight: importance,
	}, nil
}
