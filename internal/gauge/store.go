// Package gauge keeps the long-lived, per-category gauge state.
//
// Every observation goes through the same pipeline: clamp to the category
// range, exponential smoothing, bounded history, rolling baselines, trend
// regression and a confidence estimate. The Store serialises that pipeline
// per category while letting different categories update in parallel, and
// fans committed states out to subscribers.
package gauge

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rewired-gh/pulsegauge/internal/logger"
	"github.com/rewired-gh/pulsegauge/internal/models"
)

// entry owns one category's state. Updates hold mu for the whole
// read-compute-write so concurrent updates never lose each other.
type entry struct {
	mu   sync.RWMutex
	data models.GaugeData
}

// Store holds every registered gauge. Safe for concurrent use.
type Store struct {
	registry *models.Registry
	cfg      Config
	now      func() time.Time

	mu      sync.RWMutex // guards entries
	entries map[models.Category]*entry

	subMu   sync.RWMutex
	subs    map[int]chan models.GaugeData
	nextSub int
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store with one cold-start gauge per registered category.
func NewStore(registry *models.Registry, cfg Config, opts ...Option) *Store {
	if registry == nil {
		registry = models.NewRegistry()
	}
	s := &Store{
		registry: registry,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		entries:  make(map[models.Category]*entry),
		subs:     make(map[int]chan models.GaugeData),
	}
	for _, opt := range opts {
		opt(s)
	}

	now := s.now()
	for _, spec := range registry.All() {
		s.entries[spec.Name] = &entry{data: models.DefaultGauge(spec, true, now)}
	}
	return s
}

// Register adds a category at runtime. Re-registering an existing category
// keeps its state but adopts the new range.
func (s *Store) Register(spec models.CategorySpec) error {
	if err := s.registry.Register(spec); err != nil {
		return err
	}

	s.mu.Lock()
	e, exists := s.entries[spec.Name]
	if !exists {
		s.entries[spec.Name] = &entry{data: models.DefaultGauge(spec, true, s.now())}
	}
	s.mu.Unlock()

	if exists {
		e.mu.Lock()
		e.data.ValueRange = models.ValueRange{Min: spec.Min, Max: spec.Max}
		e.data.CurrentValue = e.data.ValueRange.Clamp(e.data.CurrentValue)
		e.data.SmoothedValue = e.data.ValueRange.Clamp(e.data.SmoothedValue)
		e.mu.Unlock()
	}
	logger.Info("Registered category %s [%.2f, %.2f]", spec.Name, spec.Min, spec.Max)
	return nil
}

// ensureEntry returns the entry for spec, creating it when the registry knows
// the category but the store has not seen it yet.
func (s *Store) ensureEntry(spec models.CategorySpec) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[spec.Name]
	if !ok {
		e = &entry{data: models.DefaultGauge(spec, true, s.now())}
		s.entries[spec.Name] = e
	}
	return e
}

func (s *Store) lookup(category models.Category) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[category]
	return e, ok
}

// UpdateValue feeds one raw observation into a category's gauge. It never
// fails: unknown categories and NaN values are logged and dropped, infinite
// values are clamped like any other out-of-range value.
func (s *Store) UpdateValue(category models.Category, value float64, meta models.Metadata) {
	if math.IsNaN(value) {
		logger.Warn("Dropping NaN value for category %s", category)
		return
	}

	e, ok := s.lookup(category)
	if !ok {
		logger.Warn("Dropping value for unknown category %s", category)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.data = Apply(e.data, value, meta, s.now(), s.cfg)
	logger.Debug("Gauge %s: value=%.4f smoothed=%.4f trend=%s confidence=%.2f",
		category, e.data.CurrentValue, e.data.SmoothedValue, e.data.TrendDirection, e.data.Confidence)

	// Published under the entry lock so subscribers see a category's
	// states in commit order.
	s.publish(e.data)
}

// GetGaugeData returns a snapshot of a category's gauge. Unknown categories
// get the default gauge over the fallback range.
func (s *Store) GetGaugeData(category models.Category) models.GaugeData {
	e, ok := s.lookup(category)
	if !ok {
		return models.DefaultGauge(models.FallbackCategory(category), false, s.now())
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.data.Clone()
}

// GetAllGauges snapshots every registered gauge.
func (s *Store) GetAllGauges() map[models.Category]models.GaugeData {
	s.mu.RLock()
	entries := make(map[models.Category]*entry, len(s.entries))
	for c, e := range s.entries {
		entries[c] = e
	}
	s.mu.RUnlock()

	out := make(map[models.Category]models.GaugeData, len(entries))
	for c, e := range entries {
		e.mu.RLock()
		out[c] = e.data.Clone()
		e.mu.RUnlock()
	}
	return out
}

// Categories lists registered categories sorted by name.
func (s *Store) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Category, 0, len(s.entries))
	for c := range s.entries {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RecalculateBaselines refreshes a category's baselines against the current
// time so they decay while no updates arrive. Nothing else changes.
func (s *Store) RecalculateBaselines(category models.Category) {
	e, ok := s.lookup(category)
	if !ok {
		logger.Warn("Cannot recalculate baselines for unknown category %s", category)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.data = Recalculate(e.data, s.now(), s.cfg)
}

// RecalculateAll refreshes the baselines of every category.
func (s *Store) RecalculateAll() {
	for _, c := range s.Categories() {
		s.RecalculateBaselines(c)
	}
}

// Restore replaces a gauge with persisted state. Values are clamped to the
// registered range, history is re-sorted and pruned against the current time,
// and derived fields are recomputed. Categories not registered yet are
// registered with the persisted range.
func (s *Store) Restore(g models.GaugeData) error {
	if g.Category == "" {
		return errors.New("cannot restore gauge without category")
	}

	spec, ok := s.registry.Lookup(g.Category)
	if !ok {
		spec = models.CategorySpec{Name: g.Category, Min: g.ValueRange.Min, Max: g.ValueRange.Max}
		if err := s.Register(spec); err != nil {
			return fmt.Errorf("failed to register restored category: %w", err)
		}
	}
	e := s.ensureEntry(spec)

	now := s.now()
	r := models.ValueRange{Min: spec.Min, Max: spec.Max}
	restored := g.Clone()
	restored.ValueRange = r
	restored.CurrentValue = r.Clamp(restored.CurrentValue)
	restored.SmoothedValue = r.Clamp(restored.SmoothedValue)
	for i := range restored.History {
		restored.History[i].Value = r.Clamp(restored.History[i].Value)
	}
	SortHistory(restored.History)
	restored.History = PruneHistory(restored.History, now, s.cfg.HistoryRetention, s.cfg.MaxHistoryPoints)
	restored.Baseline7d, restored.Baseline30d = recomputeBaselines(restored, restored.History, now, s.cfg)
	restored.TrendDirection, restored.TrendStrength = Trend(restored.History, s.cfg.TrendWindow, s.cfg.TrendThreshold)
	restored.Confidence = math.Max(0, math.Min(restored.Confidence, 1))

	if err := restored.Validate(); err != nil {
		return fmt.Errorf("invalid restored gauge: %w", err)
	}

	e.mu.Lock()
	e.data = restored
	e.mu.Unlock()
	return nil
}

// Subscribe returns a channel receiving every committed gauge state and a
// cancel func that closes it. Sends never block: when the buffer is full the
// state is dropped for that subscriber.
func (s *Store) Subscribe(buffer int) (<-chan models.GaugeData, func()) {
	if buffer <= 0 {
		buffer = s.cfg.SubscriberBuffer
	}
	ch := make(chan models.GaugeData, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publish(g models.GaugeData) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	for id, ch := range s.subs {
		select {
		case ch <- g.Clone():
		default:
			logger.Warn("Subscriber %d is full, dropping %s update", id, g.Category)
		}
	}
}
