// Package models defines the core domain entities for the pulsegauge engine.
// These models represent gauge categories, gauge state with bounded history,
// sentiment inputs and bias reports, and detected gauge shifts.
// All persistent models include built-in validation to ensure data integrity
// throughout the application.
//
// Terminology:
//   - Category: a gauge domain (sentiment, financial, natural_events, social_trends).
//   - Gauge: the long-lived smoothed, trend-aware state kept for one category.
//   - Shift: a significant, confident move of a gauge away from its 7-day baseline.
package models

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Category identifies a gauge domain.
type Category string

// Built-in categories.
const (
	CategorySentiment     Category = "sentiment"
	CategoryFinancial     Category = "financial"
	CategoryNaturalEvents Category = "natural_events"
	CategorySocialTrends  Category = "social_trends"
)

// CategorySpec describes the value range a category is clamped to.
type CategorySpec struct {
	Name Category `json:"name" mapstructure:"name"`
	Min  float64  `json:"min" mapstructure:"min"`
	Max  float64  `json:"max" mapstructure:"max"`
}

// Validate checks that the spec has a name and a non-empty range.
func (s CategorySpec) Validate() error {
	if s.Name == "" {
		return errors.New("category name must not be empty")
	}
	if s.Min >= s.Max {
		return fmt.Errorf("category %s: min must be < max", s.Name)
	}
	return nil
}

// Midpoint returns the center of the value range.
func (s CategorySpec) Midpoint() float64 {
	return (s.Min + s.Max) / 2
}

// Width returns max - min.
func (s CategorySpec) Width() float64 {
	return s.Max - s.Min
}

// BuiltinCategories returns the specs of the four built-in categories.
// Sentiment is a polarity score; the others are 0–100 indices.
func BuiltinCategories() []CategorySpec {
	return []CategorySpec{
		{Name: CategorySentiment, Min: -1, Max: 1},
		{Name: CategoryFinancial, Min: 0, Max: 100},
		{Name: CategoryNaturalEvents, Min: 0, Max: 100},
		{Name: CategorySocialTrends, Min: 0, Max: 100},
	}
}

// FallbackCategory is the spec applied to categories nobody registered.
func FallbackCategory(name Category) CategorySpec {
	return CategorySpec{Name: name, Min: 0, Max: 100}
}

// Registry is the set of known categories. It starts with the built-ins and can
// be extended at runtime. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	specs map[Category]CategorySpec
}

// NewRegistry creates a registry seeded with the built-in categories.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[Category]CategorySpec)}
	for _, spec := range BuiltinCategories() {
		r.specs[spec.Name] = spec
	}
	return r
}

// Register adds or replaces a category spec.
func (r *Registry) Register(spec CategorySpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid category: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs[spec.Name] = spec
	return nil
}

// Lookup returns the spec for a category and whether it is registered.
func (r *Registry) Lookup(name Category) (CategorySpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	spec, ok := r.specs[name]
	return spec, ok
}

// All returns every registered spec sorted by name.
func (r *Registry) All() []CategorySpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]CategorySpec, 0, len(r.specs))
	for _, spec := range r.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].Name < specs[j].Name
	})
	return specs
}
