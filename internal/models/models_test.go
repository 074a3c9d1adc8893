package models

import (
	"testing"
	"time"
)

func TestGaugeValidate(t *testing.T) {
	now := time.Now()
	valid := DefaultGauge(CategorySpec{Name: CategoryFinancial, Min: 0, Max: 100}, true, now)

	tests := []struct {
		name    string
		mutate  func(g *GaugeData)
		wantErr bool
	}{
		{
			name:    "default gauge",
			mutate:  func(g *GaugeData) {},
			wantErr: false,
		},
		{
			name:    "empty category",
			mutate:  func(g *GaugeData) { g.Category = "" },
			wantErr: true,
		},
		{
			name:    "current above range",
			mutate:  func(g *GaugeData) { g.CurrentValue = 150 },
			wantErr: true,
		},
		{
			name:    "smoothed below range",
			mutate:  func(g *GaugeData) { g.SmoothedValue = -1 },
			wantErr: true,
		},
		{
			name:    "confidence above 1",
			mutate:  func(g *GaugeData) { g.Confidence = 1.2 },
			wantErr: true,
		},
		{
			name:    "invalid trend",
			mutate:  func(g *GaugeData) { g.TrendDirection = "sideways" },
			wantErr: true,
		},
		{
			name: "history oldest first",
			mutate: func(g *GaugeData) {
				g.History = []HistoryPoint{
					{Timestamp: now.Add(-time.Hour), Value: 1},
					{Timestamp: now, Value: 2},
				}
			},
			wantErr: true,
		},
		{
			name: "history newest first",
			mutate: func(g *GaugeData) {
				g.History = []HistoryPoint{
					{Timestamp: now, Value: 2},
					{Timestamp: now.Add(-time.Hour), Value: 1},
				}
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := valid.Clone()
			tt.mutate(&g)
			err := g.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("GaugeData.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultGauge(t *testing.T) {
	now := time.Now()

	g := DefaultGauge(CategorySpec{Name: CategorySentiment, Min: -1, Max: 1}, true, now)
	if g.CurrentValue != 0 || g.SmoothedValue != 0 {
		t.Errorf("Expected sentiment default at midpoint 0, got current=%f smoothed=%f", g.CurrentValue, g.SmoothedValue)
	}
	if g.Confidence != 0.5 {
		t.Errorf("Expected registered confidence 0.5, got %f", g.Confidence)
	}
	if len(g.History) != 0 || g.History == nil {
		t.Errorf("Expected empty non-nil history, got %v", g.History)
	}

	unknown := DefaultGauge(FallbackCategory("weather"), false, now)
	if unknown.CurrentValue != 50 {
		t.Errorf("Expected fallback midpoint 50, got %f", unknown.CurrentValue)
	}
	if unknown.Confidence < 0.3 || unknown.Confidence > 0.5 {
		t.Errorf("Expected unknown confidence within [0.3, 0.5], got %f", unknown.Confidence)
	}
}

func TestCloneDoesNotAliasHistory(t *testing.T) {
	g := DefaultGauge(FallbackCategory("x"), false, time.Now())
	g.History = append(g.History, HistoryPoint{Timestamp: time.Now(), Value: 10})

	c := g.Clone()
	c.History[0].Value = 99

	if g.History[0].Value != 10 {
		t.Errorf("Clone aliased history: original changed to %f", g.History[0].Value)
	}
}

func TestValueRangeClamp(t *testing.T) {
	r := ValueRange{Min: 0, Max: 100}
	tests := []struct {
		in, want float64
	}{
		{150, 100},
		{-5, 0},
		{42, 42},
	}
	for _, tt := range tests {
		if got := r.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%f) = %f, expected %f", tt.in, got, tt.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	if len(r.All()) != 4 {
		t.Fatalf("Expected 4 built-in categories, got %d", len(r.All()))
	}
	if _, ok := r.Lookup(CategoryNaturalEvents); !ok {
		t.Error("Expected natural_events to be registered")
	}
	if err := r.Register(CategorySpec{Name: "space_weather", Min: 0, Max: 9}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if spec, ok := r.Lookup("space_weather"); !ok || spec.Max != 9 {
		t.Errorf("Expected space_weather with max 9, got %+v (ok=%v)", spec, ok)
	}
	if err := r.Register(CategorySpec{Name: "broken", Min: 5, Max: 5}); err == nil {
		t.Error("Expected error for empty range")
	}
}

func TestShiftValidate(t *testing.T) {
	tests := []struct {
		name    string
		shift   Shift
		wantErr bool
	}{
		{
			name: "valid up shift",
			shift: Shift{
				ID:            "shift-1",
				Category:      CategoryFinancial,
				Direction:     TrendUp,
				Value:         80,
				Baseline7d:    60,
				Deviation:     0.2,
				TrendStrength: 0.5,
				Confidence:    0.8,
				DetectedAt:    time.Now(),
			},
			wantErr: false,
		},
		{
			name: "stable is not a shift",
			shift: Shift{
				ID:         "shift-2",
				Category:   CategoryFinancial,
				Direction:  TrendStable,
				DetectedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "missing ID",
			shift: Shift{
				Category:   CategoryFinancial,
				Direction:  TrendDown,
				DetectedAt: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "future detection",
			shift: Shift{
				ID:         "shift-3",
				Category:   CategoryFinancial,
				Direction:  TrendDown,
				DetectedAt: time.Now().Add(time.Hour),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.shift.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Shift.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRawItemText(t *testing.T) {
	tests := []struct {
		item RawItem
		want string
	}{
		{RawItem{Title: "a", Description: "b"}, "a b"},
		{RawItem{Title: "a"}, "a"},
		{RawItem{Description: "b"}, "b"},
		{RawItem{}, ""},
	}
	for _, tt := range tests {
		if got := tt.item.Text(); got != tt.want {
			t.Errorf("Text() = %q, expected %q", got, tt.want)
		}
	}
}
