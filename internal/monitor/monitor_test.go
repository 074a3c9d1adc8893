package monitor

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/rewired-gh/pulsegauge/internal/gauge"
	"github.com/rewired-gh/pulsegauge/internal/models"
	"github.com/rewired-gh/pulsegauge/internal/sentiment"
)

var epoch = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	calls  [][]models.Shift
	failed bool
}

func (n *recordingNotifier) Notify(_ context.Context, shifts []models.Shift) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failed {
		return errors.New("delivery failed")
	}
	n.calls = append(n.calls, shifts)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func testConfig() Config {
	return Config{
		DeviationThreshold: 0.15,
		MinConfidence:      0.5,
		MinTrendStrength:   0.2,
		Cooldown:           time.Hour,
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMonitor(t *testing.T, opts ...Option) (*Monitor, *testClock) {
	t.Helper()
	clock := &testClock{now: epoch}
	store := gauge.NewStore(models.NewRegistry(), gauge.DefaultConfig(), gauge.WithClock(clock.Now))
	analyzer := sentiment.NewAnalyzer(sentiment.Options{Now: clock.Now})
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return New(store, analyzer, testConfig(), opts...), clock
}

// risingGauge is a financial gauge well above its baseline with a strong up trend.
func risingGauge(current float64) models.GaugeData {
	return models.GaugeData{
		Category:       models.CategoryFinancial,
		CurrentValue:   current,
		SmoothedValue:  current,
		Baseline7d:     50,
		Baseline30d:    50,
		TrendDirection: models.TrendUp,
		TrendStrength:  0.8,
		Confidence:     0.7,
		ValueRange:     models.ValueRange{Min: 0, Max: 100},
		LastUpdated:    epoch,
	}
}

func TestDetectShift(t *testing.T) {
	m, _ := newTestMonitor(t)

	tests := []struct {
		name   string
		mutate func(*models.GaugeData)
		want   bool
	}{
		{"qualifies", func(g *models.GaugeData) {}, true},
		{"stable trend", func(g *models.GaugeData) { g.TrendDirection = models.TrendStable }, false},
		{"small deviation", func(g *models.GaugeData) { g.CurrentValue = 60 }, false},
		{"weak trend", func(g *models.GaugeData) { g.TrendStrength = 0.1 }, false},
		{"low confidence", func(g *models.GaugeData) { g.Confidence = 0.4 }, false},
		{"down shift", func(g *models.GaugeData) {
			g.CurrentValue = 20
			g.TrendDirection = models.TrendDown
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := risingGauge(80)
			tt.mutate(&g)
			shift, ok := m.DetectShift(g)
			if ok != tt.want {
				t.Fatalf("DetectShift = %v, expected %v", ok, tt.want)
			}
			if !ok {
				return
			}
			if err := shift.Validate(); err != nil {
				t.Errorf("Shift failed validation: %v", err)
			}
			if shift.Direction != g.TrendDirection {
				t.Errorf("Direction = %s, expected %s", shift.Direction, g.TrendDirection)
			}
		})
	}
}

func TestDeviation(t *testing.T) {
	g := risingGauge(80)
	if got := Deviation(g); math.Abs(got-0.3) > 1e-9 {
		t.Errorf("Deviation = %f, expected 0.3", got)
	}

	// A reset baseline outside a narrow range is capped.
	g.ValueRange = models.ValueRange{Min: 10, Max: 20}
	g.CurrentValue, g.Baseline7d = 20, 0
	if got := Deviation(g); got != 1 {
		t.Errorf("Deviation = %f, expected 1", got)
	}
}

func TestFilterRecentlySent(t *testing.T) {
	m, clock := newTestMonitor(t)

	up, _ := m.DetectShift(risingGauge(70)) // deviation 0.2
	m.RecordNotified([]models.Shift{up})

	if got := m.FilterRecentlySent([]models.Shift{up}); len(got) != 0 {
		t.Errorf("Expected repeat shift to be suppressed, got %d", len(got))
	}

	escalated, _ := m.DetectShift(risingGauge(85)) // deviation 0.35 >= 0.3
	if got := m.FilterRecentlySent([]models.Shift{escalated}); len(got) != 1 {
		t.Errorf("Expected escalated shift to pass, got %d", len(got))
	}

	down := up
	down.Direction = models.TrendDown
	if got := m.FilterRecentlySent([]models.Shift{down}); len(got) != 1 {
		t.Errorf("Expected opposite direction to pass, got %d", len(got))
	}

	clock.Advance(61 * time.Minute)
	if got := m.FilterRecentlySent([]models.Shift{up}); len(got) != 1 {
		t.Errorf("Expected shift to pass after cooldown, got %d", len(got))
	}

	if got := m.FilterRecentlySent(nil); got == nil {
		t.Error("Expected non-nil slice")
	}
}

func TestRun_NotifiesOncePerCooldown(t *testing.T) {
	n := &recordingNotifier{}
	m, _ := newTestMonitor(t, WithNotifiers(n))

	updates := make(chan models.GaugeData, 3)
	updates <- risingGauge(70)
	updates <- risingGauge(72)
	updates <- risingGauge(55) // below threshold
	close(updates)

	if err := m.Run(context.Background(), updates); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if n.count() != 1 {
		t.Fatalf("Expected 1 notification, got %d", n.count())
	}
}

func TestRun_FailedDeliveryRetriesNextTime(t *testing.T) {
	n := &recordingNotifier{failed: true}
	m, _ := newTestMonitor(t, WithNotifiers(n))

	updates := make(chan models.GaugeData, 1)
	updates <- risingGauge(70)
	close(updates)
	_ = m.Run(context.Background(), updates)

	n.failed = false
	updates = make(chan models.GaugeData, 1)
	updates <- risingGauge(70)
	close(updates)
	_ = m.Run(context.Background(), updates)

	if n.count() != 1 {
		t.Errorf("Expected the shift to be delivered after the failure, got %d", n.count())
	}
}

func TestRun_ShiftObserver(t *testing.T) {
	n := &recordingNotifier{failed: true}
	var seen []models.Shift
	m, clock := newTestMonitor(t, WithNotifiers(n), WithShiftObserver(func(s models.Shift) {
		seen = append(seen, s)
	}))

	updates := make(chan models.GaugeData, 3)
	updates <- risingGauge(70)
	updates <- risingGauge(70)
	close(updates)
	_ = m.Run(context.Background(), updates)

	// Undelivered shifts are not recorded, so the observer sees both.
	if len(seen) != 2 {
		t.Fatalf("Expected 2 observed shifts, got %d", len(seen))
	}

	n.failed = false
	clock.Advance(time.Minute)
	updates = make(chan models.GaugeData, 2)
	updates <- risingGauge(71)
	updates <- risingGauge(71)
	close(updates)
	_ = m.Run(context.Background(), updates)

	if len(seen) != 3 || n.count() != 1 {
		t.Errorf("Expected 3 observed and 1 delivered, got %d and %d", len(seen), n.count())
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	m, _ := newTestMonitor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Run(ctx, make(chan models.GaugeData)); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestRun_EndToEndFromStore(t *testing.T) {
	n := &recordingNotifier{}
	m, clock := newTestMonitor(t, WithNotifiers(n))

	ch, cancel := m.store.Subscribe(32)
	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background(), ch) }()

	for i := 1; i <= 10; i++ {
		clock.Advance(time.Hour)
		m.UpdateValue(models.CategoryFinancial, float64(i*10), models.Metadata{Confidence: 1})
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// The tenth update completes the trend window: up, current 100, baseline 55.
	if n.count() != 1 {
		t.Fatalf("Expected 1 notification, got %d", n.count())
	}
	shift := n.calls[0][0]
	if shift.Category != models.CategoryFinancial || shift.Direction != models.TrendUp {
		t.Errorf("Unexpected shift: %+v", shift)
	}
	if math.Abs(shift.Deviation-0.45) > 1e-9 {
		t.Errorf("Deviation = %f, expected 0.45", shift.Deviation)
	}
}

func TestAnalyzeArticlesSentiment(t *testing.T) {
	var observed []int
	m, _ := newTestMonitor(t, WithAnalysisObserver(func(r models.SentimentResult, submitted int) {
		observed = append(observed, submitted)
	}))

	res := m.AnalyzeArticlesSentiment([]models.RawItem{
		{Title: "Peace agreement signed", Source: "Community Blog"},
	})
	if math.Abs(res.OverallSentiment-0.5) > 1e-9 {
		t.Fatalf("OverallSentiment = %f, expected 0.5", res.OverallSentiment)
	}

	g := m.GetGaugeData(models.CategorySentiment)
	if len(g.History) != 1 || math.Abs(g.CurrentValue-0.5) > 1e-9 {
		t.Errorf("Sentiment gauge not updated: %+v", g)
	}

	empty := m.AnalyzeArticlesSentiment(nil)
	if empty.Confidence > 0.1 {
		t.Errorf("Empty batch confidence = %f, expected <= 0.1", empty.Confidence)
	}
	if g := m.GetGaugeData(models.CategorySentiment); len(g.History) != 1 {
		t.Errorf("Empty batch must not update the gauge, history has %d points", len(g.History))
	}

	if len(observed) != 2 || observed[0] != 1 || observed[1] != 0 {
		t.Errorf("Observer calls = %v, expected [1 0]", observed)
	}
}

func TestFacade_UnknownCategory(t *testing.T) {
	m, _ := newTestMonitor(t)
	m.UpdateValue("weather", 1, models.Metadata{})

	if g := m.GetGaugeData("weather"); g.Confidence != 0.3 || len(g.History) != 0 {
		t.Errorf("Unexpected default for unknown category: %+v", g)
	}
	if len(m.GetAllGauges()) != 4 {
		t.Errorf("Expected 4 gauges, got %d", len(m.GetAllGauges()))
	}
}
