package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rewired-gh/pulsegauge/internal/models"
)

type fakeSource struct {
	mu           sync.Mutex
	recalculated int
	gauges       map[models.Category]models.GaugeData
}

func (f *fakeSource) RecalculateAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recalculated++
}

func (f *fakeSource) GetAllGauges() map[models.Category]models.GaugeData {
	return f.gauges
}

type fakeSaver struct {
	saved [][]models.GaugeData
	err   error
}

func (f *fakeSaver) SaveGauges(_ context.Context, gauges []models.GaugeData) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, gauges)
	return nil
}

type fakePoller struct{}

func (fakePoller) PollAll(context.Context) error { return nil }

func newSource() *fakeSource {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	gauges := make(map[models.Category]models.GaugeData)
	for _, spec := range models.BuiltinCategories() {
		gauges[spec.Name] = models.DefaultGauge(spec, true, now)
	}
	return &fakeSource{gauges: gauges}
}

func TestSchedule(t *testing.T) {
	s := New(newSource())

	if err := s.AddBaselineSweep("@every 60s"); err != nil {
		t.Fatalf("AddBaselineSweep failed: %v", err)
	}
	if err := s.AddPersistSweep("*/5 * * * *", &fakeSaver{}); err != nil {
		t.Fatalf("AddPersistSweep failed: %v", err)
	}
	if err := s.AddFeedPoll("@every 1m", &fakePoller{}); err != nil {
		t.Fatalf("AddFeedPoll failed: %v", err)
	}
	if s.Entries() != 3 {
		t.Errorf("Expected 3 entries, got %d", s.Entries())
	}

	if err := s.AddBaselineSweep("every minute please"); err == nil {
		t.Error("Expected error for invalid schedule")
	}

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestRecalculateBaselines(t *testing.T) {
	src := newSource()
	s := New(src)

	s.RecalculateBaselines()
	s.RecalculateBaselines()

	if src.recalculated != 2 {
		t.Errorf("Expected 2 sweeps, got %d", src.recalculated)
	}
}

func TestPersist(t *testing.T) {
	s := New(newSource())
	saver := &fakeSaver{}

	if err := s.Persist(context.Background(), saver); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if len(saver.saved) != 1 || len(saver.saved[0]) != 4 {
		t.Fatalf("Expected one save of 4 gauges, got %+v", saver.saved)
	}
	got := saver.saved[0]
	for i := 1; i < len(got); i++ {
		if got[i-1].Category >= got[i].Category {
			t.Errorf("Gauges not ordered by category: %s before %s", got[i-1].Category, got[i].Category)
		}
	}

	failing := &fakeSaver{err: errors.New("disk full")}
	if err := s.Persist(context.Background(), failing); err == nil {
		t.Error("Expected error from failing saver")
	}
}
