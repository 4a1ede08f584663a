package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"OilSentinel/internal/model"
)

func TestSQLiteRecorder_RecordAndReadBack(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer r.Close()

	initial := &model.ChangeEvent{
		Type:       model.EventInitial,
		New:        model.PriceRecord{Price: 72.59, Cycle: 6547},
		Delta:      model.Delta{Trend: model.TrendFlat},
		DetectedAt: time.Now().Add(-time.Hour),
	}
	update := &model.ChangeEvent{
		Type:       model.EventUpdate,
		Old:        &model.PriceRecord{Price: 72.59, Cycle: 6547},
		New:        model.PriceRecord{Price: 76.28, Cycle: 6548},
		Delta:      model.Delta{Abs: 3.69, Percent: 5.08, Trend: model.TrendUp},
		DetectedAt: time.Now(),
	}

	if err := r.RecordEvent(initial); err != nil {
		t.Fatalf("record initial: %v", err)
	}
	if err := r.RecordEvent(update); err != nil {
		t.Fatalf("record update: %v", err)
	}

	events, err := r.RecentEvents(10)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	// Most recent first.
	if events[0].Type != string(model.EventUpdate) {
		t.Errorf("expected update first, got %s", events[0].Type)
	}
	if events[0].OldPrice != 72.59 || events[0].NewPrice != 76.28 {
		t.Errorf("unexpected prices: %+v", events[0])
	}
	if events[0].NewCycle != 6548 || events[0].OldCycle != 6547 {
		t.Errorf("unexpected cycles: %+v", events[0])
	}
	if events[0].Trend != string(model.TrendUp) {
		t.Errorf("unexpected trend: %s", events[0].Trend)
	}

	if events[1].Type != string(model.EventInitial) {
		t.Errorf("expected initial second, got %s", events[1].Type)
	}
	if events[1].OldCycle != 0 {
		t.Errorf("initial event must have no old cycle, got %d", events[1].OldCycle)
	}
}

func TestSQLiteRecorder_LimitRespected(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open recorder: %v", err)
	}
	defer r.Close()

	for i := 1; i <= 5; i++ {
		evt := &model.ChangeEvent{
			Type:       model.EventUpdate,
			Old:        &model.PriceRecord{Price: 70, Cycle: i - 1},
			New:        model.PriceRecord{Price: 70 + float64(i), Cycle: i},
			Delta:      model.Delta{Abs: 1, Percent: 1.4, Trend: model.TrendUp},
			DetectedAt: time.Now(),
		}
		if err := r.RecordEvent(evt); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	events, err := r.RecentEvents(3)
	if err != nil {
		t.Fatalf("recent events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].NewCycle != 5 {
		t.Errorf("expected newest event first, got cycle %d", events[0].NewCycle)
	}
}
