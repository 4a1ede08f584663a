package monitor

import (
	"math"
	"testing"
	"time"

	"OilSentinel/internal/model"
)

func TestDetect_ReportedChange(t *testing.T) {
	prev := &model.PriceRecord{Price: 72.59, Cycle: 6547}
	cur := model.PriceRecord{
		Price:      76.28,
		Cycle:      6548,
		ObservedAt: time.Date(2024, 1, 1, 14, 30, 0, 0, time.UTC),
	}

	d := Detect(prev, cur, 0.01)
	if d.Kind != DecisionChanged {
		t.Fatalf("expected DecisionChanged, got %v", d.Kind)
	}
	if math.Abs(d.Delta.Abs-3.69) > 1e-9 {
		t.Errorf("expected absolute change 3.69, got %.10f", d.Delta.Abs)
	}
	if math.Abs(d.Delta.Percent-5.08) > 0.01 {
		t.Errorf("expected percent change ≈5.08, got %.4f", d.Delta.Percent)
	}
	if d.Delta.Trend != model.TrendUp {
		t.Errorf("expected up trend, got %s", d.Delta.Trend)
	}
}

func TestDetect_FirstObservationIsInitial(t *testing.T) {
	cur := model.PriceRecord{Price: 50.00, Cycle: 1}
	d := Detect(nil, cur, 0.01)
	if d.Kind != DecisionInitial {
		t.Fatalf("expected DecisionInitial, got %v", d.Kind)
	}
}

func TestDetect_StaleCycleIgnored(t *testing.T) {
	prev := &model.PriceRecord{Price: 80.00, Cycle: 100}
	cur := model.PriceRecord{Price: 60.00, Cycle: 99}
	d := Detect(prev, cur, 0.01)
	if d.Kind != DecisionStale {
		t.Fatalf("expected DecisionStale, got %v", d.Kind)
	}
}

func TestDetect_SameCycleIsNoNewData(t *testing.T) {
	prev := &model.PriceRecord{Price: 80.00, Cycle: 100}
	cur := model.PriceRecord{Price: 80.00, Cycle: 100}
	if d := Detect(prev, cur, 0.01); d.Kind != DecisionNoNewData {
		t.Fatalf("expected DecisionNoNewData, got %v", d.Kind)
	}
}

func TestDetect_NewCycleSamePriceNotReported(t *testing.T) {
	prev := &model.PriceRecord{Price: 80.00, Cycle: 100}
	cur := model.PriceRecord{Price: 80.00, Cycle: 101}
	d := Detect(prev, cur, 0.01)
	if d.Kind != DecisionAdvanced {
		t.Fatalf("expected DecisionAdvanced for republished price, got %v", d.Kind)
	}
	// Same-value republish is never Changed, even with a zero threshold.
	if d := Detect(prev, cur, 0); d.Kind == DecisionChanged {
		t.Fatal("equal prices must never report a change")
	}
}

func TestDetect_BelowThresholdNotReported(t *testing.T) {
	prev := &model.PriceRecord{Price: 80.00, Cycle: 100}
	cur := model.PriceRecord{Price: 80.005, Cycle: 101}
	if d := Detect(prev, cur, 0.01); d.Kind != DecisionAdvanced {
		t.Fatalf("expected sub-threshold move to be DecisionAdvanced, got %v", d.Kind)
	}
}

func TestDetect_DownTrend(t *testing.T) {
	prev := &model.PriceRecord{Price: 80.00, Cycle: 100}
	cur := model.PriceRecord{Price: 75.00, Cycle: 101}
	d := Detect(prev, cur, 0.01)
	if d.Kind != DecisionChanged {
		t.Fatalf("expected DecisionChanged, got %v", d.Kind)
	}
	if d.Delta.Trend != model.TrendDown {
		t.Errorf("expected down trend, got %s", d.Delta.Trend)
	}
	if d.Delta.Abs >= 0 {
		t.Errorf("expected negative absolute change, got %.2f", d.Delta.Abs)
	}
}

func TestTrendOf(t *testing.T) {
	if model.TrendOf(0.5) != model.TrendUp {
		t.Error("positive delta must be up")
	}
	if model.TrendOf(-0.5) != model.TrendDown {
		t.Error("negative delta must be down")
	}
	if model.TrendOf(0) != model.TrendFlat {
		t.Error("zero delta must be flat")
	}
}
