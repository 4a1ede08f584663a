package monitor

import (
	"math"

	"OilSentinel/internal/model"
)

// DecisionKind classifies what a new observation means relative to the
// previously stored record.
type DecisionKind int

const (
	// DecisionInitial: no previous record; store silently, do not announce.
	DecisionInitial DecisionKind = iota
	// DecisionStale: the cycle went backwards; ignore, keep stored state.
	DecisionStale
	// DecisionNoNewData: same cycle as before; nothing to do.
	DecisionNoNewData
	// DecisionAdvanced: new cycle but the price is unchanged (or moved less
	// than the threshold); store the record, do not announce.
	DecisionAdvanced
	// DecisionChanged: new cycle with a real price move; store and announce.
	DecisionChanged
)

// Decision is the change detector's verdict for one observation.
type Decision struct {
	Kind  DecisionKind
	Delta model.Delta
}

// Detect compares the current observation against the previous record.
// minChange is the smallest absolute move worth announcing.
func Detect(prev *model.PriceRecord, cur model.PriceRecord, minChange float64) Decision {
	if prev == nil {
		return Decision{Kind: DecisionInitial}
	}
	if cur.Cycle < prev.Cycle {
		return Decision{Kind: DecisionStale}
	}
	if cur.Cycle == prev.Cycle {
		return Decision{Kind: DecisionNoNewData}
	}

	abs := cur.Price - prev.Price
	delta := model.Delta{
		Abs:     abs,
		Percent: abs / prev.Price * 100,
		Trend:   model.TrendOf(abs),
	}
	if abs == 0 || math.Abs(abs) < minChange {
		// A republished price under a new cycle is not news.
		return Decision{Kind: DecisionAdvanced, Delta: delta}
	}
	return Decision{Kind: DecisionChanged, Delta: delta}
}
