package model

import "time"

// Trend summarizes the sign of a price delta.
type Trend string

const (
	TrendUp   Trend = "UP"
	TrendDown Trend = "DOWN"
	TrendFlat Trend = "FLAT"
)

// Glyph returns the chat indicator for the trend.
func (t Trend) Glyph() string {
	switch t {
	case TrendUp:
		return "📈"
	case TrendDown:
		return "📉"
	default:
		return "➖"
	}
}

// TrendOf classifies an absolute price change.
func TrendOf(abs float64) Trend {
	switch {
	case abs > 0:
		return TrendUp
	case abs < 0:
		return TrendDown
	default:
		return TrendFlat
	}
}

// EventType indicates what kind of observation produced an event.
type EventType string

const (
	EventInitial EventType = "INITIAL"
	EventUpdate  EventType = "UPDATE"
)

// Delta describes how the price moved between two records.
type Delta struct {
	Abs     float64
	Percent float64
	Trend   Trend
}

// ChangeEvent is emitted when a new price observation is accepted.
// Old is nil for the first observation after a fresh start.
type ChangeEvent struct {
	Type       EventType
	Old        *PriceRecord
	New        PriceRecord
	Delta      Delta
	DetectedAt time.Time
}
