package recorder

import (
	"time"

	"OilSentinel/internal/model"
)

// StoredEvent is a price event row read back from history.
type StoredEvent struct {
	Timestamp time.Time
	Type      string
	OldPrice  float64
	NewPrice  float64
	OldCycle  int
	NewCycle  int
	Abs       float64
	Percent   float64
	Trend     string
}

// Recorder persists accepted price events for later inspection.
type Recorder interface {
	RecordEvent(evt *model.ChangeEvent) error
	RecentEvents(limit int) ([]StoredEvent, error)
	Close() error
}
