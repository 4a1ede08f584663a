package recorder

import "OilSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordEvent(_ *model.ChangeEvent) error    { return nil }
func (n *NoopRecorder) RecentEvents(_ int) ([]StoredEvent, error) { return nil, nil }
func (n *NoopRecorder) Close() error                              { return nil }
