// Package parser extracts price records from the upstream JSON payload.
// The endpoint returns an array of {price, cycle, timestamp} objects; the
// latest observation is the one with the highest cycle number.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"OilSentinel/internal/model"
)

var (
	// ErrMalformedPayload indicates the payload is not the expected JSON array.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrEmptyPayload indicates the array held no usable price entries.
	ErrEmptyPayload = errors.New("empty payload")
)

// Reasonable oil price bounds in $/barrel; out-of-range values are logged
// but still accepted, since the upstream game economy sets the rules.
const (
	sanityMin = 10.0
	sanityMax = 200.0
)

type rawEntry struct {
	Price     *float64 `json:"price"`
	Cycle     *int     `json:"cycle"`
	Timestamp string   `json:"timestamp"`
}

// Records parses the payload into valid price records sorted by cycle.
// Individually broken entries are skipped; a payload with no valid entry
// at all fails with ErrEmptyPayload.
func Records(payload []byte) ([]model.PriceRecord, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(payload, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(raws) == 0 {
		return nil, ErrEmptyPayload
	}

	records := make([]model.PriceRecord, 0, len(raws))
	for i, raw := range raws {
		var e rawEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			log.Printf("[WARN] skipping invalid entry %d: %v", i, err)
			continue
		}
		if e.Price == nil || e.Cycle == nil {
			log.Printf("[WARN] skipping entry %d: missing price or cycle", i)
			continue
		}
		rec := model.PriceRecord{
			Price:      *e.Price,
			Cycle:      *e.Cycle,
			ObservedAt: parseTimestamp(e.Timestamp),
		}
		if rec.Price < sanityMin || rec.Price > sanityMax {
			log.Printf("[WARN] entry %d price $%.2f outside expected range", i, rec.Price)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no valid price entries", ErrEmptyPayload)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Cycle != records[j].Cycle {
			return records[i].Cycle < records[j].Cycle
		}
		return records[i].ObservedAt.Before(records[j].ObservedAt)
	})
	return records, nil
}

// Latest returns the record with the highest cycle number; ties are broken
// by the later observation timestamp.
func Latest(payload []byte) (model.PriceRecord, error) {
	records, err := Records(payload)
	if err != nil {
		return model.PriceRecord{}, err
	}
	// Records are sorted ascending by (cycle, timestamp).
	return records[len(records)-1], nil
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
