package model

import "time"

// PriceRecord is a single oil price observation from the upstream endpoint.
type PriceRecord struct {
	Price      float64   `json:"price"`
	Cycle      int       `json:"cycle"`
	ObservedAt time.Time `json:"observed_at"`
}

// PollState is everything the polling loop remembers between cycles.
// It is owned by a single pipeline instance and persisted after each
// accepted observation.
type PollState struct {
	LastRecord   *PriceRecord `json:"last_record,omitempty"`
	LastETag     string       `json:"last_etag,omitempty"`
	LastModified string       `json:"last_modified,omitempty"`
	LastBodyHash string       `json:"last_body_hash,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// CacheToken returns the conditional-request tokens carried by the state.
func (s *PollState) CacheToken() (etag, lastModified, bodyHash string) {
	return s.LastETag, s.LastModified, s.LastBodyHash
}
