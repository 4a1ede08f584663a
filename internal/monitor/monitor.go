package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"OilSentinel/internal/fetcher"
	"OilSentinel/internal/model"
	"OilSentinel/internal/notifier"
	"OilSentinel/internal/parser"
	"OilSentinel/internal/recorder"
	"OilSentinel/internal/store"
)

// Fetcher fetches the raw payload with conditional-request support.
type Fetcher interface {
	Fetch(ctx context.Context, prior fetcher.CacheToken) (*fetcher.Result, error)
}

// Announcer reflects an accepted price change into the chat.
type Announcer interface {
	Announce(ctx context.Context, evt *model.ChangeEvent) *notifier.AnnounceResult
}

// OutcomeKind summarizes one pipeline run.
type OutcomeKind string

const (
	OutcomeNoChange OutcomeKind = "NO_CHANGE"
	OutcomeInitial  OutcomeKind = "INITIAL"
	OutcomeChanged  OutcomeKind = "CHANGED"
	OutcomeFailed   OutcomeKind = "FAILED"
)

// Outcome is what a pipeline run reports back, used verbatim as the
// manual-check reply.
type Outcome struct {
	Kind          OutcomeKind
	Event         *model.ChangeEvent
	PartialNotify bool
	Err           error
}

// Reply renders the outcome for the chat.
func (o Outcome) Reply() string {
	switch o.Kind {
	case OutcomeNoChange:
		return "✅ No price change detected."
	case OutcomeInitial:
		return notifier.FormatInitialMessage(o.Event)
	case OutcomeChanged:
		reply := notifier.FormatChangeMessage(o.Event)
		if o.PartialNotify {
			reply += "\n⚠️ Part of the announcement failed; see logs."
		}
		return reply
	default:
		return fmt.Sprintf("❌ Check failed: %v", o.Err)
	}
}

// Monitor runs the poll pipeline: fetch, parse, detect, persist, announce.
// State is owned here; the scheduler guarantees at most one Check at a time,
// the mutex only guards command-side reads against the running pipeline.
type Monitor struct {
	Fetcher   Fetcher
	Notifier  Announcer
	Recorder  recorder.Recorder
	StateFile string
	MinChange float64

	mu    sync.Mutex
	state *model.PollState
}

// New loads the persisted poll state and builds a Monitor around it.
func New(f Fetcher, n Announcer, rec recorder.Recorder, stateFile string, minChange float64) (*Monitor, error) {
	state, err := store.Load(stateFile)
	if err != nil {
		return nil, fmt.Errorf("load poll state: %w", err)
	}
	if state.LastRecord != nil {
		log.Printf("[INFO] resuming from stored price $%.2f (cycle %d)", state.LastRecord.Price, state.LastRecord.Cycle)
	}
	return &Monitor{
		Fetcher:   f,
		Notifier:  n,
		Recorder:  rec,
		StateFile: stateFile,
		MinChange: minChange,
		state:     state,
	}, nil
}

// State returns a copy of the current poll state.
func (m *Monitor) State() model.PollState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *m.state
	if m.state.LastRecord != nil {
		rec := *m.state.LastRecord
		s.LastRecord = &rec
	}
	return s
}

// Check runs one pipeline cycle. Every failure is caught, logged, and
// returned as an Outcome; nothing escapes to crash the scheduler.
func (m *Monitor) Check(ctx context.Context) Outcome {
	runID := uuid.NewString()[:8]

	m.mu.Lock()
	etag, lastMod, bodyHash := m.state.CacheToken()
	prev := m.state.LastRecord
	m.mu.Unlock()

	res, err := m.Fetcher.Fetch(ctx, fetcher.CacheToken{ETag: etag, LastModified: lastMod, BodyHash: bodyHash})
	if err != nil {
		log.Printf("[ERROR] run %s: fetch: %v", runID, err)
		return Outcome{Kind: OutcomeFailed, Err: err}
	}
	if res.NotModified {
		log.Printf("[INFO] run %s: payload unchanged", runID)
		return Outcome{Kind: OutcomeNoChange}
	}

	cur, err := parser.Latest(res.Body)
	if err != nil {
		log.Printf("[ERROR] run %s: parse: %v", runID, err)
		return Outcome{Kind: OutcomeFailed, Err: err}
	}

	decision := Detect(prev, cur, m.MinChange)
	switch decision.Kind {
	case DecisionStale:
		log.Printf("[WARN] run %s: stale response (cycle %d < stored %d), ignoring", runID, cur.Cycle, prev.Cycle)
		return Outcome{Kind: OutcomeNoChange}

	case DecisionNoNewData:
		// Payload body moved but the latest cycle didn't; remember the new
		// validators so the next poll can still short-circuit.
		m.updateState(nil, res.Token, runID)
		log.Printf("[INFO] run %s: no new cycle (still %d)", runID, cur.Cycle)
		return Outcome{Kind: OutcomeNoChange}

	case DecisionInitial:
		evt := &model.ChangeEvent{
			Type:       model.EventInitial,
			New:        cur,
			Delta:      model.Delta{Trend: model.TrendFlat},
			DetectedAt: time.Now().UTC(),
		}
		m.updateState(&cur, res.Token, runID)
		m.record(evt, runID)
		log.Printf("[INFO] run %s: initial price $%.2f (cycle %d) stored", runID, cur.Price, cur.Cycle)
		return Outcome{Kind: OutcomeInitial, Event: evt}

	case DecisionAdvanced:
		m.updateState(&cur, res.Token, runID)
		log.Printf("[INFO] run %s: cycle advanced to %d without a price move ($%.2f)", runID, cur.Cycle, cur.Price)
		return Outcome{Kind: OutcomeNoChange}

	default: // DecisionChanged
		evt := &model.ChangeEvent{
			Type:       model.EventUpdate,
			Old:        prev,
			New:        cur,
			Delta:      decision.Delta,
			DetectedAt: time.Now().UTC(),
		}
		// The observation is valid regardless of how the announcement goes.
		m.updateState(&cur, res.Token, runID)
		m.record(evt, runID)

		log.Printf("[INFO] run %s: price change $%.2f → $%.2f (%+.2f, %+.2f%%)",
			runID, prev.Price, cur.Price, decision.Delta.Abs, decision.Delta.Percent)

		announce := m.Notifier.Announce(ctx, evt)
		return Outcome{Kind: OutcomeChanged, Event: evt, PartialNotify: announce.Failed()}
	}
}

// updateState mutates the in-memory state and persists it. A save failure
// is logged only; the loop keeps running on in-memory state and the next
// accepted cycle tries again.
func (m *Monitor) updateState(rec *model.PriceRecord, token fetcher.CacheToken, runID string) {
	m.mu.Lock()
	if rec != nil {
		m.state.LastRecord = rec
	}
	m.state.LastETag = token.ETag
	m.state.LastModified = token.LastModified
	m.state.LastBodyHash = token.BodyHash
	m.state.UpdatedAt = time.Now().UTC()
	snapshot := *m.state
	m.mu.Unlock()

	if err := store.Save(m.StateFile, &snapshot); err != nil {
		log.Printf("[ERROR] run %s: persist state: %v", runID, err)
	}
}

func (m *Monitor) record(evt *model.ChangeEvent, runID string) {
	if err := m.Recorder.RecordEvent(evt); err != nil {
		log.Printf("[ERROR] run %s: record event: %v", runID, err)
	}
}
